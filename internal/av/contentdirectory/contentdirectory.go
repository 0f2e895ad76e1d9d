// Package contentdirectory implements the UPnP ContentDirectory:1
// service (spec.md §4.8): Browse/Search over a hierarchical content
// tree serialised as DIDL-Lite, plus the SystemUpdateID/
// ContainerUpdateIDs moderated state variables. Grounded on
// original_source/inc/upnp/upnp.contentdirectory.types.h for the
// action/variable/BrowseFlag vocabulary and on
// strefethen-sonos-hub-go's internal/sonos/metadata.go for the
// streaming DIDL-Lite decoding style.
package contentdirectory

import "strings"

// Action enumerates the ContentDirectory:1 actions this package
// implements.
type Action int

const (
	ActionGetSearchCapabilities Action = iota
	ActionGetSortCapabilities
	ActionGetSystemUpdateID
	ActionBrowse
	ActionSearch
)

var actionNames = map[Action]string{
	ActionGetSearchCapabilities: "GetSearchCapabilities",
	ActionGetSortCapabilities:   "GetSortCapabilities",
	ActionGetSystemUpdateID:     "GetSystemUpdateID",
	ActionBrowse:                "Browse",
	ActionSearch:                "Search",
}

func ActionFromString(s string) (Action, bool) {
	for a, name := range actionNames {
		if name == s {
			return a, true
		}
	}
	return 0, false
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "UnknownAction"
}

// Variable enumerates the ContentDirectory:1 state variables this
// package implements.
type Variable int

const (
	VarSystemUpdateID Variable = iota
	VarContainerUpdateIDs
	VarTransferIDs
	VarSearchCapabilities
	VarSortCapabilities
)

var variableNames = map[Variable]string{
	VarSystemUpdateID:      "SystemUpdateID",
	VarContainerUpdateIDs:  "ContainerUpdateIDs",
	VarTransferIDs:         "TransferIDs",
	VarSearchCapabilities:  "SearchCapabilities",
	VarSortCapabilities:    "SortCapabilities",
}

func VariableFromString(s string) (Variable, bool) {
	for v, name := range variableNames {
		if name == s {
			return v, true
		}
	}
	return 0, false
}

func (v Variable) String() string {
	if name, ok := variableNames[v]; ok {
		return name
	}
	return "UnknownVariable"
}

// BrowseFlag selects whether Browse returns an object's own metadata
// or the metadata of its direct children.
type BrowseFlag int

const (
	BrowseMetadata BrowseFlag = iota
	BrowseDirectChildren
)

func BrowseFlagFromString(s string) (BrowseFlag, bool) {
	switch s {
	case "BrowseMetadata":
		return BrowseMetadata, true
	case "BrowseDirectChildren":
		return BrowseDirectChildren, true
	default:
		return 0, false
	}
}

func (f BrowseFlag) String() string {
	switch f {
	case BrowseDirectChildren:
		return "BrowseDirectChildren"
	default:
		return "BrowseMetadata"
	}
}

// Item is one DIDL-Lite object: an item (leaf, playable) or a
// container (folder).
type Item struct {
	ID          string
	ParentID    string
	Title       string
	Class       string
	Restricted  bool
	IsContainer bool
	ChildCount  int

	Artist      string
	Album       string
	AlbumArtURI string
	Genre       string
	Date        string

	ResourceURI  string
	ProtocolInfo string
	SizeBytes    int64
	Duration     string
}

// BrowseResult is the decoded output of Browse or Search.
type BrowseResult struct {
	Items          []Item
	NumberReturned uint32
	TotalMatches   uint32
	UpdateID       uint32
}

// sortKey returns the DIDL-Lite property value a SortCriteria
// specifier of "dc:title" or "upnp:class" compares against.
func sortKey(item Item, property string) string {
	switch strings.TrimPrefix(property, "+") {
	case "dc:title", "-dc:title":
		return item.Title
	case "upnp:class", "-upnp:class":
		return item.Class
	default:
		return item.Title
	}
}
