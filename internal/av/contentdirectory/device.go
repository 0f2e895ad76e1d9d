package contentdirectory

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/strefethen/upnp-av-go/internal/servicedevice"
	"github.com/strefethen/upnp-av-go/internal/soap"
	"github.com/strefethen/upnp-av-go/internal/upnperror"
)

const rootObjectID = "0"

// Device is the ContentDirectory:1 device half: an in-memory content
// tree exposed through Browse/Search, with SystemUpdateID bumped on
// every mutation (spec.md §4.8).
type Device struct {
	base *servicedevice.ServiceBase

	mu            sync.Mutex
	objects       map[string]Item
	children      map[string][]string
	systemUpdate  uint32

	// NotifySystemUpdateID is called with the new SystemUpdateID
	// whenever the content tree changes; the root device wires this to
	// a GENA publish.
	NotifySystemUpdateID func(updateID uint32)
}

// NewDevice constructs a ContentDirectory device with an empty root
// container.
func NewDevice() *Device {
	d := &Device{
		base:     servicedevice.NewServiceBase(),
		objects:  make(map[string]Item),
		children: make(map[string][]string),
	}
	d.objects[rootObjectID] = Item{ID: rootObjectID, ParentID: "-1", Title: "root", Class: "object.container.storageFolder", IsContainer: true, Restricted: true}

	d.base.OnAction("GetSearchCapabilities", d.handleGetSearchCapabilities)
	d.base.OnAction("GetSortCapabilities", d.handleGetSortCapabilities)
	d.base.OnAction("GetSystemUpdateID", d.handleGetSystemUpdateID)
	d.base.OnAction("Browse", d.handleBrowse)
	d.base.OnAction("Search", d.handleSearch)

	d.base.Store.Set(0, "SystemUpdateID", "0")
	return d
}

func (d *Device) Base() *servicedevice.ServiceBase { return d.base }

// AddObject inserts item as a child of item.ParentID, creating the
// parent's child list if necessary, and bumps SystemUpdateID.
func (d *Device) AddObject(item Item) {
	d.mu.Lock()
	d.objects[item.ID] = item
	d.children[item.ParentID] = append(d.children[item.ParentID], item.ID)
	if parent, ok := d.objects[item.ParentID]; ok {
		parent.ChildCount = len(d.children[item.ParentID])
		d.objects[item.ParentID] = parent
	}
	d.mu.Unlock()
	d.bumpSystemUpdateID()
}

// RemoveObject deletes an object and its descendants from the tree.
func (d *Device) RemoveObject(id string) {
	d.mu.Lock()
	d.removeLocked(id)
	d.mu.Unlock()
	d.bumpSystemUpdateID()
}

func (d *Device) removeLocked(id string) {
	for _, child := range d.children[id] {
		d.removeLocked(child)
	}
	delete(d.children, id)
	item, ok := d.objects[id]
	if !ok {
		return
	}
	delete(d.objects, id)
	siblings := d.children[item.ParentID]
	for i, sib := range siblings {
		if sib == id {
			d.children[item.ParentID] = append(siblings[:i], siblings[i+1:]...)
			break
		}
	}
}

func (d *Device) bumpSystemUpdateID() {
	d.mu.Lock()
	d.systemUpdate++
	updateID := d.systemUpdate
	d.mu.Unlock()

	d.base.Store.Set(0, "SystemUpdateID", strconv.FormatUint(uint64(updateID), 10))
	if d.NotifySystemUpdateID != nil {
		d.NotifySystemUpdateID(updateID)
	}
}

func (d *Device) handleGetSearchCapabilities(ctx context.Context, instanceID uint32, args []soap.Argument) ([]soap.Argument, error) {
	return []soap.Argument{{Name: "SearchCaps", Value: "dc:title,upnp:class,upnp:artist,upnp:album"}}, nil
}

func (d *Device) handleGetSortCapabilities(ctx context.Context, instanceID uint32, args []soap.Argument) ([]soap.Argument, error) {
	return []soap.Argument{{Name: "SortCaps", Value: "dc:title,upnp:class"}}, nil
}

func (d *Device) handleGetSystemUpdateID(ctx context.Context, instanceID uint32, args []soap.Argument) ([]soap.Argument, error) {
	d.mu.Lock()
	updateID := d.systemUpdate
	d.mu.Unlock()
	return []soap.Argument{{Name: "Id", Value: strconv.FormatUint(uint64(updateID), 10)}}, nil
}

func argValue(args []soap.Argument, name string) string {
	for _, a := range args {
		if a.Name == name {
			return a.Value
		}
	}
	return ""
}

func (d *Device) handleBrowse(ctx context.Context, instanceID uint32, args []soap.Argument) ([]soap.Argument, error) {
	objectID := argValue(args, "ObjectID")
	if objectID == "" {
		objectID = rootObjectID
	}
	flag, ok := BrowseFlagFromString(argValue(args, "BrowseFlag"))
	if !ok {
		return nil, upnperror.NewUPnPError(upnperror.InvalidArgs, "invalid BrowseFlag")
	}
	startingIndex, _ := strconv.ParseUint(argValue(args, "StartingIndex"), 10, 32)
	requestedCount, _ := strconv.ParseUint(argValue(args, "RequestedCount"), 10, 32)
	sortProperties, err := parseSortCriteria(argValue(args, "SortCriteria"))
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	obj, ok := d.objects[objectID]
	if !ok {
		d.mu.Unlock()
		return nil, upnperror.NewUPnPError(upnperror.InvalidArgs, "no such object")
	}

	var items []Item
	var totalMatches uint32
	if flag == BrowseMetadata {
		items = []Item{obj}
		totalMatches = 1
	} else {
		childIDs := d.children[objectID]
		all := make([]Item, 0, len(childIDs))
		for _, id := range childIDs {
			all = append(all, d.objects[id])
		}
		totalMatches = uint32(len(all))
		items = paginate(sortItems(all, sortProperties), startingIndex, requestedCount)
	}
	updateID := d.systemUpdate
	d.mu.Unlock()

	return []soap.Argument{
		{Name: "Result", Value: string(BuildDIDLLite(items))},
		{Name: "NumberReturned", Value: strconv.Itoa(len(items))},
		{Name: "TotalMatches", Value: strconv.FormatUint(uint64(totalMatches), 10)},
		{Name: "UpdateID", Value: strconv.FormatUint(uint64(updateID), 10)},
	}, nil
}

func (d *Device) handleSearch(ctx context.Context, instanceID uint32, args []soap.Argument) ([]soap.Argument, error) {
	containerID := argValue(args, "ContainerID")
	if containerID == "" {
		containerID = rootObjectID
	}
	criteria := argValue(args, "SearchCriteria")
	startingIndex, _ := strconv.ParseUint(argValue(args, "StartingIndex"), 10, 32)
	requestedCount, _ := strconv.ParseUint(argValue(args, "RequestedCount"), 10, 32)
	sortProperties, err := parseSortCriteria(argValue(args, "SortCriteria"))
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	if _, ok := d.objects[containerID]; !ok {
		d.mu.Unlock()
		return nil, upnperror.NewUPnPError(upnperror.InvalidArgs, "no such object")
	}
	var matches []Item
	d.collectMatchingLocked(containerID, criteria, &matches)
	updateID := d.systemUpdate
	d.mu.Unlock()

	totalMatches := uint32(len(matches))
	items := paginate(sortItems(matches, sortProperties), startingIndex, requestedCount)

	return []soap.Argument{
		{Name: "Result", Value: string(BuildDIDLLite(items))},
		{Name: "NumberReturned", Value: strconv.Itoa(len(items))},
		{Name: "TotalMatches", Value: strconv.FormatUint(uint64(totalMatches), 10)},
		{Name: "UpdateID", Value: strconv.FormatUint(uint64(updateID), 10)},
	}, nil
}

// collectMatchingLocked walks every descendant of id and appends the
// items matching criteria. Must be called with d.mu held.
func (d *Device) collectMatchingLocked(id, criteria string, out *[]Item) {
	for _, childID := range d.children[id] {
		item := d.objects[childID]
		if matchesSearchCriteria(item, criteria) {
			*out = append(*out, item)
		}
		if item.IsContainer {
			d.collectMatchingLocked(childID, criteria, out)
		}
	}
}

// matchesSearchCriteria supports the subset of UPnP SearchCriteria
// syntax this device implements: "*" matches everything, and
// `<property> contains "<value>"` matches a substring of dc:title,
// upnp:class, upnp:artist or upnp:album.
func matchesSearchCriteria(item Item, criteria string) bool {
	criteria = strings.TrimSpace(criteria)
	if criteria == "" || criteria == "*" {
		return true
	}

	idx := strings.Index(criteria, "contains")
	if idx < 0 {
		return false
	}
	property := strings.TrimSpace(criteria[:idx])
	value := strings.Trim(strings.TrimSpace(criteria[idx+len("contains"):]), `"`)
	if value == "" {
		return false
	}

	var field string
	switch property {
	case "dc:title":
		field = item.Title
	case "upnp:class":
		field = item.Class
	case "upnp:artist":
		field = item.Artist
	case "upnp:album":
		field = item.Album
	default:
		field = item.Title
	}
	return strings.Contains(strings.ToLower(field), strings.ToLower(value))
}

// parseSortCriteria splits a SortCriteria string on "," the way
// upnp.contentdirectory.service.cpp's Browse handler does, faulting
// with InvalidArguments for any empty element (e.g. a stray ",,").
func parseSortCriteria(sortCriteria string) ([]string, error) {
	if sortCriteria == "" {
		return nil, nil
	}
	properties := strings.Split(sortCriteria, ",")
	for _, p := range properties {
		if p == "" {
			return nil, upnperror.NewUPnPError(upnperror.InvalidArgs, "empty element in SortCriteria")
		}
	}
	return properties, nil
}

func sortItems(items []Item, properties []string) []Item {
	if len(properties) == 0 {
		return items
	}
	primary := properties[0]
	descending := strings.HasPrefix(primary, "-")

	sorted := make([]Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sortKey(sorted[i], primary), sortKey(sorted[j], primary)
		if descending {
			return a > b
		}
		return a < b
	})
	return sorted
}

func paginate(items []Item, startingIndex, requestedCount uint64) []Item {
	if startingIndex >= uint64(len(items)) {
		return nil
	}
	end := uint64(len(items))
	if requestedCount > 0 && startingIndex+requestedCount < end {
		end = startingIndex + requestedCount
	}
	return items[startingIndex:end]
}
