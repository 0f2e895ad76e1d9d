// Package connectionmanager implements the UPnP ConnectionManager:1
// service (spec.md §4.7), client and device halves, grounded on
// original_source/inc/upnp/upnp.connectionmanager.types.h for its
// action/variable enums and ConnectionInfo/ProtocolInfo/
// ConnectionStatus shapes (spec.md §3 Supplemented Features).
package connectionmanager

import "fmt"

// Action enumerates the ConnectionManager:1 actions this package
// implements.
type Action int

const (
	ActionGetProtocolInfo Action = iota
	ActionGetCurrentConnectionIDs
	ActionGetCurrentConnectionInfo
)

func ActionFromString(s string) (Action, bool) {
	switch s {
	case "GetProtocolInfo":
		return ActionGetProtocolInfo, true
	case "GetCurrentConnectionIDs":
		return ActionGetCurrentConnectionIDs, true
	case "GetCurrentConnectionInfo":
		return ActionGetCurrentConnectionInfo, true
	}
	return 0, false
}

func (a Action) String() string {
	switch a {
	case ActionGetProtocolInfo:
		return "GetProtocolInfo"
	case ActionGetCurrentConnectionIDs:
		return "GetCurrentConnectionIDs"
	case ActionGetCurrentConnectionInfo:
		return "GetCurrentConnectionInfo"
	default:
		return "UnknownAction"
	}
}

// Variable enumerates the ConnectionManager:1 evented and
// argument-carrying state variables this package implements.
type Variable int

const (
	VarSourceProtocolInfo Variable = iota
	VarSinkProtocolInfo
	VarCurrentConnectionIDs
)

func VariableFromString(s string) (Variable, bool) {
	switch s {
	case "SourceProtocolInfo":
		return VarSourceProtocolInfo, true
	case "SinkProtocolInfo":
		return VarSinkProtocolInfo, true
	case "CurrentConnectionIDs":
		return VarCurrentConnectionIDs, true
	}
	return 0, false
}

func (v Variable) String() string {
	switch v {
	case VarSourceProtocolInfo:
		return "SourceProtocolInfo"
	case VarSinkProtocolInfo:
		return "SinkProtocolInfo"
	case VarCurrentConnectionIDs:
		return "CurrentConnectionIDs"
	default:
		return "UnknownVariable"
	}
}

// Direction is a connection's data-flow direction.
type Direction int

const (
	DirectionInput Direction = iota
	DirectionOutput
)

func (d Direction) String() string {
	if d == DirectionOutput {
		return "Output"
	}
	return "Input"
}

// ConnectionStatus mirrors ConnectionManager:1's A_ARG_TYPE_ConnectionStatus
// allowed values.
type ConnectionStatus int

const (
	ConnectionStatusOK ConnectionStatus = iota
	ConnectionStatusContentFormatMismatch
	ConnectionStatusInsufficientBandwidth
	ConnectionStatusUnreliableChannel
	ConnectionStatusUnknown
)

func (s ConnectionStatus) String() string {
	switch s {
	case ConnectionStatusOK:
		return "OK"
	case ConnectionStatusContentFormatMismatch:
		return "ContentFormatMismatch"
	case ConnectionStatusInsufficientBandwidth:
		return "InsufficientBandwidth"
	case ConnectionStatusUnreliableChannel:
		return "UnreliableChannel"
	default:
		return "Unknown"
	}
}

// ProtocolInfo is one comma-separated entry of a Source/SinkProtocolInfo
// list: "<protocol>:<network>:<contentFormat>:<additionalInfo>".
type ProtocolInfo struct {
	Protocol         string
	Network          string
	ContentFormat    string
	AdditionalInfo   string
}

func (p ProtocolInfo) String() string {
	return fmt.Sprintf("%s:%s:%s:%s", p.Protocol, p.Network, p.ContentFormat, p.AdditionalInfo)
}

// ConnectionInfo is the decoded result of GetCurrentConnectionInfo.
type ConnectionInfo struct {
	ConnectionID               int32
	AVTransportID               int32
	RenderingControlServiceID   int32
	ProtocolInfo                ProtocolInfo
	PeerConnectionManager       string
	PeerConnectionID            int32
	Direction                   Direction
	ConnectionStatus            ConnectionStatus
}

// UnknownConnectionID and DefaultConnectionID mirror the constants
// ConnectionManager:1 defines for connectionless transfers.
const (
	UnknownConnectionID int32 = -1
	DefaultConnectionID int32 = 0
)
