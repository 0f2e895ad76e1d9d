// Package renderingcontrol implements the UPnP RenderingControl:1
// service (spec.md §4.7): volume and mute control, channel-keyed
// variables, and LastChange eventing. Grounded on
// original_source/inc/upnp/upnp.renderingcontrol.types.h.
package renderingcontrol

// Action enumerates the RenderingControl:1 actions this package
// implements (the core required set plus the common optional Volume
// actions).
type Action int

const (
	ActionListPresets Action = iota
	ActionSelectPreset
	ActionGetVolume
	ActionSetVolume
	ActionGetMute
	ActionSetMute
)

func ActionFromString(s string) (Action, bool) {
	switch s {
	case "ListPresets":
		return ActionListPresets, true
	case "SelectPreset":
		return ActionSelectPreset, true
	case "GetVolume":
		return ActionGetVolume, true
	case "SetVolume":
		return ActionSetVolume, true
	case "GetMute":
		return ActionGetMute, true
	case "SetMute":
		return ActionSetMute, true
	}
	return 0, false
}

func (a Action) String() string {
	switch a {
	case ActionListPresets:
		return "ListPresets"
	case ActionSelectPreset:
		return "SelectPreset"
	case ActionGetVolume:
		return "GetVolume"
	case ActionSetVolume:
		return "SetVolume"
	case ActionGetMute:
		return "GetMute"
	case ActionSetMute:
		return "SetMute"
	default:
		return "UnknownAction"
	}
}

// Variable enumerates the RenderingControl:1 state variables this
// package implements, including the channel-keyed Volume/Mute group
// and the LastChange aggregate.
type Variable int

const (
	VarPresetNameList Variable = iota
	VarVolume
	VarMute
	VarLastChange
)

func VariableFromString(s string) (Variable, bool) {
	switch s {
	case "PresetNameList":
		return VarPresetNameList, true
	case "Volume":
		return VarVolume, true
	case "Mute":
		return VarMute, true
	case "LastChange":
		return VarLastChange, true
	}
	return 0, false
}

func (v Variable) String() string {
	switch v {
	case VarPresetNameList:
		return "PresetNameList"
	case VarVolume:
		return "Volume"
	case VarMute:
		return "Mute"
	case VarLastChange:
		return "LastChange"
	default:
		return "UnknownVariable"
	}
}

// Channel identifies one of RenderingControl's audio channels, carried
// as the A_ARG_TYPE_Channel argument and the LastChange channel
// attribute.
type Channel string

const (
	ChannelMaster Channel = "Master"
	ChannelLF     Channel = "LF"
	ChannelRF     Channel = "RF"
)
