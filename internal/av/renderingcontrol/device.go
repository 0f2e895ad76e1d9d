package renderingcontrol

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/strefethen/upnp-av-go/internal/servicedevice"
	"github.com/strefethen/upnp-av-go/internal/soap"
	"github.com/strefethen/upnp-av-go/internal/upnperror"
)

// channelState is one channel's Volume/Mute pair, keyed by instance
// and channel (spec.md §4.7 "RenderingControl's channel-keyed
// variables").
type channelState struct {
	volume int
	mute   bool
}

// Device is the RenderingControl:1 device half.
type Device struct {
	base      *servicedevice.ServiceBase
	lastChange *servicedevice.LastChangeAggregator

	mu    sync.Mutex
	state map[uint32]map[Channel]*channelState

	// NotifyLastChange is called with the serialised LastChange event
	// body whenever the aggregator flushes; the root device wires this
	// to a GENA publish.
	NotifyLastChange func(payload []byte)
}

// NewDevice constructs a RenderingControl device whose LastChange
// events coalesce within minInterval.
func NewDevice(minInterval time.Duration) *Device {
	d := &Device{
		base:  servicedevice.NewServiceBase(),
		state: make(map[uint32]map[Channel]*channelState),
	}
	d.lastChange = servicedevice.NewLastChangeAggregator(servicedevice.LastChangeNamespaceRCS, minInterval, func(payload []byte) {
		d.base.Store.Set(0, "LastChange", string(payload))
		if d.NotifyLastChange != nil {
			d.NotifyLastChange(payload)
		}
	})

	d.base.OnAction("GetVolume", d.handleGetVolume)
	d.base.OnAction("SetVolume", d.handleSetVolume)
	d.base.OnAction("GetMute", d.handleGetMute)
	d.base.OnAction("SetMute", d.handleSetMute)
	d.base.OnAction("ListPresets", d.handleListPresets)
	d.base.OnAction("SelectPreset", d.handleSelectPreset)
	return d
}

func (d *Device) Base() *servicedevice.ServiceBase { return d.base }

func (d *Device) channel(instanceID uint32, ch Channel) *channelState {
	inst, ok := d.state[instanceID]
	if !ok {
		inst = make(map[Channel]*channelState)
		d.state[instanceID] = inst
	}
	cs, ok := inst[ch]
	if !ok {
		cs = &channelState{volume: 50}
		inst[ch] = cs
	}
	return cs
}

func instanceAndChannel(args []soap.Argument) (uint32, Channel) {
	var instanceID uint64
	var channel Channel = ChannelMaster
	for _, a := range args {
		switch a.Name {
		case "InstanceID":
			instanceID, _ = strconv.ParseUint(a.Value, 10, 32)
		case "Channel":
			channel = Channel(a.Value)
		}
	}
	return uint32(instanceID), channel
}

func (d *Device) handleGetVolume(ctx context.Context, instanceID uint32, args []soap.Argument) ([]soap.Argument, error) {
	instanceID, channel := instanceAndChannel(args)
	d.mu.Lock()
	defer d.mu.Unlock()
	cs := d.channel(instanceID, channel)
	return []soap.Argument{{Name: "CurrentVolume", Value: strconv.Itoa(cs.volume)}}, nil
}

func (d *Device) handleSetVolume(ctx context.Context, instanceID uint32, args []soap.Argument) ([]soap.Argument, error) {
	instanceID, channel := instanceAndChannel(args)
	var desired int
	for _, a := range args {
		if a.Name == "DesiredVolume" {
			desired, _ = strconv.Atoi(a.Value)
		}
	}
	if desired < 0 || desired > 100 {
		return nil, upnperror.NewUPnPError(upnperror.InvalidArgs, "volume out of range")
	}

	d.mu.Lock()
	cs := d.channel(instanceID, channel)
	cs.volume = desired
	d.mu.Unlock()

	d.lastChange.AddChangedVariable(instanceID, "Volume", strconv.Itoa(desired), string(channel))
	return nil, nil
}

func (d *Device) handleGetMute(ctx context.Context, instanceID uint32, args []soap.Argument) ([]soap.Argument, error) {
	instanceID, channel := instanceAndChannel(args)
	d.mu.Lock()
	defer d.mu.Unlock()
	cs := d.channel(instanceID, channel)
	value := "0"
	if cs.mute {
		value = "1"
	}
	return []soap.Argument{{Name: "CurrentMute", Value: value}}, nil
}

func (d *Device) handleSetMute(ctx context.Context, instanceID uint32, args []soap.Argument) ([]soap.Argument, error) {
	instanceID, channel := instanceAndChannel(args)
	var desired bool
	for _, a := range args {
		if a.Name == "DesiredMute" {
			desired = a.Value == "1" || a.Value == "true"
		}
	}

	d.mu.Lock()
	cs := d.channel(instanceID, channel)
	cs.mute = desired
	d.mu.Unlock()

	value := "0"
	if desired {
		value = "1"
	}
	d.lastChange.AddChangedVariable(instanceID, "Mute", value, string(channel))
	return nil, nil
}

func (d *Device) handleListPresets(ctx context.Context, instanceID uint32, args []soap.Argument) ([]soap.Argument, error) {
	return []soap.Argument{{Name: "CurrentPresetNameList", Value: "FactoryDefaults"}}, nil
}

func (d *Device) handleSelectPreset(ctx context.Context, instanceID uint32, args []soap.Argument) ([]soap.Argument, error) {
	for _, a := range args {
		if a.Name == "PresetName" && a.Value != "FactoryDefaults" {
			return nil, upnperror.NewUPnPError(upnperror.InvalidArgs, "unknown preset")
		}
	}
	return nil, nil
}
