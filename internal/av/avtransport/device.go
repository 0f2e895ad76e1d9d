package avtransport

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/strefethen/upnp-av-go/internal/servicedevice"
	"github.com/strefethen/upnp-av-go/internal/soap"
	"github.com/strefethen/upnp-av-go/internal/upnperror"
)

// transportInstance is the full mutable state of one AVTransport
// instance (instance 0 in every real implementation, but the service
// is modelled as multi-instance per the UPnP schema).
type transportInstance struct {
	state     TransportState
	playMode  PlayMode
	speed     string
	uri       string
	uriMeta   string
	trackURI  string
	trackMeta string
	track     int
	numTracks int
}

// Device is the AVTransport:1 device half. Positional variables
// (RelativeTimePosition, AbsoluteTimePosition, RelativeCounterPosition,
// AbsoluteCounterPosition) are not tracked and never routed through
// LastChange (spec.md §4.7); GetPositionInfo reports fixed zero values.
type Device struct {
	base       *servicedevice.ServiceBase
	lastChange *servicedevice.LastChangeAggregator

	mu        sync.Mutex
	instances map[uint32]*transportInstance

	NotifyLastChange func(payload []byte)
}

func NewDevice(minInterval time.Duration) *Device {
	d := &Device{
		base:      servicedevice.NewServiceBase(),
		instances: make(map[uint32]*transportInstance),
	}
	d.lastChange = servicedevice.NewLastChangeAggregator(servicedevice.LastChangeNamespaceAVT, minInterval, func(payload []byte) {
		d.base.Store.Set(0, "LastChange", string(payload))
		if d.NotifyLastChange != nil {
			d.NotifyLastChange(payload)
		}
	})

	d.base.OnAction("SetAVTransportURI", d.handleSetAVTransportURI)
	d.base.OnAction("Play", d.handlePlay)
	d.base.OnAction("Pause", d.handlePause)
	d.base.OnAction("Stop", d.handleStop)
	d.base.OnAction("Next", d.handleNext)
	d.base.OnAction("Previous", d.handlePrevious)
	d.base.OnAction("Seek", d.handleSeek)
	d.base.OnAction("GetTransportInfo", d.handleGetTransportInfo)
	d.base.OnAction("GetPositionInfo", d.handleGetPositionInfo)
	d.base.OnAction("GetMediaInfo", d.handleGetMediaInfo)
	return d
}

func (d *Device) Base() *servicedevice.ServiceBase { return d.base }

func (d *Device) instance(instanceID uint32) *transportInstance {
	inst, ok := d.instances[instanceID]
	if !ok {
		inst = &transportInstance{state: StateNoMediaPresent, playMode: PlayModeNormal, speed: "1"}
		d.instances[instanceID] = inst
	}
	return inst
}

func parseInstanceID(args []soap.Argument) uint32 {
	for _, a := range args {
		if a.Name == "InstanceID" {
			n, _ := strconv.ParseUint(a.Value, 10, 32)
			return uint32(n)
		}
	}
	return 0
}

func (d *Device) setState(instanceID uint32, state TransportState) {
	d.lastChange.AddChangedVariable(instanceID, "TransportState", string(state), "")
}

func (d *Device) handleSetAVTransportURI(ctx context.Context, _ uint32, args []soap.Argument) ([]soap.Argument, error) {
	instanceID := parseInstanceID(args)
	var uri, meta string
	for _, a := range args {
		switch a.Name {
		case "CurrentURI":
			uri = a.Value
		case "CurrentURIMetaData":
			meta = a.Value
		}
	}

	d.mu.Lock()
	inst := d.instance(instanceID)
	inst.uri = uri
	inst.uriMeta = meta
	inst.trackURI = uri
	inst.trackMeta = meta
	inst.state = StateStopped
	inst.track = 1
	inst.numTracks = 1
	d.mu.Unlock()

	d.lastChange.AddChangedVariable(instanceID, "AVTransportURI", uri, "")
	d.lastChange.AddChangedVariable(instanceID, "AVTransportURIMetaData", meta, "")
	d.lastChange.AddChangedVariable(instanceID, "CurrentTrackURI", uri, "")
	d.setState(instanceID, StateStopped)
	return nil, nil
}

func (d *Device) handlePlay(ctx context.Context, _ uint32, args []soap.Argument) ([]soap.Argument, error) {
	instanceID := parseInstanceID(args)
	d.mu.Lock()
	inst := d.instance(instanceID)
	if inst.uri == "" {
		d.mu.Unlock()
		return nil, upnperror.NewUPnPError(upnperror.NoContents, "No contents")
	}
	inst.state = StatePlaying
	d.mu.Unlock()
	d.setState(instanceID, StatePlaying)
	return nil, nil
}

func (d *Device) handlePause(ctx context.Context, _ uint32, args []soap.Argument) ([]soap.Argument, error) {
	instanceID := parseInstanceID(args)
	d.mu.Lock()
	d.instance(instanceID).state = StatePausedPlayback
	d.mu.Unlock()
	d.setState(instanceID, StatePausedPlayback)
	return nil, nil
}

func (d *Device) handleStop(ctx context.Context, _ uint32, args []soap.Argument) ([]soap.Argument, error) {
	instanceID := parseInstanceID(args)
	d.mu.Lock()
	d.instance(instanceID).state = StateStopped
	d.mu.Unlock()
	d.setState(instanceID, StateStopped)
	return nil, nil
}

func (d *Device) handleNext(ctx context.Context, _ uint32, args []soap.Argument) ([]soap.Argument, error) {
	instanceID := parseInstanceID(args)
	d.mu.Lock()
	inst := d.instance(instanceID)
	if inst.track >= inst.numTracks {
		d.mu.Unlock()
		return nil, upnperror.NewUPnPError(upnperror.TransitionNotAvailable, "No next track")
	}
	inst.track++
	track := inst.track
	d.mu.Unlock()
	d.lastChange.AddChangedVariable(instanceID, "CurrentTrack", strconv.Itoa(track), "")
	return nil, nil
}

func (d *Device) handlePrevious(ctx context.Context, _ uint32, args []soap.Argument) ([]soap.Argument, error) {
	instanceID := parseInstanceID(args)
	d.mu.Lock()
	inst := d.instance(instanceID)
	if inst.track <= 1 {
		d.mu.Unlock()
		return nil, upnperror.NewUPnPError(upnperror.TransitionNotAvailable, "No previous track")
	}
	inst.track--
	track := inst.track
	d.mu.Unlock()
	d.lastChange.AddChangedVariable(instanceID, "CurrentTrack", strconv.Itoa(track), "")
	return nil, nil
}

func (d *Device) handleSeek(ctx context.Context, _ uint32, args []soap.Argument) ([]soap.Argument, error) {
	var unit string
	for _, a := range args {
		if a.Name == "Unit" {
			unit = a.Value
		}
	}
	switch unit {
	case "REL_TIME", "ABS_TIME", "TRACK_NR":
		return nil, nil
	default:
		return nil, upnperror.NewUPnPError(upnperror.SeekModeNotSupported, "Seek mode not supported")
	}
}

func (d *Device) handleGetTransportInfo(ctx context.Context, _ uint32, args []soap.Argument) ([]soap.Argument, error) {
	instanceID := parseInstanceID(args)
	d.mu.Lock()
	inst := d.instance(instanceID)
	state, speed := inst.state, inst.speed
	d.mu.Unlock()
	return []soap.Argument{
		{Name: "CurrentTransportState", Value: string(state)},
		{Name: "CurrentTransportStatus", Value: "OK"},
		{Name: "CurrentSpeed", Value: speed},
	}, nil
}

func (d *Device) handleGetPositionInfo(ctx context.Context, _ uint32, args []soap.Argument) ([]soap.Argument, error) {
	instanceID := parseInstanceID(args)
	d.mu.Lock()
	inst := d.instance(instanceID)
	track, trackURI, trackMeta := inst.track, inst.trackURI, inst.trackMeta
	d.mu.Unlock()
	return []soap.Argument{
		{Name: "Track", Value: strconv.Itoa(track)},
		{Name: "TrackDuration", Value: "0:00:00"},
		{Name: "TrackMetaData", Value: trackMeta},
		{Name: "TrackURI", Value: trackURI},
		{Name: "RelTime", Value: "0:00:00"},
		{Name: "AbsTime", Value: "0:00:00"},
		{Name: "RelCount", Value: "0"},
		{Name: "AbsCount", Value: "0"},
	}, nil
}

func (d *Device) handleGetMediaInfo(ctx context.Context, _ uint32, args []soap.Argument) ([]soap.Argument, error) {
	instanceID := parseInstanceID(args)
	d.mu.Lock()
	inst := d.instance(instanceID)
	numTracks, uri, uriMeta := inst.numTracks, inst.uri, inst.uriMeta
	d.mu.Unlock()
	return []soap.Argument{
		{Name: "NrTracks", Value: strconv.Itoa(numTracks)},
		{Name: "MediaDuration", Value: "0:00:00"},
		{Name: "CurrentURI", Value: uri},
		{Name: "CurrentURIMetaData", Value: uriMeta},
		{Name: "NextURI", Value: ""},
		{Name: "NextURIMetaData", Value: ""},
	}, nil
}
