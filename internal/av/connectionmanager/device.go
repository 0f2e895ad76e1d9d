package connectionmanager

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/strefethen/upnp-av-go/internal/servicedevice"
	"github.com/strefethen/upnp-av-go/internal/soap"
	"github.com/strefethen/upnp-av-go/internal/upnperror"
)

// Device is the ConnectionManager:1 device half: it tracks the
// connections a renderer or server currently holds and answers the
// three required actions over a servicedevice.ServiceBase dispatcher.
type Device struct {
	base *servicedevice.ServiceBase

	mu          sync.Mutex
	source      []ProtocolInfo
	sink        []ProtocolInfo
	connections map[int32]*ConnectionInfo
}

// NewDevice constructs a ConnectionManager device advertising sink
// (for a renderer) and/or source (for a server) protocol info lists.
// A renderer with no media-serving capability passes a nil source.
func NewDevice(source, sink []ProtocolInfo) *Device {
	d := &Device{
		base:        servicedevice.NewServiceBase(),
		source:      source,
		sink:        sink,
		connections: make(map[int32]*ConnectionInfo),
	}
	d.base.Store.Set(0, "SourceProtocolInfo", formatProtocolInfoList(source))
	d.base.Store.Set(0, "SinkProtocolInfo", formatProtocolInfoList(sink))
	d.base.Store.Set(0, "CurrentConnectionIDs", "")

	d.base.OnAction("GetProtocolInfo", d.handleGetProtocolInfo)
	d.base.OnAction("GetCurrentConnectionIDs", d.handleGetCurrentConnectionIDs)
	d.base.OnAction("GetCurrentConnectionInfo", d.handleGetCurrentConnectionInfo)
	return d
}

// Base exposes the generic dispatcher for wiring into a root device's
// HTTP routes.
func (d *Device) Base() *servicedevice.ServiceBase { return d.base }

// AddConnection registers a new active connection, e.g. when a control
// point calls PrepareForConnection on a server-side implementation, or
// when a renderer begins playback via AVTransport.
func (d *Device) AddConnection(info ConnectionInfo) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connections[info.ConnectionID] = &info
	d.base.Store.Set(0, "CurrentConnectionIDs", formatIntCSV(d.connectionIDsLocked()))
}

// RemoveConnection drops a connection, e.g. on ConnectionComplete.
func (d *Device) RemoveConnection(connectionID int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.connections, connectionID)
	d.base.Store.Set(0, "CurrentConnectionIDs", formatIntCSV(d.connectionIDsLocked()))
}

func (d *Device) connectionIDsLocked() []int32 {
	ids := make([]int32, 0, len(d.connections))
	for id := range d.connections {
		ids = append(ids, id)
	}
	return ids
}

func (d *Device) handleGetProtocolInfo(ctx context.Context, instanceID uint32, args []soap.Argument) ([]soap.Argument, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return []soap.Argument{
		{Name: "Source", Value: formatProtocolInfoList(d.source)},
		{Name: "Sink", Value: formatProtocolInfoList(d.sink)},
	}, nil
}

func (d *Device) handleGetCurrentConnectionIDs(ctx context.Context, instanceID uint32, args []soap.Argument) ([]soap.Argument, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return []soap.Argument{{Name: "ConnectionIDs", Value: formatIntCSV(d.connectionIDsLocked())}}, nil
}

func (d *Device) handleGetCurrentConnectionInfo(ctx context.Context, instanceID uint32, args []soap.Argument) ([]soap.Argument, error) {
	var connID int32
	for _, a := range args {
		if a.Name == "ConnectionID" {
			connID = parseInt32(a.Value)
		}
	}

	d.mu.Lock()
	info, ok := d.connections[connID]
	d.mu.Unlock()
	if !ok {
		return nil, upnperror.NewUPnPError(upnperror.ErrorCode(706), "Invalid connection reference")
	}

	return []soap.Argument{
		{Name: "RcsID", Value: strconv.FormatInt(int64(info.RenderingControlServiceID), 10)},
		{Name: "AVTransportID", Value: strconv.FormatInt(int64(info.AVTransportID), 10)},
		{Name: "ProtocolInfo", Value: info.ProtocolInfo.String()},
		{Name: "PeerConnectionManager", Value: info.PeerConnectionManager},
		{Name: "PeerConnectionID", Value: strconv.FormatInt(int64(info.PeerConnectionID), 10)},
		{Name: "Direction", Value: info.Direction.String()},
		{Name: "Status", Value: info.ConnectionStatus.String()},
	}, nil
}

func formatProtocolInfoList(list []ProtocolInfo) string {
	parts := make([]string, len(list))
	for i, p := range list {
		parts[i] = p.String()
	}
	return strings.Join(parts, ",")
}

func formatIntCSV(ids []int32) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(int64(id), 10)
	}
	return strings.Join(parts, ",")
}
