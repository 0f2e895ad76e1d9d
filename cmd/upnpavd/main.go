// Command upnpavd hosts a Root Device exposing the four standard UPnP
// AV services (ContentDirectory, ConnectionManager, AVTransport,
// RenderingControl) over HTTP.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/google/uuid"

	"github.com/strefethen/upnp-av-go/internal/av/avtransport"
	"github.com/strefethen/upnp-av-go/internal/av/connectionmanager"
	"github.com/strefethen/upnp-av-go/internal/av/contentdirectory"
	"github.com/strefethen/upnp-av-go/internal/av/renderingcontrol"
	"github.com/strefethen/upnp-av-go/internal/config"
	"github.com/strefethen/upnp-av-go/internal/device"
	"github.com/strefethen/upnp-av-go/internal/rootdevice"
	"github.com/strefethen/upnp-av-go/internal/servicedevice"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	addr := cfg.RootDeviceHost + ":" + strconv.Itoa(cfg.RootDevicePort)
	udn := "uuid:" + uuid.NewString()

	rd, err := rootdevice.New(addr, "urn:schemas-upnp-org:device:MediaRenderer:1", cfg.FriendlyName, udn)
	if err != nil {
		log.Fatalf("root device init error: %v", err)
	}

	newSID := func() string { return uuid.NewString() }

	cd := contentdirectory.NewDevice()
	cdPub := rd.RegisterService(device.ServiceContentDirectory, "urn:upnp-org:serviceId:ContentDirectory", cd.Base(),
		contentDirectoryActions, contentDirectoryVariables, newSID)
	cd.NotifySystemUpdateID = func(updateID uint32) {
		cdPub.Publish(servicedevice.BuildChangeEvent(map[string]string{
			"SystemUpdateID": strconv.FormatUint(uint64(updateID), 10),
		}))
	}

	cm := connectionmanager.NewDevice(
		nil,
		[]connectionmanager.ProtocolInfo{{Protocol: "http-get", Network: "*", ContentFormat: "*", AdditionalInfo: "*"}},
	)
	rd.RegisterService(device.ServiceConnectionManager, "urn:upnp-org:serviceId:ConnectionManager", cm.Base(),
		connectionManagerActions, connectionManagerVariables, newSID)

	avt := avtransport.NewDevice(cfg.LastChangeMinInterval)
	avtPub := rd.RegisterService(device.ServiceAVTransport, "urn:upnp-org:serviceId:AVTransport", avt.Base(),
		avTransportActions, avTransportVariables, newSID)
	avt.NotifyLastChange = func(payload []byte) {
		avtPub.Publish(servicedevice.BuildChangeEvent(map[string]string{"LastChange": string(payload)}))
	}

	rcs := renderingcontrol.NewDevice(cfg.LastChangeMinInterval)
	rcsPub := rd.RegisterService(device.ServiceRenderingControl, "urn:upnp-org:serviceId:RenderingControl", rcs.Base(),
		renderingControlActions, renderingControlVariables, newSID)
	rcs.NotifyLastChange = func(payload []byte) {
		rcsPub.Publish(servicedevice.BuildChangeEvent(map[string]string{"LastChange": string(payload)}))
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-shutdownCh
		cancel()
	}()

	log.Printf("UPNP: upnpavd listening on %s (%s)", rd.Addr(), udn)
	if err := rd.Serve(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("UPNP: root device error: %v", err)
	}
}

var contentDirectoryActions = []string{
	"GetSearchCapabilities", "GetSortCapabilities", "GetSystemUpdateID", "Browse", "Search",
}

var contentDirectoryVariables = []device.StateVariable{
	{Name: "SystemUpdateID", DataType: "ui4", SendEvents: true},
	{Name: "ContainerUpdateIDs", DataType: "string", SendEvents: true},
	{Name: "SearchCapabilities", DataType: "string"},
	{Name: "SortCapabilities", DataType: "string"},
}

var connectionManagerActions = []string{
	"GetProtocolInfo", "GetCurrentConnectionIDs", "GetCurrentConnectionInfo",
}

var connectionManagerVariables = []device.StateVariable{
	{Name: "SourceProtocolInfo", DataType: "string", SendEvents: true},
	{Name: "SinkProtocolInfo", DataType: "string", SendEvents: true},
	{Name: "CurrentConnectionIDs", DataType: "string", SendEvents: true},
}

var avTransportActions = []string{
	"SetAVTransportURI", "Play", "Pause", "Stop", "Next", "Previous", "Seek",
	"GetTransportInfo", "GetPositionInfo", "GetMediaInfo",
}

var avTransportVariables = []device.StateVariable{
	{Name: "TransportState", DataType: "string"},
	{Name: "TransportStatus", DataType: "string"},
	{Name: "CurrentTrack", DataType: "ui4"},
	{Name: "LastChange", DataType: "string", SendEvents: true},
}

var renderingControlActions = []string{
	"GetVolume", "SetVolume", "GetMute", "SetMute", "ListPresets", "SelectPreset",
}

var renderingControlVariables = []device.StateVariable{
	{Name: "Volume", DataType: "ui2"},
	{Name: "Mute", DataType: "boolean"},
	{Name: "LastChange", DataType: "string", SendEvents: true},
}
