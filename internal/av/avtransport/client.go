package avtransport

import (
	"context"
	"strconv"

	"github.com/strefethen/upnp-av-go/internal/device"
	"github.com/strefethen/upnp-av-go/internal/gena"
	"github.com/strefethen/upnp-av-go/internal/service"
	"github.com/strefethen/upnp-av-go/internal/soap"
	"github.com/strefethen/upnp-av-go/internal/transport"
)

func traits() service.Traits[Action, Variable] {
	return service.Traits[Action, Variable]{
		ServiceType:        device.ServiceAVTransport,
		ActionFromString:   ActionFromString,
		ActionToString:     func(a Action) string { return a.String() },
		VariableFromString: VariableFromString,
		VariableToString:   func(v Variable) string { return v.String() },
	}
}

// Client is the AVTransport:1 client half.
type Client struct {
	base *service.ClientBase[Action, Variable]
}

func NewClient(httpClient *transport.Client, callbackURLFunc func() string, requestedTimeoutSec int, renewalFraction float64) *Client {
	return &Client{base: service.NewClientBase(traits(), httpClient, callbackURLFunc, requestedTimeoutSec, renewalFraction)}
}

func (c *Client) SetDevice(ctx context.Context, dev *device.Device) error {
	return c.base.SetDevice(ctx, dev)
}

func (c *Client) Subscribe(ctx context.Context) error   { return c.base.Subscribe(ctx) }
func (c *Client) Unsubscribe(ctx context.Context) error { return c.base.Unsubscribe(ctx) }

// HandleNotify decodes a received NOTIFY's body and runs the
// registered event callbacks; wire this as a gena.NotifyCallback.
func (c *Client) HandleNotify(evt gena.NotifyEvent) error { return c.base.HandleNotify(evt) }

// OnTransportStateChanged registers a callback invoked when an event
// carries TransportState as a top-level property. A TransportState
// inside a LastChange payload is not decoded, and instanceID is always
// reported as 0.
func (c *Client) OnTransportStateChanged(cb func(instanceID uint32, state TransportState)) {
	c.base.OnEvent = func(changed Variable, vars map[Variable]string) {
		if v, ok := vars[VarTransportState]; ok {
			cb(0, TransportState(v))
		}
	}
}

// OnAnyVariableChanged registers a callback invoked with every
// variable carried by an event, named as their wire strings.
func (c *Client) OnAnyVariableChanged(cb func(vars map[string]string)) {
	c.base.OnEvent = func(changed Variable, vars map[Variable]string) {
		named := make(map[string]string, len(vars))
		for v, value := range vars {
			named[v.String()] = value
		}
		cb(named)
	}
}

func instanceArg(instanceID uint32) soap.Argument {
	return soap.Argument{Name: "InstanceID", Value: strconv.FormatUint(uint64(instanceID), 10)}
}

func (c *Client) SetAVTransportURI(ctx context.Context, instanceID uint32, uri, metadata string) error {
	_, err := c.base.ExecuteAction(ctx, ActionSetAVTransportURI, []soap.Argument{
		instanceArg(instanceID),
		{Name: "CurrentURI", Value: uri},
		{Name: "CurrentURIMetaData", Value: metadata},
	})
	return err
}

func (c *Client) Play(ctx context.Context, instanceID uint32, speed string) error {
	if speed == "" {
		speed = "1"
	}
	_, err := c.base.ExecuteAction(ctx, ActionPlay, []soap.Argument{instanceArg(instanceID), {Name: "Speed", Value: speed}})
	return err
}

func (c *Client) Pause(ctx context.Context, instanceID uint32) error {
	_, err := c.base.ExecuteAction(ctx, ActionPause, []soap.Argument{instanceArg(instanceID)})
	return err
}

func (c *Client) Stop(ctx context.Context, instanceID uint32) error {
	_, err := c.base.ExecuteAction(ctx, ActionStop, []soap.Argument{instanceArg(instanceID)})
	return err
}

func (c *Client) Next(ctx context.Context, instanceID uint32) error {
	_, err := c.base.ExecuteAction(ctx, ActionNext, []soap.Argument{instanceArg(instanceID)})
	return err
}

func (c *Client) Previous(ctx context.Context, instanceID uint32) error {
	_, err := c.base.ExecuteAction(ctx, ActionPrevious, []soap.Argument{instanceArg(instanceID)})
	return err
}

func (c *Client) Seek(ctx context.Context, instanceID uint32, unit, target string) error {
	_, err := c.base.ExecuteAction(ctx, ActionSeek, []soap.Argument{
		instanceArg(instanceID),
		{Name: "Unit", Value: unit},
		{Name: "Target", Value: target},
	})
	return err
}

func (c *Client) GetTransportInfo(ctx context.Context, instanceID uint32) (*TransportInfo, error) {
	out, err := c.base.ExecuteAction(ctx, ActionGetTransportInfo, []soap.Argument{instanceArg(instanceID)})
	if err != nil {
		return nil, err
	}
	info := &TransportInfo{}
	for _, a := range out {
		switch a.Name {
		case "CurrentTransportState":
			info.State = TransportState(a.Value)
		case "CurrentTransportStatus":
			info.Status = a.Value
		case "CurrentSpeed":
			info.Speed = a.Value
		}
	}
	return info, nil
}

func (c *Client) GetPositionInfo(ctx context.Context, instanceID uint32) (*PositionInfo, error) {
	out, err := c.base.ExecuteAction(ctx, ActionGetPositionInfo, []soap.Argument{instanceArg(instanceID)})
	if err != nil {
		return nil, err
	}
	info := &PositionInfo{}
	for _, a := range out {
		switch a.Name {
		case "Track":
			info.Track, _ = strconv.Atoi(a.Value)
		case "TrackDuration":
			info.TrackDuration = a.Value
		case "TrackMetaData":
			info.TrackMetaData = a.Value
		case "TrackURI":
			info.TrackURI = a.Value
		case "RelTime":
			info.RelTime = a.Value
		case "AbsTime":
			info.AbsTime = a.Value
		case "RelCount":
			info.RelCount, _ = strconv.Atoi(a.Value)
		case "AbsCount":
			info.AbsCount, _ = strconv.Atoi(a.Value)
		}
	}
	return info, nil
}

func (c *Client) GetMediaInfo(ctx context.Context, instanceID uint32) (*MediaInfo, error) {
	out, err := c.base.ExecuteAction(ctx, ActionGetMediaInfo, []soap.Argument{instanceArg(instanceID)})
	if err != nil {
		return nil, err
	}
	info := &MediaInfo{}
	for _, a := range out {
		switch a.Name {
		case "NrTracks":
			info.NumberOfTracks, _ = strconv.Atoi(a.Value)
		case "MediaDuration":
			info.MediaDuration = a.Value
		case "CurrentURI":
			info.CurrentURI = a.Value
		case "CurrentURIMetaData":
			info.CurrentURIMetaData = a.Value
		case "NextURI":
			info.NextURI = a.Value
		case "NextURIMetaData":
			info.NextURIMetaData = a.Value
		}
	}
	return info, nil
}
