package renderingcontrol

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
		ServiceType:        device.ServiceRenderingControl,
		ActionFromString:   ActionFromString,
		ActionToString:     func(a Action) string { return a.String() },
		VariableFromString: VariableFromString,
		VariableToString:   func(v Variable) string { return v.String() },
	}
}

// Client is the RenderingControl:1 client half.
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

// OnVolumeChanged registers a callback invoked whenever an event
// carries Volume as a top-level property. A Volume inside a LastChange
// payload is not decoded, and the callback always receives instance 0
// and ChannelMaster.
func (c *Client) OnVolumeChanged(cb func(instanceID uint32, channel Channel, volume int)) {
	c.base.OnEvent = func(changed Variable, vars map[Variable]string) {
		if v, ok := vars[VarVolume]; ok {
			vol, _ := strconv.Atoi(v)
			cb(0, ChannelMaster, vol)
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

func (c *Client) GetVolume(ctx context.Context, instanceID uint32, channel Channel) (int, error) {
	out, err := c.base.ExecuteAction(ctx, ActionGetVolume, []soap.Argument{
		{Name: "InstanceID", Value: strconv.FormatUint(uint64(instanceID), 10)},
		{Name: "Channel", Value: string(channel)},
	})
	if err != nil {
		return 0, err
	}
	for _, a := range out {
		if a.Name == "CurrentVolume" {
			v, _ := strconv.Atoi(a.Value)
			return v, nil
		}
	}
	return 0, nil
}

func (c *Client) SetVolume(ctx context.Context, instanceID uint32, channel Channel, volume int) error {
	_, err := c.base.ExecuteAction(ctx, ActionSetVolume, []soap.Argument{
		{Name: "InstanceID", Value: strconv.FormatUint(uint64(instanceID), 10)},
		{Name: "Channel", Value: string(channel)},
		{Name: "DesiredVolume", Value: strconv.Itoa(volume)},
	})
	return err
}

func (c *Client) GetMute(ctx context.Context, instanceID uint32, channel Channel) (bool, error) {
	out, err := c.base.ExecuteAction(ctx, ActionGetMute, []soap.Argument{
		{Name: "InstanceID", Value: strconv.FormatUint(uint64(instanceID), 10)},
		{Name: "Channel", Value: string(channel)},
	})
	if err != nil {
		return false, err
	}
	for _, a := range out {
		if a.Name == "CurrentMute" {
			return a.Value == "1", nil
		}
	}
	return false, nil
}

func (c *Client) SetMute(ctx context.Context, instanceID uint32, channel Channel, mute bool) error {
	value := "0"
	if mute {
		value = "1"
	}
	_, err := c.base.ExecuteAction(ctx, ActionSetMute, []soap.Argument{
		{Name: "InstanceID", Value: strconv.FormatUint(uint64(instanceID), 10)},
		{Name: "Channel", Value: string(channel)},
		{Name: "DesiredMute", Value: value},
	})
	return err
}
