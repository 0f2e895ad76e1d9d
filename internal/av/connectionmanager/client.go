package connectionmanager

import (
	"context"
	"strconv"
	"strings"

	"github.com/strefethen/upnp-av-go/internal/device"
	"github.com/strefethen/upnp-av-go/internal/service"
	"github.com/strefethen/upnp-av-go/internal/soap"
	"github.com/strefethen/upnp-av-go/internal/transport"
)

func traits() service.Traits[Action, Variable] {
	return service.Traits[Action, Variable]{
		ServiceType:        device.ServiceConnectionManager,
		ActionFromString:   ActionFromString,
		ActionToString:     func(a Action) string { return a.String() },
		VariableFromString: VariableFromString,
		VariableToString:   func(v Variable) string { return v.String() },
	}
}

// Client is the ConnectionManager:1 client half.
type Client struct {
	base *service.ClientBase[Action, Variable]
}

// NewClient constructs a ConnectionManager client that will use
// callbackURLFunc() as its GENA CALLBACK header when subscribing.
func NewClient(httpClient *transport.Client, callbackURLFunc func() string, requestedTimeoutSec int, renewalFraction float64) *Client {
	return &Client{base: service.NewClientBase(traits(), httpClient, callbackURLFunc, requestedTimeoutSec, renewalFraction)}
}

func (c *Client) SetDevice(ctx context.Context, dev *device.Device) error {
	return c.base.SetDevice(ctx, dev)
}

func (c *Client) Subscribe(ctx context.Context) error   { return c.base.Subscribe(ctx) }
func (c *Client) Unsubscribe(ctx context.Context) error { return c.base.Unsubscribe(ctx) }

// GetProtocolInfo returns the source and sink protocol info lists.
func (c *Client) GetProtocolInfo(ctx context.Context) (source, sink []ProtocolInfo, err error) {
	out, err := c.base.ExecuteAction(ctx, ActionGetProtocolInfo, nil)
	if err != nil {
		return nil, nil, err
	}
	for _, a := range out {
		switch a.Name {
		case "Source":
			source = parseProtocolInfoList(a.Value)
		case "Sink":
			sink = parseProtocolInfoList(a.Value)
		}
	}
	return source, sink, nil
}

// GetCurrentConnectionIDs returns the active connection IDs.
func (c *Client) GetCurrentConnectionIDs(ctx context.Context) ([]int32, error) {
	out, err := c.base.ExecuteAction(ctx, ActionGetCurrentConnectionIDs, nil)
	if err != nil {
		return nil, err
	}
	for _, a := range out {
		if a.Name == "ConnectionIDs" {
			return parseIntCSV(a.Value), nil
		}
	}
	return nil, nil
}

// GetCurrentConnectionInfo returns the full connection state for a
// connection ID previously returned by GetCurrentConnectionIDs.
func (c *Client) GetCurrentConnectionInfo(ctx context.Context, connectionID int32) (*ConnectionInfo, error) {
	out, err := c.base.ExecuteAction(ctx, ActionGetCurrentConnectionInfo, []soap.Argument{
		{Name: "ConnectionID", Value: strconv.FormatInt(int64(connectionID), 10)},
	})
	if err != nil {
		return nil, err
	}

	info := &ConnectionInfo{ConnectionID: connectionID}
	for _, a := range out {
		switch a.Name {
		case "RcsID":
			info.RenderingControlServiceID = parseInt32(a.Value)
		case "AVTransportID":
			info.AVTransportID = parseInt32(a.Value)
		case "ProtocolInfo":
			if pis := parseProtocolInfoList(a.Value); len(pis) > 0 {
				info.ProtocolInfo = pis[0]
			}
		case "PeerConnectionManager":
			info.PeerConnectionManager = a.Value
		case "PeerConnectionID":
			info.PeerConnectionID = parseInt32(a.Value)
		case "Direction":
			if a.Value == "Output" {
				info.Direction = DirectionOutput
			} else {
				info.Direction = DirectionInput
			}
		case "Status":
			info.ConnectionStatus = connectionStatusFromString(a.Value)
		}
	}
	return info, nil
}

func parseProtocolInfoList(csv string) []ProtocolInfo {
	if csv == "" {
		return nil
	}
	var out []ProtocolInfo
	for _, entry := range strings.Split(csv, ",") {
		parts := strings.SplitN(entry, ":", 4)
		if len(parts) != 4 {
			continue
		}
		out = append(out, ProtocolInfo{Protocol: parts[0], Network: parts[1], ContentFormat: parts[2], AdditionalInfo: parts[3]})
	}
	return out
}

func parseIntCSV(csv string) []int32 {
	if csv == "" {
		return nil
	}
	var out []int32
	for _, entry := range strings.Split(csv, ",") {
		out = append(out, parseInt32(strings.TrimSpace(entry)))
	}
	return out
}

func parseInt32(s string) int32 {
	n, _ := strconv.ParseInt(s, 10, 32)
	return int32(n)
}

func connectionStatusFromString(s string) ConnectionStatus {
	switch s {
	case "OK":
		return ConnectionStatusOK
	case "ContentFormatMismatch":
		return ConnectionStatusContentFormatMismatch
	case "InsufficientBandwidth":
		return ConnectionStatusInsufficientBandwidth
	case "UnreliableChannel":
		return ConnectionStatusUnreliableChannel
	default:
		return ConnectionStatusUnknown
	}
}
