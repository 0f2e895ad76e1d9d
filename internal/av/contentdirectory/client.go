package contentdirectory

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
		ServiceType:        device.ServiceContentDirectory,
		ActionFromString:   ActionFromString,
		ActionToString:     func(a Action) string { return a.String() },
		VariableFromString: VariableFromString,
		VariableToString:   func(v Variable) string { return v.String() },
	}
}

// Client is the ContentDirectory:1 client half.
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

// OnSystemUpdateIDChanged registers a callback invoked whenever a
// LastChange-free NOTIFY carries a new SystemUpdateID.
func (c *Client) OnSystemUpdateIDChanged(cb func(updateID uint32)) {
	c.base.OnEvent = func(changed Variable, vars map[Variable]string) {
		if v, ok := vars[VarSystemUpdateID]; ok {
			n, _ := strconv.ParseUint(v, 10, 32)
			cb(uint32(n))
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

func (c *Client) GetSearchCapabilities(ctx context.Context) (string, error) {
	out, err := c.base.ExecuteAction(ctx, ActionGetSearchCapabilities, nil)
	if err != nil {
		return "", err
	}
	return firstArg(out, "SearchCaps"), nil
}

func (c *Client) GetSortCapabilities(ctx context.Context) (string, error) {
	out, err := c.base.ExecuteAction(ctx, ActionGetSortCapabilities, nil)
	if err != nil {
		return "", err
	}
	return firstArg(out, "SortCaps"), nil
}

func (c *Client) GetSystemUpdateID(ctx context.Context) (uint32, error) {
	out, err := c.base.ExecuteAction(ctx, ActionGetSystemUpdateID, nil)
	if err != nil {
		return 0, err
	}
	n, _ := strconv.ParseUint(firstArg(out, "Id"), 10, 32)
	return uint32(n), nil
}

func (c *Client) Browse(ctx context.Context, objectID string, flag BrowseFlag, filter string, startingIndex, requestedCount uint32, sortCriteria string) (*BrowseResult, error) {
	out, err := c.base.ExecuteAction(ctx, ActionBrowse, []soap.Argument{
		{Name: "ObjectID", Value: objectID},
		{Name: "BrowseFlag", Value: flag.String()},
		{Name: "Filter", Value: filter},
		{Name: "StartingIndex", Value: strconv.FormatUint(uint64(startingIndex), 10)},
		{Name: "RequestedCount", Value: strconv.FormatUint(uint64(requestedCount), 10)},
		{Name: "SortCriteria", Value: sortCriteria},
	})
	if err != nil {
		return nil, err
	}
	return decodeBrowseResult(out)
}

func (c *Client) Search(ctx context.Context, containerID, searchCriteria, filter string, startingIndex, requestedCount uint32, sortCriteria string) (*BrowseResult, error) {
	out, err := c.base.ExecuteAction(ctx, ActionSearch, []soap.Argument{
		{Name: "ContainerID", Value: containerID},
		{Name: "SearchCriteria", Value: searchCriteria},
		{Name: "Filter", Value: filter},
		{Name: "StartingIndex", Value: strconv.FormatUint(uint64(startingIndex), 10)},
		{Name: "RequestedCount", Value: strconv.FormatUint(uint64(requestedCount), 10)},
		{Name: "SortCriteria", Value: sortCriteria},
	})
	if err != nil {
		return nil, err
	}
	return decodeBrowseResult(out)
}

func decodeBrowseResult(out []soap.Argument) (*BrowseResult, error) {
	result := &BrowseResult{}
	for _, a := range out {
		switch a.Name {
		case "Result":
			items, err := ParseDIDLLite([]byte(a.Value))
			if err != nil {
				return nil, err
			}
			result.Items = items
		case "NumberReturned":
			n, _ := strconv.ParseUint(a.Value, 10, 32)
			result.NumberReturned = uint32(n)
		case "TotalMatches":
			n, _ := strconv.ParseUint(a.Value, 10, 32)
			result.TotalMatches = uint32(n)
		case "UpdateID":
			n, _ := strconv.ParseUint(a.Value, 10, 32)
			result.UpdateID = uint32(n)
		}
	}
	return result, nil
}

func firstArg(args []soap.Argument, name string) string {
	for _, a := range args {
		if a.Name == name {
			return a.Value
		}
	}
	return ""
}
