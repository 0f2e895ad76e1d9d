// Package service implements the generic Service Client Base (spec.md
// §4.5): device binding, subscribe/renew/unsubscribe with a 75%
// renewal timer, supported-action tracking from a service's SCPD, and
// the event pipeline that turns a GENA NOTIFY into typed state
// variable updates.
//
// Grounded on original_source/inc/upnp/upnp.serviceclientbase.h's
// ServiceClientBase<Traits> template: a Traits bundle supplies the
// service-type tag and the action/variable string conversions a
// concrete AV service defines, so this package stays generic over
// them using Go generics instead of C++ template parameters.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/strefethen/upnp-av-go/internal/device"
	"github.com/strefethen/upnp-av-go/internal/gena"
	"github.com/strefethen/upnp-av-go/internal/soap"
	"github.com/strefethen/upnp-av-go/internal/transport"
	"github.com/strefethen/upnp-av-go/internal/upnperror"
)

// Traits bundles the per-service constants and string conversions a
// concrete AV service (ContentDirectory, AVTransport, ...) supplies so
// ClientBase can stay generic: the service-type tag, and bidirectional
// string conversions for its action and state-variable enums.
type Traits[A comparable, V comparable] struct {
	ServiceType         device.ServiceType
	ActionFromString    func(string) (A, bool)
	ActionToString      func(A) string
	VariableFromString  func(string) (V, bool)
	VariableToString    func(V) string
}

// ClientBase is the generic client half of a UPnP AV service: it binds
// to a Device's advertised service, tracks which actions the SCPD
// supports, executes actions over SOAP, and maintains a GENA
// subscription with self-renewal.
type ClientBase[A comparable, V comparable] struct {
	traits Traits[A, V]

	httpClient *transport.Client
	invoker    *soap.Invoker
	subClient  *gena.SubscribeClient

	callbackURLFunc        func() string
	requestedTimeoutSec    int
	renewalFraction        float64

	// Hook lets a concrete service observe every state variable event
	// before it is republished, the Go analogue of the template's
	// protected virtual handleStateVariableEvent.
	Hook func(changed V, vars map[V]string)
	// OnEvent is the public subscriber callback, the analogue of the
	// template's StateVariableEvent signal.
	OnEvent func(changed V, vars map[V]string)
	// OnSubscriptionLost is called when a self-renewal attempt fails;
	// the subscription is not retried, matching spec.md §4.5/§7 "the
	// subscription is marked lost ... reported via the subscription's
	// state-change channel".
	OnSubscriptionLost func(err error)

	mu               sync.Mutex
	svc              device.Service
	scpd             *device.SCPD
	supportedActions map[A]bool

	subMu          sync.Mutex
	subscriptionID string
	renewTimer     *time.Timer
}

// NewClientBase constructs a client bound to no device yet; call
// SetDevice before executing actions or subscribing.
func NewClientBase[A comparable, V comparable](traits Traits[A, V], httpClient *transport.Client, callbackURLFunc func() string, requestedTimeoutSec int, renewalFraction float64) *ClientBase[A, V] {
	return &ClientBase[A, V]{
		traits:              traits,
		httpClient:          httpClient,
		invoker:             soap.NewInvoker(httpClient),
		subClient:           gena.NewSubscribeClient(httpClient),
		callbackURLFunc:     callbackURLFunc,
		requestedTimeoutSec: requestedTimeoutSec,
		renewalFraction:     renewalFraction,
		supportedActions:    make(map[A]bool),
	}
}

// SetDevice binds to device's advertised service of this client's
// type, fetching and parsing its SCPD to learn the supported action
// set (spec.md §4.5 "setDevice").
func (c *ClientBase[A, V]) SetDevice(ctx context.Context, dev *device.Device) error {
	svc, ok := dev.Services[c.traits.ServiceType]
	if !ok {
		return fmt.Errorf("device does not implement service %s", c.traits.ServiceType)
	}

	resp, err := c.httpClient.Do(ctx, transport.Request{Method: "GET", URL: svc.SCPDURL})
	if err != nil {
		return err
	}
	if resp.Status != 200 {
		return &upnperror.InvalidResponseError{Reason: fmt.Sprintf("scpd fetch failed with status %d", resp.Status)}
	}

	scpd, err := device.ParseSCPD(resp.Body)
	if err != nil {
		return err
	}

	supported := make(map[A]bool)
	for name := range scpd.Actions {
		if a, ok := c.traits.ActionFromString(name); ok {
			supported[a] = true
		}
	}

	c.mu.Lock()
	c.svc = svc
	c.scpd = scpd
	c.supportedActions = supported
	c.mu.Unlock()

	return nil
}

// SupportsAction reports whether the bound service's SCPD advertises
// the given action.
func (c *ClientBase[A, V]) SupportsAction(action A) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.supportedActions[action]
}

// ExecuteAction invokes action with args against the bound service's
// control URL and returns the decoded out-arguments.
func (c *ClientBase[A, V]) ExecuteAction(ctx context.Context, action A, args []soap.Argument) ([]soap.Argument, error) {
	c.mu.Lock()
	svc := c.svc
	c.mu.Unlock()

	if svc.ControlURL == "" {
		return nil, fmt.Errorf("client not bound to a device")
	}

	urn, err := c.traits.ServiceType.URN()
	if err != nil {
		return nil, err
	}

	return c.invoker.Call(ctx, svc.ControlURL, urn, c.traits.ActionToString(action), args)
}

// Subscribe issues a SUBSCRIBE request for this service's event URL
// and schedules self-renewal at renewalFraction of the granted
// lifetime (spec.md §4.5 default 75%).
func (c *ClientBase[A, V]) Subscribe(ctx context.Context) error {
	c.mu.Lock()
	eventURL := c.svc.EventSubURL
	c.mu.Unlock()
	if eventURL == "" {
		return fmt.Errorf("client not bound to a device")
	}

	sid, timeoutSec, err := c.subClient.Subscribe(ctx, eventURL, c.callbackURLFunc(), c.requestedTimeoutSec)
	if err != nil {
		return err
	}

	c.subMu.Lock()
	c.subscriptionID = sid
	c.scheduleRenewal(eventURL, timeoutSec)
	c.subMu.Unlock()

	return nil
}

// scheduleRenewal must be called with subMu held.
func (c *ClientBase[A, V]) scheduleRenewal(eventURL string, timeoutSec int) {
	if c.renewTimer != nil {
		c.renewTimer.Stop()
	}
	if timeoutSec == gena.InfiniteTimeout {
		return
	}
	delay := gena.RenewalDelay(time.Duration(timeoutSec)*time.Second, c.renewalFraction)
	c.renewTimer = time.AfterFunc(delay, func() { c.renew(eventURL, timeoutSec) })
}

func (c *ClientBase[A, V]) renew(eventURL string, previousTimeoutSec int) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c.subMu.Lock()
	sid := c.subscriptionID
	c.subMu.Unlock()
	if sid == "" {
		return
	}

	newTimeout, err := c.subClient.Renew(ctx, eventURL, sid, previousTimeoutSec)
	if err != nil {
		c.subMu.Lock()
		c.subscriptionID = ""
		c.subMu.Unlock()
		if c.OnSubscriptionLost != nil {
			c.OnSubscriptionLost(err)
		}
		return
	}

	c.subMu.Lock()
	c.scheduleRenewal(eventURL, newTimeout)
	c.subMu.Unlock()
}

// Unsubscribe cancels the renewal timer and sends UNSUBSCRIBE.
func (c *ClientBase[A, V]) Unsubscribe(ctx context.Context) error {
	c.mu.Lock()
	eventURL := c.svc.EventSubURL
	c.mu.Unlock()

	c.subMu.Lock()
	sid := c.subscriptionID
	if c.renewTimer != nil {
		c.renewTimer.Stop()
		c.renewTimer = nil
	}
	c.subscriptionID = ""
	c.subMu.Unlock()

	if sid == "" || eventURL == "" {
		return nil
	}
	return c.subClient.Unsubscribe(ctx, eventURL, sid)
}

// HandleNotify decodes a GENA NOTIFY payload's raw body into this
// service's variable type, runs the subclass Hook (if set), then
// republishes via OnEvent (spec.md §4.5 "event pipeline"). Decoding
// lives here rather than in the transport: a NOTIFY whose body isn't a
// parseable propertyset still got a 200 OK from the event server, so
// that failure is reported to the caller instead of silently dropped.
func (c *ClientBase[A, V]) HandleNotify(evt gena.NotifyEvent) error {
	properties, err := gena.ParsePropertySet(evt.Data)
	if err != nil {
		return err
	}

	vars := make(map[V]string, len(properties))
	var last V
	for _, p := range properties {
		v, ok := c.traits.VariableFromString(p.Name)
		if !ok {
			continue
		}
		vars[v] = p.Value
		last = v
	}

	if c.Hook != nil {
		c.Hook(last, vars)
	}
	if c.OnEvent != nil {
		c.OnEvent(last, vars)
	}
	return nil
}
