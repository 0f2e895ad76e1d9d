// Package servicedevice implements the generic Service Device Base
// (spec.md §4.6): a per-instance state-variable store, action dispatch
// through a caller-supplied handler, and subscription-response and
// NOTIFY-body generation. It also hosts the LastChange aggregator
// (spec.md §4.6, original_source/inc/upnp/upnp.lastchangevariable.h)
// shared by AVTransport and RenderingControl.
package servicedevice

import (
	"context"
	"sync"

	"github.com/strefethen/upnp-av-go/internal/gena"
	"github.com/strefethen/upnp-av-go/internal/soap"
	"github.com/strefethen/upnp-av-go/internal/upnperror"
)

// ActionHandler executes one action call against instance state and
// returns its out-arguments, or a *upnperror.UPnPError fault.
type ActionHandler func(ctx context.Context, instanceID uint32, args []soap.Argument) ([]soap.Argument, error)

// VariableStore holds the per-instance evented state variables of one
// service, guarded by a mutex the way a real device shares state
// between the action dispatcher and the eventing path.
type VariableStore struct {
	mu     sync.RWMutex
	values map[uint32]map[string]string
}

func NewVariableStore() *VariableStore {
	return &VariableStore{values: make(map[uint32]map[string]string)}
}

// Get returns the current value of a variable for an instance, and
// whether it has ever been set.
func (s *VariableStore) Get(instanceID uint32, name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.values[instanceID]
	if !ok {
		return "", false
	}
	v, ok := inst[name]
	return v, ok
}

// Set assigns a variable's value for an instance.
func (s *VariableStore) Set(instanceID uint32, name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.values[instanceID]
	if !ok {
		inst = make(map[string]string)
		s.values[instanceID] = inst
	}
	inst[name] = value
}

// Snapshot returns a copy of every variable currently set for an
// instance, used to build the initial NOTIFY sent after a new
// subscription (spec.md §4.7 "Root Device": "sends initial NOTIFY
// (seq 0) after subscribe response").
func (s *VariableStore) Snapshot(instanceID uint32) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string)
	for k, v := range s.values[instanceID] {
		out[k] = v
	}
	return out
}

// ServiceBase dispatches incoming action requests to a registered
// handler and builds the property-set payloads GENA sends out.
type ServiceBase struct {
	Store    *VariableStore
	handlers map[string]ActionHandler
	mu       sync.RWMutex
}

func NewServiceBase() *ServiceBase {
	return &ServiceBase{Store: NewVariableStore(), handlers: make(map[string]ActionHandler)}
}

// OnAction registers the handler invoked for a named action.
func (s *ServiceBase) OnAction(name string, handler ActionHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[name] = handler
}

// DispatchAction runs the handler registered for a parsed action
// request, translating any error into a UPnPError fault (spec.md
// §4.6: "any other exception produces 500 / ActionFailed (501)").
func (s *ServiceBase) DispatchAction(ctx context.Context, instanceID uint32, action *soap.ParsedAction) ([]soap.Argument, *upnperror.UPnPError) {
	s.mu.RLock()
	handler, ok := s.handlers[action.ActionName]
	s.mu.RUnlock()
	if !ok {
		return nil, upnperror.NewUPnPError(upnperror.InvalidAction, "Invalid Action")
	}

	out, err := handler(ctx, instanceID, action.Args)
	if err != nil {
		return nil, upnperror.AsUPnPError(err)
	}
	return out, nil
}

// BuildInitialEvent builds the <e:propertyset> NOTIFY body sent right
// after a subscription is accepted, containing every evented variable
// currently set for the instance.
func (s *ServiceBase) BuildInitialEvent(instanceID uint32) []byte {
	snapshot := s.Store.Snapshot(instanceID)
	props := make([]gena.Property, 0, len(snapshot))
	for name, value := range snapshot {
		props = append(props, gena.Property{Name: name, Value: value})
	}
	return gena.BuildPropertySet(props)
}

// BuildChangeEvent builds a NOTIFY body carrying only the variables
// that changed, for services that event variable-by-variable instead
// of through a LastChange aggregate.
func BuildChangeEvent(changed map[string]string) []byte {
	props := make([]gena.Property, 0, len(changed))
	for name, value := range changed {
		props = append(props, gena.Property{Name: name, Value: value})
	}
	return gena.BuildPropertySet(props)
}
