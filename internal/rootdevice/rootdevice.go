// Package rootdevice implements the UPnP AV Root Device (spec.md §6):
// it owns the HTTP server, hosts the device description document and
// each service's SCPD, and routes POST (action), SUBSCRIBE and
// UNSUBSCRIBE requests to the bound service. Grounded on
// skunkie-dms/dlna/dms/dms.go for the mux-per-endpoint wiring style and
// on original_source/src/upnpdevice.cpp for the control/eventSub/SCPD
// path-per-service layout.
package rootdevice

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/strefethen/upnp-av-go/internal/device"
	"github.com/strefethen/upnp-av-go/internal/gena"
	"github.com/strefethen/upnp-av-go/internal/servicedevice"
	"github.com/strefethen/upnp-av-go/internal/soap"
	"github.com/strefethen/upnp-av-go/internal/transport"
)

// Binding is everything the root device needs to serve one registered
// service: its dispatcher, its GENA publisher, and its SCPD contents.
type Binding struct {
	ServiceType device.ServiceType
	ServiceID   string
	Base        *servicedevice.ServiceBase
	Publisher   *gena.Publisher
	Actions     []string
	Variables   []device.StateVariable
}

// RootDevice serves a device description document and dispatches
// every registered service's control/eventing endpoints at
// /<ServiceType>/{scpd.xml,control,event}.
type RootDevice struct {
	server       *transport.Server
	httpClient   *transport.Client
	deviceType   string
	friendlyName string
	udn          string
	bindings     map[device.ServiceType]*Binding
}

// New binds an HTTP server at addr (port 0 picks a free port) and
// registers the device description handler.
func New(addr, deviceType, friendlyName, udn string) (*RootDevice, error) {
	srv, err := transport.NewServer(addr, 15*time.Second, 15*time.Second)
	if err != nil {
		return nil, err
	}

	rd := &RootDevice{
		server:       srv,
		httpClient:   transport.NewClient(10 * time.Second),
		deviceType:   deviceType,
		friendlyName: friendlyName,
		udn:          udn,
		bindings:     make(map[device.ServiceType]*Binding),
	}
	rd.server.Handle("/description.xml", rd.handleDescription)
	return rd, nil
}

// Addr returns the bound address.
func (rd *RootDevice) Addr() string { return rd.server.Addr().String() }

// BaseURL returns the absolute URL other devices should resolve this
// root device's relative service paths against.
func (rd *RootDevice) BaseURL() string {
	return fmt.Sprintf("http://%s", rd.server.Addr().String())
}

// RegisterService binds a service's dispatcher at its conventional
// paths and returns the GENA publisher the caller uses to push
// NOTIFYs when the service's state changes.
func (rd *RootDevice) RegisterService(serviceType device.ServiceType, serviceID string, base *servicedevice.ServiceBase, actions []string, variables []device.StateVariable, newSID func() string) *gena.Publisher {
	pub := gena.NewPublisher(rd.httpClient, newSID)
	binding := &Binding{ServiceType: serviceType, ServiceID: serviceID, Base: base, Publisher: pub, Actions: actions, Variables: variables}
	rd.bindings[serviceType] = binding

	prefix := "/" + serviceType.String()
	rd.server.Handle(prefix+"/scpd.xml", rd.handleSCPD(binding))
	rd.server.Handle(prefix+"/control", rd.handleControl(binding))
	rd.server.Handle(prefix+"/event", rd.handleEvent(binding))
	return pub
}

// Serve runs the accept loop until ctx is cancelled.
func (rd *RootDevice) Serve(ctx context.Context) error { return rd.server.Serve(ctx) }

// Close shuts the server down immediately.
func (rd *RootDevice) Close() error { return rd.server.Close() }

func (rd *RootDevice) describedServices() []device.DescribedService {
	described := make([]device.DescribedService, 0, len(rd.bindings))
	for t, b := range rd.bindings {
		prefix := "/" + t.String()
		described = append(described, device.DescribedService{
			ServiceType:  t,
			ServiceID:    b.ServiceID,
			SCPDPath:     prefix + "/scpd.xml",
			ControlPath:  prefix + "/control",
			EventSubPath: prefix + "/event",
		})
	}
	return described
}

func (rd *RootDevice) handleDescription(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	data, err := device.BuildDeviceDescription(rd.deviceType, rd.friendlyName, rd.udn, rd.describedServices())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", `text/xml; charset="utf-8"`)
	_, _ = w.Write(data)
}

func (rd *RootDevice) handleSCPD(binding *Binding) transport.Handler {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", `text/xml; charset="utf-8"`)
		_, _ = w.Write(device.BuildSCPD(binding.Actions, binding.Variables))
	}
}

func (rd *RootDevice) handleControl(binding *Binding) transport.Handler {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		urn, actionName, ok := soap.ParseSOAPAction(r.Header.Get("SOAPAction"))
		if !ok {
			http.Error(w, "missing or malformed SOAPAction", http.StatusBadRequest)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "failed to read body", http.StatusBadRequest)
			return
		}

		parsed, err := soap.ParseAction(body)
		if err != nil {
			http.Error(w, "malformed SOAP envelope", http.StatusBadRequest)
			return
		}
		parsed.ActionName = actionName

		instanceID := instanceIDFromArgs(parsed.Args)
		out, fault := binding.Base.DispatchAction(r.Context(), instanceID, parsed)
		if fault != nil {
			w.Header().Set("Content-Type", `text/xml; charset="utf-8"`)
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write(soap.BuildFault(fault))
			return
		}

		w.Header().Set("Content-Type", `text/xml; charset="utf-8"`)
		_, _ = w.Write(soap.BuildActionResponse(urn, actionName, out))
	}
}

func (rd *RootDevice) handleEvent(binding *Binding) transport.Handler {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case "SUBSCRIBE":
			binding.Publisher.HandleSubscribe(w, r, func() []byte {
				return binding.Base.BuildInitialEvent(0)
			})
		case "UNSUBSCRIBE":
			binding.Publisher.HandleUnsubscribe(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func instanceIDFromArgs(args []soap.Argument) uint32 {
	for _, a := range args {
		if a.Name == "InstanceID" {
			var n uint32
			for _, ch := range a.Value {
				if ch < '0' || ch > '9' {
					return 0
				}
				n = n*10 + uint32(ch-'0')
			}
			return n
		}
	}
	return 0
}
