package gena

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/strefethen/upnp-av-go/internal/transport"
)

// NotifyEvent is the payload handed to the single callback a
// subscriber registers, mirroring the SubscriptionEvent{sid, sequence,
// data} shape the teacher's events/callback.go builds before dispatch.
// Data is the NOTIFY body exactly as received; decoding it into typed
// properties is the event pipeline's job (service.ClientBase.HandleNotify),
// not the transport's — a NOTIFY is accepted with 200 OK as long as its
// headers are well-formed, regardless of whether the body happens to be
// a parseable propertyset.
type NotifyEvent struct {
	SID      string
	Sequence int
	Data     []byte
}

// NotifyCallback is invoked once per well-formed NOTIFY request.
type NotifyCallback func(NotifyEvent)

// EventServer is the embedded HTTP server a subscriber runs to receive
// NOTIFY requests on its callback URL (spec.md §4.4: start/stop/
// get_address lifecycle, single registered callback).
type EventServer struct {
	server   *transport.Server
	callback NotifyCallback
}

// NewEventServer binds an HTTP server at addr (port 0 picks a free
// port) and registers path to receive NOTIFY requests, delivering each
// one to cb.
func NewEventServer(addr, path string, cb NotifyCallback) (*EventServer, error) {
	srv, err := transport.NewServer(addr, 0, 0)
	if err != nil {
		return nil, err
	}
	es := &EventServer{server: srv, callback: cb}
	srv.Handle(path, es.handleNotify)
	return es, nil
}

// Addr returns the bound address, used to compose the CALLBACK header
// sent on SUBSCRIBE.
func (es *EventServer) Addr() string {
	return es.server.Addr().String()
}

// Start runs the accept loop in the background until ctx is cancelled.
func (es *EventServer) Start(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() { done <- es.server.Serve(ctx) }()
	return done
}

// Stop closes the event server immediately.
func (es *EventServer) Stop() error {
	return es.server.Close()
}

// handleNotify accepts a NOTIFY with 200 OK whenever its headers are
// well-formed, delivering the raw body regardless of its contents.
// Any header deviation is rejected with 400 Bad Request, not a more
// specific status — spec.md §4.4 "any deviation" gets the same code.
func (es *EventServer) handleNotify(w http.ResponseWriter, r *http.Request) {
	if r.Method != "NOTIFY" {
		http.Error(w, "method not allowed", http.StatusBadRequest)
		return
	}

	sid := r.Header.Get("SID")
	nt := r.Header.Get("NT")
	nts := r.Header.Get("NTS")
	if sid == "" || nt != "upnp:event" || nts != "upnp:propchange" {
		http.Error(w, "malformed NOTIFY headers", http.StatusBadRequest)
		return
	}

	seq, err := strconv.Atoi(r.Header.Get("SEQ"))
	if err != nil {
		http.Error(w, "malformed NOTIFY headers", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	// Every well-formed NOTIFY is delivered regardless of sequence gaps
	// or the parseability of its body: the spec leaves gap detection and
	// property decoding to the caller, not the transport.
	if es.callback != nil {
		es.callback(NotifyEvent{SID: sid, Sequence: seq, Data: body})
	}

	w.WriteHeader(http.StatusOK)
}
