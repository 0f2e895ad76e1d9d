package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strefethen/upnp-av-go/internal/device"
	"github.com/strefethen/upnp-av-go/internal/gena"
	"github.com/strefethen/upnp-av-go/internal/soap"
	"github.com/strefethen/upnp-av-go/internal/transport"
)

type testAction int

const (
	actionPlay testAction = iota
	actionPause
)

type testVariable int

const (
	varTransportState testVariable = iota
	varCurrentTrack
)

func testTraits() Traits[testAction, testVariable] {
	return Traits[testAction, testVariable]{
		ServiceType: device.ServiceAVTransport,
		ActionFromString: func(s string) (testAction, bool) {
			switch s {
			case "Play":
				return actionPlay, true
			case "Pause":
				return actionPause, true
			}
			return 0, false
		},
		ActionToString: func(a testAction) string {
			if a == actionPlay {
				return "Play"
			}
			return "Pause"
		},
		VariableFromString: func(s string) (testVariable, bool) {
			switch s {
			case "TransportState":
				return varTransportState, true
			case "CurrentTrack":
				return varCurrentTrack, true
			}
			return 0, false
		},
		VariableToString: func(v testVariable) string {
			if v == varTransportState {
				return "TransportState"
			}
			return "CurrentTrack"
		},
	}
}

func TestSetDeviceParsesSupportedActions(t *testing.T) {
	scpd := `<?xml version="1.0"?><scpd><actionList><action><name>Play</name></action></actionList><serviceStateTable></serviceStateTable></scpd>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(scpd))
	}))
	defer srv.Close()

	dev := &device.Device{Services: map[device.ServiceType]device.Service{
		device.ServiceAVTransport: {ServiceType: device.ServiceAVTransport, SCPDURL: srv.URL, ControlURL: srv.URL + "/control", EventSubURL: srv.URL + "/event"},
	}}

	cb := NewClientBase(testTraits(), transport.NewClient(5*time.Second), func() string { return "http://cb/" }, 1800, 0.75)
	require.NoError(t, cb.SetDevice(context.Background(), dev))

	assert.True(t, cb.SupportsAction(actionPlay))
	assert.False(t, cb.SupportsAction(actionPause))
}

func TestExecuteActionRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		action, err := soap.ParseAction(readBody(r))
		require.NoError(t, err)
		assert.Equal(t, "Play", action.ActionName)
		w.Write(soap.BuildActionResponse(device.AVTransportURN, "Play", nil))
	}))
	defer srv.Close()

	dev := &device.Device{Services: map[device.ServiceType]device.Service{
		device.ServiceAVTransport: {ServiceType: device.ServiceAVTransport, ControlURL: srv.URL, EventSubURL: srv.URL},
	}}

	cb := NewClientBase(testTraits(), transport.NewClient(5*time.Second), func() string { return "http://cb/" }, 1800, 0.75)
	cb.svc = dev.Services[device.ServiceAVTransport]

	out, err := cb.ExecuteAction(context.Background(), actionPlay, nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestSubscribeSchedulesRenewal(t *testing.T) {
	var sawSubscribe, sawRenew bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "SUBSCRIBE" {
			t.Fatalf("unexpected method %s", r.Method)
		}
		if r.Header.Get("SID") == "" {
			sawSubscribe = true
			w.Header().Set("SID", "uuid:sub1")
			w.Header().Set("TIMEOUT", "Second-1")
			return
		}
		sawRenew = true
		w.Header().Set("TIMEOUT", "Second-1")
	}))
	defer srv.Close()

	cb := NewClientBase(testTraits(), transport.NewClient(5*time.Second), func() string { return "http://cb/" }, 1, 0.01)
	cb.svc = device.Service{EventSubURL: srv.URL}

	require.NoError(t, cb.Subscribe(context.Background()))
	assert.True(t, sawSubscribe)

	require.Eventually(t, func() bool { return sawRenew }, 2*time.Second, 10*time.Millisecond)
}

func TestRenewFailureReportsSubscriptionLost(t *testing.T) {
	var renewAttempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("SID") == "" {
			w.Header().Set("SID", "uuid:sub1")
			w.Header().Set("TIMEOUT", "Second-1")
			return
		}
		renewAttempts++
		w.WriteHeader(http.StatusPreconditionFailed)
	}))
	defer srv.Close()

	cb := NewClientBase(testTraits(), transport.NewClient(5*time.Second), func() string { return "http://cb/" }, 1, 0.01)
	cb.svc = device.Service{EventSubURL: srv.URL}

	lost := make(chan error, 1)
	cb.OnSubscriptionLost = func(err error) { lost <- err }

	require.NoError(t, cb.Subscribe(context.Background()))

	select {
	case err := <-lost:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for OnSubscriptionLost")
	}
	assert.Equal(t, 1, renewAttempts)
}

func TestHandleNotifyInvokesHookAndOnEvent(t *testing.T) {
	cb := NewClientBase(testTraits(), transport.NewClient(5*time.Second), func() string { return "http://cb/" }, 1800, 0.75)

	var hookVars, eventVars map[testVariable]string
	cb.Hook = func(_ testVariable, vars map[testVariable]string) { hookVars = vars }
	cb.OnEvent = func(_ testVariable, vars map[testVariable]string) { eventVars = vars }

	err := cb.HandleNotify(gena.NotifyEvent{
		SID: "uuid:sub1",
		Data: gena.BuildPropertySet([]gena.Property{
			{Name: "TransportState", Value: "PLAYING"},
			{Name: "UnknownVar", Value: "ignored"},
		}),
	})
	require.NoError(t, err)
	assert.Equal(t, "PLAYING", hookVars[varTransportState])
	assert.Equal(t, "PLAYING", eventVars[varTransportState])
	assert.Len(t, hookVars, 1)
}

func TestHandleNotifyReturnsErrorForUnparseableBody(t *testing.T) {
	cb := NewClientBase(testTraits(), transport.NewClient(5*time.Second), func() string { return "http://cb/" }, 1800, 0.75)

	err := cb.HandleNotify(gena.NotifyEvent{SID: "uuid:sub1", Data: []byte(`<?xml version="1.0"?>`)})
	assert.Error(t, err)
}

func readBody(r *http.Request) []byte {
	data, _ := io.ReadAll(r.Body)
	return data
}
