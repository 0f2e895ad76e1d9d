package avtransport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strefethen/upnp-av-go/internal/soap"
	"github.com/strefethen/upnp-av-go/internal/upnperror"
)

func TestSetAVTransportURIThenGetMediaInfoRoundTrip(t *testing.T) {
	dev := NewDevice(20 * time.Millisecond)

	_, fault := dev.Base().DispatchAction(context.Background(), 0, &soap.ParsedAction{
		ActionName: "SetAVTransportURI",
		Args: []soap.Argument{
			{Name: "InstanceID", Value: "0"},
			{Name: "CurrentURI", Value: "http://example.com/track.mp3"},
			{Name: "CurrentURIMetaData", Value: "<DIDL-Lite/>"},
		},
	})
	require.Nil(t, fault)

	out, fault := dev.Base().DispatchAction(context.Background(), 0, &soap.ParsedAction{
		ActionName: "GetMediaInfo",
		Args:       []soap.Argument{{Name: "InstanceID", Value: "0"}},
	})
	require.Nil(t, fault)

	var uri string
	for _, a := range out {
		if a.Name == "CurrentURI" {
			uri = a.Value
		}
	}
	assert.Equal(t, "http://example.com/track.mp3", uri)
}

func TestPlayWithoutURIFails(t *testing.T) {
	dev := NewDevice(20 * time.Millisecond)
	_, fault := dev.Base().DispatchAction(context.Background(), 0, &soap.ParsedAction{
		ActionName: "Play",
		Args:       []soap.Argument{{Name: "InstanceID", Value: "0"}, {Name: "Speed", Value: "1"}},
	})
	require.NotNil(t, fault)
	assert.Equal(t, upnperror.NoContents, fault.Code)
}

func TestPlayThenGetTransportInfoReportsPlaying(t *testing.T) {
	dev := NewDevice(20 * time.Millisecond)
	dev.Base().DispatchAction(context.Background(), 0, &soap.ParsedAction{
		ActionName: "SetAVTransportURI",
		Args: []soap.Argument{
			{Name: "InstanceID", Value: "0"},
			{Name: "CurrentURI", Value: "http://example.com/a.mp3"},
			{Name: "CurrentURIMetaData", Value: ""},
		},
	})
	_, fault := dev.Base().DispatchAction(context.Background(), 0, &soap.ParsedAction{
		ActionName: "Play",
		Args:       []soap.Argument{{Name: "InstanceID", Value: "0"}, {Name: "Speed", Value: "1"}},
	})
	require.Nil(t, fault)

	out, fault := dev.Base().DispatchAction(context.Background(), 0, &soap.ParsedAction{
		ActionName: "GetTransportInfo",
		Args:       []soap.Argument{{Name: "InstanceID", Value: "0"}},
	})
	require.Nil(t, fault)
	var state string
	for _, a := range out {
		if a.Name == "CurrentTransportState" {
			state = a.Value
		}
	}
	assert.Equal(t, string(StatePlaying), state)
}

func TestNextBeyondLastTrackFails(t *testing.T) {
	dev := NewDevice(20 * time.Millisecond)
	dev.Base().DispatchAction(context.Background(), 0, &soap.ParsedAction{
		ActionName: "SetAVTransportURI",
		Args: []soap.Argument{
			{Name: "InstanceID", Value: "0"},
			{Name: "CurrentURI", Value: "http://example.com/a.mp3"},
			{Name: "CurrentURIMetaData", Value: ""},
		},
	})
	_, fault := dev.Base().DispatchAction(context.Background(), 0, &soap.ParsedAction{
		ActionName: "Next",
		Args:       []soap.Argument{{Name: "InstanceID", Value: "0"}},
	})
	require.NotNil(t, fault)
	assert.Equal(t, upnperror.TransitionNotAvailable, fault.Code)
}

func TestSeekRejectsUnsupportedUnit(t *testing.T) {
	dev := NewDevice(20 * time.Millisecond)
	_, fault := dev.Base().DispatchAction(context.Background(), 0, &soap.ParsedAction{
		ActionName: "Seek",
		Args:       []soap.Argument{{Name: "InstanceID", Value: "0"}, {Name: "Unit", Value: "SOMETHING_ELSE"}, {Name: "Target", Value: "0"}},
	})
	require.NotNil(t, fault)
	assert.Equal(t, upnperror.SeekModeNotSupported, fault.Code)
}

func TestTransportStateChangeTriggersLastChange(t *testing.T) {
	dev := NewDevice(10 * time.Millisecond)
	done := make(chan []byte, 2)
	dev.NotifyLastChange = func(payload []byte) { done <- payload }

	dev.Base().DispatchAction(context.Background(), 0, &soap.ParsedAction{
		ActionName: "SetAVTransportURI",
		Args: []soap.Argument{
			{Name: "InstanceID", Value: "0"},
			{Name: "CurrentURI", Value: "http://example.com/a.mp3"},
			{Name: "CurrentURIMetaData", Value: ""},
		},
	})

	// The fresh aggregator emits the first change (AVTransportURI) at
	// once; the remaining changes, TransportState among them, are
	// coalesced into the second LastChange.
	var payload []byte
	for i := 0; i < 2; i++ {
		select {
		case payload = <-done:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for LastChange")
		}
	}
	assert.Contains(t, string(payload), "TransportState")
	assert.Contains(t, string(payload), `val="STOPPED"`)
}

func TestPositionalVariablesAreNeverEvented(t *testing.T) {
	assert.True(t, IsPositional(VarRelativeTimePosition))
	assert.True(t, IsPositional(VarAbsoluteTimePosition))
	assert.True(t, IsPositional(VarRelativeCounterPosition))
	assert.True(t, IsPositional(VarAbsoluteCounterPosition))
	assert.False(t, IsPositional(VarTransportState))
}
