package renderingcontrol

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strefethen/upnp-av-go/internal/soap"
	"github.com/strefethen/upnp-av-go/internal/upnperror"
)

func TestSetVolumeThenGetVolumeRoundTrip(t *testing.T) {
	dev := NewDevice(20 * time.Millisecond)

	_, fault := dev.Base().DispatchAction(context.Background(), 0, &soap.ParsedAction{
		ActionName: "SetVolume",
		Args: []soap.Argument{
			{Name: "InstanceID", Value: "0"},
			{Name: "Channel", Value: "Master"},
			{Name: "DesiredVolume", Value: "42"},
		},
	})
	require.Nil(t, fault)

	out, fault := dev.Base().DispatchAction(context.Background(), 0, &soap.ParsedAction{
		ActionName: "GetVolume",
		Args: []soap.Argument{
			{Name: "InstanceID", Value: "0"},
			{Name: "Channel", Value: "Master"},
		},
	})
	require.Nil(t, fault)
	require.Len(t, out, 1)
	assert.Equal(t, "42", out[0].Value)
}

func TestSetVolumeOutOfRangeFails(t *testing.T) {
	dev := NewDevice(20 * time.Millisecond)
	_, fault := dev.Base().DispatchAction(context.Background(), 0, &soap.ParsedAction{
		ActionName: "SetVolume",
		Args: []soap.Argument{
			{Name: "InstanceID", Value: "0"},
			{Name: "Channel", Value: "Master"},
			{Name: "DesiredVolume", Value: "999"},
		},
	})
	require.NotNil(t, fault)
	assert.Equal(t, upnperror.InvalidArgs, fault.Code)
}

func TestSetVolumeTriggersLastChange(t *testing.T) {
	dev := NewDevice(10 * time.Millisecond)
	done := make(chan []byte, 1)
	dev.NotifyLastChange = func(payload []byte) { done <- payload }

	_, fault := dev.Base().DispatchAction(context.Background(), 0, &soap.ParsedAction{
		ActionName: "SetVolume",
		Args: []soap.Argument{
			{Name: "InstanceID", Value: "0"},
			{Name: "Channel", Value: "Master"},
			{Name: "DesiredVolume", Value: "77"},
		},
	})
	require.Nil(t, fault)

	select {
	case payload := <-done:
		assert.Contains(t, string(payload), `val="77"`)
		assert.Contains(t, string(payload), `channel="Master"`)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for LastChange")
	}
}

func TestChannelsAreIndependent(t *testing.T) {
	dev := NewDevice(20 * time.Millisecond)
	dev.Base().DispatchAction(context.Background(), 0, &soap.ParsedAction{
		ActionName: "SetVolume",
		Args:       []soap.Argument{{Name: "InstanceID", Value: "0"}, {Name: "Channel", Value: "LF"}, {Name: "DesiredVolume", Value: "10"}},
	})
	dev.Base().DispatchAction(context.Background(), 0, &soap.ParsedAction{
		ActionName: "SetVolume",
		Args:       []soap.Argument{{Name: "InstanceID", Value: "0"}, {Name: "Channel", Value: "RF"}, {Name: "DesiredVolume", Value: "90"}},
	})

	lf, _ := dev.Base().DispatchAction(context.Background(), 0, &soap.ParsedAction{
		ActionName: "GetVolume",
		Args:       []soap.Argument{{Name: "InstanceID", Value: "0"}, {Name: "Channel", Value: "LF"}},
	})
	rf, _ := dev.Base().DispatchAction(context.Background(), 0, &soap.ParsedAction{
		ActionName: "GetVolume",
		Args:       []soap.Argument{{Name: "InstanceID", Value: "0"}, {Name: "Channel", Value: "RF"}},
	})
	assert.Equal(t, "10", lf[0].Value)
	assert.Equal(t, "90", rf[0].Value)
}
