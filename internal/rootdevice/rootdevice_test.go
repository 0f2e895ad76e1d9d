package rootdevice

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strefethen/upnp-av-go/internal/av/renderingcontrol"
	"github.com/strefethen/upnp-av-go/internal/device"
	"github.com/strefethen/upnp-av-go/internal/servicedevice"
	"github.com/strefethen/upnp-av-go/internal/soap"
)

func startTestRootDevice(t *testing.T) (*RootDevice, *renderingcontrol.Device) {
	t.Helper()
	rd, err := New("127.0.0.1:0", "urn:schemas-upnp-org:device:MediaRenderer:1", "Test Renderer", "uuid:test-renderer")
	require.NoError(t, err)

	rc := renderingcontrol.NewDevice(10 * time.Millisecond)
	pub := rd.RegisterService(
		device.ServiceRenderingControl,
		"urn:upnp-org:serviceId:RenderingControl",
		rc.Base(),
		[]string{"GetVolume", "SetVolume", "GetMute", "SetMute"},
		[]device.StateVariable{
			{Name: "Volume", DataType: "ui2"},
			{Name: "LastChange", DataType: "string", SendEvents: true},
		},
		func() string { return "test-sid-0000" },
	)
	rc.NotifyLastChange = func(payload []byte) {
		pub.Publish(servicedevice.BuildChangeEvent(map[string]string{"LastChange": string(payload)}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = rd.Serve(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return rd, rc
}

func TestDescriptionAdvertisesRegisteredService(t *testing.T) {
	rd, _ := startTestRootDevice(t)

	resp, err := http.Get("http://" + rd.Addr() + "/description.xml")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	dev, err := device.ParseDeviceDescription(body, rd.BaseURL()+"/description.xml")
	require.NoError(t, err)
	assert.Equal(t, "Test Renderer", dev.FriendlyName)
	assert.True(t, dev.ImplementsService(device.ServiceRenderingControl))

	rcs := dev.Services[device.ServiceRenderingControl]
	assert.Equal(t, rd.BaseURL()+"/RenderingControl/control", rcs.ControlURL)
}

func TestControlEndpointDispatchesAction(t *testing.T) {
	rd, _ := startTestRootDevice(t)

	body := soap.BuildAction(device.RenderingControlURN, "SetVolume", []soap.Argument{
		{Name: "InstanceID", Value: "0"},
		{Name: "Channel", Value: "Master"},
		{Name: "DesiredVolume", Value: "33"},
	})
	req, err := http.NewRequest(http.MethodPost, "http://"+rd.Addr()+"/RenderingControl/control", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("SOAPAction", `"`+device.RenderingControlURN+`#SetVolume"`)
	req.Header.Set("Content-Type", `text/xml; charset="utf-8"`)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	getBody := soap.BuildAction(device.RenderingControlURN, "GetVolume", []soap.Argument{
		{Name: "InstanceID", Value: "0"},
		{Name: "Channel", Value: "Master"},
	})
	getReq, err := http.NewRequest(http.MethodPost, "http://"+rd.Addr()+"/RenderingControl/control", bytes.NewReader(getBody))
	require.NoError(t, err)
	getReq.Header.Set("SOAPAction", `"`+device.RenderingControlURN+`#GetVolume"`)
	getResp, err := http.DefaultClient.Do(getReq)
	require.NoError(t, err)
	defer getResp.Body.Close()
	respBody, err := io.ReadAll(getResp.Body)
	require.NoError(t, err)

	args, err := soap.ParseActionResponse(respBody)
	require.NoError(t, err)
	require.Len(t, args, 1)
	assert.Equal(t, "33", args[0].Value)
}

func TestControlEndpointInvalidActionReturnsFault(t *testing.T) {
	rd, _ := startTestRootDevice(t)

	body := soap.BuildAction(device.RenderingControlURN, "NotARealAction", nil)
	req, err := http.NewRequest(http.MethodPost, "http://"+rd.Addr()+"/RenderingControl/control", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("SOAPAction", `"`+device.RenderingControlURN+`#NotARealAction"`)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	respBody, _ := io.ReadAll(resp.Body)
	fault := soap.ParseFault(respBody)
	assert.EqualValues(t, 401, fault.Code)
}

func TestSubscribeDeliversInitialAndChangeNotify(t *testing.T) {
	rd, rc := startTestRootDevice(t)

	notifies := make(chan string, 4)
	callback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		notifies <- r.Header.Get("SEQ") + "|" + string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer callback.Close()

	subReq, err := http.NewRequest("SUBSCRIBE", "http://"+rd.Addr()+"/RenderingControl/event", nil)
	require.NoError(t, err)
	subReq.Header.Set("CALLBACK", "<"+callback.URL+"/cb>")
	subReq.Header.Set("NT", "upnp:event")
	subReq.Header.Set("TIMEOUT", "Second-1800")

	subResp, err := http.DefaultClient.Do(subReq)
	require.NoError(t, err)
	defer subResp.Body.Close()
	require.Equal(t, http.StatusOK, subResp.StatusCode)
	sid := subResp.Header.Get("SID")
	require.NotEmpty(t, sid)

	select {
	case got := <-notifies:
		assert.Contains(t, got, "0|")
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for initial NOTIFY")
	}

	rc.Base().DispatchAction(context.Background(), 0, &soap.ParsedAction{
		ActionName: "SetVolume",
		Args: []soap.Argument{
			{Name: "InstanceID", Value: "0"},
			{Name: "Channel", Value: "Master"},
			{Name: "DesiredVolume", Value: "70"},
		},
	})

	select {
	case got := <-notifies:
		assert.Contains(t, got, "LastChange")
		assert.Contains(t, got, "70")
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change NOTIFY")
	}

	unsubReq, err := http.NewRequest("UNSUBSCRIBE", "http://"+rd.Addr()+"/RenderingControl/event", nil)
	require.NoError(t, err)
	unsubReq.Header.Set("SID", sid)
	unsubResp, err := http.DefaultClient.Do(unsubReq)
	require.NoError(t, err)
	defer unsubResp.Body.Close()
	assert.Equal(t, http.StatusOK, unsubResp.StatusCode)
}
