package soap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strefethen/upnp-av-go/internal/upnperror"
)

func TestBuildAndParseAction(t *testing.T) {
	body := BuildAction("urn:schemas-upnp-org:service:RenderingControl:1", "SetVolume", []Argument{
		{Name: "InstanceID", Value: "0"},
		{Name: "Channel", Value: "Master"},
		{Name: "DesiredVolume", Value: "50"},
	})

	parsed, err := ParseAction(body)
	require.NoError(t, err)
	assert.Equal(t, "SetVolume", parsed.ActionName)
	assert.Equal(t, "urn:schemas-upnp-org:service:RenderingControl:1", parsed.ServiceType)
	require.Len(t, parsed.Args, 3)
	assert.Equal(t, Argument{Name: "InstanceID", Value: "0"}, parsed.Args[0])
	assert.Equal(t, Argument{Name: "DesiredVolume", Value: "50"}, parsed.Args[2])
}

func TestBuildAndParseActionResponse(t *testing.T) {
	body := BuildActionResponse("urn:schemas-upnp-org:service:RenderingControl:1", "GetVolume", []Argument{
		{Name: "CurrentVolume", Value: "37"},
	})

	args, err := ParseActionResponse(body)
	require.NoError(t, err)
	require.Len(t, args, 1)
	assert.Equal(t, "CurrentVolume", args[0].Name)
	assert.Equal(t, "37", args[0].Value)
}

func TestArgumentValueIsXMLEscaped(t *testing.T) {
	body := BuildAction("urn:schemas-upnp-org:service:AVTransport:1", "SetAVTransportURI", []Argument{
		{Name: "CurrentURI", Value: "http://host/a?x=1&y=2"},
	})
	assert.Contains(t, string(body), "http://host/a?x=1&amp;y=2")

	parsed, err := ParseAction(body)
	require.NoError(t, err)
	assert.Equal(t, "http://host/a?x=1&y=2", parsed.Args[0].Value)
}

func TestBuildAndParseFault(t *testing.T) {
	body := BuildFault(upnperror.NewUPnPError(upnperror.InvalidArgs, "bad channel"))

	got := ParseFault(body)
	assert.Equal(t, upnperror.InvalidArgs, got.Code)
	assert.Equal(t, "bad channel", got.Description)
}

func TestParseFaultFallsBackToActionFailed(t *testing.T) {
	got := ParseFault([]byte("<not-a-soap-fault/>"))
	assert.Equal(t, upnperror.ActionFailed, got.Code)
}
