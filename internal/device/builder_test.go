package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDeviceDescriptionRoundTripsThroughParse(t *testing.T) {
	data, err := BuildDeviceDescription(
		"urn:schemas-upnp-org:device:MediaRenderer:1",
		"Kitchen Speaker",
		"uuid:5678",
		[]DescribedService{
			{ServiceType: ServiceAVTransport, ServiceID: "urn:upnp-org:serviceId:AVTransport", SCPDPath: "/AVTransport/scpd.xml", ControlPath: "/AVTransport/control", EventSubPath: "/AVTransport/event"},
			{ServiceType: ServiceRenderingControl, ServiceID: "urn:upnp-org:serviceId:RenderingControl", SCPDPath: "/RenderingControl/scpd.xml", ControlPath: "/RenderingControl/control", EventSubPath: "/RenderingControl/event"},
		},
	)
	require.NoError(t, err)

	dev, err := ParseDeviceDescription(data, "http://192.168.1.9:1400/description.xml")
	require.NoError(t, err)

	assert.Equal(t, "Kitchen Speaker", dev.FriendlyName)
	assert.Equal(t, "uuid:5678", dev.UDN)
	assert.True(t, dev.ImplementsService(ServiceAVTransport))
	assert.True(t, dev.ImplementsService(ServiceRenderingControl))
	assert.False(t, dev.ImplementsService(ServiceContentDirectory))

	avt := dev.Services[ServiceAVTransport]
	assert.Equal(t, "http://192.168.1.9:1400/AVTransport/control", avt.ControlURL)
	assert.Equal(t, "urn:upnp-org:serviceId:AVTransport", avt.ServiceID)
}

func TestBuildSCPDRoundTripsThroughParse(t *testing.T) {
	data := BuildSCPD(
		[]string{"Play", "Pause", "Stop"},
		[]StateVariable{
			{Name: "TransportState", DataType: "string", SendEvents: true, AllowedValues: []string{"PLAYING", "STOPPED"}},
			{Name: "CurrentTrack", DataType: "ui4", SendEvents: false, DefaultValue: "0"},
		},
	)

	scpd, err := ParseSCPD(data)
	require.NoError(t, err)
	assert.True(t, scpd.SupportsAction("Play"))
	assert.True(t, scpd.SupportsAction("Stop"))
	assert.False(t, scpd.SupportsAction("Seek"))
	require.Len(t, scpd.StateVariables, 2)
	assert.Equal(t, "TransportState", scpd.StateVariables[0].Name)
	assert.True(t, scpd.StateVariables[0].SendEvents)
	assert.Equal(t, []string{"PLAYING", "STOPPED"}, scpd.StateVariables[0].AllowedValues)
	assert.Equal(t, "0", scpd.StateVariables[1].DefaultValue)
}
