package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDeviceXML = `<?xml version="1.0"?>
<root xmlns="urn:schemas-upnp-org:device-1-0">
  <device>
    <deviceType>urn:schemas-upnp-org:device:MediaRenderer:1</deviceType>
    <friendlyName>Living Room</friendlyName>
    <UDN>uuid:1234</UDN>
    <serviceList>
      <service>
        <serviceType>urn:schemas-upnp-org:service:AVTransport:1</serviceType>
        <serviceId>urn:upnp-org:serviceId:AVTransport</serviceId>
        <SCPDURL>/AVTransport/scpd.xml</SCPDURL>
        <controlURL>/AVTransport/control</controlURL>
        <eventSubURL>/AVTransport/event</eventSubURL>
      </service>
      <service>
        <serviceType>urn:schemas-upnp-org:service:RenderingControl:1</serviceType>
        <serviceId>urn:upnp-org:serviceId:RenderingControl</serviceId>
        <SCPDURL>/RenderingControl/scpd.xml</SCPDURL>
        <controlURL>/RenderingControl/control</controlURL>
        <eventSubURL>/RenderingControl/event</eventSubURL>
      </service>
    </serviceList>
  </device>
</root>`

func TestParseDeviceDescriptionResolvesURLs(t *testing.T) {
	dev, err := ParseDeviceDescription([]byte(sampleDeviceXML), "http://192.168.1.5:8080/description.xml")
	require.NoError(t, err)

	assert.Equal(t, "Living Room", dev.FriendlyName)
	assert.Equal(t, "uuid:1234", dev.UDN)
	assert.True(t, dev.ImplementsService(ServiceAVTransport))
	assert.False(t, dev.ImplementsService(ServiceContentDirectory))

	avt := dev.Services[ServiceAVTransport]
	assert.Equal(t, "http://192.168.1.5:8080/AVTransport/scpd.xml", avt.SCPDURL)
	assert.Equal(t, "http://192.168.1.5:8080/AVTransport/control", avt.ControlURL)
	assert.Equal(t, "http://192.168.1.5:8080/AVTransport/event", avt.EventSubURL)
}

func TestParseDeviceDescriptionUsesURLBase(t *testing.T) {
	xmlDoc := `<?xml version="1.0"?>
<root xmlns="urn:schemas-upnp-org:device-1-0">
  <URLBase>http://192.168.1.5:80/</URLBase>
  <device>
    <deviceType>urn:schemas-upnp-org:device:MediaRenderer:1</deviceType>
    <friendlyName>R</friendlyName>
    <UDN>uuid:abc</UDN>
    <serviceList>
      <service>
        <serviceType>urn:schemas-upnp-org:service:ConnectionManager:1</serviceType>
        <serviceId>urn:upnp-org:serviceId:ConnectionManager</serviceId>
        <SCPDURL>cm/scpd.xml</SCPDURL>
        <controlURL>cm/control</controlURL>
        <eventSubURL>cm/event</eventSubURL>
      </service>
    </serviceList>
  </device>
</root>`
	dev, err := ParseDeviceDescription([]byte(xmlDoc), "http://10.0.0.1:1234/desc.xml")
	require.NoError(t, err)
	cm := dev.Services[ServiceConnectionManager]
	assert.Equal(t, "http://192.168.1.5:80/cm/scpd.xml", cm.SCPDURL)
}

func TestServiceTypeURNRoundTrip(t *testing.T) {
	for _, st := range []ServiceType{ServiceContentDirectory, ServiceRenderingControl, ServiceConnectionManager, ServiceAVTransport} {
		urn, err := st.URN()
		require.NoError(t, err)
		assert.Equal(t, st, ServiceTypeFromURN(urn))
	}
}

func TestServiceTypeUnknownURNErrors(t *testing.T) {
	_, err := ServiceUnknown.URN()
	assert.Error(t, err)
	assert.Equal(t, ServiceUnknown, ServiceTypeFromURN("urn:something:else"))
}

const sampleSCPD = `<?xml version="1.0"?>
<scpd xmlns="urn:schemas-upnp-org:service-1-0">
  <actionList>
    <action><name>Play</name></action>
    <action><name>Pause</name></action>
  </actionList>
  <serviceStateTable>
    <stateVariable sendEvents="yes">
      <name>TransportState</name>
      <dataType>string</dataType>
      <allowedValueList>
        <allowedValue>PLAYING</allowedValue>
        <allowedValue>PAUSED_PLAYBACK</allowedValue>
      </allowedValueList>
    </stateVariable>
    <stateVariable sendEvents="no">
      <name>CurrentTrack</name>
      <dataType>ui4</dataType>
    </stateVariable>
  </serviceStateTable>
</scpd>`

func TestParseSCPD(t *testing.T) {
	scpd, err := ParseSCPD([]byte(sampleSCPD))
	require.NoError(t, err)
	assert.True(t, scpd.SupportsAction("Play"))
	assert.True(t, scpd.SupportsAction("Pause"))
	assert.False(t, scpd.SupportsAction("Seek"))
	require.Len(t, scpd.StateVariables, 2)
	assert.Equal(t, "TransportState", scpd.StateVariables[0].Name)
	assert.True(t, scpd.StateVariables[0].SendEvents)
	assert.False(t, scpd.StateVariables[1].SendEvents)
}
