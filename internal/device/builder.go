package device

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

// DescribedService is one service entry a root device advertises: its
// type and ID, plus the paths (relative to the device's base URL) the
// root device serves its SCPD, control and eventing endpoints at.
type DescribedService struct {
	ServiceType  ServiceType
	ServiceID    string
	SCPDPath     string
	ControlPath  string
	EventSubPath string
}

// BuildDeviceDescription renders a root device description document
// (spec.md §6 "Root Device") advertising deviceType/friendlyName/UDN
// and the given services with their URNs resolved from ServiceType.
func BuildDeviceDescription(deviceType, friendlyName, udn string, services []DescribedService) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString(`<root xmlns="urn:schemas-upnp-org:device-1-0"><specVersion><major>1</major><minor>0</minor></specVersion>`)
	buf.WriteString("<device>")
	fmt.Fprintf(&buf, "<deviceType>%s</deviceType>", xmlEscapeText(deviceType))
	fmt.Fprintf(&buf, "<friendlyName>%s</friendlyName>", xmlEscapeText(friendlyName))
	fmt.Fprintf(&buf, "<UDN>%s</UDN>", xmlEscapeText(udn))

	buf.WriteString("<serviceList>")
	for _, s := range services {
		urn, err := s.ServiceType.URN()
		if err != nil {
			return nil, err
		}
		buf.WriteString("<service>")
		fmt.Fprintf(&buf, "<serviceType>%s</serviceType>", xmlEscapeText(urn))
		fmt.Fprintf(&buf, "<serviceId>%s</serviceId>", xmlEscapeText(s.ServiceID))
		fmt.Fprintf(&buf, "<SCPDURL>%s</SCPDURL>", xmlEscapeText(s.SCPDPath))
		fmt.Fprintf(&buf, "<controlURL>%s</controlURL>", xmlEscapeText(s.ControlPath))
		fmt.Fprintf(&buf, "<eventSubURL>%s</eventSubURL>", xmlEscapeText(s.EventSubPath))
		buf.WriteString("</service>")
	}
	buf.WriteString("</serviceList></device></root>")
	return buf.Bytes(), nil
}
