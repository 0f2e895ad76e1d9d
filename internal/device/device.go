// Package device models the UPnP device description document (spec.md
// §3): the Device/Service descriptor tree parsed from a root device
// XML, URL resolution against the device's base URL, and the
// ServiceType enumeration shared by every AV service.
//
// Grounded on original_source/inc/upnp/upnptypes.h for the service
// type enum and on skunkie-dms/dlna/dms/dms.go for the descriptor
// fields a real device publishes (serviceList, controlURL, eventSubURL,
// SCPDURL).
package device

import (
	"encoding/xml"
	"fmt"
	"net/url"
)

// ServiceType identifies one of the four standard UPnP AV services.
type ServiceType int

const (
	ServiceUnknown ServiceType = iota
	ServiceContentDirectory
	ServiceRenderingControl
	ServiceConnectionManager
	ServiceAVTransport
)

const (
	ContentDirectoryURN  = "urn:schemas-upnp-org:service:ContentDirectory:1"
	RenderingControlURN  = "urn:schemas-upnp-org:service:RenderingControl:1"
	ConnectionManagerURN = "urn:schemas-upnp-org:service:ConnectionManager:1"
	AVTransportURN       = "urn:schemas-upnp-org:service:AVTransport:1"
)

func (t ServiceType) String() string {
	switch t {
	case ServiceContentDirectory:
		return "ContentDirectory"
	case ServiceRenderingControl:
		return "RenderingControl"
	case ServiceConnectionManager:
		return "ConnectionManager"
	case ServiceAVTransport:
		return "AVTransport"
	default:
		return "UnknownServiceType"
	}
}

// URN returns the full service-type URN used on the wire (SOAPACTION
// header, service descriptor serviceType element).
func (t ServiceType) URN() (string, error) {
	switch t {
	case ServiceContentDirectory:
		return ContentDirectoryURN, nil
	case ServiceRenderingControl:
		return RenderingControlURN, nil
	case ServiceConnectionManager:
		return ConnectionManagerURN, nil
	case ServiceAVTransport:
		return AVTransportURN, nil
	default:
		return "", fmt.Errorf("invalid service type received for urn")
	}
}

// ServiceTypeFromURN maps a serviceType URN to its ServiceType,
// returning ServiceUnknown for anything else.
func ServiceTypeFromURN(urn string) ServiceType {
	switch urn {
	case ContentDirectoryURN:
		return ServiceContentDirectory
	case RenderingControlURN:
		return ServiceRenderingControl
	case ConnectionManagerURN:
		return ServiceConnectionManager
	case AVTransportURN:
		return ServiceAVTransport
	default:
		return ServiceUnknown
	}
}

// Service is one <service> entry from a device description document,
// with URLs already resolved to absolute form.
type Service struct {
	ServiceType ServiceType
	ServiceID   string
	SCPDURL     string
	ControlURL  string
	EventSubURL string
}

// Device is the parsed <device> element of a root device description,
// holding only the fields the AV stack needs.
type Device struct {
	DeviceType   string
	FriendlyName string
	UDN          string
	BaseURL      string
	Services     map[ServiceType]Service
}

// ImplementsService reports whether the device advertises the given
// service type.
func (d *Device) ImplementsService(t ServiceType) bool {
	_, ok := d.Services[t]
	return ok
}

// xmlDoc mirrors the subset of the UPnP device description schema this
// package consumes.
type xmlDoc struct {
	XMLName xml.Name `xml:"root"`
	URLBase string   `xml:"URLBase"`
	Device  struct {
		DeviceType   string `xml:"deviceType"`
		FriendlyName string `xml:"friendlyName"`
		UDN          string `xml:"UDN"`
		ServiceList  struct {
			Service []struct {
				ServiceType string `xml:"serviceType"`
				ServiceID   string `xml:"serviceId"`
				SCPDURL     string `xml:"SCPDURL"`
				ControlURL  string `xml:"controlURL"`
				EventSubURL string `xml:"eventSubURL"`
			} `xml:"service"`
		} `xml:"serviceList"`
	} `xml:"device"`
}

// ParseDeviceDescription parses a root device description document
// fetched from descriptionURL, resolving every relative service URL
// against URLBase (if present) or descriptionURL itself, per UPnP
// Device Architecture §2.3 and spec.md §3's "Open Question: resolve
// full URLs against the device's base URL."
func ParseDeviceDescription(data []byte, descriptionURL string) (*Device, error) {
	var doc xmlDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse device description: %w", err)
	}

	base := doc.URLBase
	if base == "" {
		base = descriptionURL
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", base, err)
	}

	dev := &Device{
		DeviceType:   doc.Device.DeviceType,
		FriendlyName: doc.Device.FriendlyName,
		UDN:          doc.Device.UDN,
		BaseURL:      baseURL.String(),
		Services:     make(map[ServiceType]Service),
	}

	for _, s := range doc.Device.ServiceList.Service {
		t := ServiceTypeFromURN(s.ServiceType)
		if t == ServiceUnknown {
			continue
		}
		scpd, err := resolveURL(baseURL, s.SCPDURL)
		if err != nil {
			return nil, err
		}
		control, err := resolveURL(baseURL, s.ControlURL)
		if err != nil {
			return nil, err
		}
		eventSub, err := resolveURL(baseURL, s.EventSubURL)
		if err != nil {
			return nil, err
		}
		dev.Services[t] = Service{
			ServiceType: t,
			ServiceID:   s.ServiceID,
			SCPDURL:     scpd,
			ControlURL:  control,
			EventSubURL: eventSub,
		}
	}

	return dev, nil
}

func resolveURL(base *url.URL, ref string) (string, error) {
	if ref == "" {
		return "", nil
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", ref, err)
	}
	return base.ResolveReference(refURL).String(), nil
}
