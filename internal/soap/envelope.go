// Package soap builds and parses the SOAP 1.1 envelopes that carry
// UPnP action invocations and faults (spec.md §4.3, §6), grounded on
// strefethen-sonos-hub-go/internal/sonos/soap/{client.go,types.go}.
package soap

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/strefethen/upnp-av-go/internal/upnperror"
)

const (
	envelopeNS = "http://schemas.xmlsoap.org/soap/envelope/"
	encodingNS = "http://schemas.xmlsoap.org/soap/encoding/"
)

// Argument is one name/value pair inside an action request or
// response body. Values are carried as strings; Traits-layer callers
// are responsible for UPnP data-type marshalling (spec.md §4.5).
type Argument struct {
	Name  string
	Value string
}

// BuildAction serialises an action invocation envelope for
// serviceType#actionName with the given in-arguments, matching the
// wire shape strefethen's soap/client.go composes by hand.
func BuildAction(serviceType, actionName string, args []Argument) []byte {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	fmt.Fprintf(&buf, `<s:Envelope xmlns:s="%s" s:encodingStyle="%s"><s:Body><u:%s xmlns:u="%s">`,
		envelopeNS, encodingNS, actionName, serviceType)
	for _, a := range args {
		fmt.Fprintf(&buf, "<%s>%s</%s>", a.Name, xmlEscape(a.Value), a.Name)
	}
	fmt.Fprintf(&buf, "</u:%s></s:Body></s:Envelope>", actionName)
	return buf.Bytes()
}

// BuildActionResponse serialises a successful action response
// envelope, the shape a device-side dispatcher writes back to the
// caller (spec.md §4.6).
func BuildActionResponse(serviceType, actionName string, args []Argument) []byte {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	fmt.Fprintf(&buf, `<s:Envelope xmlns:s="%s" s:encodingStyle="%s"><s:Body><u:%sResponse xmlns:u="%s">`,
		envelopeNS, encodingNS, actionName, serviceType)
	for _, a := range args {
		fmt.Fprintf(&buf, "<%s>%s</%s>", a.Name, xmlEscape(a.Value), a.Name)
	}
	fmt.Fprintf(&buf, "</u:%sResponse></s:Body></s:Envelope>", actionName)
	return buf.Bytes()
}

// BuildFault serialises a SOAP fault carrying a UPnPError, the
// response a device-side dispatcher writes on action failure
// (spec.md §6).
func BuildFault(upnpErr *upnperror.UPnPError) []byte {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	fmt.Fprintf(&buf, `<s:Envelope xmlns:s="%s" s:encodingStyle="%s"><s:Body><s:Fault>`, envelopeNS, encodingNS)
	buf.WriteString("<faultcode>s:Client</faultcode><faultstring>UPnPError</faultstring><detail>")
	fmt.Fprintf(&buf, `<UPnPError xmlns="urn:schemas-upnp-org:control-1-0"><errorCode>%d</errorCode><errorDescription>%s</errorDescription></UPnPError>`,
		upnpErr.Code, xmlEscape(upnpErr.Description))
	buf.WriteString("</detail></s:Fault></s:Body></s:Envelope>")
	return buf.Bytes()
}

func xmlEscape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

// envelopeDoc is the generic shape used to parse an incoming envelope
// body before knowing whether it is an action call, an action
// response, or a fault.
type envelopeDoc struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Inner []byte `xml:",innerxml"`
	} `xml:"Body"`
}

// ParsedAction holds the decoded body of an action request.
type ParsedAction struct {
	ServiceType string
	ActionName  string
	Args        []Argument
}

// ParseAction parses an inbound action-request envelope (spec.md
// §4.6: the device reads <u:ActionName> and its argument children).
func ParseAction(body []byte) (*ParsedAction, error) {
	var env envelopeDoc
	if err := xml.Unmarshal(body, &env); err != nil {
		return nil, &upnperror.InvalidResponseError{Reason: err.Error()}
	}

	dec := xml.NewDecoder(bytes.NewReader(env.Body.Inner))
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, &upnperror.InvalidResponseError{Reason: "malformed action body"}
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		action := &ParsedAction{ActionName: start.Name.Local, ServiceType: start.Name.Space}
		for {
			innerTok, err := dec.Token()
			if err != nil {
				return nil, &upnperror.InvalidResponseError{Reason: "malformed action arguments"}
			}
			switch t := innerTok.(type) {
			case xml.StartElement:
				var val string
				if err := dec.DecodeElement(&val, &t); err != nil {
					return nil, &upnperror.InvalidResponseError{Reason: err.Error()}
				}
				action.Args = append(action.Args, Argument{Name: t.Name.Local, Value: val})
			case xml.EndElement:
				return action, nil
			}
		}
	}
}

// ParseActionResponse parses a successful action-response envelope
// body into its out-arguments.
func ParseActionResponse(body []byte) ([]Argument, error) {
	action, err := ParseAction(body)
	if err != nil {
		return nil, err
	}
	return action.Args, nil
}

// faultDoc mirrors the <s:Fault><detail><UPnPError> shape spec.md §6
// and §7 describe.
type faultDoc struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Fault struct {
			FaultCode   string `xml:"faultcode"`
			FaultString string `xml:"faultstring"`
			Detail      struct {
				UPnPError struct {
					ErrorCode        int    `xml:"errorCode"`
					ErrorDescription string `xml:"errorDescription"`
				} `xml:"UPnPError"`
			} `xml:"detail"`
		} `xml:"Fault"`
	} `xml:"Body"`
}

// ParseFault parses a SOAP fault body (always carried with HTTP status
// 500) into a *upnperror.UPnPError. If the body does not contain a
// recognisable UPnPError detail, it falls back to ActionFailedError.
func ParseFault(body []byte) *upnperror.UPnPError {
	var doc faultDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return upnperror.ActionFailedError()
	}
	code := doc.Body.Fault.Detail.UPnPError.ErrorCode
	if code == 0 {
		return upnperror.ActionFailedError()
	}
	return upnperror.NewUPnPError(upnperror.ErrorCode(code), doc.Body.Fault.Detail.UPnPError.ErrorDescription)
}
