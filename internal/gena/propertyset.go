package gena

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/strefethen/upnp-av-go/internal/upnperror"
)

// Property is one name/value pair carried inside a NOTIFY body's
// <e:propertyset>, matching the shape strefethen's events/parser.go
// turns into its Properties map.
type Property struct {
	Name  string
	Value string
}

type propertysetDoc struct {
	XMLName    xml.Name `xml:"propertyset"`
	Properties []struct {
		Inner []byte `xml:",innerxml"`
	} `xml:"property"`
}

// ParsePropertySet decodes a GENA NOTIFY body's
// <e:propertyset><e:property><Name>Value</Name></e:property>...
// sequence into an ordered list of properties (spec.md §4.4, §4.6).
func ParsePropertySet(body []byte) ([]Property, error) {
	var doc propertysetDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, &upnperror.InvalidResponseError{Reason: err.Error()}
	}

	var props []Property
	for _, p := range doc.Properties {
		dec := xml.NewDecoder(bytes.NewReader(p.Inner))
		tok, err := dec.Token()
		if err != nil {
			continue
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		var val string
		if err := dec.DecodeElement(&val, &start); err != nil {
			return nil, &upnperror.InvalidResponseError{Reason: err.Error()}
		}
		props = append(props, Property{Name: start.Name.Local, Value: val})
	}
	return props, nil
}

// BuildPropertySet serialises an outbound NOTIFY body from a set of
// properties, the shape a device-side publisher sends to subscribers
// (spec.md §4.6).
func BuildPropertySet(props []Property) []byte {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString(`<e:propertyset xmlns:e="urn:schemas-upnp-org:event-1-0">`)
	for _, p := range props {
		var esc bytes.Buffer
		_ = xml.EscapeText(&esc, []byte(p.Value))
		fmt.Fprintf(&buf, "<e:property><%s>%s</%s></e:property>", p.Name, esc.String(), p.Name)
	}
	buf.WriteString("</e:propertyset>")
	return buf.Bytes()
}
