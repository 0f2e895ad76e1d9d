package device

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

// StateVariable is one <stateVariable> entry from a service's SCPD
// document, matching the shape ServiceClientBase collects in
// m_stateVariables before Traits translate its name.
type StateVariable struct {
	Name         string
	DataType     string
	SendEvents   bool
	DefaultValue string
	AllowedValues []string
}

// SCPD is the parsed Service Control Protocol Description: the set of
// supported actions and state variables a service advertises.
type SCPD struct {
	Actions        map[string]bool
	StateVariables []StateVariable
}

// SupportsAction reports whether the SCPD advertises the named action.
func (s *SCPD) SupportsAction(name string) bool {
	return s.Actions[name]
}

type scpdDoc struct {
	XMLName    xml.Name `xml:"scpd"`
	ActionList struct {
		Action []struct {
			Name string `xml:"name"`
		} `xml:"action"`
	} `xml:"actionList"`
	ServiceStateTable struct {
		StateVariable []struct {
			SendEvents   string `xml:"sendEvents,attr"`
			Name         string `xml:"name"`
			DataType     string `xml:"dataType"`
			DefaultValue string `xml:"defaultValue"`
			AllowedValueList struct {
				AllowedValue []string `xml:"allowedValue"`
			} `xml:"allowedValueList"`
		} `xml:"stateVariable"`
	} `xml:"serviceStateTable"`
}

// ParseSCPD parses a service's SCPD document (spec.md §3's
// "Supplemented Feature: SCPD action-set parsing").
func ParseSCPD(data []byte) (*SCPD, error) {
	var doc scpdDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse scpd: %w", err)
	}

	scpd := &SCPD{Actions: make(map[string]bool)}
	for _, a := range doc.ActionList.Action {
		scpd.Actions[a.Name] = true
	}
	for _, v := range doc.ServiceStateTable.StateVariable {
		scpd.StateVariables = append(scpd.StateVariables, StateVariable{
			Name:          v.Name,
			DataType:      v.DataType,
			SendEvents:    v.SendEvents == "yes",
			DefaultValue:  v.DefaultValue,
			AllowedValues: v.AllowedValueList.AllowedValue,
		})
	}
	return scpd, nil
}

// BuildSCPD renders a service's SCPD document from its action names
// and state variable table, the document the root device serves at a
// service's SCPDURL.
func BuildSCPD(actions []string, variables []StateVariable) []byte {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString(`<scpd xmlns="urn:schemas-upnp-org:service-1-0"><specVersion><major>1</major><minor>0</minor></specVersion>`)

	buf.WriteString("<actionList>")
	for _, name := range actions {
		fmt.Fprintf(&buf, "<action><name>%s</name></action>", xmlEscapeText(name))
	}
	buf.WriteString("</actionList>")

	buf.WriteString("<serviceStateTable>")
	for _, v := range variables {
		sendEvents := "no"
		if v.SendEvents {
			sendEvents = "yes"
		}
		fmt.Fprintf(&buf, `<stateVariable sendEvents="%s"><name>%s</name><dataType>%s</dataType>`, sendEvents, xmlEscapeText(v.Name), xmlEscapeText(v.DataType))
		if v.DefaultValue != "" {
			fmt.Fprintf(&buf, "<defaultValue>%s</defaultValue>", xmlEscapeText(v.DefaultValue))
		}
		if len(v.AllowedValues) > 0 {
			buf.WriteString("<allowedValueList>")
			for _, av := range v.AllowedValues {
				fmt.Fprintf(&buf, "<allowedValue>%s</allowedValue>", xmlEscapeText(av))
			}
			buf.WriteString("</allowedValueList>")
		}
		buf.WriteString("</stateVariable>")
	}
	buf.WriteString("</serviceStateTable></scpd>")
	return buf.Bytes()
}

func xmlEscapeText(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
