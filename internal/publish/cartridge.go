package publish

import (
	"bytes"
	"encoding/xml"
)

// IMS LTI v1p0 basic cartridge, the XML an LMS admin pastes or uploads when
// registering the tool. Canvas reads the privacy_level extension so it sends
// name/email fields with each launch.

const (
	xmlnsCC    = "http://www.imsglobal.org/xsd/imslticc_v1p0"
	xmlnsBLTI  = "http://www.imsglobal.org/xsd/imsbasiclti_v1p0"
	xmlnsLTICM = "http://www.imsglobal.org/xsd/imslticm_v1p0"
	xmlnsLTICP = "http://www.imsglobal.org/xsd/imslticp_v1p0"
	xmlnsXSI   = "http://www.w3.org/2001/XMLSchema-instance"

	schemaLocation = xmlnsCC + " http://www.imsglobal.org/xsd/lti/ltiv1p0/imslticc_v1p0.xsd " +
		xmlnsBLTI + " http://www.imsglobal.org/xsd/lti/ltiv1p0/imsbasiclti_v1p0.xsd " +
		xmlnsLTICM + " http://www.imsglobal.org/xsd/lti/ltiv1p0/imslticm_v1p0.xsd " +
		xmlnsLTICP + " http://www.imsglobal.org/xsd/lti/ltiv1p0/imslticp_v1p0.xsd"
)

type cartridge struct {
	XMLName        xml.Name   `xml:"cartridge_basiclti_link"`
	XmlnsCC        string     `xml:"xmlns,attr"`
	XmlnsBLTI      string     `xml:"xmlns:blti,attr"`
	XmlnsLTICM     string     `xml:"xmlns:lticm,attr"`
	XmlnsLTICP     string     `xml:"xmlns:lticp,attr"`
	XmlnsXSI       string     `xml:"xmlns:xsi,attr"`
	SchemaLocation string     `xml:"xsi:schemaLocation,attr"`
	Title          string     `xml:"blti:title"`
	Description    string     `xml:"blti:description"`
	LaunchURL      string     `xml:"blti:launch_url"`
	Custom         custom     `xml:"blti:custom"`
	Extensions     extensions `xml:"blti:extensions"`
}

type custom struct {
	Properties []property `xml:"lticm:property"`
}

type extensions struct {
	Platform   string     `xml:"platform,attr"`
	Properties []property `xml:"lticm:property"`
}

type property struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

// BuildCartridge renders the cartridge XML for a published assistant.
func BuildCartridge(title, description, launchURL, assistantID string) (string, error) {
	c := cartridge{
		XmlnsCC:        xmlnsCC,
		XmlnsBLTI:      xmlnsBLTI,
		XmlnsLTICM:     xmlnsLTICM,
		XmlnsLTICP:     xmlnsLTICP,
		XmlnsXSI:       xmlnsXSI,
		SchemaLocation: schemaLocation,
		Title:          title,
		Description:    description,
		LaunchURL:      launchURL,
		Custom: custom{Properties: []property{
			{Name: "assistant_id", Value: assistantID},
		}},
		Extensions: extensions{
			Platform: "canvas.instructure.com",
			Properties: []property{
				{Name: "privacy_level", Value: "public"},
			},
		},
	}
	buf := new(bytes.Buffer)
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(buf)
	enc.Indent("", "  ")
	if err := enc.Encode(c); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	buf.WriteByte('\n')
	return buf.String(), nil
}
