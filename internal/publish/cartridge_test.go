package publish_test

import (
	"encoding/xml"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lamb-project/lamb-lti/internal/publish"
)

// parsedCartridge matches elements by local name; the namespace prefixes in
// the generated document resolve to the IMS namespaces.
type parsedCartridge struct {
	XMLName     xml.Name `xml:"cartridge_basiclti_link"`
	Title       string   `xml:"title"`
	Description string   `xml:"description"`
	LaunchURL   string   `xml:"launch_url"`
	Custom      struct {
		Properties []parsedProperty `xml:"property"`
	} `xml:"custom"`
	Extensions struct {
		Platform   string           `xml:"platform,attr"`
		Properties []parsedProperty `xml:"property"`
	} `xml:"extensions"`
}

type parsedProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

func TestBuildCartridge(t *testing.T) {
	const launchURL = "https://lamb.example.com/simple_lti/launch"

	out, err := publish.BuildCartridge("Essay Coach", "feedback on essays", launchURL, "7")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, xml.Header))

	var c parsedCartridge
	require.NoError(t, xml.Unmarshal([]byte(out), &c))

	assert.Equal(t, "Essay Coach", c.Title)
	assert.Equal(t, "feedback on essays", c.Description)
	assert.Equal(t, launchURL, c.LaunchURL)

	require.Len(t, c.Custom.Properties, 1)
	assert.Equal(t, "assistant_id", c.Custom.Properties[0].Name)
	assert.Equal(t, "7", c.Custom.Properties[0].Value)

	assert.Equal(t, "canvas.instructure.com", c.Extensions.Platform)
	require.Len(t, c.Extensions.Properties, 1)
	assert.Equal(t, "privacy_level", c.Extensions.Properties[0].Name)
	assert.Equal(t, "public", c.Extensions.Properties[0].Value)

	// The referenced namespaces must all be declared.
	for _, ns := range []string{
		"http://www.imsglobal.org/xsd/imslticc_v1p0",
		"http://www.imsglobal.org/xsd/imsbasiclti_v1p0",
		"http://www.imsglobal.org/xsd/imslticm_v1p0",
		"http://www.imsglobal.org/xsd/imslticp_v1p0",
	} {
		assert.Contains(t, out, ns)
	}
}

func TestBuildCartridgeEscapesMetadata(t *testing.T) {
	out, err := publish.BuildCartridge(`Tools & "Tricks" <101>`, "", "https://x/launch", "3")
	require.NoError(t, err)

	var c parsedCartridge
	require.NoError(t, xml.Unmarshal([]byte(out), &c))
	assert.Equal(t, `Tools & "Tricks" <101>`, c.Title)
}
