package appconfig

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/mmk-ui-shell/internal/domain/logging"
)

func TestDocument_Defaults(t *testing.T) {
	tests := []struct {
		name string
		doc  *Document
	}{
		{name: "nil document", doc: nil},
		{name: "empty document", doc: &Document{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, tt.doc.Name())
			assert.Empty(t, tt.doc.Version())
			assert.Equal(t, logging.None, tt.doc.Level())
			assert.Equal(t, "localhost:8080/v1", tt.doc.API())
			assert.False(t, tt.doc.Auth().Enabled)

			_, ok := tt.doc.ConfiguredLevel()
			assert.False(t, ok)
		})
	}
}

func TestDocument_Unmarshal(t *testing.T) {
	raw := `{
		"logLevel": 3,
		"appName": "Merry Maker",
		"appVersion": "2.1.0",
		"apiUrl": "https://api.example.com",
		"apiVersion": "v2",
		"authConfig": {
			"enabled": true,
			"issuer": "https://login.example.com/realms/mmk",
			"clientId": "mmk-ui",
			"allowedUrls": ["https://api.example.com/v2/scans"],
			"showDebugInformation": true,
			"postLogoutUri": "https://shell.example.com/bye"
		}
	}`

	var doc Document
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))

	assert.Equal(t, "Merry Maker", doc.Name())
	assert.Equal(t, "2.1.0", doc.Version())
	assert.Equal(t, logging.Info, doc.Level())
	assert.Equal(t, "https://api.example.com/v2", doc.API())

	auth := doc.Auth()
	assert.True(t, auth.Enabled)
	assert.Equal(t, "mmk-ui", auth.ClientID)
	assert.Equal(t, "https://shell.example.com/bye", auth.PostLogoutURI)
	assert.Empty(t, auth.Resource)
}

func TestDocument_PartialAPI(t *testing.T) {
	url := "https://api.example.com/"
	doc := &Document{APIURL: &url}
	assert.Equal(t, "https://api.example.com/v1", doc.API())

	version := "v3"
	doc = &Document{APIVersion: &version}
	assert.Equal(t, "localhost:8080/v3", doc.API())
}

func TestAuthSettings_AllowsURL(t *testing.T) {
	s := AuthSettings{AllowedURLs: []string{"https://api.example.com/v1/scans", "https://API.example.com/v1/upper"}}

	tests := []struct {
		url  string
		want bool
	}{
		{url: "https://api.example.com/v1/scans", want: true},
		{url: "HTTPS://API.EXAMPLE.COM/V1/SCANS", want: true},
		{url: "https://api.example.com/v1/scans/1", want: false},
		{url: "https://api.example.com/v1/scans?page=2", want: false},
		{url: "https://api.example.com/v1/upper", want: false},
		{url: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, s.AllowsURL(tt.url))
		})
	}
}

func TestDocument_AuthReturnsCopy(t *testing.T) {
	doc := &Document{AuthConfig: &AuthSettings{AllowedURLs: []string{"a"}}}
	s := doc.Auth()
	s.AllowedURLs[0] = "b"
	assert.Equal(t, "a", doc.AuthConfig.AllowedURLs[0])
}
