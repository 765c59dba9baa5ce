package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderNameFromEnv(t *testing.T) {
	testCases := []struct {
		env    string
		header string
		ok     bool
	}{
		{env: "HTTP_CONTENT_HMAC", header: "Content-Hmac", ok: true},
		{env: "HTTP_X_FORWARDED_FOR", header: "X-Forwarded-For", ok: true},
		{env: "HTTP_HOST", header: "Host", ok: true},
		{env: "HTTP_USER_AGENT", header: "User-Agent", ok: true},
		{env: "HTTP_", ok: false},
		{env: "CONTENT_TYPE", ok: false},
		{env: "REMOTE_ADDR", ok: false},
	}

	for _, tc := range testCases {
		t.Run(tc.env, func(t *testing.T) {
			header, ok := HeaderNameFromEnv(tc.env)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.header, header)
		})
	}
}

func TestHeadersFromEnv(t *testing.T) {
	h := HeadersFromEnv([]string{
		"HTTP_CONTENT_HMAC=abc+/=",
		"CONTENT_TYPE=application/x-www-form-urlencoded",
		"CONTENT_LENGTH=42",
		"REQUEST_METHOD=POST",
		"MALFORMED",
	})

	// the value keeps its own '=' characters
	assert.Equal(t, "abc+/=", h.Get("Content-Hmac"))
	assert.Equal(t, "application/x-www-form-urlencoded", h.Get("Content-Type"))
	assert.Equal(t, "42", h.Get("Content-Length"))
	assert.Empty(t, h.Get("Request-Method"))
	assert.Len(t, h, 3)
}

func TestReadEnvDump(t *testing.T) {
	dump := `# captured from the CGI host
HTTP_CONTENT_HMAC=sig

REQUEST_METHOD=POST
`
	environ, err := ReadEnvDump(strings.NewReader(dump))
	require.NoError(t, err)
	assert.Equal(t, []string{"HTTP_CONTENT_HMAC=sig", "REQUEST_METHOD=POST"}, environ)
}
