package util

import (
	"bufio"
	"io"
	"net/http"
	"strings"
)

const envHeaderPrefix = "HTTP_"

// HeaderNameFromEnv rebuilds a header name from its CGI variable form:
// HTTP_CONTENT_HMAC becomes Content-Hmac. ok is false for variables
// without the HTTP_ prefix.
func HeaderNameFromEnv(name string) (header string, ok bool) {
	if !strings.HasPrefix(name, envHeaderPrefix) || len(name) == len(envHeaderPrefix) {
		return "", false
	}

	words := strings.Split(strings.ToLower(name[len(envHeaderPrefix):]), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, "-"), true
}

// HeadersFromEnv collects the request headers from a CGI environment in
// os.Environ form. CONTENT_TYPE and CONTENT_LENGTH carry no HTTP_ prefix
// and are mapped explicitly.
func HeadersFromEnv(environ []string) http.Header {
	h := make(http.Header)
	for _, kv := range environ {
		name, value, found := strings.Cut(kv, "=")
		if !found {
			continue
		}
		switch name {
		case "CONTENT_TYPE":
			h.Set("Content-Type", value)
			continue
		case "CONTENT_LENGTH":
			h.Set("Content-Length", value)
			continue
		}
		if header, ok := HeaderNameFromEnv(name); ok {
			h.Set(header, value)
		}
	}
	return h
}

// ReadEnvDump parses a captured environment, one NAME=value per line.
// Blank lines and lines starting with # are skipped.
func ReadEnvDump(r io.Reader) ([]string, error) {
	var environ []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		environ = append(environ, line)
	}
	return environ, sc.Err()
}
