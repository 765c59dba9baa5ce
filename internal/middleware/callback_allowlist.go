package middleware

import (
	"net"
	"net/http"

	"go.uber.org/zap"
)

// rejectedBody is the gateway's decline acknowledgement
const rejectedBody = `{"code":13}`

// CallbackAllowlist restricts a callback endpoint to the gateway's source networks.
// An empty list lets every address through.
type CallbackAllowlist struct {
	allowed  []*net.IPNet
	clientIP func(r *http.Request) string
	logger   *zap.Logger
}

// NewCallbackAllowlist parses CIDRs or bare IPs. clientIP resolves the caller.
func NewCallbackAllowlist(cidrs []string, clientIP func(r *http.Request) string, logger *zap.Logger) (*CallbackAllowlist, error) {
	allowed, err := parseNetworks(cidrs)
	if err != nil {
		return nil, err
	}
	if clientIP == nil {
		clientIP = func(r *http.Request) string { return remoteHost(r.RemoteAddr) }
	}
	return &CallbackAllowlist{allowed: allowed, clientIP: clientIP, logger: logger}, nil
}

// Enabled reports whether any network is configured
func (a *CallbackAllowlist) Enabled() bool {
	return len(a.allowed) > 0
}

// Middleware answers 403 {"code":13} to callers outside the list
func (a *CallbackAllowlist) Middleware(next http.Handler) http.Handler {
	if !a.Enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := a.clientIP(r)
		if !contains(a.allowed, ip) {
			a.logger.Warn("Callback from address outside allowlist",
				zap.String("ip", ip),
				zap.String("path", r.URL.Path),
			)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(rejectedBody))
			return
		}
		next.ServeHTTP(w, r)
	})
}
