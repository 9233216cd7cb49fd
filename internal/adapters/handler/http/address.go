package http

import (
	"net"
	"net/http"
	"strings"
)

// AddressResolver extracts the raw client address of a request. The value
// may still be a proxy chain; callers normalize it with
// domain.NormalizeAddress.
type AddressResolver struct {
	TrustForwardedFor bool
}

func (a AddressResolver) Resolve(r *http.Request) string {
	if a.TrustForwardedFor {
		if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
			return xff
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
