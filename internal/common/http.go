package common

import (
	"net/http"
	"net/netip"
	"strings"
)

// ClientIP returns the caller address from r.RemoteAddr without the port.
// Proxy headers are resolved into RemoteAddr by chi's RealIP middleware,
// which runs first in the router.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	raw := strings.TrimSpace(r.RemoteAddr)
	if ap, err := netip.ParseAddrPort(raw); err == nil {
		return ap.Addr().Unmap().String()
	}
	if addr, err := netip.ParseAddr(strings.Trim(raw, "[]")); err == nil {
		return addr.Unmap().String()
	}
	return raw
}

// BearerToken returns the credentials of an "Authorization: Bearer <token>"
// header, or "" for any other scheme.
func BearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
