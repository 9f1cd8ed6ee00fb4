package clientip

import (
	"net"
	"net/http"
	"strings"
)

// RealClientIP returns the client IP from r.RemoteAddr, which chi's RealIP
// middleware may already have replaced with a bare address from proxy headers.
func RealClientIP(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return strings.Trim(addr, "[]")
}

// LimitKey is the rate limiting identity of r: the IPv4 address, or the /64
// network for IPv6 since a single client can rotate addresses inside it.
func LimitKey(r *http.Request) string {
	ip := net.ParseIP(RealClientIP(r))
	switch {
	case ip == nil:
		return RealClientIP(r)
	case ip.To4() != nil:
		return ip.To4().String()
	default:
		return ip.Mask(net.CIDRMask(64, 128)).String() + "/64"
	}
}
