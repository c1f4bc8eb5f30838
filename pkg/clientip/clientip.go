package clientip

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// RealClientIP returns the address a request is rate limited and logged by.
// Kiosk deployments sit behind a reverse proxy on the same host, so
// X-Real-IP is trusted only when the direct peer is loopback.
func RealClientIP(r *http.Request) string {
	peer := peerAddr(r.RemoteAddr)
	if peer.IsValid() && peer.IsLoopback() {
		if fwd, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
			return fwd.Unmap().String()
		}
	}
	if !peer.IsValid() {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return peer.String()
}

func peerAddr(remote string) netip.Addr {
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		host = remote
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(host))
	if err != nil {
		return netip.Addr{}
	}
	return addr.WithZone("").Unmap()
}
