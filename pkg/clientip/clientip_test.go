package clientip

import (
	"net/http/httptest"
	"testing"
)

func TestRealClientIP(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		realIP string
		want   string
	}{
		{"direct peer", "10.0.0.7:51234", "", "10.0.0.7"},
		{"header from remote peer ignored", "10.0.0.7:51234", "1.2.3.4", "10.0.0.7"},
		{"header from local proxy", "127.0.0.1:40000", "192.168.1.20", "192.168.1.20"},
		{"local proxy bad header", "127.0.0.1:40000", "nope", "127.0.0.1"},
		{"ipv4 mapped", "[::ffff:10.0.0.9]:80", "", "10.0.0.9"},
		{"ipv6 loopback proxy", "[::1]:8080", "fd00::5", "fd00::5"},
		{"no port", "10.1.1.1", "", "10.1.1.1"},
		{"garbage", "pipe", "", "pipe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			if tt.realIP != "" {
				r.Header.Set("X-Real-IP", tt.realIP)
			}
			if got := RealClientIP(r); got != tt.want {
				t.Errorf("RealClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}
