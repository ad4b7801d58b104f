package handler

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIP finds the address a request came from. X-Forwarded-For and
// X-Real-IP are read only when the connection itself comes from a trusted
// proxy; otherwise the socket address is used.
type ClientIP struct {
	trusted []netip.Prefix
}

func NewClientIP(trusted []netip.Prefix) *ClientIP {
	return &ClientIP{trusted: trusted}
}

func (c *ClientIP) trusts(addr netip.Addr) bool {
	for _, p := range c.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// From returns the caller's address. The forwarded chain is walked from the
// nearest hop and the first address outside the trusted proxies wins.
func (c *ClientIP) From(r *http.Request) string {
	remote := remoteHost(r)
	if c == nil || len(c.trusted) == 0 {
		return remote
	}
	addr, err := netip.ParseAddr(remote)
	if err != nil || !c.trusts(addr.Unmap()) {
		return remote
	}

	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		hops := strings.Split(fwd, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			a, err := netip.ParseAddr(hop)
			if err != nil {
				return hop
			}
			if i == 0 || !c.trusts(a.Unmap()) {
				return a.Unmap().String()
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return remote
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
