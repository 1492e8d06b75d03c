// Package security hardens the HTTP clients used for vendor calls.
//
// Razorpay and Resend base URLs are configurable, so a bad value must not be
// able to reach internal infrastructure such as the instance metadata
// service. The guard runs at dial time against the address actually being
// connected to, which also covers DNS rebinding.
package security

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"syscall"
	"time"
)

// ErrBlockedAddress is returned when an outbound connection targets a
// private, loopback or otherwise internal address.
var ErrBlockedAddress = errors.New("outbound: connection to blocked address")

var blockedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("169.254.0.0/16"), // link-local, includes instance metadata
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("224.0.0.0/4"),
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
	netip.MustParsePrefix("::1/128"),
}

// IsBlocked reports whether addr falls in an internal range.
func IsBlocked(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range blockedPrefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// OutboundConfig configures NewOutboundClient.
type OutboundConfig struct {
	Timeout time.Duration

	// AllowPrivate disables the address guard. Local development and tests
	// point vendor base URLs at loopback servers.
	AllowPrivate bool
}

// NewOutboundClient returns an http.Client for vendor APIs. Redirects are
// never followed: neither gateway redirects and a redirect is the usual way
// around a host check.
func NewOutboundClient(cfg OutboundConfig) *http.Client {
	dialer := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}
	if !cfg.AllowPrivate {
		dialer.Control = guardDial
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// guardDial runs after DNS resolution with the concrete address.
func guardDial(_, address string, _ syscall.RawConn) error {
	ap, err := netip.ParseAddrPort(address)
	if err != nil {
		return fmt.Errorf("%w: unparseable address %q", ErrBlockedAddress, address)
	}
	if IsBlocked(ap.Addr()) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, ap.Addr())
	}
	return nil
}
