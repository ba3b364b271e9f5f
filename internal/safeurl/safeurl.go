// Package safeurl checks page and webhook URLs before adcover talks to them.
package safeurl

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strings"
)

var (
	// ErrUnsafeScheme is returned for anything but http and https.
	ErrUnsafeScheme = errors.New("safeurl: scheme must be http or https")
	// ErrPrivate is returned when a public-only URL targets a private,
	// loopback or link-local address.
	ErrPrivate = errors.New("safeurl: private address")
)

// Check reports whether rawURL is an absolute http(s) URL with a host.
func Check(rawURL string) error {
	_, err := parse(rawURL)
	return err
}

// CheckPublic is Check plus a resolution of the host: every address must be
// public. A failed lookup passes; the request will fail on its own.
func CheckPublic(ctx context.Context, rawURL string) error {
	u, err := parse(rawURL)
	if err != nil {
		return err
	}
	host := u.Hostname()
	if ip, err := netip.ParseAddr(host); err == nil {
		if private(ip) {
			return fmt.Errorf("%w: %s", ErrPrivate, host)
		}
		return nil
	}

	addrs, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return nil
	}
	for _, ip := range addrs {
		if private(ip) {
			return fmt.Errorf("%w: %s resolves to %s", ErrPrivate, host, ip)
		}
	}
	return nil
}

func parse(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("safeurl: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return nil, ErrUnsafeScheme
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("safeurl: %q has no host", rawURL)
	}
	return u, nil
}

func private(ip netip.Addr) bool {
	ip = ip.Unmap()
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified()
}
