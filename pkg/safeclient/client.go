// Package safeclient provides the outbound HTTP client used for Bot API
// calls and user-supplied file fetches. Every dial is validated after
// DNS resolution, so a hostname that resolves into a private or internal
// range is refused (SSRF / DNS-rebinding guard).
package safeclient

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"time"
)

// ErrForbiddenIP is returned when an IP address is in a forbidden range.
var ErrForbiddenIP = errors.New("connection to private/internal IP addresses is forbidden")

// forbiddenCIDRs are the ranges no outbound connection may target.
var forbiddenCIDRs = []string{
	// IPv4 private (RFC 1918)
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	// IPv4 loopback, link-local, multicast, broadcast
	"127.0.0.0/8",
	"169.254.0.0/16",
	"224.0.0.0/4",
	"255.255.255.255/32",
	// IPv4 carrier-grade NAT (RFC 6598), "this" network, TEST-NETs
	"100.64.0.0/10",
	"0.0.0.0/8",
	"192.0.2.0/24",
	"198.51.100.0/24",
	"203.0.113.0/24",
	// IPv6 loopback, unspecified, unique-local, link-local, site-local,
	// multicast, documentation
	"::1/128",
	"::/128",
	"fc00::/7",
	"fe80::/10",
	"fec0::/10",
	"ff00::/8",
	"2001:db8::/32",
}

var forbiddenNetworks = mustParseCIDRs(forbiddenCIDRs)

func mustParseCIDRs(cidrs []string) []*net.IPNet {
	networks := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("safeclient: bad CIDR %q: %v", cidr, err))
		}
		networks = append(networks, network)
	}
	return networks
}

// IsForbiddenIP reports whether an IP falls in a blocked range. A nil IP
// is forbidden. IPv4-mapped IPv6 addresses are checked as their IPv4
// form, so the mapping cannot be used to slip past the IPv4 ranges.
func IsForbiddenIP(ip net.IP) bool {
	if ip == nil {
		return true
	}
	if ipv4 := ip.To4(); ipv4 != nil {
		ip = ipv4
	}

	for _, network := range forbiddenNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// safeDialer validates the resolved address at connect time, after DNS,
// which is what defeats rebinding: checking the hostname's records up
// front would race a second resolution.
func safeDialer() *net.Dialer {
	return &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
		Control: func(network, address string, c syscall.RawConn) error {
			host, _, err := net.SplitHostPort(address)
			if err != nil {
				return fmt.Errorf("failed to parse address: %w", err)
			}

			ip := net.ParseIP(host)
			if ip == nil {
				return fmt.Errorf("invalid IP address: %s", host)
			}

			if IsForbiddenIP(ip) {
				return ErrForbiddenIP
			}
			return nil
		},
	}
}

// NewSafeHTTPClient creates an HTTP client with the dial guard and the
// given total-request timeout. The timeout covers the response body, so
// it must accommodate the largest upload the client will carry.
func NewSafeHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		DialContext:           safeDialer().DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			return nil
		},
	}
}
