// Package ssrf validates hostnames against private and loopback address
// ranges. Only literal IP hosts are checked; hostnames that resolve to
// internal addresses via DNS are not re-checked after resolution, which
// leaves a rebinding gap acknowledged as a known limitation.
package ssrf

import (
	"net"
	"strings"
)

// Prefixes that identify private or link-local IPv6 addresses.
var privateIPv6Prefixes = []string{"fe80:", "fec0:", "fc", "fd"}

// NormalizeHost lowercases a hostname, trims whitespace and trailing dots,
// and unwraps IPv6 brackets.
func NormalizeHost(host string) string {
	normalized := strings.ToLower(strings.TrimSpace(host))
	normalized = strings.TrimSuffix(normalized, ".")
	if strings.HasPrefix(normalized, "[") && strings.HasSuffix(normalized, "]") {
		normalized = normalized[1 : len(normalized)-1]
	}
	return normalized
}

// IsLoopbackHost reports whether the host names the local machine.
func IsLoopbackHost(host string) bool {
	normalized := NormalizeHost(host)
	return normalized == "localhost" || normalized == "::1" || normalized == "0.0.0.0"
}

// IsLiteralIP reports whether the host is a literal IPv4 or IPv6 address.
func IsLiteralIP(host string) bool {
	return net.ParseIP(NormalizeHost(host)) != nil
}

// isPrivateIPv4 checks the reserved IPv4 ranges:
// 0.0.0.0/8, 10.0.0.0/8, 127.0.0.0/8, 169.254.0.0/16,
// 172.16.0.0/12 and 192.168.0.0/16.
func isPrivateIPv4(ip net.IP) bool {
	octet1 := ip[0]
	octet2 := ip[1]

	if octet1 == 0 {
		return true
	}
	if octet1 == 10 {
		return true
	}
	if octet1 == 127 {
		return true
	}
	if octet1 == 169 && octet2 == 254 {
		return true
	}
	if octet1 == 172 && octet2 >= 16 && octet2 <= 31 {
		return true
	}
	if octet1 == 192 && octet2 == 168 {
		return true
	}
	return false
}

// IsPrivateHost reports whether the host is a literal IP inside a
// private, loopback or link-local range. Non-IP hostnames return false.
func IsPrivateHost(host string) bool {
	normalized := NormalizeHost(host)
	if normalized == "" {
		return false
	}

	ip := net.ParseIP(normalized)
	if ip == nil {
		return false
	}

	if v4 := ip.To4(); v4 != nil {
		return isPrivateIPv4(v4)
	}

	// IPv6 loopback and unspecified.
	if ip.IsLoopback() || ip.IsUnspecified() {
		return true
	}
	for _, prefix := range privateIPv6Prefixes {
		if strings.HasPrefix(ip.String(), prefix) {
			return true
		}
	}
	return false
}
