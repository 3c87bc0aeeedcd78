// Package privacy reduces personal identifiers to forms safe for logs.
package privacy

import (
	"net/netip"
	"strings"
)

// AnonymizeIP keeps the /24 network of an IPv4 address or the /48 prefix of
// an IPv6 address. It returns "unknown" for empty input and "invalid" when
// the value does not parse.
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "invalid"
	}
	addr = addr.Unmap()

	bits := 48
	if addr.Is4() {
		bits = 24
	}
	prefix, err := addr.Prefix(bits)
	if err != nil {
		return "invalid"
	}
	return prefix.Addr().String()
}

// MaskIdentifier keeps the last four characters of an identifier such as an
// Aadhaar number or an SSO subject and masks the rest. Values of four
// characters or fewer are masked entirely.
func MaskIdentifier(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	r := []rune(v)
	if len(r) <= 4 {
		return strings.Repeat("*", len(r))
	}
	return strings.Repeat("*", len(r)-4) + string(r[len(r)-4:])
}
