// Package hostutil validates user-supplied mixer host names.
package hostutil

import (
	"fmt"
	"net"
	"strings"
	"unicode"
)

// ValidateHost accepts a dotted-quad IPv4, an IPv6 literal or an RFC 1123
// hostname. Ports are not allowed.
func ValidateHost(raw string) error {
	switch {
	case looksLikeIPv4(raw):
		if ip := net.ParseIP(raw); ip == nil || ip.To4() == nil {
			return fmt.Errorf("bad IPv4: %q", raw)
		}
	case strings.Contains(raw, ":"):
		if ip := net.ParseIP(strings.Trim(raw, "[]")); ip == nil || ip.To4() != nil {
			return fmt.Errorf("bad IPv6: %q", raw)
		}
	default:
		if !validHostname(raw) {
			return fmt.Errorf("bad hostname: %q", raw)
		}
	}
	return nil
}

func looksLikeIPv4(raw string) bool {
	parts := strings.Split(raw, ".")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
		for _, r := range p {
			if !unicode.IsDigit(r) {
				return false
			}
		}
	}
	return true
}

func validHostname(raw string) bool {
	if raw == "" || len(raw) > 253 {
		return false
	}
	for _, label := range strings.Split(raw, ".") {
		if len(label) < 1 || len(label) > 63 {
			return false
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for _, r := range label {
			if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-') {
				return false
			}
		}
	}
	return true
}
