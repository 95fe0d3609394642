// Package privacy keeps client IPs and email addresses out of logs and audit
// records in identifiable form.
package privacy

import (
	"fmt"
	"net/netip"
	"strings"
)

// AnonymizeIP truncates an IP address to its network portion: IPv4 to /24
// ("192.168.1.47" -> "192.168.1.0") and IPv6 to /48
// ("2001:db8:85a3::8a2e:370:7334" -> "2001:0db8:85a3::").
//
// Returns "unknown" for empty input or the "unknown" sentinel, and "invalid"
// for anything unparseable.
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}

	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "invalid"
	}
	addr = addr.Unmap()

	if addr.Is4() {
		v4 := addr.As4()
		return fmt.Sprintf("%d.%d.%d.0", v4[0], v4[1], v4[2])
	}

	v6 := addr.As16()
	return fmt.Sprintf("%02x%02x:%02x%02x:%02x%02x::",
		v6[0], v6[1],
		v6[2], v6[3],
		v6[4], v6[5])
}

// AnonymizeFingerprint anonymizes the IP portion of a rate-limit fingerprint
// ("<ip>-<uahash>") and keeps the user-agent hash, which is already opaque.
func AnonymizeFingerprint(fingerprint string) string {
	idx := strings.LastIndex(fingerprint, "-")
	if idx < 0 {
		return AnonymizeIP(fingerprint)
	}
	return AnonymizeIP(fingerprint[:idx]) + "-" + fingerprint[idx+1:]
}

// MaskEmail keeps the first character of the local part and the domain:
// "alice@example.com" -> "a***@example.com".
func MaskEmail(email string) string {
	local, domain, ok := strings.Cut(strings.TrimSpace(email), "@")
	if !ok || local == "" || domain == "" {
		return "invalid"
	}
	return local[:1] + "***@" + domain
}
