// Package fingerprint derives the client identifier rate limits are keyed by.
package fingerprint

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/mssola/useragent"
)

// UnknownIP stands in when no proxy header names the client.
const UnknownIP = "unknown"

// FromRequest returns ip + "-" + hash(User-Agent). The IP is the first
// X-Forwarded-For entry, else X-Real-IP, else UnknownIP. Collisions are
// tolerated; this is a throttling heuristic, not an authentication factor.
func FromRequest(r *http.Request) string {
	return Compute(ClientIP(r), r.UserAgent())
}

func Compute(ip, userAgent string) string {
	return ip + "-" + HashUserAgent(userAgent)
}

// ClientIP reads the proxy-supplied client address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return UnknownIP
}

// HashUserAgent is xxhash64 rendered in base 36.
func HashUserAgent(userAgent string) string {
	return strconv.FormatUint(xxhash.Sum64String(userAgent), 36)
}

// Describe renders a user agent as "Browser on OS" for log lines.
func Describe(userAgent string) string {
	if userAgent == "" {
		return "Unknown Device"
	}
	ua := useragent.New(userAgent)
	if ua.Bot() {
		name, _ := ua.Browser()
		if name == "" {
			return "Bot"
		}
		return name + " (bot)"
	}

	browser, _ := ua.Browser()
	os := ua.OS()
	if ua.Mobile() {
		if platform := ua.Platform(); platform != "" {
			os = platform
		}
	}
	if browser == "" {
		browser = "Unknown Browser"
	}
	if os == "" {
		os = "Unknown OS"
	}
	return strings.TrimSpace(browser + " on " + os)
}
