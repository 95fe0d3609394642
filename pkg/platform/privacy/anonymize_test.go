package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnonymizeIP(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"ipv4 standard address", "192.168.1.47", "192.168.1.0"},
		{"ipv4 localhost", "127.0.0.1", "127.0.0.0"},
		{"ipv4-mapped ipv6", "::ffff:203.0.113.9", "203.0.113.0"},
		{"ipv6 compressed address", "2001:db8:85a3::8a2e:370:7334", "2001:0db8:85a3::"},
		{"ipv6 loopback", "::1", "0000:0000:0000::"},
		{"empty string", "", "unknown"},
		{"unknown sentinel", "unknown", "unknown"},
		{"garbage", "not-an-ip", "invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AnonymizeIP(tt.input))
		})
	}
}

func TestAnonymizeFingerprint(t *testing.T) {
	assert.Equal(t, "198.51.100.0-3k9x1", AnonymizeFingerprint("198.51.100.23-3k9x1"))
	assert.Equal(t, "unknown-3k9x1", AnonymizeFingerprint("unknown-3k9x1"))
	assert.Equal(t, "2001:0db8:0000::-zz", AnonymizeFingerprint("2001:db8::1-zz"))
	assert.Equal(t, "invalid", AnonymizeFingerprint("nohash"))
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "a***@example.com", MaskEmail("alice@example.com"))
	assert.Equal(t, "b***@example.org", MaskEmail(" b@example.org "))
	assert.Equal(t, "invalid", MaskEmail("no-at-sign"))
	assert.Equal(t, "invalid", MaskEmail("@example.com"))
}
