// Package privacy provides PII redaction and keyed identifier hashing.
//
// Redact runs before any audit data crosses into logs; Hasher lets identifiers
// be correlated across log lines without ever storing the raw value.
package privacy

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
)

// Placeholder replaces every redacted substring.
const Placeholder = "[REDACTED]"

var piiPatterns = []*regexp.Regexp{
	// email addresses
	regexp.MustCompile(`[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+`),
	// phone-like digit runs, optionally prefixed with +
	regexp.MustCompile(`\+?\d[\d\-\s]{6,}\d`),
	// registry identifiers: country prefix followed by a long digit sequence
	regexp.MustCompile(`\b[A-Z]{2}\s*\d{8,}\b`),
}

// Redact replaces email-like, phone-like and registry-id-like substrings with
// the placeholder, leaving surrounding text intact.
func Redact(text string) string {
	if text == "" {
		return text
	}
	out := text
	for _, pat := range piiPatterns {
		out = pat.ReplaceAllString(out, Placeholder)
	}
	return out
}

// Hasher produces stable keyed hashes of identifiers for logging.
type Hasher struct {
	key []byte
}

// NewHasher creates a Hasher with the given secret key.
func NewHasher(key string) *Hasher {
	return &Hasher{key: []byte(key)}
}

// HashIdentifier returns a deterministic HMAC-SHA256 hex digest of value.
// Empty input hashes to the empty string so absent identifiers stay absent.
func (h *Hasher) HashIdentifier(value string) string {
	if value == "" {
		return ""
	}
	mac := hmac.New(sha256.New, h.key)
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}
