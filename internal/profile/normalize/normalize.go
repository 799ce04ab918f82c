// Package normalize classifies raw queries and derives canonical cache keys.
// Everything here is pure: no I/O, no failure modes, empty input is a valid
// low-information query.
package normalize

import (
	"fmt"
	"strings"
	"unicode"

	"kompas/internal/profile/models"
)

// Normalize classifies a raw query string. The two classification flags may
// both be false (free-text name) but are derived independently; the ambiguity
// is deliberate and consumers must not force-exclusive them.
func Normalize(raw string) models.NormalizedQuery {
	trimmed := strings.TrimSpace(raw)
	return models.NormalizedQuery{
		Raw:                  trimmed,
		IsRegistrationNumber: isRegistrationNumber(trimmed),
		IsVATNumber:          isVATNumber(trimmed),
		NormalizedName:       strings.ToLower(trimmed),
	}
}

// isRegistrationNumber reports whether the string, with whitespace stripped,
// is a non-empty run of digits.
func isRegistrationNumber(s string) bool {
	stripped := stripWhitespace(s)
	return stripped != "" && allDigits(stripped)
}

// isVATNumber reports whether the string starts with two letters followed by
// digits (whitespace-insensitive in the digit part).
func isVATNumber(s string) bool {
	if len(s) <= 2 {
		return false
	}
	runes := []rune(s)
	if !unicode.IsLetter(runes[0]) || !unicode.IsLetter(runes[1]) {
		return false
	}
	rest := stripWhitespace(string(runes[2:]))
	return rest != "" && allDigits(rest)
}

func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// CacheKey derives the request fingerprint. It is a pure function of
// (country, raw query, premium flag): case and whitespace are normalized
// identically on every call so equal logical queries collapse to one row.
func CacheKey(country models.CountryCode, raw string, premium bool) string {
	tier := "basic"
	if premium {
		tier = "premium"
	}
	cc := strings.ToUpper(strings.TrimSpace(string(country)))
	q := strings.ToLower(strings.TrimSpace(raw))
	return fmt.Sprintf("profile:%s:%s:%s", cc, q, tier)
}
