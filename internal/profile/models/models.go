// Package models holds the normalized shapes exchanged between the
// orchestrator, connectors, cache and HTTP layer. Keep it free of behavior so
// every layer can depend on it without cycles.
package models

import (
	"encoding/json"
	"time"
)

// CountryCode is an ISO 3166-1 alpha-2 country code, upper-cased.
type CountryCode string

// CompanyStatus enumerates registry lifecycle states. Unset stays unknown,
// never guessed.
type CompanyStatus string

const (
	StatusUnknown   CompanyStatus = "unknown"
	StatusActive    CompanyStatus = "active"
	StatusInactive  CompanyStatus = "inactive"
	StatusDissolved CompanyStatus = "dissolved"
)

// Query is the request as received, immutable once constructed.
type Query struct {
	Raw            string      `json:"query"`
	Country        CountryCode `json:"country"`
	Premium        bool        `json:"premium"`
	IncludeHistory bool        `json:"includeHistory"`
}

// NormalizedQuery is Query.Raw classified and canonicalized. The flags are not
// mutually exclusive: a purely numeric string is not VAT-shaped and a VAT id
// is not registration-shaped, but both can be false for free-text names.
type NormalizedQuery struct {
	Raw                  string
	IsRegistrationNumber bool
	IsVATNumber          bool
	NormalizedName       string
}

// SBICode is one standardized industry classification entry.
type SBICode struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Primary     bool   `json:"primary"`
}

// CompanyProfile is populated incrementally from zero-or-more adapter results.
// Pointer fields remain null when no source supplied them.
type CompanyProfile struct {
	Name               *string       `json:"name"`
	Country            CountryCode   `json:"country"`
	RegistrationNumber *string       `json:"registrationNumber"`
	VATNumber          *string       `json:"vatNumber"`
	Status             CompanyStatus `json:"status"`
	RegisteredAddress  *string       `json:"registeredAddress"`
	LegalForm          *string       `json:"legalForm"`
	SBICodes           []SBICode     `json:"sbiCodes"`
}

// Match is one sanctions/PEP screening hit.
type Match struct {
	Source      string          `json:"source"`
	EntityID    string          `json:"entityId"`
	Confidence  float64         `json:"confidence"`
	MatchedName string          `json:"matchedName"`
	Raw         json.RawMessage `json:"raw,omitempty"`
}

// SanctionsSection aggregates screening hits. Zero matches is a successful
// screen, not an error.
type SanctionsSection struct {
	HitsCount int     `json:"hitsCount"`
	Matches   []Match `json:"matches"`
}

// RiskResult is produced once per request by the risk scorer.
type RiskResult struct {
	Score      float64        `json:"score"`
	Reasons    []string       `json:"reasons"`
	Provenance map[string]any `json:"provenance"`
}

// BasicChecks summarizes verification outcomes alongside the profile.
type BasicChecks struct {
	VATValid     *bool     `json:"vatValid"`
	RegVerified  bool      `json:"regVerified"`
	LastDataPull time.Time `json:"lastDataPull"`
}

// CallOutcome is a redacted summary of one upstream call. Only booleans and
// counts; raw response bodies and query text never land here.
type CallOutcome struct {
	Fetched     bool `json:"fetched,omitempty"`
	ResultCount int  `json:"resultCount,omitempty"`
	Degraded    bool `json:"degraded,omitempty"`
}

// AuditRecord captures which sources were consulted during one orchestrator
// invocation and how each call went.
type AuditRecord struct {
	Sources  []string               `json:"sources"`
	RawCalls map[string]CallOutcome `json:"rawCalls"`
}

// ProfileResult is the fully assembled response and the unit of caching.
type ProfileResult struct {
	Company     CompanyProfile   `json:"company"`
	BasicChecks BasicChecks      `json:"basicChecks"`
	Sanctions   SanctionsSection `json:"sanctions"`
	Risk        RiskResult       `json:"riskScore"`
	Audit       AuditRecord      `json:"audit"`
}
