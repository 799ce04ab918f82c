// Package orchestrator assembles company profiles: it decides which sources
// to consult for a query, fans out to them concurrently, merges partial or
// failed results into one best-effort profile, scores it and records
// provenance. No single source failure fails the overall request.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"kompas/internal/connectors/registry"
	"kompas/internal/connectors/sanctions"
	"kompas/internal/profile/audit"
	"kompas/internal/profile/metrics"
	"kompas/internal/profile/models"
	"kompas/internal/profile/normalize"
	"kompas/internal/profile/scoring"
	"kompas/pkg/platform/privacy"
)

// lookupTimeout bounds one full fan-out; individual adapters carry their own
// shorter HTTP timeouts.
const lookupTimeout = 20 * time.Second

// RegistryClient is the company-registry adapter consumed by the core.
type RegistryClient interface {
	Search(ctx context.Context, name string, filters registry.SearchFilters) ([]registry.SearchHit, error)
	GetProfileByID(ctx context.Context, id string) (*registry.Profile, error)
}

// SanctionsClient is the sanctions/PEP screening adapter consumed by the core.
type SanctionsClient interface {
	Search(ctx context.Context, name, schema string, datasets []string, limit int) ([]sanctions.Match, error)
}

// Cache provides single-flight cached fetches of assembled results.
type Cache interface {
	Fetch(ctx context.Context, key string, fn func(context.Context) (*models.ProfileResult, error)) (*models.ProfileResult, error)
}

// Service is the orchestration core.
type Service struct {
	registry  RegistryClient
	sanctions SanctionsClient
	cache     Cache
	scorer    scoring.Scorer
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs the orchestrator with its collaborators.
func New(reg RegistryClient, sanc SanctionsClient, cache Cache, scorer scoring.Scorer, opts ...Option) (*Service, error) {
	if reg == nil {
		return nil, errors.New("registry client is required")
	}
	if sanc == nil {
		return nil, errors.New("sanctions client is required")
	}
	if cache == nil {
		return nil, errors.New("cache is required")
	}
	if scorer == nil {
		return nil, errors.New("scorer is required")
	}
	s := &Service{registry: reg, sanctions: sanc, cache: cache, scorer: scorer}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// GetCompanyProfile returns a fully populated result for the query, served
// from cache when fresh. The only error paths are the caller's own context
// and internal invariant violations; upstream failures degrade sections
// instead of failing the call.
func (s *Service) GetCompanyProfile(ctx context.Context, q models.Query) (*models.ProfileResult, error) {
	norm := normalize.Normalize(q.Raw)
	key := normalize.CacheKey(q.Country, q.Raw, q.Premium)

	start := time.Now()
	res, err := s.cache.Fetch(ctx, key, func(fctx context.Context) (*models.ProfileResult, error) {
		return s.assemble(fctx, q, norm), nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveLookup(time.Since(start))
	return res, nil
}

// assemble performs one upstream fan-out and merge. It never fails: each
// adapter outcome either populates its section or leaves it at defaults with
// a degraded marker in the audit trail.
func (s *Service) assemble(ctx context.Context, q models.Query, norm models.NormalizedQuery) *models.ProfileResult {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	country := models.CountryCode(strings.ToUpper(strings.TrimSpace(string(q.Country))))
	res := &models.ProfileResult{
		Company: models.CompanyProfile{
			Country:  country,
			Status:   models.StatusUnknown,
			SBICodes: []models.SBICode{},
		},
		BasicChecks: models.BasicChecks{LastDataPull: time.Now().UTC()},
		Sanctions:   models.SanctionsSection{Matches: []models.Match{}},
	}
	b := audit.NewBuilder()

	// Registry and sanctions lookups are independent; issue both at once and
	// wait for both. The branches write disjoint sections of res.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.lookupRegistry(gctx, country, q, norm, res, b)
		return nil
	})
	g.Go(func() error {
		s.screenSanctions(gctx, norm, res, b)
		return nil
	})
	_ = g.Wait()

	if norm.IsVATNumber {
		vat := strings.ToUpper(norm.Raw)
		res.Company.VATNumber = &vat
	}

	// Static placeholders for signals without live sources yet.
	res.Risk = s.scorer.Score(res.Company, res.Sanctions, scoring.Signals{})
	res.Audit = b.Record()
	audit.Log(ctx, s.logger, res.Audit)
	return res
}

func (s *Service) lookupRegistry(ctx context.Context, country models.CountryCode, q models.Query, norm models.NormalizedQuery, res *models.ProfileResult, b *audit.Builder) {
	switch country {
	case "NL":
		if norm.IsRegistrationNumber && q.Premium {
			s.registryProfile(ctx, norm, res, b)
		} else {
			s.registrySearch(ctx, norm, res, b)
		}
	case "BE", "LU":
		// Connectors for these registries are not wired yet.
		b.AddSource("registry:skipped:" + strings.ToLower(string(country)))
	default:
		b.AddSource("registry:unsupported_country")
	}
}

func (s *Service) registryProfile(ctx context.Context, norm models.NormalizedQuery, res *models.ProfileResult, b *audit.Builder) {
	id := digitsOnly(norm.Raw)
	p, err := s.registry.GetProfileByID(ctx, id)
	if err != nil {
		s.degrade(ctx, "registry", err, b)
		return
	}

	res.Company.Name = nonEmpty(p.Name)
	res.Company.RegistrationNumber = nonEmpty(p.ID)
	res.Company.LegalForm = nonEmpty(p.LegalForm)
	res.Company.RegisteredAddress = nonEmpty(p.Address)
	res.Company.Status = mapStatus(p.Status)
	for _, sbi := range p.SBICodes {
		res.Company.SBICodes = append(res.Company.SBICodes, models.SBICode{
			Code:        sbi.Code,
			Description: sbi.Description,
			Primary:     sbi.Primary,
		})
	}
	res.BasicChecks.RegVerified = true
	b.RecordCall("registry_profile", models.CallOutcome{Fetched: true})
	b.AddSource("registry:profile:" + p.ID)
}

func (s *Service) registrySearch(ctx context.Context, norm models.NormalizedQuery, res *models.ProfileResult, b *audit.Builder) {
	hits, err := s.registry.Search(ctx, norm.NormalizedName, registry.SearchFilters{MaxResults: 10})
	if err != nil {
		s.degrade(ctx, "registry", err, b)
		return
	}
	b.RecordCall("registry_search", models.CallOutcome{ResultCount: len(hits)})

	if len(hits) != 1 {
		// Zero or multiple candidates: never guess. Record the ambiguity
		// count and leave the registry fields unset.
		b.AddSource(fmt.Sprintf("registry:search:ambiguous:%d", len(hits)))
		return
	}

	hit := hits[0]
	res.Company.Name = nonEmpty(hit.Name)
	res.Company.RegistrationNumber = nonEmpty(hit.ID)
	res.Company.LegalForm = nonEmpty(hit.LegalForm)
	res.Company.RegisteredAddress = nonEmpty(hit.Address)
	res.Company.Status = mapStatus(hit.Status)
	res.BasicChecks.RegVerified = true
	b.AddSource("registry:search:" + hit.ID)
}

func (s *Service) screenSanctions(ctx context.Context, norm models.NormalizedQuery, res *models.ProfileResult, b *audit.Builder) {
	matches, err := s.sanctions.Search(ctx, norm.NormalizedName, "LegalEntity", nil, 10)
	if err != nil {
		s.degrade(ctx, "sanctions", err, b)
		return
	}

	res.Sanctions.HitsCount = len(matches)
	for _, m := range matches {
		name := m.Caption
		if len(m.Properties.Names) > 0 {
			name = m.Properties.Names[0]
		}
		res.Sanctions.Matches = append(res.Sanctions.Matches, models.Match{
			Source:      "opensanctions",
			EntityID:    m.ID,
			Confidence:  clamp01(m.Score),
			MatchedName: name,
			Raw:         m.Raw,
		})
	}
	b.RecordCall("sanctions", models.CallOutcome{ResultCount: len(matches)})
	if len(matches) > 0 {
		b.AddSource("sanctions")
	}
}

// degrade downgrades an adapter failure to a degraded-section marker. The
// failure reason is redacted before it reaches the log sink.
func (s *Service) degrade(ctx context.Context, source string, err error, b *audit.Builder) {
	b.RecordDegraded(source)
	s.metrics.RecordDegraded(source)
	if s.logger != nil {
		s.logger.WarnContext(ctx, "source degraded",
			"source", source,
			"error", privacy.Redact(err.Error()),
		)
	}
}

func mapStatus(status string) models.CompanyStatus {
	switch strings.ToLower(status) {
	case "active", "actief":
		return models.StatusActive
	case "inactive", "inactief":
		return models.StatusInactive
	case "dissolved", "ontbonden":
		return models.StatusDissolved
	default:
		return models.StatusUnknown
	}
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
