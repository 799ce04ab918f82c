package orchestrator

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"kompas/internal/connectors"
	"kompas/internal/connectors/registry"
	"kompas/internal/connectors/sanctions"
	"kompas/internal/profile/cache"
	"kompas/internal/profile/models"
	"kompas/internal/profile/scoring"
)

// stubRegistry scripts the registry adapter per test.
type stubRegistry struct {
	searchHits    []registry.SearchHit
	searchErr     error
	searchCalls   atomic.Int64
	profile       *registry.Profile
	profileErr    error
	profileCalls  atomic.Int64
	lastProfileID string
}

func (r *stubRegistry) Search(_ context.Context, _ string, _ registry.SearchFilters) ([]registry.SearchHit, error) {
	r.searchCalls.Add(1)
	return r.searchHits, r.searchErr
}

func (r *stubRegistry) GetProfileByID(_ context.Context, id string) (*registry.Profile, error) {
	r.profileCalls.Add(1)
	r.lastProfileID = id
	return r.profile, r.profileErr
}

// stubSanctions scripts the screening adapter per test.
type stubSanctions struct {
	matches []sanctions.Match
	err     error
	calls   atomic.Int64
}

func (s *stubSanctions) Search(_ context.Context, _, _ string, _ []string, _ int) ([]sanctions.Match, error) {
	s.calls.Add(1)
	return s.matches, s.err
}

type OrchestratorSuite struct {
	suite.Suite
	ctx       context.Context
	registry  *stubRegistry
	sanctions *stubSanctions
	service   *Service
}

func TestOrchestratorSuite(t *testing.T) {
	suite.Run(t, new(OrchestratorSuite))
}

func (s *OrchestratorSuite) SetupTest() {
	s.ctx = context.Background()
	s.registry = &stubRegistry{}
	s.sanctions = &stubSanctions{}

	c := cache.New(cache.NewMemoryStore(), time.Hour, time.Minute)
	svc, err := New(s.registry, s.sanctions, c, scoring.NewScorer())
	s.Require().NoError(err)
	s.service = svc
}

func (s *OrchestratorSuite) lookup(q models.Query) *models.ProfileResult {
	res, err := s.service.GetCompanyProfile(s.ctx, q)
	s.Require().NoError(err)
	s.Require().NotNil(res)
	return res
}

// TestConstructor verifies collaborator nil-guards.
func (s *OrchestratorSuite) TestConstructor() {
	c := cache.New(cache.NewMemoryStore(), time.Hour, time.Minute)

	s.Run("nil registry client returns error", func() {
		_, err := New(nil, s.sanctions, c, scoring.NewScorer())
		s.Require().Error(err)
	})

	s.Run("nil sanctions client returns error", func() {
		_, err := New(s.registry, nil, c, scoring.NewScorer())
		s.Require().Error(err)
	})

	s.Run("nil cache returns error", func() {
		_, err := New(s.registry, s.sanctions, nil, scoring.NewScorer())
		s.Require().Error(err)
	})

	s.Run("nil scorer returns error", func() {
		_, err := New(s.registry, s.sanctions, c, nil)
		s.Require().Error(err)
	})
}

// TestNameSearch verifies the search path for free-text queries.
func (s *OrchestratorSuite) TestNameSearch() {
	s.Run("single hit populates the profile and verifies registration", func() {
		s.registry.searchHits = []registry.SearchHit{{
			ID: "68750110", Name: "Coolblue B.V.", Status: "active",
			Address: "Weena 664, Rotterdam", LegalForm: "Besloten Vennootschap",
		}}

		res := s.lookup(models.Query{Raw: "Coolblue", Country: "NL"})

		s.Require().NotNil(res.Company.Name)
		s.Equal("Coolblue B.V.", *res.Company.Name)
		s.Equal(models.StatusActive, res.Company.Status)
		s.True(res.BasicChecks.RegVerified)
		s.Contains(res.Audit.Sources, "registry:search:68750110")
		s.Equal(1, res.Audit.RawCalls["registry_search"].ResultCount)
	})

	s.Run("multiple hits stay unresolved with an ambiguity marker", func() {
		s.registry.searchHits = []registry.SearchHit{
			{ID: "1", Name: "Acme B.V."},
			{ID: "2", Name: "Acme Holding B.V."},
		}

		res := s.lookup(models.Query{Raw: "Acme", Country: "NL"})

		s.Nil(res.Company.Name)
		s.False(res.BasicChecks.RegVerified)
		s.Contains(res.Audit.Sources, "registry:search:ambiguous:2")
		s.Equal(2, res.Audit.RawCalls["registry_search"].ResultCount)
	})

	s.Run("zero hits are an empty section, not an error", func() {
		s.registry.searchHits = nil

		res := s.lookup(models.Query{Raw: "Nonexistent", Country: "NL"})

		s.Nil(res.Company.Name)
		s.Contains(res.Audit.Sources, "registry:search:ambiguous:0")
	})
}

// TestPremiumDirectLookup verifies registration numbers route to the direct
// profile endpoint for premium callers.
func (s *OrchestratorSuite) TestPremiumDirectLookup() {
	s.registry.profile = &registry.Profile{
		ID: "68750110", Name: "Coolblue B.V.", Status: "active",
		SBICodes: []registry.SBICode{{Code: "4791", Description: "Retail via internet", Primary: true}},
	}

	res := s.lookup(models.Query{Raw: "6875 0110", Country: "NL", Premium: true})

	s.Equal("68750110", s.registry.lastProfileID)
	s.Equal(int64(0), s.registry.searchCalls.Load())
	s.Require().NotNil(res.Company.RegistrationNumber)
	s.Equal("68750110", *res.Company.RegistrationNumber)
	s.Len(res.Company.SBICodes, 1)
	s.True(res.BasicChecks.RegVerified)
	s.Contains(res.Audit.Sources, "registry:profile:68750110")
	s.True(res.Audit.RawCalls["registry_profile"].Fetched)
}

// TestBasicTierUsesSearch verifies non-premium numeric queries stay on the
// search path.
func (s *OrchestratorSuite) TestBasicTierUsesSearch() {
	s.registry.searchHits = []registry.SearchHit{{ID: "68750110", Name: "Coolblue B.V."}}

	s.lookup(models.Query{Raw: "68750110", Country: "NL", Premium: false})

	s.Equal(int64(1), s.registry.searchCalls.Load())
	s.Equal(int64(0), s.registry.profileCalls.Load())
}

// TestCountryRouting verifies non-NL countries skip the registry entirely.
func (s *OrchestratorSuite) TestCountryRouting() {
	s.Run("BE is marked skipped", func() {
		res := s.lookup(models.Query{Raw: "Acme", Country: "be"})
		s.Contains(res.Audit.Sources, "registry:skipped:be")
		s.Equal(int64(0), s.registry.searchCalls.Load())
	})

	s.Run("unsupported country is marked as such", func() {
		res := s.lookup(models.Query{Raw: "Acme", Country: "DE"})
		s.Contains(res.Audit.Sources, "registry:unsupported_country")
		s.Equal(int64(0), s.registry.searchCalls.Load())
	})

	s.Run("sanctions screening still runs", func() {
		s.lookup(models.Query{Raw: "Other", Country: "LU"})
		s.NotZero(s.sanctions.calls.Load())
	})
}

// TestSanctionsScreening verifies hit conversion and scoring integration.
func (s *OrchestratorSuite) TestSanctionsScreening() {
	s.sanctions.matches = []sanctions.Match{{
		ID:      "Q42",
		Score:   1.7, // upstream scores can exceed 1, clamp them
		Caption: "Acme Sanctioned Ltd",
		Properties: sanctions.Properties{
			Names:  []string{"Acme Sanctioned Limited"},
			Topics: []string{"sanction"},
		},
		Raw: []byte(`{"properties":{"topics":["sanction"]}}`),
	}}

	res := s.lookup(models.Query{Raw: "Acme", Country: "NL"})

	s.Equal(1, res.Sanctions.HitsCount)
	s.Require().Len(res.Sanctions.Matches, 1)
	m := res.Sanctions.Matches[0]
	s.Equal("opensanctions", m.Source)
	s.Equal("Q42", m.EntityID)
	s.Equal(1.0, m.Confidence)
	s.Equal("Acme Sanctioned Limited", m.MatchedName)

	s.Equal(float64(55), res.Risk.Score) // 15 base + 40 sanction topic
	s.Contains(res.Audit.Sources, "sanctions")
}

// TestPartialFailure verifies one degraded source never fails the request.
func (s *OrchestratorSuite) TestPartialFailure() {
	s.Run("registry down still returns sanctions section", func() {
		s.registry.searchErr = connectors.ErrTimeout
		s.sanctions.matches = []sanctions.Match{{ID: "Q1", Score: 0.9, Caption: "Hit"}}

		res := s.lookup(models.Query{Raw: "Acme", Country: "NL"})

		s.Nil(res.Company.Name)
		s.Equal(1, res.Sanctions.HitsCount)
		s.True(res.Audit.RawCalls["registry_error"].Degraded)
	})

	s.Run("sanctions down still returns registry section", func() {
		s.registry.searchErr = nil
		s.registry.searchHits = []registry.SearchHit{{ID: "1", Name: "Acme B.V."}}
		s.sanctions.matches = nil
		s.sanctions.err = connectors.ErrRateLimited

		res := s.lookup(models.Query{Raw: "Acme Two", Country: "NL"})

		s.Require().NotNil(res.Company.Name)
		s.Equal(0, res.Sanctions.HitsCount)
		s.True(res.Audit.RawCalls["sanctions_error"].Degraded)
	})
}

// TestCaching verifies repeated identical queries hit the cache.
func (s *OrchestratorSuite) TestCaching() {
	s.registry.searchHits = []registry.SearchHit{{ID: "1", Name: "Acme B.V."}}

	s.lookup(models.Query{Raw: "Acme", Country: "NL"})
	s.lookup(models.Query{Raw: "acme", Country: "nl"}) // same logical query

	s.Equal(int64(1), s.registry.searchCalls.Load())
	s.Equal(int64(1), s.sanctions.calls.Load())

	s.Run("tier change misses the cache", func() {
		s.lookup(models.Query{Raw: "Acme", Country: "NL", Premium: true})
		s.Equal(int64(2), s.sanctions.calls.Load())
	})
}

// TestVATQuery verifies VAT-shaped queries are echoed into the profile.
func (s *OrchestratorSuite) TestVATQuery() {
	res := s.lookup(models.Query{Raw: "nl861966765", Country: "NL"})
	s.Require().NotNil(res.Company.VATNumber)
	s.Equal("NL861966765", *res.Company.VATNumber)
}
