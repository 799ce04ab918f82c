package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"kompas/internal/connectors"
	"kompas/internal/platform/config"
)

type RegistryClientSuite struct {
	suite.Suite
	ctx context.Context
}

func TestRegistryClientSuite(t *testing.T) {
	suite.Run(t, new(RegistryClientSuite))
}

func (s *RegistryClientSuite) SetupTest() {
	s.ctx = context.Background()
}

func (s *RegistryClientSuite) newClient(srv *httptest.Server) *Client {
	return New(config.AdapterConfig{
		BaseURL: srv.URL,
		APIKey:  "test-api-key",
		Timeout: 5 * time.Second,
	}, nil)
}

// TestSearch verifies search request shaping and response mapping.
func (s *RegistryClientSuite) TestSearch() {
	s.Run("maps vendor fields onto normalized hits", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.Equal("/v2/zoeken", r.URL.Path)
			s.Equal("coolblue", r.URL.Query().Get("naam"))
			s.Equal("5", r.URL.Query().Get("resultatenPerPagina"))
			s.Equal("test-api-key", r.Header.Get("apikey"))

			w.Write([]byte(`{"resultaten":[{
				"kvkNummer":"68750110",
				"naam":"Coolblue B.V.",
				"type":"rechtspersoon",
				"adres":{"binnenlandsAdres":{"straatnaam":"Weena","plaats":"Rotterdam"}}
			}]}`))
		}))
		defer srv.Close()

		hits, err := s.newClient(srv).Search(s.ctx, "coolblue", SearchFilters{MaxResults: 5})
		s.Require().NoError(err)
		s.Require().Len(hits, 1)
		s.Equal("68750110", hits[0].ID)
		s.Equal("Coolblue B.V.", hits[0].Name)
		s.Equal("Weena Rotterdam", hits[0].Address)
	})

	s.Run("zero results is success", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"resultaten":[]}`))
		}))
		defer srv.Close()

		hits, err := s.newClient(srv).Search(s.ctx, "nonexistent", SearchFilters{})
		s.Require().NoError(err)
		s.Empty(hits)
	})
}

// TestGetProfileByID verifies the direct lookup mapping, including the
// end-of-registration status signal.
func (s *RegistryClientSuite) TestGetProfileByID() {
	s.Run("maps an active company", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.Equal("/v1/basisprofielen/68750110", r.URL.Path)
			w.Write([]byte(`{
				"kvkNummer":"68750110",
				"naam":"Coolblue B.V.",
				"_embedded":{"hoofdvestiging":{
					"rechtsvorm":"Besloten Vennootschap",
					"adressen":[{"straatnaam":"Weena","huisnummer":"664","postcode":"3012CN","plaats":"Rotterdam"}]
				}},
				"sbiActiviteiten":[{"sbiCode":"4791","sbiOmschrijving":"Detailhandel via internet","indHoofdactiviteit":"Ja"}]
			}`))
		}))
		defer srv.Close()

		p, err := s.newClient(srv).GetProfileByID(s.ctx, "68750110")
		s.Require().NoError(err)
		s.Equal("Coolblue B.V.", p.Name)
		s.Equal("active", p.Status)
		s.Equal("Weena 664 3012CN Rotterdam", p.Address)
		s.Require().Len(p.SBICodes, 1)
		s.True(p.SBICodes[0].Primary)
	})

	s.Run("end-of-registration date means dissolved", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"kvkNummer":"12345678","naam":"Gone B.V.","materieleRegistratie":{"datumEinde":"20230401"}}`))
		}))
		defer srv.Close()

		p, err := s.newClient(srv).GetProfileByID(s.ctx, "12345678")
		s.Require().NoError(err)
		s.Equal("dissolved", p.Status)
	})
}

// TestErrorClassification verifies HTTP statuses map to sentinel errors.
func (s *RegistryClientSuite) TestErrorClassification() {
	s.Run("404 maps to ErrNotFound", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		_, err := s.newClient(srv).GetProfileByID(s.ctx, "00000000")
		s.ErrorIs(err, connectors.ErrNotFound)
	})

	s.Run("429 maps to ErrRateLimited without retrying", func() {
		var attempts atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			attempts.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		_, err := s.newClient(srv).Search(s.ctx, "x", SearchFilters{})
		s.ErrorIs(err, connectors.ErrRateLimited)
		s.Equal(int64(1), attempts.Load())
	})

	s.Run("persistent 5xx is retried then surfaced", func() {
		var attempts atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			attempts.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := s.newClient(srv).Search(s.ctx, "x", SearchFilters{})
		s.Require().Error(err)
		s.Equal(int64(3), attempts.Load()) // initial try plus two retries
	})

	s.Run("transient 5xx recovers on retry", func() {
		var attempts atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if attempts.Add(1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Write([]byte(`{"resultaten":[]}`))
		}))
		defer srv.Close()

		_, err := s.newClient(srv).Search(s.ctx, "x", SearchFilters{})
		s.Require().NoError(err)
		s.Equal(int64(2), attempts.Load())
	})
}
