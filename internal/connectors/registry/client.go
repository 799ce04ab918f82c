// Package registry adapts the national company registry API (KVK-style) to
// the normalized shapes the orchestrator consumes. All vendor field mapping
// lives here; nothing upstream-specific leaks out.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"

	"kompas/internal/connectors"
	"kompas/internal/platform/config"
)

// SearchFilters narrows a free-text search.
type SearchFilters struct {
	City       string
	MaxResults int
}

// SearchHit is one normalized search result.
type SearchHit struct {
	ID        string
	Name      string
	Status    string
	Address   string
	LegalForm string
}

// SBICode is one industry classification entry from the registry.
type SBICode struct {
	Code        string
	Description string
	Primary     bool
}

// Profile is the normalized direct-lookup result. Status is "active" or
// "dissolved" when the registry supplies enough to tell, empty otherwise.
type Profile struct {
	ID        string
	Name      string
	Status    string
	Address   string
	LegalForm string
	SBICodes  []SBICode
}

// Client talks to the registry over HTTP. Transient transport failures and
// 5xx responses are retried inside the adapter; the caller never retries.
type Client struct {
	http    *retryablehttp.Client
	baseURL string
	apiKey  string
	logger  *slog.Logger
}

// New builds a registry client from adapter configuration.
func New(cfg config.AdapterConfig, logger *slog.Logger) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = nil
	rc.HTTPClient.Timeout = cfg.Timeout
	rc.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err != nil {
			return true, nil
		}
		if resp != nil && resp.StatusCode >= 500 {
			return true, nil
		}
		return false, nil
	}
	return &Client{
		http:    rc,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		logger:  logger,
	}
}

// Search runs a free-text company search. Zero hits is a successful empty
// result, never ErrNotFound.
func (c *Client) Search(ctx context.Context, name string, filters SearchFilters) ([]SearchHit, error) {
	max := filters.MaxResults
	if max <= 0 {
		max = 10
	}
	params := url.Values{}
	params.Set("naam", name)
	params.Set("resultatenPerPagina", strconv.Itoa(max))
	if filters.City != "" {
		params.Set("plaats", filters.City)
	}

	body, err := c.get(ctx, c.baseURL+"/v2/zoeken?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var hits []SearchHit
	gjson.GetBytes(body, "resultaten").ForEach(func(_, item gjson.Result) bool {
		hits = append(hits, SearchHit{
			ID:        item.Get("kvkNummer").String(),
			Name:      item.Get("naam").String(),
			Status:    item.Get("status").String(),
			LegalForm: item.Get("type").String(),
			Address:   joinNonEmpty(item.Get("adres.binnenlandsAdres.straatnaam").String(), item.Get("adres.binnenlandsAdres.plaats").String()),
		})
		return true
	})
	return hits, nil
}

// GetProfileByID fetches the base profile for a registration number.
func (c *Client) GetProfileByID(ctx context.Context, id string) (*Profile, error) {
	body, err := c.get(ctx, c.baseURL+"/v1/basisprofielen/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}

	p := &Profile{
		ID:        gjson.GetBytes(body, "kvkNummer").String(),
		Name:      gjson.GetBytes(body, "naam").String(),
		LegalForm: gjson.GetBytes(body, "_embedded.hoofdvestiging.rechtsvorm").String(),
	}
	if p.ID == "" {
		p.ID = id
	}

	addr := gjson.GetBytes(body, "_embedded.hoofdvestiging.adressen.0")
	if addr.Exists() {
		p.Address = joinNonEmpty(
			joinNonEmpty(addr.Get("straatnaam").String(), addr.Get("huisnummer").String()),
			joinNonEmpty(addr.Get("postcode").String(), addr.Get("plaats").String()),
		)
	}

	gjson.GetBytes(body, "sbiActiviteiten").ForEach(func(_, sbi gjson.Result) bool {
		p.SBICodes = append(p.SBICodes, SBICode{
			Code:        sbi.Get("sbiCode").String(),
			Description: sbi.Get("sbiOmschrijving").String(),
			Primary:     sbi.Get("indHoofdactiviteit").String() == "Ja",
		})
		return true
	})

	// The registry reports an end-of-registration date for deregistered
	// companies; its presence is the only status signal in the payload.
	if gjson.GetBytes(body, "materieleRegistratie.datumEinde").String() != "" {
		p.Status = "dissolved"
	} else {
		p.Status = "active"
	}
	return p, nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build registry request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, connectors.ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, connectors.ErrRateLimited
	case resp.StatusCode >= 400:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &connectors.UpstreamError{StatusCode: resp.StatusCode, Message: string(msg)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &connectors.UpstreamError{StatusCode: resp.StatusCode, Message: err.Error()}
	}
	return body, nil
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return connectors.ErrTimeout
	}
	var ne interface{ Timeout() bool }
	if errors.As(err, &ne) && ne.Timeout() {
		return connectors.ErrTimeout
	}
	return &connectors.UpstreamError{StatusCode: 0, Message: err.Error()}
}

func joinNonEmpty(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
