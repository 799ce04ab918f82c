// Package sanctions adapts the international sanctions/PEP screening API
// (OpenSanctions-style) to normalized match shapes.
package sanctions

import (
	"context"
	"encoding/json"
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

// Properties holds the multi-valued entity attributes screening cares about.
type Properties struct {
	Names     []string
	Topics    []string
	Countries []string
	Datasets  []string
}

// Match is one normalized screening hit. Raw preserves the vendor entity for
// downstream consumers; it must never be logged unredacted.
type Match struct {
	ID         string
	Score      float64
	Caption    string
	Properties Properties
	Raw        json.RawMessage
}

// Client talks to the screening API over HTTP.
type Client struct {
	http    *retryablehttp.Client
	baseURL string
	apiKey  string
	logger  *slog.Logger
}

// New builds a sanctions client from adapter configuration.
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

// Search screens a name against the default dataset collection. Any number of
// matches, including zero, is success.
func (c *Client) Search(ctx context.Context, name, schema string, datasets []string, limit int) ([]Match, error) {
	if schema == "" {
		schema = "LegalEntity"
	}
	if limit <= 0 {
		limit = 10
	}
	params := url.Values{}
	params.Set("q", name)
	params.Set("schema", schema)
	params.Set("limit", strconv.Itoa(limit))
	if len(datasets) > 0 {
		params.Set("datasets", strings.Join(datasets, ","))
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search/default?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build sanctions request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
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

	var matches []Match
	gjson.GetBytes(body, "results").ForEach(func(_, item gjson.Result) bool {
		matches = append(matches, Match{
			ID:      item.Get("id").String(),
			Score:   item.Get("score").Float(),
			Caption: item.Get("caption").String(),
			Properties: Properties{
				Names:     stringSlice(item.Get("properties.name")),
				Topics:    stringSlice(item.Get("properties.topics")),
				Countries: stringSlice(item.Get("properties.country")),
				Datasets:  stringSlice(item.Get("datasets")),
			},
			Raw: json.RawMessage(item.Raw),
		})
		return true
	})
	return matches, nil
}

func stringSlice(r gjson.Result) []string {
	var out []string
	r.ForEach(func(_, v gjson.Result) bool {
		out = append(out, v.String())
		return true
	})
	return out
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
