// Package claims calls the claim search, claim detail and practice endpoints.
package claims

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"claimprobe/internal/logging"
	"claimprobe/internal/transport"
)

// Remote paths.
const (
	SearchPath     = "/api/v1/claims/search/"
	ClaimPath      = "/api/v1/claims/%s/"
	PracticesPath  = "/api/v1/providers/practices/"
	BulkUploadPath = "/api/v1/claims/bulk/upload/"
)

// Client calls the claims backend. The zero timeouts fall back to the
// transport default.
type Client struct {
	anon   *transport.Client
	authed *transport.Client

	SearchTimeout    time.Duration
	FetchTimeout     time.Duration
	PracticesTimeout time.Duration
}

// NewClient binds a claims client to base, authorizing with authz.
func NewClient(base *transport.Client, authz transport.Authorizer) *Client {
	return &Client{
		anon:             base,
		authed:           base.WithAuth(authz),
		SearchTimeout:    60 * time.Second,
		FetchTimeout:     30 * time.Second,
		PracticesTimeout: 10 * time.Second,
	}
}

// WithSearchTimeout returns a copy using d for searches.
func (c *Client) WithSearchTimeout(d time.Duration) *Client {
	clone := *c
	clone.SearchTimeout = d
	return &clone
}

// Search posts criteria to the search endpoint.
func (c *Client) Search(ctx context.Context, criteria SearchCriteria) (*SearchResult, error) {
	logging.Search("search %s..%s practice=%q status=%q", criteria.FirstServiceDate, criteria.LastServiceDate, criteria.PracticeID, criteria.StatusFilter)

	resp, err := c.authed.PostJSON(ctx, SearchPath, criteria, c.SearchTimeout)
	if err != nil {
		logging.Get(logging.CategorySearch).Warn("search %s..%s failed: %v", criteria.FirstServiceDate, criteria.LastServiceDate, err)
		return nil, fmt.Errorf("search claims: %w", err)
	}
	res, err := DecodeSearchResult(resp.Body)
	if err != nil {
		return nil, err
	}
	logging.SearchDebug("search returned %d claims (count=%d has_more=%v)", len(res.Claims), res.Count, res.HasMore)
	return res, nil
}

// Get fetches one claim by number.
func (c *Client) Get(ctx context.Context, number string) (*Claim, error) {
	path := fmt.Sprintf(ClaimPath, url.PathEscape(number))
	resp, err := c.authed.Get(ctx, path, c.FetchTimeout)
	if err != nil {
		return nil, fmt.Errorf("get claim %s: %w", number, err)
	}
	var claim Claim
	if err := resp.JSON(&claim); err != nil {
		return nil, fmt.Errorf("get claim %s: %w", number, err)
	}
	if claim.ClaimNumber == "" {
		claim.ClaimNumber = Text(number)
	}
	return &claim, nil
}

// Practices lists practices, with or without the bearer token.
func (c *Client) Practices(ctx context.Context, authenticated bool) ([]Practice, *transport.Response, error) {
	hc := c.anon
	if authenticated {
		hc = c.authed
	}
	resp, err := hc.Get(ctx, PracticesPath, c.PracticesTimeout)
	if err != nil {
		return nil, resp, fmt.Errorf("list practices: %w", err)
	}
	practices, err := DecodePractices(resp.Body)
	if err != nil {
		return nil, resp, err
	}
	return practices, resp, nil
}

// EndpointProbe is the outcome of posting to the upload endpoint with no file.
type EndpointProbe struct {
	StatusCode int
	Body       string
}

// Reachable is true for 400, the endpoint rejecting the missing file.
func (p EndpointProbe) Reachable() bool {
	return p.StatusCode == http.StatusBadRequest
}

// Unauthorized is true for 401 and 403.
func (p EndpointProbe) Unauthorized() bool {
	return p.StatusCode == http.StatusUnauthorized || p.StatusCode == http.StatusForbidden
}

// ProbeBulkEndpoint posts an empty body to the upload endpoint.
// HTTP errors are folded into the probe; only transport failures return err.
func (c *Client) ProbeBulkEndpoint(ctx context.Context, authenticated bool) (EndpointProbe, error) {
	hc := c.anon
	if authenticated {
		hc = c.authed
	}
	resp, err := hc.Do(ctx, &transport.Request{
		Method:  http.MethodPost,
		Path:    BulkUploadPath,
		Timeout: c.PracticesTimeout,
	})
	if resp == nil {
		return EndpointProbe{}, fmt.Errorf("probe bulk endpoint: %w", err)
	}
	return EndpointProbe{StatusCode: resp.StatusCode, Body: resp.Text(200)}, nil
}
