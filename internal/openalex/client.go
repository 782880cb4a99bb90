// Package openalex fetches scholarly works from the OpenAlex API and writes
// them as the paper table read by ingestion.
package openalex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hyperjump/trendlens/pkg/utils"
)

const (
	// BaseURL is the public OpenAlex API.
	BaseURL = "https://api.openalex.org"

	// WorksFilter selects journal articles that carry an abstract.
	WorksFilter = "type:article,has_abstract:true"

	// DefaultPerPage is the largest page OpenAlex serves.
	DefaultPerPage = 200

	// DefaultRateLimit stays under the polite-pool limit of 10 requests per second.
	DefaultRateLimit = 10.0

	// DefaultTimeout bounds one page request.
	DefaultTimeout = 60 * time.Second

	startCursor = "*"
)

// ErrStatus is wrapped by errors for non-200 responses.
var ErrStatus = errors.New("openalex: unexpected status")

// Client is a rate-limited OpenAlex works client.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	mailto     string
	perPage    int
	logger     *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithMailto joins the polite pool by sending a contact address.
func WithMailto(addr string) ClientOption {
	return func(c *Client) {
		c.mailto = addr
	}
}

// WithPerPage sets the page size.
func WithPerPage(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.perPage = n
		}
	}
}

// WithRateLimit sets the maximum requests per second.
func WithRateLimit(rps float64) ClientOption {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithLogger sets the logger used for progress messages.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new OpenAlex client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		baseURL:    BaseURL,
		perPage:    DefaultPerPage,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = utils.LoggerOrNop(c.logger)
	return c
}

// FetchWorks pages through matching works until limit papers are collected,
// the cursor runs out, or a request fails. On failure the papers collected so
// far are returned together with the error.
func (c *Client) FetchWorks(ctx context.Context, limit int) ([]Paper, error) {
	var papers []Paper
	cursor := startCursor
	for limit <= 0 || len(papers) < limit {
		page, err := c.fetchPage(ctx, cursor)
		if err != nil {
			return papers, err
		}
		for _, w := range page.Results {
			if limit > 0 && len(papers) >= limit {
				break
			}
			papers = append(papers, w.Paper())
		}
		c.logger.Info("Fetched papers", zap.Int("count", len(papers)))
		if page.Meta.NextCursor == nil || *page.Meta.NextCursor == "" || len(page.Results) == 0 {
			break
		}
		cursor = *page.Meta.NextCursor
	}
	return papers, nil
}

func (c *Client) fetchPage(ctx context.Context, cursor string) (*worksPage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	params := url.Values{}
	params.Set("filter", WorksFilter)
	params.Set("per-page", strconv.Itoa(c.perPage))
	params.Set("cursor", cursor)
	if c.mailto != "" {
		params.Set("mailto", c.mailto)
	}
	reqURL := c.baseURL + "/works?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching works: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}
	var page worksPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decoding works page: %w", err)
	}
	return &page, nil
}
