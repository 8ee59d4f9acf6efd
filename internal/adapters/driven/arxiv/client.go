package arxiv

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
	"github.com/custodia-labs/paperchat/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.PaperIndex = (*Client)(nil)

// Defaults for Config fields left zero.
const (
	DefaultBaseURL        = "https://export.arxiv.org/api/query"
	DefaultPDFBaseURL     = "https://arxiv.org/pdf"
	DefaultField          = "ti"
	DefaultMaxResults     = 3
	DefaultMaxRetries     = 3
	DefaultBackoff        = 3 * time.Second
	defaultUserAgent      = "paperchat/1.0 (+https://github.com/custodia-labs/paperchat)"
	defaultRequestTimeout = 60 * time.Second
)

// Config configures the arXiv client.
type Config struct {
	BaseURL    string
	PDFBaseURL string

	// Field is the default query qualifier when a SearchQuery leaves it empty.
	Field string

	// MaxResults applies when a SearchQuery leaves it zero.
	MaxResults int

	RequestsPerSecond float64
	Burst             int

	// MaxRetries bounds retries after 429 and 503 responses.
	MaxRetries int

	// Backoff is used when a throttling response has no Retry-After.
	Backoff time.Duration

	UserAgent string
}

// ConfigFromSettings maps fetch settings onto a client config.
func ConfigFromSettings(s domain.FetchSettings) Config {
	return Config{
		BaseURL:           s.BaseURL,
		Field:             s.Field,
		MaxResults:        s.MaxResults,
		RequestsPerSecond: s.RequestsPerSecond,
		Burst:             s.Burst,
	}
}

// Client searches arXiv and downloads PDFs.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *RateLimiter
}

// NewClient creates a client. A nil httpClient uses a client with a 60s timeout.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.PDFBaseURL == "" {
		cfg.PDFBaseURL = DefaultPDFBaseURL
	}
	if cfg.Field == "" {
		cfg.Field = DefaultField
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}

	return &Client{
		cfg:     cfg,
		http:    httpClient,
		limiter: NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst, cfg.Backoff),
	}
}

// BuildQuery renders the search_query expression, e.g.
// `ti:"attention is all you need" AND cat:cs.CL`.
func BuildQuery(text, field, category string) string {
	text = strings.Join(strings.Fields(strings.ReplaceAll(text, `"`, " ")), " ")
	q := fmt.Sprintf(`%s:"%s"`, field, text)
	if category = strings.TrimSpace(category); category != "" {
		q += " AND cat:" + category
	}
	return q
}

// Search runs one relevance-sorted query.
func (c *Client) Search(ctx context.Context, q domain.SearchQuery) ([]domain.Candidate, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, fmt.Errorf("%w: empty search text", domain.ErrInvalidInput)
	}

	field := q.Field
	if field == "" {
		field = c.cfg.Field
	}
	maxResults := q.MaxResults
	if maxResults <= 0 {
		maxResults = c.cfg.MaxResults
	}

	params := url.Values{}
	params.Set("search_query", BuildQuery(q.Text, field, q.Category))
	params.Set("start", "0")
	params.Set("max_results", strconv.Itoa(maxResults))
	params.Set("sortBy", "relevance")
	params.Set("sortOrder", "descending")

	resp, err := c.get(ctx, c.cfg.BaseURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	candidates, err := parseFeed(resp.Body, c.cfg.PDFBaseURL)
	if err != nil {
		return nil, err
	}
	logger.Debug("arxiv: %q (cat %q) returned %d results", q.Text, q.Category, len(candidates))
	return candidates, nil
}

// Download fetches the candidate's PDF. The caller closes the body.
func (c *Client) Download(ctx context.Context, candidate domain.Candidate) (io.ReadCloser, error) {
	if candidate.ArtifactURL == "" {
		return nil, fmt.Errorf("%w: candidate %s has no artifact url", domain.ErrInvalidInput, candidate.ID)
	}

	resp, err := c.get(ctx, candidate.ArtifactURL)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// get performs a rate-limited GET, retrying throttled responses.
// On success the caller owns resp.Body.
func (c *Client) get(ctx context.Context, rawURL string) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("User-Agent", c.cfg.UserAgent)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request %s: %w", rawURL, err)
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return resp, nil

		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable:
			drain(resp)
			if attempt >= c.cfg.MaxRetries {
				return nil, fmt.Errorf("%w: %s after %d attempts", domain.ErrRateLimited, resp.Status, attempt+1)
			}
			backoff := c.limiter.RecordThrottle(resp)
			logger.Warn("arxiv: %s, retrying in %s", resp.Status, backoff)

		default:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			return nil, &APIError{
				StatusCode: resp.StatusCode,
				Message:    strings.TrimSpace(string(body)),
				URL:        rawURL,
			}
		}
	}
}

// drain discards and closes a body so the connection can be reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}
