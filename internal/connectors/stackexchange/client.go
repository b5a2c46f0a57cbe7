package stackexchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/jgbarah-chaoss/grimoirelab-perceval/internal/core/domain"
	"github.com/jgbarah-chaoss/grimoirelab-perceval/internal/logger"
)

const (
	// APIURL is the StackExchange API endpoint.
	APIURL = "https://api.stackexchange.com"

	// APIVersion is the API version the client speaks.
	APIVersion = "2.2"

	// QuestionsFilter is the response-shaping filter token. Filters are
	// immutable and non-expiring; this one selects all the information
	// regarding each question. Paste it into the whitebox filter at
	// https://api.stackexchange.com/docs/questions to inspect it.
	QuestionsFilter = "Bf*y*ByQD_upZqozgU6lXL_62USGOoV3)MFNgiHqHpmO_Y-jHR"

	// MaxQuestions is the maximum number of questions per query.
	MaxQuestions = 100

	// DefaultRequestsPerSecond is the proactive throttle rate, well below
	// the API's 30 req/sec ceiling.
	DefaultRequestsPerSecond = 10

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second
)

// ClientConfig configures the API client.
type ClientConfig struct {
	// Site is the StackExchange site to query.
	Site string

	// Tagged filters questions by tag.
	Tagged string

	// Token is the access token, sent as the `key` query parameter.
	Token string

	// PageSize is the questions-per-page maximum. Defaults to MaxQuestions.
	PageSize int

	// BaseURL overrides the API endpoint. Defaults to APIURL.
	BaseURL string

	// HTTPClient overrides the HTTP client.
	HTTPClient *http.Client

	// RequestsPerSecond overrides the proactive throttle rate.
	RequestsPerSecond float64
}

// Client retrieves questions from a StackExchange site, one page per
// request, most recently active first.
type Client struct {
	site     string
	tagged   string
	token    string
	pageSize int
	baseURL  string
	http     *http.Client
	limiter  *rate.Limiter

	quotaRemaining int
	quotaMax       int
}

// NewClient creates an API client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.PageSize <= 0 {
		cfg.PageSize = MaxQuestions
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = APIURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}

	return &Client{
		site:     cfg.Site,
		tagged:   cfg.Tagged,
		token:    cfg.Token,
		pageSize: cfg.PageSize,
		baseURL:  cfg.BaseURL,
		http:     cfg.HTTPClient,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
	}
}

// QuotaRemaining returns the remaining request quota reported by the last
// response.
func (c *Client) QuotaRemaining() int {
	return c.quotaRemaining
}

// QuotaMax returns the request quota ceiling reported by the last response.
func (c *Client) QuotaMax() int {
	return c.quotaMax
}

// page is one response of the questions endpoint.
type page struct {
	Items          []domain.Record `json:"items"`
	PageSize       int             `json:"page_size"`
	Total          int             `json:"total"`
	HasMore        bool            `json:"has_more"`
	QuotaRemaining int             `json:"quota_remaining"`
	QuotaMax       int             `json:"quota_max"`
}

// Questions walks the paginated questions endpoint starting at page 1,
// yielding one page of raw records per Next call. A zero since means no
// lower time bound.
func (c *Client) Questions(ctx context.Context, since time.Time) *PageIter {
	return &PageIter{client: c, ctx: ctx, since: since}
}

// PageIter iterates over question pages. It stops after the first page
// reporting has_more=false, or fails in place when a request fails.
type PageIter struct {
	client *Client
	ctx    context.Context
	since  time.Time

	pageNum int
	cur     *page
	fetched int
	err     error
	done    bool
}

// Next requests the next page. It returns false once the enumeration is
// exhausted or failed; Err tells the two apart.
func (it *PageIter) Next() bool {
	if it.done {
		return false
	}
	if it.cur != nil && !it.cur.HasMore {
		it.done = true
		return false
	}

	it.pageNum++
	p, err := it.client.fetchPage(it.ctx, it.pageNum, it.since)
	if err != nil {
		it.err = err
		it.done = true
		return false
	}

	it.logStatus(p)

	if len(p.Items) == 0 {
		it.done = true
		return false
	}
	it.cur = p
	return true
}

// Page returns the raw records of the page produced by the last successful
// Next call.
func (it *PageIter) Page() []domain.Record {
	return it.cur.Items
}

// Err returns the error that terminated the enumeration, if any.
func (it *PageIter) Err() error {
	return it.err
}

// logStatus reports quota and progress. The running fetched count is
// observability only; it never gates the has_more decision.
func (it *PageIter) logStatus(p *page) {
	logger.Info("Rate limit: %d/%d", p.QuotaRemaining, p.QuotaMax)
	if p.Total == 0 {
		logger.Info("No questions were found.")
		return
	}
	add := p.PageSize
	if add >= p.Total {
		add = p.Total
	}
	it.fetched += add
	logger.Info("Fetching questions: %d/%d", it.fetched, p.Total)
}

func (c *Client) fetchPage(ctx context.Context, pageNum int, since time.Time) (*page, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("stackexchange: rate limit wait: %w", err)
	}

	reqURL := c.questionsURL() + "?" + c.buildQuery(pageNum, since).Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("stackexchange: building request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stackexchange: questions request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("stackexchange: reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body), URL: reqURL}
	}

	var p page
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("stackexchange: decoding response: %w", err)
	}

	c.quotaRemaining = p.QuotaRemaining
	c.quotaMax = p.QuotaMax
	return &p, nil
}

func (c *Client) questionsURL() string {
	return c.baseURL + "/" + APIVersion + "/questions"
}

func (c *Client) buildQuery(pageNum int, since time.Time) url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(pageNum))
	v.Set("pagesize", strconv.Itoa(c.pageSize))
	v.Set("order", "desc")
	v.Set("sort", "activity")
	v.Set("tagged", c.tagged)
	v.Set("site", c.site)
	v.Set("key", c.token)
	v.Set("filter", QuestionsFilter)
	if !since.IsZero() {
		v.Set("min", strconv.FormatInt(since.Unix(), 10))
	}
	return v
}
