package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"

	"github.com/hyperionkit/hyperbeats/pkg/activity"
	"github.com/hyperionkit/hyperbeats/pkg/observability"
)

// DefaultBaseURL is the public GitHub REST API endpoint
const DefaultBaseURL = "https://api.github.com"

// Config holds GitHub client configuration
type Config struct {
	BaseURL string
	Token   string
	// Timeout bounds each upstream call; a timed-out call surfaces as
	// KindUnavailable.
	Timeout time.Duration
	// MaxRetries is the retry budget for rate-limited and transient
	// failures.
	MaxRetries int
	// RetryBaseDelay is the first backoff step; each retry doubles it
	// and adds jitter.
	RetryBaseDelay time.Duration
	// QuotaBuffer is the remaining-quota floor below which the client
	// refuses new calls until the provider window resets.
	QuotaBuffer int
}

// DefaultConfig returns production defaults
func DefaultConfig() Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		Timeout:        5 * time.Second,
		MaxRetries:     3,
		RetryBaseDelay: 500 * time.Millisecond,
		QuotaBuffer:    10,
	}
}

// Client fetches repository activity from the GitHub REST API. It tracks
// the provider's rate limit headers and backs off before exhausting the
// shared quota.
type Client struct {
	httpClient *http.Client
	config     Config
	log        *logrus.Logger
	metrics    *observability.Metrics

	mu             sync.Mutex
	quotaRemaining int
	quotaReset     time.Time
}

// NewClient creates a new GitHub client. The transport is instrumented
// with OpenTelemetry; when a token is configured requests authenticate
// through an oauth2 static token source.
func NewClient(cfg Config, log *logrus.Logger, metrics *observability.Metrics) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBaseDelay == 0 {
		cfg.RetryBaseDelay = 500 * time.Millisecond
	}
	if log == nil {
		log = logrus.New()
	}

	transport := otelhttp.NewTransport(http.DefaultTransport)
	httpClient := &http.Client{Transport: transport}
	if cfg.Token != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		httpClient = &http.Client{
			Transport: &oauth2.Transport{
				Source: src,
				Base:   transport,
			},
		}
	}

	return &Client{
		httpClient:     httpClient,
		config:         cfg,
		log:            log,
		metrics:        metrics,
		quotaRemaining: 5000,
	}
}

// commitItem is the subset of the commits endpoint payload we read
type commitItem struct {
	Commit struct {
		Author struct {
			Date time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
	Author *struct {
		Login string `json:"login"`
	} `json:"author"`
}

// pullItem is the subset of the pulls endpoint payload we read
type pullItem struct {
	State     string     `json:"state"`
	CreatedAt time.Time  `json:"created_at"`
	MergedAt  *time.Time `json:"merged_at"`
}

// issueItem is the subset of the issues endpoint payload we read.
// PullRequest is non-nil for PRs, which the issues endpoint includes.
type issueItem struct {
	State       string     `json:"state"`
	CreatedAt   time.Time  `json:"created_at"`
	ClosedAt    *time.Time `json:"closed_at"`
	PullRequest *struct{}  `json:"pull_request"`
}

// FetchActivity retrieves a repository's activity snapshot for the
// timeframe. When includeSeries is set the snapshot carries a
// time-bucketed series at the timeframe's granularity.
func (c *Client) FetchActivity(ctx context.Context, repo activity.RepositoryRef, timeframe activity.Timeframe, includeSeries bool) (*activity.MetricsSnapshot, error) {
	since := time.Now().UTC().Add(-timeframe.Lookback())

	commits, err := c.fetchCommits(ctx, repo, since)
	if err != nil {
		return nil, err
	}
	pulls, err := c.fetchPulls(ctx, repo)
	if err != nil {
		return nil, err
	}
	issues, err := c.fetchIssues(ctx, repo)
	if err != nil {
		return nil, err
	}

	snap := buildSnapshot(commits, pulls, issues, since, timeframe, includeSeries)

	c.log.WithFields(logrus.Fields{
		"repo":      repo.String(),
		"timeframe": string(timeframe),
		"commits":   snap.Commits,
	}).Debug("fetched repository activity")

	return snap, nil
}

func (c *Client) fetchCommits(ctx context.Context, repo activity.RepositoryRef, since time.Time) ([]commitItem, error) {
	params := url.Values{}
	params.Set("since", since.Format(time.RFC3339))
	params.Set("per_page", "100")

	var commits []commitItem
	path := fmt.Sprintf("/repos/%s/%s/commits", repo.Owner, repo.Name)
	if err := c.getJSON(ctx, "commits", repo, path, params, &commits); err != nil {
		return nil, err
	}
	return commits, nil
}

func (c *Client) fetchPulls(ctx context.Context, repo activity.RepositoryRef) ([]pullItem, error) {
	params := url.Values{}
	params.Set("state", "all")
	params.Set("per_page", "100")
	params.Set("sort", "updated")
	params.Set("direction", "desc")

	var pulls []pullItem
	path := fmt.Sprintf("/repos/%s/%s/pulls", repo.Owner, repo.Name)
	if err := c.getJSON(ctx, "pulls", repo, path, params, &pulls); err != nil {
		return nil, err
	}
	return pulls, nil
}

func (c *Client) fetchIssues(ctx context.Context, repo activity.RepositoryRef) ([]issueItem, error) {
	params := url.Values{}
	params.Set("state", "all")
	params.Set("per_page", "100")
	params.Set("sort", "updated")
	params.Set("direction", "desc")

	var raw []issueItem
	path := fmt.Sprintf("/repos/%s/%s/issues", repo.Owner, repo.Name)
	if err := c.getJSON(ctx, "issues", repo, path, params, &raw); err != nil {
		return nil, err
	}

	// The issues endpoint also returns pull requests; drop them
	issues := raw[:0]
	for _, item := range raw {
		if item.PullRequest == nil {
			issues = append(issues, item)
		}
	}
	return issues, nil
}

// getJSON performs a GET with quota tracking and bounded retries
func (c *Client) getJSON(ctx context.Context, endpoint string, repo activity.RepositoryRef, path string, params url.Values, dest interface{}) error {
	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			if c.metrics != nil {
				c.metrics.UpstreamRetriesTotal.Inc()
			}
			delay := c.backoffDelay(attempt)
			c.log.WithFields(logrus.Fields{
				"endpoint": endpoint,
				"attempt":  attempt,
				"delay":    delay.String(),
			}).Warn("retrying upstream request")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return &UpstreamError{Kind: KindUnavailable, Repo: repo.String(), Err: ctx.Err()}
			}
		}

		err := c.doRequest(ctx, endpoint, repo, path, params, dest)
		if err == nil {
			return nil
		}
		lastErr = err

		// NotFound is authoritative; retrying cannot help
		if IsNotFound(err) {
			return err
		}
	}
	return lastErr
}

func (c *Client) doRequest(ctx context.Context, endpoint string, repo activity.RepositoryRef, path string, params url.Values, dest interface{}) error {
	if err := c.checkQuota(repo); err != nil {
		return err
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	reqURL := c.config.BaseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return &UpstreamError{Kind: KindUnavailable, Repo: repo.String(), Err: err}
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		if c.metrics != nil {
			c.metrics.ObserveUpstreamRequest(endpoint, "error", duration)
		}
		// Timeouts and transport errors are transient
		return &UpstreamError{Kind: KindUnavailable, Repo: repo.String(), Err: err}
	}
	defer resp.Body.Close()

	c.updateQuota(resp)
	if c.metrics != nil {
		c.metrics.ObserveUpstreamRequest(endpoint, strconv.Itoa(resp.StatusCode), duration)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return &UpstreamError{Kind: KindUnavailable, Repo: repo.String(), Err: err}
		}
		if err := json.Unmarshal(body, dest); err != nil {
			return &UpstreamError{Kind: KindUnavailable, Repo: repo.String(), Err: fmt.Errorf("decoding response: %w", err)}
		}
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return &UpstreamError{Kind: KindNotFound, Repo: repo.String(), Err: errors.New("repository not found")}
	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusForbidden && c.remainingQuota() == 0:
		return &UpstreamError{Kind: KindRateLimited, Repo: repo.String(), Err: fmt.Errorf("status %d", resp.StatusCode)}
	default:
		return &UpstreamError{Kind: KindUnavailable, Repo: repo.String(), Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
}

// checkQuota refuses calls once the tracked remaining quota drops to the
// configured buffer, until the provider window resets.
func (c *Client) checkQuota(repo activity.RepositoryRef) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.quotaRemaining <= c.config.QuotaBuffer && time.Now().Before(c.quotaReset) {
		wait := time.Until(c.quotaReset).Round(time.Second)
		return &UpstreamError{
			Kind: KindRateLimited,
			Repo: repo.String(),
			Err:  fmt.Errorf("provider quota exhausted, resets in %s", wait),
		}
	}
	return nil
}

func (c *Client) updateQuota(resp *http.Response) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v := resp.Header.Get("X-RateLimit-Remaining"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.quotaRemaining = n
			if c.metrics != nil {
				c.metrics.UpstreamQuotaRemaining.Set(float64(n))
			}
		}
	}
	if v := resp.Header.Get("X-RateLimit-Reset"); v != "" {
		if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.quotaReset = time.Unix(ts, 0)
		}
	}
}

func (c *Client) remainingQuota() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quotaRemaining
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	delay := c.config.RetryBaseDelay << (attempt - 1)
	jitter := time.Duration(rand.Int63n(int64(c.config.RetryBaseDelay)))
	return delay + jitter
}

// buildSnapshot counts activity within the window and optionally buckets
// it into a time series at the timeframe's granularity.
func buildSnapshot(commits []commitItem, pulls []pullItem, issues []issueItem, since time.Time, timeframe activity.Timeframe, includeSeries bool) *activity.MetricsSnapshot {
	snap := &activity.MetricsSnapshot{}

	contributors := make(map[string]struct{})
	for _, commit := range commits {
		snap.Commits++
		if commit.Author != nil && commit.Author.Login != "" {
			contributors[commit.Author.Login] = struct{}{}
		}
	}
	snap.Contributors = int64(len(contributors))

	for _, pr := range pulls {
		if pr.CreatedAt.Before(since) {
			continue
		}
		if pr.State == "open" {
			snap.PRsOpened++
		}
		if pr.MergedAt != nil {
			snap.PRsMerged++
		}
	}

	for _, issue := range issues {
		if issue.CreatedAt.Before(since) {
			continue
		}
		if issue.State == "open" {
			snap.IssuesOpened++
		} else {
			snap.IssuesClosed++
		}
	}

	if includeSeries {
		snap.Series = buildSeries(commits, pulls, issues, since, timeframe)
	}
	return snap
}

func buildSeries(commits []commitItem, pulls []pullItem, issues []issueItem, since time.Time, timeframe activity.Timeframe) []activity.TimeSeriesPoint {
	bucket := timeframe.Bucket()
	count := timeframe.BucketCount()
	start := since.Truncate(bucket)

	series := make([]activity.TimeSeriesPoint, count)
	for i := range series {
		series[i].Bucket = start.Add(time.Duration(i) * bucket)
	}

	index := func(ts time.Time) int {
		if ts.Before(start) {
			return -1
		}
		i := int(ts.Sub(start) / bucket)
		if i >= count {
			return count - 1
		}
		return i
	}

	for _, commit := range commits {
		if i := index(commit.Commit.Author.Date); i >= 0 {
			series[i].Commits++
		}
	}
	for _, pr := range pulls {
		if pr.MergedAt == nil {
			continue
		}
		if i := index(*pr.MergedAt); i >= 0 {
			series[i].PRsMerged++
		}
	}
	for _, issue := range issues {
		if issue.ClosedAt == nil {
			continue
		}
		if i := index(*issue.ClosedAt); i >= 0 {
			series[i].IssuesClosed++
		}
	}
	return series
}
