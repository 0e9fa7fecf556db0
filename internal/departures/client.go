package departures

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

// DefaultBaseURL is the stops.lt endpoint root for Vilnius.
const DefaultBaseURL = "https://www.stops.lt/vilnius"

// Options tunes a Client. Zero values fall back to defaults.
type Options struct {
	Timeout     time.Duration // per-request HTTP timeout (default 10s)
	CacheTTL    time.Duration // raw body cache lifetime; 0 disables caching
	MaxInFlight int64         // concurrent upstream requests (default 8)
	UserAgent   string
}

// Client fetches departures feeds from stops.lt.
type Client struct {
	baseURL   string
	userAgent string
	client    *http.Client
	cache     *Cache
	inFlight  *semaphore.Weighted
	group     singleflight.Group
	logger    *slog.Logger
}

// NewClient creates a departures client.
func NewClient(baseURL string, opts Options, logger *slog.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = 8
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "vilniusbus/1.0"
	}
	return &Client{
		baseURL:   baseURL,
		userAgent: opts.UserAgent,
		client: &http.Client{
			Timeout: opts.Timeout,
		},
		cache:    NewCache(opts.CacheTTL),
		inFlight: semaphore.NewWeighted(opts.MaxInFlight),
		logger:   logger,
	}
}

// Cache exposes the body cache so callers can run its cleanup loop.
func (c *Client) Cache() *Cache { return c.cache }

// FeedURL returns the departures URL for a stop.
func (c *Client) FeedURL(stopID string) string {
	return fmt.Sprintf("%s/departures2.php?stopid=%s", c.baseURL, url.QueryEscape(stopID))
}

type fetched struct {
	body      string
	fetchedAt time.Time
}

// FetchFeed returns the raw departures text for a stop and when it was
// downloaded, which is earlier than now for a cached body. Concurrent calls
// for the same stop share one upstream request; that request is not
// cancelled when one of its callers gives up, only bounded by the HTTP
// timeout. Failures are *NetworkError.
func (c *Client) FetchFeed(ctx context.Context, stopID string) (string, time.Time, error) {
	if body, at, ok := c.cache.Get(stopID); ok {
		feedRequests.WithLabelValues(resultCached).Inc()
		return body, at, nil
	}

	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(stopID, func() (any, error) {
		return c.download(shared, stopID)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", time.Time{}, res.Err
		}
		d := res.Val.(fetched)
		return d.body, d.fetchedAt, nil
	case <-ctx.Done():
		return "", time.Time{}, &NetworkError{StopID: stopID, URL: c.FeedURL(stopID), Err: ctx.Err()}
	}
}

// DeparturesForStop fetches and parses a stop's departures relative to now.
func (c *Client) DeparturesForStop(ctx context.Context, stopID string, now time.Time) (*Feed, error) {
	body, _, err := c.FetchFeed(ctx, stopID)
	if err != nil {
		return nil, err
	}
	feed := Parse(body, now)
	if n := len(feed.Skipped); n > 0 {
		skippedLines.Add(float64(n))
		c.logger.Warn("skipped malformed departure lines",
			"stop", stopID,
			"count", n,
			"first", feed.Skipped[0].Error(),
		)
	}
	return feed, nil
}

// DeparturesJSON fetches a stop's departures and returns them as a JSON array.
func (c *Client) DeparturesJSON(ctx context.Context, stopID string, now time.Time) (string, error) {
	feed, err := c.DeparturesForStop(ctx, stopID, now)
	if err != nil {
		return "", err
	}
	return feed.JSON()
}

func (c *Client) download(ctx context.Context, stopID string) (fetched, error) {
	u := c.FeedURL(stopID)
	fail := func(status int, err error) (fetched, error) {
		feedRequests.WithLabelValues(resultError).Inc()
		return fetched{}, &NetworkError{StopID: stopID, URL: u, StatusCode: status, Err: err}
	}

	if err := c.inFlight.Acquire(ctx, 1); err != nil {
		return fail(0, err)
	}
	defer c.inFlight.Release(1)

	start := time.Now()
	defer func() { fetchDuration.Observe(time.Since(start).Seconds()) }()

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return fail(0, err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return fail(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail(resp.StatusCode, fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(0, fmt.Errorf("read body: %w", err))
	}

	d := fetched{body: string(b), fetchedAt: time.Now()}
	c.cache.Set(stopID, d.body, d.fetchedAt)
	feedRequests.WithLabelValues(resultDownloaded).Inc()
	c.logger.Debug("departures feed downloaded", "stop", stopID, "bytes", len(b))
	return d, nil
}
