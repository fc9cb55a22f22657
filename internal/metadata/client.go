package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/roach88/shardsim/internal/formula"
)

// DefaultFeedURL is the upstream formula metadata feed.
const DefaultFeedURL = "https://formulae.brew.sh/api/formula.json"

// DefaultTTL is how long a cached payload stays fresh.
const DefaultTTL = 15 * time.Minute

// Client fetches the upstream feed, reading through an optional Cache.
type Client struct {
	// URL is the feed location. Defaults to DefaultFeedURL when empty.
	URL string

	// HTTPClient defaults to http.DefaultClient when nil.
	HTTPClient *http.Client

	// Cache, when non-nil, is consulted before the network and updated
	// after a successful fetch.
	Cache *Cache

	// TTL bounds cache freshness. Defaults to DefaultTTL when zero.
	TTL time.Duration

	// Now defaults to time.Now when nil. Injectable for tests.
	Now func() time.Time
}

// Fetch returns the full upstream record list, from cache when fresh.
//
// A cache write failure after a successful fetch is logged and otherwise
// ignored: the payload in hand is still complete and usable.
func (c *Client) Fetch(ctx context.Context) ([]formula.RawRecord, error) {
	url := c.URL
	if url == "" {
		url = DefaultFeedURL
	}
	ttl := c.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}

	if c.Cache != nil {
		body, ok, err := c.Cache.Get(url, ttl, now())
		if err != nil {
			return nil, err
		}
		if ok {
			slog.Debug("metadata cache hit", "source", url, "bytes", len(body))
			return DecodeRecords(body)
		}
	}

	body, err := c.download(ctx, url)
	if err != nil {
		return nil, err
	}
	slog.Debug("metadata fetched", "source", url, "bytes", len(body))

	if c.Cache != nil {
		if err := c.Cache.Put(url, body, now()); err != nil {
			slog.Warn("metadata cache write failed", "source", url, "error", err)
		}
	}
	return DecodeRecords(body)
}

// Refresh fetches the feed unconditionally, bypassing any fresh cache
// entry, and updates the cache on success. Used to warm the cache ahead
// of simulation runs.
func (c *Client) Refresh(ctx context.Context) ([]formula.RawRecord, error) {
	url := c.URL
	if url == "" {
		url = DefaultFeedURL
	}
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}

	body, err := c.download(ctx, url)
	if err != nil {
		return nil, err
	}
	if c.Cache != nil {
		if err := c.Cache.Put(url, body, now()); err != nil {
			slog.Warn("metadata cache write failed", "source", url, "error", err)
		}
	}
	return DecodeRecords(body)
}

func (c *Client) download(ctx context.Context, url string) ([]byte, error) {
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s fetching %s", resp.Status, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", url, err)
	}
	return body, nil
}

// DecodeRecords parses a feed payload: a JSON array of package records.
func DecodeRecords(body []byte) ([]formula.RawRecord, error) {
	var records []formula.RawRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("failed to decode metadata payload: %w", err)
	}
	return records, nil
}
