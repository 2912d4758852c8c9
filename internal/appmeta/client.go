package appmeta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/radiusdt/mediaplan/internal/config"
	"github.com/radiusdt/mediaplan/internal/models"
	"github.com/radiusdt/mediaplan/internal/storecat"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// maxPageBytes bounds how much of a store page is read.
const maxPageBytes = 4 << 20

// AppInfo is the resolved metadata of a store app.
type AppInfo struct {
	Store    Store           `json:"store"`
	ID       string          `json:"id"`
	Name     string          `json:"app_name"`
	Category string          `json:"category"`
	Vertical models.Vertical `json:"vertical"`
}

// Recorder receives lookup outcomes. metrics.Metrics satisfies it.
type Recorder interface {
	RecordAppLookup(store, result string, latency time.Duration)
	RecordCacheLookup(backend string, hit bool)
}

// Client resolves store links to app metadata.
type Client struct {
	cfg     config.AppMetaConfig
	http    *http.Client
	cache   Cache
	logger  *zap.Logger
	metrics Recorder
	group   singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithMetrics sets the lookup recorder.
func WithMetrics(m Recorder) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a store client. A nil cache uses a MemoryCache.
func NewClient(cfg config.AppMetaConfig, cache Cache, logger *zap.Logger, opts ...Option) *Client {
	if cache == nil {
		cache = NewMemoryCache()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		cache:  cache,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup resolves a store link. Concurrent lookups of the same app share one
// upstream fetch; a caller whose ctx ends returns early without cancelling it.
func (c *Client) Lookup(ctx context.Context, rawURL string) (AppInfo, error) {
	target, err := ParseURL(rawURL)
	if err != nil {
		return AppInfo{}, err
	}
	key := target.CacheKey()

	info, hit, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("app cache read failed", zap.String("key", key), zap.Error(err))
	}
	c.recordCache(hit)
	if hit {
		return info, nil
	}

	// The shared fetch outlives any single caller; each request is still
	// bounded by the HTTP client timeout.
	ch := c.group.DoChan(key, func() (any, error) {
		fetchCtx := context.WithoutCancel(ctx)
		info, err := c.fetch(fetchCtx, target)
		if err != nil {
			return nil, err
		}
		if err := c.cache.Set(fetchCtx, key, info, c.cfg.CacheTTL); err != nil {
			c.logger.Warn("app cache write failed", zap.String("key", key), zap.Error(err))
		}
		return info, nil
	})

	select {
	case <-ctx.Done():
		return AppInfo{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return AppInfo{}, res.Err
		}
		return res.Val.(AppInfo), nil
	}
}

// Detect is Lookup for callers that only want a vertical hint: every failure
// yields models.VerticalOther.
func (c *Client) Detect(ctx context.Context, rawURL string) AppInfo {
	info, err := c.Lookup(ctx, rawURL)
	if err != nil {
		c.logger.Info("vertical not detected",
			zap.String("url", rawURL),
			zap.Error(err),
		)
		return AppInfo{Vertical: models.VerticalOther}
	}
	if info.Vertical == "" {
		info.Vertical = models.VerticalOther
	}
	return info
}

func (c *Client) fetch(ctx context.Context, t Target) (AppInfo, error) {
	start := time.Now()
	var (
		info AppInfo
		err  error
	)
	switch t.Store {
	case StoreApple:
		info, err = c.fetchAppStore(ctx, t)
	case StoreGoogle:
		info, err = c.fetchGooglePlay(ctx, t)
	default:
		err = ErrUnsupportedURL
	}

	result := "ok"
	switch {
	case errors.Is(err, ErrNotFound):
		result = "not_found"
	case err != nil:
		result = "error"
	}
	if c.metrics != nil {
		c.metrics.RecordAppLookup(string(t.Store), result, time.Since(start))
	}
	if err == nil {
		c.logger.Debug("app resolved",
			zap.String("store", string(t.Store)),
			zap.String("id", t.ID),
			zap.String("category", info.Category),
			zap.String("vertical", string(info.Vertical)),
		)
	}
	return info, err
}

// =============================================
// App Store
// =============================================

type itunesResponse struct {
	ResultCount int `json:"resultCount"`
	Results     []struct {
		TrackName        string `json:"trackName"`
		PrimaryGenreName string `json:"primaryGenreName"`
	} `json:"results"`
}

// storefronts lists the countries to query, link storefront first, then the
// global store, then the US and fallback storefronts.
func (c *Client) storefronts(country string) []string {
	seen := map[string]bool{}
	var out []string
	add := func(cc string) {
		cc = strings.ToLower(strings.TrimSpace(cc))
		if seen[cc] {
			return
		}
		seen[cc] = true
		out = append(out, cc)
	}
	if country != "" {
		add(country)
	}
	add("")
	add("us")
	for _, cc := range c.cfg.FallbackCountries {
		add(cc)
	}
	return out
}

func (c *Client) fetchAppStore(ctx context.Context, t Target) (AppInfo, error) {
	countries := c.storefronts(t.Country)

	var lastErr error
	for _, viaProxy := range []bool{false, true} {
		if viaProxy && c.cfg.ProxyURL == "" {
			break
		}
		for _, cc := range countries {
			if err := ctx.Err(); err != nil {
				return AppInfo{}, err
			}
			lookupURL := c.itunesLookupURL(t.ID, cc)
			if viaProxy {
				lookupURL = c.proxied(lookupURL)
			}

			var resp itunesResponse
			if err := c.getJSON(ctx, lookupURL, &resp); err != nil {
				lastErr = err
				continue
			}
			if len(resp.Results) == 0 {
				continue
			}
			app := resp.Results[0]
			return AppInfo{
				Store:    StoreApple,
				ID:       t.ID,
				Name:     strings.TrimSpace(app.TrackName),
				Category: app.PrimaryGenreName,
				Vertical: storecat.MapCategory(app.PrimaryGenreName),
			}, nil
		}
	}

	if lastErr != nil {
		c.logger.Debug("app store lookup exhausted", zap.String("id", t.ID), zap.Error(lastErr))
	}
	return AppInfo{}, fmt.Errorf("app store id %s: %w", t.ID, ErrNotFound)
}

func (c *Client) itunesLookupURL(id, country string) string {
	q := url.Values{"id": {id}}
	if country != "" {
		q.Set("country", country)
	}
	return strings.TrimRight(c.cfg.ITunesBaseURL, "/") + "/lookup?" + q.Encode()
}

// =============================================
// Google Play
// =============================================

func (c *Client) fetchGooglePlay(ctx context.Context, t Target) (AppInfo, error) {
	pageURL := strings.TrimRight(c.cfg.PlayBaseURL, "/") + "/store/apps/details?" +
		url.Values{"id": {t.ID}, "hl": {"en"}}.Encode()
	if c.cfg.ProxyURL != "" {
		pageURL = c.proxied(pageURL)
	}

	body, err := c.get(ctx, pageURL)
	if err != nil {
		return AppInfo{}, fmt.Errorf("google play %s: %w", t.ID, err)
	}
	defer body.Close()

	page, err := parsePlayPage(io.LimitReader(body, maxPageBytes))
	if err != nil {
		return AppInfo{}, fmt.Errorf("google play %s: %w", t.ID, err)
	}
	return AppInfo{
		Store:    StoreGoogle,
		ID:       t.ID,
		Name:     page.Name,
		Category: page.Category,
		Vertical: storecat.MapCategory(page.Category),
	}, nil
}

// =============================================
// HTTP helpers
// =============================================

func (c *Client) proxied(target string) string {
	return c.cfg.ProxyURL + url.QueryEscape(target)
}

func (c *Client) get(ctx context.Context, target string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept-Language", "en")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

func (c *Client) getJSON(ctx context.Context, target string, dst any) error {
	body, err := c.get(ctx, target)
	if err != nil {
		return err
	}
	defer body.Close()
	return json.NewDecoder(io.LimitReader(body, maxPageBytes)).Decode(dst)
}

func (c *Client) recordCache(hit bool) {
	if c.metrics != nil {
		c.metrics.RecordCacheLookup(c.cache.Backend(), hit)
	}
}
