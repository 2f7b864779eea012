package taxonomy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/soundset/soundset-go/internal/errors"
	"github.com/soundset/soundset-go/internal/logging"
)

// rateLimitGuard bounds consecutive 429 cooldowns so a permanently throttling
// backend cannot stall a merge run forever. Cooldowns below the guard do not
// consume retry attempts.
const rateLimitGuard = 10

// Resolver maps raw category labels to canonical taxonomic names. It consults
// the persistent cache before making any external call; unresolved names
// degrade to themselves after bounded retries rather than aborting the run.
type Resolver struct {
	config     Config
	httpClient *http.Client
	memory     *cache.Cache
	file       *cacheFile
	limiter    *rate.Limiter
	logger     *slog.Logger

	metrics struct {
		apiCalls       int64
		cacheHits      int64
		cacheMisses    int64
		apiErrors      int64
		rateLimitWaits int64
		fallbacks      int64
		mu             sync.RWMutex
	}
}

// NewResolver creates a resolver, loading the persistent cache file fully into
// memory. A missing cache file is created with its header row.
func NewResolver(config Config) (*Resolver, error) {
	defaults := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.Locale == "" {
		config.Locale = defaults.Locale
	}
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = defaults.MaxRetries
	}
	if config.BackoffDelay == 0 {
		config.BackoffDelay = defaults.BackoffDelay
	}
	if config.RateLimitCooldown == 0 {
		config.RateLimitCooldown = defaults.RateLimitCooldown
	}
	if config.RequestInterval == 0 {
		config.RequestInterval = defaults.RequestInterval
	}

	r := &Resolver{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		memory:  cache.New(cache.NoExpiration, cache.NoExpiration),
		limiter: rate.NewLimiter(rate.Every(config.RequestInterval), 1),
		logger:  logging.ForService("taxonomy"),
	}

	if config.CacheFilePath != "" {
		file, entries, err := openCacheFile(config.CacheFilePath)
		if err != nil {
			return nil, err
		}
		r.file = file
		for name, canonical := range entries {
			r.memory.Set(name, canonical, cache.NoExpiration)
		}
		r.logger.Info("name-resolution cache loaded",
			"path", config.CacheFilePath,
			"entries", len(entries))
	}

	return r, nil
}

// Close releases the persistent cache file.
func (r *Resolver) Close() error {
	if r.file == nil {
		return nil
	}
	return r.file.Close()
}

// Resolve maps a raw label to its canonical name. Cache hits return
// immediately without touching the network. On a miss the name-authority is
// queried with bounded retries; exhausted retries degrade to the raw name
// itself, which is cached so failing lookups are not repeated. Only context
// cancellation aborts the call.
func (r *Resolver) Resolve(ctx context.Context, rawName string) (string, error) {
	if rawName == "" {
		return "", errors.Newf("cannot resolve an empty name").
			Category(errors.CategoryValidation).
			Component("taxonomy").
			Build()
	}

	if cached, found := r.memory.Get(rawName); found {
		if canonical, ok := cached.(string); ok {
			r.metrics.mu.Lock()
			r.metrics.cacheHits++
			r.metrics.mu.Unlock()
			return canonical, nil
		}
	}

	r.metrics.mu.Lock()
	r.metrics.cacheMisses++
	r.metrics.mu.Unlock()

	canonical, err := r.lookup(ctx, rawName)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		// Non-fatal degradation: the raw name becomes its own canonical form.
		r.metrics.mu.Lock()
		r.metrics.fallbacks++
		r.metrics.mu.Unlock()
		r.logger.Warn("name resolution failed, falling back to raw name",
			"name", rawName,
			"error", err.Error())
		canonical = rawName
	}

	r.memory.Set(rawName, canonical, cache.NoExpiration)
	if r.file != nil {
		if err := r.file.append(rawName, canonical); err != nil {
			r.logger.Warn("failed to append to name-resolution cache",
				"path", r.config.CacheFilePath,
				"name", rawName,
				"error", err.Error())
		}
	}

	return canonical, nil
}

// lookup queries the name-authority with retry, backoff and rate-limit
// cooldown handling.
func (r *Resolver) lookup(ctx context.Context, rawName string) (string, error) {
	var lastErr error
	cooldowns := 0

	for attempt := 0; attempt < r.config.MaxRetries; {
		if err := r.limiter.Wait(ctx); err != nil {
			return "", err
		}

		canonical, status, err := r.doRequest(ctx, rawName)
		if err == nil {
			return canonical, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", lastErr
		}

		// A name with no match will not appear on retry; fail fast so the
		// caller can fall back to the raw name.
		if errors.IsNotFound(err) {
			return "", lastErr
		}

		if status == http.StatusTooManyRequests {
			// A cooldown does not consume a retry attempt.
			cooldowns++
			if cooldowns > rateLimitGuard {
				return "", lastErr
			}
			r.metrics.mu.Lock()
			r.metrics.rateLimitWaits++
			r.metrics.mu.Unlock()
			r.logger.Warn("name-authority rate limit hit, cooling down",
				"name", rawName,
				"cooldown_ms", r.config.RateLimitCooldown.Milliseconds())
			select {
			case <-time.After(r.config.RateLimitCooldown):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			continue
		}

		attempt++
		if attempt < r.config.MaxRetries {
			delay := time.Duration(attempt) * r.config.BackoffDelay
			r.logger.Warn("name-authority request failed, retrying",
				"name", rawName,
				"attempt", attempt,
				"max_retries", r.config.MaxRetries,
				"delay_ms", delay.Milliseconds(),
				"error", err.Error())
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}

	return "", lastErr
}

// doRequest performs one search call. The returned status is zero when the
// request never reached the backend.
func (r *Resolver) doRequest(ctx context.Context, rawName string) (canonical string, status int, err error) {
	r.metrics.mu.Lock()
	r.metrics.apiCalls++
	r.metrics.mu.Unlock()

	reqCtx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	searchURL := fmt.Sprintf("%s/species/search?q=%s&locale=%s&limit=1",
		r.config.BaseURL, url.QueryEscape(rawName), url.QueryEscape(r.config.Locale))

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, searchURL, http.NoBody)
	if err != nil {
		return "", 0, errors.Newf("failed to create HTTP request: %w", err).
			Category(errors.CategoryNetwork).
			Context("url", searchURL).
			Component("taxonomy").
			Build()
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.countAPIError()
		return "", 0, errors.Newf("HTTP request failed: %w", err).
			Category(errors.CategoryNetwork).
			Context("url", searchURL).
			Component("taxonomy").
			Build()
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		r.countAPIError()
		return "", resp.StatusCode, errors.Newf("failed to read response body: %w", err).
			Category(errors.CategoryNetwork).
			Context("url", searchURL).
			Context("status_code", resp.StatusCode).
			Component("taxonomy").
			Build()
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		r.countAPIError()
		return "", resp.StatusCode, errors.Newf("name-authority rate limited (status %d)", resp.StatusCode).
			Category(errors.CategoryLimit).
			Context("url", searchURL).
			Context("status_code", resp.StatusCode).
			Component("taxonomy").
			Build()
	}
	if resp.StatusCode != http.StatusOK {
		r.countAPIError()
		return "", resp.StatusCode, errors.Newf("name-authority error (status %d)", resp.StatusCode).
			Category(errors.CategoryNetwork).
			Context("url", searchURL).
			Context("status_code", resp.StatusCode).
			Component("taxonomy").
			Build()
	}

	var parsed searchResponse
	if err := json.Unmarshal(bodyBytes, &parsed); err != nil {
		r.countAPIError()
		return "", resp.StatusCode, errors.Newf("failed to parse name-authority response: %w", err).
			Category(errors.CategoryFileParsing).
			Context("url", searchURL).
			Component("taxonomy").
			Build()
	}
	if len(parsed.Results) == 0 || parsed.Results[0].Record.Name == "" {
		return "", resp.StatusCode, errors.Newf("no match for name %q", rawName).
			Category(errors.CategoryNotFound).
			Context("name", rawName).
			Component("taxonomy").
			Build()
	}

	return parsed.Results[0].Record.Name, resp.StatusCode, nil
}

func (r *Resolver) countAPIError() {
	r.metrics.mu.Lock()
	r.metrics.apiErrors++
	r.metrics.mu.Unlock()
}

// GetMetrics returns current resolver counters.
func (r *Resolver) GetMetrics() Metrics {
	r.metrics.mu.RLock()
	defer r.metrics.mu.RUnlock()
	return Metrics{
		APICalls:       r.metrics.apiCalls,
		CacheHits:      r.metrics.cacheHits,
		CacheMisses:    r.metrics.cacheMisses,
		APIErrors:      r.metrics.apiErrors,
		RateLimitWaits: r.metrics.rateLimitWaits,
		Fallbacks:      r.metrics.fallbacks,
	}
}
