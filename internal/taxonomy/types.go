// Package taxonomy resolves raw category labels to canonical taxonomic names
// through an external name-authority service, with a persistent cache so
// repeated merge runs skip the network entirely.
package taxonomy

import "time"

// Config holds the resolver configuration.
type Config struct {
	// BaseURL is the name-authority API base URL
	BaseURL string
	// Locale requested from the name-authority
	Locale string
	// Timeout for API requests
	Timeout time.Duration
	// CacheFilePath is the persistent name-resolution cache; empty disables
	// persistence (in-memory only)
	CacheFilePath string
	// MaxRetries bounds attempts for transient failures
	MaxRetries int
	// BackoffDelay is the base delay between retries, multiplied by the
	// attempt number
	BackoffDelay time.Duration
	// RateLimitCooldown is the fixed wait after an HTTP 429 before retrying;
	// a cooldown does not consume a retry attempt
	RateLimitCooldown time.Duration
	// RequestInterval is the courtesy delay between consecutive API calls
	RequestInterval time.Duration
}

// DefaultConfig returns the default resolver configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:           "https://api.gbif.org/v1",
		Locale:            "en",
		Timeout:           10 * time.Second,
		MaxRetries:        3,
		BackoffDelay:      500 * time.Millisecond,
		RateLimitCooldown: 2 * time.Second,
		RequestInterval:   500 * time.Millisecond,
	}
}

// searchResponse is the name-authority search payload. Only the canonical
// name of the best match is consumed.
type searchResponse struct {
	Results []struct {
		Record struct {
			Name string `json:"name"`
		} `json:"record"`
	} `json:"results"`
}

// Metrics represents resolver performance counters.
type Metrics struct {
	APICalls       int64 `json:"api_calls"`
	CacheHits      int64 `json:"cache_hits"`
	CacheMisses    int64 `json:"cache_misses"`
	APIErrors      int64 `json:"api_errors"`
	RateLimitWaits int64 `json:"rate_limit_waits"`
	Fallbacks      int64 `json:"fallbacks"`
}
