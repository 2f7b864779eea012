package taxonomy

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testBaseURL = "https://taxonomy.test/v1"

func testConfig(tb testing.TB) Config {
	tb.Helper()
	return Config{
		BaseURL:           testBaseURL,
		Locale:            "en",
		Timeout:           time.Second,
		MaxRetries:        3,
		BackoffDelay:      time.Millisecond,
		RateLimitCooldown: 5 * time.Millisecond,
		RequestInterval:   time.Millisecond,
	}
}

func newTestResolver(tb testing.TB, config Config) *Resolver {
	tb.Helper()
	r, err := NewResolver(config)
	require.NoError(tb, err)
	httpmock.ActivateNonDefault(r.httpClient)
	tb.Cleanup(func() {
		httpmock.DeactivateAndReset()
		require.NoError(tb, r.Close())
	})
	return r
}

func matchResponse(name string) string {
	return `{"results": [{"record": {"name": "` + name + `"}}]}`
}

func TestResolveSuccess(t *testing.T) {
	r := newTestResolver(t, testConfig(t))
	httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/species/search",
		httpmock.NewStringResponder(http.StatusOK, matchResponse("Turdus migratorius")))

	canonical, err := r.Resolve(context.Background(), "American Robin")
	require.NoError(t, err)
	assert.Equal(t, "Turdus migratorius", canonical)

	metrics := r.GetMetrics()
	assert.Equal(t, int64(1), metrics.APICalls)
	assert.Equal(t, int64(1), metrics.CacheMisses)
}

func TestResolveCacheHitSkipsNetwork(t *testing.T) {
	r := newTestResolver(t, testConfig(t))
	httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/species/search",
		httpmock.NewStringResponder(http.StatusOK, matchResponse("Turdus migratorius")))

	_, err := r.Resolve(context.Background(), "American Robin")
	require.NoError(t, err)

	canonical, err := r.Resolve(context.Background(), "American Robin")
	require.NoError(t, err)
	assert.Equal(t, "Turdus migratorius", canonical)

	metrics := r.GetMetrics()
	assert.Equal(t, int64(1), metrics.APICalls, "second resolve must not call the API")
	assert.Equal(t, int64(1), metrics.CacheHits)
}

func TestResolveRateLimitCooldown(t *testing.T) {
	r := newTestResolver(t, testConfig(t))

	var calls atomic.Int64
	httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/species/search",
		func(req *http.Request) (*http.Response, error) {
			if calls.Add(1) == 1 {
				return httpmock.NewStringResponse(http.StatusTooManyRequests, `{"message": "rate limit exceeded"}`), nil
			}
			return httpmock.NewStringResponse(http.StatusOK, matchResponse("Turdus migratorius")), nil
		})

	canonical, err := r.Resolve(context.Background(), "American Robin")
	require.NoError(t, err)
	assert.Equal(t, "Turdus migratorius", canonical)

	metrics := r.GetMetrics()
	assert.Equal(t, int64(1), metrics.RateLimitWaits, "exactly one cooldown wait expected")
	assert.Equal(t, int64(2), metrics.APICalls)
	assert.Equal(t, int64(0), metrics.Fallbacks)
}

func TestResolveExhaustedRetriesFallsBackToRawName(t *testing.T) {
	r := newTestResolver(t, testConfig(t))
	httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/species/search",
		httpmock.NewStringResponder(http.StatusInternalServerError, `{"message": "boom"}`))

	canonical, err := r.Resolve(context.Background(), "American Robin")
	require.NoError(t, err, "degraded resolution is not an error")
	assert.Equal(t, "American Robin", canonical)

	metrics := r.GetMetrics()
	assert.Equal(t, int64(3), metrics.APICalls, "all retry attempts consumed")
	assert.Equal(t, int64(1), metrics.Fallbacks)

	// The fallback is cached: no further attempts for the same name.
	canonical, err = r.Resolve(context.Background(), "American Robin")
	require.NoError(t, err)
	assert.Equal(t, "American Robin", canonical)
	assert.Equal(t, int64(3), r.GetMetrics().APICalls)
}

func TestResolveNoMatchFallsBackWithoutRetry(t *testing.T) {
	r := newTestResolver(t, testConfig(t))
	httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/species/search",
		httpmock.NewStringResponder(http.StatusOK, `{"results": []}`))

	canonical, err := r.Resolve(context.Background(), "queen")
	require.NoError(t, err)
	assert.Equal(t, "queen", canonical)
	assert.Equal(t, int64(1), r.GetMetrics().APICalls, "an unmatched name is not retried")
}

func TestResolveEmptyName(t *testing.T) {
	r := newTestResolver(t, testConfig(t))
	_, err := r.Resolve(context.Background(), "")
	require.Error(t, err)
}

func TestResolveContextCancellation(t *testing.T) {
	r := newTestResolver(t, testConfig(t))
	httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/species/search",
		httpmock.NewStringResponder(http.StatusInternalServerError, `{}`))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Resolve(ctx, "American Robin")
	require.Error(t, err, "cancellation aborts instead of degrading")
}

func TestPersistentCacheSurvivesRestart(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "resolved_names.csv")

	config := testConfig(t)
	config.CacheFilePath = cachePath

	r := newTestResolver(t, config)
	httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/species/search",
		httpmock.NewStringResponder(http.StatusOK, matchResponse("Turdus migratorius")))

	_, err := r.Resolve(context.Background(), "American Robin")
	require.NoError(t, err)

	// A fresh resolver must serve the name from the cache file alone.
	r2, err := NewResolver(config)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, r2.Close())
	}()

	canonical, err := r2.Resolve(context.Background(), "American Robin")
	require.NoError(t, err)
	assert.Equal(t, "Turdus migratorius", canonical)
	assert.Equal(t, int64(0), r2.GetMetrics().APICalls)
	assert.Equal(t, int64(1), r2.GetMetrics().CacheHits)
}

func TestCacheFileFormat(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "resolved_names.csv")

	file, entries, err := openCacheFile(cachePath)
	require.NoError(t, err)
	assert.Empty(t, entries)
	require.NoError(t, file.append("American Robin", "Turdus migratorius"))
	require.NoError(t, file.Close())

	data, err := os.ReadFile(cachePath) //nolint:gosec // test fixture
	require.NoError(t, err)
	assert.Equal(t, "name,canonical_name\nAmerican Robin,Turdus migratorius\n", string(data))

	_, entries, err = openCacheFile(cachePath)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"American Robin": "Turdus migratorius"}, entries)
}
