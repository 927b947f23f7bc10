package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/sells-group/search-report/internal/model"
)

func newTestFetcher() *HTTPFetcher {
	return NewHTTPFetcher(HTTPOptions{
		UserAgent:   "test-agent",
		Timeout:     5 * time.Second,
		RatePerHost: 1000,
		Burst:       100,
	})
}

func TestFetchText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		assert.Equal(t, "baseball", r.URL.Query().Get("q"))
		assert.Equal(t, "zh-CN", r.URL.Query().Get("hl"))
		w.Write([]byte("<html>hello</html>"))
	}))
	defer srv.Close()

	f := newTestFetcher()
	body, err := f.FetchText(context.Background(), srv.URL+"/search", url.Values{"q": {"baseball"}, "hl": {"zh-CN"}})
	require.NoError(t, err)
	assert.Equal(t, "<html>hello</html>", body)
}

func TestFetchText_DecodesCharset(t *testing.T) {
	encoded, err := simplifiedchinese.GBK.NewEncoder().String("棒球")
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=GBK")
		w.Write([]byte(encoded))
	}))
	defer srv.Close()

	body, err := newTestFetcher().FetchText(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "棒球", body)
}

func TestFetchJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`["q",["A","B"],["",""],["u1","u2"]]`))
	}))
	defer srv.Close()

	res, err := newTestFetcher().FetchJSON(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.True(t, res.IsArray())
	assert.Equal(t, "B", res.Get("1.1").String())
	assert.Equal(t, "u1", res.Get("3.0").String())
}

func TestFetchJSON_InvalidBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	_, err := newTestFetcher().FetchJSON(context.Background(), srv.URL, nil)
	require.Error(t, err)
	assert.True(t, model.IsParseError(err))
	assert.False(t, model.IsTransportError(err))
}

func TestFetch_Non2xxIsTransportError(t *testing.T) {
	for _, status := range []int{http.StatusForbidden, http.StatusNotFound, http.StatusInternalServerError, http.StatusTooManyRequests} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		_, err := newTestFetcher().FetchText(context.Background(), srv.URL, nil)
		srv.Close()

		require.Error(t, err)
		var te *model.TransportError
		require.True(t, errors.As(err, &te), "status %d", status)
		assert.Equal(t, status, te.StatusCode)
	}
}

func TestFetch_NoRetryByDefault(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestFetcher().FetchText(context.Background(), srv.URL, nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestFetch_RetryWhenEnabled(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("success"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{
		Timeout:      5 * time.Second,
		MaxAttempts:  3,
		RetryBackoff: time.Millisecond,
		RatePerHost:  1000,
	})
	body, err := f.FetchText(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "success", body)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestFetch_NotFoundIsNotRetried(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{MaxAttempts: 3, RetryBackoff: time.Millisecond, RatePerHost: 1000})
	_, err := f.FetchText(context.Background(), srv.URL, nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestFetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte("late"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{Timeout: 50 * time.Millisecond, RatePerHost: 1000})
	_, err := f.FetchText(context.Background(), srv.URL, nil)
	require.Error(t, err)
	assert.True(t, model.IsTransportError(err))
}

func TestFetch_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	_, err := newTestFetcher().FetchText(context.Background(), addr, nil)
	require.Error(t, err)
	assert.True(t, model.IsTransportError(err))
}

func TestFetch_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestFetcher().FetchText(ctx, srv.URL, nil)
	require.Error(t, err)
	assert.True(t, model.IsTransportError(err))
}

func TestFetch_BodyCapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("0123456789"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{MaxBodyBytes: 4, RatePerHost: 1000})
	body, err := f.FetchText(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "0123", body)
}

func TestNewHTTPFetcher_Defaults(t *testing.T) {
	f := NewHTTPFetcher(HTTPOptions{})
	opts := f.Options()
	assert.Equal(t, DefaultUserAgent, opts.UserAgent)
	assert.Equal(t, 20*time.Second, opts.Timeout)
	assert.Equal(t, 1, opts.MaxAttempts)
	assert.InDelta(t, 10.0, float64(opts.RatePerHost), 0.001)
	assert.Equal(t, int64(4<<20), opts.MaxBodyBytes)
}

func TestLimiterFor_ReusesPerHost(t *testing.T) {
	f := newTestFetcher()
	a := f.limiterFor("a.example")
	assert.Same(t, a, f.limiterFor("a.example"))
	assert.NotSame(t, a, f.limiterFor("b.example"))
}

func TestBuildURL(t *testing.T) {
	got, err := BuildURL("https://www.mlb.com/search?query=old", url.Values{"query": {"Ohtani"}})
	require.NoError(t, err)
	assert.Equal(t, "https://www.mlb.com/search?query=Ohtani", got)

	got, err = BuildURL("https://zh.wikipedia.org/w/api.php", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://zh.wikipedia.org/w/api.php", got)

	_, err = BuildURL("://bad", nil)
	assert.Error(t, err)
}

// --- AdaptiveLimiter ---

func TestAdaptiveLimiter_OnSuccess_CapsAt2x(t *testing.T) {
	lim := NewAdaptiveLimiter(10, 10)

	lim.OnSuccess()
	assert.InDelta(t, 12.0, float64(lim.Limit()), 0.1)

	for range 20 {
		lim.OnSuccess()
	}
	assert.InDelta(t, 20.0, float64(lim.Limit()), 0.1)
}

func TestAdaptiveLimiter_OnRateLimit_FloorAtQuarter(t *testing.T) {
	lim := NewAdaptiveLimiter(10, 10)

	lim.OnRateLimit("x")
	assert.InDelta(t, 5.0, float64(lim.Limit()), 0.1)

	for range 10 {
		lim.OnRateLimit("x")
	}
	assert.InDelta(t, 2.5, float64(lim.Limit()), 0.1)
}

func TestAdaptiveLimiter_Wait_ContextCancelled(t *testing.T) {
	lim := NewAdaptiveLimiter(0.001, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, lim.Wait(ctx))
}
