package resilience_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-sales/internal/resilience"
)

func flakyServer(t *testing.T, failures int32) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		body, _ := io.ReadAll(r.Body)
		if n <= failures {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"message":"upstream down"}`))
			return
		}
		_, _ = w.Write(append([]byte("ok:"), body...))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestDoRetriesIdempotentRequests(t *testing.T) {
	srv, hits := flakyServer(t, 2)
	cl := resilience.HTTPClient{Client: srv.Client(), MaxAttempts: 3, BaseBackoff: time.Millisecond}

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/products", nil)
	require.NoError(t, err)
	resp, err := cl.Do(context.Background(), req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 3, hits.Load())
}

func TestDoNeverRetriesWrites(t *testing.T) {
	srv, hits := flakyServer(t, 1)
	cl := resilience.HTTPClient{Client: srv.Client(), MaxAttempts: 3, BaseBackoff: time.Millisecond}

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/sales", strings.NewReader(`{"customerId":"c1"}`))
	require.NoError(t, err)
	resp, err := cl.Do(context.Background(), req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "upstream down")
	require.EqualValues(t, 1, hits.Load())
}

func TestDoReplaysBodyAndReadsAfterReturn(t *testing.T) {
	srv, _ := flakyServer(t, 0)
	cl := resilience.HTTPClient{Client: srv.Client(), Timeout: time.Second}

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/sales/s1", strings.NewReader("payload"))
	require.NoError(t, err)
	resp, err := cl.Do(context.Background(), req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "ok:payload", string(body))
}

func TestDoStopsWhenBreakerOpen(t *testing.T) {
	srv, hits := flakyServer(t, 100)
	breaker := resilience.NewBreaker(resilience.BreakerConfig{MinRequests: 1, OpenFor: time.Minute})
	cl := resilience.HTTPClient{Client: srv.Client(), Breaker: breaker, MaxAttempts: 3, BaseBackoff: time.Millisecond}

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/customers", nil)
	require.NoError(t, err)
	_, err = cl.Do(context.Background(), req)
	require.ErrorIs(t, err, resilience.ErrOpenCircuit)
	require.EqualValues(t, 1, hits.Load())
}
