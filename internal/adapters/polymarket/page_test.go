package polymarket_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/alejandrodnm/polyledger/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchPage_TopLevelArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/trades", r.URL.Path)
		assert.Equal(t, "0xwallet", r.URL.Query().Get("user"))
		assert.Equal(t, "500", r.URL.Query().Get("limit"))
		assert.Equal(t, "1000", r.URL.Query().Get("offset"))
		assert.Equal(t, "true", r.URL.Query().Get("takerOnly"))
		writeJSON(w, `[{"id":"1","price":0.4},{"id":"2","price":0.6}, 7]`)
	}))
	defer srv.Close()

	client := newTestClient(srv, nil)
	res := client.FetchPage(context.Background(), domain.PageRequest{
		URL:    client.Endpoint("/trades"),
		Wallet: "0xwallet",
		Offset: 1000,
		Limit:  500,
		Extra:  url.Values{"takerOnly": {"true"}},
	})

	require.True(t, res.Success, res.Err)
	assert.Equal(t, 1000, res.Offset)
	require.Len(t, res.Data, 2, "non-object items are dropped")
	assert.Equal(t, "1", res.Data[0].String("id"))
}

func TestFetchPage_WrapperKeys(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"results", `{"results":[{"id":"a"}]}`, 1},
		{"items", `{"items":[{"id":"a"},{"id":"b"}]}`, 2},
		{"activity", `{"activity":[{"id":"a"}]}`, 1},
		{"trades", `{"trades":[{"id":"a"}]}`, 1},
		{"data", `{"count":3,"data":[{"id":"a"},{"id":"b"},{"id":"c"}]}`, 3},
		{"first match wins", `{"data":[{"id":"a"}],"results":[{"id":"b"},{"id":"c"}]}`, 2},
		{"no list", `{"message":"ok"}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.body)
			}))
			defer srv.Close()

			client := newTestClient(srv, nil)
			res := client.FetchPage(context.Background(), domain.PageRequest{URL: srv.URL + "/activity", Limit: 10})
			require.True(t, res.Success, res.Err)
			assert.Len(t, res.Data, tt.want)
		})
	}
}

func TestFetchPage_RateLimitedBacksOff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	sleeper := &recordingSleeper{}
	client := newTestClient(srv, sleeper)

	res := client.FetchPage(context.Background(), domain.PageRequest{
		URL: srv.URL + "/trades", Limit: 10, RetryCount: 2, WorkerID: 3,
	})

	assert.False(t, res.Success)
	assert.True(t, res.RateLimited())
	assert.Equal(t, 2, res.RetryCount)

	// min(2s×2^2, 60s) + (0.1 + 0.4×0.5)×3 s
	require.Len(t, sleeper.all(), 1)
	assert.Equal(t, 8*time.Second+900*time.Millisecond, sleeper.all()[0])
}

func TestFetchPage_RateLimitDelayIsCapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	sleeper := &recordingSleeper{}
	client := newTestClient(srv, sleeper)

	client.FetchPage(context.Background(), domain.PageRequest{URL: srv.URL, RetryCount: 10, WorkerID: 0})

	require.Len(t, sleeper.all(), 1)
	assert.Equal(t, 60*time.Second+300*time.Millisecond, sleeper.all()[0])
}

func TestFetchPage_OtherStatusIsNotRetried(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	sleeper := &recordingSleeper{}
	client := newTestClient(srv, sleeper)
	res := client.FetchPage(context.Background(), domain.PageRequest{URL: srv.URL})

	assert.False(t, res.Success)
	assert.Equal(t, "404", res.Err)
	assert.False(t, res.RateLimited())
	assert.Empty(t, sleeper.all())
}

func TestFetchPage_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `[{"id":`)
	}))
	defer srv.Close()

	client := newTestClient(srv, nil)
	res := client.FetchPage(context.Background(), domain.PageRequest{URL: srv.URL})

	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Err)
}

func TestFetchPage_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	client := newTestClient(nil, nil)
	res := client.FetchPage(context.Background(), domain.PageRequest{URL: endpoint})

	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Err)
}
