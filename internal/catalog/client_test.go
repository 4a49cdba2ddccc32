package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const searchBody = `{
  "items": [
    {"id": "vol-1", "volumeInfo": {"title": "Dune", "authors": ["Frank Herbert"], "imageLinks": {"thumbnail": "http://img/1"}}},
    {"id": "vol-2", "volumeInfo": {}}
  ]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		BaseURL:          srv.URL,
		Timeout:          time.Second,
		FailureThreshold: 2,
		OpenTimeout:      time.Minute,
	}, zap.NewNop())
}

func TestSearch_ParsesVolumes(t *testing.T) {
	var gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/volumes", r.URL.Path)
		gotQuery = r.URL.Query().Get("q")
		assert.Equal(t, "5", r.URL.Query().Get("maxResults"))
		_, _ = w.Write([]byte(searchBody))
	})

	books := client.Search(context.Background(), "dune messiah", 5)

	assert.Equal(t, "dune messiah", gotQuery)
	require.Len(t, books, 2)
	assert.Equal(t, "vol-1", books[0].ID)
	assert.Equal(t, "Dune", books[0].Title)
	assert.Equal(t, []string{"Frank Herbert"}, books[0].Authors)
	assert.Equal(t, "http://img/1", books[0].Thumbnail)
	assert.Equal(t, "No title", books[1].Title)
	assert.Equal(t, []string{"Unknown"}, books[1].Authors)

	for _, b := range books {
		assert.True(t, b.Price.GreaterThanOrEqual(decimal.NewFromInt(100)))
		assert.True(t, b.Price.LessThanOrEqual(decimal.NewFromInt(500)))
	}
}

func TestSearch_EmptyQuerySkipsUpstream(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	books := client.Search(context.Background(), "   ", 10)
	assert.Empty(t, books)
	assert.Equal(t, int32(0), calls.Load())
}

func TestSearch_UpstreamErrorYieldsEmptyList(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	books := client.Search(context.Background(), "python", 10)
	assert.NotNil(t, books)
	assert.Empty(t, books)
}

func TestSearch_MalformedBodyYieldsEmptyList(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items": [`))
	})

	assert.Empty(t, client.Search(context.Background(), "python", 10))
}

func TestFeatured_UsesTopicAndPageSize(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, featuredTopics, r.URL.Query().Get("q"))
		assert.Equal(t, "12", r.URL.Query().Get("maxResults"))
		_, _ = w.Write([]byte(searchBody))
	})

	assert.Len(t, client.Featured(context.Background()), 2)
}

func TestGet_Found(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/volumes/vol-1", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"vol-1","volumeInfo":{"title":"Dune","description":"Spice."}}`))
	})

	book, err := client.Get(context.Background(), "vol-1")
	require.NoError(t, err)
	assert.Equal(t, "Dune", book.Title)
	assert.Equal(t, "Spice.", book.Description)
}

func TestGet_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		assert.Empty(t, client.Search(ctx, "science", 10))
	}

	assert.Equal(t, int32(2), calls.Load(), "breaker should stop calling upstream once open")

	_, err := client.Get(ctx, "vol-1")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.NotErrorIs(t, err, ErrBookNotFound)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGet_UpstreamFailureIsUnavailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.Get(context.Background(), "vol-1")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.NotErrorIs(t, err, ErrBookNotFound)
}

func TestGet_UnreachableIsUnavailable(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:1", Timeout: time.Second}, zap.NewNop())

	_, err := client.Get(context.Background(), "vol-1")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestBreaker_NotFoundDoesNotTrip(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		_, err := client.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrBookNotFound)
	}
	assert.Equal(t, int32(4), calls.Load())
}

func TestSearch_SendsAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL + "/", APIKey: "secret"}, zap.NewNop())
	assert.Equal(t, srv.URL, client.baseURL)
	assert.Empty(t, client.Search(context.Background(), "go", 0))
}
