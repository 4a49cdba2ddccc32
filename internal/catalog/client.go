// Package catalog reads book records from the Google Books volumes API.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/go_bookshop/internal/domain"
	"github.com/fjod/go_bookshop/internal/pricing"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL    = "https://www.googleapis.com/books/v1"
	FeaturedPageSize  = 12
	defaultSearchSize = 20
	maxSearchSize     = 40
)

var (
	ErrBookNotFound = errors.New("book not found")
	// ErrUnavailable covers transport failures, upstream errors and an open breaker.
	ErrUnavailable  = errors.New("catalog unavailable")
)

// featuredTopics are the queries the home page rotates through.
var featuredTopics = []string{"python", "life", "history", "science", "novel", "code", "adventure"}

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// Breaker opens after this many consecutive failures.
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        "google-books",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		// A missing volume is an answer, not an outage.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrBookNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: gobreaker.NewCircuitBreaker[[]byte](settings),
		logger:  logger,
	}
}

// Search returns up to limit books matching query. Upstream failures yield an empty list.
func (c *Client) Search(ctx context.Context, query string, limit int) []domain.Book {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.Book{}
	}
	if limit <= 0 {
		limit = defaultSearchSize
	}
	if limit > maxSearchSize {
		limit = maxSearchSize
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", strconv.Itoa(limit))

	body, err := c.get(ctx, "/volumes", params)
	if err != nil {
		c.logger.Warn("catalog search failed", zap.String("query", query), zap.Error(err))
		return []domain.Book{}
	}

	var resp volumesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Warn("catalog search returned malformed body", zap.String("query", query), zap.Error(err))
		return []domain.Book{}
	}

	books := make([]domain.Book, 0, len(resp.Items))
	for _, v := range resp.Items {
		books = append(books, v.toBook())
	}
	return books
}

// Featured returns a page of books for a randomly chosen topic.
func (c *Client) Featured(ctx context.Context) []domain.Book {
	topic := featuredTopics[rand.Intn(len(featuredTopics))]
	return c.Search(ctx, topic, FeaturedPageSize)
}

func (c *Client) Get(ctx context.Context, bookID string) (*domain.Book, error) {
	bookID = strings.TrimSpace(bookID)
	if bookID == "" {
		return nil, ErrBookNotFound
	}

	body, err := c.get(ctx, "/volumes/"+url.PathEscape(bookID), nil)
	if errors.Is(err, ErrBookNotFound) {
		return nil, ErrBookNotFound
	}
	if err != nil {
		c.logger.Warn("catalog lookup failed", zap.String("book_id", bookID), zap.Error(err))
		return nil, err
	}

	var v volume
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("%w: decode volume: %v", ErrUnavailable, err)
	}
	if v.ID == "" {
		return nil, ErrBookNotFound
	}
	book := v.toBook()
	return &book, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if params == nil {
		params = url.Values{}
	}
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}
	endpoint := c.baseURL + path
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	body, err := c.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, ErrBookNotFound
		case resp.StatusCode != http.StatusOK:
			return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
		}

		var raw json.RawMessage
		if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: decode body: %v", ErrUnavailable, err)
		}
		return raw, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return body, err
}

type volumesResponse struct {
	Items []volume `json:"items"`
}

type volume struct {
	ID         string `json:"id"`
	VolumeInfo struct {
		Title       string   `json:"title"`
		Authors     []string `json:"authors"`
		Description string   `json:"description"`
		ImageLinks  struct {
			Thumbnail string `json:"thumbnail"`
		} `json:"imageLinks"`
	} `json:"volumeInfo"`
}

func (v volume) toBook() domain.Book {
	book := domain.Book{
		ID:          v.ID,
		Title:       v.VolumeInfo.Title,
		Authors:     v.VolumeInfo.Authors,
		Thumbnail:   v.VolumeInfo.ImageLinks.Thumbnail,
		Description: v.VolumeInfo.Description,
		Price:       pricing.DisplayPrice(),
	}
	if book.Title == "" {
		book.Title = "No title"
	}
	if len(book.Authors) == 0 {
		book.Authors = []string{"Unknown"}
	}
	return book
}
