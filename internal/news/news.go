// Package news looks up recent press coverage of a vehicle through the Naver
// news search API.
package news

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/antonholmquist/jason"
	"github.com/k3a/html2text"
	"github.com/patrickmn/go-cache"

	"github.com/lemonscanner/lemon-scanner/internal/conf"
	"github.com/lemonscanner/lemon-scanner/internal/errors"
	"github.com/lemonscanner/lemon-scanner/internal/httpclient"
	"github.com/lemonscanner/lemon-scanner/internal/logger"
	"github.com/lemonscanner/lemon-scanner/internal/observability/metrics"
)

const (
	// Provider labels upstream metrics.
	Provider = "naver"

	// DefaultEndpoint is the Naver news search API.
	DefaultEndpoint = "https://openapi.naver.com/v1/search/news.json"

	// DefaultDisplay is the number of articles requested per query.
	DefaultDisplay = 3

	headerClientID     = "X-Naver-Client-Id"
	headerClientSecret = "X-Naver-Client-Secret"

	// pubDateLayout is the RFC 1123 form with numeric zone used by the API.
	pubDateLayout = time.RFC1123Z
)

// Article is one news search result with markup removed.
type Article struct {
	Title        string    `json:"title"`
	Link         string    `json:"link"`
	OriginalLink string    `json:"original_link,omitempty"`
	Description  string    `json:"description"`
	PublishedAt  time.Time `json:"published_at,omitzero"`
}

// Client queries the news API and caches results per query.
type Client struct {
	endpoint     string
	clientID     string
	clientSecret string
	display      int
	http         *httpclient.Client
	cache        *cache.Cache
	log          logger.Logger
	metrics      *metrics.HTTPMetrics
}

// NewClient creates a news client from settings. Missing credentials are a
// configuration error. httpClient may be nil; m may be nil.
func NewClient(settings *conf.NewsSettings, httpClient *httpclient.Client, log logger.Logger, m *metrics.HTTPMetrics) (*Client, error) {
	if settings.ClientID == "" || settings.ClientSecret == "" {
		return nil, errors.Newf("naver client id and secret are required").
			Component("news").
			Category(errors.CategoryConfiguration).
			Build()
	}

	endpoint := settings.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	display := settings.Display
	if display <= 0 {
		display = DefaultDisplay
	}
	ttl := settings.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	if httpClient == nil {
		httpClient = httpclient.New(&httpclient.Config{DefaultTimeout: settings.Timeout})
	}
	if m != nil {
		httpClient.SetAfterResponseHook(func(_ *http.Request, resp *http.Response, elapsed time.Duration, err error) {
			status := "error"
			if err == nil {
				status = strconv.Itoa(resp.StatusCode)
			}
			m.RecordUpstreamRequest(Provider, status, elapsed.Seconds())
		})
	}

	return &Client{
		endpoint:     endpoint,
		clientID:     settings.ClientID,
		clientSecret: settings.ClientSecret,
		display:      display,
		http:         httpClient,
		cache:        cache.New(ttl, ttl*2),
		log:          log,
		metrics:      m,
	}, nil
}

// Search returns the newest articles for query. No results is an empty
// slice; a non-2xx response is a network error.
func (c *Client) Search(ctx context.Context, query string) ([]Article, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.Newf("news query is empty").
			Component("news").
			Category(errors.CategoryValidation).
			Build()
	}

	if cached, found := c.cache.Get(query); found {
		if articles, ok := cached.([]Article); ok {
			c.recordLookup(true)
			c.log.Debug("news cache hit", logger.String("query", query))
			return articles, nil
		}
	}
	c.recordLookup(false)

	params := url.Values{}
	params.Set("query", query)
	params.Set("display", strconv.Itoa(c.display))
	params.Set("sort", "date")

	header := http.Header{}
	header.Set(headerClientID, c.clientID)
	header.Set(headerClientSecret, c.clientSecret)

	resp, err := c.http.Get(ctx, c.endpoint+"?"+params.Encode(), header)
	if err != nil {
		return nil, errors.New(fmt.Errorf("news request failed: %w", err)).
			Component("news").
			Category(errors.CategoryNetwork).
			Context("query", query).
			Build()
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.log.Debug("close news response body", logger.Error(err))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Newf("news API returned status %d", resp.StatusCode).
			Component("news").
			Category(errors.CategoryNetwork).
			Context("query", query).
			Context("status_code", resp.StatusCode).
			Build()
	}

	articles, err := parseArticles(resp)
	if err != nil {
		return nil, errors.New(err).
			Component("news").
			Category(errors.CategoryNetwork).
			Context("query", query).
			Build()
	}

	c.cache.Set(query, articles, cache.DefaultExpiration)
	c.log.Debug("news fetched", logger.String("query", query), logger.Int("articles", len(articles)))
	return articles, nil
}

func (c *Client) recordLookup(hit bool) {
	if c.metrics != nil {
		c.metrics.RecordCacheLookup(metrics.CacheNews, hit)
	}
}

func parseArticles(resp *http.Response) ([]Article, error) {
	body, err := jason.NewObjectFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode news response: %w", err)
	}

	articles := make([]Article, 0)
	items, err := body.GetObjectArray("items")
	if err != nil {
		return articles, nil //nolint:nilerr // absent items means no results
	}

	for _, item := range items {
		title, _ := item.GetString("title")
		link, _ := item.GetString("link")
		original, _ := item.GetString("originallink")
		description, _ := item.GetString("description")

		a := Article{
			Title:        cleanText(title),
			Link:         link,
			OriginalLink: original,
			Description:  cleanText(description),
		}
		if pub, err := item.GetString("pubDate"); err == nil {
			if t, err := time.Parse(pubDateLayout, pub); err == nil {
				a.PublishedAt = t
			}
		}
		articles = append(articles, a)
	}
	return articles, nil
}

// cleanText strips tags and decodes entities from API highlight markup.
func cleanText(s string) string {
	return strings.TrimSpace(html2text.HTML2Text(s))
}

// Close releases idle upstream connections.
func (c *Client) Close() {
	c.http.Close()
}
