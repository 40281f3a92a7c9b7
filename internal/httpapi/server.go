// Package httpapi serves the recall catalog and news lookup as a JSON API
// for the dashboard.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/lemonscanner/lemon-scanner/internal/catalog"
	"github.com/lemonscanner/lemon-scanner/internal/conf"
	"github.com/lemonscanner/lemon-scanner/internal/errors"
	"github.com/lemonscanner/lemon-scanner/internal/logger"
	"github.com/lemonscanner/lemon-scanner/internal/news"
	"github.com/lemonscanner/lemon-scanner/internal/observability"
)

const defaultShutdownTimeout = 10 * time.Second

// Catalog is the read query layer behind the API.
type Catalog interface {
	Brands(ctx context.Context) ([]string, error)
	Models(ctx context.Context, brand string) ([]string, error)
	Keywords(ctx context.Context) ([]catalog.KeywordInfo, error)
	Search(ctx context.Context, filter catalog.SearchFilter) ([]catalog.RecallView, error)
	Compare(ctx context.Context, brand, model string) (*catalog.ModelStats, error)
	Profile(ctx context.Context, brand, model string) (*catalog.ModelProfile, error)
	Summary(ctx context.Context) (*catalog.Summary, error)
	Rankings(ctx context.Context) (*catalog.Rankings, error)
}

// NewsSearcher looks up news articles for a free-text query.
type NewsSearcher interface {
	Search(ctx context.Context, query string) ([]news.Article, error)
}

// Server is the JSON API server.
type Server struct {
	echo      *echo.Echo
	settings  *conf.ServerSettings
	catalog   Catalog
	news      NewsSearcher
	metrics   *observability.Metrics
	log       logger.Logger
	startTime time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithNews enables the news endpoint.
func WithNews(n NewsSearcher) Option {
	return func(s *Server) {
		s.news = n
	}
}

// WithMetrics enables request metrics and the /metrics endpoint.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// New creates a Server over cat with routes and middleware installed.
func New(settings *conf.ServerSettings, cat Catalog, log logger.Logger, opts ...Option) *Server {
	s := &Server{
		settings:  settings,
		catalog:   cat,
		log:       log,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.HTTPErrorHandler = s.handleError

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Handler exposes the router, e.g. for httptest.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) setupMiddleware() {
	s.echo.Use(echomw.Recover())
	if s.metrics != nil {
		s.echo.Use(requestMetrics(s.metrics))
	}
	s.echo.Use(requestLogger(s.log))

	origins := s.settings.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.echo.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodHead},
	}))
	s.echo.Use(echomw.Gzip())
}

func (s *Server) setupRoutes() {
	s.echo.GET("/healthz", s.healthCheck)
	if s.metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	api := s.echo.Group("/api")
	api.GET("/brands", s.getBrands)
	api.GET("/brands/:brand/models", s.getModels)
	api.GET("/keywords", s.getKeywords)
	api.GET("/recalls", s.searchRecalls)
	api.GET("/compare", s.compareModel)
	api.GET("/profile", s.getProfile)
	api.GET("/summary", s.getSummary)
	api.GET("/rankings", s.getRankings)
	api.GET("/news", s.searchNews)
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.Start(s.settings.Listen)
	}()
	s.log.Info("HTTP server starting", logger.String("address", s.settings.Listen))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.New(fmt.Errorf("http server: %w", err)).
			Component("httpapi").
			Category(errors.CategoryNetwork).
			Context("listen", s.settings.Listen).
			Build()
	case <-ctx.Done():
	}

	timeout := s.settings.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.log.Info("HTTP server shutting down")
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return errors.New(fmt.Errorf("http server shutdown: %w", err)).
			Component("httpapi").
			Category(errors.CategoryNetwork).
			Build()
	}
	<-errCh
	return nil
}

func (s *Server) healthCheck(c echo.Context) error {
	uptime := time.Since(s.startTime)
	return c.JSON(http.StatusOK, map[string]any{
		"status":         "healthy",
		"uptime":         uptime.String(),
		"uptime_seconds": uptime.Seconds(),
		"news_enabled":   s.news != nil,
	})
}
