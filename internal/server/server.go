// Package server exposes the pipeline over HTTP and runs it on a schedule.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/pathfinder/engine"
	"github.com/mohammad-safakhou/pathfinder/internal/catalog"
	"github.com/mohammad-safakhou/pathfinder/internal/logging"
)

// Runner is the subset of *engine.Engine the HTTP layer and scheduler call.
type Runner interface {
	RunDiscovery(ctx context.Context) engine.DiscoverySummary
	CrawlURLs(ctx context.Context, urls []string) engine.DiscoverySummary
	RunExtraction(ctx context.Context) engine.ExtractionSummary
	Run(ctx context.Context) engine.RunSummary
}

type Options struct {
	Runner  Runner
	Catalog catalog.Store
	// JWTSecret protects the crawler routes; empty leaves them open.
	JWTSecret string
	// Gatherer backs /metrics; nil disables the route.
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// New builds the echo instance with every route registered.
func New(o Options) *echo.Echo {
	logger := logging.OrNop(o.Logger).Named("http")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("request",
				zap.String("method", v.Method), zap.String("uri", v.URI),
				zap.Int("status", v.Status), zap.Duration("latency", v.Latency))
			return nil
		},
	}))
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		if code >= http.StatusInternalServerError {
			logger.Error("request failed", zap.String("path", c.Request().URL.Path), zap.Error(err))
		}
		if !c.Response().Committed {
			_ = c.JSON(code, HTTPError{Error: msg})
		}
	}

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if o.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(o.Gatherer, promhttp.HandlerOpts{})))
	}

	api := e.Group("/api")
	crawler := api.Group("/crawler")
	if o.JWTSecret != "" {
		crawler.Use(AuthMiddleware([]byte(o.JWTSecret)), RequireScopes(ScopeCrawler))
	}
	(&CrawlerHandler{Runner: o.Runner}).Register(crawler)
	(&EventsHandler{Catalog: o.Catalog}).Register(api.Group("/events"))
	return e
}

// Serve listens on addr until ctx is done, then shuts down gracefully.
func Serve(ctx context.Context, e *echo.Echo, addr string, logger *zap.Logger) error {
	logger = logging.OrNop(logger).Named("http")
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
