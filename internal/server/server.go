package server

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/devscout/devscout/config"
	"github.com/devscout/devscout/internal/agent/core"
	"github.com/devscout/devscout/internal/agent/telemetry"
)

var serverTracer trace.Tracer = otel.Tracer("devscout/internal/server")

// Run starts the HTTP server. The orchestrator is built once here; when
// its construction fails the server still comes up and /search/ answers
// 503 until the configuration is fixed and the process restarted.
func Run(cfg *config.Config) error {
	logger := log.New(log.Writer(), "[SERVER] ", log.LstdFlags)

	tel := telemetry.NewTelemetry(cfg.Telemetry)

	var runner discoveryRunner
	orch, err := core.NewOrchestrator(cfg, tel)
	if err != nil {
		logger.Printf("orchestrator unavailable, /search/ will return 503: %v", err)
	} else {
		runner = orch
	}

	e := newRouter(cfg, tel, runner, logger)

	addr := cfg.Server.Address
	if addr == "" {
		addr = ":8034"
	}
	logger.Printf("listening on %s", addr)
	return e.Start(addr)
}

// newRouter wires middleware and routes onto a fresh echo instance.
func newRouter(cfg *config.Config, tel *telemetry.Telemetry, runner discoveryRunner, logger *log.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	// Unified HTTP error handler with structured JSON and logging
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		logger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}

	origins := cfg.Server.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type"},
		AllowCredentials: true,
	}))
	e.Use(requestTelemetry(tel))

	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"service": "devscout",
			"message": "Welcome to the developer tool discovery API. Use the /search/ endpoint to run discovery requests.",
		})
	})
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	sh := &SearchHandler{Runner: runner, Logger: logger}
	sh.Register(e)

	return e
}

// requestTelemetry spans each request and feeds the request counters.
// The route pattern rather than the raw URL goes into the metric label.
func requestTelemetry(tel *telemetry.Telemetry) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx, span := serverTracer.Start(req.Context(), "http.request",
				trace.WithAttributes(
					attribute.String("http.method", req.Method),
					attribute.String("http.path", req.URL.Path),
				))
			defer span.End()
			c.SetRequest(req.WithContext(ctx))

			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				status = http.StatusInternalServerError
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			span.SetAttributes(attribute.Int("http.status_code", status))
			tel.RecordHTTPRequest(ctx, req.Method, c.Path(), status, time.Since(start))
			return err
		}
	}
}
