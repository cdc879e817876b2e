package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/devscout/devscout/internal/agent/core"
)

// discoveryRunner is the slice of the orchestrator the handler needs.
type discoveryRunner interface {
	Run(ctx context.Context, capability string) (core.RunResult, error)
}

// SearchHandler exposes the discovery endpoint.
type SearchHandler struct {
	Runner discoveryRunner
	Logger *log.Logger
}

func (h *SearchHandler) Register(e *echo.Echo) {
	e.GET("/search", h.search)
	e.POST("/search", h.search)
	e.GET("/search/", h.search)
	e.POST("/search/", h.search)
}

// search runs one discovery pass for the question query parameter. The
// question travels as a query parameter for both verbs; any request body
// is ignored.
func (h *SearchHandler) search(c echo.Context) error {
	question := strings.TrimSpace(c.QueryParam("question"))
	if question == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question cannot be empty")
	}
	if h.Runner == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "orchestrator not initialized")
	}

	h.Logger.Printf("search request: %q", question)
	result, err := h.Runner.Run(c.Request().Context(), question)
	if err != nil {
		h.Logger.Printf("discovery run failed: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error":   "an unexpected error occurred while processing the request",
			"details": err.Error(),
		})
	}

	// Final output that is already valid JSON passes through verbatim,
	// anything else is returned as a plain JSON string.
	out := []byte(result.FinalOutput)
	if json.Valid(out) {
		return c.JSONBlob(http.StatusOK, out)
	}
	return c.JSON(http.StatusOK, result.FinalOutput)
}
