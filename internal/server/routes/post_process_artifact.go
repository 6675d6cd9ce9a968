package routes

import (
	"errors"
	"net/http"

	"github.com/artigraph/backend/internal/server/middleware"
	"github.com/artigraph/backend/pkg/graph"
	"github.com/artigraph/backend/pkg/logger"

	"github.com/labstack/echo/v4"
)

type processArtifactBody struct {
	Code     string `json:"code" validate:"required"`
	UserID   string `json:"user_id"`
	Simulate bool   `json:"simulate"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// ProcessArtifactHandler runs the whole pipeline synchronously and answers
// with the run summary.
func ProcessArtifactHandler(c echo.Context) error {
	data := new(processArtifactBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Detail: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Detail: "code is required"})
	}

	cc := c.(*middleware.AppContext)
	app := cc.App

	summary, err := app.Graph.ProcessArtifact(c.Request().Context(), graph.ArtifactRequest{
		Code:     data.Code,
		UserID:   resolveUserID(cc, data.UserID),
		Simulate: data.Simulate,
	}, app.AiClient, app.Store)
	logAIMetrics(app)
	if errors.Is(err, graph.ErrInvalidInput) {
		return c.JSON(http.StatusBadRequest, errorResponse{Detail: err.Error()})
	}
	if err != nil {
		logger.Error("[Server] Failed to process artifact", "err", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Detail: err.Error()})
	}

	return c.JSON(http.StatusOK, summary)
}

// resolveUserID prefers the user named in the body and falls back to the
// authenticated one.
func resolveUserID(cc *middleware.AppContext, bodyUserID string) string {
	if bodyUserID != "" {
		return bodyUserID
	}
	if cc.User != nil {
		return cc.User.UserID
	}
	return ""
}

// logAIMetrics reports the client's running totals. Requests share one
// client, so the numbers are cumulative rather than per run.
func logAIMetrics(app *middleware.App) {
	metrics := app.AiClient.GetMetrics()
	logger.Info(
		"[Server] AI metrics",
		"requests", metrics.Requests,
		"input_tokens", metrics.InputTokens,
		"output_tokens", metrics.OutputTokens,
		"total_tokens", metrics.TotalTokens,
		"duration_ms", metrics.DurationMs,
	)
}
