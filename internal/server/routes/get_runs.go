package routes

import (
	"errors"
	"net/http"

	"github.com/artigraph/backend/internal/server/middleware"
	"github.com/artigraph/backend/pkg/logger"
	"github.com/artigraph/backend/pkg/store"

	"github.com/labstack/echo/v4"
)

func GetRunHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App
	if app.Runs == nil {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Detail: "Run ledger is not configured"})
	}

	id := c.Param("id")
	run, err := app.Runs.GetRun(c.Request().Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, errorResponse{Detail: "Run not found"})
	}
	if err != nil {
		logger.Error("[Server] Failed to load run", "id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Detail: "Failed to load run"})
	}
	return c.JSON(http.StatusOK, run)
}
