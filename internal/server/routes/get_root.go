package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type rootResponse struct {
	Message string `json:"message"`
}

func RootHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, rootResponse{Message: "Artifact Processing API is running! New version"})
}
