package routes

import (
	"net/http"
	"strings"

	"github.com/artigraph/backend/internal/queue"
	"github.com/artigraph/backend/internal/server/middleware"
	"github.com/artigraph/backend/pkg/logger"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type submitArtifactBody struct {
	Code     string `json:"code" validate:"required"`
	Name     string `json:"name"`
	UserID   string `json:"user_id"`
	Simulate bool   `json:"simulate"`
}

type submitArtifactResponse struct {
	Message    string `json:"message"`
	ArtifactID string `json:"artifact_id"`
	S3Key      string `json:"s3_key,omitempty"`
}

// SubmitArtifactHandler queues an artifact for the worker. With an archive
// configured the code goes to S3 and the message only carries the key.
func SubmitArtifactHandler(c echo.Context) error {
	data := new(submitArtifactBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Detail: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil || strings.TrimSpace(data.Code) == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Detail: "code is required"})
	}

	cc := c.(*middleware.AppContext)
	app := cc.App
	if app.Queue == nil {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Detail: "Queue is not configured"})
	}

	msg := queue.QueueArtifactMsg{
		ArtifactID: uuid.NewString(),
		UserID:     resolveUserID(cc, data.UserID),
		Simulate:   data.Simulate,
	}

	if app.Archive != nil {
		key, err := app.Archive.PutArtifact(c.Request().Context(), msg.ArtifactID, data.Name, []byte(data.Code))
		if err != nil {
			logger.Error("[Server] Failed to archive artifact", "artifact_id", msg.ArtifactID, "err", err)
			return c.JSON(http.StatusInternalServerError, errorResponse{Detail: "Failed to archive artifact"})
		}
		msg.S3Key = key
	} else {
		msg.Code = data.Code
	}

	if err := queue.PublishArtifact(app.Queue, msg); err != nil {
		logger.Error("[Server] Failed to enqueue artifact", "artifact_id", msg.ArtifactID, "err", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Detail: "Failed to enqueue artifact"})
	}

	logger.Info("[Server] Artifact queued", "artifact_id", msg.ArtifactID, "s3_key", msg.S3Key)
	return c.JSON(http.StatusAccepted, submitArtifactResponse{
		Message:    "Artifact queued for processing",
		ArtifactID: msg.ArtifactID,
		S3Key:      msg.S3Key,
	})
}
