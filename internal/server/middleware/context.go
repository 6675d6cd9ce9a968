package middleware

import (
	"context"

	"github.com/artigraph/backend/internal/queue"
	"github.com/artigraph/backend/pkg/ai"
	"github.com/artigraph/backend/pkg/graph"
	"github.com/artigraph/backend/pkg/store"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type AppUser struct {
	UserID string
}

// ArtifactArchive stores submitted code for the worker.
type ArtifactArchive interface {
	PutArtifact(ctx context.Context, artifactID, name string, code []byte) (string, error)
}

// App carries the collaborators shared by all requests. Runs, Queue and
// Archive are optional; routes that need them answer 503 when they are nil.
type App struct {
	Graph    *graph.GraphClient
	AiClient ai.GraphAIClient
	Store    store.GraphStorage
	Runs     store.RunStorage
	Queue    queue.Publisher
	Archive  ArtifactArchive

	Keyfunc      jwt.Keyfunc
	MasterAPIKey string
	MasterUserID string
}

// AuthEnabled reports whether requests must carry credentials.
func (a *App) AuthEnabled() bool {
	return a.Keyfunc != nil || a.MasterAPIKey != ""
}

type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app, nil}
			return next(cc)
		}
	}
}
