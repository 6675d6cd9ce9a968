package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/artigraph/backend/internal/app"
	"github.com/artigraph/backend/internal/queue"
	mid "github.com/artigraph/backend/internal/server/middleware"
	"github.com/artigraph/backend/internal/storage"
	"github.com/artigraph/backend/pkg/logger"
	"github.com/artigraph/backend/pkg/store"
	"github.com/artigraph/backend/pkg/store/pgx"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/go-playground/validator"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

// NewEcho builds the HTTP surface around an already wired App.
func NewEcho(a *mid.App) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(mid.AppContextMiddleware(a))
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("16M"))

	RegisterRoutes(e)
	return e
}

// Init wires every collaborator from cfg and serves until SIGINT or SIGTERM.
func Init(cfg app.Config) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &mid.App{
		MasterAPIKey: cfg.MasterAPIKey,
		MasterUserID: cfg.MasterUserID,
	}

	if cfg.AuthURL != "" {
		jwksURL := strings.TrimSuffix(cfg.AuthURL, "/") + "/jwks"
		k, err := keyfunc.NewDefault([]string{jwksURL})
		if err != nil {
			logger.Fatal("Failed to load jwks keys", "err", err)
		}
		a.Keyfunc = k.Keyfunc
	}
	if !a.AuthEnabled() {
		logger.Warn("Authentication disabled, set AUTH_URL or MASTER_API_KEY to enable it")
	}

	graphStorage, err := app.OpenGraphStorage(ctx, cfg.Neo4j)
	if err != nil {
		logger.Fatal("Failed to connect to Neo4j", "err", err)
	}
	defer graphStorage.Close(context.Background())
	a.Store = graphStorage

	var runs store.RunStorage
	if cfg.DatabaseURL != "" {
		if err := app.Migrate(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
			logger.Fatal("Failed to migrate database", "err", err)
		}
		conn, err := app.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("Failed to connect to database", "err", err)
		}
		defer conn.Close()
		runs = pgx.NewRunDBStorageWithConnection(conn)
		a.Runs = runs
	}

	aiClient, err := app.NewAIClient(cfg.AI)
	if err != nil {
		logger.Fatal("Failed to create AI client", "err", err)
	}
	a.AiClient = aiClient

	a.Graph, err = app.NewGraphClient(cfg, runs)
	if err != nil {
		logger.Fatal("Failed to create graph client", "err", err)
	}

	que, err := queue.Dial(cfg.RabbitMQ.URL())
	if err != nil {
		logger.Warn("Queue unavailable, POST /artifacts disabled", "err", err)
	} else {
		defer que.Close()
		ch, err := que.Channel()
		if err != nil {
			logger.Fatal("Failed to open channel", "err", err)
		}
		if err := queue.SetupQueues(ch, []string{queue.ArtifactQueue}); err != nil {
			logger.Fatal("Failed to declare queues", "err", err)
		}
		a.Queue = ch
	}

	if cfg.S3.Bucket != "" {
		client, err := storage.NewS3Client(ctx, storage.NewArchiveParams{
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
		})
		if err != nil {
			logger.Fatal("Failed to create S3 client", "err", err)
		}
		a.Archive = storage.NewArchive(client, cfg.S3.Bucket)
	}

	e := NewEcho(a)

	go func() {
		logger.Info("Starting server", "port", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}
