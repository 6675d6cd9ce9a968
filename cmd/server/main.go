package main

import (
	"github.com/artigraph/backend/internal/app"
	"github.com/artigraph/backend/internal/server"

	_ "github.com/lib/pq"
)

func main() {
	cfg := app.LoadConfig()
	app.InitLogger(cfg, "server")

	server.Init(cfg)
}
