package app

import (
	"github.com/artigraph/backend/pkg/logger"
	"github.com/artigraph/backend/pkg/logger/console"
)

// InitLogger installs the console backend.
func InitLogger(cfg Config, prefix string) {
	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  cfg.Debug,
		Format: cfg.LogFormat,
		Prefix: prefix,
	}))
}
