package providers

import (
	"time"

	"github.com/samber/do/v2"

	"github.com/luminareader/lumina-server/internal/config"
	"github.com/luminareader/lumina-server/internal/logger"
)

// shutdownTimeout bounds each component's graceful shutdown.
const shutdownTimeout = 10 * time.Second

// ProvideLogger provides the application logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return logger.New(logger.Config{
		Environment: cfg.App.Environment,
		Level:       logger.ParseLevel(cfg.Logger.Level),
	}), nil
}
