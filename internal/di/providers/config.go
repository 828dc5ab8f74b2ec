package providers

import (
	"github.com/samber/do/v2"

	"github.com/luminareader/lumina-server/internal/config"
)

// ProvideConfig loads the application configuration.
func ProvideConfig(_ do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}
