package providers

import (
	"github.com/samber/do/v2"

	"github.com/luminareader/lumina-server/internal/engine"
	"github.com/luminareader/lumina-server/internal/engine/epub"
	"github.com/luminareader/lumina-server/internal/logger"
)

// ProvideEngineFactory provides the EPUB rendition engine factory.
func ProvideEngineFactory(i do.Injector) (engine.Factory, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return epub.NewFactory(log.Logger), nil
}
