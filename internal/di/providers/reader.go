package providers

import (
	"github.com/samber/do/v2"

	"github.com/luminareader/lumina-server/internal/archive"
	"github.com/luminareader/lumina-server/internal/config"
	"github.com/luminareader/lumina-server/internal/engine"
	"github.com/luminareader/lumina-server/internal/logger"
	"github.com/luminareader/lumina-server/internal/reader"
)

// ProvideSurface provides the shared display surface the UI mounts into.
func ProvideSurface(_ do.Injector) (*reader.Surface, error) {
	return reader.NewSurface(), nil
}

// SessionHandle wraps the reader session so shutdown tears down any open
// book and persists its final position.
type SessionHandle struct {
	Session *reader.Session
}

// Shutdown implements do.Shutdowner.
func (h *SessionHandle) Shutdown() error {
	h.Session.CloseBook()
	return nil
}

// ProvideSession provides the single reader session.
func ProvideSession(i do.Injector) (*SessionHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	provider := do.MustInvoke[archive.Provider](i)
	factory := do.MustInvoke[engine.Factory](i)
	surface := do.MustInvoke[*reader.Surface](i)
	toasts := do.MustInvoke[*NotifyCenterHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	session := reader.NewSession(
		factory,
		provider,
		storeHandle.Store,
		surface,
		toasts.Center,
		sseHandle.Manager,
		cfg.Reader,
		log.Logger,
	)
	return &SessionHandle{Session: session}, nil
}
