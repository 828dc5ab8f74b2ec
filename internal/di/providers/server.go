package providers

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/luminareader/lumina-server/internal/api"
	"github.com/luminareader/lumina-server/internal/config"
	"github.com/luminareader/lumina-server/internal/logger"
	"github.com/luminareader/lumina-server/internal/media/covers"
	"github.com/luminareader/lumina-server/internal/service"
	"github.com/luminareader/lumina-server/internal/sse"
)

// HTTPServerHandle wraps the listening HTTP server.
type HTTPServerHandle struct {
	server    *http.Server
	apiServer *api.Server
}

// Shutdown implements do.Shutdowner.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.server.Shutdown(ctx)
	h.apiServer.Close()
	return err
}

// ProvideHTTPServer provides the loopback HTTP server, already listening.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	library := do.MustInvoke[*service.LibraryService](i)
	collections := do.MustInvoke[*service.CollectionService](i)
	preferences := do.MustInvoke[*service.PreferencesService](i)
	sessionHandle := do.MustInvoke[*SessionHandle](i)
	toasts := do.MustInvoke[*NotifyCenterHandle](i)
	coverStorage := do.MustInvoke[*covers.Storage](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	apiServer := api.NewServer(
		&api.Services{
			Library:     library,
			Collections: collections,
			Preferences: preferences,
		},
		sessionHandle.Session,
		toasts.Center,
		coverStorage,
		sse.NewHandler(sseHandle.Manager, log.Logger),
		cfg.Server.UIOrigin,
		log.Logger,
	)

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      apiServer,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "error", err)
		}
	}()

	return &HTTPServerHandle{server: server, apiServer: apiServer}, nil
}
