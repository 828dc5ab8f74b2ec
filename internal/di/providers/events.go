package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/luminareader/lumina-server/internal/logger"
	"github.com/luminareader/lumina-server/internal/sse"
)

// SSEManagerHandle wraps the event stream manager with its broadcast
// loop's lifetime.
type SSEManagerHandle struct {
	Manager *sse.Manager
	cancel  context.CancelFunc
}

// Shutdown implements do.Shutdowner.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the SSE manager with its broadcast loop
// running.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(log.Logger)
	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	return &SSEManagerHandle{Manager: manager, cancel: cancel}, nil
}
