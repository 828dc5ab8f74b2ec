package providers

import (
	"github.com/samber/do/v2"

	"github.com/luminareader/lumina-server/internal/logger"
	"github.com/luminareader/lumina-server/internal/notify"
)

// NotifyCenterHandle wraps the toast center with its expiry timers.
type NotifyCenterHandle struct {
	Center *notify.Center
}

// Shutdown implements do.Shutdowner.
func (h *NotifyCenterHandle) Shutdown() error {
	h.Center.Close()
	return nil
}

// ProvideNotifyCenter provides the toast notification center, publishing
// toast lifecycle events to the SSE stream.
func ProvideNotifyCenter(i do.Injector) (*NotifyCenterHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	center := notify.NewCenter(notify.DefaultTTL, log.Logger, sseHandle.Manager)
	return &NotifyCenterHandle{Center: center}, nil
}
