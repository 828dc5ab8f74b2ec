// Package notify holds the transient toast queue. Every component surfaces
// user-facing failures here; technical detail stays in the logs.
package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/luminareader/lumina-server/internal/domain"
	"github.com/luminareader/lumina-server/internal/id"
)

// DefaultTTL is how long a toast lives before it expires on its own.
const DefaultTTL = 5 * time.Second

// EventEmitter receives toast lifecycle events for the UI event stream.
type EventEmitter interface {
	Emit(event any)
}

// ToastPushed is emitted when a toast enters the queue.
type ToastPushed struct {
	Toast *domain.Toast `json:"toast"`
}

// ToastDismissed is emitted when a toast leaves the queue, whether by
// user action or expiry.
type ToastDismissed struct {
	ToastID string `json:"toast_id"`
}

type noopEmitter struct{}

func (noopEmitter) Emit(any) {}

// Center owns the toast queue and each entry's expiry timer. A toast's
// timer belongs to the center alone; dismissing an already-gone toast is
// a harmless no-op.
type Center struct {
	ttl     time.Duration
	logger  *slog.Logger
	emitter EventEmitter

	mu     sync.Mutex
	toasts []*domain.Toast
	timers map[string]*time.Timer
	closed bool
}

// NewCenter creates a toast center. A zero ttl means DefaultTTL.
func NewCenter(ttl time.Duration, logger *slog.Logger, emitter EventEmitter) *Center {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if emitter == nil {
		emitter = noopEmitter{}
	}
	return &Center{
		ttl:     ttl,
		logger:  logger,
		emitter: emitter,
		timers:  make(map[string]*time.Timer),
	}
}

// Push queues a toast and arms its expiry timer. Returns nil after Close.
func (c *Center) Push(kind domain.ToastKind, message string) *domain.Toast {
	toast := domain.NewToast(id.MustGenerate(id.PrefixToast), kind, message)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.toasts = append(c.toasts, toast)
	c.timers[toast.ID] = time.AfterFunc(c.ttl, func() {
		c.Dismiss(toast.ID)
	})
	c.mu.Unlock()

	if c.logger != nil {
		c.logger.Debug("toast pushed", "toast_id", toast.ID, "kind", kind, "message", message)
	}
	c.emitter.Emit(ToastPushed{Toast: toast})
	return toast
}

// Info queues an informational toast.
func (c *Center) Info(message string) *domain.Toast {
	return c.Push(domain.ToastInfo, message)
}

// Success queues a success toast.
func (c *Center) Success(message string) *domain.Toast {
	return c.Push(domain.ToastSuccess, message)
}

// Error queues an error toast.
func (c *Center) Error(message string) *domain.Toast {
	return c.Push(domain.ToastError, message)
}

// Dismiss removes a toast and stops its timer. Reports whether the toast
// was still queued; dismissing twice is a no-op.
func (c *Center) Dismiss(toastID string) bool {
	c.mu.Lock()
	idx := -1
	for i, t := range c.toasts {
		if t.ID == toastID {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return false
	}
	c.toasts = append(c.toasts[:idx], c.toasts[idx+1:]...)
	timer := c.timers[toastID]
	delete(c.timers, toastID)
	c.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	c.emitter.Emit(ToastDismissed{ToastID: toastID})
	return true
}

// Active returns the queued toasts in insertion order.
func (c *Center) Active() []*domain.Toast {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*domain.Toast, len(c.toasts))
	copy(out, c.toasts)
	return out
}

// Close stops every timer and drops the queue. Used at shutdown.
func (c *Center) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for toastID, timer := range c.timers {
		timer.Stop()
		delete(c.timers, toastID)
	}
	c.toasts = nil
}
