package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luminareader/lumina-server/internal/domain"
)

type recordingEmitter struct {
	mu     sync.Mutex
	events []any
}

func (r *recordingEmitter) Emit(event any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingEmitter) Events() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]any, len(r.events))
	copy(out, r.events)
	return out
}

func TestPushAndActive(t *testing.T) {
	center := NewCenter(time.Minute, nil, nil)
	defer center.Close()

	first := center.Info("library imported")
	second := center.Error("could not open book")

	active := center.Active()
	require.Len(t, active, 2)
	assert.Equal(t, first.ID, active[0].ID)
	assert.Equal(t, second.ID, active[1].ID)
	assert.Equal(t, domain.ToastInfo, active[0].Kind)
	assert.Equal(t, domain.ToastError, active[1].Kind)
	assert.NotEmpty(t, first.ID)
}

func TestDismiss(t *testing.T) {
	center := NewCenter(time.Minute, nil, nil)
	defer center.Close()

	toast := center.Success("done")
	require.Len(t, center.Active(), 1)

	assert.True(t, center.Dismiss(toast.ID))
	assert.Empty(t, center.Active())
}

func TestDismiss_TwiceIsNoop(t *testing.T) {
	center := NewCenter(time.Minute, nil, nil)
	defer center.Close()

	toast := center.Info("hello")

	assert.True(t, center.Dismiss(toast.ID))
	assert.False(t, center.Dismiss(toast.ID))
	assert.False(t, center.Dismiss("toast_never_existed"))
	assert.Empty(t, center.Active())
}

func TestAutoExpiry(t *testing.T) {
	center := NewCenter(10*time.Millisecond, nil, nil)
	defer center.Close()

	center.Info("short lived")
	require.Len(t, center.Active(), 1)

	assert.Eventually(t, func() bool {
		return len(center.Active()) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestExpiryThenManualDismissIsNoop(t *testing.T) {
	center := NewCenter(10*time.Millisecond, nil, nil)
	defer center.Close()

	toast := center.Info("short lived")

	require.Eventually(t, func() bool {
		return len(center.Active()) == 0
	}, time.Second, 5*time.Millisecond)

	assert.False(t, center.Dismiss(toast.ID))
}

func TestEvents(t *testing.T) {
	emitter := &recordingEmitter{}
	center := NewCenter(time.Minute, nil, emitter)
	defer center.Close()

	toast := center.Info("hello")
	center.Dismiss(toast.ID)

	events := emitter.Events()
	require.Len(t, events, 2)

	pushed, ok := events[0].(ToastPushed)
	require.True(t, ok)
	assert.Equal(t, toast.ID, pushed.Toast.ID)

	dismissed, ok := events[1].(ToastDismissed)
	require.True(t, ok)
	assert.Equal(t, toast.ID, dismissed.ToastID)
}

func TestClose_StopsTimers(t *testing.T) {
	center := NewCenter(time.Minute, nil, nil)

	center.Info("one")
	center.Info("two")
	center.Close()

	assert.Empty(t, center.Active())
	assert.Nil(t, center.Push(domain.ToastInfo, "after close"), "push after close should not queue")
}
