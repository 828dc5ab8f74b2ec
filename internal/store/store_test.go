package store

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// setupTestStore creates a temporary store for testing
func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	// Create temp directory for test database
	tmpDir, err := os.MkdirTemp("", "lumina-test-*")
	require.NoError(t, err)

	dbPath := filepath.Join(tmpDir, "test.db")

	// Create store with noop emitter for testing
	store, err := New(dbPath, nil, NewNoopEmitter())
	require.NoError(t, err)
	require.NotNil(t, store)

	// Return cleanup function
	cleanup := func() {
		store.Close()
		os.RemoveAll(tmpDir)
	}

	return store, cleanup
}

// recordingEmitter captures emitted events so tests can assert on them.
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

// setupRecordingStore is setupTestStore with a recording emitter attached.
func setupRecordingStore(t *testing.T) (*Store, *recordingEmitter, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "lumina-test-*")
	require.NoError(t, err)

	emitter := &recordingEmitter{}
	store, err := New(filepath.Join(tmpDir, "test.db"), nil, emitter)
	require.NoError(t, err)

	cleanup := func() {
		store.Close()
		os.RemoveAll(tmpDir)
	}

	return store, emitter, cleanup
}
