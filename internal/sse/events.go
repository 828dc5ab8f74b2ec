// Package sse implements Server-Sent Events for pushing library, reader,
// and notification updates to the UI.
package sse

import (
	"time"

	"github.com/luminareader/lumina-server/internal/notify"
	"github.com/luminareader/lumina-server/internal/reader"
	"github.com/luminareader/lumina-server/internal/store"
)

// The UI is a thin shell over this stream: every store write, reader state
// transition, and toast reaches it as an event so it never has to poll.

// EventType represents the type of SSE event.
type EventType string

const (
	// EventBookCreated represents a book creation event.
	EventBookCreated EventType = "book.created"
	// EventBookUpdated represents a book update event.
	EventBookUpdated EventType = "book.updated"
	// EventBookDeleted represents a book deletion event.
	EventBookDeleted EventType = "book.deleted"
	// EventLibraryCleared represents a destructive library clear.
	EventLibraryCleared EventType = "library.cleared"

	// EventCollectionChanged represents any collection write, including
	// deletion.
	EventCollectionChanged EventType = "collection.changed"

	// EventPreferencesUpdated represents a preference save.
	EventPreferencesUpdated EventType = "preferences.updated"

	// EventToastPushed represents a new transient notification.
	EventToastPushed EventType = "toast.pushed"
	// EventToastDismissed represents a toast leaving the queue.
	EventToastDismissed EventType = "toast.dismissed"

	// EventReaderState represents a reader session state transition.
	EventReaderState EventType = "reader.state_changed"
	// EventReaderLocation represents a reading position change.
	EventReaderLocation EventType = "reader.location_changed"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
// The Data field carries the event payload as a JSON object so clients can
// deserialize it directly.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	return Event{
		Type: EventHeartbeat,
		Data: HeartbeatEventData{
			ServerTime: time.Now(),
		},
		Timestamp: time.Now(),
	}
}

// FromDomain maps an emitted domain event onto its wire event. The second
// return is false for event types the UI does not subscribe to.
//
// The store, notify, and reader packages emit their own event structs and
// know nothing about this transport; the translation lives here so adding
// a stream consumer never touches them.
func FromDomain(event any) (Event, bool) {
	now := time.Now()

	switch e := event.(type) {
	case Event:
		// Already a wire event; pass through untouched.
		return e, true

	case store.BookCreated:
		return Event{Type: EventBookCreated, Data: e, Timestamp: now}, true
	case store.BookUpdated:
		return Event{Type: EventBookUpdated, Data: e, Timestamp: now}, true
	case store.BookDeleted:
		return Event{Type: EventBookDeleted, Data: e, Timestamp: now}, true
	case store.LibraryCleared:
		return Event{Type: EventLibraryCleared, Data: e, Timestamp: now}, true
	case store.CollectionChanged:
		return Event{Type: EventCollectionChanged, Data: e, Timestamp: now}, true
	case store.PreferencesUpdated:
		return Event{Type: EventPreferencesUpdated, Data: e, Timestamp: now}, true

	case notify.ToastPushed:
		return Event{Type: EventToastPushed, Data: e, Timestamp: now}, true
	case notify.ToastDismissed:
		return Event{Type: EventToastDismissed, Data: e, Timestamp: now}, true

	case reader.StateChanged:
		return Event{Type: EventReaderState, Data: e, Timestamp: now}, true
	case reader.LocationChanged:
		return Event{Type: EventReaderLocation, Data: e, Timestamp: now}, true
	}

	return Event{}, false
}
