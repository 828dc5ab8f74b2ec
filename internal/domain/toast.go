package domain

import "time"

// ToastKind classifies a transient notification.
type ToastKind string

// Toast kinds.
const (
	ToastInfo    ToastKind = "info"
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
)

// Toast is a transient user-facing message with auto-expiry.
type Toast struct {
	ID        string    `json:"id"`
	Kind      ToastKind `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// NewToast creates a toast.
func NewToast(toastID string, kind ToastKind, message string) *Toast {
	return &Toast{
		ID:        toastID,
		Kind:      kind,
		Message:   message,
		CreatedAt: time.Now(),
	}
}
