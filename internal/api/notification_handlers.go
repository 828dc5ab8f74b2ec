package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/luminareader/lumina-server/internal/http/response"
)

func (s *Server) handleListNotifications(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, s.toasts.Active(), s.logger)
}

// handleDismissNotification dismisses a toast. Dismissing one that
// already expired is fine; the UI and the expiry timer race by design.
func (s *Server) handleDismissNotification(w http.ResponseWriter, r *http.Request) {
	s.toasts.Dismiss(chi.URLParam(r, "id"))
	response.NoContent(w)
}
