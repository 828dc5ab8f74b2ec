package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/luminareader/lumina-server/internal/http/response"
)

// handleGetCover serves a book's normalized cover JPEG with an ETag so
// the UI's grid does not refetch unchanged images.
func (s *Server) handleGetCover(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookID")
	if !s.covers.Exists(bookID) {
		response.NotFound(w, "no cover for this book", s.logger)
		return
	}

	etag, err := s.covers.Hash(bookID)
	if err == nil {
		w.Header().Set("ETag", `"`+etag+`"`)
		if match := r.Header.Get("If-None-Match"); match == `"`+etag+`"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	data, err := s.covers.Get(bookID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=86400")
	if _, err := w.Write(data); err != nil && s.logger != nil {
		s.logger.Debug("cover write aborted", "book_id", bookID, "error", err)
	}
}
