package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/luminareader/lumina-server/internal/http/response"
)

type openBookRequest struct {
	BookID string `json:"book_id" validate:"required"`
}

// handleOpenBook opens a book and blocks until it displays or the attempt
// fails. The UI calls this and PUTs surface bounds while it is in flight;
// the session's surface poll bridges the two.
func (s *Server) handleOpenBook(w http.ResponseWriter, r *http.Request) {
	var req openBookRequest
	if err := s.decodeJSON(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	if err := s.session.OpenBook(r.Context(), req.BookID); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, s.session.Snapshot(), s.logger)
}

func (s *Server) handleCloseBook(w http.ResponseWriter, _ *http.Request) {
	s.session.CloseBook()
	response.NoContent(w)
}

func (s *Server) handleReaderState(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, s.session.Snapshot(), s.logger)
}

type setSurfaceRequest struct {
	Width  int `json:"width" validate:"min=0"`
	Height int `json:"height" validate:"min=0"`
}

// handleSetSurface records the viewer element's mount state and pixel
// dimensions as reported by the UI.
func (s *Server) handleSetSurface(w http.ResponseWriter, r *http.Request) {
	var req setSurfaceRequest
	if err := s.decodeJSON(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	s.session.Surface().SetBounds(req.Width, req.Height)
	response.NoContent(w)
}

func (s *Server) handleClearSurface(w http.ResponseWriter, _ *http.Request) {
	s.session.Surface().Clear()
	response.NoContent(w)
}

func (s *Server) handleNextPage(w http.ResponseWriter, r *http.Request) {
	if err := s.session.NextPage(r.Context()); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, s.session.CurrentLocation(), s.logger)
}

func (s *Server) handlePrevPage(w http.ResponseWriter, r *http.Request) {
	if err := s.session.PrevPage(r.Context()); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, s.session.CurrentLocation(), s.logger)
}

type goToRequest struct {
	CFI string `json:"cfi" validate:"required"`
}

func (s *Server) handleGoTo(w http.ResponseWriter, r *http.Request) {
	var req goToRequest
	if err := s.decodeJSON(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	if err := s.session.GoTo(r.Context(), req.CFI); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, s.session.CurrentLocation(), s.logger)
}

func (s *Server) handleGetTOC(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, s.session.TOC(), s.logger)
}

// handleSearchBook searches the open book. A blank query is a silent
// no-op by contract, so it answers an empty result set rather than an
// error.
func (s *Server) handleSearchBook(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	results, err := s.session.Search(r.Context(), query)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, results, s.logger)
}

func (s *Server) handleListBookmarks(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, s.session.Bookmarks(), s.logger)
}

type addBookmarkRequest struct {
	Label string `json:"label" validate:"max=200"`
}

func (s *Server) handleAddBookmark(w http.ResponseWriter, r *http.Request) {
	var req addBookmarkRequest
	if err := s.decodeJSON(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	bookmark, err := s.session.AddBookmark(r.Context(), req.Label)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Created(w, bookmark, s.logger)
}

func (s *Server) handleRemoveBookmark(w http.ResponseWriter, r *http.Request) {
	if err := s.session.RemoveBookmark(r.Context(), chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}

func (s *Server) handleListHighlights(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, s.session.Highlights(), s.logger)
}

type addHighlightRequest struct {
	CFI   string `json:"cfi" validate:"required"`
	Text  string `json:"text" validate:"required"`
	Color string `json:"color" validate:"max=32"`
	Note  string `json:"note" validate:"max=2000"`
}

func (s *Server) handleAddHighlight(w http.ResponseWriter, r *http.Request) {
	var req addHighlightRequest
	if err := s.decodeJSON(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	highlight, err := s.session.AddHighlight(r.Context(), req.CFI, req.Text, req.Color, req.Note)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Created(w, highlight, s.logger)
}

func (s *Server) handleRemoveHighlight(w http.ResponseWriter, r *http.Request) {
	if err := s.session.RemoveHighlight(r.Context(), chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}
