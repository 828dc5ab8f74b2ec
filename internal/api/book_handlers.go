package api

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/luminareader/lumina-server/internal/http/response"
	"github.com/luminareader/lumina-server/internal/service"
)

// maxImportBytes bounds an uploaded archive. The largest real-world EPUBs
// (image-heavy comics) sit well under this.
const maxImportBytes = 200 << 20

// handleListBooks returns library books with optional filtering/sorting.
// Query params: sort (title|author|recent|progress), order (asc|desc),
// favorites (true), collection (id), q (full-text query).
func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := service.ListParams{
		SortBy:        q.Get("sort"),
		SortOrder:     q.Get("order"),
		FavoritesOnly: q.Get("favorites") == "true",
		CollectionID:  q.Get("collection"),
		Query:         q.Get("q"),
	}

	books, err := s.services.Library.List(r.Context(), params)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, books, s.logger)
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	book, err := s.services.Library.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, book, s.logger)
}

type updateBookRequest struct {
	IsFavorite *bool `json:"is_favorite" validate:"required"`
}

// handleUpdateBook mutates the one book field the UI edits directly: the
// favorite flag. Position and progress go through the reader session.
func (s *Server) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	var req updateBookRequest
	if err := s.decodeJSON(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	book, err := s.services.Library.SetFavorite(r.Context(), chi.URLParam(r, "id"), *req.IsFavorite)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, book, s.logger)
}

func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Library.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}

type updateProgressRequest struct {
	CFI      string `json:"cfi"`
	Progress int    `json:"progress" validate:"min=0,max=100"`
}

func (s *Server) handleUpdateProgress(w http.ResponseWriter, r *http.Request) {
	var req updateProgressRequest
	if err := s.decodeJSON(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	book, err := s.services.Library.UpdateProgress(r.Context(), chi.URLParam(r, "id"), req.CFI, req.Progress)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, book, s.logger)
}

type clearLibraryResponse struct {
	Removed int `json:"removed"`
}

// handleClearLibrary removes every book record. Collections, preferences,
// and per-book annotations survive; the store has no broader clear to
// reach for.
func (s *Server) handleClearLibrary(w http.ResponseWriter, r *http.Request) {
	removed, err := s.services.Library.ClearLibrary(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, clearLibraryResponse{Removed: removed}, s.logger)
}

type reindexResponse struct {
	Indexed int `json:"indexed"`
}

func (s *Server) handleReindexLibrary(w http.ResponseWriter, r *http.Request) {
	indexed, err := s.services.Library.RebuildSearchIndex(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, reindexResponse{Indexed: indexed}, s.logger)
}

// handleImportBook accepts a multipart upload with the archive in the
// "file" field.
func (s *Server) handleImportBook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		response.BadRequest(w, "invalid multipart upload", s.logger)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "missing file field", s.logger)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		response.BadRequest(w, "could not read upload", s.logger)
		return
	}

	book, err := s.services.Library.ImportBook(r.Context(), header.Filename, data)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Created(w, book, s.logger)
}
