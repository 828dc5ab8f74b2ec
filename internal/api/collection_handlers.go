package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/luminareader/lumina-server/internal/http/response"
)

type createCollectionRequest struct {
	Name string `json:"name" validate:"required,max=120"`
	Icon string `json:"icon" validate:"max=64"`
}

func (s *Server) handleCreateCollection(w http.ResponseWriter, r *http.Request) {
	var req createCollectionRequest
	if err := s.decodeJSON(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	collection, err := s.services.Collections.Create(r.Context(), req.Name, req.Icon)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Created(w, collection, s.logger)
}

func (s *Server) handleListCollections(w http.ResponseWriter, r *http.Request) {
	collections, err := s.services.Collections.List(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, collections, s.logger)
}

func (s *Server) handleGetCollection(w http.ResponseWriter, r *http.Request) {
	collection, err := s.services.Collections.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, collection, s.logger)
}

type updateCollectionRequest struct {
	Name *string `json:"name" validate:"omitempty,min=1,max=120"`
	Icon *string `json:"icon" validate:"omitempty,max=64"`
}

func (s *Server) handleUpdateCollection(w http.ResponseWriter, r *http.Request) {
	var req updateCollectionRequest
	if err := s.decodeJSON(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	if req.Name == nil && req.Icon == nil {
		response.BadRequest(w, "nothing to update", s.logger)
		return
	}

	collectionID := chi.URLParam(r, "id")
	if req.Name != nil {
		if _, err := s.services.Collections.Rename(r.Context(), collectionID, *req.Name); err != nil {
			response.HandleError(w, err, s.logger)
			return
		}
	}
	if req.Icon != nil {
		if _, err := s.services.Collections.SetIcon(r.Context(), collectionID, *req.Icon); err != nil {
			response.HandleError(w, err, s.logger)
			return
		}
	}

	collection, err := s.services.Collections.Get(r.Context(), collectionID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, collection, s.logger)
}

func (s *Server) handleDeleteCollection(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Collections.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}

func (s *Server) handleGetCollectionBooks(w http.ResponseWriter, r *http.Request) {
	books, err := s.services.Collections.BooksIn(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, books, s.logger)
}

type collectionMembershipRequest struct {
	BookID string `json:"book_id" validate:"required"`
}

func (s *Server) handleAddBookToCollection(w http.ResponseWriter, r *http.Request) {
	var req collectionMembershipRequest
	if err := s.decodeJSON(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	if err := s.services.Collections.AddBook(r.Context(), chi.URLParam(r, "id"), req.BookID); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}

func (s *Server) handleRemoveBookFromCollection(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Collections.RemoveBook(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "bookID")); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}
