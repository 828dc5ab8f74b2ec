package api

import (
	"net/http"

	"github.com/luminareader/lumina-server/internal/domain"
	"github.com/luminareader/lumina-server/internal/http/response"
	"github.com/luminareader/lumina-server/internal/service"
)

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := s.services.Preferences.Get(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, prefs, s.logger)
}

type updatePreferencesRequest struct {
	Theme       *string `json:"theme" validate:"omitempty,oneof=light sepia dark"`
	FontSize    *int    `json:"font_size"`
	ReadingFont *string `json:"reading_font"`
	TwoPageView *bool   `json:"two_page_view"`
}

func (s *Server) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var req updatePreferencesRequest
	if err := s.decodeJSON(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	update := service.PreferencesUpdate{
		FontSize:    req.FontSize,
		ReadingFont: req.ReadingFont,
		TwoPageView: req.TwoPageView,
	}
	if req.Theme != nil {
		theme := domain.Theme(*req.Theme)
		update.Theme = &theme
	}

	prefs, err := s.services.Preferences.Update(r.Context(), update)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, prefs, s.logger)
}

func (s *Server) handleListFonts(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, s.services.Preferences.Fonts(), s.logger)
}

func (s *Server) handleIncreaseFontSize(w http.ResponseWriter, r *http.Request) {
	prefs, err := s.services.Preferences.IncreaseFontSize(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, prefs, s.logger)
}

func (s *Server) handleDecreaseFontSize(w http.ResponseWriter, r *http.Request) {
	prefs, err := s.services.Preferences.DecreaseFontSize(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, prefs, s.logger)
}
