package api

import (
	"net/http"

	"github.com/luminareader/lumina-server/internal/http/response"
)

type healthResponse struct {
	Status string `json:"status"`
	Reader string `json:"reader"`
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, healthResponse{
		Status: "ok",
		Reader: string(s.session.State()),
	}, s.logger)
}
