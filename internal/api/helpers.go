package api

import (
	"encoding/json/v2"
	"net/http"

	apperr "github.com/luminareader/lumina-server/internal/errors"
)

// decodeJSON reads and validates a JSON request body into dst.
func (s *Server) decodeJSON(r *http.Request, dst any) error {
	if err := json.UnmarshalRead(r.Body, dst); err != nil {
		return apperr.Validation("invalid JSON body").WithCause(err)
	}
	return s.validate.Validate(dst)
}
