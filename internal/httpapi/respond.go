package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/ecomstack/storefront/internal/apperr"
)

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]interface{}{
		"success": false,
		"message": message,
	})
}

// respondError maps a classified error to a status code. Internal causes
// are logged but never rendered to the caller.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.WithError(err).Error("Request failed")
	}
	s.respondWithError(w, status, apperr.PublicMessage(err))
}
