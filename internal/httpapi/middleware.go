package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type contextKey string

const actorKey contextKey = "actor"

// Actor is the verified identity performing a request. Handlers receive it
// from the request context; the services below never see raw tokens.
type Actor struct {
	ID   string
	Role string
}

func actorFrom(r *http.Request) (Actor, bool) {
	actor, ok := r.Context().Value(actorKey).(Actor)
	return actor, ok
}

func loggingMiddleware(logger *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"remote":   r.RemoteAddr,
				"duration": time.Since(start).Milliseconds(),
			}).Info("Request completed")
		})
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireRole verifies the bearer token or access cookie and injects the
// resolved actor into the request context.
func (s *Server) requireRole(role string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				s.respondWithError(w, http.StatusUnauthorized, "missing credentials")
				return
			}

			claims, err := s.tokens.Verify(token)
			if err != nil {
				s.respondWithError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			if claims.Role != role {
				s.respondWithError(w, http.StatusUnauthorized, "wrong role for this resource")
				return
			}

			actor := Actor{ID: claims.ActorID, Role: claims.Role}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey, actor)))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if cookie, err := r.Cookie("access_token"); err == nil {
		return cookie.Value
	}
	return ""
}
