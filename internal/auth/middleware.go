package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

type contextKey string

const SessionIDKey contextKey = "sessionID"

// AuthMiddleware requires a bearer token. When the route has a {sessionId}
// variable the token must belong to that session.
func (s *Service) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing authorization header"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid authorization format"})
			return
		}

		sessionID, err := s.ValidateToken(parts[1])
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			return
		}

		if want, ok := mux.Vars(r)["sessionId"]; ok && want != sessionID {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": ErrWrongSession.Error()})
			return
		}

		ctx := context.WithValue(r.Context(), SessionIDKey, sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// QueryToken authorizes a request carrying its token in the "token" query
// parameter, as browsers cannot set headers on websocket upgrades.
func (s *Service) QueryToken(r *http.Request, sessionID string) error {
	token := r.URL.Query().Get("token")
	if token == "" {
		return errors.New("missing token")
	}
	return s.Authorize(token, sessionID)
}

func SessionIDFromContext(ctx context.Context) string {
	sessionID, _ := ctx.Value(SessionIDKey).(string)
	return sessionID
}
