package session

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/lagekarte/lagekarte/backend-go/internal/auth"
)

type Handler struct {
	hub     *Hub
	auth    *auth.Service
	origins []string
}

// NewHandler serves the session endpoints. origins are websocket origin
// patterns as accepted by websocket.AcceptOptions.
func NewHandler(hub *Hub, authService *auth.Service, origins []string) *Handler {
	return &Handler{hub: hub, auth: authService, origins: origins}
}

type CreateResponse struct {
	ID     string  `json:"id"`
	Token  string  `json:"token"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	s := h.hub.Create()

	token, err := h.auth.IssueToken(s.ID)
	if err != nil {
		slog.Error("issue session token", "error", err)
		h.hub.Remove(s.ID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	width, height, err := s.SurfaceSize(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, CreateResponse{
		ID:     s.ID,
		Token:  token,
		Width:  width,
		Height: height,
	})
}

// Delete closes the session named in the route. It must run behind
// auth.AuthMiddleware.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["sessionId"]
	if err := h.hub.Remove(id); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Connect upgrades to a websocket bound to the session. The token travels in
// the query string.
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["sessionId"]

	if err := h.auth.QueryToken(r, id); err != nil {
		status := http.StatusUnauthorized
		if errors.Is(err, auth.ErrWrongSession) {
			status = http.StatusForbidden
		}
		http.Error(w, "invalid token", status)
		return
	}

	s, err := h.hub.Get(id)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	client := NewClient(s, conn, uuid.New().String())

	ctx := r.Context()
	go client.WritePump(ctx)
	if err := s.attach(ctx, client); err != nil {
		s.detach(client)
		return
	}
	client.ReadPump(ctx)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
