package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lagekarte/lagekarte/backend-go/internal/auth"
)

type testServer struct {
	*httptest.Server
	hub  *Hub
	auth *auth.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	authService := auth.NewService("test-secret", time.Hour)
	srv := &testServer{auth: authService}
	srv.hub = newTestHub(t, 0)
	h := NewHandler(srv.hub, authService, nil)

	r := mux.NewRouter()
	r.HandleFunc("/api/sessions", h.Create).Methods("POST")
	r.Handle("/api/sessions/{sessionId}", authService.AuthMiddleware(http.HandlerFunc(h.Delete))).Methods("DELETE")
	r.HandleFunc("/ws/sessions/{sessionId}", h.Connect)

	srv.Server = httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func (s *testServer) create(t *testing.T) CreateResponse {
	t.Helper()
	resp, err := http.Post(s.URL+"/api/sessions", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out CreateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (s *testServer) delete(t *testing.T, id, token string) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodDelete, s.URL+"/api/sessions/"+id, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestHandler_Create(t *testing.T) {
	srv := newTestServer(t)
	out := srv.create(t)

	assert.True(t, strings.HasPrefix(out.ID, "sess_"))
	assert.Equal(t, 800.0, out.Width)
	assert.Equal(t, 600.0, out.Height)

	sub, err := srv.auth.ValidateToken(out.Token)
	require.NoError(t, err)
	assert.Equal(t, out.ID, sub)
	assert.Equal(t, 1, srv.hub.Len())
}

func TestHandler_Delete(t *testing.T) {
	srv := newTestServer(t)
	a := srv.create(t)
	b := srv.create(t)

	assert.Equal(t, http.StatusUnauthorized, srv.delete(t, a.ID, ""))
	assert.Equal(t, http.StatusForbidden, srv.delete(t, a.ID, b.Token))
	assert.Equal(t, http.StatusNoContent, srv.delete(t, a.ID, a.Token))
	assert.Equal(t, http.StatusNotFound, srv.delete(t, a.ID, a.Token))
	assert.Equal(t, 1, srv.hub.Len())
}

func TestHandler_ConnectRejectsBadTokens(t *testing.T) {
	srv := newTestServer(t)
	a := srv.create(t)
	b := srv.create(t)

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"garbage", "?token=nope", http.StatusUnauthorized},
		{"other session", "?token=" + b.Token, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + "/ws/sessions/" + a.ID + tt.query)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestHandler_WebsocketRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	out := srv.create(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/sessions/" + out.ID + "?token=" + out.Token
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	read := func() Message {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err)
		var m Message
		require.NoError(t, json.Unmarshal(data, &m))
		return m
	}
	write := func(m *Message) {
		data, err := json.Marshal(m)
		require.NoError(t, err)
		require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
	}

	assert.Equal(t, TypeWelcome, read().Type)
	assert.Equal(t, TypeFrame, read().Type)

	write(msg(t, TypeArmIcon, IconPayload{Glyph: "🚒"}))
	write(msg(t, TypePointerDown, map[string]float64{"x": 10, "y": 10}))
	cmds := frameOf(t, read())
	assert.Equal(t, "🚒", cmds[len(cmds)-1].Text)

	write(msg(t, TypeConfigMode, ModePayload{Mode: "lasso"}))
	m := read()
	assert.Equal(t, TypeError, m.Type)
	assert.Equal(t, out.ID, m.SessionID)
}
