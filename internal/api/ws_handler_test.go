package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func TestWsCheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		host    string
		want    bool
	}{
		{name: "no origin header", want: true, host: "api.example.com"},
		{name: "same origin", origin: "https://api.example.com", host: "api.example.com", want: true},
		{name: "cross origin", origin: "https://evil.example.net", host: "api.example.com", want: false},
		{name: "allow list hit", allowed: []string{"https://admin.example.com"}, origin: "https://admin.example.com", host: "api.example.com", want: true},
		{name: "allow list miss", allowed: []string{"https://admin.example.com"}, origin: "https://api.example.com", host: "api.example.com", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewWsHandler(nil, testTokens, quietLogger(), tt.allowed)
			req := httptest.NewRequest(http.MethodGet, "/api/v1/ws", nil)
			req.Host = tt.host
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if got := h.checkOrigin(req); got != tt.want {
				t.Fatalf("checkOrigin() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWsRejectsBadAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewWsHandler(nil, testTokens, quietLogger(), nil)
	r := gin.New()
	r.GET("/ws", h.HandleConnection)
	srv := httptest.NewServer(r)
	defer srv.Close()

	tests := []struct {
		name   string
		msg    string
		reason string
	}{
		{name: "not json", msg: "hello", reason: "invalid auth payload"},
		{name: "wrong type", msg: `{"type":"ping"}`, reason: "auth required"},
		{name: "bad token", msg: `{"type":"auth","token":"nope"}`, reason: "unauthorized"},
		{name: "not admin", msg: `{"type":"auth","token":"user-token"}`, reason: "admin role required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
			if err != nil {
				t.Fatalf("dial: %v", err)
			}
			defer conn.Close()

			if err := conn.WriteMessage(websocket.TextMessage, []byte(tt.msg)); err != nil {
				t.Fatalf("write: %v", err)
			}
			_, _, err = conn.ReadMessage()
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				t.Fatalf("expected close error, got %v", err)
			}
			if closeErr.Code != websocket.ClosePolicyViolation || closeErr.Text != tt.reason {
				t.Fatalf("close = %d %q, want %d %q", closeErr.Code, closeErr.Text, websocket.ClosePolicyViolation, tt.reason)
			}
		})
	}
}
