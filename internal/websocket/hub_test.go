package websocket

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

type stubTokens struct {
	userID uuid.UUID
	err    error
}

func (s stubTokens) ParseAccessToken(string) (uuid.UUID, string, error) {
	return s.userID, "", s.err
}

func TestHandleWebSocket_RejectsBeforeUpgrade(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		tokens stubTokens
	}{
		{"missing token", "", stubTokens{userID: uuid.New()}},
		{"invalid token", "?token=bad", stubTokens{err: errors.New("token is expired")}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHub(nil, tc.tokens)
			req := httptest.NewRequest(http.MethodGet, "/api/ws"+tc.query, nil)
			rr := httptest.NewRecorder()

			h.HandleWebSocket(rr, req)

			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rr.Code)
			}
			if len(h.connections) != 0 {
				t.Fatalf("no connection should be registered")
			}
		})
	}
}

func TestHandleWebSocket_ValidTokenWithoutUpgradeHeaders(t *testing.T) {
	h := NewHub(nil, stubTokens{userID: uuid.New()})
	req := httptest.NewRequest(http.MethodGet, "/api/ws?token=good", nil)
	rr := httptest.NewRecorder()

	h.HandleWebSocket(rr, req)

	// A plain GET passes auth but fails the websocket handshake.
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 from the upgrader, got %d", rr.Code)
	}
	if len(h.connections) != 0 {
		t.Fatalf("no connection should be registered")
	}
}
