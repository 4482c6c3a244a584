package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/food-orders/internal/domain"
)

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = getRequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "req-42", seen)
}

func TestAuthenticate(t *testing.T) {
	var got *domain.Identity
	h := AccessLog(zerolog.Nop())(Authenticate(staticVerifier{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = identityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})))

	tests := []struct {
		name     string
		header   string
		wantCode int
		want     *domain.Identity
	}{
		{"anonymous", "", http.StatusOK, nil},
		{"customer", "Bearer customer-token", http.StatusOK, customerIdentity},
		{"admin", "Bearer admin-token", http.StatusOK, adminIdentity},
		{"bad token", "Bearer nope", http.StatusUnauthorized, nil},
		{"not bearer", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = nil
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAccessLog_RecordsStatusAndUser(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	h := RequestIDMiddleware(AccessLog(logger)(Authenticate(staticVerifier{})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer customer-token")
	req.Header.Set("X-Request-ID", "req-7")
	h.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-7", entry["request_id"])
	assert.Equal(t, "/api/v1/cart", entry["path"])
	assert.Equal(t, float64(http.StatusTeapot), entry["status"])
	assert.Equal(t, customerIdentity.Subject, entry["user_id"])
}

func TestSessionID(t *testing.T) {
	h := AccessLog(zerolog.Nop())(Authenticate(staticVerifier{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sessionID(r)))
	})))

	tests := []struct {
		name    string
		token   string
		session string
		want    string
	}{
		{"subject ignores header", "customer-token", "sess-9", "customer:" + customerIdentity.Subject},
		{"subject", "customer-token", "", "customer:" + customerIdentity.Subject},
		{"anonymous header", "", "sess-9", "guest:sess-9"},
		{"anonymous subject header", "", customerIdentity.Subject, "guest:" + customerIdentity.Subject},
		{"nothing", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			if tt.session != "" {
				req.Header.Set(sessionHeader, tt.session)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Body.String())
		})
	}
}

func TestRouter_HealthAndCORS(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/orders", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w = httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRespondJSON_EncodeFailureUsesRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	h := RequestIDMiddleware(AccessLog(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, r, http.StatusOK, map[string]any{"bad": make(chan int)})
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-enc")
	h.ServeHTTP(httptest.NewRecorder(), req)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "failed to encode response", entry["message"])
	assert.Equal(t, "req-enc", entry["request_id"])
	assert.Equal(t, "error", entry["level"])
}
