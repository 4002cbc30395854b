package chi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// authStack wraps a trivial 200 handler with the bearer-auth middleware.
func authStack(keys []string) http.Handler {
	mw := BearerAuthMiddleware(keys)
	return mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestBearerAuth(t *testing.T) {
	tests := []struct {
		name     string
		keys     []string
		authz    string
		wantCode int
	}{
		{"no keys configured passes through", nil, "", http.StatusOK},
		{"blank keys pass through", []string{"", ""}, "", http.StatusOK},
		{"missing header rejected", []string{"secret"}, "", http.StatusUnauthorized},
		{"basic scheme rejected", []string{"secret"}, "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"lowercase scheme rejected", []string{"secret"}, "bearer secret", http.StatusUnauthorized},
		{"empty token rejected", []string{"secret"}, "Bearer ", http.StatusUnauthorized},
		{"wrong key rejected", []string{"secret"}, "Bearer wrong-key", http.StatusUnauthorized},
		{"valid key accepted", []string{"secret"}, "Bearer secret", http.StatusOK},
		{"second of multiple keys accepted", []string{"key1", "key2"}, "Bearer key2", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := authStack(tt.keys)

			req := httptest.NewRequest("GET", "/api/v1/usage", http.NoBody)
			if tt.authz != "" {
				req.Header.Set("Authorization", tt.authz)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantCode {
				t.Errorf("got %d, want %d", rr.Code, tt.wantCode)
			}
		})
	}
}

func TestBearerAuth_ErrorBody(t *testing.T) {
	handler := authStack([]string{"secret"})

	req := httptest.NewRequest("GET", "/api/v1/usage", http.NoBody)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
	var errResp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.Code != ErrorCodeUnauthorized {
		t.Errorf("error code: got %s, want %s", errResp.Code, ErrorCodeUnauthorized)
	}
}

func TestBearerAuth_ExemptPaths(t *testing.T) {
	handler := authStack([]string{"secret"})

	for _, path := range []string{"/health", "/metrics"} {
		req := httptest.NewRequest("GET", path, http.NoBody)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("exempt path %s: got %d, want %d", path, rr.Code, http.StatusOK)
		}
	}
}
