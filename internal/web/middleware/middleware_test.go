package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAPIKeyAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	tests := []struct {
		name string
		keys []string
		key  string
		want int
	}{
		{"disabled", nil, "", http.StatusNoContent},
		{"missing", []string{"k1"}, "", http.StatusUnauthorized},
		{"wrong", []string{"k1"}, "nope", http.StatusForbidden},
		{"valid", []string{"k1", "k2"}, "k2", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/runs", nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			rec := httptest.NewRecorder()
			APIKeyAuth(tt.keys)(ok).ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestTrustedRealIP(t *testing.T) {
	var got string
	h := TrustedRealIP([]string{"10.0.0.0/8", "192.168.1.5", "bogus"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.RemoteAddr
	}))

	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{"trusted real ip", "10.1.2.3:5555", map[string]string{"X-Real-IP": "203.0.113.9"}, "203.0.113.9"},
		{"trusted forwarded for", "192.168.1.5:80", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.1.1.1"}, "203.0.113.7"},
		{"untrusted proxy", "198.51.100.1:80", map[string]string{"X-Real-IP": "203.0.113.9"}, "198.51.100.1:80"},
		{"invalid header", "10.1.2.3:5555", map[string]string{"X-Real-IP": "not-an-ip"}, "10.1.2.3:5555"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			if got != tt.want {
				t.Errorf("RemoteAddr = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLogger_RecordsStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	var inner *responseWriter
	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner = w.(*responseWriter)
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tea", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
	if inner.status != http.StatusTeapot || inner.bytes != int64(len("short and stout")) {
		t.Errorf("recorded status=%d bytes=%d", inner.status, inner.bytes)
	}
}
