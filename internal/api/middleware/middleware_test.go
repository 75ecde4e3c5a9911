package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dvloznov/vendor-ledger/internal/logger"
	"github.com/rs/zerolog"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestAuth(t *testing.T) {
	tests := []struct {
		name     string
		password string
		path     string
		setup    func(r *http.Request)
		want     int
	}{
		{name: "disabled", password: "", path: "/api/vendor/lines", want: http.StatusOK},
		{name: "missing", password: "s3cret", path: "/api/vendor/lines", want: http.StatusUnauthorized},
		{
			name:     "header",
			password: "s3cret",
			path:     "/api/vendor/lines",
			setup:    func(r *http.Request) { r.Header.Set(PasswordHeader, "s3cret") },
			want:     http.StatusOK,
		},
		{
			name:     "basic auth",
			password: "s3cret",
			path:     "/api/vendor/lines",
			setup:    func(r *http.Request) { r.SetBasicAuth("anyone", "s3cret") },
			want:     http.StatusOK,
		},
		{
			name:     "wrong password",
			password: "s3cret",
			path:     "/api/vendor/lines",
			setup:    func(r *http.Request) { r.SetBasicAuth("anyone", "guess") },
			want:     http.StatusUnauthorized,
		},
		{name: "open path", password: "s3cret", path: "/health", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.setup != nil {
				tt.setup(req)
			}
			rec := httptest.NewRecorder()

			Auth(tt.password, "/health")(okHandler).ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate challenge")
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	panicky := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	rec := httptest.NewRecorder()

	Recovery(zerolog.Nop())(panicky).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Internal server error") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestRequestIDPropagates(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf)

	var seen string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		logger.FromContext(r.Context()).Info().Msg("inside")
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()

	Logger(log)(RequestID(h)).ServeHTTP(rec, req)

	if seen != "req-42" {
		t.Errorf("request id in context = %q", seen)
	}
	if rec.Header().Get("X-Request-ID") != "req-42" {
		t.Errorf("response header = %q", rec.Header().Get("X-Request-ID"))
	}
	if !strings.Contains(buf.String(), `"request_id":"req-42"`) {
		t.Errorf("log output missing request id: %s", buf.String())
	}
}

func TestRequestIDGenerated(t *testing.T) {
	rec := httptest.NewRecorder()
	RequestID(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if len(rec.Header().Get("X-Request-ID")) != 36 {
		t.Errorf("generated id = %q, want a uuid", rec.Header().Get("X-Request-ID"))
	}
}

func TestCORSPreflight(t *testing.T) {
	rec := httptest.NewRecorder()
	CORS(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/vendor/lines", nil))

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Access-Control-Allow-Headers"), PasswordHeader) {
		t.Errorf("allow headers = %q", rec.Header().Get("Access-Control-Allow-Headers"))
	}
}
