package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{name: "keeps valid id", incoming: "abc-123_x.y", keep: true},
		{name: "generates when missing", incoming: ""},
		{name: "rejects spaces", incoming: "bad id"},
		{name: "rejects long ids", incoming: strings.Repeat("a", maxRequestIDLen+1)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var seen string
			handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = RequestIDFromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.incoming != "" {
				req.Header.Set(RequestIDHeader, tc.incoming)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if seen == "" {
				t.Fatal("request id missing from context")
			}
			if got := rec.Header().Get(RequestIDHeader); got != seen {
				t.Fatalf("header = %q, context = %q", got, seen)
			}
			if tc.keep && seen != tc.incoming {
				t.Fatalf("request id = %q, want %q", seen, tc.incoming)
			}
			if !tc.keep && seen == tc.incoming {
				t.Fatalf("request id %q should have been replaced", seen)
			}
		})
	}
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		allowed    []string
		origin     string
		preflight  bool
		wantOrigin string
		wantStatus int
	}{
		{name: "listed origin", allowed: []string{"http://localhost:5173/"}, origin: "http://localhost:5173", wantOrigin: "http://localhost:5173", wantStatus: http.StatusOK},
		{name: "unlisted origin", allowed: []string{"http://localhost:5173"}, origin: "http://evil.test", wantStatus: http.StatusOK},
		{name: "wildcard", allowed: []string{"*"}, origin: "http://any.test", wantOrigin: "*", wantStatus: http.StatusOK},
		{name: "preflight", allowed: []string{"http://a.test"}, origin: "http://a.test", preflight: true, wantOrigin: "http://a.test", wantStatus: http.StatusNoContent},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			method := http.MethodGet
			if tc.preflight {
				method = http.MethodOptions
			}
			req := httptest.NewRequest(method, "/api/scenes", nil)
			req.Header.Set("Origin", tc.origin)
			if tc.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rec := httptest.NewRecorder()
			CORS(tc.allowed)(next).ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tc.wantOrigin {
				t.Fatalf("allow origin = %q, want %q", got, tc.wantOrigin)
			}
		})
	}
}

func TestLoggerWritesAccessLine(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	handler := RequestID(Logger(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		zerolog.Ctx(r.Context()).Info().Msg("inside")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("nope"))
	})))
	req := httptest.NewRequest(http.MethodGet, "/api/image/x.png", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d log lines, want 2: %q", len(lines), buf.String())
	}
	for _, line := range lines {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("decode log line: %v", err)
		}
		if entry["request_id"] != "req-1" {
			t.Fatalf("request_id = %v, want req-1", entry["request_id"])
		}
	}
	var access map[string]any
	_ = json.Unmarshal([]byte(lines[1]), &access)
	if access["level"] != "warn" || access["status"] != float64(404) || access["bytes"] != float64(4) {
		t.Fatalf("unexpected access line: %v", access)
	}
}
