package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/biscuitblog/internal/model"
)

type recordedRequest struct {
	method, route string
	status        int
}

type fakeHTTPRecorder struct {
	calls []recordedRequest
}

func (f *fakeHTTPRecorder) RecordHTTPRequest(method, route string, statusCode int, _ time.Duration) {
	f.calls = append(f.calls, recordedRequest{method, route, statusCode})
}

func decodeLogEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log: %v\nraw: %s", err, buf.String())
	}
	return entry
}

// TestLoggingMiddleware_LogsRequestFields はリクエストログに必要なフィールドが含まれることを検証する。
func TestLoggingMiddleware_LogsRequestFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	rec := &fakeHTTPRecorder{}

	r := chi.NewRouter()
	r.Use(NewLoggingMiddleware(logger, rec))
	r.Get("/api/posts/{ref}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/posts/hello", nil))

	entry := decodeLogEntry(t, &buf)
	if entry["msg"] != "http_request" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["method"] != "GET" {
		t.Errorf("method = %v, want GET", entry["method"])
	}
	if entry["path"] != "/api/posts/hello" {
		t.Errorf("path = %v", entry["path"])
	}
	if entry["route"] != "/api/posts/{ref}" {
		t.Errorf("route = %v, want /api/posts/{ref}", entry["route"])
	}
	if status, _ := entry["status"].(float64); status != 200 {
		t.Errorf("status = %v, want 200", entry["status"])
	}
	if _, ok := entry["duration_ms"]; !ok {
		t.Error("expected duration_ms field")
	}
	if _, ok := entry["user_id"]; ok {
		t.Error("anonymous request should not log user_id")
	}

	if len(rec.calls) != 1 || rec.calls[0] != (recordedRequest{"GET", "/api/posts/{ref}", 200}) {
		t.Errorf("recorded = %+v", rec.calls)
	}
}

// TestLoggingMiddleware_IncludesUserID は内側のセッションミドルウェアで判明したユーザーIDが記録されることを検証する。
func TestLoggingMiddleware_IncludesUserID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	inner := NewSessionMiddleware(&mockResolver{
		resolveFn: func(*http.Request) (*model.User, error) { return &model.User{ID: 123}, nil },
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	NewLoggingMiddleware(logger, nil)(inner).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	entry := decodeLogEntry(t, &buf)
	if uid, _ := entry["user_id"].(float64); uid != 123 {
		t.Errorf("user_id = %v, want 123", entry["user_id"])
	}
}

func TestLoggingMiddleware_LevelByStatus(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusNotFound, "WARN"},
		{http.StatusInternalServerError, "ERROR"},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))
			handler := NewLoggingMiddleware(logger, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.WriteHeader(http.StatusTeapot) // 2回目は記録しない
			}))
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

			entry := decodeLogEntry(t, &buf)
			if entry["level"] != tt.level {
				t.Errorf("level = %v, want %s", entry["level"], tt.level)
			}
			if status, _ := entry["status"].(float64); int(status) != tt.status {
				t.Errorf("status = %v, want %d", entry["status"], tt.status)
			}
		})
	}
}
