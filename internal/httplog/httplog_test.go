package httplog

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLogRequests(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	logged := LogRequests(log)(handler)

	req := httptest.NewRequest(http.MethodGet, "/stories", nil)
	rec := httptest.NewRecorder()

	logged.ServeHTTP(rec, req)

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}

	logOutput := buf.String()
	for _, want := range []string{"method=GET", "path=/stories", "status=418"} {
		if !strings.Contains(logOutput, want) {
			t.Errorf("log should contain %q, got %q", want, logOutput)
		}
	}
}

func TestLogRequestsDefaultStatus(t *testing.T) {
	methods := []string{
		http.MethodGet,
		http.MethodPost,
		http.MethodDelete,
	}

	for _, method := range methods {
		t.Run(method, func(t *testing.T) {
			var buf bytes.Buffer
			log := slog.New(slog.NewTextHandler(&buf, nil))

			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("ok"))
			})

			req := httptest.NewRequest(method, "/test", nil)
			rec := httptest.NewRecorder()
			LogRequests(log)(handler).ServeHTTP(rec, req)

			out := buf.String()
			if !strings.Contains(out, "method="+method) {
				t.Errorf("log should contain method %s", method)
			}
			if !strings.Contains(out, "status=200") {
				t.Errorf("implicit status should be logged as 200, got %q", out)
			}
		})
	}
}
