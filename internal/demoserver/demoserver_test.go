package demoserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/oriys/ctxguard"
)

func reader(path string) (string, error) {
	if path == "/data/config.json" {
		return "contents", nil
	}
	return "", nil
}

func TestHandler_MissingPathIsBadRequest(t *testing.T) {
	ctxguard.ResetForTest()
	h := NewHandler(ctxguard.FileAccessOptions{Readable: "/data/config.json"}, reader)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandler_AllowedPathReturnsContent(t *testing.T) {
	ctxguard.ResetForTest()
	h := NewHandler(ctxguard.FileAccessOptions{Readable: "/data/config.json"}, reader)

	req := httptest.NewRequest(http.MethodGet, "/?path=/data/config.json", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body=%s", rec.Code, http.StatusOK, rec.Body.String())
	}
}

func TestHandler_DisallowedPathIsForbidden(t *testing.T) {
	ctxguard.ResetForTest()
	h := NewHandler(ctxguard.FileAccessOptions{Readable: "/data/config.json"}, reader)

	req := httptest.NewRequest(http.MethodGet, "/?path=/etc/passwd", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d, body=%s", rec.Code, http.StatusForbidden, rec.Body.String())
	}
}

func TestHandler_SequentialRequestsDoNotLeakLineages(t *testing.T) {
	ctxguard.ResetForTest()
	h := NewHandler(ctxguard.FileAccessOptions{Readable: "/data/config.json"}, reader)

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/?path=/data/config.json", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, rec.Code)
		}
	}
}
