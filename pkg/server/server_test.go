package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

func upload(t *testing.T, handler http.Handler, filename, content, topic string) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer

	w := multipart.NewWriter(&body)

	part, err := w.CreateFormFile("file", filename)

	if err != nil {
		t.Fatal(err)
	}

	part.Write([]byte(content))
	w.WriteField("topic", topic)
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	return rec
}

func TestIndex(t *testing.T) {
	s := New(t.TempDir(), nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	if !strings.Contains(rec.Body.String(), "Upload a document") {
		t.Error("form not rendered")
	}
}

func TestUpload(t *testing.T) {
	dir := t.TempDir()

	var gotPath, gotTopic string

	s := New(dir, func(ctx context.Context, path, topic string) error {
		gotPath = path
		gotTopic = topic
		return nil
	})

	rec := upload(t, s.Handler(), "notes.txt", "some document text", "physics")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	if gotTopic != "physics" {
		t.Errorf("topic = %q", gotTopic)
	}

	data, err := os.ReadFile(gotPath)

	if err != nil {
		t.Fatalf("uploaded file not stored: %v", err)
	}

	if string(data) != "some document text" {
		t.Errorf("stored content = %q", data)
	}

	if !strings.Contains(rec.Body.String(), "Processed notes.txt.") {
		t.Errorf("missing success message in %q", rec.Body.String())
	}
}

func TestUploadProcessError(t *testing.T) {
	s := New(t.TempDir(), func(ctx context.Context, path, topic string) error {
		return errors.New("extract failed")
	})

	rec := upload(t, s.Handler(), "notes.txt", "text", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	if !strings.Contains(rec.Body.String(), "extract failed") {
		t.Error("missing failure message")
	}
}

func TestUploadMissingFile(t *testing.T) {
	s := New(t.TempDir(), nil)

	var body bytes.Buffer

	w := multipart.NewWriter(&body)
	w.WriteField("topic", "x")
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	s := New(t.TempDir(), nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	body, _ := io.ReadAll(rec.Body)

	if !strings.Contains(string(body), `"ok"`) {
		t.Errorf("body = %s", body)
	}
}
