package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestUpload(t *testing.T) {
	var gotPath, gotContentType string
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s := New("", "test-bucket")
	s.baseURL = server.URL

	err := s.Upload(context.Background(), "video/x1.mp4", []byte("payload"), "video/mp4")
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	want := "/upload/storage/v1/b/test-bucket/o?uploadType=media&name=video%2Fx1.mp4"
	if gotPath != want {
		t.Errorf("unexpected upload path: %q, want %q", gotPath, want)
	}
	if gotContentType != "video/mp4" {
		t.Errorf("unexpected content type: %q", gotContentType)
	}
	if string(gotBody) != "payload" {
		t.Errorf("unexpected body: %q", gotBody)
	}
}

func TestUploadRetriesOnServerError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s := New("", "test-bucket")
	s.baseURL = server.URL

	err := s.Upload(context.Background(), "video/x2.mp4", []byte("p"), "video/mp4")
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestUploadDoesNotRetryClientError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	s := New("bad-token", "test-bucket")
	s.baseURL = server.URL

	err := s.Upload(context.Background(), "video/x3.mp4", []byte("p"), "video/mp4")
	if err == nil {
		t.Fatal("expected error for 403")
	}
	if attempts != 1 {
		t.Errorf("expected a single attempt for a non-retryable status, got %d", attempts)
	}
}

func TestUploadFile(t *testing.T) {
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	localPath := filepath.Join(t.TempDir(), "out.mp4")
	if err := os.WriteFile(localPath, []byte("file-bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	s := New("", "test-bucket")
	s.baseURL = server.URL

	if err := s.UploadFile(context.Background(), "video/x4.mp4", localPath, "video/mp4"); err != nil {
		t.Fatalf("UploadFile failed: %v", err)
	}
	if string(gotBody) != "file-bytes" {
		t.Errorf("unexpected body: %q", gotBody)
	}
}

func TestObjectURI(t *testing.T) {
	s := New("", "my-bucket")
	if got := s.ObjectURI("video/j1.mp4"); got != "gs://my-bucket/video/j1.mp4" {
		t.Errorf("unexpected object URI: %q", got)
	}
}
