// Copyright (c) 2025 BVK Chaitanya

package objstore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// fakeS3 accepts path style object requests and keeps the last upload.
type fakeS3 struct {
	mu      sync.Mutex
	putPath string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPut:
		io.Copy(io.Discard, r.Body)
		f.mu.Lock()
		f.putPath = r.URL.Path
		f.mu.Unlock()
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		if r.URL.Path != "/backups/paths.bin" {
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>not found</Message></Error>`)
			return
		}
		w.Header().Set("Content-Length", "5")
		io.WriteString(w, "hello")
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestClient(t *testing.T, f *fakeS3) *Client {
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	opts := &Options{
		Endpoint:       srv.URL,
		Bucket:         "backups",
		AccessKey:      "test",
		SecretKey:      "test",
		ForcePathStyle: true,
	}
	c, err := New(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestUpload(t *testing.T) {
	f := new(fakeS3)
	c := newTestClient(t, f)

	if err := c.Upload(context.Background(), "2025/paths.bin", strings.NewReader("hello")); err != nil {
		t.Fatal(err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putPath != "/backups/2025/paths.bin" {
		t.Fatalf("want path style upload to /backups/2025/paths.bin, got %q", f.putPath)
	}
}

func TestOpen(t *testing.T) {
	c := newTestClient(t, new(fakeS3))

	r, err := c.Open(context.Background(), "paths.bin")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Fatalf("want hello, got %q", data)
	}

	if _, err := c.Open(context.Background(), "missing"); err == nil {
		t.Fatalf("want non-nil error for a missing object")
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), &Options{}); err == nil {
		t.Fatalf("want non-nil error without a bucket")
	}
}
