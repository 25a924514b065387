// Copyright (c) 2023 BVK Chaitanya

package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"testing"
)

type testRequest struct {
	Count int `json:"count"`
}

type testStatus struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestServer(t *testing.T) {
	ctx := context.Background()

	s, err := New(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	addr := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)}
	id, err := s.StartTCP(ctx, addr)
	if err != nil {
		t.Fatal(err)
	}
	if addr.Port == 0 {
		t.Fatalf("want listener port to be updated")
	}

	s.AddHandler("/status", PostJSONHandler(func(_ context.Context, req *testRequest) (*testStatus, error) {
		return &testStatus{Name: "triarb", Count: req.Count + 1}, nil
	}))

	statusURL := fmt.Sprintf("http://%s/status", addr)
	resp, err := http.Post(statusURL, "application/json", strings.NewReader(`{"count":2}`))
	if err != nil {
		t.Fatal(err)
	}
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want status ok, got %d", resp.StatusCode)
	}
	var got testStatus
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Name != "triarb" || got.Count != 3 {
		t.Fatalf("unexpected status %+v", got)
	}

	if !s.RemoveHandler("/status") {
		t.Fatalf("want handler to be removed")
	}
	resp, err = http.Post(statusURL, "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("want not-found after removal, got %d", resp.StatusCode)
	}

	if err := s.Stop(id); err != nil {
		t.Fatal(err)
	}
	if err := s.Stop(id); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("want os.ErrNotExist, got %v", err)
	}
}

func TestPostJSONHandlerError(t *testing.T) {
	h := PostJSONHandler(func(context.Context, *testRequest) (*testStatus, error) {
		return nil, errors.New("not ready")
	})
	s, err := New(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	s.AddHandler("/status", h)

	addr := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)}
	if _, err := s.StartTCP(context.Background(), addr); err != nil {
		t.Fatal(err)
	}
	statusURL := fmt.Sprintf("http://%s/status", addr)
	resp, err := http.Post(statusURL, "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("want internal server error, got %d", resp.StatusCode)
	}

	resp, err = http.Get(statusURL)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("want method not allowed, got %d", resp.StatusCode)
	}
}
