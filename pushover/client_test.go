// Copyright (c) 2023 BVK Chaitanya

package pushover

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSendMessage(t *testing.T) {
	var got message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("could not decode request: %v", err)
		}
		if got.Token == "bad" {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"status":0,"request":"r2","errors":["application token is invalid"]}`)
			return
		}
		fmt.Fprint(w, `{"status":1,"request":"r1"}`)
	}))
	defer srv.Close()

	keys := &Keys{ApplicationKey: "app", UserKey: "user"}
	c, err := New(keys, &Options{URL: srv.URL, Title: "triarb"})
	if err != nil {
		t.Fatal(err)
	}
	at := time.Unix(1700000000, 0)
	if err := c.SendMessage(context.Background(), at, t.Name()); err != nil {
		t.Fatal(err)
	}
	if got.User != "user" || got.Title != "triarb" || got.Message != t.Name() || got.Timestamp != at.Unix() {
		t.Fatalf("unexpected request %+v", got)
	}

	bad, err := New(&Keys{ApplicationKey: "bad", UserKey: "user"}, &Options{URL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	err = bad.SendMessage(context.Background(), at, "x")
	if err == nil || !strings.Contains(err.Error(), "application token is invalid") {
		t.Fatalf("want api error, got %v", err)
	}
}

func TestNewRejectsEmptyKeys(t *testing.T) {
	if _, err := New(&Keys{UserKey: "user"}, nil); err == nil {
		t.Fatalf("want non-nil error for missing application key")
	}
}
