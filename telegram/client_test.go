// Copyright (c) 2025 BVK Chaitanya

package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bvk/triarb/gobs"
	"github.com/bvk/triarb/kvutil"
	"github.com/bvkgo/kv/kvmemdb"
)

// fakeAPI serves the few Bot API methods used by the client and records the
// chat ids of sent messages.
type fakeAPI struct {
	mu sync.Mutex

	failChat string
	sentTo   []string
	texts    []string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.ParseMultipartForm(1 << 20)

	w.Header().Set("Content-Type", "application/json")
	switch path.Base(r.URL.Path) {
	case "getMe":
		fmt.Fprint(w, `{"ok":true,"result":{"id":42,"is_bot":true,"first_name":"triarb","username":"triarb_test_bot"}}`)
	case "setMyCommands":
		fmt.Fprint(w, `{"ok":true,"result":true}`)
	case "sendMessage":
		chat := strings.Trim(r.FormValue("chat_id"), `"`)
		f.mu.Lock()
		defer f.mu.Unlock()
		if chat == f.failChat {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`)
			return
		}
		f.sentTo = append(f.sentTo, chat)
		f.texts = append(f.texts, r.FormValue("text"))
		fmt.Fprintf(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":%s,"type":"private"}}}`, chat)
	default:
		fmt.Fprint(w, `{"ok":true,"result":[]}`)
	}
}

func (f *fakeAPI) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.sentTo)
}

func TestSendMessage(t *testing.T) {
	ctx := context.Background()

	api := new(fakeAPI)
	srv := httptest.NewServer(api)
	defer srv.Close()

	db := kvmemdb.New()
	state := &gobs.TelegramState{UserChatIDMap: map[string]int64{"owner": 2002}}
	if err := kvutil.SetDB(ctx, db, "/telegram/triarb_test_bot/state", state); err != nil {
		t.Fatal(err)
	}

	secrets := &Secrets{
		BotToken: "123456:TEST",
		OwnerID:  "owner",
		ChatIDs:  []int64{1001, 2002},
	}
	opts := &Options{ServerURL: srv.URL, DisablePolling: true}
	c, err := New(ctx, db, secrets, opts)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if name := c.BotUserName(); name != "triarb_test_bot" {
		t.Fatalf("want bot user name triarb_test_bot, got %q", name)
	}

	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := c.SendMessage(ctx, at, "hello"); err != nil {
		t.Fatal(err)
	}
	// Learned chat id of the owner is the same as a fixed chat id.
	if got := api.sent(); !slices.Equal(got, []string{"1001", "2002"}) {
		t.Fatalf("want messages to 1001 and 2002, got %v", got)
	}
	if want := "2025-01-02 03:04:05 UTC hello"; api.texts[0] != want {
		t.Fatalf("want text %q, got %q", want, api.texts[0])
	}
}

func TestSendMessagePartialFailure(t *testing.T) {
	ctx := context.Background()

	api := &fakeAPI{failChat: "1001"}
	srv := httptest.NewServer(api)
	defer srv.Close()

	secrets := &Secrets{BotToken: "123456:TEST", ChatIDs: []int64{1001, 1002}}
	c, err := New(ctx, nil, secrets, &Options{ServerURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if err := c.SendMessage(ctx, time.Now(), "partial"); err != nil {
		t.Fatalf("want nil error when one receiver succeeds, got %v", err)
	}
	if got := api.sent(); !slices.Equal(got, []string{"1002"}) {
		t.Fatalf("want one message to 1002, got %v", got)
	}

	api.mu.Lock()
	api.failChat = "1002"
	api.mu.Unlock()

	c.secrets.ChatIDs = []int64{1002}
	if err := c.SendMessage(ctx, time.Now(), "none"); err == nil {
		t.Fatalf("want non-nil error when no receiver gets the message")
	}
}

func TestSecretsCheck(t *testing.T) {
	bad := []*Secrets{
		{},
		{BotToken: "x"},
		{BotToken: "x", OwnerID: "a", OtherIDs: []string{"a"}},
		{BotToken: "x", ChatIDs: []int64{0}},
	}
	for i, s := range bad {
		if err := s.Check(); err == nil {
			t.Fatalf("%d: want non-nil error for %+v", i, s)
		}
	}
	if err := (&Secrets{BotToken: "x", ChatIDs: []int64{1}}).Check(); err != nil {
		t.Fatal(err)
	}
}

func TestParseCommand(t *testing.T) {
	cmd, args, ok := parseCommand("/status@triarb_test_bot  now please")
	if !ok || cmd != "status" || !slices.Equal(args, []string{"now", "please"}) {
		t.Fatalf("unexpected parse result %q %v %v", cmd, args, ok)
	}
	if _, _, ok := parseCommand("status"); ok {
		t.Fatalf("want false for text without a slash")
	}
	if _, _, ok := parseCommand("/"); ok {
		t.Fatalf("want false for a lone slash")
	}
}
