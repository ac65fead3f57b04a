package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"chombot/internal/transport"
	logx "chombot/pkg/logx"
)

type botAPI struct {
	mu    sync.Mutex
	sends []map[string]any
	fail  string
}

func (b *botAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"chombot","username":"chombot_test_bot"}}`))
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		var params map[string]any
		_ = json.NewDecoder(r.Body).Decode(&params)
		b.mu.Lock()
		b.sends = append(b.sends, params)
		fail := b.fail
		b.mu.Unlock()
		if fail != "" {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, `{"ok":false,"error_code":400,"description":%q}`, fail)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":42,"date":0,"chat":{"id":-100,"type":"supergroup"}}}`))
	default:
		http.NotFound(w, r)
	}
}

func newAdapter(t *testing.T) (*Adapter, *botAPI) {
	t.Helper()
	api := &botAPI{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	a, err := New(Config{Token: "123:abc", APIURL: srv.URL}, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a, api
}

func TestNewRequiresToken(t *testing.T) {
	if _, err := New(Config{Token: "  "}, logx.Nop()); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestSendBeforeStart(t *testing.T) {
	a, _ := newAdapter(t)
	_, err := a.SendText(context.Background(), transport.ChatTarget{ChatID: -100}, "hi", nil)
	if !errors.Is(err, ErrNotRunning) {
		t.Fatalf("SendText before Start = %v, want ErrNotRunning", err)
	}
}

func TestSendText(t *testing.T) {
	a, api := newAdapter(t)
	ctx := context.Background()
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer a.Stop(ctx)

	ref, err := a.SendText(ctx, transport.ChatTarget{ChatID: -100, ThreadID: 7}, "hello", &transport.SendOptions{ParseMode: "Markdown", DisablePreview: true})
	if err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if ref.MessageID != 42 || ref.ChatID != -100 || ref.ThreadID != 7 {
		t.Fatalf("ref = %+v", ref)
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	if len(api.sends) != 1 {
		t.Fatalf("sends = %d, want 1", len(api.sends))
	}
	p := api.sends[0]
	if fmt.Sprint(p["chat_id"]) != "-100" || p["text"] != "hello" {
		t.Fatalf("params = %v", p)
	}
	if fmt.Sprint(p["message_thread_id"]) != "7" {
		t.Fatalf("thread id not forwarded: %v", p)
	}
}

func TestSendTextRejectsLongMessages(t *testing.T) {
	a, api := newAdapter(t)
	ctx := context.Background()
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	_, err := a.SendText(ctx, transport.ChatTarget{ChatID: 1}, strings.Repeat("ł", MaxMessageRunes+1), nil)
	if !errors.Is(err, transport.ErrMessageTooLong) {
		t.Fatalf("SendText = %v, want ErrMessageTooLong", err)
	}
	if _, err := a.SendText(ctx, transport.ChatTarget{ChatID: 1}, strings.Repeat("ł", MaxMessageRunes), nil); err != nil {
		t.Fatalf("SendText at limit: %v", err)
	}
	api.mu.Lock()
	defer api.mu.Unlock()
	if len(api.sends) != 1 {
		t.Fatalf("sends = %d, want only the in-limit message", len(api.sends))
	}
}

func TestSendTextAPIError(t *testing.T) {
	a, api := newAdapter(t)
	ctx := context.Background()
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	api.mu.Lock()
	api.fail = "Bad Request: chat not found"
	api.mu.Unlock()

	if _, err := a.SendText(ctx, transport.ChatTarget{ChatID: 5}, "x", nil); err == nil {
		t.Fatal("expected api error")
	}
}

func TestStopRejectsSends(t *testing.T) {
	a, _ := newAdapter(t)
	ctx := context.Background()
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := a.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if _, err := a.SendText(ctx, transport.ChatTarget{ChatID: 5}, "x", nil); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("SendText after Stop = %v", err)
	}
}
