package delivery

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"chombot/internal/storage"
	"chombot/internal/transport"
	"chombot/pkg/logx"
)

type fakeSender struct {
	mu     sync.Mutex
	sent   map[transport.ChatTarget][]string
	failOn map[transport.ChatTarget]int
}

func (f *fakeSender) SendText(_ context.Context, to transport.ChatTarget, text string, _ *transport.SendOptions) (transport.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sent == nil {
		f.sent = map[transport.ChatTarget][]string{}
	}
	if n, ok := f.failOn[to]; ok && len(f.sent[to]) == n {
		return transport.MessageRef{}, errors.New("chat rejected message")
	}
	f.sent[to] = append(f.sent[to], text)
	return transport.MessageRef{ChatID: to.ChatID, MessageID: len(f.sent[to])}, nil
}

type memAudit struct {
	mu   sync.Mutex
	recs []storage.DeliveryRecord
}

func (m *memAudit) AppendDelivery(_ context.Context, rec storage.DeliveryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	return nil
}

type chunkCount struct {
	mu       sync.Mutex
	ok, fail int
}

func (c *chunkCount) ObserveChunk(_ string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ok {
		c.ok++
	} else {
		c.fail++
	}
}

var (
	chanA = transport.ChatTarget{ChatID: 1}
	chanB = transport.ChatTarget{ChatID: 2, ThreadID: 7}
)

func TestDeliverFansOutInOrder(t *testing.T) {
	s := &fakeSender{}
	audit := &memAudit{}
	obs := &chunkCount{}
	b := NewBroadcaster(Config{Budget: 8, RatePerSec: 1000}, s, logx.Nop(), WithAuditor(audit), WithChunkObserver(obs))

	text := "line-1\nline-2\nline-3\n"
	if err := b.Deliver(context.Background(), "ranking", []transport.ChatTarget{chanA, chanB, chanA}, text); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	for _, to := range []transport.ChatTarget{chanA, chanB} {
		got := s.sent[to]
		if strings.Join(got, "") != text || len(got) != 3 {
			t.Fatalf("target %s got %q", to, got)
		}
	}
	if len(audit.recs) != 2 {
		t.Fatalf("expected one audit record per distinct target, got %d", len(audit.recs))
	}
	if audit.recs[0].ID != audit.recs[1].ID || audit.recs[0].Sent != 3 || audit.recs[0].Error != "" {
		t.Fatalf("unexpected audit records: %+v", audit.recs)
	}
	if obs.ok != 6 || obs.fail != 0 {
		t.Fatalf("chunk counts ok=%d fail=%d", obs.ok, obs.fail)
	}
}

func TestDeliverJoinsTargetErrors(t *testing.T) {
	s := &fakeSender{failOn: map[transport.ChatTarget]int{chanB: 1}}
	audit := &memAudit{}
	b := NewBroadcaster(Config{Budget: 8, RatePerSec: 1000}, s, logx.Nop(), WithAuditor(audit))

	err := b.Deliver(context.Background(), "tournaments", []transport.ChatTarget{chanA, chanB}, "line-1\nline-2\nline-3\n")
	if err == nil {
		t.Fatal("expected error from failing target")
	}
	if !strings.Contains(err.Error(), "chunk 2/3") {
		t.Fatalf("error should name the failed chunk: %v", err)
	}
	if len(s.sent[chanA]) != 3 {
		t.Fatalf("healthy target should get every chunk, got %d", len(s.sent[chanA]))
	}
	if len(s.sent[chanB]) != 1 {
		t.Fatalf("failing target should stop after the failure, got %d", len(s.sent[chanB]))
	}
	var failed storage.DeliveryRecord
	for _, r := range audit.recs {
		if r.Target == chanB.String() {
			failed = r
		}
	}
	if failed.Sent != 1 || failed.Error == "" {
		t.Fatalf("audit record for failing target = %+v", failed)
	}
}

func TestDeliverWithoutTargetsIsNoop(t *testing.T) {
	s := &fakeSender{}
	b := NewBroadcaster(Config{}, s, logx.Nop())
	if err := b.Deliver(context.Background(), "w", nil, "hello\n"); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if err := b.Deliver(context.Background(), "w", []transport.ChatTarget{chanA}, ""); err != nil {
		t.Fatalf("Deliver empty: %v", err)
	}
	if len(s.sent) != 0 {
		t.Fatalf("nothing should be sent, got %v", s.sent)
	}
}

func TestNotifierUsesProviderAndFormatter(t *testing.T) {
	s := &fakeSender{}
	b := NewBroadcaster(Config{RatePerSec: 1000}, s, logx.Nop())
	calls := 0
	provider := TargetsFunc(func(context.Context) []transport.ChatTarget {
		calls++
		return []transport.ChatTarget{chanB}
	})
	notify := Notifier(b, "ranking", provider, func(n int) string { return strings.Repeat("x", n) + "\n" })

	if err := notify(context.Background(), 3); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if calls != 1 || len(s.sent[chanB]) != 1 || s.sent[chanB][0] != "xxx\n" {
		t.Fatalf("calls=%d sent=%v", calls, s.sent)
	}
}

func TestStaticTargetsReturnsCopy(t *testing.T) {
	st := StaticTargets{chanA}
	got := st.Targets(context.Background())
	got[0] = chanB
	if st[0] != chanA {
		t.Fatal("StaticTargets must not expose its backing array")
	}
}
