package tournament_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"chombot/internal/tournament"
	"chombot/internal/watch"
)

type snapshots struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (s *snapshots) PutSnapshot(_ context.Context, key string, b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), b...)
	return nil
}

func (s *snapshots) GetSnapshot(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.data[key]
	return b, ok, nil
}

type outcomes chan watch.Outcome

func (o outcomes) ObserveCycle(_ string, r watch.CycleResult) {
	select {
	case o <- r.Outcome:
	default:
	}
}

// A snapshot stored under another ruleset must not block the watcher forever.
func TestWatcherRecoversFromRulesetChange(t *testing.T) {
	seed, _ := json.Marshal(tournament.Tournaments{{Name: "A", Rules: tournament.DefaultRules}})
	store := &snapshots{data: map[string][]byte{"tournaments": seed}}

	var (
		mu    sync.Mutex
		calls int
		sent  []tournament.Statuses
	)
	fetch := func(context.Context) (tournament.Tournaments, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		out := tournament.Tournaments{{Name: "A", Rules: "MCR"}}
		if calls > 1 {
			out = append(out, tournament.Entry{Name: "B", Rules: "MCR"})
		}
		return out, nil
	}
	notify := func(_ context.Context, st tournament.Statuses) error {
		mu.Lock()
		defer mu.Unlock()
		sent = append(sent, st)
		return nil
	}

	obs := make(outcomes, 8)
	w := watch.New("tournaments", fetch,
		watch.Lift[tournament.Tournaments, tournament.Statuses](tournament.Differ{Rules: "MCR"}),
		notify,
		watch.WithSnapshotStore(store), watch.WithObserver(obs), watch.WithSchedule(watch.Every(time.Millisecond)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	var got []watch.Outcome
	for len(got) < 2 {
		select {
		case out := <-obs:
			got = append(got, out)
		case <-time.After(5 * time.Second):
			t.Fatalf("watcher stalled after %v", got)
		}
	}
	cancel()
	<-done

	if got[0] != watch.OutcomeUnchanged || got[1] != watch.OutcomeNotified {
		t.Fatalf("outcomes = %v, want [unchanged notified]", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(sent) != 1 || len(sent[0]) != 1 || sent[0][0].Entry.Name != "B" {
		t.Fatalf("sent = %+v", sent)
	}
}
