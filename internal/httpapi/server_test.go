package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chombot/internal/runtime/supervisor"
	"chombot/pkg/logx"
)

func TestHealthz(t *testing.T) {
	tests := []struct {
		name     string
		snap     supervisor.Snapshot
		wantCode int
		want     string
	}{
		{name: "ok", snap: supervisor.Snapshot{Tasks: []supervisor.TaskStats{{Name: "watch.ranking", Running: true}}}, wantCode: 200, want: "ok"},
		{name: "degraded", snap: supervisor.Snapshot{FirstError: "watch.ranking: boom"}, wantCode: 503, want: "degraded"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			h := NewRouter(func() supervisor.Snapshot { return tt.snap }, nil, time.Now())
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			var got Health
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got.Status != tt.want {
				t.Fatalf("status field = %q, want %q", got.Status, tt.want)
			}
		})
	}
}

func TestMetricsRouteOptional(t *testing.T) {
	h := NewRouter(nil, nil, time.Now())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 without metrics", rec.Code)
	}

	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = io.WriteString(w, "up 1\n") })
	h = NewRouter(nil, metrics, time.Now())
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "up 1\n" {
		t.Fatalf("metrics = %d %q", rec.Code, rec.Body.String())
	}
}

func TestProfilerRoute(t *testing.T) {
	for _, on := range []bool{false, true} {
		var opts []RouterOption
		if on {
			opts = append(opts, WithProfiler())
		}
		rec := httptest.NewRecorder()
		NewRouter(nil, nil, time.Now(), opts...).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/cmdline", nil))
		if got := rec.Code == http.StatusOK; got != on {
			t.Fatalf("profiler=%v: status %d", on, rec.Code)
		}
	}
}

func TestServerLifecycle(t *testing.T) {
	s := NewServer(logx.Nop())
	if err := s.Start("127.0.0.1:0", NewRouter(nil, nil, time.Now())); err != nil {
		t.Fatalf("Start: %v", err)
	}
	addr := s.Addr()
	if addr == "" {
		t.Fatal("Addr should be set while running")
	}
	if err := s.Start("127.0.0.1:0", nil); err == nil {
		t.Fatal("second Start should fail")
	}

	resp, err := http.Get("http://" + addr + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if s.Addr() != "" {
		t.Fatal("Addr should be empty after Stop")
	}
}
