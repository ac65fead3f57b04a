package watch

import (
	"testing"
	"time"
)

func TestParseScheduleIntervals(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		raw  string
		want time.Duration
	}{
		{name: "empty", raw: "", want: DefaultInterval},
		{name: "duration", raw: "10m", want: 10 * time.Minute},
		{name: "prefixed interval", raw: "interval:45s", want: 45 * time.Second},
		{name: "prefixed every", raw: "every: 2h", want: 2 * time.Hour},
		{name: "hhmm", raw: "01:30", want: 90 * time.Minute},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSchedule(tt.raw)
			if err != nil {
				t.Fatalf("ParseSchedule(%q) error: %v", tt.raw, err)
			}
			e, ok := got.(Every)
			if !ok {
				t.Fatalf("ParseSchedule(%q) = %T, want Every", tt.raw, got)
			}
			if time.Duration(e) != tt.want {
				t.Fatalf("Every = %v, want %v", time.Duration(e), tt.want)
			}
		})
	}
}

func TestParseScheduleCron(t *testing.T) {
	t.Parallel()
	base := time.Date(2024, 3, 1, 12, 3, 0, 0, time.UTC)
	for _, raw := range []string{"*/10 * * * *", "cron:*/10 * * * *"} {
		s, err := ParseSchedule(raw)
		if err != nil {
			t.Fatalf("ParseSchedule(%q) error: %v", raw, err)
		}
		if got, want := s.Next(base), base.Add(7*time.Minute); !got.Equal(want) {
			t.Fatalf("%q Next = %v, want %v", raw, got, want)
		}
	}
	s, err := ParseSchedule("@every 15m")
	if err != nil {
		t.Fatalf("@every error: %v", err)
	}
	if got := s.Next(base); !got.Equal(base.Add(15 * time.Minute)) {
		t.Fatalf("@every Next = %v", got)
	}
}

func TestParseScheduleInvalid(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"not-a-schedule", "00:00", "-5m", "cron:", "00:75", "cron:* *"} {
		if _, err := ParseSchedule(raw); err == nil {
			t.Fatalf("ParseSchedule(%q) expected error", raw)
		}
	}
}

func TestEveryZeroFallsBack(t *testing.T) {
	t.Parallel()
	base := time.Unix(0, 0)
	if got := Every(0).Next(base); !got.Equal(base.Add(DefaultInterval)) {
		t.Fatalf("Every(0).Next = %v", got)
	}
}
