package transport

import "testing"

func TestParseChatTarget(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		raw     string
		want    ChatTarget
		wantErr bool
	}{
		{name: "chat only", raw: "-100123", want: ChatTarget{ChatID: -100123}},
		{name: "chat and thread", raw: " -100123/42 ", want: ChatTarget{ChatID: -100123, ThreadID: 42}},
		{name: "empty", raw: "  ", wantErr: true},
		{name: "zero chat", raw: "0", wantErr: true},
		{name: "bad thread", raw: "5/x", wantErr: true},
		{name: "negative thread", raw: "5/-1", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseChatTarget(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseChatTarget(%q) expected error, got %+v", tt.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseChatTarget(%q) error: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Fatalf("ParseChatTarget(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestChatTargetString(t *testing.T) {
	t.Parallel()
	if got := (ChatTarget{ChatID: 7}).String(); got != "7" {
		t.Fatalf("String() = %q, want 7", got)
	}
	if got := (ChatTarget{ChatID: -7, ThreadID: 3}).String(); got != "-7/3" {
		t.Fatalf("String() = %q, want -7/3", got)
	}
}
