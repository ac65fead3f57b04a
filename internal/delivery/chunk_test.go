package delivery

import (
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{name: "empty", text: "", limit: 10, want: nil},
		{name: "fits", text: "aa\nbb\n", limit: 10, want: []string{"aa\nbb\n"}},
		{name: "exact budget", text: "aaaa\nbbbb\n", limit: 5, want: []string{"aaaa\n", "bbbb\n"}},
		{name: "accumulates", text: "a\nb\nc\nd\n", limit: 5, want: []string{"a\nb\n", "c\nd\n"}},
		{name: "no final newline", text: "aaa\nbbb", limit: 5, want: []string{"aaa\n", "bbb"}},
		{name: "blank lines kept", text: "a\n\n\nb\n", limit: 6, want: []string{"a\n\n\nb\n"}},
		{name: "overlong line split", text: "ab\n0123456789\ncd\n", limit: 5, want: []string{"ab\n", "01234", "56789", "\ncd\n"}},
		{name: "rune boundary", text: "ééééé", limit: 5, want: []string{"éé", "éé", "é"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.text, tt.limit)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
				t.Fatalf("Split(%q, %d) = %q, want %q", tt.text, tt.limit, got, tt.want)
			}
		})
	}
}

func TestSplitLimits(t *testing.T) {
	long := strings.Repeat("x\n", DefaultLimit)
	for _, c := range Split(long, 0) {
		if len(c) > DefaultLimit {
			t.Fatalf("chunk of %d bytes exceeds default limit", len(c))
		}
	}
	for _, c := range Split("abcdefghij", 1) {
		if len(c) != MinLimit && len(c) != 10%MinLimit {
			t.Fatalf("limit below MinLimit not raised: chunk %q", c)
		}
	}
}

func TestSplitProperties(t *testing.T) {
	Convey("Given random multi-line text", t, func() {
		rng := rand.New(rand.NewSource(42))
		words := []string{"* **NEW**: _Krakow Riichi Open_", "ó", "日本", "pkt", "", strings.Repeat("z", 70)}

		for round := 0; round < 200; round++ {
			var sb strings.Builder
			for n := rng.Intn(40); n > 0; n-- {
				for w := rng.Intn(5); w > 0; w-- {
					sb.WriteString(words[rng.Intn(len(words))])
					sb.WriteByte(' ')
				}
				if rng.Intn(10) > 0 {
					sb.WriteByte('\n')
				}
			}
			text := sb.String()
			limit := MinLimit + rng.Intn(120)
			chunks := Split(text, limit)

			So(strings.Join(chunks, ""), ShouldEqual, text)
			for _, c := range chunks {
				So(len(c), ShouldBeLessThanOrEqualTo, limit)
				So(c, ShouldNotBeEmpty)
				So(utf8.ValidString(c), ShouldBeTrue)
			}
			// a line that fits on its own is never cut
			for i := 0; i+1 < len(chunks); i++ {
				if !strings.HasSuffix(chunks[i], "\n") {
					So(len(chunks[i])+utf8.RuneLen([]rune(chunks[i+1])[0]), ShouldBeGreaterThan, limit)
				}
			}
		}
	})
}
