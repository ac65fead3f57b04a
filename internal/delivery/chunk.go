package delivery

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultLimit is the delivery budget in bytes per message.
	DefaultLimit = 2000
	// MinLimit guarantees that any single rune fits in a chunk.
	MinLimit = utf8.UTFMax + 1
)

// Split cuts text into chunks of at most limit bytes, breaking only after
// newlines. Joining the chunks yields text unchanged. A line that cannot fit
// in one chunk on its own is cut on rune boundaries; this is the only case
// where a line spans chunks.
//
// limit <= 0 selects DefaultLimit; smaller positive limits are raised to
// MinLimit.
func Split(text string, limit int) []string {
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit < MinLimit:
		limit = MinLimit
	}
	if text == "" {
		return nil
	}

	var (
		chunks []string
		buf    strings.Builder
	)
	flush := func() {
		if buf.Len() > 0 {
			chunks = append(chunks, buf.String())
			buf.Reset()
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		if line == "" {
			continue
		}
		if buf.Len()+len(line) > limit {
			flush()
		}
		for len(line) > limit {
			cut := runeCut(line, limit)
			chunks = append(chunks, line[:cut])
			line = line[cut:]
		}
		buf.WriteString(line)
	}
	flush()
	return chunks
}

// runeCut returns the largest index <= limit that does not split a rune.
func runeCut(s string, limit int) int {
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if cut == 0 {
		// invalid UTF-8 with no rune start in range
		return limit
	}
	return cut
}
