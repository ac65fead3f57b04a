package ranking

import (
	"fmt"
	"strings"
)

// Format renders the changed rows under header, one "• " line per row.
func Format(header string, changed Ranking) string {
	lines := make([]string, 0, len(changed))
	for _, e := range changed {
		lines = append(lines, FormatEntry(e))
	}
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\nLatest changes:\n")
	b.WriteString(strings.Join(lines, "\n"))
	return b.String()
}

// FormatEntry renders "• pos (↑n) / name / points (+n) pkt".
func FormatEntry(e Entry) string {
	return fmt.Sprintf("• %d%s / %s / %d%s pkt", e.Pos, positionDelta(e.PosDiff), e.Name, e.Points, pointsDelta(e.PointsDiff))
}

func positionDelta(m Marker) string {
	switch {
	case m.isNew:
		return " (NEW)"
	case m.delta > 0:
		return fmt.Sprintf(" (↑%d)", m.delta)
	case m.delta < 0:
		return fmt.Sprintf(" (↓%d)", -int64(m.delta))
	default:
		return ""
	}
}

func pointsDelta(m Marker) string {
	switch {
	case m.isNew:
		return ""
	case m.delta > 0:
		return fmt.Sprintf(" (+%d)", m.delta)
	case m.delta < 0:
		return fmt.Sprintf(" (%d)", m.delta)
	default:
		return ""
	}
}
