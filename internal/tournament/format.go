package tournament

import (
	"fmt"
	"strings"
)

// Format renders a change set as one "* " line per record, prefixed by header.
// A non-empty header always ends up on its own line.
func Format(header string, statuses Statuses) string {
	var b strings.Builder
	b.WriteString(header)
	if header != "" && !strings.HasSuffix(header, "\n") {
		b.WriteString("\n")
	}
	for _, s := range statuses {
		b.WriteString("* ")
		b.WriteString(formatStatus(s))
		b.WriteString("\n")
	}
	return b.String()
}

func formatStatus(s Status) string {
	var b strings.Builder
	switch s.Kind {
	case StatusNew:
		e := s.Entry
		fmt.Fprintf(&b, "**NEW**: _%s_", e.Name)
		if e.URL != "" {
			fmt.Fprintf(&b, " (%s)", e.URL)
		}
		fmt.Fprintf(&b, "; %s; %s; MERS: %s", e.Date, e.Place, e.ApprovalStatus)
		if e.ResultsStatus != "" {
			fmt.Fprintf(&b, "; %s", e.ResultsStatus)
		}
	case StatusChanged:
		c := s.Change
		fmt.Fprintf(&b, "**CHANGED**: _%s_; ", c.Name)
		if c.Date != nil {
			fmt.Fprintf(&b, "date: %s; ", *c.Date)
		}
		if c.Place != nil {
			fmt.Fprintf(&b, "place: %s; ", *c.Place)
		}
		if c.ApprovalStatus != nil {
			fmt.Fprintf(&b, "MERS approval: %s; ", *c.ApprovalStatus)
		}
		if c.ResultsStatus != nil {
			fmt.Fprintf(&b, "results: \"%s\"; ", *c.ResultsStatus)
		}
		return strings.TrimSuffix(b.String(), "; ")
	}
	return b.String()
}
