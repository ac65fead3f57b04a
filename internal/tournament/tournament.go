// Package tournament models the EMA tournament calendar and computes
// per-tournament changes between two calendar snapshots.
package tournament

import "fmt"

// DefaultRules is the ruleset the calendar watcher follows.
const DefaultRules = "Riichi"

// Entry is a single calendar row. Name is the key across snapshots.
type Entry struct {
	Name           string `json:"name"`
	URL            string `json:"url"`
	Rules          string `json:"rules"`
	Date           string `json:"date"`
	Place          string `json:"place"`
	ApprovalStatus string `json:"approval_status"`
	ResultsStatus  string `json:"results_status"`
}

// Tournaments is one ordered calendar snapshot.
type Tournaments []Entry

// FilterRules returns the entries that use the given ruleset, in order.
func (t Tournaments) FilterRules(rules string) Tournaments {
	out := make(Tournaments, 0, len(t))
	for _, e := range t {
		if e.Rules == rules {
			out = append(out, e)
		}
	}
	return out
}

// unique drops later entries that reuse an earlier name.
func (t Tournaments) unique() Tournaments {
	seen := make(map[string]struct{}, len(t))
	out := make(Tournaments, 0, len(t))
	for _, e := range t {
		if _, ok := seen[e.Name]; ok {
			continue
		}
		seen[e.Name] = struct{}{}
		out = append(out, e)
	}
	return out
}

// Change lists the fields of a known tournament that differ from the previous
// snapshot. A nil field is unchanged; a non-nil field holds the new value.
type Change struct {
	Name           string  `json:"name"`
	URL            *string `json:"url,omitempty"`
	Rules          *string `json:"rules,omitempty"`
	Date           *string `json:"date,omitempty"`
	Place          *string `json:"place,omitempty"`
	ApprovalStatus *string `json:"approval_status,omitempty"`
	ResultsStatus  *string `json:"results_status,omitempty"`
}

type StatusKind int

const (
	StatusNew StatusKind = iota + 1
	StatusChanged
)

func (k StatusKind) String() string {
	switch k {
	case StatusNew:
		return "new"
	case StatusChanged:
		return "changed"
	default:
		return fmt.Sprintf("StatusKind(%d)", int(k))
	}
}

// Status is one change record: either a tournament seen for the first time
// (Kind == StatusNew, Entry set) or a field-level change (Kind ==
// StatusChanged, Change set).
type Status struct {
	Kind   StatusKind
	Entry  Entry
	Change Change
}

func NewStatus(e Entry) Status { return Status{Kind: StatusNew, Entry: e} }

func ChangedStatus(c Change) Status { return Status{Kind: StatusChanged, Change: c} }

// Statuses is an ordered change set.
type Statuses []Status
