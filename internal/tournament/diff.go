package tournament

import "fmt"

// PreconditionError is the panic value raised by Diff when a snapshot mixes
// rulesets. It marks a caller bug: snapshots must be filtered first.
type PreconditionError struct {
	Want  string
	Got   string
	Entry string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("tournament %q has rules %q, only %q is supported; filter the snapshot first", e.Entry, e.Got, e.Want)
}

// Diff compares two single-ruleset snapshots and returns one record per new or
// modified tournament, in the new snapshot's order. Unchanged tournaments and
// tournaments missing from next produce no record. Duplicate names keep their
// first occurrence.
//
// Diff panics with *PreconditionError if any entry's Rules differs from rules.
func Diff(old, next Tournaments, rules string) Statuses {
	mustSingleRules(old, rules)
	mustSingleRules(next, rules)

	oldByName := make(map[string]Entry, len(old))
	for _, e := range old.unique() {
		oldByName[e.Name] = e
	}

	var out Statuses
	for _, e := range next.unique() {
		prev, ok := oldByName[e.Name]
		switch {
		case !ok:
			out = append(out, NewStatus(e))
		case prev == e:
		default:
			out = append(out, ChangedStatus(changeOf(prev, e)))
		}
	}
	return out
}

func changeOf(old, next Entry) Change {
	return Change{
		Name:           next.Name,
		URL:            diffField(old.URL, next.URL),
		Rules:          diffField(old.Rules, next.Rules),
		Date:           diffField(old.Date, next.Date),
		Place:          diffField(old.Place, next.Place),
		ApprovalStatus: diffField(old.ApprovalStatus, next.ApprovalStatus),
		ResultsStatus:  diffField(old.ResultsStatus, next.ResultsStatus),
	}
}

// diffField returns a pointer to next when it differs from old.
func diffField[T comparable](old, next T) *T {
	if old == next {
		return nil
	}
	return &next
}

func mustSingleRules(t Tournaments, rules string) {
	for _, e := range t {
		if e.Rules != rules {
			panic(&PreconditionError{Want: rules, Got: e.Rules, Entry: e.Name})
		}
	}
}

// Differ plugs the calendar diff into a watcher.
type Differ struct {
	Rules string
}

func (d Differ) rules() string {
	if d.Rules == "" {
		return DefaultRules
	}
	return d.Rules
}

// Diff reports the change set between two present snapshots; ok is false when
// nothing notifiable changed.
func (d Differ) Diff(old, next Tournaments) (Statuses, bool) {
	st := Diff(old, next, d.rules())
	return st, len(st) > 0
}
