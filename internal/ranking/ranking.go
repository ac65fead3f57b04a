// Package ranking models the USMA ranking table. Per-row change markers come
// from the rendered page itself; this package only selects and compares the
// rows that changed.
package ranking

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Marker says how a value moved since the page's previous render.
// The zero value is Diff(0), i.e. unchanged. Build markers with NewMarker and
// DiffMarker so that equal markers compare equal with ==.
type Marker struct {
	isNew bool
	delta int32
}

// NewMarker marks a row that did not exist in the previous render.
func NewMarker() Marker { return Marker{isNew: true} }

// DiffMarker marks a signed change; 0 means unchanged.
func DiffMarker(delta int32) Marker { return Marker{delta: delta} }

// HasChanged is false only for Diff(0).
func (m Marker) HasChanged() bool { return m.isNew || m.delta != 0 }

func (m Marker) String() string {
	if m.isNew {
		return "New"
	}
	return fmt.Sprintf("Diff(%d)", m.delta)
}

type markerJSON struct {
	New   bool  `json:"new,omitempty"`
	Delta int32 `json:"delta,omitempty"`
}

func (m Marker) MarshalJSON() ([]byte, error) {
	if m.isNew {
		return json.Marshal(markerJSON{New: true})
	}
	return json.Marshal(markerJSON{Delta: m.delta})
}

func (m *Marker) UnmarshalJSON(b []byte) error {
	var v markerJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if v.New {
		*m = NewMarker()
	} else {
		*m = DiffMarker(v.Delta)
	}
	return nil
}

// Entry is one ranking row.
type Entry struct {
	Pos        uint32 `json:"pos"`
	PosDiff    Marker `json:"pos_diff"`
	Name       string `json:"name"`
	Points     uint32 `json:"points"`
	PointsDiff Marker `json:"points_diff"`
}

func (e Entry) HasChanged() bool { return e.PosDiff.HasChanged() || e.PointsDiff.HasChanged() }

// Ranking is one ordered table snapshot.
type Ranking []Entry

// Changed returns the rows whose position or points moved, in table order.
func (r Ranking) Changed() Ranking {
	out := make(Ranking, 0, len(r))
	for _, e := range r {
		if e.HasChanged() {
			out = append(out, e)
		}
	}
	return out
}

// Equal compares two rankings by their changed rows only; unchanged rows are
// ignored entirely.
func Equal(a, b Ranking) bool {
	return slices.Equal(a.Changed(), b.Changed())
}

// Differ plugs the ranking comparison into a watcher. The diff payload is the
// changed subset of the newer ranking.
type Differ struct{}

func (Differ) Diff(old, next Ranking) (Ranking, bool) {
	if Equal(old, next) {
		return nil, false
	}
	return next.Changed(), true
}
