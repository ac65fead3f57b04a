// Package usma reads the USMA riichi ranking table.
package usma

import (
	"context"
	"fmt"
	"strconv"

	"github.com/PuerkitoBio/goquery"

	"chombot/internal/ranking"
	"chombot/internal/source"
)

const DefaultURL = "https://ranking.cvgo.re/"

const rowCells = 6

// Source fetches the ranking page.
type Source struct {
	Getter *source.Getter
	URL    string
}

func (s *Source) Fetch(ctx context.Context) (ranking.Ranking, error) {
	url := s.URL
	if url == "" {
		url = DefaultURL
	}
	doc, err := s.Getter.Document(ctx, url)
	if err != nil {
		return nil, source.FetchErr("usma", err)
	}
	r, err := Parse(doc)
	if err != nil {
		return nil, source.ParseErr("usma", err)
	}
	return r, nil
}

// Parse reads every row of the ranking table. Any malformed row fails the
// whole page.
func Parse(doc *goquery.Document) (ranking.Ranking, error) {
	body, err := source.One(doc.Selection, "table tbody")
	if err != nil {
		return nil, err
	}
	rows := body.Find("tr")
	out := make(ranking.Ranking, 0, rows.Length())
	var rowErr error
	rows.EachWithBreak(func(i int, row *goquery.Selection) bool {
		e, err := parseRow(row)
		if err != nil {
			rowErr = fmt.Errorf("row %d: %w", i, err)
			return false
		}
		out = append(out, e)
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}
	return out, nil
}

func parseRow(row *goquery.Selection) (ranking.Entry, error) {
	cells := row.Children()
	if cells.Length() != rowCells {
		return ranking.Entry{}, fmt.Errorf("expected %d cells, got %d", rowCells, cells.Length())
	}
	pos, posDiff, err := parseCell(cells.Eq(0), false)
	if err != nil {
		return ranking.Entry{}, fmt.Errorf("position: %w", err)
	}
	points, pointsDiff, err := parseCell(cells.Eq(5), true)
	if err != nil {
		return ranking.Entry{}, fmt.Errorf("points: %w", err)
	}
	name, _ := source.FirstText(cells.Eq(3))
	return ranking.Entry{
		Pos:        pos,
		PosDiff:    posDiff,
		Name:       name,
		Points:     points,
		PointsDiff: pointsDiff,
	}, nil
}

// parseCell reads a two-column cell. The position cell holds [value, diff],
// the points cell holds [diff, value].
func parseCell(cell *goquery.Selection, diffFirst bool) (uint32, ranking.Marker, error) {
	columns, err := source.One(cell, "div.columns")
	if err != nil {
		return 0, ranking.Marker{}, err
	}
	children := columns.Children()
	if children.Length() != 2 {
		return 0, ranking.Marker{}, fmt.Errorf("expected 2 columns, got %d", children.Length())
	}
	valueCol, diffCol := children.Eq(0), children.Eq(1)
	if diffFirst {
		valueCol, diffCol = diffCol, valueCol
	}

	text, err := source.FirstText(valueCol)
	if err != nil {
		return 0, ranking.Marker{}, err
	}
	v, err := strconv.ParseUint(text, 10, 32)
	if err != nil {
		return 0, ranking.Marker{}, err
	}
	m, err := parseMarker(diffCol)
	if err != nil {
		return 0, ranking.Marker{}, err
	}
	return uint32(v), m, nil
}

// parseMarker reads the colour-coded change badge. A column without an
// element child means no change.
func parseMarker(col *goquery.Selection) (ranking.Marker, error) {
	badge := col.Children().First()
	if badge.Length() == 0 {
		return ranking.DiffMarker(0), nil
	}
	switch {
	case badge.HasClass("has-text-danger"):
		d, err := delta(col)
		return ranking.DiffMarker(-d), err
	case badge.HasClass("has-text-success"):
		d, err := delta(col)
		return ranking.DiffMarker(d), err
	case badge.HasClass("has-text-info"):
		return ranking.NewMarker(), nil
	default:
		return ranking.Marker{}, fmt.Errorf("unexpected change badge <%s class=%q>", goquery.NodeName(badge), badge.AttrOr("class", ""))
	}
}

func delta(col *goquery.Selection) (int32, error) {
	text, err := source.FirstText(col)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(text, 10, 32)
	if err != nil {
		return 0, err
	}
	return int32(v), nil
}
