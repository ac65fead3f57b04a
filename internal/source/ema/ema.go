// Package ema reads the tournament calendar published by the European
// Mahjong Association.
package ema

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"chombot/internal/source"
	"chombot/internal/tournament"
)

const (
	DefaultURL = "http://mahjong-europe.org/ranking/Calendar.html"

	tableSelector     = ".Tableau_CertifiedTournament .TCTT_lignes"
	headerClassPrefix = "TCTT_contenuEntete"
	columns           = 6
)

// Source fetches the calendar and keeps only one ruleset.
type Source struct {
	Getter *source.Getter
	URL    string
	Rules  string
}

// Fetch downloads and parses the calendar, filtered to s.Rules
// (tournament.DefaultRules when empty).
func (s *Source) Fetch(ctx context.Context) (tournament.Tournaments, error) {
	url := s.URL
	if url == "" {
		url = DefaultURL
	}
	rules := s.Rules
	if rules == "" {
		rules = tournament.DefaultRules
	}
	doc, err := s.Getter.Document(ctx, url)
	if err != nil {
		return nil, source.FetchErr("ema", err)
	}
	all, err := Parse(doc)
	if err != nil {
		return nil, source.ParseErr("ema", err)
	}
	return all.FilterRules(rules), nil
}

// Parse reads every calendar row. Month header rows are not entries; their
// text is appended to the date of the rows below them.
func Parse(doc *goquery.Document) (tournament.Tournaments, error) {
	table, err := source.One(doc.Selection, tableSelector)
	if err != nil {
		return nil, err
	}

	var (
		header  string
		entries tournament.Tournaments
		rowErr  error
	)
	table.Find("div").EachWithBreak(func(i int, row *goquery.Selection) bool {
		cells := row.Find("p")
		if cells.Length() == 0 {
			return true
		}
		if isHeader(cells.First()) {
			h, err := source.FirstText(cells.First())
			if err != nil {
				rowErr = fmt.Errorf("row %d: header: %w", i, err)
				return false
			}
			header = h
			return true
		}
		e, err := entry(header, cells)
		if err != nil {
			rowErr = fmt.Errorf("row %d: %w", i, err)
			return false
		}
		entries = append(entries, e)
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}
	return entries, nil
}

func isHeader(cell *goquery.Selection) bool {
	for _, class := range strings.Fields(cell.AttrOr("class", "")) {
		if strings.HasPrefix(class, headerClassPrefix) {
			return true
		}
	}
	return false
}

func entry(header string, cells *goquery.Selection) (tournament.Entry, error) {
	var url string
	if a := cells.First().Find("a").First(); a.Length() > 0 {
		href, ok := a.Attr("href")
		if !ok {
			return tournament.Entry{}, fmt.Errorf("<a> element does not contain a link")
		}
		url = href
	}

	texts := make([]string, 0, columns)
	cells.Each(func(_ int, c *goquery.Selection) { texts = append(texts, source.CellText(c)) })
	if len(texts) != columns {
		return tournament.Entry{}, fmt.Errorf("expected %d columns in the tournaments table; got %d", columns, len(texts))
	}
	return tournament.Entry{
		Name:           texts[0],
		URL:            url,
		Rules:          texts[1],
		Date:           texts[2] + " " + header,
		Place:          texts[3],
		ApprovalStatus: texts[4],
		ResultsStatus:  texts[5],
	}, nil
}
