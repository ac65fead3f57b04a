package ema

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"chombot/internal/source"
	"chombot/internal/tournament"
)

const calendar = `<html><body>
<div class="Tableau_CertifiedTournament">
  <div class="TCTT_lignes">
    <div><p class="TCTT_contenuEntete1">November 2023</p></div>
    <div>
      <p class="TCTT_contenu"><a href="https://chombo.club">Krakow Riichi Open</a></p>
      <p>Riichi</p>
      <p>27-31</p>
      <p>Krakow</p>
      <p>OK</p>
      <p></p>
    </div>
    <div>
      <p>MCR Cup</p>
      <p>MCR</p>
      <p>4-5</p>
      <p>Vienna</p>
      <p>OK</p>
      <p> Results </p>
    </div>
    <div><p class="TCTT_contenuEntete2 other">December 2023</p></div>
    <div>
      <p>Poteto <b>Riichi</b> Taikai</p>
      <p>Riichi</p>
      <p>1-2</p>
      <p>Poznan</p>
      <p>Pending</p>
      <p></p>
    </div>
  </div>
</div>
</body></html>`

func parse(t *testing.T, html string) (tournament.Tournaments, error) {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("html: %v", err)
	}
	return Parse(d)
}

func TestParseCalendar(t *testing.T) {
	got, err := parse(t, calendar)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("entries = %d, want 3: %+v", len(got), got)
	}
	want := tournament.Entry{
		Name:           "Krakow Riichi Open",
		URL:            "https://chombo.club",
		Rules:          "Riichi",
		Date:           "27-31 November 2023",
		Place:          "Krakow",
		ApprovalStatus: "OK",
	}
	if got[0] != want {
		t.Fatalf("first = %+v\nwant    %+v", got[0], want)
	}
	if got[1].URL != "" || got[1].ResultsStatus != "Results" {
		t.Fatalf("second = %+v", got[1])
	}
	if got[2].Name != "Poteto Riichi Taikai" || got[2].Date != "1-2 December 2023" {
		t.Fatalf("third = %+v", got[2])
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		html string
	}{
		{name: "no table", html: `<html><body><p>maintenance</p></body></html>`},
		{name: "short row", html: `<div class="Tableau_CertifiedTournament"><div class="TCTT_lignes"><div><p>a</p><p>b</p></div></div></div>`},
		{name: "link without href", html: `<div class="Tableau_CertifiedTournament"><div class="TCTT_lignes"><div><p><a>x</a></p><p/><p/><p/><p/><p/></div></div></div>`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parse(t, tt.html); err == nil {
				t.Fatal("expected parse error")
			}
		})
	}
}

func TestSourceFetchFiltersRules(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(calendar))
	}))
	defer srv.Close()

	s := &Source{Getter: source.NewGetter(0), URL: srv.URL}
	got, err := s.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected Riichi entries only, got %+v", got)
	}
	for _, e := range got {
		if e.Rules != tournament.DefaultRules {
			t.Fatalf("unfiltered entry %+v", e)
		}
	}
}

func TestSourceFetchWrapsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	s := &Source{Getter: source.NewGetter(0), URL: srv.URL}
	_, err := s.Fetch(context.Background())
	var se *source.Error
	if !errors.As(err, &se) || se.Op != "parse" {
		t.Fatalf("Fetch error = %v, want parse error", err)
	}

	srv.Close()
	_, err = s.Fetch(context.Background())
	if !errors.As(err, &se) || se.Op != "fetch" {
		t.Fatalf("Fetch error = %v, want fetch error", err)
	}
}
