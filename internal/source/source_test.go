package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func doc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return d
}

func TestTextHelpers(t *testing.T) {
	d := doc(t, `<p id="c">
		<!-- note -->
		<a href="/x"> Krakow </a>
		<span>Riichi <b>Open</b></span>
	</p>`)
	cell := d.Find("#c")

	if got := CellText(cell); got != "Krakow Riichi Open" {
		t.Fatalf("CellText = %q", got)
	}
	first, err := FirstText(cell)
	if err != nil || first != "Krakow" {
		t.Fatalf("FirstText = %q, %v", first, err)
	}
	if _, err := FirstText(d.Find("a").Children()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("FirstText on empty selection = %v", err)
	}
	if _, err := One(d.Selection, "table"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("One missing = %v", err)
	}
}

func TestGetterDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != DefaultUserAgent {
			t.Errorf("user agent = %q", r.Header.Get("User-Agent"))
		}
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`<html><body><h1>calendar</h1></body></html>`))
	}))
	defer srv.Close()

	g := NewGetter(0)
	d, err := g.Document(context.Background(), srv.URL+"/")
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if got := d.Find("h1").Text(); got != "calendar" {
		t.Fatalf("h1 = %q", got)
	}

	_, err = g.Document(context.Background(), srv.URL+"/missing")
	if !errors.Is(err, ErrStatus) {
		t.Fatalf("missing page error = %v", err)
	}
}

func TestErrorKinds(t *testing.T) {
	err := ParseErr("ema", ErrNotFound)
	var se *Error
	if !errors.As(err, &se) || se.Op != "parse" {
		t.Fatalf("errors.As = %v", err)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Fatal("Error should unwrap")
	}
	if err.Error() != "parse ema: element not found" {
		t.Fatalf("Error() = %q", err.Error())
	}
}
