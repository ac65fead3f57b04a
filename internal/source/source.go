// Package source fetches HTML pages and holds the helpers shared by the
// page parsers in its subpackages.
package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "chombot/1.0"
)

var (
	ErrNotFound = errors.New("element not found")
	ErrStatus   = errors.New("unexpected http status")
)

// Error tells fetch failures (network, status) from parse failures.
type Error struct {
	Op     string // "fetch" or "parse"
	Source string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Source, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func FetchErr(src string, err error) error { return &Error{Op: "fetch", Source: src, Err: err} }
func ParseErr(src string, err error) error { return &Error{Op: "parse", Source: src, Err: err} }

// Getter downloads pages as goquery documents.
type Getter struct {
	Client    *http.Client
	UserAgent string
}

func NewGetter(timeout time.Duration) *Getter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Getter{Client: &http.Client{Timeout: timeout}, UserAgent: DefaultUserAgent}
}

// Document GETs url and parses the body. Non-2xx responses are errors.
func (g *Getter) Document(ctx context.Context, url string) (*goquery.Document, error) {
	client := g.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	ua := g.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html")

	res, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %d", ErrStatus, res.StatusCode)
	}
	return goquery.NewDocumentFromReader(res.Body)
}

// One returns the first match of selector under sel.
func One(sel *goquery.Selection, selector string) (*goquery.Selection, error) {
	found := sel.Find(selector).First()
	if found.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, selector)
	}
	return found, nil
}

// Texts returns every text node under sel, in document order.
func Texts(sel *goquery.Selection) []string {
	var out []string
	sel.Contents().Each(func(_ int, c *goquery.Selection) {
		switch goquery.NodeName(c) {
		case "#text":
			out = append(out, c.Text())
		case "#comment":
		default:
			out = append(out, Texts(c)...)
		}
	})
	return out
}

// FirstText returns the first non-blank text node under sel, trimmed.
func FirstText(sel *goquery.Selection) (string, error) {
	for _, t := range Texts(sel) {
		if t = strings.TrimSpace(t); t != "" {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: no text", ErrNotFound)
}

// CellText joins the non-blank text nodes under sel with single spaces.
func CellText(sel *goquery.Selection) string {
	parts := make([]string, 0, 4)
	for _, t := range Texts(sel) {
		if t = strings.TrimSpace(t); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
