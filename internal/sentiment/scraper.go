// Package sentiment scores FOMC policy statements on a hawk/dove polarity scale.
package sentiment

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"macro-stress/internal/data"
	"macro-stress/internal/model"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"
)

const calendarPath = "/monetarypolicy/fomccalendars.htm"

var statementRe = regexp.MustCompile(`(?i)/monetarypolicy/files/fomc(\d{4})(\d{2})(\d{2})stmt\.htm`)

// Statement is one FOMC policy statement link.
type Statement struct {
	Date time.Time
	URL  string
}

// StatementScore is the polarity of one statement.
type StatementScore struct {
	Date     time.Time
	HawkDove float64
}

type Scraper struct {
	BaseURL string
	get     data.Getter
	log     zerolog.Logger
}

// NewScraper creates a scraper. If baseURL is empty, defaults to "https://www.federalreserve.gov".
func NewScraper(baseURL string, rps float64, log zerolog.Logger) *Scraper {
	if baseURL == "" {
		baseURL = "https://www.federalreserve.gov"
	}
	return &Scraper{
		BaseURL: strings.TrimRight(baseURL, "/"),
		get:     data.NewGetter("fomc", rps, log),
		log:     log,
	}
}

// Statements lists statement links from the FOMC calendar page, one per meeting date,
// sorted by date.
func (s *Scraper) Statements(ctx context.Context) ([]Statement, error) {
	doc, err := s.fetch(ctx, s.BaseURL+calendarPath)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var out []Statement
	for n := range doc.Descendants() {
		if n.Type != html.ElementNode || n.Data != "a" {
			continue
		}
		href := attr(n, "href")
		m := statementRe.FindStringSubmatch(href)
		if m == nil {
			continue
		}
		key := m[1] + m[2] + m[3]
		if seen[key] {
			continue
		}
		seen[key] = true
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		out = append(out, Statement{
			Date: time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC),
			URL:  s.BaseURL + m[0],
		})
	}
	slices.SortFunc(out, func(a, b Statement) int { return a.Date.Compare(b.Date) })
	s.log.Info().Int("statements", len(out)).Msg("found statement links")
	return out, nil
}

// Text returns the statement body: the paragraphs under div#article joined by spaces.
func (s *Scraper) Text(ctx context.Context, url string) (string, error) {
	doc, err := s.fetch(ctx, url)
	if err != nil {
		return "", err
	}
	return articleText(doc), nil
}

// Run scrapes and scores every statement. Any failure aborts the run.
func (s *Scraper) Run(ctx context.Context) ([]StatementScore, error) {
	links, err := s.Statements(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]StatementScore, 0, len(links))
	for _, l := range links {
		text, err := s.Text(ctx, l.URL)
		if err != nil {
			return nil, fmt.Errorf("statement %s: %w", l.Date.Format(model.DateFormat), err)
		}
		score := Score(text)
		s.log.Debug().Str("date", l.Date.Format(model.DateFormat)).Float64("hawk_dove", score).Msg("scored statement")
		out = append(out, StatementScore{Date: l.Date, HawkDove: score})
	}
	return out, nil
}

func (s *Scraper) fetch(ctx context.Context, url string) (*html.Node, error) {
	resp, err := s.get.Get(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, &data.FetchError{Source: "fomc", Code: "DECODE_ERROR", Message: fmt.Sprintf("parse %s: %v", url, err)}
	}
	return doc, nil
}

func articleText(doc *html.Node) string {
	var parts []string
	for n := range doc.Descendants() {
		if n.Type != html.ElementNode || n.Data != "div" || attr(n, "id") != "article" {
			continue
		}
		for p := range n.Descendants() {
			if p.Type == html.ElementNode && p.Data == "p" {
				if t := strings.Join(strings.Fields(textOf(p)), " "); t != "" {
					parts = append(parts, t)
				}
			}
		}
		break
	}
	return strings.Join(parts, " ")
}

func textOf(n *html.Node) string {
	var b strings.Builder
	for c := range n.Descendants() {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			b.WriteByte(' ')
		}
	}
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// SaveCSV writes date,hawk_dove rows.
func SaveCSV(path string, scores []StatementScore) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := WriteCSV(f, scores); err != nil {
		return err
	}
	return f.Close()
}

func WriteCSV(w io.Writer, scores []StatementScore) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "hawk_dove"}); err != nil {
		return err
	}
	for _, s := range scores {
		if err := cw.Write([]string{s.Date.Format(model.DateFormat), strconv.FormatFloat(s.HawkDove, 'f', 4, 64)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
