// Package ingest pulls county market bulletins and appends their rows
// to the price-history corpus. Bulletins are HTML pages with a price
// table per market; formats drift between counties, so parsing is
// tolerant and bad rows are skipped, not fatal.
package ingest

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/brotli"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/mavuno/sokoscope/internal/history"
	"github.com/mavuno/sokoscope/internal/model"
	"github.com/mavuno/sokoscope/internal/policy"
)

const (
	userAgent      = "sokoscope-ingest/1.0"
	requestTimeout = 30 * time.Second

	// One request per 2s with a small burst. County portals are slow
	// and unhappy about being crawled.
	requestsPerSecond = 0.5
	requestBurst      = 2
)

// Source is one configured bulletin endpoint.
type Source struct {
	Name   string
	URL    string
	Region string
}

// Result summarizes one source run.
type Result struct {
	Source   string
	Appended int
	Skipped  int
}

// Ingester fetches bulletins and writes observations.
type Ingester struct {
	client  *http.Client
	store   history.PriceWriter
	limiter *rate.Limiter
	log     zerolog.Logger
	now     func() time.Time
}

// NewIngester creates a bulletin ingester writing into store.
func NewIngester(store history.PriceWriter, log zerolog.Logger) *Ingester {
	return &Ingester{
		client:  &http.Client{Timeout: requestTimeout},
		store:   store,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
		log:     log.With().Str("component", "ingest").Logger(),
		now:     time.Now,
	}
}

// RunAll fetches every source in order. A failing source is logged and
// skipped; one broken county portal must not starve the rest.
func (in *Ingester) RunAll(ctx context.Context, sources []Source) []Result {
	results := make([]Result, 0, len(sources))
	for _, src := range sources {
		res, err := in.Run(ctx, src)
		if err != nil {
			in.log.Error().Err(err).Str("source", src.Name).Msg("bulletin fetch failed")
			continue
		}
		results = append(results, *res)
	}
	return results
}

// Run fetches one source and appends its rows.
func (in *Ingester) Run(ctx context.Context, src Source) (*Result, error) {
	if err := in.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	body, err := in.fetch(ctx, src.URL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parsing bulletin: %w", err)
	}

	obs := in.parseBulletin(doc, src)

	res := &Result{Source: src.Name}
	for _, o := range obs {
		if err := in.store.Append(ctx, o); err != nil {
			in.log.Debug().Err(err).Str("commodity", o.Commodity).Msg("row rejected")
			res.Skipped++
			continue
		}
		res.Appended++
	}

	in.log.Info().
		Str("source", src.Name).
		Int("appended", res.Appended).
		Int("skipped", res.Skipped).
		Msg("bulletin ingested")
	return res, nil
}

func (in *Ingester) fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Encoding", "gzip, br")

	resp, err := in.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	reader, err := decodeBody(resp)
	if err != nil {
		resp.Body.Close()
		return nil, err
	}
	return reader, nil
}

// decodeBody unwraps the response per its Content-Encoding. County
// portals sit behind CDNs that serve brotli to anything that accepts it.
func decodeBody(resp *http.Response) (io.ReadCloser, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		return &compositeCloser{Reader: gz, closer: resp.Body}, nil
	case "br":
		return &compositeCloser{Reader: brotli.NewReader(resp.Body), closer: resp.Body}, nil
	default:
		return resp.Body, nil
	}
}

type compositeCloser struct {
	io.Reader
	closer io.Closer
}

func (c *compositeCloser) Close() error { return c.closer.Close() }

// parseBulletin extracts observations from every price table in the
// document. Expected row shape: market, commodity, wholesale, retail,
// date. Headerless tables and junk rows are skipped silently.
func (in *Ingester) parseBulletin(doc *goquery.Document, src Source) []model.PriceObservation {
	var out []model.PriceObservation

	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		cols := headerColumns(table)
		if cols == nil {
			return
		}

		table.Find("tbody tr, tr").Each(func(i int, row *goquery.Selection) {
			cells := row.Find("td")
			if cells.Length() == 0 {
				return
			}

			obs, ok := in.parseRow(cells, cols, src)
			if !ok {
				return
			}
			out = append(out, obs)
		})
	})

	return out
}

// columnMap indexes the columns a bulletin table carries.
type columnMap struct {
	market, commodity, wholesale, retail, date int
}

// headerColumns locates the expected columns by header text. Returns
// nil when the table is not a price table.
func headerColumns(table *goquery.Selection) *columnMap {
	cols := &columnMap{market: -1, commodity: -1, wholesale: -1, retail: -1, date: -1}

	table.Find("thead th, tr:first-child th").Each(func(i int, header *goquery.Selection) {
		switch text := strings.ToLower(strings.TrimSpace(header.Text())); {
		case strings.Contains(text, "market"):
			cols.market = i
		case strings.Contains(text, "commodity") || strings.Contains(text, "produce"):
			cols.commodity = i
		case strings.Contains(text, "wholesale") || strings.Contains(text, "farmgate"):
			cols.wholesale = i
		case strings.Contains(text, "retail"):
			cols.retail = i
		case strings.Contains(text, "date"):
			cols.date = i
		}
	})

	if cols.commodity < 0 || cols.wholesale < 0 || cols.retail < 0 {
		return nil
	}
	return cols
}

func (in *Ingester) parseRow(cells *goquery.Selection, cols *columnMap, src Source) (model.PriceObservation, bool) {
	cell := func(idx int) string {
		if idx < 0 || idx >= cells.Length() {
			return ""
		}
		return strings.TrimSpace(cells.Eq(idx).Text())
	}

	commodity := strings.ToLower(cell(cols.commodity))
	if !policy.SupportedCommodity(commodity) {
		return model.PriceObservation{}, false
	}

	wholesale, err := parsePrice(cell(cols.wholesale))
	if err != nil {
		return model.PriceObservation{}, false
	}
	retail, err := parsePrice(cell(cols.retail))
	if err != nil {
		return model.PriceObservation{}, false
	}

	date := in.now()
	if raw := cell(cols.date); raw != "" {
		if parsed, err := time.Parse("2006-01-02", raw); err == nil {
			date = parsed
		}
	}

	market := cell(cols.market)
	if market == "" {
		market = src.Name
	}

	return model.PriceObservation{
		Commodity: commodity,
		Region:    src.Region,
		Market:    strings.ToLower(market),
		Date:      date,
		Wholesale: wholesale,
		Retail:    retail,
		Source:    src.Name,
	}, true
}

// parsePrice handles the formats bulletins actually use: "85", "1,200",
// "KES 85.50", "85/kg".
func parsePrice(raw string) (float64, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "KES")
	s = strings.TrimPrefix(s, "KSH")
	if i := strings.IndexRune(s, '/'); i >= 0 {
		s = s[:i]
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable price %q", raw)
	}
	if v <= 0 {
		return 0, fmt.Errorf("non-positive price %q", raw)
	}
	return v, nil
}
