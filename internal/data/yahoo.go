package data

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"macro-stress/internal/model"

	"github.com/PaesslerAG/jsonpath"
	"github.com/rs/zerolog"
)

// YahooClient reads daily adjusted closes from the Yahoo Finance chart endpoint.
type YahooClient struct {
	BaseURL string
	Getter
}

// NewYahooClient creates a new chart client.
// If baseURL is empty, defaults to "https://query1.finance.yahoo.com".
func NewYahooClient(baseURL string, rps float64, log zerolog.Logger) *YahooClient {
	if baseURL == "" {
		baseURL = "https://query1.finance.yahoo.com"
	}
	return &YahooClient{BaseURL: baseURL, Getter: NewGetter("yahoo", rps, log)}
}

const (
	yahooTimestamps = "$.chart.result[0].timestamp"
	yahooAdjClose   = "$.chart.result[0].indicators.adjclose[0].adjclose"
	yahooGMTOffset  = "$.chart.result[0].meta.gmtoffset"
)

// AdjClose fetches adjusted closes for one ticker as a single-column table.
// Dates are the exchange-local trading day.
func (c *YahooClient) AdjClose(ctx context.Context, p SeriesParams) (*model.Table, error) {
	if p.Code == "" {
		return nil, fmt.Errorf("ticker is required")
	}
	if p.Column == "" {
		p.Column = p.Code
	}
	p.Source = "yahoo"

	cache := GetCache()
	if cached, ok := cache.Get(CacheKey(p)); ok {
		c.log.Debug().Str("ticker", p.Code).Int("rows", cached.Len()).Msg("cache hit")
		return cached, nil
	}

	u, err := url.Parse(c.BaseURL + "/v8/finance/chart/" + url.PathEscape(p.Code))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	start, end := p.Start, p.End
	if start.IsZero() {
		start = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if end.IsZero() {
		end = time.Now().UTC()
	}
	q := u.Query()
	q.Set("period1", strconv.FormatInt(start.Unix(), 10))
	q.Set("period2", strconv.FormatInt(end.Unix(), 10))
	q.Set("interval", "1d")
	q.Set("events", "div,splits")
	u.RawQuery = q.Encode()

	resp, err := c.Get(ctx, u.String(), http.Header{"Accept": {"application/json"}})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var jobj any
	if err := json.NewDecoder(resp.Body).Decode(&jobj); err != nil {
		return nil, &FetchError{Source: "yahoo", Code: "DECODE_ERROR", Message: fmt.Sprintf("decode %s: %v", p.Code, err)}
	}
	tbl, err := parseChart(jobj, p.Column)
	if err != nil {
		return nil, &FetchError{Source: "yahoo", Code: "DECODE_ERROR", Message: fmt.Sprintf("%s: %v", p.Code, err)}
	}
	c.log.Info().Str("ticker", p.Code).Str("column", p.Column).Int("rows", tbl.Len()).Msg("fetched Yahoo series")

	cache.Set(CacheKey(p), tbl)
	return tbl, nil
}

func parseChart(jobj any, column string) (*model.Table, error) {
	ts, err := jsonList(yahooTimestamps, jobj)
	if err != nil {
		return nil, err
	}
	closes, err := jsonList(yahooAdjClose, jobj)
	if err != nil {
		return nil, err
	}
	if len(ts) != len(closes) {
		return nil, fmt.Errorf("%d timestamps but %d closes", len(ts), len(closes))
	}

	var offset float64
	if v, err := jsonpath.Get(yahooGMTOffset, jobj); err == nil {
		offset, _ = v.(float64)
	}

	obs := make(map[time.Time]float64, len(ts))
	for i, raw := range ts {
		sec, ok := raw.(float64)
		if !ok {
			return nil, fmt.Errorf("timestamp %d is not a number: %v", i, raw)
		}
		day := model.Day(time.Unix(int64(sec+offset), 0).UTC())
		v := math.NaN()
		if f, ok := closes[i].(float64); ok {
			v = f
		}
		// Intraday rows can repeat the last session; keep the latest value.
		obs[day] = v
	}
	return model.FromSeries(column, obs)
}

// jsonList evaluates a path that must yield a JSON array.
func jsonList(path string, jobj any) ([]any, error) {
	v, err := jsonpath.Get(path, jobj)
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", path, err)
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("parsing %q: not a list: %T", path, v)
	}
	return list, nil
}
