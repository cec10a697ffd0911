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

	"github.com/rs/zerolog"
)

// SeriesParams identifies one upstream series and the column it is stored under.
type SeriesParams struct {
	Source string // "fred" or "yahoo"
	Code   string // e.g. "DGS10" or "XLK"
	Column string // output column name, e.g. "10Y_Treasury"
	Start  time.Time
	End    time.Time
}

// FREDClient fetches observations from the St. Louis Fed FRED API.
type FREDClient struct {
	APIKey  string
	BaseURL string
	Getter
}

// NewFREDClient creates a new FRED client.
// If baseURL is empty, defaults to "https://api.stlouisfed.org".
func NewFREDClient(apiKey, baseURL string, rps float64, log zerolog.Logger) *FREDClient {
	if baseURL == "" {
		baseURL = "https://api.stlouisfed.org"
	}
	return &FREDClient{
		APIKey:  apiKey,
		BaseURL: baseURL,
		Getter:  NewGetter("fred", rps, log),
	}
}

type fredObservations struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

// Observations fetches one series as a single-column table. FRED marks missing
// observations with "."; those become NaN.
func (c *FREDClient) Observations(ctx context.Context, p SeriesParams) (*model.Table, error) {
	if err := c.validateAPIKey(); err != nil {
		return nil, err
	}
	if p.Code == "" {
		return nil, fmt.Errorf("series_id is required")
	}
	if p.Column == "" {
		p.Column = p.Code
	}
	p.Source = "fred"

	cache := GetCache()
	if cached, ok := cache.Get(CacheKey(p)); ok {
		c.log.Debug().Str("series", p.Code).Int("rows", cached.Len()).Msg("cache hit")
		return cached, nil
	}

	u, err := url.Parse(c.BaseURL + "/fred/series/observations")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	q := u.Query()
	q.Set("series_id", p.Code)
	q.Set("api_key", c.APIKey)
	q.Set("file_type", "json")
	if !p.Start.IsZero() {
		q.Set("observation_start", p.Start.Format(model.DateFormat))
	}
	if !p.End.IsZero() {
		q.Set("observation_end", p.End.Format(model.DateFormat))
	}
	u.RawQuery = q.Encode()

	resp, err := c.Get(ctx, u.String(), http.Header{"Accept": {"application/json"}})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body fredObservations
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &FetchError{Source: "fred", Code: "DECODE_ERROR", Message: fmt.Sprintf("decode %s: %v", p.Code, err)}
	}

	obs := make(map[time.Time]float64, len(body.Observations))
	for _, o := range body.Observations {
		d, err := time.Parse(model.DateFormat, o.Date)
		if err != nil {
			return nil, &FetchError{Source: "fred", Code: "DECODE_ERROR", Message: fmt.Sprintf("%s: bad date %q", p.Code, o.Date)}
		}
		v := math.NaN()
		if o.Value != "." && o.Value != "" {
			if v, err = strconv.ParseFloat(o.Value, 64); err != nil {
				return nil, &FetchError{Source: "fred", Code: "DECODE_ERROR", Message: fmt.Sprintf("%s: bad value %q on %s", p.Code, o.Value, o.Date)}
			}
		}
		obs[d] = v
	}
	tbl, err := model.FromSeries(p.Column, obs)
	if err != nil {
		return nil, err
	}
	c.log.Info().Str("series", p.Code).Str("column", p.Column).Int("rows", tbl.Len()).Msg("fetched FRED series")

	cache.Set(CacheKey(p), tbl)
	return tbl, nil
}

// SeriesInfo is the FRED metadata kept in the series catalog.
type SeriesInfo struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Units            string `json:"units"`
	Frequency        string `json:"frequency"`
	ObservationStart string `json:"observation_start"`
	ObservationEnd   string `json:"observation_end"`
	LastUpdated      string `json:"last_updated"`
}

// Series fetches metadata for one series.
func (c *FREDClient) Series(ctx context.Context, id string) (*SeriesInfo, error) {
	if err := c.validateAPIKey(); err != nil {
		return nil, err
	}
	u, err := url.Parse(c.BaseURL + "/fred/series")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	q := u.Query()
	q.Set("series_id", id)
	q.Set("api_key", c.APIKey)
	q.Set("file_type", "json")
	u.RawQuery = q.Encode()

	resp, err := c.Get(ctx, u.String(), http.Header{"Accept": {"application/json"}})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body struct {
		Series []SeriesInfo `json:"seriess"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &FetchError{Source: "fred", Code: "DECODE_ERROR", Message: fmt.Sprintf("decode series %s: %v", id, err)}
	}
	if len(body.Series) == 0 {
		return nil, &FetchError{Source: "fred", Code: "NOT_FOUND", Message: fmt.Sprintf("series %s not found", id)}
	}
	return &body.Series[0], nil
}

// validateAPIKey fails before any network call when the key is absent.
func (c *FREDClient) validateAPIKey() error {
	if c.APIKey == "" {
		return fmt.Errorf("FRED API key is required: %w", model.ErrMissingConfiguration)
	}
	return nil
}
