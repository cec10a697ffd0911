package data

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"macro-stress/internal/config"
)

// CatalogEntry describes one column of the macro table.
type CatalogEntry struct {
	Column    string `json:"column"`    // e.g. "FedFunds"
	Source    string `json:"source"`    // "fred" or "yahoo"
	Code      string `json:"code"`      // e.g. "DFEDTARU" or "XLK"
	Kind      string `json:"kind"`      // "rate", "spread", "sector", "company"
	Title     string `json:"title"`     // provider title when known
	Units     string `json:"units"`     // e.g. "Percent"
	Frequency string `json:"frequency"` // e.g. "Daily"
}

// Catalog is the persisted list of series the pipeline knows about.
type Catalog struct {
	UpdatedAt string         `json:"updated_at"` // ISO 8601 timestamp
	Entries   []CatalogEntry `json:"entries"`
}

// Lookup returns the entry for a column.
func (c *Catalog) Lookup(column string) (CatalogEntry, bool) {
	i := slices.IndexFunc(c.Entries, func(e CatalogEntry) bool { return e.Column == column })
	if i < 0 {
		return CatalogEntry{}, false
	}
	return c.Entries[i], true
}

// Upsert replaces the entry with the same column or appends it, keeping column order stable.
func (c *Catalog) Upsert(e CatalogEntry) {
	if i := slices.IndexFunc(c.Entries, func(x CatalogEntry) bool { return x.Column == e.Column }); i >= 0 {
		c.Entries[i] = e
		return
	}
	c.Entries = append(c.Entries, e)
}

// KindFor classifies a FRED series by its title.
func KindFor(title string) string {
	t := strings.ToLower(title)
	switch {
	case strings.Contains(t, "spread"):
		return "spread"
	default:
		return "rate"
	}
}

// LoadCatalog loads a catalog from a JSON file
func LoadCatalog(filePath string) (*Catalog, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var c Catalog
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}

	return &c, nil
}

// SaveCatalog saves a catalog to a JSON file
func SaveCatalog(c *Catalog, filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	raw, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}

	if err := os.WriteFile(filePath, raw, 0644); err != nil {
		return fmt.Errorf("failed to write catalog file: %w", err)
	}

	return nil
}

// GetDefaultCatalogPath returns the default path for the catalog file
func GetDefaultCatalogPath() string {
	if path := os.Getenv("CATALOG_FILE"); path != "" {
		return path
	}
	return "./data/series.json"
}

// CatalogFromSources seeds a catalog with one entry per configured series. Provider
// metadata (title, units, frequency) is left empty.
func CatalogFromSources(src config.SourcesConfig) *Catalog {
	c := &Catalog{}
	for _, s := range src.FRED {
		kind := "rate"
		if strings.HasSuffix(s.Name, "_OAS") {
			kind = "spread"
		}
		c.Upsert(CatalogEntry{Column: s.Name, Source: "fred", Code: s.Code, Kind: kind})
	}
	for _, s := range src.Sectors {
		c.Upsert(CatalogEntry{Column: s.Name, Source: "yahoo", Code: s.Code, Kind: "sector"})
	}
	for _, t := range src.Companies {
		c.Upsert(CatalogEntry{Column: t, Source: "yahoo", Code: t, Kind: "company"})
	}
	return c
}
