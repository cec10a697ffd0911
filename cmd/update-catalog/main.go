package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"macro-stress/internal/config"
	"macro-stress/internal/data"

	"github.com/rs/zerolog"
)

func main() {
	var (
		cfgPath    = flag.String("config", "", "Path to YAML config (defaults apply when empty)")
		outputPath = flag.String("output", "", "Output file path (default: paths.catalog_path)")
		seedFile   = flag.String("seed", "", "Path to existing catalog file to use as seed")
	)
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.LoadUnchecked(*cfgPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	} else if err := cfg.LoadEnv(); err != nil {
		log.Fatalf("Failed to read environment: %v", err)
	}

	apiKey, err := cfg.RequireFREDKey()
	if err != nil {
		log.Fatal(err)
	}

	if *outputPath == "" {
		*outputPath = cfg.Paths.CatalogPath
	}
	if *outputPath == "" {
		*outputPath = data.GetDefaultCatalogPath()
	}

	client := data.NewFREDClient(apiKey, cfg.Sources.FREDURL, cfg.Sources.RateLimit, zerolog.Nop())

	seedPath := *seedFile
	if seedPath == "" {
		seedPath = *outputPath
	}
	catalog, err := data.LoadCatalog(seedPath)
	if err == nil {
		fmt.Printf("Loaded %d existing entries from %s\n", len(catalog.Entries), seedPath)
	} else {
		catalog = &data.Catalog{}
	}

	// Configured series are always present; existing entries keep their metadata.
	for _, e := range data.CatalogFromSources(cfg.Sources).Entries {
		if _, ok := catalog.Lookup(e.Column); !ok {
			catalog.Upsert(e)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	updated := updateFromFRED(ctx, client, catalog)

	catalog.UpdatedAt = time.Now().Format(time.RFC3339)
	if err := data.SaveCatalog(catalog, *outputPath); err != nil {
		log.Fatalf("Failed to save catalog: %v", err)
	}
	fmt.Printf("Updated %d FRED series, saved %d entries to %s\n", updated, len(catalog.Entries), *outputPath)
	if updated == 0 && countFRED(catalog) > 0 {
		os.Exit(1)
	}
}

// updateFromFRED refreshes title, units and frequency for every FRED entry.
// Entries whose lookup fails keep their previous metadata.
func updateFromFRED(ctx context.Context, client *data.FREDClient, catalog *data.Catalog) int {
	fmt.Printf("Querying %d FRED series...\n", countFRED(catalog))
	ok := 0
	for _, e := range catalog.Entries {
		if e.Source != "fred" {
			continue
		}
		info, err := client.Series(ctx, e.Code)
		if err != nil {
			fmt.Printf("  warning: failed to query %s (%s): %v\n", e.Column, e.Code, err)
			continue
		}
		e.Title = info.Title
		e.Units = info.Units
		e.Frequency = info.Frequency
		if e.Kind == "" {
			e.Kind = data.KindFor(info.Title)
		}
		catalog.Upsert(e)
		ok++
		fmt.Printf("  updated %s: %s\n", e.Column, e.Title)
	}
	return ok
}

func countFRED(c *data.Catalog) int {
	n := 0
	for _, e := range c.Entries {
		if e.Source == "fred" {
			n++
		}
	}
	return n
}
