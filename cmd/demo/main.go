package main

import (
	"flag"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"macro-stress/internal/config"
	"macro-stress/internal/data"
	"macro-stress/internal/model"
	"macro-stress/internal/pipeline"
	"macro-stress/internal/scenario"
	"macro-stress/internal/store"

	"github.com/rs/zerolog"
)

// Demo:
// - Load a macro CSV, or simulate one when none is given
// - Fit the VAR and build base, up and down paths
// - Print the first steps of each path to show how the pieces fit together
func main() {
	dataPath := flag.String("data", "", "Path to a macro CSV (simulated when empty)")
	cfgPath := flag.String("config", "", "Path to YAML config (optional)")
	days := flag.Int("days", 300, "Business days to simulate when -data is empty")
	seed := flag.Int64("seed", 1, "Simulation seed")
	n := flag.Int("n", 5, "Steps to print per path")
	outCSV := flag.String("out", "", "Optional path to write the scenario CSV (e.g. results/mc_paths.csv)")
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		cfg, err = config.Load(*cfgPath)
		if err != nil {
			panic(err)
		}
	}
	sc := cfg.Scenario
	if *dataPath == "" {
		// Keep the demo quick on simulated data.
		sc.Horizon = 60
		sc.MaxLag = 2
	}

	var macro *model.Table
	if *dataPath != "" {
		var err error
		macro, err = data.LoadMacroCSV(*dataPath)
		if err != nil {
			panic(err)
		}
	} else {
		macro = simulate(*days, *seed)
	}

	gen := scenario.NewGenerator(zerolog.Nop())
	set, err := gen.Generate(macro, pipeline.Options(sc, ""))
	if err != nil {
		panic(err)
	}

	fmt.Printf("Loaded %d rows, %s to %s\n", macro.Len(),
		macro.Date(0).Format(model.DateFormat), macro.LastDate().Format(model.DateFormat))
	fmt.Printf("Lag order=%d, horizon=%d, shock %s +/- %g\n\n", set.KAr, set.Horizon(), sc.ShockColumn, sc.ShockMagnitude)

	for _, p := range set.Paths {
		fmt.Printf("%s\n", p.Label)
		fmt.Printf("  %-10s", "date")
		for _, c := range set.Columns {
			fmt.Printf(" %12s", c)
		}
		fmt.Println()
		for i := 0; i < min(*n, len(p.Dates)); i++ {
			fmt.Printf("  %-10s", p.Dates[i].Format(model.DateFormat))
			for _, v := range p.Values.RawRowView(i) {
				fmt.Printf(" %12.4f", v)
			}
			fmt.Println()
		}
		fmt.Println(strings.Repeat("-", 12+13*len(set.Columns)))
	}

	if *outCSV != "" {
		if err := store.WriteScenariosCSV(*outCSV, set); err != nil {
			panic(err)
		}
		fmt.Printf("Wrote %s\n", *outCSV)
	}
}

// simulate draws a mean-reverting rate, a spread that widens with it and a
// random-walk sector index, one row per business day.
func simulate(days int, seed int64) *model.Table {
	rng := rand.New(rand.NewSource(seed))
	tbl := model.NewTable("FedFunds", "HY_OAS", "Technology")
	ff, hy, tech := 0.0, 0.0, 100.0
	d := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)
	for i := 0; i < days; i++ {
		ff = 0.97*ff + 0.05*rng.NormFloat64()
		hy = 0.1*ff + 0.9*hy + 0.08*rng.NormFloat64()
		tech *= 1 + 0.012*rng.NormFloat64()
		if err := tbl.Append(d, []float64{4.5 + ff, 3.5 + hy, tech}); err != nil {
			panic(err)
		}
		d = model.NextBusinessDay(d)
	}
	return tbl
}
