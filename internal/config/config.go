package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"macro-stress/internal/model"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration shape (YAML).
type Config struct {
	Paths     PathsConfig     `yaml:"paths"`
	Scenario  ScenarioConfig  `yaml:"scenario"`
	Sources   SourcesConfig   `yaml:"sources"`
	Valuation ValuationConfig `yaml:"valuation"`
	Logging   LoggingConfig   `yaml:"logging"`

	// Env is populated from the process environment, never from YAML.
	Env EnvConfig `yaml:"-"`
}

type PathsConfig struct {
	MacroCSV       string `yaml:"macro_csv" default:"data/processed/macro_data.csv" validate:"required"`
	ModelPath      string `yaml:"model_path" default:"data/processed/var_model.yaml" validate:"required"`
	ScenariosPath  string `yaml:"scenarios_path" default:"data/processed/mc_paths.parquet" validate:"required"`
	ValuationsPath string `yaml:"valuations_path" default:"data/processed/valuations.parquet" validate:"required"`
	SentimentPath  string `yaml:"sentiment_path" default:"data/processed/fomc_sentiment.csv"`
	CatalogPath    string `yaml:"catalog_path" default:"data/series.json"`
}

// ScenarioConfig holds the generator options. Values mirror the reference run:
// five lags, no intercept, a 252 business-day horizon and a 250bp Fed Funds shock.
type ScenarioConfig struct {
	Columns        []string `yaml:"columns" validate:"required,min=1,dive,required"`
	MaxLag         int      `yaml:"max_lag" default:"5" validate:"gte=1"`
	Criterion      string   `yaml:"criterion" validate:"omitempty,oneof=aic bic hqic fpe"`
	Horizon        int      `yaml:"horizon" default:"252" validate:"gte=1"`
	ShockMagnitude float64  `yaml:"shock_magnitude" default:"2.5" validate:"gte=0"`
	ShockColumn    string   `yaml:"shock_column" default:"FedFunds" validate:"required"`
	// ReuseModel loads the persisted model instead of refitting when it matches Columns.
	ReuseModel bool `yaml:"reuse_model"`
}

// Series maps an output column name to an upstream identifier (FRED code or ticker).
type Series struct {
	Name string `yaml:"name" json:"name" validate:"required"`
	Code string `yaml:"code" json:"code" validate:"required"`
}

type SourcesConfig struct {
	FRED      []Series `yaml:"fred" validate:"dive"`
	Sectors   []Series `yaml:"sectors" validate:"dive"`
	Companies []string `yaml:"companies"`
	// Start is the first observation date requested, YYYY-MM-DD. Empty means provider default.
	Start     string `yaml:"start" validate:"omitempty,datetime=2006-01-02"`
	FREDURL   string `yaml:"fred_url" default:"https://api.stlouisfed.org"`
	YahooURL  string `yaml:"yahoo_url" default:"https://query1.finance.yahoo.com"`
	FOMCURL   string `yaml:"fomc_url" default:"https://www.federalreserve.gov"`
	RateLimit float64 `yaml:"rate_limit" default:"2" validate:"gt=0"`
}

type ValuationConfig struct {
	ERP           float64 `yaml:"erp" default:"0.05"`
	GrowthRate    float64 `yaml:"growth_rate" default:"0.03"`
	TerminalRate  float64 `yaml:"terminal_rate" default:"0.02"`
	ForecastYears int     `yaml:"forecast_years" default:"5" validate:"gte=1"`
	LastCashFlow  float64 `yaml:"last_cash_flow" default:"1000000" validate:"gt=0"`
	// RateScale converts percentage points in the scenario table into decimal rates.
	RateScale    float64           `yaml:"rate_scale" default:"100" validate:"gt=0"`
	RateColumn   string            `yaml:"rate_column" default:"FedFunds"`
	SpreadColumn string            `yaml:"spread_column" default:"HY_OAS"`
	SectorMap    map[string]string `yaml:"sector_map"`
	// DefaultSector is used for companies missing from SectorMap.
	DefaultSector string `yaml:"default_sector" default:"Consumer"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"console" validate:"oneof=json console"`
}

// EnvConfig is read with envconfig. Credentials only ever come from the environment.
type EnvConfig struct {
	FREDAPIKey string `envconfig:"FRED_API_KEY"`
	LogLevel   string `envconfig:"LOG_LEVEL"`
	APIPort    string `envconfig:"API_PORT" default:"8080"`
	APIEnv     string `envconfig:"API_ENV" default:"development"`
	StaticDir  string `envconfig:"STATIC_DIR" default:"./web/dist"`
	// AllowedOrigins is a comma separated CORS allow list. Empty allows any origin.
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS"`
}

var validate = validator.New()

// Default returns a configuration carrying every default plus the reference series set.
func Default() *Config {
	c := &Config{}
	if err := defaults.Set(c); err != nil {
		panic(err)
	}
	c.applyReferenceSources()
	return c
}

func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads config, applies defaults and environment, but does not validate it.
// Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	// Defaults go in first so an explicit zero in the file (shock_magnitude: 0) survives.
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	c.applyReferenceSources()
	c.resolvePaths(filepath.Dir(path))
	if err := c.LoadEnv(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadEnv populates c.Env from the process environment.
func (c *Config) LoadEnv() error {
	if err := envconfig.Process("", &c.Env); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}
	if c.Env.LogLevel != "" {
		c.Logging.Level = c.Env.LogLevel
	}
	return nil
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config invalid: %w", err)
	}
	if !slices.Contains(c.Scenario.Columns, c.Scenario.ShockColumn) {
		return fmt.Errorf("config invalid: scenario.shock_column %q: %w", c.Scenario.ShockColumn, model.ErrShockColumnMissing)
	}
	return nil
}

// RequireFREDKey returns the FRED API key or ErrMissingConfiguration.
func (c *Config) RequireFREDKey() (string, error) {
	if c.Env.FREDAPIKey == "" {
		return "", fmt.Errorf("FRED_API_KEY not set: %w", model.ErrMissingConfiguration)
	}
	return c.Env.FREDAPIKey, nil
}

// SectorFor returns the benchmark column used to compute a company's beta.
func (v ValuationConfig) SectorFor(company string) string {
	if s, ok := v.SectorMap[company]; ok && s != "" {
		return s
	}
	return v.DefaultSector
}

// applyReferenceSources fills empty sections with the reference series set.
func (c *Config) applyReferenceSources() {
	if len(c.Scenario.Columns) == 0 {
		c.Scenario.Columns = []string{"FedFunds", "HY_OAS", "Technology"}
	}
	if len(c.Sources.FRED) == 0 {
		c.Sources.FRED = []Series{
			{Name: "2Y_Treasury", Code: "DGS2"},
			{Name: "10Y_Treasury", Code: "DGS10"},
			{Name: "FedFunds", Code: "DFEDTARU"},
			{Name: "HY_OAS", Code: "BAMLH0A0HYM2"},
		}
	}
	if len(c.Sources.Sectors) == 0 {
		c.Sources.Sectors = []Series{
			{Name: "Technology", Code: "XLK"},
			{Name: "Consumer", Code: "XLY"},
			{Name: "Industrials", Code: "XLI"},
		}
	}
	if len(c.Sources.Companies) == 0 {
		c.Sources.Companies = []string{"AAPL", "MSFT", "GOOGL"}
	}
	if len(c.Valuation.SectorMap) == 0 {
		c.Valuation.SectorMap = map[string]string{
			"AAPL":  "Technology",
			"MSFT":  "Technology",
			"GOOGL": "Technology",
		}
	}
}

// resolvePaths interprets relative paths as relative to the config file directory
// when that location exists, and falls back to the path as given (relative to cwd).
func (c *Config) resolvePaths(base string) {
	for _, p := range []*string{
		&c.Paths.MacroCSV,
		&c.Paths.ModelPath,
		&c.Paths.ScenariosPath,
		&c.Paths.ValuationsPath,
		&c.Paths.SentimentPath,
		&c.Paths.CatalogPath,
	} {
		if *p == "" || filepath.IsAbs(*p) {
			continue
		}
		cand := filepath.Join(base, *p)
		if _, err := os.Stat(filepath.Dir(cand)); err == nil {
			*p = cand
		}
	}
}

// MergeScenario overlays non-zero fields from override onto base.
// Used by the API when a request tweaks a single run.
func MergeScenario(base, override ScenarioConfig) ScenarioConfig {
	out := base
	out.Columns = slices.Clone(base.Columns)
	if len(override.Columns) > 0 {
		out.Columns = slices.Clone(override.Columns)
	}
	if override.MaxLag != 0 {
		out.MaxLag = override.MaxLag
	}
	if override.Criterion != "" {
		out.Criterion = override.Criterion
	}
	if override.Horizon != 0 {
		out.Horizon = override.Horizon
	}
	// A zero shock is meaningful, so callers pass it through ShockMagnitude only when set.
	if override.ShockMagnitude != 0 {
		out.ShockMagnitude = override.ShockMagnitude
	}
	if override.ShockColumn != "" {
		out.ShockColumn = override.ShockColumn
	}
	return out
}
