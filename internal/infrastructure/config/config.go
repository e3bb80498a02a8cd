package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/catsync/backend/internal/domain/catalog"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Log      LogConfig
	Feed     FeedConfig
	Policies PolicyConfig
	Catalog  CatalogConfig
	Writer   WriterConfig
	Rules    RulesConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// FeedConfig holds feed-source settings
type FeedConfig struct {
	BaseURL               string
	TimeoutSeconds        int
	RequestsPerSecond     int
	DefaultRowsPerRequest int
	RowsPerRequest        map[string]int // per-data-group page size overrides
	ExtraHeaderRows       int            // header rows repeated on pages after the first
	HeaderOnce            bool           // source emits the header only once per stream
	ExtraFields           []string
	Fields                map[string]string // semantic role -> header name bindings
}

// RowsPerRequestFor returns the configured page size override for a data
// group, or 0 when none is set.
func (f *FeedConfig) RowsPerRequestFor(group string) int {
	if n, ok := f.RowsPerRequest[strings.ToLower(group)]; ok {
		return n
	}
	return 0
}

// PolicyConfig holds the boolean policies that tune pipeline behavior
type PolicyConfig struct {
	IgnoreStockInPriceRange bool
	UseAverageChildRating   bool
	AllowMissingPhotos      bool
	MapStockToVisibility    bool
	InvertVisibility        bool
	AllowExtraRows          bool
	AllowLowerCount         map[string]bool // per data group
	IncludeChildren         bool
}

// AllowsLowerCount reports whether the data group tolerates receiving fewer
// rows than the server-reported count.
func (p *PolicyConfig) AllowsLowerCount(group string) bool {
	return p.AllowLowerCount[strings.ToLower(group)]
}

// AltField appends an extra named output column read directly off the row.
type AltField struct {
	Name  string
	Field string
}

// CatalogConfig holds catalog-level settings
type CatalogConfig struct {
	MinSize           int
	HiddenSalePrice   string // sentinel emitted when a sale price exists but must not be shown
	UniversalFilter   string
	CategorySeparator string
	Destination       string
	AltFields         []AltField
}

// WriterConfig holds the persisted-table writer settings
type WriterConfig struct {
	Driver       string // sqlite or postgres
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// RulesConfig points at the external rule-set file
type RulesConfig struct {
	Path string
}

// Load reads configuration from file and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with CATSYNC_ prefix (e.g., CATSYNC_WRITER_DSN)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("CATSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Feed: FeedConfig{
			BaseURL:               v.GetString("feed.base_url"),
			TimeoutSeconds:        v.GetInt("feed.timeout_seconds"),
			RequestsPerSecond:     v.GetInt("feed.requests_per_second"),
			DefaultRowsPerRequest: v.GetInt("feed.default_rows_per_request"),
			RowsPerRequest:        lowerKeysInt(v.GetStringMapString("feed.rows_per_request")),
			ExtraHeaderRows:       v.GetInt("feed.extra_header_rows"),
			HeaderOnce:            v.GetBool("feed.header_once"),
			ExtraFields:           v.GetStringSlice("feed.extra_fields"),
			Fields:                v.GetStringMapString("feed.fields"),
		},
		Policies: PolicyConfig{
			IgnoreStockInPriceRange: v.GetBool("policies.ignore_stock_in_price_range"),
			UseAverageChildRating:   v.GetBool("policies.use_average_child_rating"),
			AllowMissingPhotos:      v.GetBool("policies.allow_missing_photos"),
			MapStockToVisibility:    v.GetBool("policies.map_stock_to_visibility"),
			InvertVisibility:        v.GetBool("policies.invert_visibility"),
			AllowExtraRows:          v.GetBool("policies.allow_extra_rows"),
			AllowLowerCount:         lowerKeysBool(v.GetStringMapString("policies.allow_lower_count")),
			IncludeChildren:         v.GetBool("policies.include_children"),
		},
		Catalog: CatalogConfig{
			MinSize:           v.GetInt("catalog.min_size"),
			HiddenSalePrice:   v.GetString("catalog.hidden_sale_price"),
			UniversalFilter:   v.GetString("catalog.universal_filter"),
			CategorySeparator: v.GetString("catalog.category_separator"),
			Destination:       v.GetString("catalog.destination"),
			AltFields:         altFields(v.GetStringMapString("catalog.alt_fields")),
		},
		Writer: WriterConfig{
			Driver:       v.GetString("writer.driver"),
			DSN:          v.GetString("writer.dsn"),
			MaxOpenConns: v.GetInt("writer.max_open_conns"),
			MaxIdleConns: v.GetInt("writer.max_idle_conns"),
		},
		Rules: RulesConfig{
			Path: v.GetString("rules.path"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults registers the built-in defaults
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "catsync")
	v.SetDefault("app.env", "development")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("feed.timeout_seconds", 60)
	v.SetDefault("feed.requests_per_second", 2)
	v.SetDefault("feed.default_rows_per_request", 1000)
	v.SetDefault("feed.extra_header_rows", 0)
	v.SetDefault("catalog.min_size", 1)
	v.SetDefault("catalog.hidden_sale_price", "-")
	v.SetDefault("catalog.universal_filter", "All")
	v.SetDefault("catalog.category_separator", ",")
	v.SetDefault("catalog.destination", "catalog")
	v.SetDefault("writer.driver", "sqlite")
	v.SetDefault("writer.dsn", "catsync.db")
	v.SetDefault("writer.max_open_conns", 5)
	v.SetDefault("writer.max_idle_conns", 2)
}

// validate checks the configuration for invalid combinations
func (c *Config) validate() error {
	switch c.Writer.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("writer.driver must be 'sqlite' or 'postgres', got %q", c.Writer.Driver)
	}
	if c.Writer.MaxOpenConns <= 0 {
		return fmt.Errorf("writer.max_open_conns must be positive")
	}
	if c.Writer.MaxIdleConns < 0 {
		return fmt.Errorf("writer.max_idle_conns cannot be negative")
	}
	if c.Writer.MaxIdleConns > c.Writer.MaxOpenConns {
		return fmt.Errorf("writer.max_idle_conns (%d) cannot exceed writer.max_open_conns (%d)",
			c.Writer.MaxIdleConns, c.Writer.MaxOpenConns)
	}
	if c.Feed.RequestsPerSecond <= 0 {
		return fmt.Errorf("feed.requests_per_second must be positive")
	}
	if c.Feed.TimeoutSeconds <= 0 {
		return fmt.Errorf("feed.timeout_seconds must be positive")
	}
	if c.Catalog.MinSize < 0 {
		return fmt.Errorf("catalog.min_size cannot be negative")
	}
	if c.App.Env == "production" && c.Feed.BaseURL == "" {
		return fmt.Errorf("feed.base_url is required in production")
	}
	return nil
}

// LoadRules reads the rule-set file referenced by rules.path. A missing path
// yields an empty rule set.
func LoadRules(path string) (*catalog.RuleSet, error) {
	rules := &catalog.RuleSet{}
	if path == "" {
		return rules, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading rules file %s: %w", path, err)
	}
	if err := v.Unmarshal(rules); err != nil {
		return nil, fmt.Errorf("error parsing rules file %s: %w", path, err)
	}
	return rules, nil
}

// lowerKeysInt normalizes map keys to lower case and parses values as ints
func lowerKeysInt(in map[string]string) map[string]int {
	out := make(map[string]int, len(in))
	for k, raw := range in {
		var n int
		if _, err := fmt.Sscanf(raw, "%d", &n); err == nil {
			out[strings.ToLower(k)] = n
		}
	}
	return out
}

// lowerKeysBool normalizes map keys to lower case and parses values as bools
func lowerKeysBool(in map[string]string) map[string]bool {
	out := make(map[string]bool, len(in))
	for k, raw := range in {
		out[strings.ToLower(k)] = strings.EqualFold(raw, "true") || raw == "1"
	}
	return out
}

// altFields converts the configured name->field map into ordered AltField
// entries
func altFields(in map[string]string) []AltField {
	out := make([]AltField, 0, len(in))
	for name, field := range in {
		out = append(out, AltField{Name: name, Field: field})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
