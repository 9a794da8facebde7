package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the careatlas API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Storage   StorageConfig   `yaml:"storage"`
	Places    PlacesConfig    `yaml:"places"`
	Geodata   GeodataConfig   `yaml:"geodata"`
	Search    SearchConfig    `yaml:"search"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Usage     UsageConfig     `yaml:"usage"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeoutSec  int      `yaml:"read_timeout_sec"`
	WriteTimeoutSec int      `yaml:"write_timeout_sec"`
	ShutdownSec     int      `yaml:"shutdown_timeout_sec"`
	CORSOrigins     []string `yaml:"cors_origins"`
}

// DatabaseConfig holds Redis connection settings for the places cache and usage ledger.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	CommandTimeoutMS int      `yaml:"command_timeout_ms"`
}

// PostgresConfig holds the analytics database settings. Empty DSN disables it.
type PostgresConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// PlacesConfig holds the remote places API settings.
type PlacesConfig struct {
	APIKey           string             `yaml:"api_key"`
	BaseURL          string             `yaml:"base_url"`
	TimeoutSec       int                `yaml:"timeout_sec"`
	CacheTTLHours    int                `yaml:"cache_ttl_hours"`
	DetailsTTLHours  int                `yaml:"details_ttl_hours"`
	NearbyCacheLimit int                `yaml:"nearby_cache_limit"`
	Costs            map[string]float64 `yaml:"costs"` // USD per call, keyed by endpoint
}

// GeodataConfig holds the public geodata (Overpass + Nominatim) settings.
type GeodataConfig struct {
	OverpassURL  string `yaml:"overpass_url"`
	NominatimURL string `yaml:"nominatim_url"`
	UserAgent    string `yaml:"user_agent"`
	TimeoutSec   int    `yaml:"timeout_sec"`
	MaxResults   int    `yaml:"max_results"`
}

// SearchConfig holds hybrid pipeline settings.
type SearchConfig struct {
	DefaultRadiusMeters float64 `yaml:"default_radius_meters"`
	DefaultMaxResults   int     `yaml:"default_max_results"`
	MaxResultsLimit     int     `yaml:"max_results_limit"`
	DedupPrefixLen      int     `yaml:"dedup_prefix_len"`
	SourceTimeoutSec    int     `yaml:"source_timeout_sec"`
}

// AnalyticsConfig holds search analytics sink settings.
type AnalyticsConfig struct {
	Sink            string `yaml:"sink"` // log, postgres (default: log)
	QueueSize       int    `yaml:"queue_size"`
	FlushTimeoutSec int    `yaml:"flush_timeout_sec"`
}

// UsageConfig holds API usage ledger settings.
type UsageConfig struct {
	Provider string `yaml:"provider"`
	TTLDays  int    `yaml:"ttl_days"`
}

// Load reads configuration from a YAML file by environment name (local, dev, docker, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse expands env variables in raw YAML, decodes, defaults and validates it.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// DefaultCosts returns the per-call cost estimates of the places API in USD.
func DefaultCosts() map[string]float64 {
	return map[string]float64{
		"text_search":   0.032,
		"nearby_search": 0.032,
		"place_details": 0.017,
		"autocomplete":  0.00283,
		"default":       0.032,
	}
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.CommandTimeoutMS <= 0 {
		c.Database.CommandTimeoutMS = 500
	}
	if c.Postgres.MaxOpenConns <= 0 {
		c.Postgres.MaxOpenConns = 10
	}
	if c.Postgres.MaxIdleConns <= 0 {
		c.Postgres.MaxIdleConns = 2
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "careatlas:"
	}
	c.applyPlacesDefaults()
	c.applyGeodataDefaults()
	c.applySearchDefaults()
	if c.Analytics.Sink == "" {
		c.Analytics.Sink = "log"
	}
	if c.Analytics.QueueSize <= 0 {
		c.Analytics.QueueSize = 256
	}
	if c.Analytics.FlushTimeoutSec <= 0 {
		c.Analytics.FlushTimeoutSec = 5
	}
	if c.Usage.Provider == "" {
		c.Usage.Provider = "google_places"
	}
	if c.Usage.TTLDays <= 0 {
		c.Usage.TTLDays = 90
	}
}

func (c *Config) applyPlacesDefaults() {
	if c.Places.BaseURL == "" {
		c.Places.BaseURL = "https://maps.googleapis.com/maps/api/place"
	}
	if c.Places.TimeoutSec <= 0 {
		c.Places.TimeoutSec = 8
	}
	if c.Places.CacheTTLHours <= 0 {
		c.Places.CacheTTLHours = 24
	}
	if c.Places.DetailsTTLHours <= 0 {
		c.Places.DetailsTTLHours = 24 * 7
	}
	if c.Places.NearbyCacheLimit <= 0 {
		c.Places.NearbyCacheLimit = 10
	}
	costs := DefaultCosts()
	for k, v := range c.Places.Costs {
		costs[k] = v
	}
	c.Places.Costs = costs
}

func (c *Config) applyGeodataDefaults() {
	if c.Geodata.OverpassURL == "" {
		c.Geodata.OverpassURL = "https://overpass-api.de/api/interpreter"
	}
	if c.Geodata.NominatimURL == "" {
		c.Geodata.NominatimURL = "https://nominatim.openstreetmap.org"
	}
	if c.Geodata.UserAgent == "" {
		c.Geodata.UserAgent = "careatlas/1.0 (autism services directory)"
	}
	if c.Geodata.TimeoutSec <= 0 {
		c.Geodata.TimeoutSec = 8
	}
	if c.Geodata.MaxResults <= 0 {
		c.Geodata.MaxResults = 50
	}
}

func (c *Config) applySearchDefaults() {
	if c.Search.DefaultRadiusMeters <= 0 {
		c.Search.DefaultRadiusMeters = 50000
	}
	if c.Search.DefaultMaxResults <= 0 {
		c.Search.DefaultMaxResults = 50
	}
	if c.Search.MaxResultsLimit <= 0 {
		c.Search.MaxResultsLimit = 200
	}
	if c.Search.DedupPrefixLen <= 0 {
		c.Search.DedupPrefixLen = 20
	}
	if c.Search.SourceTimeoutSec <= 0 {
		c.Search.SourceTimeoutSec = 8
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	switch c.Analytics.Sink {
	case "", "log":
	case "postgres":
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is required when analytics.sink is \"postgres\"")
		}
	default:
		return fmt.Errorf("analytics.sink must be \"log\" or \"postgres\", got %q", c.Analytics.Sink)
	}
	if c.Search.DefaultMaxResults > c.Search.MaxResultsLimit {
		return fmt.Errorf("search.default_max_results (%d) exceeds search.max_results_limit (%d)",
			c.Search.DefaultMaxResults, c.Search.MaxResultsLimit)
	}
	for endpoint, cost := range c.Places.Costs {
		if cost < 0 {
			return fmt.Errorf("places.costs.%s must not be negative, got %v", endpoint, cost)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
