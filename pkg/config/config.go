package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the extraction pipeline
type Config struct {
	// Source database connection
	Database DatabaseConfig `yaml:"database" json:"database"`

	// Extraction query and time range
	Extraction ExtractionConfig `yaml:"extraction" json:"extraction"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Resume policy for an existing checkpoint
	Resume ResumeConfig `yaml:"resume" json:"resume"`

	// Retry behavior for transient fetch failures
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// DatabaseConfig describes the source database connection
type DatabaseConfig struct {
	Driver   string `yaml:"driver" json:"driver"` // postgres, sqlserver, sqlite3
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"password"`
	Name     string `yaml:"name" json:"name"`
	SSLMode  string `yaml:"ssl_mode" json:"ssl_mode"`
	// Path is the database file for the sqlite3 driver
	Path string `yaml:"path" json:"path"`
}

// ExtractionConfig holds the query template and windowing parameters
type ExtractionConfig struct {
	// Query must contain {start} and {end} placeholders
	Query string `yaml:"query" json:"query"`
	// Start and End bound the overall range, half-open [Start, End)
	Start time.Time `yaml:"start" json:"start"`
	End   time.Time `yaml:"end" json:"end"`
	// FetchGranularity is the size of one fetch window
	FetchGranularity time.Duration `yaml:"fetch_granularity" json:"fetch_granularity"`
	// Aggregation groups windows into output files: daily, weekly or monthly
	Aggregation string `yaml:"aggregation" json:"aggregation"`
}

// OutputConfig holds save location and format settings
type OutputConfig struct {
	Directory string `yaml:"directory" json:"directory"`
	Format    string `yaml:"format" json:"format"` // gob, csv, xlsx
	BaseName  string `yaml:"base_name" json:"base_name"`
}

// ResumeConfig holds the caller's reconciliation decisions
type ResumeConfig struct {
	// Policy is one of continue, overwrite, abort
	Policy string `yaml:"policy" json:"policy"`
	// AdvanceOnEmpty moves the completion marker past windows that return
	// zero rows. Off by default: an empty window is retried on resume.
	AdvanceOnEmpty bool `yaml:"advance_on_empty" json:"advance_on_empty"`
	// ClearOnComplete removes the checkpoint once the full range finishes.
	// When false the completion marker is retained, making a re-run of the
	// same range a no-op.
	ClearOnComplete bool `yaml:"clear_on_complete" json:"clear_on_complete"`
	// CheckpointBackend selects the checkpoint store: file or sqlite
	CheckpointBackend string `yaml:"checkpoint_backend" json:"checkpoint_backend"`
}

// RetryConfig holds retry behavior for fetch operations
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:  "postgres",
			Host:    "localhost",
			Port:    5432,
			SSLMode: "require",
		},
		Extraction: ExtractionConfig{
			FetchGranularity: time.Hour,
			Aggregation:      "daily",
		},
		Output: OutputConfig{
			Directory: "data_output",
			Format:    "gob",
			BaseName:  "data",
		},
		Resume: ResumeConfig{
			Policy:            "continue",
			AdvanceOnEmpty:    false,
			ClearOnComplete:   true,
			CheckpointBackend: "file",
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			MaxDelay:    30 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if driver := os.Getenv("DBEXTRACT_DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if host := os.Getenv("DBEXTRACT_DB_HOST"); host != "" {
		c.Database.Host = host
	}
	if port := os.Getenv("DBEXTRACT_DB_PORT"); port != "" {
		var val int
		fmt.Sscanf(port, "%d", &val)
		if val > 0 {
			c.Database.Port = val
		}
	}
	if user := os.Getenv("DBEXTRACT_DB_USER"); user != "" {
		c.Database.User = user
	}
	if password := os.Getenv("DBEXTRACT_DB_PASSWORD"); password != "" {
		c.Database.Password = password
	}
	if name := os.Getenv("DBEXTRACT_DB_NAME"); name != "" {
		c.Database.Name = name
	}
	if dir := os.Getenv("DBEXTRACT_OUTPUT_DIR"); dir != "" {
		c.Output.Directory = dir
	}
	if format := os.Getenv("DBEXTRACT_OUTPUT_FORMAT"); format != "" {
		c.Output.Format = format
	}
	if policy := os.Getenv("DBEXTRACT_RESUME_POLICY"); policy != "" {
		c.Resume.Policy = policy
	}
	if logLevel := os.Getenv("DBEXTRACT_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".dbextract.yaml",
		".dbextract.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "dbextract", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "dbextract", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".dbextract.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	validDrivers := map[string]bool{
		"postgres": true, "sqlserver": true, "sqlite3": true,
	}
	if !validDrivers[c.Database.Driver] {
		errs = append(errs, fmt.Errorf("unsupported database driver: %s", c.Database.Driver))
	}
	if c.Database.Driver == "sqlite3" {
		if c.Database.Path == "" {
			errs = append(errs, errors.New("database path is required for the sqlite3 driver"))
		}
	} else {
		if c.Database.Host == "" {
			errs = append(errs, errors.New("database host is required"))
		}
		if c.Database.Name == "" {
			errs = append(errs, errors.New("database name is required"))
		}
	}

	if c.Extraction.Query == "" {
		errs = append(errs, errors.New("extraction query is required"))
	} else {
		if !strings.Contains(c.Extraction.Query, "{start}") || !strings.Contains(c.Extraction.Query, "{end}") {
			errs = append(errs, errors.New("extraction query must contain {start} and {end} placeholders"))
		}
	}
	if c.Extraction.Start.IsZero() {
		errs = append(errs, errors.New("extraction start time is required"))
	}
	if c.Extraction.End.IsZero() {
		errs = append(errs, errors.New("extraction end time is required"))
	}
	if c.Extraction.FetchGranularity <= 0 {
		errs = append(errs, errors.New("fetch granularity must be positive"))
	}

	validAggregations := map[string]bool{
		"daily": true, "weekly": true, "monthly": true,
	}
	if !validAggregations[strings.ToLower(c.Extraction.Aggregation)] {
		errs = append(errs, fmt.Errorf("unsupported aggregation granularity: %s", c.Extraction.Aggregation))
	}

	if c.Output.Directory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	validFormats := map[string]bool{
		"gob": true, "csv": true, "xlsx": true,
	}
	if !validFormats[strings.ToLower(c.Output.Format)] {
		errs = append(errs, fmt.Errorf("unsupported output format: %s", c.Output.Format))
	}
	if c.Output.BaseName == "" {
		errs = append(errs, errors.New("output base name is required"))
	}

	validPolicies := map[string]bool{
		"continue": true, "overwrite": true, "abort": true,
	}
	if !validPolicies[strings.ToLower(c.Resume.Policy)] {
		errs = append(errs, fmt.Errorf("invalid resume policy: %s", c.Resume.Policy))
	}
	validBackends := map[string]bool{
		"file": true, "sqlite": true,
	}
	if !validBackends[strings.ToLower(c.Resume.CheckpointBackend)] {
		errs = append(errs, fmt.Errorf("invalid checkpoint backend: %s", c.Resume.CheckpointBackend))
	}

	if c.Retry.MaxAttempts < 0 {
		errs = append(errs, errors.New("max retry attempts cannot be negative"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// DSN builds the driver-specific connection string
func (c *DatabaseConfig) DSN() string {
	switch c.Driver {
	case "postgres":
		sslMode := c.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, sslMode)
	case "sqlserver":
		return fmt.Sprintf("server=%s;port=%d;user id=%s;password=%s;database=%s",
			c.Host, c.Port, c.User, c.Password, c.Name)
	case "sqlite3":
		return c.Path
	default:
		return ""
	}
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if dir, ok := flags["output"].(string); ok && dir != "" {
		c.Output.Directory = dir
	}
	if format, ok := flags["format"].(string); ok && format != "" {
		c.Output.Format = format
	}
	if policy, ok := flags["policy"].(string); ok && policy != "" {
		c.Resume.Policy = policy
	}
	if query, ok := flags["query"].(string); ok && query != "" {
		c.Extraction.Query = query
	}
	if start, ok := flags["start"].(time.Time); ok && !start.IsZero() {
		c.Extraction.Start = start
	}
	if end, ok := flags["end"].(time.Time); ok && !end.IsZero() {
		c.Extraction.End = end
	}
	if gran, ok := flags["fetch-granularity"].(time.Duration); ok && gran > 0 {
		c.Extraction.FetchGranularity = gran
	}
	if agg, ok := flags["aggregation"].(string); ok && agg != "" {
		c.Extraction.Aggregation = agg
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".dbextract.env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	config.MergeCommandLineFlags(flags)

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
