package platform

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/txn2/mcp-vnstock/pkg/handler"
	"github.com/txn2/mcp-vnstock/pkg/registry"
	"github.com/txn2/mcp-vnstock/pkg/tables"
	"github.com/txn2/mcp-vnstock/pkg/vnstock"
)

// Transports.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Config holds the server configuration.
type Config struct {
	Server   ServerConfig          `yaml:"server"`
	VNStock  VNStockConfig         `yaml:"vnstock"`
	Tables   registry.LoaderConfig `yaml:"tables"`
	Database DatabaseConfig        `yaml:"database"`
	Audit    AuditConfig           `yaml:"audit"`
	Logging  LoggingConfig         `yaml:"logging"`
	Metrics  MetricsConfig         `yaml:"metrics"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Name              string         `yaml:"name"`
	Version           string         `yaml:"version"`
	Description       string         `yaml:"description"`
	Tags              []string       `yaml:"tags"`
	AgentInstructions string         `yaml:"agent_instructions"`
	Prompts           []PromptConfig `yaml:"prompts"`
	Transport         string         `yaml:"transport"` // "stdio", "http"
	Address           string         `yaml:"address"`
	ShutdownTimeout   time.Duration  `yaml:"shutdown_timeout"`
}

// PromptConfig defines a server-level MCP prompt.
type PromptConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Content     string `yaml:"content"`
}

// VNStockConfig configures the vnstock handler.
type VNStockConfig struct {
	// Name is the handler name, also accepted as a table qualifier.
	Name string `yaml:"name"`

	handler.ConnectionData `yaml:",inline"`
}

// DatabaseConfig configures the audit database connection.
type DatabaseConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`

	// SkipMigrations leaves the schema alone on startup.
	SkipMigrations bool `yaml:"skip_migrations"`
}

// AuditConfig configures query audit logging.
type AuditConfig struct {
	Enabled         bool          `yaml:"enabled"`
	RetentionDays   int           `yaml:"retention_days"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	// #nosec G304 -- path is from CLI args, controlled by admin
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML configuration, expanding ${VAR} references from
// the environment and applying defaults.
func ParseConfig(data []byte) (*Config, error) {
	data = []byte(expandEnvVars(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} with the value of VAR. Unset variables
// expand to the empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Name == "" {
		cfg.Server.Name = "mcp-vnstock"
	}
	if cfg.Server.Transport == "" {
		cfg.Server.Transport = TransportStdio
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.VNStock.Name == "" {
		cfg.VNStock.Name = handler.DefaultName
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Audit.RetentionDays == 0 {
		cfg.Audit.RetentionDays = 90
	}
	if cfg.Audit.CleanupInterval == 0 {
		cfg.Audit.CleanupInterval = 24 * time.Hour
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	switch c.Server.Transport {
	case TransportStdio, TransportHTTP:
	default:
		errs = append(errs, fmt.Sprintf("server.transport must be %q or %q, got %q", TransportStdio, TransportHTTP, c.Server.Transport))
	}

	for i, p := range c.Server.Prompts {
		if p.Name == "" {
			errs = append(errs, fmt.Sprintf("server.prompts[%d].name is required", i))
		}
	}

	if c.VNStock.BaseURL == "" {
		errs = append(errs, "vnstock.base_url is required")
	}
	if c.VNStock.RateLimit < 0 {
		errs = append(errs, "vnstock.rate_limit must not be negative")
	}

	errs = append(errs, validateTables(c.Tables)...)

	if c.Audit.RetentionDays < 0 {
		errs = append(errs, "audit.retention_days must not be negative")
	}
	if c.Audit.CleanupInterval < 0 {
		errs = append(errs, "audit.cleanup_interval must not be negative")
	}
	if c.Server.ShutdownTimeout < 0 {
		errs = append(errs, "server.shutdown_timeout must not be negative")
	}

	if _, err := parseLevel(c.Logging.Level); err != nil {
		errs = append(errs, "logging.level: "+err.Error())
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		errs = append(errs, fmt.Sprintf("logging.format must be json or text, got %q", c.Logging.Format))
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = append(errs, "metrics.path must start with /")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateTables(cfg registry.LoaderConfig) []string {
	families := make(map[string]bool)
	for _, f := range tables.Families() {
		families[string(f)] = true
	}

	var errs []string
	for name, t := range cfg.Extra {
		if !families[t.Family] {
			errs = append(errs, fmt.Sprintf("tables.extra.%s: unknown family %q", name, t.Family))
		}
		if _, err := vnstock.ParseResource(t.Resource); err != nil {
			errs = append(errs, fmt.Sprintf("tables.extra.%s: unknown resource %q", name, t.Resource))
		}
	}
	sort.Strings(errs)
	return errs
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("unknown level %q", s)
	}
	return level, nil
}
