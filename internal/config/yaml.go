package config

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Config is the complete xyntoro configuration. It is read from xyntoro.yaml,
// XYNTORO_* environment variables and flags through viper (see Load), and
// written back as YAML by `xyntoro config init`.
type Config struct {
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Auth     AuthConfig     `yaml:"auth" mapstructure:"auth"`
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	Storage  StorageConfig  `yaml:"storage" mapstructure:"storage"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	MCP      MCPConfig      `yaml:"mcp" mapstructure:"mcp"`
}

// ServerConfig controls the HTTP server behavior.
type ServerConfig struct {
	Host            string          `yaml:"host" mapstructure:"host"`
	Port            int             `yaml:"port" mapstructure:"port"`
	MaxBodySize     string          `yaml:"max_body_size" mapstructure:"max_body_size"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	StaticDir       string          `yaml:"static_dir" mapstructure:"static_dir"`
	CORS            CORSConfig      `yaml:"cors" mapstructure:"cors"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// CORSConfig controls cross-origin resource sharing settings.
type CORSConfig struct {
	Origins []string `yaml:"origins" mapstructure:"origins"`
}

// RateLimitConfig controls per-IP request limits. A zero Requests disables
// the global limit.
type RateLimitConfig struct {
	Requests       int           `yaml:"requests" mapstructure:"requests"`
	Window         time.Duration `yaml:"window" mapstructure:"window"`
	LoginPerMinute int           `yaml:"login_per_minute" mapstructure:"login_per_minute"`
}

// AuthConfig controls session tokens and the session cookie.
type AuthConfig struct {
	JWTSecret    string        `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	TokenTTL     time.Duration `yaml:"token_ttl" mapstructure:"token_ttl"`
	CookieName   string        `yaml:"cookie_name" mapstructure:"cookie_name"`
	CookieSecure bool          `yaml:"cookie_secure" mapstructure:"cookie_secure"`
}

// DatabaseConfig controls the single shared database connection.
type DatabaseConfig struct {
	URI             string        `yaml:"uri" mapstructure:"uri"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// StorageConfig selects where uploaded team pictures are kept.
type StorageConfig struct {
	Backend string             `yaml:"backend" mapstructure:"backend"` // local or s3
	Local   LocalStorageConfig `yaml:"local" mapstructure:"local"`
	S3      S3StorageConfig    `yaml:"s3" mapstructure:"s3"`
}

// LocalStorageConfig stores uploads on disk and serves them under /uploads/.
type LocalStorageConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// S3StorageConfig stores uploads in an S3 bucket or S3-compatible service.
type S3StorageConfig struct {
	Bucket          string `yaml:"bucket" mapstructure:"bucket"`
	Region          string `yaml:"region" mapstructure:"region"`
	Endpoint        string `yaml:"endpoint" mapstructure:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id" mapstructure:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" mapstructure:"secret_access_key"`
	UsePathStyle    bool   `yaml:"use_path_style" mapstructure:"use_path_style"`
	Prefix          string `yaml:"prefix" mapstructure:"prefix"`
	PublicURL       string `yaml:"public_url" mapstructure:"public_url"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// MCPConfig controls the MCP (Model Context Protocol) server.
type MCPConfig struct {
	Transport string `yaml:"transport" mapstructure:"transport"`
}

// Default returns a Config pre-filled with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            5000,
			MaxBodySize:     "10MB",
			ShutdownTimeout: 30 * time.Second,
			CORS: CORSConfig{
				Origins: []string{"http://localhost:5173"},
			},
			RateLimit: RateLimitConfig{
				Requests:       100,
				Window:         15 * time.Minute,
				LoginPerMinute: 10,
			},
		},
		Auth: AuthConfig{
			TokenTTL:   24 * time.Hour,
			CookieName: "token",
		},
		Database: DatabaseConfig{
			ConnectTimeout:  10 * time.Second,
			IdleTimeout:     30 * time.Second,
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Storage: StorageConfig{
			Backend: "local",
			Local:   LocalStorageConfig{Dir: "uploads"},
			S3:      S3StorageConfig{Region: "us-east-1", Prefix: "team/"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		MCP: MCPConfig{
			Transport: "stdio",
		},
	}
}

// LoadFile reads and parses a YAML configuration file on top of Default.
// Environment variables referenced as ${VAR_NAME} in the file are expanded
// before parsing.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	content := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// WriteDefault writes the default configuration to a YAML file.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	header := "# xyntoro configuration\n" +
		"# Secrets are better supplied as XYNTORO_AUTH_JWT_SECRET and XYNTORO_DATABASE_URI.\n"
	return os.WriteFile(path, append([]byte(header), data...), 0o644)
}

// ParseSize converts a human size such as "10MB", "512KiB" or "1048576" into
// bytes. KB, MB and GB are decimal units; KiB, MiB and GiB are binary. The
// result must be positive and fit in an int64.
func ParseSize(s string) (int64, error) {
	n, err := humanize.ParseBytes(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n == 0 || n > math.MaxInt64 {
		return 0, fmt.Errorf("invalid size %q: out of range", s)
	}
	return int64(n), nil
}
