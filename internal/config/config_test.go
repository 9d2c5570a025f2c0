package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	BindEnv(v)
	return v
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(newViper())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Errorf("TokenTTL = %v, want 24h", cfg.Auth.TokenTTL)
	}
	if cfg.Auth.CookieName != "token" {
		t.Errorf("CookieName = %q, want token", cfg.Auth.CookieName)
	}
	if cfg.Server.RateLimit.Requests != 100 || cfg.Server.RateLimit.Window != 15*time.Minute {
		t.Errorf("rate limit = %+v", cfg.Server.RateLimit)
	}
	if cfg.Database.URI != "" {
		t.Errorf("database URI should default to empty, got %q", cfg.Database.URI)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("XYNTORO_AUTH_JWT_SECRET", "s3cret")
	t.Setenv("XYNTORO_DATABASE_URI", " sqlite://site.db ")
	t.Setenv("XYNTORO_DATABASE_CONNECT_TIMEOUT", "3s")
	t.Setenv("XYNTORO_SERVER_PORT", "9090")

	cfg, err := Load(newViper())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Auth.JWTSecret != "s3cret" {
		t.Errorf("JWTSecret = %q", cfg.Auth.JWTSecret)
	}
	if cfg.Database.URI != "sqlite://site.db" {
		t.Errorf("URI = %q", cfg.Database.URI)
	}
	if cfg.Database.ConnectTimeout != 3*time.Second {
		t.Errorf("ConnectTimeout = %v", cfg.Database.ConnectTimeout)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d", cfg.Server.Port)
	}
}

func TestLoadFromYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xyntoro.yaml")
	data := "auth:\n  jwt_secret: from-file\n  token_ttl: 2h\nstorage:\n  backend: s3\n  s3:\n    bucket: pics\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig: %v", err)
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Auth.JWTSecret != "from-file" || cfg.Auth.TokenTTL != 2*time.Hour {
		t.Errorf("auth = %+v", cfg.Auth)
	}
	if cfg.Storage.Backend != "s3" || cfg.Storage.S3.Bucket != "pics" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid without database", func(c *Config) {}, nil},
		{"missing secret", func(c *Config) { c.Auth.JWTSecret = "" }, ErrMissingJWTSecret},
		{"bad storage backend", func(c *Config) { c.Storage.Backend = "ftp" }, ErrInvalidConfig},
		{"s3 without bucket", func(c *Config) { c.Storage.Backend = "s3" }, ErrInvalidConfig},
		{"bad body size", func(c *Config) { c.Server.MaxBodySize = "lots" }, ErrInvalidConfig},
		{"zero ttl", func(c *Config) { c.Auth.TokenTTL = 0 }, ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Auth.JWTSecret = "secret"
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseSize(t *testing.T) {
	tests := map[string]int64{
		"10MB":      10_000_000,
		"10MiB":     10 << 20,
		"512kib":    512 << 10,
		"1GiB":      1 << 30,
		"2048":      2048,
		" 64 KB ":   64_000,
		"1,048,576": 1 << 20,
	}
	for in, want := range tests {
		got, err := ParseSize(in)
		if err != nil {
			t.Errorf("ParseSize(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseSize(%q) = %d, want %d", in, got, want)
		}
	}

	for _, in := range []string{"-1MB", "0", "lots", "", "17179869184GB", "9223372036854775808", "16EiB"} {
		if got, err := ParseSize(in); err == nil {
			t.Errorf("ParseSize(%q) = %d, want error", in, got)
		}
	}
}

func TestValidateRejectsOverflowingBodySize(t *testing.T) {
	cfg := Default()
	cfg.Auth.JWTSecret = "secret"
	cfg.Server.MaxBodySize = "17179869184GB"
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
	}
}

func TestMaskedHidesSecrets(t *testing.T) {
	cfg := Default()
	cfg.Auth.JWTSecret = "topsecret"
	cfg.Database.URI = "postgres://site:hunter2@db:5432/xyntoro"
	cfg.Storage.S3.SecretAccessKey = "aws-secret"

	out := cfg.Masked()
	for _, s := range []string{out.Auth.JWTSecret, out.Database.URI, out.Storage.S3.SecretAccessKey} {
		if strings.Contains(s, "topsecret") || strings.Contains(s, "hunter2") || strings.Contains(s, "aws-secret") {
			t.Errorf("secret leaked: %q", s)
		}
	}
	if !strings.HasPrefix(out.Database.URI, "postgres://site:") {
		t.Errorf("URI = %q", out.Database.URI)
	}
	if cfg.Auth.JWTSecret != "topsecret" {
		t.Error("Masked must not modify the original")
	}
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xyntoro.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second || cfg.Auth.CookieName != "token" {
		t.Errorf("defaults not preserved: %+v", cfg)
	}
}
