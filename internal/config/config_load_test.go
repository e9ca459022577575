package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// resetFlags gives each test a fresh flag set and viper instance
func resetFlags() {
	pflag.CommandLine = pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	viper.Reset()
}

var envVars = []string{
	"EXPEDIENTE_MODE", "EXPEDIENTE_HOST", "EXPEDIENTE_PORT", "EXPEDIENTE_COEFFICIENTS",
	"EXPEDIENTE_RULES", "EXPEDIENTE_CATALOGDB", "EXPEDIENTE_DOCROOT", "EXPEDIENTE_LOGLEVEL", "EXPEDIENTE_MAXFILESIZE",
}

// cleanEnv unsets every override for the duration of the test
func cleanEnv(t *testing.T) {
	t.Helper()
	for _, name := range envVars {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

// withArgs runs LoadFromFlags with the given command line
func withArgs(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	originalArgs := os.Args
	t.Cleanup(func() {
		os.Args = originalArgs
		resetFlags()
	})

	os.Args = append([]string{"expediente-fusion"}, args...)
	resetFlags()
	return LoadFromFlags()
}

func TestLoadFromFlags_DefaultConfig(t *testing.T) {
	cleanEnv(t)
	cfg, err := withArgs(t)
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Mode != "stdio" {
		t.Errorf("LoadFromFlags() Mode = %v, want %v", cfg.Mode, "stdio")
	}
	if cfg.Host != "127.0.0.1" {
		t.Errorf("LoadFromFlags() Host = %v, want %v", cfg.Host, "127.0.0.1")
	}
	if cfg.Port != 8080 {
		t.Errorf("LoadFromFlags() Port = %v, want %v", cfg.Port, 8080)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LoadFromFlags() LogLevel = %v, want %v", cfg.LogLevel, "info")
	}
	if cfg.MaxFileSize != 100*1024*1024 {
		t.Errorf("LoadFromFlags() MaxFileSize = %v, want %v", cfg.MaxFileSize, 100*1024*1024)
	}
	if cfg.CatalogDB != "" {
		t.Errorf("LoadFromFlags() CatalogDB = %q, want in-memory catalog", cfg.CatalogDB)
	}
}

func TestLoadFromFlags_ValidFlags(t *testing.T) {
	cleanEnv(t)
	tests := []struct {
		name            string
		args            []string
		wantMode        string
		wantHost        string
		wantPort        int
		wantLogLevel    string
		wantMaxFileSize int64
	}{
		{
			name:            "server mode",
			args:            []string{"--mode=server"},
			wantMode:        "server",
			wantHost:        "127.0.0.1",
			wantPort:        8080,
			wantLogLevel:    "info",
			wantMaxFileSize: 100 * 1024 * 1024,
		},
		{
			name:            "server mode with custom host and port",
			args:            []string{"--mode=server", "--host=0.0.0.0", "--port=9090"},
			wantMode:        "server",
			wantHost:        "0.0.0.0",
			wantPort:        9090,
			wantLogLevel:    "info",
			wantMaxFileSize: 100 * 1024 * 1024,
		},
		{
			name:            "debug logging",
			args:            []string{"--loglevel=debug"},
			wantMode:        "stdio",
			wantHost:        "127.0.0.1",
			wantPort:        8080,
			wantLogLevel:    "debug",
			wantMaxFileSize: 100 * 1024 * 1024,
		},
		{
			name:            "custom max file size",
			args:            []string{"--maxfilesize=50000000"},
			wantMode:        "stdio",
			wantHost:        "127.0.0.1",
			wantPort:        8080,
			wantLogLevel:    "info",
			wantMaxFileSize: 50000000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := withArgs(t, tt.args...)
			if err != nil {
				t.Fatalf("LoadFromFlags() unexpected error: %v", err)
			}

			if cfg.Mode != tt.wantMode {
				t.Errorf("LoadFromFlags() Mode = %v, want %v", cfg.Mode, tt.wantMode)
			}
			if cfg.Host != tt.wantHost {
				t.Errorf("LoadFromFlags() Host = %v, want %v", cfg.Host, tt.wantHost)
			}
			if cfg.Port != tt.wantPort {
				t.Errorf("LoadFromFlags() Port = %v, want %v", cfg.Port, tt.wantPort)
			}
			if cfg.LogLevel != tt.wantLogLevel {
				t.Errorf("LoadFromFlags() LogLevel = %v, want %v", cfg.LogLevel, tt.wantLogLevel)
			}
			if cfg.MaxFileSize != tt.wantMaxFileSize {
				t.Errorf("LoadFromFlags() MaxFileSize = %v, want %v", cfg.MaxFileSize, tt.wantMaxFileSize)
			}
		})
	}
}

func TestLoadFromFlags_FilePaths(t *testing.T) {
	cleanEnv(t)
	dir := t.TempDir()
	rules := filepath.Join(dir, "rules.yaml")
	if err := os.WriteFile(rules, []byte("types: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := withArgs(t, "--rules="+rules, "--catalog-db="+filepath.Join(dir, "catalog.db"))
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}
	if cfg.RulesPath != rules {
		t.Errorf("LoadFromFlags() RulesPath = %v, want %v", cfg.RulesPath, rules)
	}
	if !filepath.IsAbs(cfg.CatalogDB) || filepath.Base(cfg.CatalogDB) != "catalog.db" {
		t.Errorf("LoadFromFlags() CatalogDB = %v, want absolute catalog.db", cfg.CatalogDB)
	}

	if _, err := withArgs(t, "--coefficients="+filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("LoadFromFlags() expected error for missing coefficients file")
	}
}

func TestLoadFromFlags_DocumentRoot(t *testing.T) {
	cleanEnv(t)
	dir := t.TempDir()

	cfg, err := withArgs(t, "--docroot="+dir)
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}
	if !filepath.IsAbs(cfg.DocumentRoot) || filepath.Clean(cfg.DocumentRoot) != filepath.Clean(dir) {
		t.Errorf("LoadFromFlags() DocumentRoot = %v, want %v", cfg.DocumentRoot, dir)
	}

	t.Setenv("EXPEDIENTE_DOCROOT", dir)
	cfg, err = withArgs(t)
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}
	if cfg.DocumentRoot != dir {
		t.Errorf("LoadFromFlags() DocumentRoot from env = %v, want %v", cfg.DocumentRoot, dir)
	}

	if _, err := withArgs(t, "--docroot="+filepath.Join(dir, "absent")); err == nil {
		t.Error("LoadFromFlags() expected error for missing document root")
	}
}

func TestLoadFromFlags_EnvironmentVariables(t *testing.T) {
	cleanEnv(t)
	t.Setenv("EXPEDIENTE_MODE", "server")
	t.Setenv("EXPEDIENTE_HOST", "192.168.1.1")
	t.Setenv("EXPEDIENTE_PORT", "3000")
	t.Setenv("EXPEDIENTE_LOGLEVEL", "warn")
	t.Setenv("EXPEDIENTE_MAXFILESIZE", "200000000")

	cfg, err := withArgs(t)
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Mode != "server" {
		t.Errorf("LoadFromFlags() Mode = %v, want %v", cfg.Mode, "server")
	}
	if cfg.Host != "192.168.1.1" {
		t.Errorf("LoadFromFlags() Host = %v, want %v", cfg.Host, "192.168.1.1")
	}
	if cfg.Port != 3000 {
		t.Errorf("LoadFromFlags() Port = %v, want %v", cfg.Port, 3000)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LoadFromFlags() LogLevel = %v, want %v", cfg.LogLevel, "warn")
	}
	if cfg.MaxFileSize != 200000000 {
		t.Errorf("LoadFromFlags() MaxFileSize = %v, want %v", cfg.MaxFileSize, 200000000)
	}
}

func TestLoadFromFlags_FlagOverridesEnvironment(t *testing.T) {
	cleanEnv(t)
	t.Setenv("EXPEDIENTE_MODE", "server")
	t.Setenv("EXPEDIENTE_HOST", "192.168.1.1")
	t.Setenv("EXPEDIENTE_PORT", "3000")

	cfg, err := withArgs(t, "--mode=stdio", "--host=localhost", "--port=8888")
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Mode != "stdio" {
		t.Errorf("LoadFromFlags() Mode = %v, want %v (should override env)", cfg.Mode, "stdio")
	}
	if cfg.Host != "localhost" {
		t.Errorf("LoadFromFlags() Host = %v, want %v (should override env)", cfg.Host, "localhost")
	}
	if cfg.Port != 8888 {
		t.Errorf("LoadFromFlags() Port = %v, want %v (should override env)", cfg.Port, 8888)
	}
}

func TestLoadFromFlags_Invalid(t *testing.T) {
	cleanEnv(t)
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"invalid mode", []string{"--mode=invalid"}, "mode must be either 'stdio' or 'server'"},
		{"invalid port", []string{"--mode=server", "--port=99999"}, "port must be between 1 and 65535"},
		{"invalid log level", []string{"--loglevel=invalid"}, "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := withArgs(t, tt.args...)
			if err == nil {
				t.Fatalf("LoadFromFlags() expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadFromFlags() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFlags_VersionFlag(t *testing.T) {
	cleanEnv(t)
	_, err := withArgs(t, "--version")
	if !errors.Is(err, ErrVersionRequested) {
		t.Errorf("LoadFromFlags() error = %v, want ErrVersionRequested", err)
	}
}
