package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	ModeStdio  = "stdio"
	ModeServer = "server"

	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 100 * 1024 * 1024 // 100MB

	// EnvPrefix prefixes every environment override
	EnvPrefix = "EXPEDIENTE"
)

// ErrVersionRequested is returned by LoadFromFlags when --version was passed
var ErrVersionRequested = errors.New("version requested")

// Config holds the process configuration of the fusion server
type Config struct {
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Files loaded once at startup; empty means built-in defaults
	CoefficientsPath string
	RulesPath        string

	// CatalogDB is the SQLite file of runtime requirement types; empty keeps
	// the catalog in memory
	CatalogDB string

	// DocumentRoot confines the PDF paths tools may read; empty allows any
	DocumentRoot string

	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum PDF file size in bytes
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Mode:        ModeStdio,
		Host:        DefaultHost,
		Port:        DefaultPort,
		Version:     "1.0.0",
		ServerName:  "mcp-expediente-fusion",
		LogLevel:    DefaultLogLevel,
		MaxFileSize: DefaultMaxFileSize,
	}
}

// LoadFromFlags parses command line flags and environment into a config
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	for _, p := range []*string{&cfg.CoefficientsPath, &cfg.RulesPath, &cfg.CatalogDB, &cfg.DocumentRoot} {
		if *p == "" {
			continue
		}
		if abs, err := filepath.Abs(*p); err == nil {
			*p = abs
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix(EnvPrefix)
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("coefficients", cfg.CoefficientsPath)
	viper.SetDefault("rules", cfg.RulesPath)
	viper.SetDefault("catalogdb", cfg.CatalogDB)
	viper.SetDefault("docroot", cfg.DocumentRoot)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
}

func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP server")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("coefficients", cfg.CoefficientsPath, "YAML or JSON file overriding the fusion coefficients")
	pflag.String("rules", cfg.RulesPath, "YAML file with extra or replacement classification rules")
	pflag.String("catalog-db", cfg.CatalogDB, "SQLite file for runtime requirement types (in memory when empty)")
	pflag.String("docroot", cfg.DocumentRoot, "Directory the PDF documents must live under (any path when empty)")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
}

func bindFlagsToViper() {
	_ = viper.BindPFlag("mode", pflag.Lookup("mode"))
	_ = viper.BindPFlag("host", pflag.Lookup("host"))
	_ = viper.BindPFlag("port", pflag.Lookup("port"))
	_ = viper.BindPFlag("coefficients", pflag.Lookup("coefficients"))
	_ = viper.BindPFlag("rules", pflag.Lookup("rules"))
	_ = viper.BindPFlag("catalogdb", pflag.Lookup("catalog-db"))
	_ = viper.BindPFlag("docroot", pflag.Lookup("docroot"))
	_ = viper.BindPFlag("loglevel", pflag.Lookup("loglevel"))
	_ = viper.BindPFlag("maxfilesize", pflag.Lookup("maxfilesize"))
}

func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nExpediente Fusion - fuses and classifies multi-source case records over MCP\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                           # stdio mode, built-in coefficients\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --coefficients=coef.yaml --rules=rules.yaml\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --catalog-db=catalog.db     # server mode, persistent catalog\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  EXPEDIENTE_MODE          Server mode\n")
		fmt.Fprintf(os.Stderr, "  EXPEDIENTE_HOST          Server host\n")
		fmt.Fprintf(os.Stderr, "  EXPEDIENTE_PORT          Server port\n")
		fmt.Fprintf(os.Stderr, "  EXPEDIENTE_COEFFICIENTS  Coefficient file\n")
		fmt.Fprintf(os.Stderr, "  EXPEDIENTE_RULES         Classification rule file\n")
		fmt.Fprintf(os.Stderr, "  EXPEDIENTE_CATALOGDB     Requirement type database\n")
		fmt.Fprintf(os.Stderr, "  EXPEDIENTE_DOCROOT       Document root directory\n")
		fmt.Fprintf(os.Stderr, "  EXPEDIENTE_LOGLEVEL      Log level\n")
		fmt.Fprintf(os.Stderr, "  EXPEDIENTE_MAXFILESIZE   Maximum PDF file size\n")
	}
}

func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return ErrVersionRequested
		}
	}
	return nil
}

func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.CoefficientsPath = viper.GetString("coefficients")
	cfg.RulesPath = viper.GetString("rules")
	cfg.CatalogDB = viper.GetString("catalogdb")
	cfg.DocumentRoot = viper.GetString("docroot")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	for name, path := range map[string]string{"coefficients": c.CoefficientsPath, "rules": c.RulesPath} {
		if path == "" {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("cannot access %s file %s: %w", name, path, err)
		}
		if info.IsDir() {
			return fmt.Errorf("%s path is a directory: %s", name, path)
		}
	}

	if c.CatalogDB != "" {
		if info, err := os.Stat(filepath.Dir(c.CatalogDB)); err != nil || !info.IsDir() {
			return fmt.Errorf("catalog database directory does not exist: %s", filepath.Dir(c.CatalogDB))
		}
	}

	if c.DocumentRoot != "" {
		if info, err := os.Stat(c.DocumentRoot); err != nil || !info.IsDir() {
			return fmt.Errorf("document root is not a directory: %s", c.DocumentRoot)
		}
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	if _, ok := logLevels[c.LogLevel]; !ok {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// SlogLevel maps LogLevel to a slog level, defaulting to info
func (c *Config) SlogLevel() slog.Level {
	if l, ok := logLevels[c.LogLevel]; ok {
		return l
	}
	return slog.LevelInfo
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, Coefficients: %q, Rules: %q, CatalogDB: %q, DocumentRoot: %q, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.Host, c.Port, c.CoefficientsPath, c.RulesPath, c.CatalogDB, c.DocumentRoot, c.LogLevel, c.MaxFileSize)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
