package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Subcommands
	CommandServe  = "serve"
	CommandInitDB = "init-db"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 32 * 1024 * 1024 // 32MB
	DefaultDBDriver    = "sqlite3"
	DefaultDBDSN       = "database.db"

	// Directory permissions
	DefaultDirPerm = 0o750

	// EnvPrefix prefixes every environment variable, e.g. PARECER_PORT.
	EnvPrefix = "PARECER"
)

// ErrVersionRequested is returned by LoadFromFlags when --version was given.
var ErrVersionRequested = errors.New("version requested")

// Config holds all configuration for the opinion generator
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Working directories
	UploadDir    string
	TemplateDir  string
	GeneratedDir string

	// Database
	DBDriver string
	DBDSN    string

	// Application configuration
	Command     string
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum PDF file size in bytes
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:         ModeServer,
		Host:         DefaultHost,
		Port:         DefaultPort,
		UploadDir:    filepath.Join(currentDir, "uploads"),
		TemplateDir:  filepath.Join(currentDir, "templates_docx"),
		GeneratedDir: filepath.Join(currentDir, "generated"),
		DBDriver:     DefaultDBDriver,
		DBDSN:        DefaultDBDSN,
		Command:      CommandServe,
		Version:      "1.0.0",
		ServerName:   "parecer",
		LogLevel:     DefaultLogLevel,
		MaxFileSize:  DefaultMaxFileSize,
	}
}

// LoadFromFlags parses command line flags and returns a configuration.
// A .env file in the working directory is loaded first; variables already
// set in the environment win.
func LoadFromFlags() (*Config, error) {
	_ = godotenv.Load()

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
	if err := cfg.setCommand(pflag.Args()); err != nil {
		return nil, err
	}
	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("uploads", cfg.UploadDir)
	viper.SetDefault("templates", cfg.TemplateDir)
	viper.SetDefault("generated", cfg.GeneratedDir)
	viper.SetDefault("db-driver", cfg.DBDriver)
	viper.SetDefault("db-dsn", cfg.DBDSN)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Run mode: 'server' for the HTTP API, 'stdio' for MCP standard I/O")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("uploads", cfg.UploadDir, "Directory where uploaded bill PDFs are stored")
	pflag.String("templates", cfg.TemplateDir, "Directory holding template_<code>.docx files")
	pflag.String("generated", cfg.GeneratedDir, "Directory where generated opinions are written")
	pflag.String("db-driver", cfg.DBDriver, "Database driver (sqlite3, mysql)")
	pflag.String("db-dsn", cfg.DBDSN, "Database DSN (sqlite file path or mysql DSN)")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, name := range []string{
		"mode", "host", "port", "uploads", "templates", "generated",
		"db-driver", "db-dsn", "loglevel", "maxfilesize",
	} {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s: [flags] [serve|init-db]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nParecer - committee opinion generator for municipal bills\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                  # HTTP API on 127.0.0.1:8080 (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s init-db                          # create schema and seed committees\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=stdio                     # MCP tools over standard I/O\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --db-driver=mysql --db-dsn=...   # use MySQL\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables (also read from .env):\n")
		fmt.Fprintf(os.Stderr, "  PARECER_MODE, PARECER_HOST, PARECER_PORT\n")
		fmt.Fprintf(os.Stderr, "  PARECER_UPLOADS, PARECER_TEMPLATES, PARECER_GENERATED\n")
		fmt.Fprintf(os.Stderr, "  PARECER_DB_DRIVER, PARECER_DB_DSN\n")
		fmt.Fprintf(os.Stderr, "  PARECER_LOGLEVEL, PARECER_MAXFILESIZE\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return ErrVersionRequested
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.UploadDir = viper.GetString("uploads")
	cfg.TemplateDir = viper.GetString("templates")
	cfg.GeneratedDir = viper.GetString("generated")
	cfg.DBDriver = viper.GetString("db-driver")
	cfg.DBDSN = viper.GetString("db-dsn")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
}

// setCommand reads the optional positional subcommand.
func (c *Config) setCommand(args []string) error {
	if len(args) == 0 {
		c.Command = CommandServe
		return nil
	}
	if len(args) > 1 {
		return fmt.Errorf("unexpected arguments: %s", strings.Join(args[1:], " "))
	}
	switch args[0] {
	case CommandServe, CommandInitDB:
		c.Command = args[0]
		return nil
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func (c *Config) expandPaths() {
	for _, dir := range []*string{&c.UploadDir, &c.TemplateDir, &c.GeneratedDir} {
		if *dir == "" {
			continue
		}
		if expanded, err := filepath.Abs(*dir); err == nil {
			*dir = expanded
		}
	}
}

// Validate checks if the configuration is valid and creates missing
// working directories
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	dirs := []struct {
		name string
		path string
	}{
		{"upload", c.UploadDir},
		{"template", c.TemplateDir},
		{"generated", c.GeneratedDir},
	}
	for _, d := range dirs {
		if err := ensureDir(d.name, d.path); err != nil {
			return err
		}
	}

	switch c.DBDriver {
	case "sqlite", "sqlite3", "mysql":
	default:
		return fmt.Errorf("unsupported database driver: %s (must be sqlite3 or mysql)", c.DBDriver)
	}
	if c.DBDSN == "" {
		return errors.New("database DSN cannot be empty")
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

func ensureDir(name, path string) error {
	if path == "" {
		return fmt.Errorf("%s directory cannot be empty", name)
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(path, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create %s directory %s: %w", name, path, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot access %s directory %s: %w", name, path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s path is not a directory: %s", name, path)
	}
	return nil
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
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, Uploads: %s, Templates: %s, Generated: %s, DB: %s, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.Host, c.Port, c.UploadDir, c.TemplateDir, c.GeneratedDir, c.DBDriver, c.LogLevel, c.MaxFileSize)
}

// IsServerMode returns true if the HTTP API should be served
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if MCP tools are served over standard I/O
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
