package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio = "stdio" // MCP server over standard I/O
	ModeTUI   = "tui"   // interactive terminal wizard

	// Default values
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 100 * 1024 * 1024 // 100MB
	DefaultScale       = 1.5
	DefaultNavRetries  = 5

	// Directory permissions
	DefaultDirPerm = 0o750
)

// Config holds all configuration for the form wizard
type Config struct {
	// Mode selects the host surface: "stdio" or "tui"
	Mode string

	// Document configuration
	FormsDirectory  string // directory the wizard may load PDFs from
	OutputDirectory string // where submissions are written
	MaxFileSize     int64  // maximum PDF file size in bytes

	// Wizard behavior
	Scale      float64 // render scale for navigation renders
	NavRetries int     // screen-handle lookup retry budget

	// Application configuration
	Version    string
	ServerName string
	LogLevel   string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:            ModeStdio,
		FormsDirectory:  currentDir,
		OutputDirectory: filepath.Join(currentDir, "submissions"),
		MaxFileSize:     DefaultMaxFileSize,
		Scale:           DefaultScale,
		NavRetries:      DefaultNavRetries,
		Version:         "1.0.0",
		ServerName:      "mcp-form-wizard",
		LogLevel:        DefaultLogLevel,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	pflag.Parse()

	populateConfigFromViper(cfg)

	if cfg.FormsDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.FormsDirectory); err == nil {
			cfg.FormsDirectory = expandedPath
		}
	}
	if cfg.OutputDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.OutputDirectory); err == nil {
			cfg.OutputDirectory = expandedPath
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix("FORM_WIZARD")
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("dir", cfg.FormsDirectory)
	viper.SetDefault("out", cfg.OutputDirectory)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
	viper.SetDefault("scale", cfg.Scale)
	viper.SetDefault("navretries", cfg.NavRetries)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Host surface: 'stdio' for the MCP server, 'tui' for the terminal wizard")
	pflag.String("dir", cfg.FormsDirectory, "Directory containing fillable PDF forms")
	pflag.String("out", cfg.OutputDirectory, "Directory submissions are written to")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
	pflag.Float64("scale", cfg.Scale, "Render scale for page renders")
	pflag.Int("navretries", cfg.NavRetries, "Navigation lookup retry budget")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	_ = viper.BindPFlag("mode", pflag.Lookup("mode"))
	_ = viper.BindPFlag("dir", pflag.Lookup("dir"))
	_ = viper.BindPFlag("out", pflag.Lookup("out"))
	_ = viper.BindPFlag("loglevel", pflag.Lookup("loglevel"))
	_ = viper.BindPFlag("maxfilesize", pflag.Lookup("maxfilesize"))
	_ = viper.BindPFlag("scale", pflag.Lookup("scale"))
	_ = viper.BindPFlag("navretries", pflag.Lookup("navretries"))
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nForm Wizard - guided, field-by-field PDF form filling\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                  # MCP stdio server, current directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dir=/path/to/forms             # stdio server with custom form directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=tui --dir=/path/to/forms  # interactive terminal wizard\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  FORM_WIZARD_MODE         Host surface\n")
		fmt.Fprintf(os.Stderr, "  FORM_WIZARD_DIR          Forms directory\n")
		fmt.Fprintf(os.Stderr, "  FORM_WIZARD_OUT          Submission output directory\n")
		fmt.Fprintf(os.Stderr, "  FORM_WIZARD_LOGLEVEL     Log level\n")
		fmt.Fprintf(os.Stderr, "  FORM_WIZARD_MAXFILESIZE  Maximum file size\n")
		fmt.Fprintf(os.Stderr, "  FORM_WIZARD_SCALE        Render scale\n")
		fmt.Fprintf(os.Stderr, "  FORM_WIZARD_NAVRETRIES   Navigation retry budget\n")
	}
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.FormsDirectory = viper.GetString("dir")
	cfg.OutputDirectory = viper.GetString("out")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
	cfg.Scale = viper.GetFloat64("scale")
	cfg.NavRetries = viper.GetInt("navretries")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeTUI {
		return errors.New("mode must be either 'stdio' or 'tui'")
	}

	if c.FormsDirectory == "" {
		return errors.New("forms directory cannot be empty")
	}
	if _, err := os.Stat(c.FormsDirectory); os.IsNotExist(err) {
		if err := os.MkdirAll(c.FormsDirectory, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create forms directory %s: %w", c.FormsDirectory, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access forms directory %s: %w", c.FormsDirectory, err)
	}

	if c.OutputDirectory == "" {
		return errors.New("output directory cannot be empty")
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}
	if c.Scale <= 0 {
		return errors.New("render scale must be positive")
	}
	if c.NavRetries < 1 {
		return errors.New("navigation retry budget must be at least 1")
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

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// IsStdioMode returns true if the wizard serves MCP over standard I/O
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}

// IsTUIMode returns true if the wizard runs the terminal UI
func (c *Config) IsTUIMode() bool {
	return c.Mode == ModeTUI
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, FormsDirectory: %s, OutputDirectory: %s, LogLevel: %s, MaxFileSize: %d, Scale: %g}",
		c.Mode, c.FormsDirectory, c.OutputDirectory, c.LogLevel, c.MaxFileSize, c.Scale)
}
