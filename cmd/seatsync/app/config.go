package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Default reconciliation settings.
const (
	DefaultInactiveDays = 90
	DefaultWindowDays   = 3
)

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// API access
	Token  string
	APIURL string

	// Reconciliation settings
	Orgs            []string
	Enterprise      string
	InactiveDays    int
	WindowDays      int
	DryRun          bool
	RemoveInactive  bool
	RemoveFromTeams bool
	EnrollmentFile  string
	CSVOut          string
	Summary         bool

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables
// 3. .env files
// 4. Config file (~/.seatsync.yaml)
// 5. Defaults
func LoadConfig() (*Config, error) {
	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	// Set up Viper for environment variables
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	bindTokenKeys()
	bindEnvAliases()

	// Try to read config file if it exists
	configFile := viper.GetString("config")
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		// Search for config in standard locations
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.AddConfigPath(".")
			viper.SetConfigType("yaml")
			viper.SetConfigName(".seatsync")
		}
	}

	// Read config file (ignore error if not found)
	_ = viper.ReadInConfig()

	config := &Config{
		// Global flags (may be overridden by cobra flags later)
		Verbose: viper.GetBool("verbose"),
		Quiet:   viper.GetBool("quiet"),
		NoColor: viper.GetBool("no-color"),
		Format:  viper.GetString("format"),

		ConfigFile: viper.ConfigFileUsed(),

		Token:  firstNonEmpty(viper.GetString("GITHUB_TOKEN"), viper.GetString("SEATSYNC_TOKEN")),
		APIURL: viper.GetString("api_url"),

		Orgs:            splitList(viper.GetString("orgs")),
		Enterprise:      viper.GetString("enterprise"),
		InactiveDays:    viper.GetInt("inactive_days"),
		WindowDays:      viper.GetInt("window_days"),
		DryRun:          true,
		RemoveInactive:  viper.GetBool("remove"),
		RemoveFromTeams: viper.GetBool("remove_from_team"),
		EnrollmentFile:  viper.GetString("enrollment_file"),
		CSVOut:          viper.GetString("csv_out"),
		Summary:         viper.GetBool("summary"),

		// Logging configuration. An empty level lets the verbose/quiet
		// shortcuts apply; see determineLogLevel.
		LogLevel:  os.Getenv("LOG_LEVEL"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput: getEnvOrDefault("LOG_OUTPUT", "stderr"),
	}

	if viper.IsSet("dry_run") {
		config.DryRun = viper.GetBool("dry_run")
	}

	// Set defaults
	if config.InactiveDays == 0 {
		config.InactiveDays = DefaultInactiveDays
	}
	if config.WindowDays == 0 {
		config.WindowDays = DefaultWindowDays
	}

	return config, nil
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags to ensure flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// loadEnvFiles loads environment variables from .env files.
// .env.local overrides .env.
func loadEnvFiles() {
	envFiles := []string{
		".env",
		".env.local",
	}

	for _, envFile := range envFiles {
		_ = godotenv.Load(envFile)
	}
}

// bindTokenKeys explicitly binds token environment variables to Viper.
func bindTokenKeys() {
	tokenKeys := []string{
		"GITHUB_TOKEN",
		"SEATSYNC_TOKEN",
	}

	for _, key := range tokenKeys {
		if err := viper.BindEnv(key); err != nil {
			// Log warning but continue - this isn't critical
			fmt.Fprintf(os.Stderr, "Warning: failed to bind environment variable %s: %v\n", key, err)
		}
	}
}

// bindEnvAliases binds settings to their SEATSYNC_-prefixed and
// workflow-conventional environment variables.
func bindEnvAliases() {
	aliases := map[string][]string{
		"orgs":            {"SEATSYNC_ORGS", "ORGS"},
		"enterprise":      {"SEATSYNC_ENTERPRISE", "ENTERPRISE"},
		"api_url":         {"GITHUB_API_URL", "API_URL"},
		"enrollment_file": {"SEATSYNC_ENROLLMENT_FILE", "ENROLLMENT_FILE"},
	}

	for key, envVars := range aliases {
		if err := viper.BindEnv(append([]string{key}, envVars...)...); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to bind environment variable for %s: %v\n", key, err)
		}
	}
}

// splitList splits a comma-separated setting, trimming whitespace and
// dropping empty entries.
func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// firstNonEmpty returns the first non-empty string.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
