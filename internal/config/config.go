// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Detection holds the recognized screening tunables.
type Detection struct {
	AgeThreshold                 int     `yaml:"age_threshold"`
	InactivityYears              int     `yaml:"inactivity_years"`
	AnomalyScoreThreshold        float64 `yaml:"anomaly_score_threshold"`
	NameSimilarityThreshold      float64 `yaml:"name_similarity_threshold"`
	MinPopulationForAnomalyModel int     `yaml:"min_population_for_anomaly_model"`
	// ReferenceDate pins age and inactivity computations to a fixed date
	// (YYYY-MM-DD). Empty means run time.
	ReferenceDate string `yaml:"reference_date"`
}

// ParseReferenceDate returns the pinned reference date, or the zero time when
// none is configured.
func (d Detection) ParseReferenceDate() (time.Time, error) {
	if d.ReferenceDate == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse("2006-01-02", d.ReferenceDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid reference_date %q: %w", d.ReferenceDate, err)
	}
	return parsed, nil
}

// Config represents the application configuration
type Config struct {
	// Default settings
	Defaults struct {
		Format           string `yaml:"format"`
		ConfidenceLevels string `yaml:"confidence_levels"`
		Verbose          bool   `yaml:"verbose"`
		Debug            bool   `yaml:"debug"`
		NoColor          bool   `yaml:"no_color"`
	} `yaml:"defaults"`

	// Screening tunables
	Detection Detection `yaml:"detection"`

	// Profiles for different screening scenarios
	Profiles map[string]Profile `yaml:"profiles"`
}

// Profile represents a screening profile with specific settings
type Profile struct {
	Format           string `yaml:"format"`
	ConfidenceLevels string `yaml:"confidence_levels"`
	Verbose          bool   `yaml:"verbose"`
	Debug            bool   `yaml:"debug"`
	NoColor          bool   `yaml:"no_color"`
	Description      string `yaml:"description"`
	// Detection overrides for this profile; nil inherits the top level.
	Detection *Detection `yaml:"detection,omitempty"`
}

// DefaultDetection returns the documented screening defaults.
func DefaultDetection() Detection {
	return Detection{
		AgeThreshold:                 110,
		InactivityYears:              20,
		AnomalyScoreThreshold:        -0.7,
		NameSimilarityThreshold:      85,
		MinPopulationForAnomalyModel: 10,
	}
}

// LoadConfig loads configuration from the specified file path
func LoadConfig(configPath string) (*Config, error) {
	// Default configuration
	config := &Config{
		Profiles: make(map[string]Profile),
	}

	// Set default values
	config.Defaults.Format = "text"
	config.Defaults.ConfidenceLevels = "all"
	config.Defaults.Verbose = false
	config.Defaults.Debug = false
	config.Defaults.NoColor = false
	config.Detection = DefaultDetection()

	// Add default audit profile: high-confidence findings only, plain output,
	// suitable for feeding a manual review queue.
	config.Profiles["audit"] = Profile{
		Format:           "text",
		ConfidenceLevels: "high",
		Verbose:          false,
		Debug:            false,
		NoColor:          true,
		Description:      "High-confidence findings only, for manual review queues",
	}

	// If no config file specified, return default config
	if configPath == "" {
		return config, nil
	}

	// Read config file
	cleanPath := filepath.Clean(configPath)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML over the defaults; absent fields keep their default values.
	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Validate the configuration
	if err := ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// FindConfigFile looks for a configuration file in standard locations
func FindConfigFile() string {
	// Check current directory first - prioritize config.yaml
	if fileExists("config.yaml") {
		return "config.yaml"
	}
	if fileExists("rollscan.yaml") {
		return "rollscan.yaml"
	}
	if fileExists("rollscan.yml") {
		return "rollscan.yml"
	}

	// Check for .rollscan.yaml in current directory (project-specific config)
	if fileExists(".rollscan.yaml") {
		return ".rollscan.yaml"
	}
	if fileExists(".rollscan.yml") {
		return ".rollscan.yml"
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	// Check legacy locations in home directory
	homeConfig := filepath.Join(home, ".rollscan.yaml")
	if fileExists(homeConfig) {
		return homeConfig
	}
	homeConfig = filepath.Join(home, ".rollscan.yml")
	if fileExists(homeConfig) {
		return homeConfig
	}

	// Check XDG config directory
	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}
	xdgConfigFile := filepath.Join(xdgConfig, "rollscan", "config.yaml")
	if fileExists(xdgConfigFile) {
		return xdgConfigFile
	}
	xdgConfigFile = filepath.Join(xdgConfig, "rollscan", "config.yml")
	if fileExists(xdgConfigFile) {
		return xdgConfigFile
	}

	return ""
}

// fileExists checks if a file exists and is not a directory
func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false
	}
	return !info.IsDir()
}

// ListProfiles returns a list of available profile names
func (c *Config) ListProfiles() []string {
	profiles := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		profiles = append(profiles, name)
	}
	return profiles
}

// GetProfile returns a profile by name, or nil if not found
func (c *Config) GetProfile(name string) *Profile {
	if profile, exists := c.Profiles[name]; exists {
		return &profile
	}
	return nil
}

// ApplyProfile overlays a named profile's settings on the config's defaults.
// Detection overrides replace the top-level detection block wholesale.
func (c *Config) ApplyProfile(name string) error {
	profile := c.GetProfile(name)
	if profile == nil {
		return fmt.Errorf("profile %q not found (available: %v)", name, c.ListProfiles())
	}

	if profile.Format != "" {
		c.Defaults.Format = profile.Format
	}
	if profile.ConfidenceLevels != "" {
		c.Defaults.ConfidenceLevels = profile.ConfidenceLevels
	}
	c.Defaults.Verbose = profile.Verbose
	c.Defaults.Debug = profile.Debug
	c.Defaults.NoColor = profile.NoColor
	if profile.Detection != nil {
		c.Detection = *profile.Detection
	}
	return nil
}

// ValidateConfig validates the configuration
func ValidateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("configuration cannot be nil")
	}

	if err := validateDetection(&config.Detection); err != nil {
		return err
	}
	for name, profile := range config.Profiles {
		if profile.Detection == nil {
			continue
		}
		if err := validateDetection(profile.Detection); err != nil {
			return fmt.Errorf("profile %q: %w", name, err)
		}
	}
	return nil
}

func validateDetection(d *Detection) error {
	if d.AgeThreshold < 0 {
		return fmt.Errorf("age_threshold must be non-negative, got %d", d.AgeThreshold)
	}
	if d.InactivityYears < 0 {
		return fmt.Errorf("inactivity_years must be non-negative, got %d", d.InactivityYears)
	}
	if d.AnomalyScoreThreshold < -1 || d.AnomalyScoreThreshold > 1 {
		return fmt.Errorf("anomaly_score_threshold must be in [-1, 1], got %g", d.AnomalyScoreThreshold)
	}
	if d.NameSimilarityThreshold < 0 || d.NameSimilarityThreshold > 100 {
		return fmt.Errorf("name_similarity_threshold must be in [0, 100], got %g", d.NameSimilarityThreshold)
	}
	if d.MinPopulationForAnomalyModel < 0 {
		return fmt.Errorf("min_population_for_anomaly_model must be non-negative, got %d", d.MinPopulationForAnomalyModel)
	}
	if _, err := d.ParseReferenceDate(); err != nil {
		return err
	}
	return nil
}

// LoadConfigOrDefault loads configuration from configFile (or searches standard
// locations when configFile is empty). If loading fails, it returns a default
// configuration.
func LoadConfigOrDefault(configFile string) *Config {
	configPath := configFile
	if configPath == "" {
		configPath = FindConfigFile()
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		// Fall back to defaults — callers should not crash on a missing/bad config file.
		cfg, _ = LoadConfig("")
	}
	return cfg
}
