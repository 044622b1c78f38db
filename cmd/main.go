// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	"rollscan/internal/config"
	"rollscan/internal/detector"
	"rollscan/internal/duplicate"
	"rollscan/internal/formatters"
	_ "rollscan/internal/formatters/csv"
	_ "rollscan/internal/formatters/json"
	_ "rollscan/internal/formatters/text"
	"rollscan/internal/ghost"
	"rollscan/internal/observability"
	"rollscan/internal/pipeline"
	"rollscan/internal/registry"
	"rollscan/internal/version"
)

// loadConfiguration loads the configuration file or returns default config
func loadConfiguration(configFile string) *config.Config {
	configPath := configFile
	if configPath == "" {
		configPath = config.FindConfigFile()
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Error loading config file: %v\n", err)
		fmt.Fprintf(os.Stderr, "Using default configuration\n")
		cfg, _ = config.LoadConfig("")
	}
	return cfg
}

// configFlags holds command line flag values
type configFlags struct {
	outputFormat     string
	confidenceLevels string
	verbose          bool
	debug            bool
	noColor          bool

	ageThreshold        int
	inactivityYears     int
	anomalyThreshold    float64
	similarityThreshold float64
	minPopulation       int
	referenceDate       string
}

// finalConfiguration holds resolved configuration values
type finalConfiguration struct {
	format           string
	confidenceLevels string
	verbose          bool
	debug            bool
	noColor          bool
	detection        config.Detection
}

// resolveConfiguration resolves final values from config file, profile, and command line flags
func resolveConfiguration(cfg *config.Config, flags *configFlags) *finalConfiguration {
	final := &finalConfiguration{}

	// Format
	final.format = "text"
	if cfg.Defaults.Format != "" {
		final.format = cfg.Defaults.Format
	}
	if isFlagSet("format") && flags.outputFormat != "" {
		final.format = flags.outputFormat
	}

	// Confidence levels
	final.confidenceLevels = "all"
	if cfg.Defaults.ConfidenceLevels != "" {
		final.confidenceLevels = cfg.Defaults.ConfidenceLevels
	}
	if isFlagSet("confidence") && flags.confidenceLevels != "" {
		final.confidenceLevels = flags.confidenceLevels
	}

	// Verbose
	final.verbose = cfg.Defaults.Verbose
	if isFlagSet("verbose") {
		final.verbose = flags.verbose
	}

	// Debug
	final.debug = cfg.Defaults.Debug
	if isFlagSet("debug") {
		final.debug = flags.debug
	}

	// No color
	final.noColor = cfg.Defaults.NoColor
	if isFlagSet("no-color") {
		final.noColor = flags.noColor
	}

	// Detection tunables: flags override config
	final.detection = cfg.Detection
	if isFlagSet("age-threshold") {
		final.detection.AgeThreshold = flags.ageThreshold
	}
	if isFlagSet("inactivity-years") {
		final.detection.InactivityYears = flags.inactivityYears
	}
	if isFlagSet("anomaly-threshold") {
		final.detection.AnomalyScoreThreshold = flags.anomalyThreshold
	}
	if isFlagSet("similarity-threshold") {
		final.detection.NameSimilarityThreshold = flags.similarityThreshold
	}
	if isFlagSet("min-population") {
		final.detection.MinPopulationForAnomalyModel = flags.minPopulation
	}
	if isFlagSet("reference-date") {
		final.detection.ReferenceDate = flags.referenceDate
	}

	return final
}

// isFlagSet checks if a flag was explicitly set on the command line
func isFlagSet(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// parseConfidenceLevels converts the confidence flag into a severity band map
func parseConfidenceLevels(levels string) map[string]bool {
	result := map[string]bool{"high": false, "medium": false, "low": false}
	if levels == "" || levels == "all" {
		return map[string]bool{"high": true, "medium": true, "low": true}
	}
	for _, level := range strings.Split(levels, ",") {
		level = strings.ToLower(strings.TrimSpace(level))
		if _, ok := result[level]; ok {
			result[level] = true
		} else {
			fmt.Fprintf(os.Stderr, "Warning: unknown confidence level %q (use high, medium, low)\n", level)
		}
	}
	return result
}

// isTerminal reports whether f is attached to an interactive terminal
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func listProfiles(cfg *config.Config, configFile string) {
	source := configFile
	if source == "" {
		source = config.FindConfigFile()
	}
	if source == "" {
		source = "(built-in defaults)"
	}
	fmt.Printf("Profiles from %s:\n", source)
	for _, name := range cfg.ListProfiles() {
		profile := cfg.GetProfile(name)
		if profile.Description != "" {
			fmt.Printf("  %-12s %s\n", name, profile.Description)
		} else {
			fmt.Printf("  %s\n", name)
		}
	}
}

func main() {
	inputFile := flag.String("file", "", "Path to the voter registry CSV file")
	configFile := flag.String("config", "", "Path to configuration file (YAML)")
	profileName := flag.String("profile", "", "Profile name to use from config file")
	showProfiles := flag.Bool("list-profiles", false, "List available profiles in config file")
	outputFormat := flag.String("format", "", "Output format: text, json, csv (default: text)")
	confidenceLevels := flag.String("confidence", "", "Confidence levels to display: high, medium, low, or combinations like 'high,medium'")
	verbose := flag.Bool("verbose", false, "Display detailed evidence for each flagged record")
	debug := flag.Bool("debug", false, "Enable debug logging of pipeline stages")
	outputFile := flag.String("output", "", "Path to output file (if not specified, output to stdout)")
	noColor := flag.Bool("no-color", false, "Disable colored output")
	quiet := flag.Bool("quiet", false, "Suppress advisory output (useful for scripts and CI/CD)")
	showVersion := flag.Bool("version", false, "Show version information")

	ageThreshold := flag.Int("age-threshold", 110, "Flag voters at or above this age")
	inactivityYears := flag.Int("inactivity-years", 20, "Flag voters with no recorded vote for this many years")
	anomalyThreshold := flag.Float64("anomaly-threshold", -0.7, "Flag anomaly scores below this value (range [-1, 1])")
	similarityThreshold := flag.Float64("similarity-threshold", 85, "Minimum name similarity for duplicate candidates (range [0, 100])")
	minPopulation := flag.Int("min-population", 10, "Minimum population for the anomaly model (smaller inputs use rules only)")
	referenceDate := flag.String("reference-date", "", "Reference date for age computation (YYYY-MM-DD, default: today)")

	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		return
	}

	// Auto-disable color in non-interactive environments
	if !isTerminal(os.Stderr) || *quiet || os.Getenv("CI") != "" {
		*noColor = true
	}

	cfg := loadConfiguration(*configFile)

	if *showProfiles {
		listProfiles(cfg, *configFile)
		return
	}

	if *profileName != "" {
		if err := cfg.ApplyProfile(*profileName); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	finalConfig := resolveConfiguration(cfg, &configFlags{
		outputFormat:        *outputFormat,
		confidenceLevels:    *confidenceLevels,
		verbose:             *verbose,
		debug:               *debug,
		noColor:             *noColor,
		ageThreshold:        *ageThreshold,
		inactivityYears:     *inactivityYears,
		anomalyThreshold:    *anomalyThreshold,
		similarityThreshold: *similarityThreshold,
		minPopulation:       *minPopulation,
		referenceDate:       *referenceDate,
	})

	if *inputFile == "" {
		fmt.Fprintf(os.Stderr, "Error: no input file specified. Use -file <registry.csv>\n")
		flag.Usage()
		os.Exit(1)
	}

	refDate, err := finalConfig.detection.ParseReferenceDate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var debugObs *observability.DebugObserver
	observerLevel := observability.ObservabilityOff
	if finalConfig.debug {
		observerLevel = observability.ObservabilityDebug
		debugObs = observability.NewDebugObserver(os.Stderr)
		debugObs.LogDetail("main", fmt.Sprintf("Command line arguments: %v", os.Args))
	} else if finalConfig.verbose {
		observerLevel = observability.ObservabilityMetrics
	}
	observer := observability.NewStandardObserver(observerLevel, os.Stderr)

	records, err := registry.LoadCSV(*inputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", *inputFile, err)
		os.Exit(1)
	}
	if debugObs != nil {
		debugObs.LogMetric("registry", "records_loaded", len(records))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := pipeline.New(pipeline.Options{
		Ghost: ghost.Config{
			AgeThreshold:          finalConfig.detection.AgeThreshold,
			InactivityYears:       finalConfig.detection.InactivityYears,
			AnomalyScoreThreshold: &finalConfig.detection.AnomalyScoreThreshold,
			MinPopulation:         finalConfig.detection.MinPopulationForAnomalyModel,
		},
		Duplicate: duplicate.Config{
			NameSimilarityThreshold: finalConfig.detection.NameSimilarityThreshold,
		},
		ReferenceDate: refDate,
		Observer:      observer,
	})

	result, err := p.Run(ctx, records)
	if err != nil {
		var aborted *detector.PipelineAbortedError
		if errors.As(err, &aborted) && len(aborted.Issues) > 0 && !*quiet {
			for _, issue := range aborted.Issues {
				fmt.Fprintf(os.Stderr, "  skipped %s\n", issue)
			}
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if result.Advisory != nil && !*quiet {
		fmt.Fprintf(os.Stderr, "Notice: %v\n", result.Advisory)
	}

	output, err := formatters.Export(finalConfig.format, detector.Report{
		Flagged: result.Flagged,
		Groups:  result.Groups,
		Summary: result.Summary,
	}, formatters.FormatterOptions{
		ConfidenceLevel: parseConfidenceLevels(finalConfig.confidenceLevels),
		Verbose:         finalConfig.verbose,
		NoColor:         finalConfig.noColor,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *outputFile != "" {
		if err := os.WriteFile(*outputFile, []byte(output), 0600); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
			os.Exit(1)
		}
		if !*quiet {
			fmt.Fprintf(os.Stderr, "Report written to %s\n", *outputFile)
		}
	} else {
		fmt.Print(output)
	}
}
