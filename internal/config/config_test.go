// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigOrDefault_NoFile(t *testing.T) {
	// With no config file, should return defaults without error
	cfg := LoadConfigOrDefault("")
	if cfg == nil {
		t.Fatal("expected non-nil config")
	}
	if cfg.Defaults.Format == "" {
		t.Error("expected default format to be set")
	}
}

func TestLoadConfigOrDefault_NonexistentFile(t *testing.T) {
	// A path that doesn't exist should fall back to defaults
	cfg := LoadConfigOrDefault("/nonexistent/path/config.yaml")
	if cfg == nil {
		t.Fatal("expected non-nil config (fallback to defaults)")
	}
}

func TestLoadConfigOrDefault_ValidFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	content := `
defaults:
  format: json
  confidence_levels: high
detection:
  age_threshold: 105
  name_similarity_threshold: 90
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := LoadConfigOrDefault(configPath)
	if cfg == nil {
		t.Fatal("expected non-nil config")
	}
	if cfg.Defaults.Format != "json" {
		t.Errorf("expected format=json, got %q", cfg.Defaults.Format)
	}
	if cfg.Defaults.ConfidenceLevels != "high" {
		t.Errorf("expected confidence_levels=high, got %q", cfg.Defaults.ConfidenceLevels)
	}
	if cfg.Detection.AgeThreshold != 105 {
		t.Errorf("expected age_threshold=105, got %d", cfg.Detection.AgeThreshold)
	}
	if cfg.Detection.NameSimilarityThreshold != 90 {
		t.Errorf("expected name_similarity_threshold=90, got %g", cfg.Detection.NameSimilarityThreshold)
	}
	// Unset tunables keep their defaults
	if cfg.Detection.InactivityYears != 20 {
		t.Errorf("expected inactivity_years default 20, got %d", cfg.Detection.InactivityYears)
	}
	if cfg.Detection.AnomalyScoreThreshold != -0.7 {
		t.Errorf("expected anomaly_score_threshold default -0.7, got %g", cfg.Detection.AnomalyScoreThreshold)
	}
}

func TestLoadConfigOrDefault_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "bad.yaml")

	if err := os.WriteFile(configPath, []byte(":::invalid yaml:::"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Should fall back to defaults, not panic
	cfg := LoadConfigOrDefault(configPath)
	if cfg == nil {
		t.Fatal("expected non-nil config (fallback to defaults on parse error)")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Defaults.Format != "text" {
		t.Errorf("expected default format=text, got %q", cfg.Defaults.Format)
	}
	if cfg.Defaults.ConfidenceLevels != "all" {
		t.Errorf("expected default confidence_levels=all, got %q", cfg.Defaults.ConfidenceLevels)
	}
	d := cfg.Detection
	if d.AgeThreshold != 110 || d.InactivityYears != 20 || d.MinPopulationForAnomalyModel != 10 {
		t.Errorf("unexpected detection defaults: %+v", d)
	}
}

func TestLoadConfig_ProfilesInitialized(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Profiles == nil {
		t.Error("expected profiles map to be initialized")
	}
	// Default audit profile should exist
	if _, ok := cfg.Profiles["audit"]; !ok {
		t.Error("expected 'audit' profile to exist in defaults")
	}
}

func TestLoadConfig_RejectsBadTunables(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name    string
		content string
	}{
		{"similarity out of range", "detection:\n  name_similarity_threshold: 120\n"},
		{"anomaly threshold out of range", "detection:\n  anomaly_score_threshold: -2\n"},
		{"bad reference date", "detection:\n  reference_date: not-a-date\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, "config.yaml")
			if err := os.WriteFile(path, []byte(tc.content), 0600); err != nil {
				t.Fatalf("failed to write test config: %v", err)
			}
			if _, err := LoadConfig(path); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestApplyProfile(t *testing.T) {
	cfg, _ := LoadConfig("")
	cfg.Profiles["strict"] = Profile{
		Format:           "json",
		ConfidenceLevels: "high",
		NoColor:          true,
		Detection: &Detection{
			AgeThreshold:                 100,
			InactivityYears:              15,
			AnomalyScoreThreshold:        -0.6,
			NameSimilarityThreshold:      90,
			MinPopulationForAnomalyModel: 10,
		},
	}

	if err := cfg.ApplyProfile("strict"); err != nil {
		t.Fatalf("ApplyProfile() error: %v", err)
	}
	if cfg.Defaults.Format != "json" || cfg.Defaults.ConfidenceLevels != "high" {
		t.Errorf("profile defaults not applied: %+v", cfg.Defaults)
	}
	if cfg.Detection.AgeThreshold != 100 {
		t.Errorf("profile detection not applied: %+v", cfg.Detection)
	}

	if err := cfg.ApplyProfile("missing"); err == nil {
		t.Error("expected error for unknown profile")
	}
}

func TestParseReferenceDate(t *testing.T) {
	d := Detection{ReferenceDate: "2026-01-15"}
	got, err := d.ParseReferenceDate()
	if err != nil {
		t.Fatalf("ParseReferenceDate() error: %v", err)
	}
	want := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseReferenceDate() = %v, want %v", got, want)
	}

	empty := Detection{}
	got, err = empty.ParseReferenceDate()
	if err != nil || !got.IsZero() {
		t.Errorf("empty reference date: got %v, %v; want zero time, nil", got, err)
	}
}
