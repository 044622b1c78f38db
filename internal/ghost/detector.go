// SPDX-License-Identifier: Apache-2.0

// Package ghost flags registry entries that are implausibly old, inactive
// or statistically anomalous versus the population. Two independent signal
// sources combine by logical OR: deterministic threshold rules and an
// isolation-based anomaly model trained once per run.
package ghost

import (
	"fmt"

	"rollscan/internal/detector"
	"rollscan/internal/preprocess"
)

// Rule identifiers as they appear in GhostFinding.TriggeredRules.
const (
	RuleImplausibleAge    = "implausible_age"
	RuleInactivity        = "inactivity"
	RuleStaleRegistration = "stale_registration"
	RuleAnomaly           = "anomaly"
)

// Config carries the recognized ghost-detection tunables.
type Config struct {
	// AgeThreshold flags ages at or above it. Default 110.
	AgeThreshold int
	// InactivityYears flags voters with no recorded vote for at least this
	// many years. Default 20.
	InactivityYears int
	// AnomalyScoreThreshold flags records whose normalized isolation score
	// falls below it. Nil means the default of -0.7; zero is a legal
	// explicit threshold, not "unset".
	AnomalyScoreThreshold *float64
	// MinPopulation is the smallest population the anomaly model will be
	// fitted on. Below it the detector degrades to rules only. Default 10.
	MinPopulation int
}

const defaultAnomalyScoreThreshold = -0.7

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		AgeThreshold:    110,
		InactivityYears: 20,
		MinPopulation:   10,
	}
}

// Detector evaluates ghost signals over a preprocessed population.
type Detector struct {
	cfg              Config
	anomalyThreshold float64
}

// NewDetector returns a Detector for cfg, filling unset fields with the
// documented defaults.
func NewDetector(cfg Config) *Detector {
	def := DefaultConfig()
	if cfg.AgeThreshold == 0 {
		cfg.AgeThreshold = def.AgeThreshold
	}
	if cfg.InactivityYears == 0 {
		cfg.InactivityYears = def.InactivityYears
	}
	if cfg.MinPopulation == 0 {
		cfg.MinPopulation = def.MinPopulation
	}
	threshold := defaultAnomalyScoreThreshold
	if cfg.AnomalyScoreThreshold != nil {
		threshold = *cfg.AnomalyScoreThreshold
	}
	return &Detector{cfg: cfg, anomalyThreshold: threshold}
}

// Detect returns one GhostFinding per feature record, in input order. The
// returned error is advisory: it is a *detector.InsufficientDataError when
// the population was too small for the anomaly model (the findings are still
// complete, rules-only), and nil otherwise.
func (d *Detector) Detect(features []preprocess.FeatureRecord) ([]detector.GhostFinding, error) {
	var model *IsolationModel
	var degraded error

	if len(features) >= d.cfg.MinPopulation {
		model = FitIsolationModel(modelMatrix(features))
	} else {
		degraded = &detector.InsufficientDataError{
			Population: len(features),
			Minimum:    d.cfg.MinPopulation,
		}
	}

	findings := make([]detector.GhostFinding, 0, len(features))
	for i := range features {
		f := &features[i]
		finding := detector.GhostFinding{
			VoterID:        f.VoterID,
			TriggeredRules: d.evaluateRules(f),
			ModelSkipped:   model == nil,
		}

		if model != nil {
			finding.AnomalyScore = model.Score(modelVector(f))
			if finding.AnomalyScore < d.anomalyThreshold {
				finding.TriggeredRules = append(finding.TriggeredRules, detector.RuleHit{
					Rule:       RuleAnomaly,
					Label:      "Statistical anomaly versus population",
					Value:      fmt.Sprintf("score %.2f", finding.AnomalyScore),
					Confidence: detector.ConfidenceModel,
				})
			}
		}

		finding.IsFlagged = len(finding.TriggeredRules) > 0
		findings = append(findings, finding)
	}
	return findings, degraded
}

// modelVector extracts the anomaly features for one record: age, inactivity
// span and registration-era bucket. Gender and other demographic attributes
// are never part of the model input.
func modelVector(f *preprocess.FeatureRecord) []float64 {
	return []float64{
		float64(f.Age),
		float64(f.InactivityYears),
		float64(f.RegistrationEra),
	}
}

func modelMatrix(features []preprocess.FeatureRecord) [][]float64 {
	points := make([][]float64, len(features))
	for i := range features {
		points[i] = modelVector(&features[i])
	}
	return points
}
