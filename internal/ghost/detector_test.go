// SPDX-License-Identifier: Apache-2.0

package ghost

import (
	"reflect"
	"testing"

	"rollscan/internal/detector"
	"rollscan/internal/preprocess"
)

func feature(id string, age, inactivity, lastVoted, regYear int) preprocess.FeatureRecord {
	f := preprocess.FeatureRecord{
		VoterID:          id,
		Age:              age,
		InactivityYears:  inactivity,
		LastVotedYear:    lastVoted,
		RegistrationYear: regYear,
	}
	if lastVoted == 0 {
		f.NeverVoted = true
		f.InactivityYears = preprocess.NeverVotedSpan
	}
	if regYear > 0 {
		f.RegistrationEra = (regYear / 10) * 10
	} else {
		f.RegistrationEra = 2020
	}
	return f
}

// normalPopulation returns n unremarkable active voters.
func normalPopulation(n int) []preprocess.FeatureRecord {
	features := make([]preprocess.FeatureRecord, 0, n)
	for i := 0; i < n; i++ {
		features = append(features, feature(
			"N"+string(rune('A'+i%26))+string(rune('A'+i/26)),
			30+i%40, 2+i%5, 2024-i%5, 2000+i%20,
		))
	}
	return features
}

func scoreThreshold(v float64) *float64 {
	return &v
}

func findHit(finding detector.GhostFinding, rule string) (detector.RuleHit, bool) {
	for _, hit := range finding.TriggeredRules {
		if hit.Rule == rule {
			return hit, true
		}
	}
	return detector.RuleHit{}, false
}

func TestDetect_AgeRuleIsDeterministic(t *testing.T) {
	// The age rule must fire for every voter at or above the threshold,
	// regardless of what the anomaly model thinks.
	features := append(normalPopulation(30), feature("GHOST1", 110, 2, 2024, 2000))
	features = append(features, feature("GHOST2", 132, 2, 2024, 2000))

	findings, err := NewDetector(Config{}).Detect(features)
	if err != nil {
		t.Fatalf("unexpected degradation: %v", err)
	}

	for _, f := range findings {
		hit, hasAge := findHit(f, RuleImplausibleAge)
		if f.VoterID == "GHOST1" || f.VoterID == "GHOST2" {
			if !f.IsFlagged {
				t.Errorf("%s: expected flagged", f.VoterID)
			}
			if !hasAge {
				t.Errorf("%s: expected age rule hit", f.VoterID)
			}
			if hit.Confidence != detector.ConfidenceHigh {
				t.Errorf("%s: age rule confidence = %q, want high", f.VoterID, hit.Confidence)
			}
		} else if hasAge {
			t.Errorf("%s: age rule should not fire at age %d", f.VoterID, 0)
		}
	}
}

func TestDetect_InactivityRule(t *testing.T) {
	cases := []struct {
		name string
		f    preprocess.FeatureRecord
		want bool
	}{
		{"never voted", feature("V1", 50, 0, 0, 2000), true},
		{"pre-cutoff vote", feature("V2", 50, 36, 1990, 1980), true},
		{"long gap", feature("V3", 60, 22, 2004, 1990), true},
		{"recent voter", feature("V4", 50, 2, 2024, 2000), false},
	}
	d := NewDetector(Config{})
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hits := d.evaluateRules(&tc.f)
			has := false
			for _, h := range hits {
				if h.Rule == RuleInactivity {
					has = true
				}
			}
			if has != tc.want {
				t.Errorf("inactivity hit = %v, want %v", has, tc.want)
			}
		})
	}
}

func TestDetect_StaleRegistrationRule(t *testing.T) {
	d := NewDetector(Config{})

	stale := feature("V1", 80, 0, 0, 1955)
	hits := d.evaluateRules(&stale)
	found := false
	for _, h := range hits {
		if h.Rule == RuleStaleRegistration {
			found = true
		}
	}
	if !found {
		t.Error("1955 registration with no activity should trigger the rule")
	}

	// Same registration year but actively voting: corroborated, no hit.
	active := feature("V2", 80, 2, 2024, 1955)
	for _, h := range d.evaluateRules(&active) {
		if h.Rule == RuleStaleRegistration {
			t.Error("recent activity should corroborate an old registration")
		}
	}
}

func TestDetect_RuleOrdering(t *testing.T) {
	// Deterministic rules come first, the anomaly signal always last.
	features := append(normalPopulation(40), feature("G1", 130, 36, 1990, 1955))
	findings, err := NewDetector(Config{AnomalyScoreThreshold: scoreThreshold(-0.3)}).Detect(features)
	if err != nil {
		t.Fatalf("unexpected degradation: %v", err)
	}

	var target detector.GhostFinding
	for _, f := range findings {
		if f.VoterID == "G1" {
			target = f
		}
	}
	if len(target.TriggeredRules) < 2 {
		t.Fatalf("expected multiple rule hits, got %v", target.TriggeredRules)
	}
	for i, hit := range target.TriggeredRules {
		if hit.Rule == RuleAnomaly && i != len(target.TriggeredRules)-1 {
			t.Errorf("anomaly hit at position %d, want last", i)
		}
	}
}

func TestNewDetector_ZeroAnomalyThresholdHonored(t *testing.T) {
	// Zero is inside the valid [-1, 1] range and must not be mistaken for
	// "unset".
	if d := NewDetector(Config{AnomalyScoreThreshold: scoreThreshold(0)}); d.anomalyThreshold != 0 {
		t.Errorf("anomaly threshold = %g, want 0", d.anomalyThreshold)
	}
	if d := NewDetector(Config{}); d.anomalyThreshold != defaultAnomalyScoreThreshold {
		t.Errorf("anomaly threshold = %g, want default %g",
			d.anomalyThreshold, defaultAnomalyScoreThreshold)
	}
}

func TestDetect_UnflaggedHasEmptyRules(t *testing.T) {
	findings, err := NewDetector(Config{}).Detect(normalPopulation(30))
	if err != nil {
		t.Fatalf("unexpected degradation: %v", err)
	}
	for _, f := range findings {
		if !f.IsFlagged && len(f.TriggeredRules) != 0 {
			t.Errorf("%s: unflagged finding carries rules %v", f.VoterID, f.TriggeredRules)
		}
		if f.IsFlagged && len(f.TriggeredRules) == 0 {
			t.Errorf("%s: flagged finding with no rules", f.VoterID)
		}
	}
}

func TestDetect_SmallPopulationDegradesGracefully(t *testing.T) {
	features := []preprocess.FeatureRecord{
		feature("V1", 130, 2, 2024, 2000),
		feature("V2", 40, 2, 2024, 2000),
	}
	findings, err := NewDetector(Config{}).Detect(features)

	insufficient, ok := err.(*detector.InsufficientDataError)
	if !ok {
		t.Fatalf("expected InsufficientDataError, got %v", err)
	}
	if insufficient.Population != 2 || insufficient.Minimum != 10 {
		t.Errorf("unexpected error detail: %v", insufficient)
	}

	// Rules still apply.
	if len(findings) != 2 {
		t.Fatalf("expected findings for all records, got %d", len(findings))
	}
	if !findings[0].IsFlagged {
		t.Error("age rule must fire without the model")
	}
	if !findings[0].ModelSkipped {
		t.Error("ModelSkipped should be set")
	}
	if findings[1].IsFlagged {
		t.Error("normal record should not be flagged by rules alone")
	}
}

func TestDetect_Idempotent(t *testing.T) {
	features := append(normalPopulation(50), feature("G1", 140, 40, 1985, 1950))

	first, _ := NewDetector(Config{}).Detect(features)
	second, _ := NewDetector(Config{}).Detect(features)
	if !reflect.DeepEqual(first, second) {
		t.Error("identical input must yield identical findings")
	}
}

func TestIsolationModel_OutlierScoresLower(t *testing.T) {
	// Dense cluster plus one extreme outlier: the outlier must receive a
	// strictly more negative score than every inlier.
	var points [][]float64
	for i := 0; i < 60; i++ {
		points = append(points, []float64{float64(30 + i%30), float64(i % 6), 2000})
	}
	outlier := []float64{135, 999, 1950}
	points = append(points, outlier)

	model := FitIsolationModel(points)
	outlierScore := model.Score(outlier)
	for _, p := range points[:60] {
		if model.Score(p) <= outlierScore {
			t.Fatalf("inlier %v scored %.3f, not above outlier %.3f", p, model.Score(p), outlierScore)
		}
	}
	if outlierScore >= -0.5 {
		t.Errorf("extreme outlier score %.3f not clearly anomalous", outlierScore)
	}
}

func TestIsolationModel_Deterministic(t *testing.T) {
	var points [][]float64
	for i := 0; i < 40; i++ {
		points = append(points, []float64{float64(20 + i), float64(i % 10), float64(1950 + i)})
	}
	a := FitIsolationModel(points)
	b := FitIsolationModel(points)
	for _, p := range points {
		if a.Score(p) != b.Score(p) {
			t.Fatalf("model not deterministic for %v", p)
		}
	}
}

func TestIsolationModel_UniformPopulation(t *testing.T) {
	// All-identical points can never be isolated; scores stay moderate.
	points := make([][]float64, 20)
	for i := range points {
		points[i] = []float64{50, 5, 2000}
	}
	model := FitIsolationModel(points)
	score := model.Score(points[0])
	if score < -0.6 {
		t.Errorf("uniform population scored %.3f, should not look anomalous", score)
	}
}
