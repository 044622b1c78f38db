// SPDX-License-Identifier: Apache-2.0

package detector

import (
	"fmt"
	"time"
)

// RuleConfidence is the coarse weight a deterministic rule carries when it
// fires. Anomaly-signal hits use ConfidenceModel.
type RuleConfidence string

const (
	ConfidenceHigh   RuleConfidence = "high"
	ConfidenceMedium RuleConfidence = "medium"
	ConfidenceModel  RuleConfidence = "model"
)

// RuleHit records one triggered ghost-detection signal. Deterministic rules
// appear before the anomaly signal in a finding's TriggeredRules.
type RuleHit struct {
	Rule       string         `json:"rule"`
	Label      string         `json:"label"`
	Value      string         `json:"value"`
	Confidence RuleConfidence `json:"confidence"`
}

// GhostFinding is the ghost detector's per-voter verdict. AnomalyScore is
// normalized to [-1, 1]; more negative means more anomalous. ModelSkipped is
// set when the population was too small to fit the anomaly model.
type GhostFinding struct {
	VoterID        string    `json:"voter_id"`
	IsFlagged      bool      `json:"is_flagged"`
	AnomalyScore   float64   `json:"anomaly_score"`
	TriggeredRules []RuleHit `json:"triggered_rules"`
	ModelSkipped   bool      `json:"model_skipped,omitempty"`
}

// PairKey identifies an unordered pair of voter ids. Use NewPairKey so the
// lexicographically smaller id is always A.
type PairKey struct {
	A, B string
}

// NewPairKey builds the canonical key for an unordered id pair.
func NewPairKey(a, b string) PairKey {
	if b < a {
		a, b = b, a
	}
	return PairKey{A: a, B: b}
}

func (k PairKey) String() string {
	return k.A + "~" + k.B
}

// PairScore carries the evidence for one compared pair within a group.
type PairScore struct {
	Similarity    float64 `json:"similarity"`
	PhoneticMatch bool    `json:"phonetic_match"`
}

// DuplicateGroup is one connected component of the candidate-match graph.
// Members has size >= 2 and a voter belongs to at most one group per run.
type DuplicateGroup struct {
	GroupID        string                `json:"group_id"`
	Members        []string              `json:"members"`
	PairwiseScores map[PairKey]PairScore `json:"-"`
	// PincodeBlocked is true when the group's block key included a valid
	// pincode, i.e. pincode equality is part of the evidence.
	PincodeBlocked bool   `json:"pincode_blocked"`
	DateOfBirth    string `json:"date_of_birth"`
}

// BestScoreFor returns the strongest pairwise evidence involving voterID.
// Ties on (similarity, phonetic match) resolve to the lexicographically
// smaller partner id so output is stable across runs. ok is false when the
// voter appears in no scored pair.
func (g *DuplicateGroup) BestScoreFor(voterID string) (best PairScore, other string, ok bool) {
	for key, score := range g.PairwiseScores {
		if key.A != voterID && key.B != voterID {
			continue
		}
		partner := key.B
		if key.B == voterID {
			partner = key.A
		}
		if !ok || strongerPair(score, partner, best, other) {
			best, other, ok = score, partner, true
		}
	}
	return best, other, ok
}

func strongerPair(s PairScore, partner string, best PairScore, other string) bool {
	if s.Similarity != best.Similarity {
		return s.Similarity > best.Similarity
	}
	if s.PhoneticMatch != best.PhoneticMatch {
		return s.PhoneticMatch
	}
	return partner < other
}

// RecordType classifies a flagged record. It is a closed enumeration so the
// explainer's confidence-combination rule stays exhaustive.
type RecordType string

const (
	RecordTypeGhost     RecordType = "ghost"
	RecordTypeDuplicate RecordType = "duplicate"
	RecordTypeBoth      RecordType = "both"
)

// Factor is one piece of evidence behind a flag, with its literal value.
// ContributingFactors are ordered strongest first.
type Factor struct {
	Name   string  `json:"factor"`
	Value  string  `json:"value"`
	Weight float64 `json:"weight"`
}

// FlaggedRecord is the pipeline's per-voter output. Every FlaggedRecord
// corresponds to a voter that triggered at least one ghost signal or belongs
// to a duplicate group.
type FlaggedRecord struct {
	VoterID             string     `json:"voter_id"`
	Name                string     `json:"name,omitempty"`
	RecordType          RecordType `json:"record_type"`
	Confidence          float64    `json:"confidence"`
	PrimaryReason       string     `json:"primary_reason"`
	ContributingFactors []Factor   `json:"contributing_factors"`
	RecommendedAction   string     `json:"recommended_action"`
	GroupID             string     `json:"group_id,omitempty"`
}

// Severity buckets a confidence value into the review-priority bands used
// by the formatters: high >= 0.8, medium >= 0.5, low otherwise.
func Severity(confidence float64) string {
	switch {
	case confidence >= 0.8:
		return "high"
	case confidence >= 0.5:
		return "medium"
	default:
		return "low"
	}
}

// Summary aggregates a completed run for external reporting.
type Summary struct {
	RunID           string        `json:"run_id"`
	Timestamp       time.Time     `json:"timestamp"`
	TotalEvaluated  int           `json:"total_evaluated"`
	GhostCount      int           `json:"ghost_count"`
	DuplicateCount  int           `json:"duplicate_count"`
	BothCount       int           `json:"both_count"`
	TotalFlagged    int           `json:"total_flagged"`
	DuplicateGroups int           `json:"duplicate_groups"`
	Skipped         []RecordIssue `json:"skipped,omitempty"`
}

// Report is the full run output handed to formatters.
type Report struct {
	Flagged []FlaggedRecord  `json:"flagged_records"`
	Groups  []DuplicateGroup `json:"duplicate_groups"`
	Summary Summary          `json:"summary"`
}

// RecordIssue reports one record excluded or degraded during preprocessing.
type RecordIssue struct {
	VoterID string `json:"voter_id"`
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Reason  string `json:"reason"`
}

func (i RecordIssue) String() string {
	id := i.VoterID
	if id == "" {
		id = fmt.Sprintf("row %d", i.Row)
	}
	return fmt.Sprintf("%s: %s (%s)", id, i.Reason, i.Field)
}
