// SPDX-License-Identifier: Apache-2.0

// Package explain converts raw detector output into the flagged records a
// human reviewer sees: a normalized confidence, an ordered list of
// contributing factors and a one-line primary reason.
package explain

import (
	"fmt"
	"sort"
	"strings"

	"rollscan/internal/detector"
	"rollscan/internal/preprocess"
)

// Confidence policy constants. The combination rule for records flagged by
// both detectors is "corroboration raises, never dilutes": the higher of
// the two confidences plus a fixed bonus, capped at 1.0.
const (
	ageRuleConfidence    = 0.95
	mediumRuleConfidence = 0.5
	extraRuleBoost       = 0.05
	ghostConfidenceCap   = 0.99
	anomalyConfidenceCap = 0.9

	duplicateFloor     = 0.6
	duplicateScale     = 0.35 // spread of [85,100] similarity over [0.6,0.95]
	phoneticBoost      = 0.05
	similarityBaseline = 85.0

	bothBonus = 0.07
)

var recommendedActions = map[detector.RecordType]map[string]string{
	detector.RecordTypeGhost: {
		"high":   "Verify voter status (mortality/migration check)",
		"medium": "Field-verify current residence",
		"low":    "Queue for periodic review at the next roll update",
	},
	detector.RecordTypeDuplicate: {
		"high":   "Cross-reference with the original registration immediately",
		"medium": "Verify addresses to confirm separate individuals",
		"low":    "Manual review; may be distinct family members",
	},
	detector.RecordTypeBoth: {
		"high":   "Escalate: corroborated by independent signals",
		"medium": "Escalate: corroborated by independent signals",
		"low":    "Manual review of both signals",
	},
}

// Explainer builds FlaggedRecords from detector output.
type Explainer struct{}

// New returns an Explainer.
func New() *Explainer {
	return &Explainer{}
}

// Explain reconciles one voter's ghost finding and duplicate-group
// membership into a FlaggedRecord. Either input may be absent (nil group,
// unflagged finding); ok is false when the voter triggered nothing.
func (e *Explainer) Explain(
	f *preprocess.FeatureRecord,
	finding *detector.GhostFinding,
	group *detector.DuplicateGroup,
) (detector.FlaggedRecord, bool) {
	ghostFlagged := finding != nil && finding.IsFlagged
	inGroup := group != nil

	if !ghostFlagged && !inGroup {
		return detector.FlaggedRecord{}, false
	}

	var factors []detector.Factor
	var confidence float64
	var recordType detector.RecordType

	var ghostConf, dupConf float64
	if ghostFlagged {
		ghostConf = e.ghostConfidence(finding)
		factors = append(factors, ghostFactors(finding)...)
	}
	if inGroup {
		var dupFactors []detector.Factor
		dupConf, dupFactors = e.duplicateEvidence(f, group)
		factors = append(factors, dupFactors...)
	}

	switch {
	case ghostFlagged && inGroup:
		recordType = detector.RecordTypeBoth
		confidence = max(ghostConf, dupConf) + bothBonus
	case ghostFlagged:
		recordType = detector.RecordTypeGhost
		confidence = ghostConf
	default:
		recordType = detector.RecordTypeDuplicate
		confidence = dupConf
	}
	if confidence > 1 {
		confidence = 1
	}

	sort.SliceStable(factors, func(i, j int) bool {
		return factors[i].Weight > factors[j].Weight
	})

	rec := detector.FlaggedRecord{
		VoterID:             f.VoterID,
		Name:                f.RawName,
		RecordType:          recordType,
		Confidence:          confidence,
		ContributingFactors: factors,
		PrimaryReason:       primaryReason(factors),
	}
	if inGroup {
		rec.GroupID = group.GroupID
	}
	rec.RecommendedAction = recommendedActions[recordType][detector.Severity(confidence)]
	return rec, true
}

// ghostConfidence derives a confidence from which signals fired: the age
// rule alone carries a high fixed value, the anomaly signal scales with its
// score magnitude, and every additional corroborating signal adds a small
// boost.
func (e *Explainer) ghostConfidence(finding *detector.GhostFinding) float64 {
	base := 0.0
	for _, hit := range finding.TriggeredRules {
		base = max(base, hitWeight(finding, hit))
	}
	conf := base + extraRuleBoost*float64(len(finding.TriggeredRules)-1)
	return min(conf, ghostConfidenceCap)
}

func hitWeight(finding *detector.GhostFinding, hit detector.RuleHit) float64 {
	switch hit.Confidence {
	case detector.ConfidenceHigh:
		return ageRuleConfidence
	case detector.ConfidenceModel:
		return min(-finding.AnomalyScore, anomalyConfidenceCap)
	default:
		return mediumRuleConfidence
	}
}

// duplicateEvidence derives the duplicate-side confidence and factors from
// the voter's best pairwise match: similarity rescaled from [85,100] onto
// [0.6,0.95], plus a phonetic corroboration boost.
func (e *Explainer) duplicateEvidence(
	f *preprocess.FeatureRecord,
	group *detector.DuplicateGroup,
) (float64, []detector.Factor) {
	best, other, ok := group.BestScoreFor(f.VoterID)
	if !ok {
		// Member joined the group transitively without a direct comparison;
		// use the group's weakest direct evidence instead. Keys are walked in
		// sorted order so equal-similarity pairs resolve the same way every run.
		keys := make([]detector.PairKey, 0, len(group.PairwiseScores))
		for key := range group.PairwiseScores {
			keys = append(keys, key)
		}
		sort.Slice(keys, func(i, j int) bool {
			return keys[i].String() < keys[j].String()
		})
		for _, key := range keys {
			if score := group.PairwiseScores[key]; !ok || score.Similarity < best.Similarity {
				best = score
				ok = true
			}
		}
	}

	span := best.Similarity - similarityBaseline
	if span < 0 {
		span = 0
	}
	conf := duplicateFloor + (span/(100-similarityBaseline))*duplicateScale
	if best.PhoneticMatch {
		conf += phoneticBoost
	}
	conf = min(conf, 1)

	others := make([]string, 0, len(group.Members)-1)
	for _, id := range group.Members {
		if id != f.VoterID {
			others = append(others, id)
		}
	}

	similarityValue := fmt.Sprintf("%.0f%%", best.Similarity)
	if other != "" {
		similarityValue = fmt.Sprintf("%.0f%% vs %s", best.Similarity, other)
	}

	factors := []detector.Factor{
		{
			Name:   "Matching registration",
			Value:  strings.Join(others, ", "),
			Weight: conf,
		},
		{
			Name:   "Name similarity",
			Value:  similarityValue,
			Weight: best.Similarity / 100,
		},
		{
			Name:   "Date of birth match",
			Value:  group.DateOfBirth,
			Weight: 0.45,
		},
	}
	if group.PincodeBlocked {
		factors = append(factors, detector.Factor{
			Name:   "Pincode match",
			Value:  f.Pincode,
			Weight: 0.4,
		})
	}
	if best.PhoneticMatch {
		factors = append(factors, detector.Factor{
			Name:   "Phonetic match",
			Value:  f.PhoneticCode,
			Weight: 0.35,
		})
	}
	return conf, factors
}

func ghostFactors(finding *detector.GhostFinding) []detector.Factor {
	factors := make([]detector.Factor, 0, len(finding.TriggeredRules))
	for _, hit := range finding.TriggeredRules {
		factors = append(factors, detector.Factor{
			Name:   hit.Label,
			Value:  hit.Value,
			Weight: hitWeight(finding, hit),
		})
	}
	return factors
}

// primaryReason renders the strongest factor as a short sentence.
func primaryReason(factors []detector.Factor) string {
	if len(factors) == 0 {
		return ""
	}
	top := factors[0]
	if top.Value == "" {
		return top.Name
	}
	return fmt.Sprintf("%s: %s", top.Name, top.Value)
}
