// SPDX-License-Identifier: Apache-2.0

package json

import (
	"encoding/json"
	"fmt"
	"sort"

	"rollscan/internal/detector"
	"rollscan/internal/formatters"
)

// Formatter implements JSON output formatting
type Formatter struct{}

// NewFormatter creates a new JSON formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "json"
}

func (f *Formatter) Description() string {
	return "Structured JSON report for programmatic consumption"
}

func (f *Formatter) FileExtension() string {
	return ".json"
}

// pairEntry is the JSON shape of one pairwise comparison inside a group.
type pairEntry struct {
	VoterA        string  `json:"voter_a"`
	VoterB        string  `json:"voter_b"`
	Similarity    float64 `json:"similarity"`
	PhoneticMatch bool    `json:"phonetic_match"`
}

type groupEntry struct {
	detector.DuplicateGroup
	Pairs []pairEntry `json:"pairwise_scores"`
}

type report struct {
	Summary detector.Summary         `json:"summary"`
	Flagged []detector.FlaggedRecord `json:"flagged_records"`
	Groups  []groupEntry             `json:"duplicate_groups"`
}

func (f *Formatter) Format(rep detector.Report, options formatters.FormatterOptions) (string, error) {
	out := report{
		Summary: rep.Summary,
		Flagged: formatters.FilterBySeverity(rep.Flagged, options),
		Groups:  make([]groupEntry, 0, len(rep.Groups)),
	}
	if out.Flagged == nil {
		out.Flagged = []detector.FlaggedRecord{}
	}

	for _, group := range rep.Groups {
		entry := groupEntry{DuplicateGroup: group, Pairs: make([]pairEntry, 0, len(group.PairwiseScores))}
		for key, score := range group.PairwiseScores {
			entry.Pairs = append(entry.Pairs, pairEntry{
				VoterA:        key.A,
				VoterB:        key.B,
				Similarity:    score.Similarity,
				PhoneticMatch: score.PhoneticMatch,
			})
		}
		// Map iteration order is random; keep the report stable.
		sort.Slice(entry.Pairs, func(i, j int) bool {
			if entry.Pairs[i].VoterA != entry.Pairs[j].VoterA {
				return entry.Pairs[i].VoterA < entry.Pairs[j].VoterA
			}
			return entry.Pairs[i].VoterB < entry.Pairs[j].VoterB
		})
		out.Groups = append(out.Groups, entry)
	}

	jsonData, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("error formatting JSON: %w", err)
	}
	return string(jsonData), nil
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
