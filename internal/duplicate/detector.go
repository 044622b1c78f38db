// SPDX-License-Identifier: Apache-2.0

// Package duplicate finds registry entries that describe the same physical
// person. Records are first partitioned into blocks on (DOB, pincode) — an
// exact-match key that bounds pairwise comparisons by the sum of squared
// block sizes instead of the square of the population — then compared with
// a token-order-insensitive name similarity, corroborated by phonetic codes
// and grouped by union-find into disjoint duplicate groups.
package duplicate

import (
	"sort"

	"rollscan/internal/detector"
	"rollscan/internal/preprocess"
)

// borderlineMargin widens the candidate threshold into a band in which a
// phonetic mismatch demotes an otherwise borderline pair. Coincidental
// short-name matches land in this band far more often than true spelling
// variants do.
const borderlineMargin = 5.0

// Config carries the recognized duplicate-detection tunables.
type Config struct {
	// NameSimilarityThreshold is the minimum token-sort ratio for a
	// candidate match. Default 85.
	NameSimilarityThreshold float64
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{NameSimilarityThreshold: 85}
}

// Detector finds duplicate groups over a preprocessed population.
type Detector struct {
	cfg Config
}

// NewDetector returns a Detector for cfg, filling zero-valued fields with
// the documented defaults.
func NewDetector(cfg Config) *Detector {
	if cfg.NameSimilarityThreshold == 0 {
		cfg.NameSimilarityThreshold = DefaultConfig().NameSimilarityThreshold
	}
	return &Detector{cfg: cfg}
}

// block is one exact-match bucket. Records with a valid pincode block on
// (DOB, pincode); records without one fall back to DOB alone, trading
// pincode evidence for recall.
type block struct {
	dob        string
	hasPincode bool
	members    []*preprocess.FeatureRecord
}

// Detect returns the disjoint duplicate groups of the population. Groups
// are ordered by their first member's position in the input; members within
// a group are sorted by voter id, and group ids are derived from the
// smallest member id so identical inputs produce identical groups.
func (d *Detector) Detect(features []preprocess.FeatureRecord) []detector.DuplicateGroup {
	blocks := buildBlocks(features)

	uf := newUnionFind()
	pairScores := make(map[detector.PairKey]detector.PairScore)
	blockOf := make(map[string]*block)

	for _, blk := range blocks {
		for i := 0; i < len(blk.members); i++ {
			for j := i + 1; j < len(blk.members); j++ {
				a, b := blk.members[i], blk.members[j]
				score, ok := d.matchPair(a, b)
				if !ok {
					continue
				}
				uf.union(a.VoterID, b.VoterID)
				pairScores[detector.NewPairKey(a.VoterID, b.VoterID)] = score
				blockOf[a.VoterID] = blk
				blockOf[b.VoterID] = blk
			}
		}
	}

	return assembleGroups(features, uf, pairScores, blockOf)
}

// matchPair decides whether two same-block records are a candidate match.
func (d *Detector) matchPair(a, b *preprocess.FeatureRecord) (detector.PairScore, bool) {
	if len(a.NameTokens) == 0 || len(b.NameTokens) == 0 {
		return detector.PairScore{}, false
	}

	ratio := TokenSortRatio(a.NameTokens, b.NameTokens)
	if ratio < d.cfg.NameSimilarityThreshold {
		return detector.PairScore{}, false
	}

	phoneticMatch := a.PhoneticCode != "" && a.PhoneticCode == b.PhoneticCode
	// Borderline ratio without phonetic agreement: demote below threshold.
	if !phoneticMatch &&
		a.PhoneticCode != "" && b.PhoneticCode != "" &&
		ratio < d.cfg.NameSimilarityThreshold+borderlineMargin {
		return detector.PairScore{}, false
	}

	return detector.PairScore{Similarity: ratio, PhoneticMatch: phoneticMatch}, true
}

func buildBlocks(features []preprocess.FeatureRecord) []*block {
	index := make(map[string]*block)
	var ordered []*block

	for i := range features {
		f := &features[i]
		key := f.DateOfBirth + "|"
		hasPincode := f.PincodeValid
		if hasPincode {
			key += f.Pincode
		}
		blk, ok := index[key]
		if !ok {
			blk = &block{dob: f.DateOfBirth, hasPincode: hasPincode}
			index[key] = blk
			ordered = append(ordered, blk)
		}
		blk.members = append(blk.members, f)
	}
	return ordered
}

func assembleGroups(
	features []preprocess.FeatureRecord,
	uf *unionFind,
	pairScores map[detector.PairKey]detector.PairScore,
	blockOf map[string]*block,
) []detector.DuplicateGroup {
	memberships := make(map[string][]string)
	var rootOrder []string

	// Walk in input order so group order is stable.
	for i := range features {
		id := features[i].VoterID
		if _, matched := blockOf[id]; !matched {
			continue
		}
		root := uf.find(id)
		if _, seen := memberships[root]; !seen {
			rootOrder = append(rootOrder, root)
		}
		memberships[root] = append(memberships[root], id)
	}

	groups := make([]detector.DuplicateGroup, 0, len(rootOrder))
	for _, root := range rootOrder {
		members := memberships[root]
		if len(members) < 2 {
			continue
		}
		sort.Strings(members)

		scores := make(map[detector.PairKey]detector.PairScore)
		for key, score := range pairScores {
			if uf.find(key.A) == root {
				scores[key] = score
			}
		}

		blk := blockOf[members[0]]
		groups = append(groups, detector.DuplicateGroup{
			GroupID:        "grp-" + members[0],
			Members:        members,
			PairwiseScores: scores,
			PincodeBlocked: blk.hasPincode,
			DateOfBirth:    blk.dob,
		})
	}
	return groups
}
