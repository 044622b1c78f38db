// SPDX-License-Identifier: Apache-2.0

package detector

import "testing"

func TestBestScoreFor(t *testing.T) {
	t.Run("higher similarity wins", func(t *testing.T) {
		g := &DuplicateGroup{PairwiseScores: map[PairKey]PairScore{
			NewPairKey("V2", "V1"): {Similarity: 90},
			NewPairKey("V2", "V3"): {Similarity: 95},
		}}
		best, other, ok := g.BestScoreFor("V2")
		if !ok {
			t.Fatal("no score found")
		}
		if best.Similarity != 95 || other != "V3" {
			t.Errorf("best = %.0f vs %s, want 95 vs V3", best.Similarity, other)
		}
	})

	t.Run("phonetic match breaks similarity tie", func(t *testing.T) {
		g := &DuplicateGroup{PairwiseScores: map[PairKey]PairScore{
			NewPairKey("V2", "V1"): {Similarity: 92},
			NewPairKey("V2", "V3"): {Similarity: 92, PhoneticMatch: true},
		}}
		best, other, ok := g.BestScoreFor("V2")
		if !ok {
			t.Fatal("no score found")
		}
		if !best.PhoneticMatch || other != "V3" {
			t.Errorf("best = %+v vs %s, want phonetic match vs V3", best, other)
		}
	})

	t.Run("full tie resolves to smallest partner id", func(t *testing.T) {
		g := &DuplicateGroup{PairwiseScores: map[PairKey]PairScore{
			NewPairKey("V2", "V1"): {Similarity: 100, PhoneticMatch: true},
			NewPairKey("V2", "V3"): {Similarity: 100, PhoneticMatch: true},
			NewPairKey("V1", "V3"): {Similarity: 100, PhoneticMatch: true},
		}}
		// Map iteration order varies per pass; the pick must not.
		for i := 0; i < 50; i++ {
			_, other, ok := g.BestScoreFor("V2")
			if !ok {
				t.Fatal("no score found")
			}
			if other != "V1" {
				t.Fatalf("pass %d: partner = %s, want V1", i, other)
			}
		}
	})

	t.Run("voter in no pair", func(t *testing.T) {
		g := &DuplicateGroup{PairwiseScores: map[PairKey]PairScore{
			NewPairKey("V1", "V3"): {Similarity: 100},
		}}
		if _, _, ok := g.BestScoreFor("V2"); ok {
			t.Error("found a score for an uncompared voter")
		}
	})
}
