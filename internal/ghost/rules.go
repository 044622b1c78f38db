// SPDX-License-Identifier: Apache-2.0

package ghost

import (
	"fmt"

	"rollscan/internal/detector"
	"rollscan/internal/preprocess"
)

// Fixed historical cutoffs. Registrations older than registrationCutoffYear
// with no corroborating activity predate the modern roll and are a known
// source of stale entries; votes before inactivityCutoffYear are treated as
// no recent activity regardless of the configured span.
const (
	registrationCutoffYear = 1970
	inactivityCutoffYear   = 2000
)

// evaluateRules applies the deterministic rule set to one record. Hits are
// returned in fixed order (age, inactivity, registration) so findings are
// stable across runs.
func (d *Detector) evaluateRules(f *preprocess.FeatureRecord) []detector.RuleHit {
	var hits []detector.RuleHit

	if f.Age >= d.cfg.AgeThreshold {
		hits = append(hits, detector.RuleHit{
			Rule:       RuleImplausibleAge,
			Label:      "Implausible age",
			Value:      fmt.Sprintf("%d years", f.Age),
			Confidence: detector.ConfidenceHigh,
		})
	}

	if inactive, value := d.inactivity(f); inactive {
		hits = append(hits, detector.RuleHit{
			Rule:       RuleInactivity,
			Label:      "Extended voting inactivity",
			Value:      value,
			Confidence: detector.ConfidenceMedium,
		})
	}

	if f.RegistrationYear > 0 && f.RegistrationYear < registrationCutoffYear && !d.recentActivity(f) {
		hits = append(hits, detector.RuleHit{
			Rule:       RuleStaleRegistration,
			Label:      "Historical registration without recent activity",
			Value:      fmt.Sprintf("registered %d", f.RegistrationYear),
			Confidence: detector.ConfidenceMedium,
		})
	}

	return hits
}

func (d *Detector) inactivity(f *preprocess.FeatureRecord) (bool, string) {
	switch {
	case f.NeverVoted:
		return true, "never voted"
	case f.LastVotedYear < inactivityCutoffYear:
		return true, fmt.Sprintf("last voted %d", f.LastVotedYear)
	case f.InactivityYears >= d.cfg.InactivityYears:
		return true, fmt.Sprintf("no vote in %d years", f.InactivityYears)
	default:
		return false, ""
	}
}

// recentActivity reports whether the voter has voted recently enough to
// corroborate an old registration.
func (d *Detector) recentActivity(f *preprocess.FeatureRecord) bool {
	if f.NeverVoted {
		return false
	}
	return f.LastVotedYear >= inactivityCutoffYear && f.InactivityYears < d.cfg.InactivityYears
}
