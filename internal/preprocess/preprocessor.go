// SPDX-License-Identifier: Apache-2.0

// Package preprocess derives the per-voter feature set consumed by both
// detectors. One FeatureRecord per usable input record, order preserved;
// unusable records are excluded and reported, never silently dropped.
package preprocess

import (
	"regexp"
	"strings"
	"time"

	"rollscan/internal/detector"
	"rollscan/internal/registry"
)

// NeverVotedSpan is the inactivity sentinel for voters with no recorded
// vote. Large enough to exceed any real span and to isolate cleanly in the
// anomaly model.
const NeverVotedSpan = 999

var pincodeRe = regexp.MustCompile(`^[1-9][0-9]{5}$`)

// FeatureRecord is the preprocessed view of one voter, derived 1:1 from a
// VoterRecord and consumed read-only by the detectors. Gender and other
// demographic attributes are deliberately absent.
type FeatureRecord struct {
	VoterID        string
	RawName        string
	NameTokens     []string
	NormalizedName string
	PhoneticCode   string

	Age             int
	DateOfBirth     string // canonical YYYY-MM-DD, blocking key component
	Pincode         string
	PincodeValid    bool
	LastVotedYear   int
	NeverVoted      bool
	InactivityYears int
	RegistrationYear int
	RegistrationEra  int // decade bucket, e.g. 1972 -> 1970
}

// Preprocessor normalizes raw voter records against a fixed reference date
// so repeated runs over the same snapshot are identical.
type Preprocessor struct {
	referenceDate time.Time
}

// New returns a Preprocessor anchored at referenceDate. A zero
// referenceDate means "now".
func New(referenceDate time.Time) *Preprocessor {
	if referenceDate.IsZero() {
		referenceDate = time.Now().UTC()
	}
	return &Preprocessor{referenceDate: referenceDate}
}

// ReferenceDate returns the anchor date for age and inactivity computation.
func (p *Preprocessor) ReferenceDate() time.Time {
	return p.referenceDate
}

// Run derives one FeatureRecord per input record, preserving order and
// voter id. Records missing a voter id or a computable DOB are excluded and
// reported as issues; an invalid pincode is reported but only disqualifies
// the record from pincode-based duplicate blocking.
func (p *Preprocessor) Run(records []registry.VoterRecord) ([]FeatureRecord, []detector.RecordIssue) {
	features := make([]FeatureRecord, 0, len(records))
	var issues []detector.RecordIssue

	for i := range records {
		rec := &records[i]
		feature, err := p.derive(rec)
		if err != nil {
			issues = append(issues, err.Issue())
			continue
		}
		if feature.Pincode != "" && !feature.PincodeValid {
			issues = append(issues, detector.RecordIssue{
				VoterID: rec.VoterID,
				Row:     rec.Row,
				Field:   "pincode",
				Reason:  "invalid pincode format; excluded from pincode blocking",
			})
		}
		features = append(features, feature)
	}
	return features, issues
}

func (p *Preprocessor) derive(rec *registry.VoterRecord) (FeatureRecord, *detector.MalformedRecordError) {
	if strings.TrimSpace(rec.VoterID) == "" {
		return FeatureRecord{}, &detector.MalformedRecordError{
			Row: rec.Row, Field: "voter_id", Reason: "missing voter id",
		}
	}
	if !rec.HasDateOfBirth() {
		return FeatureRecord{}, &detector.MalformedRecordError{
			VoterID: rec.VoterID, Row: rec.Row, Field: "date_of_birth",
			Reason: "missing or unparseable date of birth",
		}
	}

	age := yearsBetween(rec.DateOfBirth, p.referenceDate)
	if age < 0 {
		return FeatureRecord{}, &detector.MalformedRecordError{
			VoterID: rec.VoterID, Row: rec.Row, Field: "date_of_birth",
			Reason: "date of birth after reference date",
		}
	}

	tokens := NormalizeName(rec.Name)
	refYear := p.referenceDate.Year()

	f := FeatureRecord{
		VoterID:          rec.VoterID,
		RawName:          rec.Name,
		NameTokens:       tokens,
		NormalizedName:   strings.Join(tokens, " "),
		PhoneticCode:     PhoneticKey(tokens),
		Age:              age,
		DateOfBirth:      rec.DateOfBirth.Format("2006-01-02"),
		Pincode:          rec.Pincode,
		PincodeValid:     pincodeRe.MatchString(rec.Pincode),
		LastVotedYear:    rec.LastVotedYear,
		NeverVoted:       rec.NeverVoted(),
		RegistrationYear: rec.RegistrationYear,
	}

	if f.NeverVoted {
		f.InactivityYears = NeverVotedSpan
	} else {
		f.InactivityYears = refYear - rec.LastVotedYear
		if f.InactivityYears < 0 {
			f.InactivityYears = 0
		}
	}

	regYear := rec.RegistrationYear
	if regYear == 0 {
		// Unknown registration year: assume current era rather than
		// fabricating a suspicious historical one.
		regYear = refYear
	}
	f.RegistrationEra = (regYear / 10) * 10

	return f, nil
}

// yearsBetween is floor((to - from) in years) on calendar dates.
func yearsBetween(from, to time.Time) int {
	years := to.Year() - from.Year()
	if to.Month() < from.Month() ||
		(to.Month() == from.Month() && to.Day() < from.Day()) {
		years--
	}
	return years
}
