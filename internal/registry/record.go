// SPDX-License-Identifier: Apache-2.0

// Package registry defines the raw voter record and the CSV ingestion
// collaborator that produces it. Records are read-only inputs to the
// detection pipeline; nothing downstream mutates them.
package registry

import "time"

// VoterRecord is one row of the electoral roll as ingested. DateOfBirth is
// the zero time when the source value was missing or unparseable; the
// preprocessor decides what to do about that.
type VoterRecord struct {
	VoterID          string
	Name             string
	DateOfBirth      time.Time
	RawDateOfBirth   string
	Gender           string
	Address          string
	Pincode          string
	LastVotedYear    int
	RegistrationYear int
	// Row is the 1-based source row, kept for skip-list reporting.
	Row int
}

// HasDateOfBirth reports whether a usable date of birth was ingested.
func (r *VoterRecord) HasDateOfBirth() bool {
	return !r.DateOfBirth.IsZero()
}

// NeverVoted reports whether the record carries no recorded vote year.
func (r *VoterRecord) NeverVoted() bool {
	return r.LastVotedYear == 0
}
