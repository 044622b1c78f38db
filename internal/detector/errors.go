// SPDX-License-Identifier: Apache-2.0

package detector

import (
	"errors"
	"fmt"
)

// MalformedRecordError reports a single unusable input record. It is
// non-fatal: the record is excluded from the run and surfaced in the skip
// list.
type MalformedRecordError struct {
	VoterID string
	Row     int
	Field   string
	Reason  string
}

func (e *MalformedRecordError) Error() string {
	id := e.VoterID
	if id == "" {
		id = fmt.Sprintf("row %d", e.Row)
	}
	return fmt.Sprintf("malformed record %s: %s (field %q)", id, e.Reason, e.Field)
}

// Issue converts the error into its skip-list representation.
func (e *MalformedRecordError) Issue() RecordIssue {
	return RecordIssue{VoterID: e.VoterID, Row: e.Row, Field: e.Field, Reason: e.Reason}
}

// InsufficientDataError signals that the population was too small to fit the
// anomaly model. The ghost detector degrades to rules-only; this never
// aborts a run.
type InsufficientDataError struct {
	Population int
	Minimum    int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("population %d below minimum %d for anomaly model; deterministic rules only",
		e.Population, e.Minimum)
}

// PipelineAbortedError is the single fatal error of a run. No partial
// flagged-record set accompanies it; Issues carries whatever per-record
// problems were collected before the abort.
type PipelineAbortedError struct {
	Stage  string
	Reason string
	Issues []RecordIssue
	Err    error
}

func (e *PipelineAbortedError) Error() string {
	msg := fmt.Sprintf("pipeline aborted during %s: %s", e.Stage, e.Reason)
	if len(e.Issues) > 0 {
		msg = fmt.Sprintf("%s (%d record issues)", msg, len(e.Issues))
	}
	return msg
}

func (e *PipelineAbortedError) Unwrap() error {
	return e.Err
}

// IsAborted reports whether err is (or wraps) a PipelineAbortedError.
func IsAborted(err error) bool {
	var aborted *PipelineAbortedError
	return errors.As(err, &aborted)
}
