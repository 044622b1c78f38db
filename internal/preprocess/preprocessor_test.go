// SPDX-License-Identifier: Apache-2.0

package preprocess

import (
	"testing"
	"time"

	"rollscan/internal/registry"
)

var refDate = time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

func record(id, name, dob, pincode string, lastVoted, regYear int) registry.VoterRecord {
	return registry.VoterRecord{
		VoterID:          id,
		Name:             name,
		DateOfBirth:      registry.ParseDate(dob),
		RawDateOfBirth:   dob,
		Pincode:          pincode,
		LastVotedYear:    lastVoted,
		RegistrationYear: regYear,
	}
}

func TestRun_DerivesFeatures(t *testing.T) {
	p := New(refDate)
	features, issues := p.Run([]registry.VoterRecord{
		record("V1", "Ravi Kumar", "01-01-1950", "560001", 2019, 1972),
	})
	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
	if len(features) != 1 {
		t.Fatalf("expected 1 feature record, got %d", len(features))
	}

	f := features[0]
	if f.Age != 76 {
		t.Errorf("age = %d, want 76", f.Age)
	}
	if f.NormalizedName != "ravi kumar" {
		t.Errorf("normalized name = %q", f.NormalizedName)
	}
	if f.DateOfBirth != "1950-01-01" {
		t.Errorf("canonical dob = %q", f.DateOfBirth)
	}
	if !f.PincodeValid {
		t.Error("560001 should be a valid pincode")
	}
	if f.InactivityYears != 7 {
		t.Errorf("inactivity = %d, want 7", f.InactivityYears)
	}
	if f.RegistrationEra != 1970 {
		t.Errorf("registration era = %d, want 1970", f.RegistrationEra)
	}
	if f.PhoneticCode == "" {
		t.Error("expected a phonetic code")
	}
}

func TestRun_AgeFloorsPartialYear(t *testing.T) {
	p := New(refDate)
	// Birthday is after the reference date's month/day, so the year is not
	// yet complete.
	features, _ := p.Run([]registry.VoterRecord{
		record("V1", "Asha Rao", "20-06-1950", "", 0, 0),
	})
	if features[0].Age != 75 {
		t.Errorf("age = %d, want 75 (floor)", features[0].Age)
	}
}

func TestRun_MalformedRecords(t *testing.T) {
	cases := []struct {
		name  string
		rec   registry.VoterRecord
		field string
	}{
		{"missing voter id", record("", "Ravi Kumar", "01-01-1950", "", 0, 0), "voter_id"},
		{"missing dob", record("V1", "Ravi Kumar", "", "", 0, 0), "date_of_birth"},
		{"future dob", record("V2", "Ravi Kumar", "01-01-2030", "", 0, 0), "date_of_birth"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			features, issues := New(refDate).Run([]registry.VoterRecord{tc.rec})
			if len(features) != 0 {
				t.Errorf("malformed record should be excluded, got %d features", len(features))
			}
			if len(issues) != 1 {
				t.Fatalf("expected 1 issue, got %d", len(issues))
			}
			if issues[0].Field != tc.field {
				t.Errorf("issue field = %q, want %q", issues[0].Field, tc.field)
			}
		})
	}
}

func TestRun_InvalidPincodeReportedNotExcluded(t *testing.T) {
	features, issues := New(refDate).Run([]registry.VoterRecord{
		record("V1", "Ravi Kumar", "01-01-1950", "ABC123", 2019, 1972),
	})
	if len(features) != 1 {
		t.Fatalf("record with bad pincode must still be preprocessed, got %d", len(features))
	}
	if features[0].PincodeValid {
		t.Error("ABC123 should not validate")
	}
	if len(issues) != 1 || issues[0].Field != "pincode" {
		t.Errorf("expected one pincode issue, got %v", issues)
	}
}

func TestRun_NeverVotedSentinel(t *testing.T) {
	features, _ := New(refDate).Run([]registry.VoterRecord{
		record("V1", "Ravi Kumar", "01-01-1950", "560001", 0, 1972),
	})
	f := features[0]
	if !f.NeverVoted {
		t.Error("expected NeverVoted")
	}
	if f.InactivityYears != NeverVotedSpan {
		t.Errorf("inactivity = %d, want sentinel %d", f.InactivityYears, NeverVotedSpan)
	}
}

func TestRun_PreservesOrderAndIDs(t *testing.T) {
	input := []registry.VoterRecord{
		record("V3", "C", "01-01-1980", "", 0, 0),
		record("V1", "A", "01-01-1981", "", 0, 0),
		record("V2", "B", "01-01-1982", "", 0, 0),
	}
	features, _ := New(refDate).Run(input)
	want := []string{"V3", "V1", "V2"}
	for i, id := range want {
		if features[i].VoterID != id {
			t.Errorf("position %d: got %q, want %q", i, features[i].VoterID, id)
		}
	}
}

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"lower and collapse", "  Ravi   KUMAR ", "ravi kumar"},
		{"punctuation", "O'Brien, John-Paul", "o brien john paul"},
		{"diacritics", "José Muñoz", "jose munoz"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeName(tc.in)
			joined := ""
			for i, tok := range got {
				if i > 0 {
					joined += " "
				}
				joined += tok
			}
			if joined != tc.want {
				t.Errorf("NormalizeName(%q) = %q, want %q", tc.in, joined, tc.want)
			}
		})
	}
}

func TestPhoneticKey_SpellingVariants(t *testing.T) {
	a := PhoneticKey(NormalizeName("Ravi Kumar"))
	b := PhoneticKey(NormalizeName("Ravi Kummar"))
	if a == "" || a != b {
		t.Errorf("spelling variants should share a phonetic key: %q vs %q", a, b)
	}

	c := PhoneticKey(NormalizeName("Sunita Devi"))
	if a == c {
		t.Errorf("distinct names should not collide: %q", c)
	}
}

func TestPhoneticKey_Deterministic(t *testing.T) {
	tokens := NormalizeName("Ravi Kumar")
	first := PhoneticKey(tokens)
	for i := 0; i < 5; i++ {
		if got := PhoneticKey(tokens); got != first {
			t.Fatalf("phonetic key not deterministic: %q then %q", first, got)
		}
	}
}
