// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"strings"
	"testing"
	"time"
)

func TestReadRecords_CanonicalHeader(t *testing.T) {
	input := `voter_id,name,dob,gender,address,pincode,last_voted_year,registration_year
DLABC1234567,Ravi Kumar,01-01-1950,Male,"12 MG Road, Bengaluru",560001,2019,1972
MHXYZ7654321,Sunita Devi,1985-06-15,Female,"4 Hill View",400001,2024,2004
`
	records, err := ReadRecords(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	first := records[0]
	if first.VoterID != "DLABC1234567" {
		t.Errorf("voter_id = %q", first.VoterID)
	}
	if got := first.DateOfBirth; got != time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC) {
		t.Errorf("dob = %v", got)
	}
	if first.LastVotedYear != 2019 {
		t.Errorf("last_voted_year = %d", first.LastVotedYear)
	}
	if first.Row != 2 {
		t.Errorf("row = %d, want 2", first.Row)
	}

	// Second record uses the ISO date layout.
	if got := records[1].DateOfBirth; got != time.Date(1985, 6, 15, 0, 0, 0, 0, time.UTC) {
		t.Errorf("iso dob = %v", got)
	}
}

func TestReadRecords_AliasedHeader(t *testing.T) {
	input := `Voter_ID,First_Name,Last_Name,DOB,Zip_Code,Last_Voted
KA1,Ravi,Kumar,02-03-1960,560001,2019
`
	records, err := ReadRecords(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Name != "Ravi Kumar" {
		t.Errorf("name = %q, want joined first+last", records[0].Name)
	}
	if records[0].Pincode != "560001" {
		t.Errorf("pincode = %q", records[0].Pincode)
	}
}

func TestReadRecords_NeverVoted(t *testing.T) {
	cases := []struct {
		name  string
		value string
	}{
		{"empty", ""},
		{"never voted literal", "Never Voted"},
		{"na", "N/A"},
		{"implausible year", "1234"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := "voter_id,name,dob,last_voted_year\nV1,Asha Rao,01-01-1980," + tc.value + "\n"
			records, err := ReadRecords(strings.NewReader(input))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !records[0].NeverVoted() {
				t.Errorf("value %q should parse as never voted", tc.value)
			}
		})
	}
}

func TestReadRecords_MissingNameColumn(t *testing.T) {
	input := "voter_id,dob\nV1,01-01-1980\n"
	if _, err := ReadRecords(strings.NewReader(input)); err == nil {
		t.Fatal("expected error for header without name columns")
	}
}

func TestReadRecords_InvalidDOBKept(t *testing.T) {
	// A bad DOB must not fail ingestion; the preprocessor reports it.
	input := "voter_id,name,dob\nV1,Asha Rao,not-a-date\n"
	records, err := ReadRecords(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records[0].HasDateOfBirth() {
		t.Error("invalid DOB should produce zero time")
	}
	if records[0].RawDateOfBirth != "not-a-date" {
		t.Errorf("raw DOB = %q, want original string", records[0].RawDateOfBirth)
	}
}

func TestReadRecords_Empty(t *testing.T) {
	records, err := ReadRecords(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
}

func TestParseDate_Layouts(t *testing.T) {
	want := time.Date(1950, 12, 31, 0, 0, 0, 0, time.UTC)
	for _, s := range []string{"31-12-1950", "1950-12-31", "31/12/1950"} {
		if got := ParseDate(s); got != want {
			t.Errorf("ParseDate(%q) = %v, want %v", s, got, want)
		}
	}
	if got := ParseDate("13-13-1950"); !got.IsZero() {
		t.Errorf("impossible date should be zero, got %v", got)
	}
}
