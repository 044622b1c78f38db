// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Column aliases accepted case-insensitively. Real rolls arrive with wildly
// inconsistent headers, so ingestion maps them rather than demanding one
// canonical schema.
var columnAliases = map[string][]string{
	"voter_id":          {"voter_id", "voterid", "id", "epic", "epic_number"},
	"name":              {"name", "full_name", "fullname"},
	"first_name":        {"first_name", "firstname", "fname"},
	"last_name":         {"last_name", "lastname", "lname"},
	"dob":               {"dob", "date_of_birth", "dateofbirth", "birth_date"},
	"gender":            {"gender", "sex"},
	"address":           {"address", "residence"},
	"pincode":           {"pincode", "pin", "zip", "zip_code", "zipcode", "postal_code"},
	"last_voted_year":   {"last_voted_year", "last_voted", "lastvotedyear"},
	"registration_year": {"registration_year", "reg_year", "registrationyear"},
}

var dateLayouts = []string{"02-01-2006", "2006-01-02", "02/01/2006", "2006/01/02"}

// neverVotedValues are source strings that mean "no recorded vote".
var neverVotedValues = map[string]bool{
	"": true, "never voted": true, "never": true, "none": true,
	"n/a": true, "na": true, "nan": true, "null": true,
}

// LoadCSV reads an entire registry snapshot from path.
func LoadCSV(path string) ([]VoterRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry file: %w", err)
	}
	defer f.Close()
	return ReadRecords(f)
}

// ReadRecords parses CSV voter rows from r. The first row must be a header.
// Field mapping is case-insensitive and alias-aware; a missing voter_id or
// DOB column is tolerated here (the preprocessor rejects the affected
// records), but a header with neither a name nor first/last name columns is
// an ingestion error.
func ReadRecords(r io.Reader) ([]VoterRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	cols := mapColumns(header)
	if _, hasName := cols["name"]; !hasName {
		if _, hasFirst := cols["first_name"]; !hasFirst {
			return nil, fmt.Errorf("no name column found in header %v", header)
		}
	}

	var records []VoterRecord
	row := 1
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %w", row+1, err)
		}
		row++
		records = append(records, parseRow(fields, cols, row))
	}
	return records, nil
}

// mapColumns resolves header names to canonical column keys.
func mapColumns(header []string) map[string]int {
	cols := make(map[string]int)
	for i, raw := range header {
		name := strings.ToLower(strings.TrimSpace(raw))
		for canonical, aliases := range columnAliases {
			for _, alias := range aliases {
				if name == alias {
					if _, taken := cols[canonical]; !taken {
						cols[canonical] = i
					}
				}
			}
		}
	}
	return cols
}

func parseRow(fields []string, cols map[string]int, row int) VoterRecord {
	get := func(key string) string {
		idx, ok := cols[key]
		if !ok || idx >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[idx])
	}

	rec := VoterRecord{
		VoterID: get("voter_id"),
		Gender:  get("gender"),
		Address: get("address"),
		Pincode: get("pincode"),
		Row:     row,
	}

	rec.Name = get("name")
	if rec.Name == "" {
		rec.Name = strings.TrimSpace(get("first_name") + " " + get("last_name"))
	}

	rec.RawDateOfBirth = get("dob")
	rec.DateOfBirth = ParseDate(rec.RawDateOfBirth)

	rec.LastVotedYear = parseYear(get("last_voted_year"))
	rec.RegistrationYear = parseYear(get("registration_year"))
	return rec
}

// ParseDate tries the accepted date layouts in order and returns the zero
// time when none match.
func ParseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// parseYear coerces a year field to int. Unknown and "never voted" style
// values become 0. Years outside a sane range are treated as absent rather
// than inventing activity that never happened.
func parseYear(s string) int {
	if neverVotedValues[strings.ToLower(strings.TrimSpace(s))] {
		return 0
	}
	year, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		// Some sources export years as floats ("2019.0").
		f, ferr := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if ferr != nil {
			return 0
		}
		year = int(f)
	}
	if year < 1900 || year > 2200 {
		return 0
	}
	return year
}
