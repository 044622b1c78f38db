// SPDX-License-Identifier: Apache-2.0

// Command gendata writes a synthetic voter-registry CSV with a configurable
// share of implausible-age records and near-duplicate name variants. Output
// is deterministic for a given seed, which makes it usable in demos and
// repeatable load tests.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"
)

var electionYears = []int{2024, 2019, 2014, 2009, 2004, 1999}

var stateCodes = []string{"DL", "MH", "KA", "TN", "UP", "GJ", "RJ", "WB", "MP", "AP", "KL", "HR", "PB", "BR", "OR"}

var firstNames = []string{
	"Ravi", "Priya", "Arjun", "Sita", "Mangal", "Leela", "Farhan", "Anita",
	"Suresh", "Kavita", "Deepak", "Meena", "Rahul", "Pooja", "Vikram", "Asha",
	"Sanjay", "Rekha", "Amit", "Sunita", "Rajesh", "Geeta", "Manoj", "Lakshmi",
}

var lastNames = []string{
	"Kumar", "Sharma", "Singh", "Devi", "Patel", "Reddy", "Nair", "Sheikh",
	"Gupta", "Mehta", "Iyer", "Chauhan", "Das", "Bose", "Joshi", "Rao",
}

type generator struct {
	rng     *rand.Rand
	today   time.Time
	usedIDs map[string]bool
}

func newGenerator(seed int64) *generator {
	return &generator{
		rng:     rand.New(rand.NewSource(seed)),
		today:   time.Now(),
		usedIDs: make(map[string]bool),
	}
}

// voterID produces a unique EPIC-style identifier: state code, three letters,
// seven digits.
func (g *generator) voterID() string {
	for {
		var b strings.Builder
		b.WriteString(stateCodes[g.rng.Intn(len(stateCodes))])
		for i := 0; i < 3; i++ {
			b.WriteByte(byte('A' + g.rng.Intn(26)))
		}
		for i := 0; i < 7; i++ {
			b.WriteByte(byte('0' + g.rng.Intn(10)))
		}
		id := b.String()
		if !g.usedIDs[id] {
			g.usedIDs[id] = true
			return id
		}
	}
}

func (g *generator) name() string {
	return firstNames[g.rng.Intn(len(firstNames))] + " " + lastNames[g.rng.Intn(len(lastNames))]
}

func (g *generator) dob(minAge, maxAge int) time.Time {
	days := g.rng.Intn((maxAge - minAge) * 365)
	return g.today.AddDate(-maxAge, 0, days)
}

func (g *generator) pincode() string {
	var b strings.Builder
	b.WriteByte(byte('1' + g.rng.Intn(8)))
	for i := 0; i < 5; i++ {
		b.WriteByte(byte('0' + g.rng.Intn(10)))
	}
	return b.String()
}

func (g *generator) registrationYear(birthYear int) int {
	minYear := birthYear + 18
	if minYear < 1949 {
		minYear = 1949
	}
	maxYear := g.today.Year()
	if minYear > maxYear {
		return 1949 + g.rng.Intn(32)
	}
	return minYear + g.rng.Intn(maxYear-minYear+1)
}

func (g *generator) lastVotedYear(registrationYear int) string {
	var valid []int
	for _, year := range electionYears {
		if year >= registrationYear {
			valid = append(valid, year)
		}
	}
	// One in ten voters has no recorded vote.
	if len(valid) == 0 || g.rng.Float64() < 0.10 {
		return "Never Voted"
	}
	return strconv.Itoa(valid[g.rng.Intn(len(valid))])
}

type row struct {
	voterID          string
	name             string
	dob              time.Time
	gender           string
	address          string
	pincode          string
	registrationYear int
	lastVotedYear    string
}

func (g *generator) record(ghost bool) row {
	var born time.Time
	if ghost {
		born = g.dob(111, 140)
	} else {
		born = g.dob(18, 90)
	}
	regYear := g.registrationYear(born.Year())
	gender := "Male"
	if g.rng.Float64() < 0.48 {
		gender = "Female"
	}
	return row{
		voterID:          g.voterID(),
		name:             g.name(),
		dob:              born,
		gender:           gender,
		address:          fmt.Sprintf("%d, Ward %d", 1+g.rng.Intn(999), 1+g.rng.Intn(50)),
		pincode:          g.pincode(),
		registrationYear: regYear,
		lastVotedYear:    g.lastVotedYear(regYear),
	}
}

// vary produces a near-duplicate spelling of a name: a doubled vowel, a
// doubled final letter, or a dropped final letter.
func (g *generator) vary(name string) string {
	switch g.rng.Intn(3) {
	case 0:
		for _, v := range []string{"a", "i", "u"} {
			if idx := strings.Index(name, v); idx >= 0 {
				return name[:idx] + v + name[idx:]
			}
		}
		return name + name[len(name)-1:]
	case 1:
		return name + name[len(name)-1:]
	default:
		if len(name) > 4 {
			return name[:len(name)-1]
		}
		return name + name[len(name)-1:]
	}
}

func (g *generator) duplicateOf(original row) row {
	dup := original
	dup.voterID = g.voterID()
	dup.name = g.vary(original.name)
	return dup
}

func main() {
	count := flag.Int("count", 10000, "Total number of records to generate")
	ghostFraction := flag.Float64("ghost-fraction", 0.05, "Fraction of implausible-age records")
	duplicateFraction := flag.Float64("duplicate-fraction", 0.05, "Fraction of near-duplicate records")
	seed := flag.Int64("seed", 42, "Random seed (same seed produces the same registry)")
	outFile := flag.String("out", "voter_data.csv", "Output CSV path")
	flag.Parse()

	numGhosts := int(float64(*count) * *ghostFraction)
	numDuplicates := int(float64(*count) * *duplicateFraction)
	numNormal := *count - numGhosts - numDuplicates
	if numNormal <= 0 {
		fmt.Fprintf(os.Stderr, "Error: ghost and duplicate fractions leave no normal records\n")
		os.Exit(1)
	}

	g := newGenerator(*seed)
	rows := make([]row, 0, *count)
	for i := 0; i < numNormal; i++ {
		rows = append(rows, g.record(false))
	}
	for i := 0; i < numGhosts; i++ {
		rows = append(rows, g.record(true))
	}
	for i := 0; i < numDuplicates; i++ {
		rows = append(rows, g.duplicateOf(rows[g.rng.Intn(numNormal)]))
	}
	g.rng.Shuffle(len(rows), func(i, j int) {
		rows[i], rows[j] = rows[j], rows[i]
	})

	f, err := os.Create(*outFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating %s: %v\n", *outFile, err)
		os.Exit(1)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"voter_id", "name", "dob", "gender", "address", "pincode", "registration_year", "last_voted_year"}
	if err := w.Write(header); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing header: %v\n", err)
		os.Exit(1)
	}
	for _, r := range rows {
		record := []string{
			r.voterID,
			r.name,
			r.dob.Format("02-01-2006"),
			r.gender,
			r.address,
			r.pincode,
			strconv.Itoa(r.registrationYear),
			r.lastVotedYear,
		}
		if err := w.Write(record); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing record: %v\n", err)
			os.Exit(1)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		fmt.Fprintf(os.Stderr, "Error flushing output: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %d records to %s (%d normal, %d ghost, %d duplicate)\n",
		len(rows), *outFile, numNormal, numGhosts, numDuplicates)
}
