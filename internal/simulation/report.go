package simulation

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Summary aggregates the records of one batch.
type Summary struct {
	Encounters int
	// Wins counts encounters won per team.
	Wins map[int]int
	// Draws counts encounters with no surviving team.
	Draws        int
	RoundLimited int
	MeanRounds   float64
}

// Summarize aggregates records.
//
// Postcondition: sum(Wins) + Draws + RoundLimited == len(records).
func Summarize(records []Record) Summary {
	s := Summary{Encounters: len(records), Wins: make(map[int]int)}
	total := 0
	for _, rec := range records {
		total += rec.Rounds
		switch {
		case rec.RoundLimited:
			s.RoundLimited++
		case rec.HasWinner:
			s.Wins[rec.Winner]++
		default:
			s.Draws++
		}
	}
	if len(records) > 0 {
		s.MeanRounds = float64(total) / float64(len(records))
	}
	return s
}

// WinRate returns the share of encounters team won, in [0, 1].
func (s Summary) WinRate(team int) float64 {
	if s.Encounters == 0 {
		return 0
	}
	return float64(s.Wins[team]) / float64(s.Encounters)
}

// String renders a one-line report with teams in ascending order.
func (s Summary) String() string {
	teams := make([]int, 0, len(s.Wins))
	for t := range s.Wins {
		teams = append(teams, t)
	}
	sort.Ints(teams)
	var b strings.Builder
	fmt.Fprintf(&b, "%d encounters", s.Encounters)
	for _, t := range teams {
		fmt.Fprintf(&b, ", team %d won %d (%.1f%%)", t, s.Wins[t], 100*s.WinRate(t))
	}
	fmt.Fprintf(&b, ", %d draws, %d round-limited, %.2f rounds on average", s.Draws, s.RoundLimited, s.MeanRounds)
	return b.String()
}

var csvHeader = []string{
	"run_id", "scenario", "encounter", "seed", "winner", "round_limited", "rounds", "survivors", "duration_us",
}

// WriteCSV writes one header row and one row per record. winner is empty
// when the encounter has no winning team.
//
// Postcondition: Returns the first write error, if any.
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, rec := range records {
		winner := ""
		if rec.HasWinner {
			winner = strconv.Itoa(rec.Winner)
		}
		row := []string{
			rec.RunID,
			rec.Scenario,
			strconv.Itoa(rec.Encounter),
			strconv.FormatInt(rec.Seed, 10),
			winner,
			strconv.FormatBool(rec.RoundLimited),
			strconv.Itoa(rec.Rounds),
			strconv.Itoa(rec.Survivors),
			strconv.FormatInt(rec.Duration.Microseconds(), 10),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write record %d: %w", rec.Encounter, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
