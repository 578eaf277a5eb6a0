// Package report assembles the run's terminal artifact. A report is
// built once from the aggregator's final state and never mutated;
// persistence beyond the writer handed in is someone else's concern.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"formrunner/internal/attempt"
	"formrunner/internal/form"
)

// Summary is the headline counts block.
type Summary struct {
	Total             int     `json:"total"`
	Successful        int     `json:"successful"`
	Failed            int     `json:"failed"`
	SuccessRate       float64 `json:"successRate"`
	TotalFieldsFilled int     `json:"totalFieldsFilled"`
}

// Submission is the wire form of one attempt result.
type Submission struct {
	Website      string          `json:"website"`
	Try          int             `json:"try"`
	Final        bool            `json:"final"`
	Outcome      attempt.Outcome `json:"outcome"`
	Verified     bool            `json:"verified"`
	ElapsedMs    int64           `json:"elapsedMs"`
	FieldsFilled int             `json:"fieldsFilled"`
	Error        string          `json:"error,omitempty"`
}

// Report is the immutable run artifact.
type Report struct {
	RunID       string         `json:"runId"`
	StartedAt   time.Time      `json:"startedAt"`
	FinishedAt  time.Time      `json:"finishedAt"`
	Cancelled   bool           `json:"cancelled"`
	Summary     Summary        `json:"summary"`
	Submissions []Submission   `json:"submissions"`
	FieldLogs   []form.Outcome `json:"fieldLogs"`
}

// Assemble builds the report from every attempt made during the run.
// finals identifies which attempts were a record's last; summary counts
// derive from those only.
func Assemble(runID string, startedAt time.Time, attempts []attempt.Result, finals map[int]bool, cancelled bool) Report {
	rep := Report{
		RunID:       runID,
		StartedAt:   startedAt,
		FinishedAt:  time.Now(),
		Cancelled:   cancelled,
		Submissions: make([]Submission, 0, len(attempts)),
		FieldLogs:   []form.Outcome{},
	}
	for i, a := range attempts {
		final := finals[i]
		rep.Submissions = append(rep.Submissions, Submission{
			Website:      a.Website,
			Try:          a.Try,
			Final:        final,
			Outcome:      a.Outcome,
			Verified:     a.Verified,
			ElapsedMs:    a.Elapsed.Milliseconds(),
			FieldsFilled: a.FieldsFilled,
			Error:        a.Error,
		})
		rep.FieldLogs = append(rep.FieldLogs, a.FillLog...)
		if !final {
			continue
		}
		rep.Summary.Total++
		rep.Summary.TotalFieldsFilled += a.FieldsFilled
		if a.Outcome == attempt.OutcomeSuccess {
			rep.Summary.Successful++
		} else {
			rep.Summary.Failed++
		}
	}
	if rep.Summary.Total > 0 {
		rep.Summary.SuccessRate = float64(rep.Summary.Successful) / float64(rep.Summary.Total)
	}
	return rep
}

// Write encodes the report as indented JSON.
func (r Report) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// WriteFile persists the report at path.
func (r Report) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()
	return r.Write(f)
}
