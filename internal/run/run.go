// Package run drives a batch of contact records through the attempt
// engine. Records are processed strictly sequentially with one attempt
// in flight; retries reload the page from scratch. Stats are published
// by snapshot replacement so readers never block the run loop.
package run

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"formrunner/internal/attempt"
	"formrunner/internal/browser"
	"formrunner/internal/record"
	"formrunner/internal/report"
)

// State names the aggregator's lifecycle phase.
type State string

const (
	StateRunning   State = "running"
	StateFinished  State = "finished"
	StateCancelled State = "cancelled"
)

// Stats is an immutable snapshot of run progress. Successful+Failed
// always equals Total, and Current equals Total once the run ends.
type Stats struct {
	RunID          string    `json:"runId"`
	State          State     `json:"state"`
	Records        int       `json:"records"`
	Current        int       `json:"current"`
	Total          int       `json:"total"`
	Successful     int       `json:"successful"`
	Failed         int       `json:"failed"`
	FieldsFilled   int       `json:"fieldsFilled"`
	CurrentWebsite string    `json:"currentWebsite,omitempty"`
	StartedAt      time.Time `json:"startedAt"`
}

// Attempter executes one attempt on a fresh page. *attempt.Runner is
// the production implementation.
type Attempter interface {
	Run(ctx context.Context, ctrl browser.Controller, rec record.ContactRecord) attempt.Result
}

// Session hands out fresh pages for the life of one run. Satisfied by
// *browser.Launcher.
type Session interface {
	NewController(ctx context.Context) (browser.Controller, error)
	Close() error
}

// Config bounds the retry loop.
type Config struct {
	MaxRetries int
	RetryDelay time.Duration
}

// Log is the append-only progress sink. Lines are timestamped at
// append and safe for concurrent readers.
type Log struct {
	mu    sync.Mutex
	lines []string
}

func (l *Log) Append(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf("%s %s", time.Now().Format(time.RFC3339), fmt.Sprintf(format, args...)))
}

// Lines returns a copy of the log so far.
func (l *Log) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.lines))
	copy(out, l.lines)
	return out
}

// Aggregator owns one run end to end: validation, retry loop, stats
// and the final report.
type Aggregator struct {
	id        string
	cfg       Config
	session   Session
	attempter Attempter
	logger    zerolog.Logger

	stats    atomic.Pointer[Stats]
	progress *Log

	// OnResult, when set, observes every attempt result as it lands.
	// final marks the record's last attempt.
	OnResult func(res attempt.Result, final bool)
}

func NewAggregator(id string, cfg Config, session Session, attempter Attempter, logger zerolog.Logger) *Aggregator {
	a := &Aggregator{
		id:        id,
		cfg:       cfg,
		session:   session,
		attempter: attempter,
		logger:    logger.With().Str("comp", "run").Str("run_id", id).Logger(),
		progress:  &Log{},
	}
	a.stats.Store(&Stats{RunID: id, State: StateRunning})
	return a
}

// Stats returns the latest published snapshot.
func (a *Aggregator) Stats() Stats { return *a.stats.Load() }

// Progress returns the run's progress log.
func (a *Aggregator) Progress() *Log { return a.progress }

func (a *Aggregator) publish(mut func(*Stats)) {
	next := *a.stats.Load()
	mut(&next)
	a.stats.Store(&next)
}

// Execute processes rows in order and returns the run report. The
// browser session is released before return on every path. A cancelled
// context stops the run between records and between retries; results
// already collected are kept.
func (a *Aggregator) Execute(ctx context.Context, rows []map[string]string) report.Report {
	startedAt := time.Now()
	a.publish(func(s *Stats) {
		s.Records = len(rows)
		s.StartedAt = startedAt
	})
	a.progress.Append("run %s started with %d records", a.id, len(rows))

	defer func() {
		if err := a.session.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("session close")
		}
	}()

	var attempts []attempt.Result
	finals := make(map[int]bool)
	cancelled := false

	for i, row := range rows {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		rec, err := record.Normalize(row)
		if err != nil {
			a.progress.Append("record %d rejected: %v", i+1, err)
			a.logger.Warn().Int("record", i+1).Err(err).Msg("record rejected")
			attempts = append(attempts, attempt.Result{
				Website: row["website"],
				Try:     0,
				Outcome: attempt.OutcomeFailure,
				Error:   err.Error(),
			})
			finals[len(attempts)-1] = true
			a.account(attempts[len(attempts)-1])
			if a.OnResult != nil {
				a.OnResult(attempts[len(attempts)-1], true)
			}
			continue
		}

		a.publish(func(s *Stats) { s.CurrentWebsite = rec.Website })
		a.progress.Append("processing %s (%d/%d)", rec.Website, i+1, len(rows))

		res, stopped := a.runRecord(ctx, rec, &attempts)
		if stopped {
			cancelled = true
			if len(attempts) > 0 {
				finals[len(attempts)-1] = true
				a.account(attempts[len(attempts)-1])
			}
			break
		}
		finals[len(attempts)-1] = true
		a.account(res)
		a.progress.Append("%s finished: %s (try %d, %d fields)", rec.Website, res.Outcome, res.Try, res.FieldsFilled)
	}

	final := StateFinished
	if cancelled {
		final = StateCancelled
		a.progress.Append("run %s cancelled", a.id)
	} else {
		a.progress.Append("run %s finished", a.id)
	}
	a.publish(func(s *Stats) {
		s.State = final
		s.CurrentWebsite = ""
	})

	return report.Assemble(a.id, startedAt, attempts, finals, cancelled)
}

// runRecord drives up to MaxRetries+1 attempts for one record. Every
// attempt's result is appended; the last appended one is the record's
// final. stopped reports a context cancellation mid-record.
func (a *Aggregator) runRecord(ctx context.Context, rec record.ContactRecord, attempts *[]attempt.Result) (attempt.Result, bool) {
	var last attempt.Result
	for try := 1; try <= a.cfg.MaxRetries+1; try++ {
		last = a.runOnce(ctx, rec, try)
		*attempts = append(*attempts, last)
		if a.OnResult != nil {
			a.OnResult(last, !last.Retryable() || try == a.cfg.MaxRetries+1)
		}
		if !last.Retryable() {
			return last, false
		}
		if try > a.cfg.MaxRetries {
			break
		}
		a.progress.Append("%s try %d failed (%s), retrying", rec.Website, try, last.Outcome)
		select {
		case <-ctx.Done():
			return last, true
		case <-time.After(a.cfg.RetryDelay):
		}
	}
	return last, ctx.Err() != nil
}

func (a *Aggregator) runOnce(ctx context.Context, rec record.ContactRecord, try int) attempt.Result {
	ctrl, err := a.session.NewController(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return attempt.Result{Website: rec.Website, Try: try, Outcome: attempt.OutcomeFailure, Error: err.Error()}
		}
		a.logger.Error().Err(err).Str("website", rec.Website).Msg("open page")
		return attempt.Result{Website: rec.Website, Try: try, Outcome: attempt.OutcomeFailure, Error: fmt.Sprintf("open page: %v", err)}
	}
	defer func() {
		if cerr := ctrl.Close(); cerr != nil {
			a.logger.Warn().Err(cerr).Msg("close page")
		}
	}()
	res := a.attempter.Run(ctx, ctrl, rec)
	res.Try = try
	return res
}

func (a *Aggregator) account(res attempt.Result) {
	a.publish(func(s *Stats) {
		s.Total++
		s.Current = s.Total
		s.FieldsFilled += res.FieldsFilled
		if res.Outcome == attempt.OutcomeSuccess {
			s.Successful++
		} else {
			s.Failed++
		}
	})
}
