package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rcliao/heulog/internal/model"
)

// ErrRecorderClosed is returned by a recorder used after Finish or Abort.
var ErrRecorderClosed = errors.New("recorder closed")

// Recorder writes one scan inside a single transaction. Its sink methods
// match the engine hooks and cannot return errors, so the first failure is
// kept and reported by Finish.
type Recorder struct {
	ctx  context.Context
	s    *SQLiteStore
	tx   *sql.Tx
	scan model.Scan

	rowStmt, eventStmt, diagStmt *sql.Stmt

	seq  int
	err  error
	done bool
}

func newRecorder(ctx context.Context, s *SQLiteStore, tx *sql.Tx) (*Recorder, error) {
	r := &Recorder{ctx: ctx, s: s, tx: tx}
	var err error
	r.rowStmt, err = tx.PrepareContext(ctx,
		`INSERT INTO scan_rows (scan_id, seq, stamp, at, duplicate, snapshot) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare rows: %w", err)
	}
	r.eventStmt, err = tx.PrepareContext(ctx,
		`INSERT INTO scan_events (id, scan_id, line, stamp, text, brk) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare events: %w", err)
	}
	r.diagStmt, err = tx.PrepareContext(ctx,
		`INSERT INTO scan_diagnostics (scan_id, line, tag, kind, text) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare diagnostics: %w", err)
	}
	return r, nil
}

// ID is the ID of the scan being recorded.
func (r *Recorder) ID() string { return r.scan.ID }

// Err is the first failure so far.
func (r *Recorder) Err() error { return r.err }

func (r *Recorder) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *Recorder) ok() bool {
	if r.done {
		r.fail(ErrRecorderClosed)
	}
	return r.err == nil
}

// Row records one tabular row.
func (r *Recorder) Row(row model.Row) {
	if !r.ok() {
		return
	}
	snap, err := json.Marshal(row.Values)
	if err != nil {
		r.fail(fmt.Errorf("encode row: %w", err))
		return
	}
	var at *string
	if _, ok := row.Stamp.DayHundredths(); ok && !row.Stamp.Date.IsZero() {
		v := row.Stamp.Clock().Format(timeLayout)
		at = &v
	}
	r.seq++
	if _, err := r.rowStmt.ExecContext(r.ctx, r.scan.ID, r.seq, row.Stamp.String(), at, row.Duplicate, string(snap)); err != nil {
		r.fail(fmt.Errorf("insert row: %w", err))
	}
}

// Event records one transcript event.
func (r *Recorder) Event(ev model.Event) {
	if !r.ok() {
		return
	}
	_, err := r.eventStmt.ExecContext(r.ctx, r.s.newID(), r.scan.ID, ev.Line, ev.Stamp.String(), ev.Text, ev.Break)
	if err != nil {
		r.fail(fmt.Errorf("insert event: %w", err))
	}
}

// Diagnostic records one skipped record.
func (r *Recorder) Diagnostic(d model.Diagnostic) {
	if !r.ok() {
		return
	}
	_, err := r.diagStmt.ExecContext(r.ctx, r.scan.ID, d.Line, d.Tag, string(d.Kind), d.Text)
	if err != nil {
		r.fail(fmt.Errorf("insert diagnostic: %w", err))
	}
}

// Finish stores the summary and commits the scan. If any sink call failed,
// the scan is rolled back and that failure returned.
func (r *Recorder) Finish(sum model.Summary) (*model.Scan, error) {
	if r.done {
		return nil, ErrRecorderClosed
	}
	if r.err != nil {
		r.Abort()
		return nil, r.err
	}
	r.done = true
	defer r.closeStmts()

	_, err := r.tx.ExecContext(r.ctx,
		`UPDATE scans SET first_stamp = ?, last_stamp = ?, lines = ?, records = ?, events = ?,
		        row_count = ?, duplicate_rows = ?, unrecognized = ?, malformed = ?
		 WHERE id = ?`,
		stampText(sum.First), stampText(sum.Last), sum.Lines, sum.Records, sum.Events,
		sum.Rows, sum.DuplicateRows, sum.Unrecognized, sum.Malformed, r.scan.ID)
	if err != nil {
		r.tx.Rollback()
		return nil, fmt.Errorf("update scan: %w", err)
	}
	if err := r.tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit scan: %w", err)
	}
	sc := r.scan
	sc.Summary = sum
	return &sc, nil
}

// Abort discards everything recorded. It is safe to call after Finish.
func (r *Recorder) Abort() error {
	if r.done {
		return nil
	}
	r.done = true
	r.closeStmts()
	return r.tx.Rollback()
}

func (r *Recorder) closeStmts() {
	for _, st := range []*sql.Stmt{r.rowStmt, r.eventStmt, r.diagStmt} {
		if st != nil {
			st.Close()
		}
	}
}

// stampText stores an unset stamp as empty rather than its " :" rendering.
func stampText(st model.Stamp) string {
	if st == (model.Stamp{}) {
		return ""
	}
	return st.String()
}
