package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rcliao/heulog/internal/model"
)

// timeLayout stores row instants with hundredths so they sort as text.
const timeLayout = "2006-01-02T15:04:05.00Z"

// Rows returns the archived tabular rows of a scan in emission order.
func (s *SQLiteStore) Rows(ctx context.Context, id string) ([]model.Row, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT stamp, duplicate, snapshot FROM scan_rows WHERE scan_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Row
	for rows.Next() {
		var stamp, snap string
		var r model.Row
		if err := rows.Scan(&stamp, &r.Duplicate, &snap); err != nil {
			return nil, err
		}
		r.Stamp, _ = model.ParseStamp(stamp)
		if err := json.Unmarshal([]byte(snap), &r.Values); err != nil {
			return nil, fmt.Errorf("decode row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Events returns the archived transcript events of a scan in line order.
func (s *SQLiteStore) Events(ctx context.Context, id string) ([]model.Event, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT line, stamp, text, brk FROM scan_events WHERE scan_id = ? ORDER BY line, rowid`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Diagnostics returns the records a scan skipped, in line order.
func (s *SQLiteStore) Diagnostics(ctx context.Context, id string) ([]model.Diagnostic, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT line, tag, kind, text FROM scan_diagnostics WHERE scan_id = ? ORDER BY line`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Diagnostic
	for rows.Next() {
		var d model.Diagnostic
		var kind string
		if err := rows.Scan(&d.Line, &d.Tag, &kind, &d.Text); err != nil {
			return nil, err
		}
		d.Kind = model.DiagnosticKind(kind)
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanEvent(row scanner) (model.Event, error) {
	var ev model.Event
	var stamp string
	if err := row.Scan(&ev.Line, &stamp, &ev.Text, &ev.Break); err != nil {
		return ev, err
	}
	ev.Stamp, _ = model.ParseStamp(stamp)
	return ev, nil
}
