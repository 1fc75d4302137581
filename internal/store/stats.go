package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath        string        `json:"db_path"`
	DBSizeBytes   int64         `json:"db_size_bytes"`
	TotalScans    int           `json:"total_scans"`
	ActiveScans   int           `json:"active_scans"`
	TotalRows     int           `json:"total_rows"`
	TotalEvents   int           `json:"total_events"`
	TotalProblems int           `json:"total_diagnostics"`
	Units         []SerialStats `json:"units"`
}

// SerialStats holds per-unit counts.
type SerialStats struct {
	Serial   string `json:"serial"`
	Scans    int    `json:"scans"`
	LastScan string `json:"last_scan"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	// DB file size
	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scans`).Scan(&st.TotalScans)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scans WHERE deleted_at IS NULL`).Scan(&st.ActiveScans)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scan_rows`).Scan(&st.TotalRows)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scan_events`).Scan(&st.TotalEvents)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scan_diagnostics`).Scan(&st.TotalProblems)

	units, err := s.Units(ctx)
	st.Units = units
	return st, err
}

// Units returns scan counts per unit serial, busiest first.
func (s *SQLiteStore) Units(ctx context.Context) ([]SerialStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT serial, COUNT(*) AS cnt, MAX(created_at)
		FROM scans WHERE deleted_at IS NULL
		GROUP BY serial ORDER BY cnt DESC, serial`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []SerialStats
	for rows.Next() {
		var u SerialStats
		if err := rows.Scan(&u.Serial, &u.Scans, &u.LastScan); err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}
