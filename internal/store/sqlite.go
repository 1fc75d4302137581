package store

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/heulog/internal/model"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	entropy *rand.Rand
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scans (
		id             TEXT PRIMARY KEY,
		serial         TEXT NOT NULL DEFAULT '',
		log_num        INTEGER NOT NULL DEFAULT 0,
		source         TEXT NOT NULL,
		created_at     TEXT NOT NULL,
		deleted_at     TEXT,
		first_stamp    TEXT NOT NULL DEFAULT '',
		last_stamp     TEXT NOT NULL DEFAULT '',
		lines          INTEGER NOT NULL DEFAULT 0,
		records        INTEGER NOT NULL DEFAULT 0,
		events         INTEGER NOT NULL DEFAULT 0,
		row_count      INTEGER NOT NULL DEFAULT 0,
		duplicate_rows INTEGER NOT NULL DEFAULT 0,
		unrecognized   INTEGER NOT NULL DEFAULT 0,
		malformed      INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_scans_serial ON scans(serial);
	CREATE INDEX IF NOT EXISTS idx_scans_created ON scans(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_scans_deleted ON scans(deleted_at);

	CREATE TABLE IF NOT EXISTS scan_rows (
		scan_id   TEXT NOT NULL REFERENCES scans(id),
		seq       INTEGER NOT NULL,
		stamp     TEXT NOT NULL,
		at        TEXT,
		duplicate INTEGER NOT NULL DEFAULT 0,
		snapshot  TEXT NOT NULL,
		PRIMARY KEY (scan_id, seq)
	);

	CREATE TABLE IF NOT EXISTS scan_events (
		id      TEXT PRIMARY KEY,
		scan_id TEXT NOT NULL REFERENCES scans(id),
		line    INTEGER NOT NULL,
		stamp   TEXT NOT NULL,
		text    TEXT NOT NULL,
		brk     INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_events_scan ON scan_events(scan_id, line);

	CREATE TABLE IF NOT EXISTS scan_diagnostics (
		scan_id TEXT NOT NULL REFERENCES scans(id),
		line    INTEGER NOT NULL,
		tag     TEXT NOT NULL,
		kind    TEXT NOT NULL,
		text    TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_diagnostics_scan ON scan_diagnostics(scan_id, line);

	CREATE VIRTUAL TABLE IF NOT EXISTS scan_events_fts USING fts5(
		text,
		content=scan_events,
		content_rowid=rowid
	);
	`
	_, err := s.db.Exec(schema)
	if err != nil {
		return err
	}

	// FTS5 triggers for automatic sync
	s.db.Exec(`CREATE TRIGGER IF NOT EXISTS scan_events_ai AFTER INSERT ON scan_events BEGIN
		INSERT INTO scan_events_fts(rowid, text) VALUES (new.rowid, new.text);
	END`)
	s.db.Exec(`CREATE TRIGGER IF NOT EXISTS scan_events_ad AFTER DELETE ON scan_events BEGIN
		INSERT INTO scan_events_fts(scan_events_fts, rowid, text) VALUES('delete', old.rowid, old.text);
	END`)
	s.db.Exec(`CREATE TRIGGER IF NOT EXISTS scan_events_au AFTER UPDATE ON scan_events BEGIN
		INSERT INTO scan_events_fts(scan_events_fts, rowid, text) VALUES('delete', old.rowid, old.text);
		INSERT INTO scan_events_fts(rowid, text) VALUES (new.rowid, new.text);
	END`)

	return nil
}

func (s *SQLiteStore) BeginScan(ctx context.Context, p BeginParams) (*Recorder, error) {
	now := time.Now().UTC()
	id := s.newID()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO scans (id, serial, log_num, source, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, p.Serial, p.LogNum, p.Source, now.Format(time.RFC3339))
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("insert scan: %w", err)
	}

	r, err := newRecorder(ctx, s, tx)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	r.scan = model.Scan{
		ID:        id,
		Serial:    p.Serial,
		LogNum:    p.LogNum,
		Source:    p.Source,
		CreatedAt: now.Truncate(time.Second),
	}
	return r, nil
}

const scanColumns = `id, serial, log_num, source, created_at, deleted_at, first_stamp, last_stamp,
	lines, records, events, row_count, duplicate_rows, unrecognized, malformed`

func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.Scan, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+scanColumns+` FROM scans WHERE id = ? AND deleted_at IS NULL`, id)
	sc, err := scanScan(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("scan not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &sc, nil
}

func (s *SQLiteStore) List(ctx context.Context, p ListParams) ([]model.Scan, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	where := []string{"deleted_at IS NULL"}
	var args []interface{}
	if p.Serial != "" {
		where = append(where, "serial = ?")
		args = append(args, p.Serial)
	}

	query := fmt.Sprintf(`SELECT %s FROM scans WHERE %s ORDER BY created_at DESC, id DESC LIMIT ?`,
		scanColumns, strings.Join(where, " AND "))
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scans []model.Scan
	for rows.Next() {
		sc, err := scanScan(rows)
		if err != nil {
			return nil, err
		}
		scans = append(scans, sc)
	}
	return scans, rows.Err()
}

func (s *SQLiteStore) Rm(ctx context.Context, p RmParams) error {
	if p.Hard {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		for _, table := range []string{"scan_rows", "scan_events", "scan_diagnostics"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE scan_id = ?`, p.ID); err != nil {
				return fmt.Errorf("delete %s: %w", table, err)
			}
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM scans WHERE id = ?`, p.ID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("scan not found: %s", p.ID)
		}
		return tx.Commit()
	}

	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx,
		`UPDATE scans SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, now, p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("scan not found: %s", p.ID)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanScan(row scanner) (model.Scan, error) {
	var sc model.Scan
	var deletedAt sql.NullString
	var createdAt, first, last string

	err := row.Scan(
		&sc.ID, &sc.Serial, &sc.LogNum, &sc.Source, &createdAt, &deletedAt, &first, &last,
		&sc.Lines, &sc.Records, &sc.Events, &sc.Rows, &sc.DuplicateRows, &sc.Unrecognized, &sc.Malformed,
	)
	if err != nil {
		return sc, err
	}

	sc.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if deletedAt.Valid {
		t, _ := time.Parse(time.RFC3339, deletedAt.String)
		sc.DeletedAt = &t
	}
	if first != "" {
		sc.First, _ = model.ParseStamp(first)
	}
	if last != "" {
		sc.Last, _ = model.ParseStamp(last)
	}
	return sc, nil
}
