package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/heulog/internal/model"
)

// SearchParams holds parameters for searching transcript events.
type SearchParams struct {
	Query  string
	Serial string
	ScanID string
	Limit  int
}

// SearchResult is one matching event and the scan it belongs to.
type SearchResult struct {
	ScanID string `json:"scan_id"`
	Serial string `json:"serial,omitempty"`
	model.Event
}

// Search finds archived events whose text contains the query words, in
// order. Matching is case-insensitive.
func (s *SQLiteStore) Search(ctx context.Context, p SearchParams) ([]SearchResult, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}
	phrase := ftsPhrase(p.Query)
	if phrase == "" {
		return nil, fmt.Errorf("empty search query")
	}

	where := []string{"scan_events_fts MATCH ?", "sc.deleted_at IS NULL"}
	args := []interface{}{phrase}
	if p.Serial != "" {
		where = append(where, "sc.serial = ?")
		args = append(args, p.Serial)
	}
	if p.ScanID != "" {
		where = append(where, "sc.id = ?")
		args = append(args, p.ScanID)
	}

	query := fmt.Sprintf(`
		SELECT sc.id, sc.serial, e.line, e.stamp, e.text, e.brk
		FROM scan_events_fts f
		JOIN scan_events e ON e.rowid = f.rowid
		JOIN scans sc ON sc.id = e.scan_id
		WHERE %s
		ORDER BY sc.created_at DESC, e.line
		LIMIT ?`, strings.Join(where, " AND "))
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var stamp string
		if err := rows.Scan(&r.ScanID, &r.Serial, &r.Line, &stamp, &r.Text, &r.Break); err != nil {
			return nil, err
		}
		r.Stamp, _ = model.ParseStamp(stamp)
		results = append(results, r)
	}
	return results, rows.Err()
}

// ftsPhrase quotes a free-text query as one FTS5 phrase, so punctuation in
// event text ("Shutdown!") is not read as query syntax.
func ftsPhrase(q string) string {
	q = strings.TrimSpace(q)
	if q == "" {
		return ""
	}
	return `"` + strings.ReplaceAll(q, `"`, `""`) + `"`
}
