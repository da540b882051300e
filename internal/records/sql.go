package records

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// sqlStore holds the queries shared by the SQLite and Postgres backends.
// Queries are written with '?' placeholders and rebound per dialect.
type sqlStore struct {
	db       *sql.DB
	dollarPH bool
	now      func() time.Time
}

func (s *sqlStore) bind(q string) string {
	if !s.dollarPH {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *sqlStore) Insert(ctx context.Context, rec Record) (Record, error) {
	rec, err := stamp(rec, s.now())
	if err != nil {
		return Record{}, err
	}
	_, err = s.db.ExecContext(ctx,
		s.bind(`INSERT INTO maintenance_records (id, equipment, problem, solution, created_at) VALUES (?, ?, ?, ?, ?)`),
		rec.ID, rec.Equipment, rec.Problem, rec.Solution, rec.Timestamp,
	)
	if err != nil {
		return Record{}, fmt.Errorf("insert record: %w", err)
	}
	return rec, nil
}

func (s *sqlStore) FindRecent(ctx context.Context, equipment string, limit int) ([]Record, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		s.bind(`SELECT id, equipment, problem, solution, created_at FROM maintenance_records
WHERE equipment = ? ORDER BY created_at DESC LIMIT ?`),
		equipment, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent records: %w", err)
	}
	return scanRecords(rows)
}

func (s *sqlStore) ListSince(ctx context.Context, since time.Time) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		s.bind(`SELECT id, equipment, problem, solution, created_at FROM maintenance_records
WHERE created_at >= ? ORDER BY created_at ASC`),
		since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("query records since: %w", err)
	}
	return scanRecords(rows)
}

func (s *sqlStore) Close(context.Context) error {
	return s.db.Close()
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Equipment, &r.Problem, &r.Solution, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.Timestamp = r.Timestamp.UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}
