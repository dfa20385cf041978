package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// QueryEntry describes an executed statement to log.
type QueryEntry struct {
	Token     string
	Model     string
	Statement string
	Args      []any
	Terminal  string
	Residual  []string
	RowCount  int
}

// QueryRecord is one logged statement.
type QueryRecord struct {
	Seq       int64
	Token     string
	Model     string
	Statement string
	// Args and Residual are canonical JSON arrays.
	Args     string
	Terminal string
	Residual string
	RowCount int
}

// LogQuery appends a record to the query log and returns its sequence
// number.
func (s *Store) LogQuery(ctx context.Context, e QueryEntry) (int64, error) {
	argsJSON, err := marshalList(e.Args)
	if err != nil {
		return 0, fmt.Errorf("log query: args: %w", err)
	}
	residualJSON, err := marshalList(e.Residual)
	if err != nil {
		return 0, fmt.Errorf("log query: residual: %w", err)
	}

	res, err := sq.Insert("query_log").
		Columns("token", "model", "statement", "args", "terminal", "residual", "row_count").
		Values(e.Token, e.Model, e.Statement, argsJSON, e.Terminal, residualJSON, e.RowCount).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("log query: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("log query: %w", err)
	}
	return seq, nil
}

// ReadQueryLog returns the records logged under token in seq order. An
// empty token returns every record. Returns an empty slice (not nil) when
// nothing matches.
func (s *Store) ReadQueryLog(ctx context.Context, token string) ([]QueryRecord, error) {
	qb := sq.Select("seq", "token", "model", "statement", "args", "terminal", "residual", "row_count").
		From("query_log").
		OrderBy("seq ASC")
	if token != "" {
		qb = qb.Where(sq.Eq{"token": token})
	}

	rows, err := qb.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query log: %w", err)
	}
	defer rows.Close()

	records := []QueryRecord{}
	for rows.Next() {
		var r QueryRecord
		if err := rows.Scan(&r.Seq, &r.Token, &r.Model, &r.Statement, &r.Args, &r.Terminal, &r.Residual, &r.RowCount); err != nil {
			return nil, fmt.Errorf("scan query log: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate query log: %w", err)
	}
	return records, nil
}
