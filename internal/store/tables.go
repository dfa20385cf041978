package store

import (
	"context"
	"fmt"
	"slices"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Table is a named set of rows to load into the store.
type Table struct {
	Name string
	// Columns lists the table's columns. When empty it is the sorted
	// union of the rows' keys.
	Columns []string
	Rows    []map[string]any
}

// columns returns the declared columns or derives them from the rows.
func (t Table) columns() []string {
	if len(t.Columns) > 0 {
		return t.Columns
	}
	seen := make(map[string]bool)
	var cols []string
	for _, r := range t.Rows {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	slices.Sort(cols)
	return cols
}

// CreateTable creates t and inserts its rows in one transaction. Missing
// keys are stored as NULL. Creating a table that already exists fails.
func (s *Store) CreateTable(ctx context.Context, t Table) error {
	if t.Name == "" {
		return fmt.Errorf("create table: name is required")
	}
	cols := t.columns()
	if len(cols) == 0 {
		return fmt.Errorf("create table %q: no columns and no rows to derive them from", t.Name)
	}

	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create table %q: %w", t.Name, err)
	}
	defer tx.Rollback()

	ddl := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(t.Name), strings.Join(quoted, ", "))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %q: %w", t.Name, err)
	}

	if len(t.Rows) > 0 {
		ins := sq.Insert(quoteIdent(t.Name)).Columns(quoted...)
		for i, r := range t.Rows {
			vals := make([]any, len(cols))
			for j, c := range cols {
				cell, err := toCell(r[c])
				if err != nil {
					return fmt.Errorf("create table %q: row %d column %q: %w", t.Name, i, c, err)
				}
				vals[j] = cell
			}
			ins = ins.Values(vals...)
		}
		if _, err := ins.RunWith(tx).ExecContext(ctx); err != nil {
			return fmt.Errorf("insert into %q: %w", t.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create table %q: %w", t.Name, err)
	}
	return nil
}

// Tables returns the names of the data tables, sorted.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	q, args, err := sq.Select("name").
		From("sqlite_master").
		Where(sq.Eq{"type": "table"}).
		Where(sq.NotLike{"name": "sqlite_%"}).
		Where(sq.NotEq{"name": "query_log"}).
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		name, _ := r["name"].(string)
		names = append(names, name)
	}
	return names, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
