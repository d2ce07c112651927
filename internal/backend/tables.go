package backend

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/sudo-init-do/lanceo/internal/remote"
)

// columns is the per-table allow-list of readable and writable columns.
var columns = map[string][]string{
	remote.TableProfiles: {
		"id", "name", "type", "avatar_url", "tagline", "bio", "location",
		"hourly_rate", "skills", "rating", "reviews_count", "projects_count",
		"profile_completion", "rank", "verified", "available",
		"website", "github", "linkedin", "twitter", "created_at",
	},
	remote.TableProjects: {
		"id", "owner_id", "client_id", "title", "description", "status",
		"budget_min", "budget_max", "skills", "offers_count", "views_count", "created_at",
	},
	remote.TableProposals: {
		"id", "project_id", "freelancer_id", "content", "status", "created_at",
	},
	remote.TableMessages: {
		"id", "sender_id", "receiver_id", "project_id", "content", "read", "created_at",
	},
}

func checkColumn(table, col string) error {
	cols, ok := columns[table]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	for _, c := range cols {
		if c == col {
			return nil
		}
	}
	return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, col)
}

func ident(name string) string { return pgx.Identifier{name}.Sanitize() }

// where renders filters as a conjunction, numbering placeholders after
// the args already collected.
func where(table string, filters []remote.Filter, args []any) (string, []any, error) {
	if len(filters) == 0 {
		return "", args, nil
	}
	conds := make([]string, 0, len(filters))
	for _, f := range filters {
		if err := checkColumn(table, f.Column); err != nil {
			return "", nil, err
		}
		if f.Value == nil {
			conds = append(conds, ident(f.Column)+" IS NULL")
			continue
		}
		args = append(args, f.Value)
		conds = append(conds, ident(f.Column)+" = $"+strconv.Itoa(len(args)))
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

func buildSelect(q remote.Query) (string, []any, error) {
	if _, ok := columns[q.Table]; !ok {
		return "", nil, fmt.Errorf("%w: %q", ErrUnknownTable, q.Table)
	}
	var b strings.Builder
	b.WriteString("SELECT * FROM ")
	b.WriteString(ident(q.Table))
	cond, args, err := where(q.Table, q.Filters, nil)
	if err != nil {
		return "", nil, err
	}
	b.WriteString(cond)
	if q.OrderBy != "" {
		if err := checkColumn(q.Table, q.OrderBy); err != nil {
			return "", nil, err
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(ident(q.OrderBy))
		if q.Descending {
			b.WriteString(" DESC")
		}
	}
	return b.String(), args, nil
}

func sortedKeys(row remote.Row) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func buildInsert(table string, row remote.Row) (string, []any, error) {
	if _, ok := columns[table]; !ok {
		return "", nil, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	if len(row) == 0 {
		return "INSERT INTO " + ident(table) + " DEFAULT VALUES RETURNING *", nil, nil
	}
	keys := sortedKeys(row)
	cols := make([]string, len(keys))
	marks := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		if err := checkColumn(table, k); err != nil {
			return "", nil, err
		}
		cols[i] = ident(k)
		marks[i] = "$" + strconv.Itoa(i+1)
		args[i] = row[k]
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		ident(table), strings.Join(cols, ", "), strings.Join(marks, ", "))
	return sql, args, nil
}

func buildUpdate(table string, values remote.Row, filters []remote.Filter) (string, []any, error) {
	if _, ok := columns[table]; !ok {
		return "", nil, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	if len(filters) == 0 {
		return "", nil, ErrNoFilter
	}
	keys := sortedKeys(values)
	sets := make([]string, len(keys))
	args := make([]any, 0, len(keys)+len(filters))
	for i, k := range keys {
		if err := checkColumn(table, k); err != nil {
			return "", nil, err
		}
		args = append(args, values[k])
		sets[i] = ident(k) + " = $" + strconv.Itoa(len(args))
	}
	cond, args, err := where(table, filters, args)
	if err != nil {
		return "", nil, err
	}
	return "UPDATE " + ident(table) + " SET " + strings.Join(sets, ", ") + cond, args, nil
}

// normalize converts pgx-decoded values into the plain shapes remote.Row
// accessors understand.
func normalize(v any) any {
	switch v := v.(type) {
	case [16]byte:
		return uuid.UUID(v).String()
	case pgtype.Numeric:
		f, err := v.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = normalize(e)
		}
		return out
	}
	return v
}

func toRow(m map[string]any) remote.Row {
	r := make(remote.Row, len(m))
	for k, v := range m {
		r[k] = normalize(v)
	}
	return r
}

func (s *Service) Select(ctx context.Context, q remote.Query) ([]remote.Row, error) {
	sql, args, err := buildSelect(q)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", q.Table, err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", q.Table, err)
	}
	out := make([]remote.Row, len(maps))
	for i, m := range maps {
		out[i] = toRow(m)
	}
	return out, nil
}

func (s *Service) Insert(ctx context.Context, table string, row remote.Row) (remote.Row, error) {
	sql, args, err := buildInsert(table, row)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", table, err)
	}
	m, err := pgx.CollectExactlyOneRow(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", table, err)
	}
	return toRow(m), nil
}

func (s *Service) Update(ctx context.Context, table string, values remote.Row, filters ...remote.Filter) error {
	if len(values) == 0 {
		return nil
	}
	sql, args, err := buildUpdate(table, values, filters)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	return nil
}
