package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Execution mirrors the execution table. It is never mutated after
// creation except by the retention sweeper.
type Execution struct {
	ID          int64
	Name        string
	Tag         string
	CreatedBy   string
	TimeCreated int64
}

// CreateExecution inserts a new Execution and returns it with its
// assigned id.
func CreateExecution(ctx context.Context, db *sql.DB, name, tag, createdBy string, timeCreated int64) (*Execution, error) {
	res, err := db.ExecContext(ctx,
		`INSERT INTO execution (name, tag, created_by, time_created) VALUES (?, ?, ?, ?)`,
		name, nullableString(tag), nullableString(createdBy), timeCreated)
	if err != nil {
		return nil, fmt.Errorf("store: create execution: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("store: read execution id: %w", err)
	}
	return &Execution{ID: id, Name: name, Tag: tag, CreatedBy: createdBy, TimeCreated: timeCreated}, nil
}

// GetExecution fetches a single Execution by id, or (nil, nil) if absent.
func GetExecution(ctx context.Context, db *sql.DB, id int64) (*Execution, error) {
	row := db.QueryRowContext(ctx,
		`SELECT id, name, tag, created_by, time_created FROM execution WHERE id = ?`, id)
	return scanExecution(row)
}

// ExecutionExists reports whether an Execution with the given id exists,
// the cheap existence check the single-create write path performs before
// enqueuing (see internal/server/handlers/result.go).
func ExecutionExists(ctx context.Context, db *sql.DB, id int64) (bool, error) {
	var exists int
	err := db.QueryRowContext(ctx, `SELECT 1 FROM execution WHERE id = ? LIMIT 1`, id).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: check execution existence: %w", err)
	}
	return true, nil
}

// ExecutionListParams are the supported filters/pagination for
// ListExecutions.
type ExecutionListParams struct {
	Limit     int
	Offset    int
	CreatedBy string
	Name      string
	TagPrefix string
}

// ExecutionListResult is the paginated listing response.
type ExecutionListResult struct {
	Total   int64
	Limit   int
	Offset  int
	HasNext bool
	Items   []Execution
}

// ListExecutions applies the eq/prefix filters documented for
// GET /api/executions and returns a page of results plus the total count
// matching the filter (irrespective of pagination).
func ListExecutions(ctx context.Context, db *sql.DB, params ExecutionListParams) (*ExecutionListResult, error) {
	where := []string{}
	args := []any{}

	if params.CreatedBy != "" {
		where = append(where, "created_by = ?")
		args = append(args, params.CreatedBy)
	}
	if params.Name != "" {
		where = append(where, "name = ?")
		args = append(args, params.Name)
	}
	if params.TagPrefix != "" {
		where = append(where, "tag LIKE ? ESCAPE '\\'")
		args = append(args, escapeLikePrefix(params.TagPrefix)+"%")
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM execution %s`, whereClause)
	if err := db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("store: count executions: %w", err)
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(
		`SELECT id, name, tag, created_by, time_created FROM execution %s
		 ORDER BY time_created DESC, id DESC LIMIT ? OFFSET ?`, whereClause)
	rows, err := db.QueryContext(ctx, query, append(append([]any{}, args...), limit+1, offset)...)
	if err != nil {
		return nil, fmt.Errorf("store: list executions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]Execution, 0, limit)
	for rows.Next() {
		exec, err := scanExecutionRows(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *exec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate executions: %w", err)
	}

	hasNext := len(items) > limit
	if hasNext {
		items = items[:limit]
	}

	return &ExecutionListResult{Total: total, Limit: limit, Offset: offset, HasNext: hasNext, Items: items}, nil
}

// ListExecutionsOrderedByRecency returns every Execution ordered newest
// first, used only at startup to rebuild the in-memory suggestion trie.
func ListExecutionsOrderedByRecency(ctx context.Context, db *sql.DB) ([]Execution, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, tag, created_by, time_created FROM execution ORDER BY time_created DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: list executions for trie rebuild: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Execution
	for rows.Next() {
		exec, err := scanExecutionRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *exec)
	}
	return out, rows.Err()
}

func scanExecution(row *sql.Row) (*Execution, error) {
	var exec Execution
	var tag, createdBy sql.NullString
	err := row.Scan(&exec.ID, &exec.Name, &tag, &createdBy, &exec.TimeCreated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan execution: %w", err)
	}
	exec.Tag = tag.String
	exec.CreatedBy = createdBy.String
	return &exec, nil
}

func scanExecutionRows(rows *sql.Rows) (*Execution, error) {
	var exec Execution
	var tag, createdBy sql.NullString
	if err := rows.Scan(&exec.ID, &exec.Name, &tag, &createdBy, &exec.TimeCreated); err != nil {
		return nil, fmt.Errorf("store: scan execution row: %w", err)
	}
	exec.Tag = tag.String
	exec.CreatedBy = createdBy.String
	return &exec, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// escapeLikePrefix escapes LIKE metacharacters in a user-supplied prefix
// so prefix matching cannot be subverted by literal '%' or '_'.
func escapeLikePrefix(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}
