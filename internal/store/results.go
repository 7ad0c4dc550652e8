package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// TestResult mirrors the test_result table.
type TestResult struct {
	ID              int64
	ExecutionID     int64
	Name            string
	Platform        string
	Description     string
	Status          string
	ExecutionTimeMS *int64
	Counter         int64
	Log             string
	ScreenshotID    string
	CreatedBy       string
	TimeCreated     int64
}

// UpsertItem is one record the batching writer applies in a single flush
// transaction, keyed on (ExecutionID, Name).
type UpsertItem struct {
	ExecutionID     int64
	Name            string
	Platform        string
	Description     string
	Status          string
	ExecutionTimeMS *int64
	Log             string
	ScreenshotID    string
	CreatedBy       string
	TimeCreated     int64
}

const upsertTestResultSQL = `
INSERT INTO test_result
  (execution_id, name, platform, description, status, execution_time_ms,
   counter, log, screenshot_id, created_by, time_created)
VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?, ?, ?)
ON CONFLICT(execution_id, name) DO UPDATE SET
  platform = excluded.platform,
  description = excluded.description,
  status = excluded.status,
  execution_time_ms = excluded.execution_time_ms,
  counter = counter + 1,
  log = excluded.log,
  screenshot_id = excluded.screenshot_id,
  created_by = excluded.created_by,
  time_created = excluded.time_created`

// BatchUpsertTestResults applies every item in a single transaction
// against the writer's dedicated connection, matching the batching
// writer's flush contract: all-or-nothing, counter incremented on
// conflict, every other mutable column overwritten from the latest
// payload. The caller (internal/writer) is responsible for running this
// only against the single-connection writer pool.
func BatchUpsertTestResults(ctx context.Context, db *sql.DB, items []UpsertItem) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin flush tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsertTestResultSQL)
	if err != nil {
		return fmt.Errorf("store: prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, item := range items {
		_, err := stmt.ExecContext(ctx,
			item.ExecutionID, item.Name, item.Platform, nullableString(item.Description),
			item.Status, item.ExecutionTimeMS, nullableString(item.Log),
			nullableString(item.ScreenshotID), nullableString(item.CreatedBy), item.TimeCreated)
		if err != nil {
			return fmt.Errorf("store: upsert test_result %s/%s: %w", formatExecID(item.ExecutionID), item.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit flush tx: %w", err)
	}
	return nil
}

func formatExecID(id int64) string {
	return fmt.Sprintf("%d", id)
}

// GetTestResult fetches a single TestResult by id, or (nil, nil) if
// absent.
func GetTestResult(ctx context.Context, db *sql.DB, id int64) (*TestResult, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, execution_id, name, platform, description, status, execution_time_ms,
		       counter, log, screenshot_id, created_by, time_created
		FROM test_result WHERE id = ?`, id)
	return scanTestResult(row)
}

// UpdateTestResultStatus applies the PATCH /api/result/:id/status path:
// a rare, synchronous write issued directly against the writer pool
// (sized to one connection), so it is naturally serialized alongside the
// batching writer's own transactions without a second write path.
func UpdateTestResultStatus(ctx context.Context, db *sql.DB, id int64, status string) (bool, error) {
	res, err := db.ExecContext(ctx, `UPDATE test_result SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return false, fmt.Errorf("store: update test_result status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: read rows affected: %w", err)
	}
	return n > 0, nil
}

// ResultListParams are the supported filters for listing a single
// execution's test results.
type ResultListParams struct {
	ExecutionID    int64
	Status         string
	Platform       string
	IncludeSummary bool
}

// ResultSummary is the optional {total, pass, fail, ignor} block.
type ResultSummary struct {
	Total int64 `json:"total"`
	Pass  int64 `json:"pass"`
	Fail  int64 `json:"fail"`
	Ignor int64 `json:"ignor"`
}

// ListTestResults returns every TestResult for an execution matching the
// optional status/platform filters, plus a pass/fail/ignore summary when
// requested.
func ListTestResults(ctx context.Context, db *sql.DB, params ResultListParams) ([]TestResult, *ResultSummary, error) {
	where := []string{"execution_id = ?"}
	args := []any{params.ExecutionID}
	if params.Status != "" {
		where = append(where, "status = ?")
		args = append(args, params.Status)
	}
	if params.Platform != "" {
		where = append(where, "platform = ?")
		args = append(args, params.Platform)
	}
	whereClause := strings.Join(where, " AND ")

	query := fmt.Sprintf(`
		SELECT id, execution_id, name, platform, description, status, execution_time_ms,
		       counter, log, screenshot_id, created_by, time_created
		FROM test_result WHERE %s ORDER BY id ASC`, whereClause)
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("store: list test results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []TestResult
	for rows.Next() {
		tr, err := scanTestResultRows(rows)
		if err != nil {
			return nil, nil, err
		}
		items = append(items, *tr)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("store: iterate test results: %w", err)
	}

	if !params.IncludeSummary {
		return items, nil, nil
	}

	summary := &ResultSummary{}
	for _, item := range items {
		summary.Total++
		switch item.Status {
		case "P":
			summary.Pass++
		case "F":
			summary.Fail++
		case "I":
			summary.Ignor++
		}
	}
	return items, summary, nil
}

func scanTestResult(row *sql.Row) (*TestResult, error) {
	var tr TestResult
	var description, log, screenshotID, createdBy sql.NullString
	var execTime sql.NullInt64
	err := row.Scan(&tr.ID, &tr.ExecutionID, &tr.Name, &tr.Platform, &description, &tr.Status,
		&execTime, &tr.Counter, &log, &screenshotID, &createdBy, &tr.TimeCreated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan test_result: %w", err)
	}
	applyNullableTestResultFields(&tr, description, log, screenshotID, createdBy, execTime)
	return &tr, nil
}

func scanTestResultRows(rows *sql.Rows) (*TestResult, error) {
	var tr TestResult
	var description, log, screenshotID, createdBy sql.NullString
	var execTime sql.NullInt64
	if err := rows.Scan(&tr.ID, &tr.ExecutionID, &tr.Name, &tr.Platform, &description, &tr.Status,
		&execTime, &tr.Counter, &log, &screenshotID, &createdBy, &tr.TimeCreated); err != nil {
		return nil, fmt.Errorf("store: scan test_result row: %w", err)
	}
	applyNullableTestResultFields(&tr, description, log, screenshotID, createdBy, execTime)
	return &tr, nil
}

func applyNullableTestResultFields(tr *TestResult, description, log, screenshotID, createdBy sql.NullString, execTime sql.NullInt64) {
	tr.Description = description.String
	tr.Log = log.String
	tr.ScreenshotID = screenshotID.String
	tr.CreatedBy = createdBy.String
	if execTime.Valid {
		v := execTime.Int64
		tr.ExecutionTimeMS = &v
	}
}
