package store

import (
	"context"
	"database/sql"
	"fmt"
)

// PurgeAgedTestResults permanently deletes test_result rows whose
// time_created is strictly older than cutoff, returning the number of
// rows removed. Unlike the teacher's soft-delete convention this is a
// hard delete: retention here means "gone", not "marked and later
// reaped" — the spec's sweeper purges rows directly.
func PurgeAgedTestResults(ctx context.Context, db *sql.DB, cutoff int64) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM test_result WHERE time_created < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("store: purge aged test_result rows: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: read purge rows affected: %w", err)
	}
	return n, nil
}

// PurgeAgedExecutionsWithoutResults deletes Execution rows older than
// cutoff that no longer have any referencing test_result row. This
// resolves the spec's open-ended "Executions follow configured rules":
// an Execution is only ever removed once every TestResult that used to
// reference it is itself gone, so purging test_result first and
// executions second (in that order, as the sweeper does) never orphans a
// result row.
func PurgeAgedExecutionsWithoutResults(ctx context.Context, db *sql.DB, cutoff int64) (int64, error) {
	res, err := db.ExecContext(ctx, `
		DELETE FROM execution
		WHERE time_created < ?
		  AND id NOT IN (SELECT DISTINCT execution_id FROM test_result)`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("store: purge aged executions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: read purge rows affected: %w", err)
	}
	return n, nil
}
