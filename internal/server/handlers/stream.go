package handlers

import (
	"context"
	"net/http"

	"github.com/3leaps/testharbor/internal/apperrors"
	"github.com/3leaps/testharbor/internal/ingest"
	"github.com/3leaps/testharbor/internal/store"
)

// StreamResultsHandler implements POST /api/executions/:id/result/stream:
// NDJSON body, one CreateTestResult per line. Per-line parse, validation
// and enqueue failures never fail the request; a body read error, or a
// line longer than ingest.DefaultMaxLineBytes, fails it with
// INTERNAL_ERROR.
func StreamResultsHandler(w http.ResponseWriter, r *http.Request) {
	d := domain()

	execID, err := executionIDFromPath(r)
	if err != nil {
		respondWithError(w, r, apperrors.BadRequest("invalid execution id"))
		return
	}

	// The path id is trusted, not verified against the store: a per-line
	// existence check would erase the NDJSON path's throughput advantage.
	// A bad id surfaces only as a writer flush-log entry, never to the
	// client.
	result, err := ingest.Stream(r.Context(), r.Body, ingest.Options{
		ExecutionID: execID,
		Validator:   d.Validator,
		Now:         d.Now,
		Enqueue: func(ctx context.Context, item store.UpsertItem) error {
			return d.Registry.Enqueue(ctx, TestResultWriterName, item)
		},
	})
	if err != nil {
		respondWithError(w, r, apperrors.Wrap(apperrors.KindInternal, err, "failed to read stream body"))
		return
	}

	writeJSON(w, http.StatusOK, result)
}
