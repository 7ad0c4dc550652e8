// Package ingest implements the NDJSON streaming ingest path (C6): parse
// line-delimited CreateTestResult records, validate them, enqueue via the
// writer registry, and produce a per-batch acceptance report. The
// ingestor never blocks on the writer — an enqueue failure is recorded as
// a failed item, never a request-level error.
package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/3leaps/testharbor/internal/store"
	"github.com/3leaps/testharbor/internal/validate"
)

// maxFailedItems bounds the failed_items list attached to the response
// so a pathological all-bad stream cannot inflate the response body
// without limit.
const maxFailedItems = 100

var validStatuses = map[string]struct{}{"P": {}, "F": {}, "I": {}}

// CreateTestResult is one inbound NDJSON line, decoded directly (the
// streaming path never carries execution_id in the body — it comes from
// the URL path).
type CreateTestResult struct {
	Name            string `json:"name"`
	Platform        string `json:"platform"`
	Description     string `json:"description"`
	Status          string `json:"status"`
	ExecutionTimeMS *int64 `json:"execution_time_ms"`
	Log             string `json:"log"`
	ScreenshotID    string `json:"screenshot_id"`
	CreatedBy       string `json:"created_by"`
}

// FailedItem records why one line was rejected, alongside its raw text.
type FailedItem struct {
	Error      string `json:"error"`
	RawPayload string `json:"raw_payload"`
}

// Result is the per-request acceptance report.
type Result struct {
	Status      string       `json:"status"`
	ExecutionID int64        `json:"execution_id"`
	Received    int          `json:"received"`
	Inserted    int          `json:"inserted"`
	Failed      int          `json:"failed"`
	FailedItems []FailedItem `json:"failed_items,omitempty"`
}

// EnqueueFunc enqueues one translated UpsertItem; it returns an error
// only when the queue has been closed (shutdown in progress), which the
// ingestor treats as a per-item failure rather than aborting the stream.
type EnqueueFunc func(ctx context.Context, item store.UpsertItem) error

// Options configures a single Stream call.
type Options struct {
	ExecutionID int64
	Validator   *validate.Validator // optional; nil skips schema validation
	Enqueue     EnqueueFunc
	Now         func() int64
	CreatedBy   string
}

// Stream parses body as NDJSON, validates and enqueues each line, and
// returns the acceptance report. It never returns an error for
// per-line parse, validation or enqueue problems; a non-nil error here
// means the body could not be read or a line exceeded
// DefaultMaxLineBytes, and no report is returned.
func Stream(ctx context.Context, body io.Reader, opts Options) (*Result, error) {
	reader := bufio.NewReader(body)
	res := &Result{ExecutionID: opts.ExecutionID}

	for {
		line, err := readLineLimited(reader, DefaultMaxLineBytes)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ingest: read stream body: %w", err)
		}
		if len(line) == 0 {
			continue
		}

		res.Received++
		if failReason, ok := processLine(ctx, line, opts); !ok {
			res.Failed++
			if len(res.FailedItems) < maxFailedItems {
				res.FailedItems = append(res.FailedItems, FailedItem{
					Error:      failReason,
					RawPayload: string(line),
				})
			}
			continue
		}
		res.Inserted++
	}

	switch {
	case res.Failed == 0:
		res.Status = "C"
	case res.Inserted == 0:
		res.Status = "F"
	default:
		res.Status = "P"
	}

	return res, nil
}

// processLine validates and enqueues a single NDJSON line, returning a
// human-readable failure reason and false on any rejection.
func processLine(ctx context.Context, line []byte, opts Options) (string, bool) {
	var doc any
	if err := json.Unmarshal(line, &doc); err != nil {
		return fmt.Sprintf("invalid JSON: %v", err), false
	}

	if opts.Validator != nil {
		if err := opts.Validator.ValidateCreateTestResult(doc); err != nil {
			return err.Error(), false
		}
	}

	var rec CreateTestResult
	if err := json.Unmarshal(line, &rec); err != nil {
		return fmt.Sprintf("invalid JSON: %v", err), false
	}

	if _, ok := validStatuses[rec.Status]; !ok {
		return fmt.Sprintf("status must be one of P, F, I, got %q", rec.Status), false
	}

	now := int64(0)
	if opts.Now != nil {
		now = opts.Now()
	}
	createdBy := rec.CreatedBy
	if createdBy == "" {
		createdBy = opts.CreatedBy
	}

	item := store.UpsertItem{
		ExecutionID:     opts.ExecutionID,
		Name:            rec.Name,
		Platform:        rec.Platform,
		Description:     rec.Description,
		Status:          rec.Status,
		ExecutionTimeMS: rec.ExecutionTimeMS,
		Log:             rec.Log,
		ScreenshotID:    rec.ScreenshotID,
		CreatedBy:       createdBy,
		TimeCreated:     now,
	}

	if err := opts.Enqueue(ctx, item); err != nil {
		return fmt.Sprintf("enqueue failed: %v", err), false
	}
	return "", true
}
