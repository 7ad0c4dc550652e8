package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/3leaps/testharbor/internal/apperrors"
	"github.com/3leaps/testharbor/internal/store"
)

// ListResultsHandler implements GET /api/execution/:id/result.
func ListResultsHandler(w http.ResponseWriter, r *http.Request) {
	d := domain()

	execID, err := executionIDFromPath(r)
	if err != nil {
		respondWithError(w, r, apperrors.BadRequest("invalid execution id"))
		return
	}

	q := r.URL.Query()
	params := store.ResultListParams{
		ExecutionID:    execID,
		Status:         q.Get("status"),
		Platform:       q.Get("platform"),
		IncludeSummary: q.Get("include_summary") == "true",
	}

	items, summary, err := store.ListTestResults(r.Context(), d.Reader, params)
	if err != nil {
		respondWithError(w, r, apperrors.Wrap(apperrors.KindInternal, err, "failed to list test results"))
		return
	}
	if items == nil {
		items = []store.TestResult{}
	}

	body := struct {
		Items   []store.TestResult   `json:"items"`
		Summary *store.ResultSummary `json:"summary,omitempty"`
	}{Items: items, Summary: summary}
	writeJSON(w, http.StatusOK, body)
}

type createResultRequest struct {
	ExecutionID     int64  `json:"execution_id"`
	Name            string `json:"name"`
	Platform        string `json:"platform"`
	Description     string `json:"description"`
	Status          string `json:"status"`
	ExecutionTimeMS *int64 `json:"execution_time_ms"`
	Log             string `json:"log"`
	ScreenshotID    string `json:"screenshot_id"`
	CreatedBy       string `json:"created_by"`
}

var validResultStatuses = map[string]struct{}{"P": {}, "F": {}, "I": {}}

// CreateResultHandler implements POST /api/result: validates the parent
// Execution exists, enqueues the upsert, and returns immediately on
// successful enqueue — durability and acceptance are decoupled, per
// spec.md §4.1/§7.
func CreateResultHandler(w http.ResponseWriter, r *http.Request) {
	d := domain()

	var doc any
	raw, err := decodeBody(r, &doc)
	if err != nil {
		respondWithError(w, r, apperrors.BadRequest("malformed request body"))
		return
	}
	if d.Validator != nil {
		if err := d.Validator.ValidateCreateTestResult(doc); err != nil {
			respondWithError(w, r, apperrors.BadRequest(err.Error()))
			return
		}
	}

	var req createResultRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		respondWithError(w, r, apperrors.BadRequest("malformed request body"))
		return
	}
	if _, ok := validResultStatuses[req.Status]; !ok {
		respondWithError(w, r, apperrors.BadRequest("status must be one of P, F, I").WithField("status"))
		return
	}

	exists, err := store.ExecutionExists(r.Context(), d.Reader, req.ExecutionID)
	if err != nil {
		respondWithError(w, r, apperrors.Wrap(apperrors.KindInternal, err, "failed to verify execution"))
		return
	}
	if !exists {
		respondWithError(w, r, apperrors.Newf(apperrors.KindBadRequest, "execution %d does not exist", req.ExecutionID).WithField("execution_id"))
		return
	}

	item := store.UpsertItem{
		ExecutionID:     req.ExecutionID,
		Name:            req.Name,
		Platform:        req.Platform,
		Description:     req.Description,
		Status:          req.Status,
		ExecutionTimeMS: req.ExecutionTimeMS,
		Log:             req.Log,
		ScreenshotID:    req.ScreenshotID,
		CreatedBy:       req.CreatedBy,
		TimeCreated:     d.Now(),
	}

	if err := d.Registry.Enqueue(r.Context(), TestResultWriterName, item); err != nil {
		respondWithError(w, r, apperrors.Wrap(apperrors.KindInternal, err, "failed to enqueue test result"))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"status": "delivered"})
}

// GetResultHandler implements GET /api/result/:id.
func GetResultHandler(w http.ResponseWriter, r *http.Request) {
	d := domain()

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondWithError(w, r, apperrors.BadRequest("invalid result id"))
		return
	}

	result, err := store.GetTestResult(r.Context(), d.Reader, id)
	if err != nil {
		respondWithError(w, r, apperrors.Wrap(apperrors.KindInternal, err, "failed to fetch test result"))
		return
	}
	if result == nil {
		respondWithError(w, r, apperrors.NotFound("test result not found"))
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateResultStatusHandler implements PATCH /api/result/:id/status.
func UpdateResultStatusHandler(w http.ResponseWriter, r *http.Request) {
	d := domain()

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondWithError(w, r, apperrors.BadRequest("invalid result id"))
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, r, apperrors.BadRequest("malformed request body"))
		return
	}
	if _, ok := validResultStatuses[req.Status]; !ok {
		respondWithError(w, r, apperrors.BadRequest("status must be one of P, F, I").WithField("status"))
		return
	}

	updated, err := store.UpdateTestResultStatus(r.Context(), d.Writer, id, req.Status)
	if err != nil {
		respondWithError(w, r, apperrors.Wrap(apperrors.KindInternal, err, "failed to update test result status"))
		return
	}
	if !updated {
		respondWithError(w, r, apperrors.NotFound("test result not found"))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
