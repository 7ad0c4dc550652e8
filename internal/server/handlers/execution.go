package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/3leaps/testharbor/internal/apperrors"
	"github.com/3leaps/testharbor/internal/store"
	"github.com/3leaps/testharbor/internal/suggest"
)

type createExecutionRequest struct {
	Name      string `json:"name"`
	Tag       string `json:"tag"`
	CreatedBy string `json:"created_by"`
}

// CreateExecutionHandler implements POST /api/execution.
func CreateExecutionHandler(w http.ResponseWriter, r *http.Request) {
	d := domain()

	var req createExecutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, r, apperrors.BadRequest("malformed request body"))
		return
	}
	if req.Name == "" {
		respondWithError(w, r, apperrors.BadRequest("name is required").WithField("name"))
		return
	}

	exec, err := store.CreateExecution(r.Context(), d.Writer, req.Name, req.Tag, req.CreatedBy, d.Now())
	if err != nil {
		respondWithError(w, r, apperrors.Wrap(apperrors.KindInternal, err, "failed to create execution"))
		return
	}

	if d.Trie != nil {
		d.Trie.Insert(exec.Name, suggest.Item{ExecutionID: strconv.FormatInt(exec.ID, 10), Name: exec.Name})
	}

	writeJSON(w, http.StatusCreated, exec)
}

// ListExecutionsHandler implements GET /api/executions.
func ListExecutionsHandler(w http.ResponseWriter, r *http.Request) {
	d := domain()
	q := r.URL.Query()

	params := store.ExecutionListParams{
		CreatedBy: q.Get("created_by"),
		Name:      q.Get("name"),
		TagPrefix: q.Get("tag"),
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		params.Limit = limit
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil {
		params.Offset = offset
	}

	result, err := store.ListExecutions(r.Context(), d.Reader, params)
	if err != nil {
		respondWithError(w, r, apperrors.Wrap(apperrors.KindInternal, err, "failed to list executions"))
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Total   int64            `json:"total"`
		Limit   int              `json:"limit"`
		Offset  int              `json:"offset"`
		HasNext bool             `json:"has_next"`
		Items   []store.Execution `json:"items"`
	}{result.Total, result.Limit, result.Offset, result.HasNext, result.Items})
}

// suggestResponse is the body of GET /api/executions/suggest.
type suggestResponse struct {
	Query       string          `json:"query"`
	Suggestions []suggest.Item  `json:"suggestions"`
	Limit       int             `json:"limit"`
}

// SuggestExecutionsHandler implements GET /api/executions/suggest. The
// route is only registered by the server when execution_suggest.enabled
// is true (per spec.md §6: "when disabled, route is absent"), so this
// handler can assume it was built with a non-nil Trie.
func SuggestExecutionsHandler(w http.ResponseWriter, r *http.Request) {
	d := domain()
	query := r.URL.Query().Get("query")

	var matches []suggest.Item
	if query != "" && d.Trie != nil {
		matches = d.Trie.Search(query)
	}
	if matches == nil {
		matches = []suggest.Item{}
	}

	writeJSON(w, http.StatusOK, suggestResponse{Query: query, Suggestions: matches, Limit: d.SuggestLimit})
}

// executionIDFromPath extracts and parses the :id chi route param shared
// by several result-listing routes.
func executionIDFromPath(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
