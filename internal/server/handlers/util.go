package handlers

import (
	"encoding/json"
	"io"
	"net/http"
)

// decodeBody reads the whole request body, unmarshals it into doc (a
// *any, typically), and returns the raw bytes for a second unmarshal
// into a concrete struct — schema validation runs against the generic
// decode, domain decoding against the concrete one, matching the
// two-pass pattern internal/ingest uses per line.
func decodeBody(r *http.Request, doc *any) ([]byte, error) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, err
	}
	return raw, nil
}
