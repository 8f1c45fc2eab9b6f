package handler

import (
	"encoding/json"
	"net/http"
)

// maxBodyBytes caps request bodies to protect JSON decoding.
const maxBodyBytes = 1 << 20

// DecodeJSON parses the request body into v.
// The body is size-limited and unknown fields are tolerated.
func DecodeJSON(r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return NewHTTPError(http.StatusBadRequest, "invalid_request_body", "request body must be valid JSON")
	}
	return nil
}

// Render writes the response, falling back to a bare 500 when rendering fails.
func Render(w http.ResponseWriter, r *http.Request, resp Response) {
	if resp == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if err := resp.Render(w, r); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
