package internal

import (
	"encoding/json"
	"net/http"
)

// writeJSON encodes v as the response body with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// writeError sends the uniform error envelope:
// {"error": {"code": ..., "message": ...}}
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeErrorWith(w, status, code, message, nil)
}

// writeErrorWith sends the error envelope with extra context fields merged
// into the error object (e.g. current_status on a 409).
func writeErrorWith(w http.ResponseWriter, status int, code, message string, context map[string]interface{}) {
	body := map[string]interface{}{
		"code":    code,
		"message": message,
	}
	for k, v := range context {
		body[k] = v
	}
	writeJSON(w, status, map[string]interface{}{"error": body})
}

// serverError logs nothing itself; handlers log at the call site when the
// failure is notable. The client only ever sees the generic envelope.
func serverError(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "An internal error occurred")
}

// pagination is the list-response envelope shared by all list endpoints
type pagination struct {
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
	TotalPages  int `json:"total_pages"`
}

// sendListResponse wraps items under the given key with a pagination block.
func sendListResponse(w http.ResponseWriter, key string, items interface{}, total int, params listParams) {
	totalPages := 0
	if params.limit > 0 {
		totalPages = (total + params.limit - 1) / params.limit
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		key: items,
		"pagination": pagination{
			CurrentPage: params.page,
			PerPage:     params.limit,
			Total:       total,
			TotalPages:  totalPages,
		},
	})
}
