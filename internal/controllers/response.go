package controllers

import (
	"net/http"

	json "github.com/goccy/go-json"

	"snoozed/internal/messages"
)

const maxRequestBodySize = 1 << 20 // 1 MB

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	gson, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeRaw(w, status, gson)
}

func writeRaw(w http.ResponseWriter, status int, gson []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(gson)
}

// writeError answers 400 for request problems and 500 for everything else.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if messages.IsClientError(err) {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	return json.NewDecoder(r.Body).Decode(dst)
}
