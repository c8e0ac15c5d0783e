package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/wonny/marketlens/internal/retrieval"
)

// envelope is the response shape shared by every data endpoint
type envelope struct {
	Success   bool             `json:"success"`
	Data      interface{}      `json:"data"`
	Origin    retrieval.Origin `json:"origin,omitempty"`
	Provider  string           `json:"provider,omitempty"`
	Degraded  bool             `json:"degraded,omitempty"`
	Reference interface{}      `json:"reference,omitempty"`
}

func respondResult[T any](w http.ResponseWriter, res retrieval.Result[T]) {
	respondJSON(w, http.StatusOK, resultEnvelope(res))
}

func resultEnvelope[T any](res retrieval.Result[T]) envelope {
	return envelope{
		Success:  true,
		Data:     res.Data,
		Origin:   res.Origin,
		Provider: res.Provider,
		Degraded: res.Degraded,
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// respondFailure maps retrieval errors: a cancelled request is 503, anything
// else the coordinator returns is bad input
func respondFailure(w http.ResponseWriter, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		respondError(w, http.StatusServiceUnavailable, "request cancelled")
		return
	}
	respondError(w, http.StatusBadRequest, err.Error())
}

// queryInt reads a positive integer query parameter
func queryInt(r *http.Request, name string, def int) int {
	if s := r.URL.Query().Get(name); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			return v
		}
	}
	return def
}
