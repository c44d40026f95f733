package www

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"washcore/orchestrator"
)

// requireToken runs the access guard before anything else. An auth failure
// is written as a failure body (statusCode + message, no machine field),
// distinguishable from every normal envelope.
func (h *Handlers) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h.guard.Check(r.Context(), bearerToken(r)); err != nil {
			var authErr *orchestrator.AuthError
			if !errors.As(err, &authErr) {
				authErr = &orchestrator.AuthError{Code: orchestrator.StatusUnauthorized, Message: "Invalid token"}
			}
			writeJSON(w, authErr.Code, authErr)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return token
	}
	return r.Header.Get("X-Auth-Token")
}

type reserveRequest struct {
	LocationID string `json:"locationId"`
	JobID      string `json:"jobId"`
}

func (h *Handlers) handleReserve(w http.ResponseWriter, r *http.Request) {
	var req reserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.LocationID == "" {
		writeResult(w, orchestrator.Result{Code: orchestrator.StatusBadRequest})
		return
	}
	if req.JobID == "" {
		req.JobID = uuid.NewString()
	}

	res, err := h.orch.Reserve(r.Context(), req.LocationID, req.JobID)
	if err != nil {
		log.Printf("www: reserve at %s: %v", req.LocationID, err)
		writeResult(w, orchestrator.Result{Code: orchestrator.StatusInternalServerError})
		return
	}
	writeResult(w, res)
}

func (h *Handlers) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := h.orch.Get(r.Context(), id)
	if err != nil {
		log.Printf("www: get %s: %v", id, err)
		writeResult(w, orchestrator.Result{Code: orchestrator.StatusInternalServerError})
		return
	}
	writeResult(w, res)
}

func (h *Handlers) handleStart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := h.orch.Start(r.Context(), id)
	if err != nil {
		log.Printf("www: start %s: %v", id, err)
		writeResult(w, orchestrator.Result{Code: orchestrator.StatusInternalServerError})
		return
	}
	writeResult(w, res)
}

// handleUnrouted answers any path or method under /machine that no route
// claims. Internal-error envelope with a null machine, per the API contract.
func (h *Handlers) handleUnrouted(w http.ResponseWriter, _ *http.Request) {
	writeResult(w, orchestrator.Result{Code: orchestrator.StatusInternalServerError})
}

func writeResult(w http.ResponseWriter, res orchestrator.Result) {
	writeJSON(w, res.Code, res)
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
