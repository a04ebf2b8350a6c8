package handlers

import (
	"errors"
	"net/http"

	"github.com/courtside/bracket-engine/middleware"
	"github.com/courtside/bracket-engine/services"
)

type MatchHandler struct {
	results services.MatchResultService
}

func NewMatchHandler(results services.MatchResultService) *MatchHandler {
	return &MatchHandler{results: results}
}

// UpdateMatchResultHandler is the admin path: score any match in any
// division. Re-scoring a completed match is rejected; corrections go
// through support tooling, not this endpoint.
func (h *MatchHandler) UpdateMatchResultHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.ResultInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.results.UpdateMatchResult(r.Context(), matchID, input); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubmitPlayerScoreHandler is the self-service path; the service verifies
// the caller plays in the match and the division is still open.
func (h *MatchHandler) SubmitPlayerScoreHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		forbiddenResponse(w, r, "missing credentials")
		return
	}

	var input services.ResultInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.results.SubmitPlayerScore(r.Context(), claims.UserID, matchID, input); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type courtLabelRequest struct {
	CourtLabel string `json:"court_label"`
}

func (h *MatchHandler) SetCourtLabelHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var req courtLabelRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if req.CourtLabel == "" {
		badRequestResponse(w, r, errors.New("court_label must not be empty"))
		return
	}

	if err := h.results.SetCourtLabel(r.Context(), matchID, req.CourtLabel); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
