package handlers

import (
	"net/http"

	"github.com/courtside/bracket-engine/services"
)

type BracketHandler struct {
	configService    services.BracketConfigService
	preliminaries    services.PreliminaryService
	mainBracket      services.MainBracketService
	bracketData      services.BracketDataService
	snapshotService  services.SnapshotService
}

func NewBracketHandler(
	configService services.BracketConfigService,
	preliminaries services.PreliminaryService,
	mainBracket services.MainBracketService,
	bracketData services.BracketDataService,
	snapshotService services.SnapshotService,
) *BracketHandler {
	return &BracketHandler{
		configService:   configService,
		preliminaries:   preliminaries,
		mainBracket:     mainBracket,
		bracketData:     bracketData,
		snapshotService: snapshotService,
	}
}

// GetOrCreateConfigHandler returns the division's bracket config, creating
// it with defaults on first access.
func (h *BracketHandler) GetOrCreateConfigHandler(w http.ResponseWriter, r *http.Request) {
	divisionID, err := getIDFromURL(r, "divisionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	config, err := h.configService.GetOrCreate(r.Context(), divisionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"config": config}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *BracketHandler) UpdateConfigHandler(w http.ResponseWriter, r *http.Request) {
	configID, err := getIDFromURL(r, "configID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.UpdateConfigInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	config, err := h.configService.Update(r.Context(), configID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"config": config}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type generateGroupsRequest struct {
	DivisionID      int `json:"division_id"`
	TargetGroupSize int `json:"target_group_size,omitempty"`
}

// AutoGenerateGroupsHandler rebuilds the qualifying groups. Destructive:
// the UI asks for confirmation before calling this.
func (h *BracketHandler) AutoGenerateGroupsHandler(w http.ResponseWriter, r *http.Request) {
	configID, err := getIDFromURL(r, "configID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var req generateGroupsRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if req.DivisionID <= 0 {
		badRequestResponse(w, r, errInvalidDivisionID)
		return
	}

	opts := services.GenerateGroupsOptions{TargetGroupSize: req.TargetGroupSize}
	if err := h.preliminaries.AutoGenerateGroups(r.Context(), configID, req.DivisionID, opts); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BracketHandler) GeneratePreliminaryMatchesHandler(w http.ResponseWriter, r *http.Request) {
	configID, err := getIDFromURL(r, "configID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.preliminaries.GenerateMatches(r.Context(), configID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BracketHandler) GetGroupsHandler(w http.ResponseWriter, r *http.Request) {
	configID, err := getIDFromURL(r, "configID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	groups, err := h.preliminaries.GetGroups(r.Context(), configID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"groups": groups}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *BracketHandler) GetPreliminaryMatchesHandler(w http.ResponseWriter, r *http.Request) {
	configID, err := getIDFromURL(r, "configID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.preliminaries.GetMatches(r.Context(), configID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type generateMainBracketRequest struct {
	DivisionID         int `json:"division_id"`
	QualifiersPerGroup int `json:"qualifiers_per_group,omitempty"`
}

func (h *BracketHandler) GenerateMainBracketHandler(w http.ResponseWriter, r *http.Request) {
	configID, err := getIDFromURL(r, "configID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var req generateMainBracketRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if req.DivisionID <= 0 {
		badRequestResponse(w, r, errInvalidDivisionID)
		return
	}

	opts := services.GenerateMainBracketOptions{QualifiersPerGroup: req.QualifiersPerGroup}
	result, err := h.mainBracket.GenerateMainBracket(r.Context(), configID, req.DivisionID, opts)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"result": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *BracketHandler) GetMainBracketMatchesHandler(w http.ResponseWriter, r *http.Request) {
	configID, err := getIDFromURL(r, "configID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.mainBracket.GetMatches(r.Context(), configID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetBracketDataHandler serves the composite a viewer loads once before
// subscribing to the live channel.
func (h *BracketHandler) GetBracketDataHandler(w http.ResponseWriter, r *http.Request) {
	divisionID, err := getIDFromURL(r, "divisionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	data, err := h.bracketData.GetBracketData(r.Context(), divisionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, data, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *BracketHandler) ArchiveSnapshotHandler(w http.ResponseWriter, r *http.Request) {
	divisionID, err := getIDFromURL(r, "divisionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.snapshotService.ArchiveBracket(r.Context(), divisionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"snapshot": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
