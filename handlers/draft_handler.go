package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/kswiatek/tile-league/middleware"
	"github.com/kswiatek/tile-league/services"
)

type DraftHandler struct {
	draftService *services.DraftService
}

func NewDraftHandler(draftService *services.DraftService) *DraftHandler {
	return &DraftHandler{draftService: draftService}
}

func (h *DraftHandler) Save(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}
	tableID, err := urlParamInt(r, "tableID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Payload json.RawMessage `json:"payload"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	draft, err := h.draftService.Save(r.Context(), userID, tableID, input.Payload)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, draft, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *DraftHandler) Load(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}
	tableID, err := urlParamInt(r, "tableID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	draft, err := h.draftService.Load(r.Context(), userID, tableID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, draft, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *DraftHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}
	tableID, err := urlParamInt(r, "tableID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.draftService.Clear(r.Context(), userID, tableID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
