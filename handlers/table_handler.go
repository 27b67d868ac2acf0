package handlers

import (
	"net/http"

	"github.com/kswiatek/tile-league/middleware"
	"github.com/kswiatek/tile-league/services"
)

type TableHandler struct {
	tableService *services.TableService
}

func NewTableHandler(tableService *services.TableService) *TableHandler {
	return &TableHandler{tableService: tableService}
}

func (h *TableHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	var input services.CreateTableInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	input.CreatedBy = userID

	table, err := h.tableService.CreateTable(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, table, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TableHandler) Get(w http.ResponseWriter, r *http.Request) {
	tableID, err := urlParamInt(r, "tableID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	table, err := h.tableService.GetTable(r.Context(), tableID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, table, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TableHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tableID, err := urlParamInt(r, "tableID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.tableService.DeleteTable(r.Context(), tableID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeMutationResult(w, r, result)
}

func (h *TableHandler) ListByTournament(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tables, err := h.tableService.ListByTournament(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tables": tables}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
