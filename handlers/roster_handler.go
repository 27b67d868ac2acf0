package handlers

import (
	"net/http"

	"github.com/kswiatek/tile-league/services"
)

type RosterHandler struct {
	rosterService *services.RosterService
	playerService *services.PlayerService
}

func NewRosterHandler(rosterService *services.RosterService, playerService *services.PlayerService) *RosterHandler {
	return &RosterHandler{
		rosterService: rosterService,
		playerService: playerService,
	}
}

// Resolve принимает список сырых имён и возвращает игроков в том же
// порядке, создавая отсутствующих.
func (h *RosterHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Names []string `json:"names"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	players, err := h.rosterService.Resolve(r.Context(), input.Names)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"players": players}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RosterHandler) Ensure(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name string `json:"name"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	player, err := h.rosterService.Ensure(r.Context(), input.Name)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, player, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SyncFromSheet подтягивает ростер турнира из опубликованной таблицы.
func (h *RosterHandler) SyncFromSheet(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	players, err := h.rosterService.SyncFromSheet(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"players": players}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListTournamentPlayers возвращает игроков турнира, отсортированных по
// рейтингу.
func (h *RosterHandler) ListTournamentPlayers(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := urlParamInt(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	players, err := h.playerService.ListByTournament(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"players": players}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
