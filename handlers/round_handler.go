package handlers

import (
	"log/slog"
	"net/http"

	"github.com/kswiatek/tile-league/middleware"
	"github.com/kswiatek/tile-league/services"
)

type RoundHandler struct {
	roundService *services.RoundService
	draftService *services.DraftService
}

func NewRoundHandler(roundService *services.RoundService, draftService *services.DraftService) *RoundHandler {
	return &RoundHandler{
		roundService: roundService,
		draftService: draftService,
	}
}

// writeMutationResult отдаёт 200 с предупреждением «данные сохранены,
// рейтинги устарели», когда запись прошла, а пересчёт нет.
func writeMutationResult(w http.ResponseWriter, r *http.Request, result *services.MutationResult) {
	response := jsonResponse{"ratings_stale": result.RatingsStale}
	if result.RatingsStale {
		response["warning"] = "data saved, ratings stale"
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RecordWinners принимает простой режим: только победители раундов.
func (h *RoundHandler) RecordWinners(w http.ResponseWriter, r *http.Request) {
	tableID, err := urlParamInt(r, "tableID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Entries []services.WinnerEntry `json:"entries"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.roundService.RecordWinners(r.Context(), tableID, input.Entries)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeMutationResult(w, r, result)
}

// RecordDetailed принимает подробный режим: победитель плюс очки проигравших.
// После успешной отправки черновик формы этого оператора удаляется.
func (h *RoundHandler) RecordDetailed(w http.ResponseWriter, r *http.Request) {
	tableID, err := urlParamInt(r, "tableID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Rounds []services.DetailedEntry `json:"rounds"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.roundService.RecordDetailed(r.Context(), tableID, input.Rounds)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if userID, err := middleware.GetUserIDFromContext(r.Context()); err == nil {
		if err := h.draftService.Clear(r.Context(), userID, tableID); err != nil {
			slog.Warn("failed to clear entry draft after submission",
				slog.Int("table_id", tableID),
				slog.Any("error", err))
		}
	}

	writeMutationResult(w, r, result)
}

func (h *RoundHandler) Get(w http.ResponseWriter, r *http.Request) {
	tableID, err := urlParamInt(r, "tableID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	roundNr, err := urlParamInt(r, "roundNr")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	round, err := h.roundService.GetRound(r.Context(), tableID, roundNr)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"round": round}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RoundHandler) Edit(w http.ResponseWriter, r *http.Request) {
	tableID, err := urlParamInt(r, "tableID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	roundNr, err := urlParamInt(r, "roundNr")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.EditRoundInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.roundService.EditRound(r.Context(), tableID, roundNr, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeMutationResult(w, r, result)
}

func (h *RoundHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tableID, err := urlParamInt(r, "tableID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	roundNr, err := urlParamInt(r, "roundNr")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.roundService.DeleteRound(r.Context(), tableID, roundNr)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeMutationResult(w, r, result)
}
