package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kswiatek/tile-league/live"
	"github.com/kswiatek/tile-league/models"
	"github.com/kswiatek/tile-league/repositories"
)

// RatingRecomputer запускает внешний пересчёт рейтингов. Вызывается после каждой
// успешной мутации журнала; пересчитывает весь набор данных с нуля, поэтому
// повторный вызов безопасен и идемпотентен.
type RatingRecomputer interface {
	RecomputeAll(ctx context.Context) error
}

type WinnerEntry struct {
	RoundNr  int `json:"round_nr"`
	WinnerID int `json:"winner_id"`
}

type LossEntry struct {
	PlayerID int `json:"player_id"`
	Points   int `json:"points"`
}

type DetailedEntry struct {
	RoundNr  int         `json:"round_nr"`
	WinnerID int         `json:"winner_id"`
	Losers   []LossEntry `json:"losers"`
}

type EditMode string

const (
	// EditModeWinner задаёт только победителя; остальным участникам
	// пишется заглушка «проигрыш с неизвестным отрывом».
	EditModeWinner EditMode = "winner"
	// EditModeSmall принимает очки всех участников; победитель выводится
	// из распределения знаков.
	EditModeSmall EditMode = "small"
)

type EditRoundInput struct {
	Mode     EditMode `json:"mode"`
	WinnerID int      `json:"winner_id,omitempty"`
	// Scores: player id → points; nil означает пустое поле формы и
	// допустим только у победителя.
	Scores map[int]*int `json:"scores,omitempty"`
}

// MutationResult reports the outcome of a successful ledger write.
// RatingsStale is set when the write itself succeeded but the follow-up
// rating recompute failed; the caller should surface it as a warning, not
// an error.
type MutationResult struct {
	RatingsStale bool `json:"ratings_stale"`
}

// RoundService ведёт журнал результатов раундов. Каждая запись немедленно
// авторитетна (черновиков нет); конкурентные правки одного раунда не
// координируются: выигрывает последний пишущий.
type RoundService struct {
	roundRepo  repositories.RoundRepository
	tableRepo  repositories.TableRepository
	recomputer RatingRecomputer
	hub        *live.Hub
	logger     *slog.Logger
}

func NewRoundService(
	roundRepo repositories.RoundRepository,
	tableRepo repositories.TableRepository,
	recomputer RatingRecomputer,
	hub *live.Hub,
	logger *slog.Logger,
) *RoundService {
	return &RoundService{
		roundRepo:  roundRepo,
		tableRepo:  tableRepo,
		recomputer: recomputer,
		hub:        hub,
		logger:     logger,
	}
}

// RecordWinners реализует «простой» режим: пакетный upsert победителей по ключу
// (стол, номер раунда). Пакет применяется целиком или отклоняется целиком.
func (s *RoundService) RecordWinners(ctx context.Context, tableID int, entries []WinnerEntry) (*MutationResult, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("no entries submitted: %w", ErrValidationFailed)
	}

	table, seated, err := s.loadTable(ctx, tableID)
	if err != nil {
		return nil, err
	}

	// Сначала проверяем весь пакет: записи приходят из одной формы, и
	// частичное применение запутало бы оператора.
	for _, entry := range entries {
		if entry.RoundNr < 1 || entry.RoundNr > table.RoundCount {
			return nil, fmt.Errorf("round %d is outside 1..%d: %w", entry.RoundNr, table.RoundCount, ErrInvalidRound)
		}
		if entry.WinnerID == 0 {
			return nil, fmt.Errorf("round %d: winner is required: %w", entry.RoundNr, ErrInvalidRound)
		}
		if !seated[entry.WinnerID] {
			return nil, fmt.Errorf("round %d: winner %d is not seated at table %d: %w",
				entry.RoundNr, entry.WinnerID, tableID, ErrInvalidRound)
		}
	}

	for _, entry := range entries {
		// Простой режим не несёт очков; строки проигрышей от прежнего
		// подробного ввода зачищаются, чтобы не пережить смену режима.
		if err := s.writeRound(ctx, tableID, entry.RoundNr, entry.WinnerID, nil); err != nil {
			return nil, err
		}
	}

	return s.afterMutation(ctx, table), nil
}

// RecordDetailed реализует «подробный» режим: победитель плюс отрицательные дельты
// очков всех проигравших. Выигрыш победителя вычисляется как производная (сумма
// модулей), нигде не хранится.
func (s *RoundService) RecordDetailed(ctx context.Context, tableID int, rounds []DetailedEntry) (*MutationResult, error) {
	if len(rounds) == 0 {
		return nil, fmt.Errorf("no rounds submitted: %w", ErrValidationFailed)
	}

	table, seated, err := s.loadTable(ctx, tableID)
	if err != nil {
		return nil, err
	}

	for _, entry := range rounds {
		if entry.RoundNr < 1 || entry.RoundNr > table.RoundCount {
			return nil, fmt.Errorf("round %d is outside 1..%d: %w", entry.RoundNr, table.RoundCount, ErrInvalidRound)
		}
		if entry.WinnerID == 0 {
			return nil, fmt.Errorf("round %d: %w", entry.RoundNr, ErrMissingWinner)
		}
		if !seated[entry.WinnerID] {
			return nil, fmt.Errorf("round %d: winner %d is not seated at table %d: %w",
				entry.RoundNr, entry.WinnerID, tableID, ErrInvalidRound)
		}
		if len(entry.Losers) == 0 {
			return nil, fmt.Errorf("round %d has no losers: %w", entry.RoundNr, ErrInvalidScore)
		}
		seenLoser := make(map[int]bool, len(entry.Losers))
		for _, loser := range entry.Losers {
			if loser.PlayerID == entry.WinnerID {
				return nil, fmt.Errorf("round %d: winner %d cannot also lose: %w",
					entry.RoundNr, entry.WinnerID, ErrInvalidScore)
			}
			if !seated[loser.PlayerID] {
				return nil, fmt.Errorf("round %d: player %d is not seated at table %d: %w",
					entry.RoundNr, loser.PlayerID, tableID, ErrInvalidScore)
			}
			if seenLoser[loser.PlayerID] {
				return nil, fmt.Errorf("round %d: player %d appears twice: %w",
					entry.RoundNr, loser.PlayerID, ErrInvalidScore)
			}
			seenLoser[loser.PlayerID] = true
			// Ноль и положительные значения отклоняются, не приводятся.
			if loser.Points >= 0 {
				return nil, fmt.Errorf("round %d: player %d points must be strictly negative, got %d: %w",
					entry.RoundNr, loser.PlayerID, loser.Points, ErrInvalidScore)
			}
		}
	}

	for _, entry := range rounds {
		losses := make([]models.LossRecord, len(entry.Losers))
		for i, loser := range entry.Losers {
			losses[i] = models.LossRecord{
				PlayerID:    loser.PlayerID,
				Points:      loser.Points,
				MarginKnown: true,
			}
		}
		if err := s.writeRound(ctx, tableID, entry.RoundNr, entry.WinnerID, losses); err != nil {
			return nil, err
		}
	}

	return s.afterMutation(ctx, table), nil
}

// EditRound правит один раунд из экрана управления столом.
func (s *RoundService) EditRound(ctx context.Context, tableID, roundNr int, input EditRoundInput) (*MutationResult, error) {
	table, seated, err := s.loadTable(ctx, tableID)
	if err != nil {
		return nil, err
	}
	if roundNr < 1 || roundNr > table.RoundCount {
		return nil, fmt.Errorf("round %d is outside 1..%d: %w", roundNr, table.RoundCount, ErrInvalidRound)
	}

	var winnerID int
	var losses []models.LossRecord

	switch input.Mode {
	case EditModeWinner:
		if input.WinnerID == 0 {
			return nil, fmt.Errorf("round %d: %w", roundNr, ErrMissingWinner)
		}
		if !seated[input.WinnerID] {
			return nil, fmt.Errorf("round %d: winner %d is not seated at table %d: %w",
				roundNr, input.WinnerID, tableID, ErrInvalidRound)
		}
		winnerID = input.WinnerID
		// Отрыв не отслеживался: остальным пишем заглушку с
		// margin_known=false, чтобы она не читалась как проигрыш в 1 очко.
		for _, participant := range table.Participants {
			if participant.PlayerID == winnerID {
				continue
			}
			losses = append(losses, models.LossRecord{
				PlayerID:    participant.PlayerID,
				Points:      models.UnknownMarginPoints,
				MarginKnown: false,
			})
		}

	case EditModeSmall:
		winnerID, losses, err = s.inferFromScores(table, roundNr, input.Scores)
		if err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unknown edit mode %q: %w", input.Mode, ErrValidationFailed)
	}

	if err := s.writeRound(ctx, tableID, roundNr, winnerID, losses); err != nil {
		return nil, err
	}
	return s.afterMutation(ctx, table), nil
}

// inferFromScores выводит победителя из распределения очков: ровно один
// участник с неотрицательным (или пустым) значением, все прочие строго
// отрицательные.
func (s *RoundService) inferFromScores(table *models.GameTable, roundNr int, scores map[int]*int) (int, []models.LossRecord, error) {
	for playerID := range scores {
		found := false
		for _, participant := range table.Participants {
			if participant.PlayerID == playerID {
				found = true
				break
			}
		}
		if !found {
			return 0, nil, fmt.Errorf("round %d: player %d is not seated at table %d: %w",
				roundNr, playerID, table.ID, ErrValidationFailed)
		}
	}

	winnerID := 0
	losses := make([]models.LossRecord, 0, len(table.Participants)-1)
	for _, participant := range table.Participants {
		value, ok := scores[participant.PlayerID]
		if !ok {
			return 0, nil, fmt.Errorf("round %d: player %d has no score entry: %w",
				roundNr, participant.PlayerID, ErrValidationFailed)
		}
		if value == nil || *value >= 0 {
			if winnerID != 0 {
				return 0, nil, fmt.Errorf("round %d: players %d and %d both have non-negative scores: %w",
					roundNr, winnerID, participant.PlayerID, ErrAmbiguousWinner)
			}
			winnerID = participant.PlayerID
			continue
		}
		losses = append(losses, models.LossRecord{
			PlayerID:    participant.PlayerID,
			Points:      *value,
			MarginKnown: true,
		})
	}
	if winnerID == 0 {
		return 0, nil, fmt.Errorf("round %d: every score is negative: %w", roundNr, ErrAmbiguousWinner)
	}
	return winnerID, losses, nil
}

// GetRound возвращает раунд с его строками проигрышей; форма правки
// заполняется из этого ответа.
func (s *RoundService) GetRound(ctx context.Context, tableID, roundNr int) (*models.Round, error) {
	round, err := s.roundRepo.GetByTableAndNr(ctx, tableID, roundNr)
	if err != nil {
		if errors.Is(err, repositories.ErrRoundNotFound) {
			return nil, fmt.Errorf("round %d of table %d: %w", roundNr, tableID, ErrNotFound)
		}
		return nil, fmt.Errorf("round lookup failed: %w", err)
	}
	return round, nil
}

// DeleteRound removes a round and its loss records as a unit.
func (s *RoundService) DeleteRound(ctx context.Context, tableID, roundNr int) (*MutationResult, error) {
	table, _, err := s.loadTable(ctx, tableID)
	if err != nil {
		return nil, err
	}

	if err := s.roundRepo.DeleteByTableAndNr(ctx, tableID, roundNr); err != nil {
		if errors.Is(err, repositories.ErrRoundNotFound) {
			return nil, fmt.Errorf("round %d of table %d: %w", roundNr, tableID, ErrNotFound)
		}
		return nil, fmt.Errorf("round deletion failed: %w", err)
	}
	return s.afterMutation(ctx, table), nil
}

func (s *RoundService) loadTable(ctx context.Context, tableID int) (*models.GameTable, map[int]bool, error) {
	table, err := s.tableRepo.GetByID(ctx, tableID)
	if err != nil {
		if errors.Is(err, repositories.ErrTableNotFound) {
			return nil, nil, fmt.Errorf("table %d: %w", tableID, ErrNotFound)
		}
		return nil, nil, fmt.Errorf("table lookup failed: %w", err)
	}
	seated := make(map[int]bool, len(table.Participants))
	for _, participant := range table.Participants {
		seated[participant.PlayerID] = true
	}
	return table, seated, nil
}

// writeRound применяет replace-winner + delete-then-insert-losses в одной
// транзакции: прерванный запрос не оставит раунд без строк проигрышей.
func (s *RoundService) writeRound(ctx context.Context, tableID, roundNr, winnerID int, losses []models.LossRecord) error {
	round := &models.Round{
		TableID:  tableID,
		RoundNr:  roundNr,
		WinnerID: winnerID,
	}
	if err := s.roundRepo.SaveRound(ctx, round, losses); err != nil {
		return fmt.Errorf("round %d write failed: %w", roundNr, err)
	}
	return nil
}

// afterMutation запускает пересчёт рейтингов. Сбой пересчёта не откатывает
// уже успешную запись: данные сохранены, рейтинги помечаются устаревшими, а
// повторный пересчёт безопасен в любой момент.
func (s *RoundService) afterMutation(ctx context.Context, table *models.GameTable) *MutationResult {
	if s.hub != nil {
		s.hub.BroadcastToRoom(live.TournamentRoom(table.TournamentID), live.Message{
			Type:    live.MessageRoundRecorded,
			Payload: map[string]int{"table_id": table.ID},
		})
	}

	if err := s.recomputer.RecomputeAll(ctx); err != nil {
		s.logger.Warn("rating recompute failed after ledger write, ratings are stale",
			slog.Int("table_id", table.ID),
			slog.Any("error", err))
		return &MutationResult{RatingsStale: true}
	}

	if s.hub != nil {
		s.hub.BroadcastToRoom(live.TournamentRoom(table.TournamentID), live.Message{
			Type: live.MessageRatingsUpdated,
		})
	}
	return &MutationResult{}
}
