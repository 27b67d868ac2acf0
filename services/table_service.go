package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kswiatek/tile-league/models"
	"github.com/kswiatek/tile-league/repositories"
)

type TableService struct {
	tableRepo      repositories.TableRepository
	tournamentRepo repositories.TournamentRepository
	roundRepo      repositories.RoundRepository
	recomputer     RatingRecomputer
	logger         *slog.Logger
}

func NewTableService(
	tableRepo repositories.TableRepository,
	tournamentRepo repositories.TournamentRepository,
	roundRepo repositories.RoundRepository,
	recomputer RatingRecomputer,
	logger *slog.Logger,
) *TableService {
	return &TableService{
		tableRepo:      tableRepo,
		tournamentRepo: tournamentRepo,
		roundRepo:      roundRepo,
		recomputer:     recomputer,
		logger:         logger,
	}
}

type CreateTableInput struct {
	TournamentID   int   `json:"tournament_id"`
	PlayerCount    int   `json:"player_count"`
	RoundCount     int   `json:"round_count"`
	ParticipantIDs []int `json:"participant_ids"`
	CreatedBy      int   `json:"-"`
}

// CreateTable validates the configuration and creates the table together
// with its seated participants as one unit: a table is never observable
// without its full ordered roster.
func (s *TableService) CreateTable(ctx context.Context, input CreateTableInput) (*models.GameTable, error) {
	// Порядок проверок фиксирован: id турнира, диапазоны, длина списка, дубли.
	if input.TournamentID <= 0 {
		return nil, fmt.Errorf("tournament id is required: %w", ErrTableInvalidConfig)
	}
	if input.PlayerCount < models.MinTablePlayers || input.PlayerCount > models.MaxTablePlayers {
		return nil, fmt.Errorf("player count %d is outside %d..%d: %w",
			input.PlayerCount, models.MinTablePlayers, models.MaxTablePlayers, ErrTableInvalidConfig)
	}
	if input.RoundCount < models.MinTableRounds || input.RoundCount > models.MaxTableRounds {
		return nil, fmt.Errorf("round count %d is outside %d..%d: %w",
			input.RoundCount, models.MinTableRounds, models.MaxTableRounds, ErrTableInvalidConfig)
	}
	if len(input.ParticipantIDs) != input.PlayerCount {
		return nil, fmt.Errorf("expected %d participants, got %d: %w",
			input.PlayerCount, len(input.ParticipantIDs), ErrTableInvalidConfig)
	}
	seen := make(map[int]int, len(input.ParticipantIDs))
	for i, id := range input.ParticipantIDs {
		if id <= 0 {
			return nil, fmt.Errorf("participant slot %d: player id is required: %w", i+1, ErrTableInvalidConfig)
		}
		if prev, ok := seen[id]; ok {
			return nil, fmt.Errorf("participant slots %d and %d repeat player %d: %w",
				prev, i+1, id, ErrTableInvalidConfig)
		}
		seen[id] = i + 1
	}

	if _, err := s.tournamentRepo.GetByID(ctx, input.TournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, fmt.Errorf("tournament %d: %w", input.TournamentID, ErrNotFound)
		}
		return nil, fmt.Errorf("tournament lookup failed: %w", err)
	}

	table := &models.GameTable{
		TournamentID: input.TournamentID,
		PlayerCount:  input.PlayerCount,
		RoundCount:   input.RoundCount,
		CreatedBy:    input.CreatedBy,
	}
	if err := s.tableRepo.CreateWithParticipants(ctx, table, input.ParticipantIDs); err != nil {
		if errors.Is(err, repositories.ErrTablePlayerInvalid) {
			return nil, fmt.Errorf("participant list references an unknown player: %w", ErrTableInvalidConfig)
		}
		return nil, fmt.Errorf("table creation failed: %w", err)
	}
	return table, nil
}

// GetTable returns the table with its participants and recorded rounds.
func (s *TableService) GetTable(ctx context.Context, tableID int) (*models.GameTable, error) {
	table, err := s.tableRepo.GetByID(ctx, tableID)
	if err != nil {
		if errors.Is(err, repositories.ErrTableNotFound) {
			return nil, fmt.Errorf("table %d: %w", tableID, ErrNotFound)
		}
		return nil, fmt.Errorf("table lookup failed: %w", err)
	}

	rounds, err := s.roundRepo.ListByTable(ctx, tableID)
	if err != nil {
		return nil, fmt.Errorf("rounds lookup for table %d failed: %w", tableID, err)
	}
	table.Rounds = make([]models.Round, len(rounds))
	for i, round := range rounds {
		table.Rounds[i] = *round
	}
	return table, nil
}

// DeleteTable удаляет стол вместе с рассадкой и журналом раундов. Журнал
// меняется, поэтому после удаления запускается пересчёт рейтингов с той же
// семантикой, что и у мутаций раундов.
func (s *TableService) DeleteTable(ctx context.Context, tableID int) (*MutationResult, error) {
	if err := s.tableRepo.Delete(ctx, tableID); err != nil {
		if errors.Is(err, repositories.ErrTableNotFound) {
			return nil, fmt.Errorf("table %d: %w", tableID, ErrNotFound)
		}
		return nil, fmt.Errorf("table deletion failed: %w", err)
	}

	if err := s.recomputer.RecomputeAll(ctx); err != nil {
		s.logger.Warn("rating recompute failed after table deletion, ratings are stale",
			slog.Int("table_id", tableID),
			slog.Any("error", err))
		return &MutationResult{RatingsStale: true}, nil
	}
	return &MutationResult{}, nil
}

func (s *TableService) ListByTournament(ctx context.Context, tournamentID int) ([]*models.GameTable, error) {
	tables, err := s.tableRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("table listing for tournament %d failed: %w", tournamentID, err)
	}
	return tables, nil
}
