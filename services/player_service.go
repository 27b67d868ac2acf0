package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/kswiatek/tile-league/models"
	"github.com/kswiatek/tile-league/repositories"
)

// PlayerService даёт read-only доступ к игрокам и их рейтингам. Игроки
// создаются только через RosterService и никогда не удаляются; рейтинг
// меняет исключительно пересчёт.
type PlayerService struct {
	playerRepo repositories.PlayerRepository
}

func NewPlayerService(playerRepo repositories.PlayerRepository) *PlayerService {
	return &PlayerService{playerRepo: playerRepo}
}

func (s *PlayerService) GetByID(ctx context.Context, id int) (*models.Player, error) {
	player, err := s.playerRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, fmt.Errorf("player %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("player lookup failed: %w", err)
	}
	return player, nil
}

func (s *PlayerService) ListAll(ctx context.Context) ([]*models.Player, error) {
	return s.playerRepo.ListAll(ctx)
}

func (s *PlayerService) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Player, error) {
	return s.playerRepo.ListByTournament(ctx, tournamentID)
}
