package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kswiatek/tile-league/models"
	"github.com/kswiatek/tile-league/repositories"
)

var ErrTournamentNameConflict = errors.New("tournament name already exists")

type TournamentService struct {
	tournamentRepo repositories.TournamentRepository
}

func NewTournamentService(tournamentRepo repositories.TournamentRepository) *TournamentService {
	return &TournamentService{tournamentRepo: tournamentRepo}
}

type CreateTournamentInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	SheetURL    *string `json:"sheet_url,omitempty"`
	OrganizerID int     `json:"-"`
}

func (s *TournamentService) Create(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, fmt.Errorf("tournament name is required: %w", ErrValidationFailed)
	}

	tournament := &models.Tournament{
		Name:        input.Name,
		Description: input.Description,
		SheetURL:    input.SheetURL,
		OrganizerID: input.OrganizerID,
		Status:      models.StatusRegistration,
	}
	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		if errors.Is(err, repositories.ErrTournamentNameConflict) {
			return nil, ErrTournamentNameConflict
		}
		return nil, fmt.Errorf("tournament creation failed: %w", err)
	}
	return tournament, nil
}

func (s *TournamentService) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, fmt.Errorf("tournament %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("tournament lookup failed: %w", err)
	}
	return tournament, nil
}

func (s *TournamentService) List(ctx context.Context) ([]*models.Tournament, error) {
	return s.tournamentRepo.List(ctx)
}

func (s *TournamentService) UpdateStatus(ctx context.Context, id int, status models.TournamentStatus) error {
	switch status {
	case models.StatusRegistration, models.StatusActive, models.StatusCompleted:
	default:
		return fmt.Errorf("unknown tournament status %q: %w", status, ErrValidationFailed)
	}
	err := s.tournamentRepo.UpdateStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return fmt.Errorf("tournament %d: %w", id, ErrNotFound)
		}
		return fmt.Errorf("tournament status update failed: %w", err)
	}
	return nil
}
