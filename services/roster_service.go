package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kswiatek/tile-league/models"
	"github.com/kswiatek/tile-league/names"
	"github.com/kswiatek/tile-league/repositories"
	"github.com/kswiatek/tile-league/sheets"
)

// RosterService превращает сырой список имён участников в стабильные
// идентичности игроков без дублей. Безопасен при параллельных вызовах:
// создание игрока идёт по протоколу insert-then-retry-on-conflict.
type RosterService struct {
	playerRepo     repositories.PlayerRepository
	tournamentRepo repositories.TournamentRepository
	source         sheets.RosterSource
	logger         *slog.Logger
}

func NewRosterService(
	playerRepo repositories.PlayerRepository,
	tournamentRepo repositories.TournamentRepository,
	source sheets.RosterSource,
	logger *slog.Logger,
) *RosterService {
	return &RosterService{
		playerRepo:     playerRepo,
		tournamentRepo: tournamentRepo,
		source:         source,
		logger:         logger,
	}
}

// MaxResolveBatch ограничивает один ручной запрос разрешения имён; путь
// через таблицу несёт ту же границу в sheets.MaxRosterNames.
const MaxResolveBatch = sheets.MaxRosterNames

// Resolve maps every raw name to an existing or freshly created player.
// Output order matches input order (empties dropped), repeats of the same
// name yield repeats of the same player. Fails with ErrEmptyRoster when
// nothing is left after cleaning and rejects batches over MaxResolveBatch
// before touching the store.
func (s *RosterService) Resolve(ctx context.Context, rawNames []string) ([]*models.Player, error) {
	if len(rawNames) > MaxResolveBatch {
		return nil, fmt.Errorf("roster batch of %d names exceeds the limit of %d: %w",
			len(rawNames), MaxResolveBatch, ErrValidationFailed)
	}

	type cleaned struct {
		raw string
		key string
	}
	batch := make([]cleaned, 0, len(rawNames))
	keySet := make(map[string]bool, len(rawNames))
	for _, raw := range rawNames {
		key := names.Normalize(raw)
		if key == "" {
			continue
		}
		batch = append(batch, cleaned{raw: raw, key: key})
		keySet[key] = true
	}
	if len(batch) == 0 {
		return nil, ErrEmptyRoster
	}

	keys := make([]string, 0, len(keySet))
	for key := range keySet {
		keys = append(keys, key)
	}

	existing, err := s.playerRepo.ListByNormKeys(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("roster bulk lookup failed: %w", err)
	}
	byKey := make(map[string]*models.Player, len(existing))
	for _, player := range existing {
		byKey[player.NormKey] = player
	}

	for _, entry := range batch {
		if _, ok := byKey[entry.key]; ok {
			continue
		}
		player, err := s.createOrRefetch(ctx, entry.raw, entry.key)
		if err != nil {
			return nil, err
		}
		byKey[entry.key] = player
	}

	resolved := make([]*models.Player, len(batch))
	for i, entry := range batch {
		resolved[i] = byKey[entry.key]
	}
	return resolved, nil
}

// Ensure повторяет Resolve для одного имени.
func (s *RosterService) Ensure(ctx context.Context, raw string) (*models.Player, error) {
	key := names.Normalize(raw)
	if key == "" {
		return nil, fmt.Errorf("name %q normalizes to an empty key: %w", raw, ErrValidationFailed)
	}

	player, err := s.playerRepo.GetByNormKey(ctx, key)
	if err == nil {
		return player, nil
	}
	if !errors.Is(err, repositories.ErrPlayerNotFound) {
		return nil, fmt.Errorf("player lookup failed: %w", err)
	}
	return s.createOrRefetch(ctx, raw, key)
}

// createOrRefetch inserts a new player and, when a concurrent caller won the
// insert race (unique violation on norm_key), re-reads the surviving row.
// Норм-ключ считает репозиторий из given+family; так как SplitFull и
// Normalize оба схлопывают пробелы, ключ вставки совпадает с ключом поиска.
func (s *RosterService) createOrRefetch(ctx context.Context, raw, key string) (*models.Player, error) {
	given, family := names.SplitFull(raw)
	player := &models.Player{
		FirstName: given,
		LastName:  family,
		Rating:    models.DefaultRating,
	}

	err := s.playerRepo.Create(ctx, nil, player)
	if err == nil {
		return player, nil
	}
	if !errors.Is(err, repositories.ErrPlayerKeyConflict) {
		return nil, fmt.Errorf("player creation for %q failed: %w", raw, err)
	}

	// Конкурентный вызов вставил игрока первым, это штатная ситуация.
	s.logger.Info("player insert lost creation race, re-reading",
		slog.String("norm_key", key))

	player, err = s.playerRepo.GetByNormKey(ctx, key)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			// После проигранной гонки строка обязана существовать; её
			// отсутствие означает рассинхронизацию нормализации и ключа.
			return nil, fmt.Errorf("name %q (key %q): %w", raw, key, ErrRosterLookupInconsistent)
		}
		return nil, fmt.Errorf("post-conflict lookup for %q failed: %w", raw, err)
	}
	return player, nil
}

// SyncFromSheet pulls the tournament's published roster sheet and resolves
// every name on it. Fetch failures surface as ErrRosterUnavailable, never
// as an empty roster.
func (s *RosterService) SyncFromSheet(ctx context.Context, tournamentID int) ([]*models.Player, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, fmt.Errorf("tournament %d: %w", tournamentID, ErrNotFound)
		}
		return nil, fmt.Errorf("tournament lookup failed: %w", err)
	}
	if tournament.SheetURL == nil || *tournament.SheetURL == "" {
		return nil, fmt.Errorf("tournament %d has no sheet url: %w", tournamentID, ErrRosterUnavailable)
	}

	rawNames, err := s.source.FetchNames(ctx, *tournament.SheetURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRosterUnavailable, err)
	}

	players, err := s.Resolve(ctx, rawNames)
	if err != nil {
		return nil, err
	}
	s.logger.Info("roster synced from sheet",
		slog.Int("tournament_id", tournamentID),
		slog.Int("names", len(rawNames)),
		slog.Int("players", len(players)))
	return players, nil
}
