package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/kswiatek/tile-league/repositories"
	"github.com/kswiatek/tile-league/storage"
)

// ExportService публикует снапшот текущих рейтингов турнира в объектное
// хранилище (CSV, перезаписывается по фиксированному ключу).
type ExportService struct {
	playerRepo     repositories.PlayerRepository
	tournamentRepo repositories.TournamentRepository
	uploader       storage.SnapshotUploader
	logger         *slog.Logger
}

func NewExportService(
	playerRepo repositories.PlayerRepository,
	tournamentRepo repositories.TournamentRepository,
	uploader storage.SnapshotUploader,
	logger *slog.Logger,
) *ExportService {
	return &ExportService{
		playerRepo:     playerRepo,
		tournamentRepo: tournamentRepo,
		uploader:       uploader,
		logger:         logger,
	}
}

func (s *ExportService) ExportRatings(ctx context.Context, tournamentID int) (*storage.UploadResult, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, fmt.Errorf("tournament %d: %w", tournamentID, ErrNotFound)
		}
		return nil, fmt.Errorf("tournament lookup failed: %w", err)
	}

	players, err := s.playerRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	_ = writer.Write([]string{"player_id", "name", "rating"})
	for _, player := range players {
		_ = writer.Write([]string{
			strconv.Itoa(player.ID),
			player.FullName(),
			strconv.FormatFloat(player.Rating, 'f', 1, 64),
		})
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to render ratings csv: %w", err)
	}

	key := fmt.Sprintf("ratings/%d/latest.csv", tournamentID)
	result, err := s.uploader.Upload(ctx, key, "text/csv", &buf)
	if err != nil {
		return nil, fmt.Errorf("ratings snapshot upload failed: %w", err)
	}

	s.logger.Info("ratings snapshot exported",
		slog.Int("tournament_id", tournamentID),
		slog.String("key", result.Key))
	return result, nil
}
