package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/kswiatek/tile-league/models"
	"github.com/kswiatek/tile-league/repositories"
	"golang.org/x/sync/errgroup"
)

const eloK = 32

// RatingService пересчитывает рейтинги с нуля по всей истории раундов.
// Никаких инкрементальных обновлений: каждый запуск начинает с рейтинга по
// умолчанию и проигрывает раунды в порядке записи, поэтому два запуска
// подряд без новых записей дают одинаковый результат.
type RatingService struct {
	playerRepo repositories.PlayerRepository
	roundRepo  repositories.RoundRepository
	tableRepo  repositories.TableRepository
	logger     *slog.Logger
}

func NewRatingService(
	playerRepo repositories.PlayerRepository,
	roundRepo repositories.RoundRepository,
	tableRepo repositories.TableRepository,
	logger *slog.Logger,
) *RatingService {
	return &RatingService{
		playerRepo: playerRepo,
		roundRepo:  roundRepo,
		tableRepo:  tableRepo,
		logger:     logger,
	}
}

func (s *RatingService) RecomputeAll(ctx context.Context) error {
	var (
		players []*models.Player
		rounds  []*models.Round
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		players, err = s.playerRepo.ListAll(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		rounds, err = s.roundRepo.ListAllOrdered(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("rating recompute data load failed: %w", err)
	}

	ratings := make(map[int]float64, len(players))
	for _, player := range players {
		ratings[player.ID] = models.DefaultRating
	}

	// Раунды простого режима не несут строк проигрышей; для них противники
	// победителя считаются все остальные за столом.
	opponents, err := s.loadSimpleRoundOpponents(ctx, rounds)
	if err != nil {
		return err
	}

	for _, round := range rounds {
		if len(round.Losses) > 0 {
			for _, loss := range round.Losses {
				applyElo(ratings, round.WinnerID, loss.PlayerID)
			}
			continue
		}
		for _, playerID := range opponents[round.TableID] {
			if playerID == round.WinnerID {
				continue
			}
			applyElo(ratings, round.WinnerID, playerID)
		}
	}

	if err := s.playerRepo.UpdateRatings(ctx, ratings); err != nil {
		return fmt.Errorf("rating write-back failed: %w", err)
	}

	s.logger.Info("ratings recomputed",
		slog.Int("players", len(players)),
		slog.Int("rounds", len(rounds)))
	return nil
}

func (s *RatingService) loadSimpleRoundOpponents(ctx context.Context, rounds []*models.Round) (map[int][]int, error) {
	opponents := make(map[int][]int)
	for _, round := range rounds {
		if len(round.Losses) > 0 {
			continue
		}
		if _, ok := opponents[round.TableID]; ok {
			continue
		}
		participants, err := s.tableRepo.ListParticipants(ctx, round.TableID)
		if err != nil {
			return nil, fmt.Errorf("participants load for table %d failed: %w", round.TableID, err)
		}
		ids := make([]int, len(participants))
		for i, participant := range participants {
			ids[i] = participant.PlayerID
		}
		opponents[round.TableID] = ids
	}
	return opponents, nil
}

// applyElo применяет один парный исход победитель-проигравший. Отрыв в
// очках в формулу не входит, поэтому заглушечные проигрыши с неизвестным
// отрывом считаются наравне с подробными.
func applyElo(ratings map[int]float64, winnerID, loserID int) {
	winner, okW := ratings[winnerID]
	loser, okL := ratings[loserID]
	if !okW || !okL {
		return
	}
	expected := 1 / (1 + math.Pow(10, (loser-winner)/400))
	delta := eloK * (1 - expected)
	ratings[winnerID] = winner + delta
	ratings[loserID] = loser - delta
}
