package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kswiatek/tile-league/models"
	"github.com/lib/pq"
)

var (
	ErrRoundNotFound      = errors.New("round not found")
	ErrRoundTableInvalid  = errors.New("round table conflict or invalid")
	ErrRoundPlayerInvalid = errors.New("round player conflict or invalid")
)

type RoundRepository interface {
	// UpsertWinner inserts the round or, if (table_id, round_nr) already
	// exists, replaces its winner and timestamp.
	UpsertWinner(ctx context.Context, exec SQLExecutor, round *models.Round) error
	// ReplaceLosses removes every loss record of the round and inserts the
	// supplied ones. Callers pass a transaction so a timed-out request never
	// leaves the round without its loss rows.
	ReplaceLosses(ctx context.Context, exec SQLExecutor, roundID int, losses []models.LossRecord) error
	// SaveRound upserts the winner row and replaces the loss records in a
	// single transaction.
	SaveRound(ctx context.Context, round *models.Round, losses []models.LossRecord) error
	GetByTableAndNr(ctx context.Context, tableID, roundNr int) (*models.Round, error)
	ListByTable(ctx context.Context, tableID int) ([]*models.Round, error)
	ListLossesByRound(ctx context.Context, roundID int) ([]models.LossRecord, error)
	// ListAllOrdered returns every round with its losses attached, ordered
	// by recording time (ties broken by id), which is the replay order used
	// by the rating recompute.
	ListAllOrdered(ctx context.Context) ([]*models.Round, error)
	DeleteByTableAndNr(ctx context.Context, tableID, roundNr int) error
}

type postgresRoundRepository struct {
	db *sql.DB
}

func NewPostgresRoundRepository(db *sql.DB) RoundRepository {
	return &postgresRoundRepository{db: db}
}

func (r *postgresRoundRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresRoundRepository) UpsertWinner(ctx context.Context, exec SQLExecutor, round *models.Round) error {
	query := `
		INSERT INTO rounds (table_id, round_nr, winner_id, recorded_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (table_id, round_nr)
		DO UPDATE SET winner_id = EXCLUDED.winner_id, recorded_at = now()
		RETURNING id, recorded_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		round.TableID,
		round.RoundNr,
		round.WinnerID,
	).Scan(&round.ID, &round.RecordedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			switch pqErr.Constraint {
			case "rounds_table_id_fkey":
				return ErrRoundTableInvalid
			case "rounds_winner_id_fkey":
				return ErrRoundPlayerInvalid
			}
		}
		return fmt.Errorf("failed to upsert round %d of table %d: %w", round.RoundNr, round.TableID, err)
	}
	return nil
}

func (r *postgresRoundRepository) SaveRound(ctx context.Context, round *models.Round, losses []models.LossRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin round transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.UpsertWinner(ctx, tx, round); err != nil {
		return err
	}
	if err := r.ReplaceLosses(ctx, tx, round.ID, losses); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit round %d of table %d: %w", round.RoundNr, round.TableID, err)
	}
	return nil
}

func (r *postgresRoundRepository) ReplaceLosses(ctx context.Context, exec SQLExecutor, roundID int, losses []models.LossRecord) error {
	executor := r.getExecutor(exec)

	// Всегда delete-all-then-insert, чтобы после смены режима ввода не
	// оставались строки от предыдущего редактирования.
	if _, err := executor.ExecContext(ctx, `DELETE FROM loss_records WHERE round_id = $1`, roundID); err != nil {
		return fmt.Errorf("failed to clear loss records of round %d: %w", roundID, err)
	}

	insert := `
		INSERT INTO loss_records (round_id, player_id, points, margin_known)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	for i := range losses {
		losses[i].RoundID = roundID
		err := executor.QueryRowContext(ctx, insert,
			losses[i].RoundID,
			losses[i].PlayerID,
			losses[i].Points,
			losses[i].MarginKnown,
		).Scan(&losses[i].ID)
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
				return ErrRoundPlayerInvalid
			}
			return fmt.Errorf("failed to insert loss record for round %d: %w", roundID, err)
		}
	}
	return nil
}

func (r *postgresRoundRepository) GetByTableAndNr(ctx context.Context, tableID, roundNr int) (*models.Round, error) {
	query := `
		SELECT id, table_id, round_nr, winner_id, recorded_at
		FROM rounds
		WHERE table_id = $1 AND round_nr = $2`

	round := &models.Round{}
	err := r.db.QueryRowContext(ctx, query, tableID, roundNr).Scan(
		&round.ID,
		&round.TableID,
		&round.RoundNr,
		&round.WinnerID,
		&round.RecordedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoundNotFound
		}
		return nil, fmt.Errorf("failed to scan round %d of table %d: %w", roundNr, tableID, err)
	}

	losses, err := r.ListLossesByRound(ctx, round.ID)
	if err != nil {
		return nil, err
	}
	round.Losses = losses
	return round, nil
}

func (r *postgresRoundRepository) ListByTable(ctx context.Context, tableID int) ([]*models.Round, error) {
	query := `
		SELECT id, table_id, round_nr, winner_id, recorded_at
		FROM rounds
		WHERE table_id = $1
		ORDER BY round_nr`

	rows, err := r.db.QueryContext(ctx, query, tableID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rounds for table %d: %w", tableID, err)
	}
	defer rows.Close()

	rounds, err := scanRounds(rows)
	if err != nil {
		return nil, err
	}
	for _, round := range rounds {
		losses, err := r.ListLossesByRound(ctx, round.ID)
		if err != nil {
			return nil, err
		}
		round.Losses = losses
	}
	return rounds, nil
}

func (r *postgresRoundRepository) ListLossesByRound(ctx context.Context, roundID int) ([]models.LossRecord, error) {
	query := `
		SELECT id, round_id, player_id, points, margin_known
		FROM loss_records
		WHERE round_id = $1
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to query loss records for round %d: %w", roundID, err)
	}
	defer rows.Close()

	losses := make([]models.LossRecord, 0)
	for rows.Next() {
		var l models.LossRecord
		if err := rows.Scan(&l.ID, &l.RoundID, &l.PlayerID, &l.Points, &l.MarginKnown); err != nil {
			return nil, fmt.Errorf("failed to scan loss record row: %w", err)
		}
		losses = append(losses, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loss record rows iteration error: %w", err)
	}
	return losses, nil
}

func (r *postgresRoundRepository) ListAllOrdered(ctx context.Context) ([]*models.Round, error) {
	query := `
		SELECT id, table_id, round_nr, winner_id, recorded_at
		FROM rounds
		ORDER BY recorded_at, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query rounds: %w", err)
	}
	defer rows.Close()

	rounds, err := scanRounds(rows)
	if err != nil {
		return nil, err
	}
	if len(rounds) == 0 {
		return rounds, nil
	}

	// Одним запросом подтягиваем все записи проигрышей и раскладываем по раундам.
	byID := make(map[int]*models.Round, len(rounds))
	for _, round := range rounds {
		byID[round.ID] = round
	}

	lossRows, err := r.db.QueryContext(ctx, `
		SELECT id, round_id, player_id, points, margin_known
		FROM loss_records
		ORDER BY round_id, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query loss records: %w", err)
	}
	defer lossRows.Close()

	for lossRows.Next() {
		var l models.LossRecord
		if err := lossRows.Scan(&l.ID, &l.RoundID, &l.PlayerID, &l.Points, &l.MarginKnown); err != nil {
			return nil, fmt.Errorf("failed to scan loss record row: %w", err)
		}
		if round, ok := byID[l.RoundID]; ok {
			round.Losses = append(round.Losses, l)
		}
	}
	if err := lossRows.Err(); err != nil {
		return nil, fmt.Errorf("loss record rows iteration error: %w", err)
	}
	return rounds, nil
}

// DeleteByTableAndNr removes a round; its loss records go with it via
// ON DELETE CASCADE.
func (r *postgresRoundRepository) DeleteByTableAndNr(ctx context.Context, tableID, roundNr int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM rounds WHERE table_id = $1 AND round_nr = $2`, tableID, roundNr)
	if err != nil {
		return fmt.Errorf("failed to delete round %d of table %d: %w", roundNr, tableID, err)
	}
	return checkAffectedRows(result, ErrRoundNotFound)
}

func scanRounds(rows *sql.Rows) ([]*models.Round, error) {
	rounds := make([]*models.Round, 0)
	for rows.Next() {
		round := &models.Round{}
		err := rows.Scan(
			&round.ID,
			&round.TableID,
			&round.RoundNr,
			&round.WinnerID,
			&round.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan round row: %w", err)
		}
		rounds = append(rounds, round)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("round rows iteration error: %w", err)
	}
	return rounds, nil
}
