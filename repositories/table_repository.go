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
	ErrTableNotFound          = errors.New("game table not found")
	ErrTableTournamentInvalid = errors.New("game table tournament conflict or invalid")
	ErrTablePlayerInvalid     = errors.New("game table player conflict or invalid")
)

type TableRepository interface {
	// CreateWithParticipants inserts the table row and all its participant
	// rows in one transaction: either the whole table exists afterwards or
	// nothing does.
	CreateWithParticipants(ctx context.Context, table *models.GameTable, playerIDs []int) error
	GetByID(ctx context.Context, id int) (*models.GameTable, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.GameTable, error)
	ListParticipants(ctx context.Context, tableID int) ([]models.TableParticipant, error)
	Delete(ctx context.Context, id int) error
}

type postgresTableRepository struct {
	db *sql.DB
}

func NewPostgresTableRepository(db *sql.DB) TableRepository {
	return &postgresTableRepository{db: db}
}

func (r *postgresTableRepository) CreateWithParticipants(ctx context.Context, table *models.GameTable, playerIDs []int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin table transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // no-op после успешного Commit
	}()

	insertTable := `
		INSERT INTO game_tables (tournament_id, player_count, round_count, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err = tx.QueryRowContext(ctx, insertTable,
		table.TournamentID,
		table.PlayerCount,
		table.RoundCount,
		table.CreatedBy,
	).Scan(&table.ID, &table.CreatedAt)
	if err != nil {
		return r.handleTableError(err)
	}

	insertParticipant := `
		INSERT INTO table_participants (table_id, player_id, position)
		VALUES ($1, $2, $3)
		RETURNING id`

	table.Participants = make([]models.TableParticipant, 0, len(playerIDs))
	for i, playerID := range playerIDs {
		participant := models.TableParticipant{
			TableID:  table.ID,
			PlayerID: playerID,
			Position: i + 1,
		}
		err = tx.QueryRowContext(ctx, insertParticipant,
			participant.TableID,
			participant.PlayerID,
			participant.Position,
		).Scan(&participant.ID)
		if err != nil {
			return r.handleTableError(err)
		}
		table.Participants = append(table.Participants, participant)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit table transaction: %w", err)
	}
	return nil
}

func (r *postgresTableRepository) GetByID(ctx context.Context, id int) (*models.GameTable, error) {
	query := `
		SELECT id, tournament_id, player_count, round_count, created_by, created_at
		FROM game_tables
		WHERE id = $1`

	table := &models.GameTable{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&table.ID,
		&table.TournamentID,
		&table.PlayerCount,
		&table.RoundCount,
		&table.CreatedBy,
		&table.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("failed to scan game table by id %d: %w", id, err)
	}

	participants, err := r.ListParticipants(ctx, id)
	if err != nil {
		return nil, err
	}
	table.Participants = participants
	return table, nil
}

func (r *postgresTableRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.GameTable, error) {
	query := `
		SELECT id, tournament_id, player_count, round_count, created_by, created_at
		FROM game_tables
		WHERE tournament_id = $1
		ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query game tables for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	tables := make([]*models.GameTable, 0)
	for rows.Next() {
		table := &models.GameTable{}
		err := rows.Scan(
			&table.ID,
			&table.TournamentID,
			&table.PlayerCount,
			&table.RoundCount,
			&table.CreatedBy,
			&table.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game table row: %w", err)
		}
		tables = append(tables, table)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("game table rows iteration error: %w", err)
	}
	return tables, nil
}

func (r *postgresTableRepository) ListParticipants(ctx context.Context, tableID int) ([]models.TableParticipant, error) {
	query := `
		SELECT id, table_id, player_id, position
		FROM table_participants
		WHERE table_id = $1
		ORDER BY position`

	rows, err := r.db.QueryContext(ctx, query, tableID)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants for table %d: %w", tableID, err)
	}
	defer rows.Close()

	participants := make([]models.TableParticipant, 0)
	for rows.Next() {
		var p models.TableParticipant
		if err := rows.Scan(&p.ID, &p.TableID, &p.PlayerID, &p.Position); err != nil {
			return nil, fmt.Errorf("failed to scan participant row: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("participant rows iteration error: %w", err)
	}
	return participants, nil
}

// Delete removes the table; participants, rounds and loss records go with it
// via ON DELETE CASCADE.
func (r *postgresTableRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM game_tables WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete game table %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTableNotFound)
}

func (r *postgresTableRepository) handleTableError(err error) error {
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
		switch pqErr.Constraint {
		case "game_tables_tournament_id_fkey":
			return ErrTableTournamentInvalid
		case "table_participants_player_id_fkey":
			return ErrTablePlayerInvalid
		}
	}
	return fmt.Errorf("game table persistence error: %w", err)
}
