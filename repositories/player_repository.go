package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kswiatek/tile-league/models"
	"github.com/kswiatek/tile-league/names"
	"github.com/lib/pq"
)

var (
	ErrPlayerNotFound    = errors.New("player not found")
	ErrPlayerKeyConflict = errors.New("player normalized name conflict")
	ErrPlayerKeyEmpty    = errors.New("player normalized name is empty")
)

type PlayerRepository interface {
	// Create inserts a new player. The normalized key is derived here from
	// first+last name; callers must never supply it. A unique-constraint
	// violation on the key surfaces as ErrPlayerKeyConflict so callers can
	// run the re-fetch branch of the conflict-retry protocol.
	Create(ctx context.Context, exec SQLExecutor, player *models.Player) error
	GetByID(ctx context.Context, id int) (*models.Player, error)
	GetByNormKey(ctx context.Context, key string) (*models.Player, error)
	ListByNormKeys(ctx context.Context, keys []string) ([]*models.Player, error)
	ListAll(ctx context.Context) ([]*models.Player, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Player, error)
	// UpdateRatings records the recomputed ratings in one transaction.
	UpdateRatings(ctx context.Context, ratings map[int]float64) error
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

func (r *postgresPlayerRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresPlayerRepository) Create(ctx context.Context, exec SQLExecutor, player *models.Player) error {
	key := names.Normalize(player.FullName())
	if key == "" {
		return ErrPlayerKeyEmpty
	}
	player.NormKey = key

	query := `
		INSERT INTO players (first_name, last_name, norm_key, rating)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		player.FirstName,
		player.LastName,
		player.NormKey,
		player.Rating,
	).Scan(&player.ID, &player.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			if pqErr.Constraint == "players_norm_key_key" {
				return ErrPlayerKeyConflict
			}
		}
		return fmt.Errorf("failed to insert player %q: %w", player.FullName(), err)
	}
	return nil
}

func (r *postgresPlayerRepository) GetByID(ctx context.Context, id int) (*models.Player, error) {
	query := `
		SELECT id, first_name, last_name, norm_key, rating, created_at
		FROM players
		WHERE id = $1`

	player := &models.Player{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&player.ID,
		&player.FirstName,
		&player.LastName,
		&player.NormKey,
		&player.Rating,
		&player.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to scan player by id %d: %w", id, err)
	}
	return player, nil
}

func (r *postgresPlayerRepository) GetByNormKey(ctx context.Context, key string) (*models.Player, error) {
	query := `
		SELECT id, first_name, last_name, norm_key, rating, created_at
		FROM players
		WHERE norm_key = $1`

	player := &models.Player{}
	err := r.db.QueryRowContext(ctx, query, key).Scan(
		&player.ID,
		&player.FirstName,
		&player.LastName,
		&player.NormKey,
		&player.Rating,
		&player.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to scan player by key %q: %w", key, err)
	}
	return player, nil
}

func (r *postgresPlayerRepository) ListByNormKeys(ctx context.Context, keys []string) ([]*models.Player, error) {
	if len(keys) == 0 {
		return []*models.Player{}, nil
	}

	query := `
		SELECT id, first_name, last_name, norm_key, rating, created_at
		FROM players
		WHERE norm_key = ANY($1)`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("failed to query players by keys: %w", err)
	}
	defer rows.Close()

	return scanPlayers(rows)
}

func (r *postgresPlayerRepository) ListAll(ctx context.Context) ([]*models.Player, error) {
	query := `
		SELECT id, first_name, last_name, norm_key, rating, created_at
		FROM players
		ORDER BY rating DESC, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	return scanPlayers(rows)
}

func (r *postgresPlayerRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Player, error) {
	query := `
		SELECT DISTINCT p.id, p.first_name, p.last_name, p.norm_key, p.rating, p.created_at
		FROM players p
		JOIN table_participants tp ON tp.player_id = p.id
		JOIN game_tables gt ON gt.id = tp.table_id
		WHERE gt.tournament_id = $1
		ORDER BY p.rating DESC, p.id`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query players for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	return scanPlayers(rows)
}

func (r *postgresPlayerRepository) UpdateRatings(ctx context.Context, ratings map[int]float64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin ratings transaction: %w", err)
	}
	defer tx.Rollback()

	query := `UPDATE players SET rating = $1 WHERE id = $2`
	for id, rating := range ratings {
		result, err := tx.ExecContext(ctx, query, rating, id)
		if err != nil {
			return fmt.Errorf("failed to update rating for player %d: %w", id, err)
		}
		if err := checkAffectedRows(result, ErrPlayerNotFound); err != nil {
			return fmt.Errorf("rating update for player %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ratings transaction: %w", err)
	}
	return nil
}

func scanPlayers(rows *sql.Rows) ([]*models.Player, error) {
	players := make([]*models.Player, 0)
	for rows.Next() {
		player := &models.Player{}
		err := rows.Scan(
			&player.ID,
			&player.FirstName,
			&player.LastName,
			&player.NormKey,
			&player.Rating,
			&player.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player row: %w", err)
		}
		players = append(players, player)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("player rows iteration error: %w", err)
	}
	return players, nil
}
