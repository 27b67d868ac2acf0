package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kswiatek/tile-league/models"
)

var ErrDraftNotFound = errors.New("entry draft not found")

type DraftRepository interface {
	// Save replaces any existing draft for (user, table).
	Save(ctx context.Context, draft *models.EntryDraft) error
	Get(ctx context.Context, userID, tableID int) (*models.EntryDraft, error)
	Delete(ctx context.Context, userID, tableID int) error
}

type postgresDraftRepository struct {
	db *sql.DB
}

func NewPostgresDraftRepository(db *sql.DB) DraftRepository {
	return &postgresDraftRepository{db: db}
}

func (r *postgresDraftRepository) Save(ctx context.Context, draft *models.EntryDraft) error {
	query := `
		INSERT INTO entry_drafts (user_id, table_id, version, payload, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id, table_id)
		DO UPDATE SET version = EXCLUDED.version, payload = EXCLUDED.payload, updated_at = now()
		RETURNING id, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		draft.UserID,
		draft.TableID,
		draft.Version,
		draft.Payload,
	).Scan(&draft.ID, &draft.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save entry draft: %w", err)
	}
	return nil
}

func (r *postgresDraftRepository) Get(ctx context.Context, userID, tableID int) (*models.EntryDraft, error) {
	query := `
		SELECT id, user_id, table_id, version, payload, updated_at
		FROM entry_drafts
		WHERE user_id = $1 AND table_id = $2`

	draft := &models.EntryDraft{}
	err := r.db.QueryRowContext(ctx, query, userID, tableID).Scan(
		&draft.ID,
		&draft.UserID,
		&draft.TableID,
		&draft.Version,
		&draft.Payload,
		&draft.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDraftNotFound
		}
		return nil, fmt.Errorf("failed to scan entry draft: %w", err)
	}
	return draft, nil
}

func (r *postgresDraftRepository) Delete(ctx context.Context, userID, tableID int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM entry_drafts WHERE user_id = $1 AND table_id = $2`, userID, tableID)
	if err != nil {
		return fmt.Errorf("failed to delete entry draft: %w", err)
	}
	return checkAffectedRows(result, ErrDraftNotFound)
}
