package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kswiatek/tile-league/models"
	"github.com/kswiatek/tile-league/repositories"
)

// DraftService хранит черновики формы подробного ввода: один черновик на
// пару (оператор, стол), версионируется схемой формы и удаляется после
// успешной отправки раундов.
type DraftService struct {
	draftRepo repositories.DraftRepository
	tableRepo repositories.TableRepository
}

func NewDraftService(draftRepo repositories.DraftRepository, tableRepo repositories.TableRepository) *DraftService {
	return &DraftService{draftRepo: draftRepo, tableRepo: tableRepo}
}

func (s *DraftService) Save(ctx context.Context, userID, tableID int, payload json.RawMessage) (*models.EntryDraft, error) {
	if len(payload) == 0 || !json.Valid(payload) {
		return nil, fmt.Errorf("draft payload must be valid json: %w", ErrValidationFailed)
	}
	if _, err := s.tableRepo.GetByID(ctx, tableID); err != nil {
		if errors.Is(err, repositories.ErrTableNotFound) {
			return nil, fmt.Errorf("table %d: %w", tableID, ErrNotFound)
		}
		return nil, fmt.Errorf("table lookup failed: %w", err)
	}

	draft := &models.EntryDraft{
		UserID:  userID,
		TableID: tableID,
		Version: models.DraftSchemaVersion,
		Payload: payload,
	}
	if err := s.draftRepo.Save(ctx, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// Load возвращает черновик; черновик устаревшей версии схемы удаляется и
// считается отсутствующим.
func (s *DraftService) Load(ctx context.Context, userID, tableID int) (*models.EntryDraft, error) {
	draft, err := s.draftRepo.Get(ctx, userID, tableID)
	if err != nil {
		if errors.Is(err, repositories.ErrDraftNotFound) {
			return nil, fmt.Errorf("draft for table %d: %w", tableID, ErrNotFound)
		}
		return nil, err
	}
	if draft.Version != models.DraftSchemaVersion {
		_ = s.draftRepo.Delete(ctx, userID, tableID)
		return nil, fmt.Errorf("draft for table %d is from an older form version: %w", tableID, ErrNotFound)
	}
	return draft, nil
}

// Clear удаляет черновик после успешной отправки; отсутствие черновика не
// считается ошибкой.
func (s *DraftService) Clear(ctx context.Context, userID, tableID int) error {
	err := s.draftRepo.Delete(ctx, userID, tableID)
	if err != nil && !errors.Is(err, repositories.ErrDraftNotFound) {
		return err
	}
	return nil
}
