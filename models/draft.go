package models

import (
	"encoding/json"
	"time"
)

// DraftSchemaVersion is bumped whenever the detailed-entry form payload
// changes shape; stale drafts are discarded on load.
const DraftSchemaVersion = 2

// EntryDraft хранит черновик формы подробного ввода: один на пару
// (user, table), заменяется при сохранении, удаляется после успешной
// отправки раундов.
type EntryDraft struct {
	ID        int             `json:"id" db:"id"`
	UserID    int             `json:"user_id" db:"user_id"`
	TableID   int             `json:"table_id" db:"table_id"`
	Version   int             `json:"version" db:"version"`
	Payload   json.RawMessage `json:"payload" db:"payload"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}
