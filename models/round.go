package models

import "time"

// UnknownMarginPoints is the placeholder loss written by the "winner" edit
// mode for rounds whose margin was never tracked. Such rows carry
// MarginKnown=false so they cannot be mistaken for a real one-point loss.
const UnknownMarginPoints = -1

// Round хранит результат одного раунда за столом. Уникален по (table_id, round_nr).
type Round struct {
	ID         int       `json:"id" db:"id"`
	TableID    int       `json:"table_id" db:"table_id"`
	RoundNr    int       `json:"round_nr" db:"round_nr"`
	WinnerID   int       `json:"winner_id" db:"winner_id"`
	RecordedAt time.Time `json:"recorded_at" db:"recorded_at"`

	// Связанные записи проигрышей (не мапятся напрямую)
	Losses []LossRecord `json:"losses,omitempty" db:"-"`
}

// LossRecord holds one loser's point delta for a round. Points are strictly
// negative; the round's winner never has a loss row.
type LossRecord struct {
	ID          int  `json:"id" db:"id"`
	RoundID     int  `json:"round_id" db:"round_id"`
	PlayerID    int  `json:"player_id" db:"player_id"`
	Points      int  `json:"points" db:"points"`
	MarginKnown bool `json:"margin_known" db:"margin_known"`
}

// WinnerGain is the derived display value for a detailed round: the sum of
// the absolute values of all losers' points. Never persisted.
func (r *Round) WinnerGain() int {
	gain := 0
	for _, l := range r.Losses {
		if l.Points < 0 {
			gain += -l.Points
		}
	}
	return gain
}
