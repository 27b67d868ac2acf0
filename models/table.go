package models

import "time"

// Allowed table dimensions.
const (
	MinTablePlayers = 2
	MaxTablePlayers = 4
	MinTableRounds  = 1
	MaxTableRounds  = 5
)

// GameTable представляет один рассаженный матч: фиксированное число игроков и раундов.
// Список участников неизменен после создания.
type GameTable struct {
	ID           int       `json:"id" db:"id"`
	TournamentID int       `json:"tournament_id" db:"tournament_id"`
	PlayerCount  int       `json:"player_count" db:"player_count"`
	RoundCount   int       `json:"round_count" db:"round_count"`
	CreatedBy    int       `json:"created_by" db:"created_by"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`

	// Связанные сущности (не мапятся напрямую)
	Participants []TableParticipant `json:"participants,omitempty" db:"-"`
	Rounds       []Round            `json:"rounds,omitempty" db:"-"`
}

// TableParticipant binds a player to a table seat. Position is 1-based and
// only meaningful for display.
type TableParticipant struct {
	ID       int `json:"id" db:"id"`
	TableID  int `json:"table_id" db:"table_id"`
	PlayerID int `json:"player_id" db:"player_id"`
	Position int `json:"position" db:"position"`
}
