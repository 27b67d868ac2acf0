package models

import (
	"strings"
	"time"
)

// DefaultRating is assigned to every newly created player.
const DefaultRating = 1200.0

// Player представляет игрока лиги. NormKey хранит нормализованное полное имя,
// уникальное по всей таблице; вычисляется репозиторием, никогда не приходит
// от клиента.
type Player struct {
	ID        int       `json:"id" db:"id"`
	FirstName string    `json:"first_name" db:"first_name"`
	LastName  string    `json:"last_name" db:"last_name"`
	NormKey   string    `json:"-" db:"norm_key"`
	Rating    float64   `json:"rating" db:"rating"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

func (p *Player) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}
