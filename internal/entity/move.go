package entity

import "time"

type Move struct {
	ID        int64     `json:"id"`
	GameID    int64     `json:"game_id"`
	UserID    int64     `json:"user_id"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`

	// PieceCode is derived from the game when a move is returned to a
	// caller; it is not stored.
	PieceCode string `json:"piece_code,omitempty"`

	// GameStatus annotates a freshly submitted move with the status the
	// game reached because of it.
	GameStatus string `json:"game_status,omitempty"`
}
