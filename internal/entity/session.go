package entity

import "time"

// Session ties an issued token to a user; a token is only honored while
// its session is still present in the store.
type Session struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
