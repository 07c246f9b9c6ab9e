package model

import "time"

// Session backs one bearer token. Token stores the prefixed JWT exactly as
// handed to the client.
type Session struct {
    ID        string    `db:"id" json:"id"`
    UserID    string    `db:"user_id" json:"user_id"`
    Token     string    `db:"token" json:"token"`
    ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
    CreatedAt time.Time `db:"created_at" json:"created_at"`
    UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Expired reports whether the session is past its absolute expiry.
func (s Session) Expired(now time.Time) bool {
    return now.After(s.ExpiresAt)
}
