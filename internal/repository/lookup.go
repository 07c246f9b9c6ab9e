package repository

import "strings"

// UserLookup addresses a single user. Only UserByID and UserByEmail
// implement it, so no other column can be used to look users up.
type UserLookup interface {
	userColumn() (column string, value string)
}

// UserByID looks a user up by primary key.
type UserByID string

// UserByEmail looks a user up by email, compared in lower case.
type UserByEmail string

func (k UserByID) userColumn() (string, string) { return "id", string(k) }

func (k UserByEmail) userColumn() (string, string) {
	return "email", strings.ToLower(strings.TrimSpace(string(k)))
}

// SessionLookup addresses sessions by one of id, token or user_id.
type SessionLookup interface {
	sessionColumn() (column string, value string)
}

type (
	SessionByID     string
	SessionByToken  string
	SessionByUserID string
)

func (k SessionByID) sessionColumn() (string, string)     { return "id", string(k) }
func (k SessionByToken) sessionColumn() (string, string)  { return "token", string(k) }
func (k SessionByUserID) sessionColumn() (string, string) { return "user_id", string(k) }
