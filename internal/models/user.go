package models

import "time"

// User is a dashboard account. Only the bcrypt hash is stored; the json
// tag keeps it out of every API response.
type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
