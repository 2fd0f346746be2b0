package models

import "time"

// Session is the identity resolved from a valid session token.
type Session struct {
	UserID    uint
	TokenID   string
	ExpiresAt time.Time
}
