// Package models holds the engine's shared data types.
package models

import "time"

// User is a registered account as persisted in the credential file.
// Immutable after registration except Settings; never deleted.
type User struct {
	UserName     string
	PasswordHash string
	CreatedAt    time.Time
	Settings     map[string]any
}
