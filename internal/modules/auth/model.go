// README: User accounts and login tokens.
package auth

import (
	"time"

	"porter/internal/types"
)

type User struct {
	ID           types.ID
	Username     string
	DisplayName  string
	Role         types.Role
	Active       bool
	PasswordHash string
}

type Token struct {
	Token     string
	UserID    types.ID
	ExpiresAt time.Time
}
