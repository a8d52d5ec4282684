package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an admin account. Accounts are provisioned from the CLI only.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
