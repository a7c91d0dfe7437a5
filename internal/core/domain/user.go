package domain

import "time"

// User is the principal that owns wallets.
type User struct {
	UserID    string    `json:"userID"` // Primary Key (UUID)
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}
