package domain

import (
	"time"
)

// Notification is a user-facing message row written after a successful
// balance mutation or settlement transition.
type Notification struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Category  Category  `json:"category"`
	Reference string    `json:"reference"`
	Read      bool      `json:"read"`
}
