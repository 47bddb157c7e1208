package domain

import (
	"time"
)

// SecurityQuestions holds a user's three recovery questions. Answers are
// stored as scrypt hashes only; the plaintext never leaves the set/verify
// calls.
type SecurityQuestions struct {
	UpdatedAt   time.Time `json:"updated_at"`
	UserID      string    `json:"user_id"`
	Question1   string    `json:"question1"`
	Question2   string    `json:"question2"`
	Question3   string    `json:"question3"`
	Answer1Hash string    `json:"-"`
	Answer2Hash string    `json:"-"`
	Answer3Hash string    `json:"-"`
}
