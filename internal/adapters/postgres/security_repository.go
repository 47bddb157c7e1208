package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ovomonie/banking-service/internal/domain"
	"github.com/ovomonie/banking-service/internal/domain/ports"
)

// SecurityQuestionRepository implements ports.SecurityQuestionRepository on
// PostgreSQL.
type SecurityQuestionRepository struct {
	db *DBExecutor
}

var _ ports.SecurityQuestionRepository = (*SecurityQuestionRepository)(nil)

// NewSecurityQuestionRepository creates a new security question repository.
func NewSecurityQuestionRepository(db *DBExecutor) *SecurityQuestionRepository {
	return &SecurityQuestionRepository{db: db}
}

// Upsert replaces the user's question set in place. user_id is the primary
// key, so a user never accumulates more than one row.
func (r *SecurityQuestionRepository) Upsert(ctx context.Context, q *domain.SecurityQuestions) error {
	q.UpdatedAt = time.Now().UTC()
	_, err := r.db.Pool().Exec(ctx,
		`INSERT INTO security_questions
		   (user_id, question1, answer1_hash, question2, answer2_hash,
		    question3, answer3_hash, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (user_id) DO UPDATE SET
		   question1 = EXCLUDED.question1, answer1_hash = EXCLUDED.answer1_hash,
		   question2 = EXCLUDED.question2, answer2_hash = EXCLUDED.answer2_hash,
		   question3 = EXCLUDED.question3, answer3_hash = EXCLUDED.answer3_hash,
		   updated_at = EXCLUDED.updated_at`,
		q.UserID, q.Question1, q.Answer1Hash, q.Question2, q.Answer2Hash,
		q.Question3, q.Answer3Hash, q.UpdatedAt)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "upsert security questions", err)
	}
	return nil
}

func (r *SecurityQuestionRepository) GetByUser(ctx context.Context, userID string) (*domain.SecurityQuestions, error) {
	row := r.db.Pool().QueryRow(ctx,
		`SELECT user_id, question1, answer1_hash, question2, answer2_hash,
		        question3, answer3_hash, updated_at
		   FROM security_questions WHERE user_id = $1`, userID)

	var q domain.SecurityQuestions
	err := row.Scan(&q.UserID, &q.Question1, &q.Answer1Hash, &q.Question2,
		&q.Answer2Hash, &q.Question3, &q.Answer3Hash, &q.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound.WithDetail("user_id", userID)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "get security questions", err)
	}
	return &q, nil
}
