package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/ovomonie/banking-service/internal/auth"
	"github.com/ovomonie/banking-service/internal/domain"
	"github.com/ovomonie/banking-service/internal/domain/ports"
)

const (
	securityLimiterScope  = "security_answers"
	securityAttemptLimit  = 5
	securityAttemptWindow = 900
)

// SecurityService manages account-recovery questions. Answers are normalized
// and hashed with the same scrypt parameters as PINs; verification is metered
// through the shared attempt limiter so answers cannot be brute forced.
type SecurityService struct {
	questions ports.SecurityQuestionRepository
	limiter   ports.AttemptLimiter
	logger    *zap.Logger
}

// NewSecurityService creates a security question service.
func NewSecurityService(questions ports.SecurityQuestionRepository, limiter ports.AttemptLimiter, logger *zap.Logger) *SecurityService {
	return &SecurityService{
		questions: questions,
		limiter:   limiter,
		logger:    logger,
	}
}

// QuestionAnswer is one question with its plaintext answer, supplied when
// setting or verifying the user's recovery set.
type QuestionAnswer struct {
	Question string
	Answer   string
}

// normalizeAnswer makes answer comparison forgiving of case and whitespace.
func normalizeAnswer(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}

// Set replaces the user's three recovery questions. All three must be
// supplied together so a partial update never leaves a mixed set.
func (s *SecurityService) Set(ctx context.Context, userID string, qas [3]QuestionAnswer) error {
	for _, qa := range qas {
		if strings.TrimSpace(qa.Question) == "" || strings.TrimSpace(qa.Answer) == "" {
			return domain.ErrValidationMissingField.WithDetail("field", "questions")
		}
	}

	var hashes [3]string
	for i, qa := range qas {
		h, err := auth.HashSecret(normalizeAnswer(qa.Answer))
		if err != nil {
			return domain.WrapError(domain.ErrorCodeInternalError, "hash answer", err)
		}
		hashes[i] = h
	}

	err := s.questions.Upsert(ctx, &domain.SecurityQuestions{
		UserID:      userID,
		Question1:   qas[0].Question,
		Question2:   qas[1].Question,
		Question3:   qas[2].Question,
		Answer1Hash: hashes[0],
		Answer2Hash: hashes[1],
		Answer3Hash: hashes[2],
	})
	if err != nil {
		return err
	}
	s.logger.Info("security questions saved", zap.String("user_id", userID))
	return nil
}

// Questions returns the user's questions without answer material.
func (s *SecurityService) Questions(ctx context.Context, userID string) (*domain.SecurityQuestions, error) {
	q, err := s.questions.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	q.Answer1Hash, q.Answer2Hash, q.Answer3Hash = "", "", ""
	return q, nil
}

// Verify checks all three answers. Attempts are metered per user; the
// counter resets on success.
func (s *SecurityService) Verify(ctx context.Context, userID string, answers [3]string) error {
	count, retryAfter, err := s.limiter.Consume(ctx, securityLimiterScope, userID,
		securityAttemptLimit, securityAttemptWindow)
	if err != nil {
		s.logger.Error("security answer limiter unavailable", zap.Error(err))
		return domain.ErrRateLimited
	}
	if count > securityAttemptLimit {
		return domain.ErrRateLimited.WithDetail("retry_after_seconds", retryAfter)
	}

	q, err := s.questions.GetByUser(ctx, userID)
	if err != nil {
		return err
	}

	ok := auth.VerifySecret(normalizeAnswer(answers[0]), q.Answer1Hash) &&
		auth.VerifySecret(normalizeAnswer(answers[1]), q.Answer2Hash) &&
		auth.VerifySecret(normalizeAnswer(answers[2]), q.Answer3Hash)
	if !ok {
		return domain.ErrAccessDenied.WithDetail("reason", "security answers did not match")
	}

	if err := s.limiter.Reset(ctx, securityLimiterScope, userID); err != nil {
		s.logger.Warn("security answer limiter reset failed", zap.Error(err))
	}
	return nil
}
