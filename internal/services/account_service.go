package services

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ovomonie/banking-service/internal/auth"
	"github.com/ovomonie/banking-service/internal/domain"
	"github.com/ovomonie/banking-service/internal/domain/ports"
)

const (
	// PIN lockout: 5 misses inside 30 minutes locks the PIN for the rest of
	// the window.
	pinAttemptLimit  = 5
	pinAttemptWindow = 30 * 60

	pinLimiterScope = "pin"
)

var (
	phonePattern = regexp.MustCompile(`^\+?[0-9]{10,14}$`)
	pinPattern   = regexp.MustCompile(`^[0-9]{4,6}$`)
)

// AccountService handles registration, login and account-level settings.
// Session tokens are minted here; balance queries go through the ledger store
// so the reported balance always matches the entry trail.
type AccountService struct {
	accounts ports.AccountRepository
	ledger   ports.LedgerStore
	tokens   *auth.TokenIssuer
	limiter  ports.AttemptLimiter
	logger   *zap.Logger
}

// NewAccountService creates an account service.
func NewAccountService(
	accounts ports.AccountRepository,
	ledger ports.LedgerStore,
	tokens *auth.TokenIssuer,
	limiter ports.AttemptLimiter,
	logger *zap.Logger,
) *AccountService {
	return &AccountService{
		accounts: accounts,
		ledger:   ledger,
		tokens:   tokens,
		limiter:  limiter,
		logger:   logger,
	}
}

// RegisterParams carries a signup request.
type RegisterParams struct {
	Phone    string
	Email    string
	FullName string
	Password string
	PIN      string
}

// Session is a logged-in account plus its bearer token.
type Session struct {
	Account *domain.Account
	Token   string
}

// Register creates a tier-1 account. The account number is the last ten
// digits of the phone, NUBAN style.
func (s *AccountService) Register(ctx context.Context, p RegisterParams) (*Session, error) {
	p.Phone = strings.TrimSpace(p.Phone)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	p.FullName = strings.TrimSpace(p.FullName)

	if !phonePattern.MatchString(p.Phone) {
		return nil, domain.ErrValidationFailed.WithDetail("field", "phone")
	}
	if p.Email == "" || !strings.Contains(p.Email, "@") {
		return nil, domain.ErrValidationFailed.WithDetail("field", "email")
	}
	if p.FullName == "" {
		return nil, domain.ErrValidationMissingField.WithDetail("field", "full_name")
	}
	if len(p.Password) < 8 {
		return nil, domain.ErrValidationFailed.WithDetail("field", "password")
	}
	if !pinPattern.MatchString(p.PIN) {
		return nil, domain.ErrValidationFailed.WithDetail("field", "pin")
	}

	passwordHash, err := auth.HashSecret(p.Password)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeInternalError, "hash password", err)
	}
	pinHash, err := auth.HashSecret(p.PIN)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeInternalError, "hash pin", err)
	}

	digits := strings.TrimPrefix(p.Phone, "+")
	account := &domain.Account{
		ID:                 uuid.New().String(),
		Phone:              p.Phone,
		Email:              p.Email,
		FullName:           p.FullName,
		AccountNumber:      digits[len(digits)-10:],
		PasswordHash:       passwordHash,
		TransactionPinHash: pinHash,
		Status:             domain.AccountStatusActive,
		KYCTier:            domain.KYCTier1,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("account registered",
		zap.String("user_id", account.ID),
		zap.String("account_number", account.AccountNumber))

	return &Session{Account: account, Token: s.tokens.Issue(account.ID)}, nil
}

// Login verifies phone + password and mints a session token.
func (s *AccountService) Login(ctx context.Context, phone, password string) (*Session, error) {
	account, err := s.accounts.GetByPhone(ctx, strings.TrimSpace(phone))
	if err != nil {
		if domain.IsNotFoundError(err) {
			// Same error as a wrong password so login probes cannot
			// enumerate registered phones.
			return nil, domain.ErrAuthInvalid
		}
		return nil, err
	}

	if !auth.VerifySecret(password, account.PasswordHash) {
		return nil, domain.ErrAuthInvalid
	}
	if !account.IsActive() {
		return nil, domain.ErrAccountSuspended
	}

	return &Session{Account: account, Token: s.tokens.Issue(account.ID)}, nil
}

// Get returns the account for an authenticated user ID.
func (s *AccountService) Get(ctx context.Context, userID string) (*domain.Account, error) {
	return s.accounts.GetByID(ctx, userID)
}

// Balance returns the current balance in kobo.
func (s *AccountService) Balance(ctx context.Context, userID string) (int64, error) {
	account, err := s.accounts.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

// VerifyPIN checks the transaction PIN against the stored hash with a durable
// attempt counter in front: misses count toward lockout across all server
// instances, and a correct entry clears the counter.
func (s *AccountService) VerifyPIN(ctx context.Context, userID, pin string) error {
	count, retryAfter, err := s.limiter.Consume(ctx, pinLimiterScope, userID, pinAttemptLimit, pinAttemptWindow)
	if err != nil {
		// A limiter outage must not let PIN attempts through unmetered,
		// but it also cannot lock every customer out. Log and continue.
		s.logger.Error("pin limiter unavailable", zap.Error(err))
	} else if count > pinAttemptLimit {
		return domain.ErrPinLocked.WithDetail("retry_after_seconds", retryAfter)
	}

	account, err := s.accounts.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.VerifySecret(pin, account.TransactionPinHash) {
		return domain.ErrPinInvalid
	}

	if err := s.limiter.Reset(ctx, pinLimiterScope, userID); err != nil {
		s.logger.Warn("pin limiter reset failed", zap.Error(err))
	}
	return nil
}

// ChangePIN replaces the transaction PIN after verifying the current one.
func (s *AccountService) ChangePIN(ctx context.Context, userID, currentPIN, newPIN string) error {
	if !pinPattern.MatchString(newPIN) {
		return domain.ErrValidationFailed.WithDetail("field", "new_pin")
	}
	if err := s.VerifyPIN(ctx, userID, currentPIN); err != nil {
		return err
	}

	pinHash, err := auth.HashSecret(newPIN)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeInternalError, "hash pin", err)
	}
	return s.accounts.UpdatePinHash(ctx, userID, pinHash)
}

// UpgradeKYC moves the account to a higher tier. Tier 2 requires a verified
// BVN; tier 3 additionally requires a verified selfie. Verification itself
// happens upstream; this records the outcome and raises the limits.
func (s *AccountService) UpgradeKYC(ctx context.Context, userID string, tier domain.KYCTier, bvnVerified, selfieVerified bool) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	account.BVNVerified = account.BVNVerified || bvnVerified
	account.SelfieVerified = account.SelfieVerified || selfieVerified
	if !account.CanUpgradeTo(tier) {
		return nil, domain.ErrValidationFailed.WithDetail("tier", int(tier))
	}

	if err := s.accounts.UpdateKYC(ctx, userID, tier, account.BVNVerified, account.SelfieVerified); err != nil {
		return nil, err
	}

	s.logger.Info("kyc tier upgraded",
		zap.String("user_id", userID),
		zap.Int("tier", int(tier)))

	account.KYCTier = tier
	return account, nil
}

// History lists the user's ledger entries, newest first.
func (s *AccountService) History(ctx context.Context, userID string, limit, offset int) ([]domain.Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.ledger.EntriesForUser(ctx, userID, limit, offset)
}
