package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ovomonie/banking-service/internal/domain"
	"github.com/ovomonie/banking-service/internal/domain/ports"
)

// AccountRepository implements ports.AccountRepository on PostgreSQL.
type AccountRepository struct {
	db *DBExecutor
}

var _ ports.AccountRepository = (*AccountRepository)(nil)

// NewAccountRepository creates a new account repository.
func NewAccountRepository(db *DBExecutor) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, phone, email, full_name, account_number, password_hash,
	transaction_pin_hash, status, kyc_tier, balance, bvn_verified, selfie_verified,
	created_at, updated_at`

// Create inserts a new account row.
func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) error {
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	_, err := r.db.Pool().Exec(ctx,
		`INSERT INTO users
		   (id, phone, email, full_name, account_number, password_hash, transaction_pin_hash,
		    status, kyc_tier, balance, bvn_verified, selfie_verified, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		a.ID, a.Phone, a.Email, a.FullName, a.AccountNumber, a.PasswordHash,
		a.TransactionPinHash, string(a.Status), int(a.KYCTier), a.Balance,
		a.BVNVerified, a.SelfieVerified, a.CreatedAt, a.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrAccountExists
	}
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "create account", err)
	}
	return nil
}

// GetByID fetches an account by its ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.getBy(ctx, "id", id)
}

// GetByPhone fetches an account by phone number.
func (r *AccountRepository) GetByPhone(ctx context.Context, phone string) (*domain.Account, error) {
	return r.getBy(ctx, "phone", phone)
}

// GetByAccountNumber fetches an account by its NUBAN account number.
func (r *AccountRepository) GetByAccountNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	return r.getBy(ctx, "account_number", accountNumber)
}

func (r *AccountRepository) getBy(ctx context.Context, column, value string) (*domain.Account, error) {
	row := r.db.Pool().QueryRow(ctx,
		`SELECT `+accountColumns+` FROM users WHERE `+column+` = $1`, value)

	var (
		a      domain.Account
		status string
		tier   int
	)
	err := row.Scan(&a.ID, &a.Phone, &a.Email, &a.FullName, &a.AccountNumber,
		&a.PasswordHash, &a.TransactionPinHash, &status, &tier, &a.Balance,
		&a.BVNVerified, &a.SelfieVerified, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAccountNotFound.WithDetail(column, value)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "get account", err)
	}
	a.Status = domain.AccountStatus(status)
	a.KYCTier = domain.KYCTier(tier)
	return &a, nil
}

// UpdateKYC updates the KYC tier and verification flags.
func (r *AccountRepository) UpdateKYC(ctx context.Context, id string, tier domain.KYCTier, bvnVerified, selfieVerified bool) error {
	tag, err := r.db.Pool().Exec(ctx,
		`UPDATE users SET kyc_tier = $1, bvn_verified = $2, selfie_verified = $3, updated_at = $4
		  WHERE id = $5`,
		int(tier), bvnVerified, selfieVerified, time.Now().UTC(), id)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "update kyc", err)
	}
	if tag.RowsAffected() != 1 {
		return domain.ErrAccountNotFound.WithDetail("id", id)
	}
	return nil
}

// UpdatePinHash replaces the transaction PIN hash.
func (r *AccountRepository) UpdatePinHash(ctx context.Context, id string, pinHash string) error {
	tag, err := r.db.Pool().Exec(ctx,
		`UPDATE users SET transaction_pin_hash = $1, updated_at = $2 WHERE id = $3`,
		pinHash, time.Now().UTC(), id)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "update pin hash", err)
	}
	if tag.RowsAffected() != 1 {
		return domain.ErrAccountNotFound.WithDetail("id", id)
	}
	return nil
}

// ListIDs returns every account ID. Used by the reconciler's drift audit.
func (r *AccountRepository) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Pool().Query(ctx, `SELECT id FROM users ORDER BY created_at`)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "list account ids", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "scan account id", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
