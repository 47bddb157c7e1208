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

// LoanRepository implements ports.LoanRepository on PostgreSQL.
type LoanRepository struct {
	db *DBExecutor
}

var _ ports.LoanRepository = (*LoanRepository)(nil)

// NewLoanRepository creates a new loan repository.
func NewLoanRepository(db *DBExecutor) *LoanRepository {
	return &LoanRepository{db: db}
}

const loanColumns = `id, user_id, reference, status, principal, outstanding, rate_bps,
	term_months, created_at, disbursed_at`

func (r *LoanRepository) Create(ctx context.Context, l *domain.Loan) error {
	l.CreatedAt = time.Now().UTC()
	_, err := r.db.Pool().Exec(ctx,
		`INSERT INTO loans
		   (id, user_id, reference, status, principal, outstanding, rate_bps, term_months, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		l.ID, l.UserID, l.Reference, string(l.Status), l.Principal, l.Outstanding,
		l.RateBps, l.TermMonths, l.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrConflict.WithDetail("reference", l.Reference)
	}
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "create loan", err)
	}
	return nil
}

func (r *LoanRepository) GetByID(ctx context.Context, id string) (*domain.Loan, error) {
	row := r.db.Pool().QueryRow(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE id = $1`, id)
	l, err := scanLoan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound.WithDetail("loan_id", id)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "get loan", err)
	}
	return l, nil
}

func (r *LoanRepository) ListByUser(ctx context.Context, userID string) ([]domain.Loan, error) {
	rows, err := r.db.Pool().Query(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "list loans", err)
	}
	defer rows.Close()

	var out []domain.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "scan loan", err)
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func (r *LoanRepository) Update(ctx context.Context, l *domain.Loan) error {
	tag, err := r.db.Pool().Exec(ctx,
		`UPDATE loans
		    SET status = $1, outstanding = $2, disbursed_at = $3
		  WHERE id = $4`,
		string(l.Status), l.Outstanding, l.DisbursedAt, l.ID)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "update loan", err)
	}
	if tag.RowsAffected() != 1 {
		return domain.ErrNotFound.WithDetail("loan_id", l.ID)
	}
	return nil
}

func scanLoan(row rowScanner) (*domain.Loan, error) {
	var (
		l      domain.Loan
		status string
	)
	err := row.Scan(&l.ID, &l.UserID, &l.Reference, &status, &l.Principal,
		&l.Outstanding, &l.RateBps, &l.TermMonths, &l.CreatedAt, &l.DisbursedAt)
	if err != nil {
		return nil, err
	}
	l.Status = domain.LoanStatus(status)
	return &l, nil
}
