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

// MandateRepository implements ports.MandateRepository on PostgreSQL.
type MandateRepository struct {
	db *DBExecutor
}

var _ ports.MandateRepository = (*MandateRepository)(nil)

// NewMandateRepository creates a new mandate repository.
func NewMandateRepository(db *DBExecutor) *MandateRepository {
	return &MandateRepository{db: db}
}

const mandateColumns = `id, user_id, vendor_mandate_id, account_number, bank_code,
	amount, frequency, start_date, end_date, reference, status, created_at, cancelled_at`

func (r *MandateRepository) Create(ctx context.Context, m *domain.Mandate) error {
	m.CreatedAt = time.Now().UTC()
	_, err := r.db.Pool().Exec(ctx,
		`INSERT INTO mandates
		   (id, user_id, vendor_mandate_id, account_number, bank_code, amount,
		    frequency, start_date, end_date, reference, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		m.ID, m.UserID, m.VendorMandateID, m.AccountNumber, m.BankCode, m.Amount,
		string(m.Frequency), m.StartDate, m.EndDate, m.Reference, string(m.Status),
		m.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrConflict.WithDetail("reference", m.Reference)
		}
		return domain.WrapError(domain.ErrorCodeDatabaseError, "create mandate", err)
	}
	return nil
}

func (r *MandateRepository) GetByID(ctx context.Context, id string) (*domain.Mandate, error) {
	row := r.db.Pool().QueryRow(ctx,
		`SELECT `+mandateColumns+` FROM mandates WHERE id = $1`, id)
	m, err := scanMandate(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound.WithDetail("mandate_id", id)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "get mandate", err)
	}
	return m, nil
}

func (r *MandateRepository) ListByUser(ctx context.Context, userID string) ([]domain.Mandate, error) {
	rows, err := r.db.Pool().Query(ctx,
		`SELECT `+mandateColumns+` FROM mandates
		  WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "list mandates", err)
	}
	defer rows.Close()

	var out []domain.Mandate
	for rows.Next() {
		m, err := scanMandate(rows)
		if err != nil {
			return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "scan mandate", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// MarkCancelled transitions a mandate from active to cancelled. Guarded on
// the current status so a double cancel revokes at the vendor at most once.
func (r *MandateRepository) MarkCancelled(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Pool().Exec(ctx,
		`UPDATE mandates SET status = 'cancelled', cancelled_at = $1
		  WHERE id = $2 AND status = 'active'`,
		time.Now().UTC(), id)
	if err != nil {
		return false, domain.WrapError(domain.ErrorCodeDatabaseError, "cancel mandate", err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanMandate(row rowScanner) (*domain.Mandate, error) {
	var (
		m         domain.Mandate
		frequency string
		status    string
	)
	err := row.Scan(&m.ID, &m.UserID, &m.VendorMandateID, &m.AccountNumber,
		&m.BankCode, &m.Amount, &frequency, &m.StartDate, &m.EndDate,
		&m.Reference, &status, &m.CreatedAt, &m.CancelledAt)
	if err != nil {
		return nil, err
	}
	m.Frequency = domain.MandateFrequency(frequency)
	m.Status = domain.MandateStatus(status)
	return &m, nil
}
