package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ovomonie/banking-service/internal/domain"
	"github.com/ovomonie/banking-service/internal/domain/ports"
)

// InvoiceRepository implements ports.InvoiceRepository on PostgreSQL.
type InvoiceRepository struct {
	db *DBExecutor
}

var _ ports.InvoiceRepository = (*InvoiceRepository)(nil)

// NewInvoiceRepository creates a new invoice repository.
func NewInvoiceRepository(db *DBExecutor) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

const invoiceColumns = `id, issuer_id, payer_account_number, memo, reference, status,
	amount, created_at, paid_at`

func (r *InvoiceRepository) Create(ctx context.Context, inv *domain.Invoice) error {
	inv.CreatedAt = time.Now().UTC()
	_, err := r.db.Pool().Exec(ctx,
		`INSERT INTO invoices
		   (id, issuer_id, payer_account_number, memo, reference, status, amount, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		inv.ID, inv.IssuerID, inv.PayerAccountNumber, inv.Memo, inv.Reference,
		string(inv.Status), inv.Amount, inv.CreatedAt)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "create invoice", err)
	}
	return nil
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id string) (*domain.Invoice, error) {
	row := r.db.Pool().QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	inv, err := scanInvoice(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound.WithDetail("invoice_id", id)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "get invoice", err)
	}
	return inv, nil
}

func (r *InvoiceRepository) ListByIssuer(ctx context.Context, issuerID string) ([]domain.Invoice, error) {
	rows, err := r.db.Pool().Query(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE issuer_id = $1 ORDER BY created_at DESC`,
		issuerID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "list invoices", err)
	}
	defer rows.Close()

	var out []domain.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "scan invoice", err)
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}

// MarkPaid transitions an invoice from unpaid to paid. Guarded on the current
// status so two payers racing on the same invoice settle it at most once.
func (r *InvoiceRepository) MarkPaid(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Pool().Exec(ctx,
		`UPDATE invoices SET status = 'paid', paid_at = $1
		  WHERE id = $2 AND status = 'unpaid'`,
		time.Now().UTC(), id)
	if err != nil {
		return false, domain.WrapError(domain.ErrorCodeDatabaseError, "mark invoice paid", err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanInvoice(row rowScanner) (*domain.Invoice, error) {
	var (
		inv    domain.Invoice
		status string
	)
	err := row.Scan(&inv.ID, &inv.IssuerID, &inv.PayerAccountNumber, &inv.Memo,
		&inv.Reference, &status, &inv.Amount, &inv.CreatedAt, &inv.PaidAt)
	if err != nil {
		return nil, err
	}
	inv.Status = domain.InvoiceStatus(status)
	return &inv, nil
}
