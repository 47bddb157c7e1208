package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ovomonie/banking-service/internal/domain"
	"github.com/ovomonie/banking-service/internal/domain/ports"
)

// PayrollRepository implements ports.PayrollRepository on PostgreSQL.
type PayrollRepository struct {
	db *DBExecutor
}

var _ ports.PayrollRepository = (*PayrollRepository)(nil)

// NewPayrollRepository creates a new payroll repository.
func NewPayrollRepository(db *DBExecutor) *PayrollRepository {
	return &PayrollRepository{db: db}
}

func (r *PayrollRepository) CreateBatch(ctx context.Context, b *domain.PayrollBatch) error {
	b.CreatedAt = time.Now().UTC()
	_, err := r.db.Pool().Exec(ctx,
		`INSERT INTO payroll_batches (id, owner_id, title, status, total, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		b.ID, b.OwnerID, b.Title, string(b.Status), b.Total, b.CreatedAt)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "create payroll batch", err)
	}
	return nil
}

func (r *PayrollRepository) GetBatch(ctx context.Context, id string) (*domain.PayrollBatch, error) {
	row := r.db.Pool().QueryRow(ctx,
		`SELECT id, owner_id, title, status, total, created_at, executed_at
		   FROM payroll_batches WHERE id = $1`, id)
	b, err := scanPayrollBatch(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound.WithDetail("batch_id", id)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "get payroll batch", err)
	}
	return b, nil
}

func (r *PayrollRepository) ListBatches(ctx context.Context, ownerID string) ([]domain.PayrollBatch, error) {
	rows, err := r.db.Pool().Query(ctx,
		`SELECT id, owner_id, title, status, total, created_at, executed_at
		   FROM payroll_batches WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "list payroll batches", err)
	}
	defer rows.Close()

	var out []domain.PayrollBatch
	for rows.Next() {
		b, err := scanPayrollBatch(rows)
		if err != nil {
			return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "scan payroll batch", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (r *PayrollRepository) UpdateBatchStatus(ctx context.Context, id string, status domain.PayrollStatus) error {
	var executedAt *time.Time
	if status == domain.PayrollStatusCompleted || status == domain.PayrollStatusPartial {
		now := time.Now().UTC()
		executedAt = &now
	}
	tag, err := r.db.Pool().Exec(ctx,
		`UPDATE payroll_batches
		    SET status = $1, executed_at = COALESCE($2, executed_at)
		  WHERE id = $3`,
		string(status), executedAt, id)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "update payroll batch", err)
	}
	if tag.RowsAffected() != 1 {
		return domain.ErrNotFound.WithDetail("batch_id", id)
	}
	return nil
}

func (r *PayrollRepository) AddEmployee(ctx context.Context, e *domain.PayrollEmployee) error {
	e.CreatedAt = time.Now().UTC()
	_, err := r.db.Pool().Exec(ctx,
		`INSERT INTO payroll_employees (id, batch_id, name, account_number, status, amount, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.BatchID, e.Name, e.AccountNumber, string(e.Status), e.Amount, e.CreatedAt)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "add payroll employee", err)
	}
	return nil
}

func (r *PayrollRepository) ListEmployees(ctx context.Context, batchID string) ([]domain.PayrollEmployee, error) {
	rows, err := r.db.Pool().Query(ctx,
		`SELECT id, batch_id, name, account_number, status, amount, created_at
		   FROM payroll_employees WHERE batch_id = $1 ORDER BY created_at`, batchID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "list payroll employees", err)
	}
	defer rows.Close()

	var out []domain.PayrollEmployee
	for rows.Next() {
		var (
			e      domain.PayrollEmployee
			status string
		)
		if err := rows.Scan(&e.ID, &e.BatchID, &e.Name, &e.AccountNumber, &status,
			&e.Amount, &e.CreatedAt); err != nil {
			return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "scan payroll employee", err)
		}
		e.Status = domain.EmployeeStatus(status)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *PayrollRepository) UpdateEmployeeStatus(ctx context.Context, id string, status domain.EmployeeStatus) error {
	tag, err := r.db.Pool().Exec(ctx,
		`UPDATE payroll_employees SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "update payroll employee", err)
	}
	if tag.RowsAffected() != 1 {
		return domain.ErrNotFound.WithDetail("employee_id", id)
	}
	return nil
}

func scanPayrollBatch(row rowScanner) (*domain.PayrollBatch, error) {
	var (
		b      domain.PayrollBatch
		status string
	)
	err := row.Scan(&b.ID, &b.OwnerID, &b.Title, &status, &b.Total, &b.CreatedAt, &b.ExecutedAt)
	if err != nil {
		return nil, err
	}
	b.Status = domain.PayrollStatus(status)
	return &b, nil
}
