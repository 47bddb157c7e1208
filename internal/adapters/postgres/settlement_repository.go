package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ovomonie/banking-service/internal/domain"
	"github.com/ovomonie/banking-service/internal/domain/ports"
)

// SettlementRepository implements ports.SettlementRepository on PostgreSQL.
type SettlementRepository struct {
	db *DBExecutor
}

var _ ports.SettlementRepository = (*SettlementRepository)(nil)

// NewSettlementRepository creates a new settlement repository.
func NewSettlementRepository(db *DBExecutor) *SettlementRepository {
	return &SettlementRepository{db: db}
}

// Create stages a pending settlement. The reference is unique across
// settlements so a retried vendor initiation cannot stage twice.
func (r *SettlementRepository) Create(ctx context.Context, s *domain.PendingSettlement) error {
	s.CreatedAt = time.Now().UTC()
	_, err := r.db.Pool().Exec(ctx,
		`INSERT INTO pending_settlements
		   (id, user_id, kind, status, reference, vendor_reference, amount, detail, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		s.ID, s.UserID, string(s.Kind), string(s.Status), s.Reference,
		s.VendorReference, s.Amount, s.Detail, s.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrConflict.WithDetail("reference", s.Reference)
	}
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "create settlement", err)
	}
	return nil
}

// GetByReference fetches a settlement by its ledger reference.
func (r *SettlementRepository) GetByReference(ctx context.Context, reference string) (*domain.PendingSettlement, error) {
	row := r.db.Pool().QueryRow(ctx,
		`SELECT id, user_id, kind, status, reference, vendor_reference, amount, detail,
		        created_at, settled_at
		   FROM pending_settlements WHERE reference = $1`, reference)
	s, err := scanSettlement(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSettlementNotFound.WithDetail("reference", reference)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "get settlement", err)
	}
	return s, nil
}

// MarkFinal transitions a settlement from pending to a final status. The
// update is guarded on the current status, so of N concurrent webhook
// deliveries and reconciler polls exactly one observes true.
func (r *SettlementRepository) MarkFinal(ctx context.Context, reference string, status domain.SettlementStatus, vendorRef string) (bool, error) {
	if status != domain.SettlementStatusCompleted && status != domain.SettlementStatusFailed {
		return false, fmt.Errorf("non-final settlement status %q", status)
	}
	tag, err := r.db.Pool().Exec(ctx,
		`UPDATE pending_settlements
		    SET status = $1,
		        vendor_reference = CASE WHEN $2 <> '' THEN $2 ELSE vendor_reference END,
		        settled_at = $3
		  WHERE reference = $4 AND status = 'pending'`,
		string(status), vendorRef, time.Now().UTC(), reference)
	if err != nil {
		return false, domain.WrapError(domain.ErrorCodeDatabaseError, "finalize settlement", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListStalePending returns pending settlements older than the given age,
// oldest first. The reconciler polls these against the vendor.
func (r *SettlementRepository) ListStalePending(ctx context.Context, olderThanMinutes int, limit int) ([]domain.PendingSettlement, error) {
	cutoff := time.Now().UTC().Add(-time.Duration(olderThanMinutes) * time.Minute)
	rows, err := r.db.Pool().Query(ctx,
		`SELECT id, user_id, kind, status, reference, vendor_reference, amount, detail,
		        created_at, settled_at
		   FROM pending_settlements
		  WHERE status = 'pending' AND created_at < $1
		  ORDER BY created_at
		  LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "list stale settlements", err)
	}
	defer rows.Close()

	var out []domain.PendingSettlement
	for rows.Next() {
		s, err := scanSettlement(rows)
		if err != nil {
			return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "scan settlement", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func scanSettlement(row rowScanner) (*domain.PendingSettlement, error) {
	var (
		s      domain.PendingSettlement
		kind   string
		status string
	)
	err := row.Scan(&s.ID, &s.UserID, &kind, &status, &s.Reference, &s.VendorReference,
		&s.Amount, &s.Detail, &s.CreatedAt, &s.SettledAt)
	if err != nil {
		return nil, err
	}
	s.Kind = domain.SettlementKind(kind)
	s.Status = domain.SettlementStatus(status)
	return &s, nil
}
