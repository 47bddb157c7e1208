package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ovomonie/banking-service/internal/domain"
	"github.com/ovomonie/banking-service/internal/domain/ports"
)

// CardRepository implements ports.CardRepository on PostgreSQL.
type CardRepository struct {
	db *DBExecutor
}

var _ ports.CardRepository = (*CardRepository)(nil)

// NewCardRepository creates a new card repository.
func NewCardRepository(db *DBExecutor) *CardRepository {
	return &CardRepository{db: db}
}

const cardColumns = `id, user_id, vendor_card_id, masked_pan, reference, status, created_at, updated_at`

func (r *CardRepository) Create(ctx context.Context, c *domain.VirtualCard) error {
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	_, err := r.db.Pool().Exec(ctx,
		`INSERT INTO virtual_cards
		   (id, user_id, vendor_card_id, masked_pan, reference, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.UserID, c.VendorCardID, c.MaskedPAN, c.Reference, string(c.Status),
		c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "create card", err)
	}
	return nil
}

func (r *CardRepository) GetByID(ctx context.Context, id string) (*domain.VirtualCard, error) {
	return r.getBy(ctx, "id", id)
}

func (r *CardRepository) GetByVendorCardID(ctx context.Context, vendorCardID string) (*domain.VirtualCard, error) {
	return r.getBy(ctx, "vendor_card_id", vendorCardID)
}

func (r *CardRepository) GetByReference(ctx context.Context, reference string) (*domain.VirtualCard, error) {
	return r.getBy(ctx, "reference", reference)
}

func (r *CardRepository) getBy(ctx context.Context, column, value string) (*domain.VirtualCard, error) {
	row := r.db.Pool().QueryRow(ctx,
		`SELECT `+cardColumns+` FROM virtual_cards WHERE `+column+` = $1`, value)
	c, err := scanCard(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound.WithDetail(column, value)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "get card", err)
	}
	return c, nil
}

func (r *CardRepository) ListByUser(ctx context.Context, userID string) ([]domain.VirtualCard, error) {
	rows, err := r.db.Pool().Query(ctx,
		`SELECT `+cardColumns+` FROM virtual_cards WHERE user_id = $1 ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "list cards", err)
	}
	defer rows.Close()

	var out []domain.VirtualCard
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "scan card", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// UpdateStatus moves a card through its lifecycle. Vendor card ID and masked
// PAN are only set when non-empty, so a block/unblock does not erase them.
func (r *CardRepository) UpdateStatus(ctx context.Context, id string, status domain.CardStatus, vendorCardID, maskedPAN string) error {
	tag, err := r.db.Pool().Exec(ctx,
		`UPDATE virtual_cards
		    SET status = $1,
		        vendor_card_id = CASE WHEN $2 <> '' THEN $2 ELSE vendor_card_id END,
		        masked_pan = CASE WHEN $3 <> '' THEN $3 ELSE masked_pan END,
		        updated_at = $4
		  WHERE id = $5`,
		string(status), vendorCardID, maskedPAN, time.Now().UTC(), id)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "update card status", err)
	}
	if tag.RowsAffected() != 1 {
		return domain.ErrNotFound.WithDetail("card_id", id)
	}
	return nil
}

func scanCard(row rowScanner) (*domain.VirtualCard, error) {
	var (
		c      domain.VirtualCard
		status string
	)
	err := row.Scan(&c.ID, &c.UserID, &c.VendorCardID, &c.MaskedPAN, &c.Reference,
		&status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Status = domain.CardStatus(status)
	return &c, nil
}
