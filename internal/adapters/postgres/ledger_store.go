package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ovomonie/banking-service/internal/domain"
	"github.com/ovomonie/banking-service/internal/domain/ports"
)

const uniqueViolation = "23505"

// LedgerStore implements ports.LedgerStore on PostgreSQL. Atomicity comes
// from a single transaction per Apply/ApplyAll: balance rows are locked with
// SELECT ... FOR UPDATE, the debit precondition is re-checked under the lock,
// and idempotency is delegated to the UNIQUE constraint on
// financial_transactions.reference rather than an application pre-check.
type LedgerStore struct {
	db *DBExecutor
}

var _ ports.LedgerStore = (*LedgerStore)(nil)

// NewLedgerStore creates a ledger store over the given executor.
func NewLedgerStore(db *DBExecutor) *LedgerStore {
	return &LedgerStore{db: db}
}

// Apply implements ports.LedgerStore.
func (s *LedgerStore) Apply(ctx context.Context, m domain.Mutation) (*domain.Entry, bool, error) {
	entries, applied, err := s.ApplyAll(ctx, []domain.Mutation{m})
	if err != nil {
		return nil, false, err
	}
	return &entries[0], applied, nil
}

// ApplyAll implements ports.LedgerStore. All mutations commit or none do.
func (s *LedgerStore) ApplyAll(ctx context.Context, ms []domain.Mutation) ([]domain.Entry, bool, error) {
	if len(ms) == 0 {
		return nil, false, domain.ErrValidationFailed.WithDetail("reason", "no mutations")
	}
	for _, m := range ms {
		if err := m.Validate(); err != nil {
			return nil, false, err
		}
	}

	var entries []domain.Entry
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		entries, err = s.applyInTx(ctx, tx, ms)
		return err
	})
	if err == nil {
		return entries, true, nil
	}

	// A unique violation on the reference column means this batch (or part of
	// it) was already applied: the transaction rolled back without touching
	// balances, so replay the prior entries.
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		replayed, replayErr := s.replay(ctx, ms)
		if replayErr != nil {
			return nil, false, replayErr
		}
		return replayed, false, nil
	}

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return nil, false, err
	}
	return nil, false, domain.WrapError(domain.ErrorCodeDatabaseError, "apply ledger mutations", err)
}

func (s *LedgerStore) applyInTx(ctx context.Context, tx pgx.Tx, ms []domain.Mutation) ([]domain.Entry, error) {
	// Lock balance rows in sorted user order so concurrent transfers touching
	// the same accounts cannot deadlock.
	userIDs := make([]string, 0, len(ms))
	seen := make(map[string]bool, len(ms))
	for _, m := range ms {
		if !seen[m.UserID] {
			seen[m.UserID] = true
			userIDs = append(userIDs, m.UserID)
		}
	}
	sort.Strings(userIDs)

	balances := make(map[string]int64, len(userIDs))
	for _, id := range userIDs {
		var balance int64
		err := tx.QueryRow(ctx,
			`SELECT balance FROM users WHERE id = $1 FOR UPDATE`, id,
		).Scan(&balance)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound.WithDetail("user_id", id)
		}
		if err != nil {
			return nil, fmt.Errorf("lock balance row: %w", err)
		}
		balances[id] = balance
	}

	now := time.Now().UTC()
	entries := make([]domain.Entry, 0, len(ms))
	for _, m := range ms {
		newBalance := balances[m.UserID] + m.Amount
		if newBalance < 0 {
			return nil, domain.ErrInsufficientFunds.
				WithDetail("user_id", m.UserID).
				WithDetail("requested", m.AbsAmount())
		}
		balances[m.UserID] = newBalance

		entryType := domain.EntryTypeCredit
		if m.IsDebit() {
			entryType = domain.EntryTypeDebit
		}

		var partyJSON []byte
		if m.Party != nil {
			var err error
			partyJSON, err = json.Marshal(m.Party)
			if err != nil {
				return nil, fmt.Errorf("marshal party: %w", err)
			}
		} else {
			partyJSON = []byte("{}")
		}

		entry := domain.Entry{
			ID:           uuid.NewString(),
			UserID:       m.UserID,
			Type:         entryType,
			Category:     m.Category,
			Amount:       m.AbsAmount(),
			Reference:    m.Reference,
			Narration:    m.Narration,
			Party:        m.Party,
			BalanceAfter: newBalance,
			CreatedAt:    now,
		}

		// The UNIQUE(reference) constraint is the idempotency guard: a
		// duplicate insert aborts the whole transaction before any balance
		// change becomes visible.
		_, err := tx.Exec(ctx,
			`INSERT INTO financial_transactions
			   (id, user_id, type, category, amount, reference, narration, party, balance_after, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			entry.ID, entry.UserID, string(entry.Type), string(entry.Category),
			entry.Amount, entry.Reference, entry.Narration, partyJSON,
			entry.BalanceAfter, entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("insert ledger entry: %w", err)
		}

		entries = append(entries, entry)
	}

	for id, balance := range balances {
		tag, err := tx.Exec(ctx,
			`UPDATE users SET balance = $1, updated_at = $2 WHERE id = $3`,
			balance, now, id,
		)
		if err != nil {
			return nil, fmt.Errorf("update balance: %w", err)
		}
		if tag.RowsAffected() != 1 {
			return nil, domain.ErrAccountNotFound.WithDetail("user_id", id)
		}
	}

	return entries, nil
}

// replay fetches the prior entries for every reference in the batch.
func (s *LedgerStore) replay(ctx context.Context, ms []domain.Mutation) ([]domain.Entry, error) {
	entries := make([]domain.Entry, 0, len(ms))
	for _, m := range ms {
		entry, err := s.EntryByReference(ctx, m.Reference)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

// EntryByReference implements ports.LedgerStore.
func (s *LedgerStore) EntryByReference(ctx context.Context, reference string) (*domain.Entry, error) {
	row := s.db.Pool().QueryRow(ctx,
		`SELECT id, user_id, type, category, amount, reference, narration, party, balance_after, created_at
		   FROM financial_transactions WHERE reference = $1`, reference)
	entry, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrEntryNotFound.WithDetail("reference", reference)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "get entry by reference", err)
	}
	return entry, nil
}

// EntriesForUser implements ports.LedgerStore.
func (s *LedgerStore) EntriesForUser(ctx context.Context, userID string, limit, offset int) ([]domain.Entry, error) {
	rows, err := s.db.Pool().Query(ctx,
		`SELECT id, user_id, type, category, amount, reference, narration, party, balance_after, created_at
		   FROM financial_transactions
		  WHERE user_id = $1
		  ORDER BY created_at DESC
		  LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "list entries", err)
	}
	defer rows.Close()

	var entries []domain.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "scan entry", err)
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// DebitedSince implements ports.LedgerStore.
func (s *LedgerStore) DebitedSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	var total int64
	err := s.db.Pool().QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0)
		   FROM financial_transactions
		  WHERE user_id = $1 AND type = 'debit' AND created_at >= $2`,
		userID, since,
	).Scan(&total)
	if err != nil {
		return 0, domain.WrapError(domain.ErrorCodeDatabaseError, "sum debits", err)
	}
	return total, nil
}

// SumDeltas implements ports.LedgerStore.
func (s *LedgerStore) SumDeltas(ctx context.Context, userID string) (int64, error) {
	var total int64
	err := s.db.Pool().QueryRow(ctx,
		`SELECT COALESCE(SUM(CASE WHEN type = 'credit' THEN amount ELSE -amount END), 0)
		   FROM financial_transactions
		  WHERE user_id = $1`, userID,
	).Scan(&total)
	if err != nil {
		return 0, domain.WrapError(domain.ErrorCodeDatabaseError, "sum ledger deltas", err)
	}
	return total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*domain.Entry, error) {
	var (
		entry     domain.Entry
		entryType string
		category  string
		partyJSON []byte
	)
	err := row.Scan(&entry.ID, &entry.UserID, &entryType, &category, &entry.Amount,
		&entry.Reference, &entry.Narration, &partyJSON, &entry.BalanceAfter, &entry.CreatedAt)
	if err != nil {
		return nil, err
	}
	entry.Type = domain.EntryType(entryType)
	entry.Category = domain.Category(category)
	if len(partyJSON) > 0 {
		if err := json.Unmarshal(partyJSON, &entry.Party); err != nil {
			return nil, fmt.Errorf("unmarshal party: %w", err)
		}
	}
	return &entry, nil
}
