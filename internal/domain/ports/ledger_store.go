package ports

import (
	"context"
	"time"

	"github.com/ovomonie/banking-service/internal/domain"
)

// LedgerStore is the transactional boundary around balance mutation. Every
// implementation must apply the balance update and the ledger append as one
// atomic unit, with the balance row locked for the duration, and must enforce
// reference idempotency through the store itself (unique constraint), not an
// application-level pre-check.
type LedgerStore interface {
	// Apply executes a single mutation. The returned bool is true when the
	// mutation was applied, false when the reference had already been
	// processed and the prior entry is being replayed.
	Apply(ctx context.Context, m domain.Mutation) (*domain.Entry, bool, error)

	// ApplyAll executes a set of mutations atomically: either every mutation
	// applies or none does. Used for two-leg internal transfers and payroll.
	// Replay semantics follow the first mutation's reference.
	ApplyAll(ctx context.Context, ms []domain.Mutation) ([]domain.Entry, bool, error)

	// EntryByReference fetches a prior ledger entry by idempotency reference.
	EntryByReference(ctx context.Context, reference string) (*domain.Entry, error)

	// EntriesForUser lists a user's ledger entries, newest first.
	EntriesForUser(ctx context.Context, userID string, limit, offset int) ([]domain.Entry, error)

	// DebitedSince sums a user's debits applied at or after the given time.
	// Used for daily KYC tier limit enforcement.
	DebitedSince(ctx context.Context, userID string, since time.Time) (int64, error)

	// SumDeltas sums all signed ledger deltas for a user. The reconciler
	// compares this against the account balance to detect drift.
	SumDeltas(ctx context.Context, userID string) (int64, error)
}
