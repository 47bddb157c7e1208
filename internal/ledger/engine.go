package ledger

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ovomonie/banking-service/internal/domain"
	"github.com/ovomonie/banking-service/internal/domain/ports"
	"github.com/ovomonie/banking-service/pkg/observability"
)

// Notifier emits a user-facing notification after a successful mutation.
// Emission is best-effort: a notifier failure never fails the mutation.
type Notifier interface {
	NotifyEntry(ctx context.Context, entry domain.Entry)
}

// MutationParams describes one credit or debit. Amount is the unsigned amount
// in kobo; Reference is the client-supplied idempotency key.
type MutationParams struct {
	Party     map[string]string
	UserID    string
	Reference string
	Narration string
	Category  domain.Category
	Amount    int64
}

// TransferParams describes a two-leg internal transfer.
type TransferParams struct {
	FromUserID    string
	ToUserID      string
	Reference     string
	Narration     string
	Category      domain.Category
	FromPartyDesc map[string]string
	ToPartyDesc   map[string]string
	Amount        int64
}

// TransferResult carries both legs of an applied internal transfer.
type TransferResult struct {
	DebitEntry  domain.Entry
	CreditEntry domain.Entry
}

// Engine is the single entry point for balance mutation. It binds the account
// store, the ledger append, the idempotency guard and the notification emitter
// into one component; callers never touch balances directly.
type Engine struct {
	store    ports.LedgerStore
	notifier Notifier
	logger   *zap.Logger
}

// NewEngine creates a ledger engine. notifier may be nil.
func NewEngine(store ports.LedgerStore, notifier Notifier, logger *zap.Logger) *Engine {
	return &Engine{
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

// Credit adds funds to an account. Returns the ledger entry and whether it was
// freshly applied (false means the reference was replayed).
func (e *Engine) Credit(ctx context.Context, p MutationParams) (*domain.Entry, bool, error) {
	return e.apply(ctx, p, false)
}

// Debit removes funds from an account. The insufficient-funds precondition is
// checked inside the store's transaction, under the balance row lock.
func (e *Engine) Debit(ctx context.Context, p MutationParams) (*domain.Entry, bool, error) {
	return e.apply(ctx, p, true)
}

func (e *Engine) apply(ctx context.Context, p MutationParams, debit bool) (*domain.Entry, bool, error) {
	if p.Amount <= 0 {
		return nil, false, domain.ErrValidationAmountInvalid.WithDetail("amount", p.Amount)
	}

	amount := p.Amount
	entryType := domain.EntryTypeCredit
	if debit {
		amount = -amount
		entryType = domain.EntryTypeDebit
	}

	m := domain.Mutation{
		UserID:    p.UserID,
		Amount:    amount,
		Category:  p.Category,
		Narration: p.Narration,
		Party:     p.Party,
		Reference: p.Reference,
	}
	if err := m.Validate(); err != nil {
		return nil, false, err
	}

	entry, applied, err := e.store.Apply(ctx, m)
	if err != nil {
		observability.RecordLedgerEntry(string(entryType), string(p.Category), "rejected", 0)
		return nil, false, err
	}

	e.finish(ctx, *entry, applied)
	return entry, applied, nil
}

// Transfer moves funds between two accounts atomically: both legs apply in a
// single store transaction or neither does. Leg references are derived from
// the base reference so a retried transfer replays both legs.
func (e *Engine) Transfer(ctx context.Context, p TransferParams) (*TransferResult, bool, error) {
	if p.Amount <= 0 {
		return nil, false, domain.ErrValidationAmountInvalid.WithDetail("amount", p.Amount)
	}
	if p.FromUserID == p.ToUserID {
		return nil, false, domain.ErrSelfTransfer
	}
	if p.Reference == "" {
		return nil, false, domain.ErrValidationMissingField.WithDetail("field", "reference")
	}
	category := p.Category
	if category == "" {
		category = domain.CategoryTransfer
	}

	mutations := []domain.Mutation{
		{
			UserID:    p.FromUserID,
			Amount:    -p.Amount,
			Category:  category,
			Narration: p.Narration,
			Party:     p.FromPartyDesc,
			Reference: fmt.Sprintf("%s-debit", p.Reference),
		},
		{
			UserID:    p.ToUserID,
			Amount:    p.Amount,
			Category:  category,
			Narration: p.Narration,
			Party:     p.ToPartyDesc,
			Reference: fmt.Sprintf("%s-credit", p.Reference),
		},
	}

	entries, applied, err := e.store.ApplyAll(ctx, mutations)
	if err != nil {
		observability.RecordLedgerEntry(string(domain.EntryTypeDebit), string(category), "rejected", 0)
		return nil, false, err
	}
	if len(entries) != 2 {
		return nil, false, domain.WrapError(domain.ErrorCodeInternalError, "transfer produced unexpected entry count", nil).
			WithDetail("entries", len(entries))
	}

	for _, entry := range entries {
		e.finish(ctx, entry, applied)
	}

	return &TransferResult{DebitEntry: entries[0], CreditEntry: entries[1]}, applied, nil
}

// History lists a user's ledger entries, newest first.
func (e *Engine) History(ctx context.Context, userID string, limit, offset int) ([]domain.Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return e.store.EntriesForUser(ctx, userID, limit, offset)
}

// EntryByReference fetches a prior entry by its idempotency reference.
func (e *Engine) EntryByReference(ctx context.Context, reference string) (*domain.Entry, error) {
	return e.store.EntryByReference(ctx, reference)
}

func (e *Engine) finish(ctx context.Context, entry domain.Entry, applied bool) {
	result := "replayed"
	if applied {
		result = "applied"
	}
	observability.RecordLedgerEntry(string(entry.Type), string(entry.Category), result, entry.Amount)

	if applied {
		e.logger.Info("ledger entry applied",
			zap.String("user_id", entry.UserID),
			zap.String("type", string(entry.Type)),
			zap.String("category", string(entry.Category)),
			zap.String("reference", entry.Reference),
			zap.Int64("amount", entry.Amount),
			zap.Int64("balance_after", entry.BalanceAfter),
		)
		if e.notifier != nil {
			e.notifier.NotifyEntry(ctx, entry)
		}
	} else {
		e.logger.Info("ledger reference replayed",
			zap.String("reference", entry.Reference),
			zap.String("user_id", entry.UserID),
		)
	}
}
