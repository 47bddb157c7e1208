// Package memledger provides an in-memory ports.LedgerStore with the same
// atomicity and idempotency semantics as the Postgres implementation. It backs
// unit tests for the ledger engine and the services built on top of it.
package memledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ovomonie/banking-service/internal/domain"
	"github.com/ovomonie/banking-service/internal/domain/ports"
)

// Store is an in-memory ledger store guarded by a single mutex, which gives
// the serializable behavior the Postgres store achieves with row locks.
type Store struct {
	mu       sync.Mutex
	balances map[string]int64
	byRef    map[string]domain.Entry
	entries  []domain.Entry

	// FailAfterFirst injects a storage failure between the legs of an
	// ApplyAll call, to prove that a mid-sequence failure leaves no
	// partial state.
	FailAfterFirst bool
}

var _ ports.LedgerStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		balances: make(map[string]int64),
		byRef:    make(map[string]domain.Entry),
	}
}

// SetBalance seeds an account balance.
func (s *Store) SetBalance(userID string, balance int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[userID] = balance
}

// Balance returns the current account balance.
func (s *Store) Balance(userID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[userID]
}

// Apply implements ports.LedgerStore.
func (s *Store) Apply(ctx context.Context, m domain.Mutation) (*domain.Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, applied, err := s.applyLocked([]domain.Mutation{m}, false)
	if err != nil {
		return nil, false, err
	}
	return &entries[0], applied, nil
}

// ApplyAll implements ports.LedgerStore.
func (s *Store) ApplyAll(ctx context.Context, ms []domain.Mutation) ([]domain.Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(ms, s.FailAfterFirst)
}

// applyLocked applies all mutations or none. Caller holds the lock.
func (s *Store) applyLocked(ms []domain.Mutation, failAfterFirst bool) ([]domain.Entry, bool, error) {
	// Replay: if the first reference is known, return the prior entries for
	// every reference in the set without mutating anything.
	if _, ok := s.byRef[ms[0].Reference]; ok {
		out := make([]domain.Entry, 0, len(ms))
		for _, m := range ms {
			prior, ok := s.byRef[m.Reference]
			if !ok {
				return nil, false, domain.ErrEntryNotFound.WithDetail("reference", m.Reference)
			}
			out = append(out, prior)
		}
		return out, false, nil
	}

	// Validate all preconditions against a scratch copy before mutating.
	scratch := make(map[string]int64, len(ms))
	for _, m := range ms {
		if err := m.Validate(); err != nil {
			return nil, false, err
		}
		if _, ok := scratch[m.UserID]; !ok {
			bal, exists := s.balances[m.UserID]
			if !exists {
				return nil, false, domain.ErrAccountNotFound.WithDetail("user_id", m.UserID)
			}
			scratch[m.UserID] = bal
		}
		scratch[m.UserID] += m.Amount
		if scratch[m.UserID] < 0 {
			return nil, false, domain.ErrInsufficientFunds.WithDetail("user_id", m.UserID)
		}
	}

	if failAfterFirst && len(ms) > 1 {
		// Nothing has been committed: the injected failure aborts the whole
		// batch, mirroring a rolled-back database transaction.
		return nil, false, domain.ErrDatabaseError.WithDetail("injected", true)
	}

	out := make([]domain.Entry, 0, len(ms))
	for _, m := range ms {
		s.balances[m.UserID] += m.Amount
		entryType := domain.EntryTypeCredit
		if m.IsDebit() {
			entryType = domain.EntryTypeDebit
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
			BalanceAfter: s.balances[m.UserID],
			CreatedAt:    time.Now().UTC(),
		}
		s.byRef[m.Reference] = entry
		s.entries = append(s.entries, entry)
		out = append(out, entry)
	}
	return out, true, nil
}

// EntryByReference implements ports.LedgerStore.
func (s *Store) EntryByReference(ctx context.Context, reference string) (*domain.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.byRef[reference]
	if !ok {
		return nil, domain.ErrEntryNotFound.WithDetail("reference", reference)
	}
	return &entry, nil
}

// EntriesForUser implements ports.LedgerStore.
func (s *Store) EntriesForUser(ctx context.Context, userID string, limit, offset int) ([]domain.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []domain.Entry
	for _, e := range s.entries {
		if e.UserID == userID {
			all = append(all, e)
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// DebitedSince implements ports.LedgerStore.
func (s *Store) DebitedSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	for _, e := range s.entries {
		if e.UserID == userID && e.Type == domain.EntryTypeDebit && !e.CreatedAt.Before(since) {
			total += e.Amount
		}
	}
	return total, nil
}

// SumDeltas implements ports.LedgerStore.
func (s *Store) SumDeltas(ctx context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	for _, e := range s.entries {
		if e.UserID == userID {
			total += e.SignedAmount()
		}
	}
	return total, nil
}
