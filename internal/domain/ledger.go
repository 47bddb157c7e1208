package domain

import (
	"time"
)

// EntryType is the direction of a ledger entry
type EntryType string

const (
	EntryTypeCredit EntryType = "credit"
	EntryTypeDebit  EntryType = "debit"
)

// Category classifies what a balance mutation was for
type Category string

const (
	CategoryTransfer       Category = "transfer"
	CategoryCardFunding    Category = "card_funding"
	CategoryGatewayFunding Category = "gateway_funding"
	CategoryBillPayment    Category = "bill_payment"
	CategoryAirtime        Category = "airtime"
	CategoryCardOrder      Category = "card_order"
	CategoryLoan           Category = "loan"
	CategoryPayroll        Category = "payroll"
	CategoryInvoice        Category = "invoice"
	CategoryReversal       Category = "reversal"
)

// Mutation is a request to move money on a single account. Amount is signed:
// positive credits the account, negative debits it. Reference is the
// client-supplied idempotency key; applying the same reference twice returns
// the original entry without a second mutation.
type Mutation struct {
	Party     map[string]string
	UserID    string
	Reference string
	Narration string
	Category  Category
	Amount    int64
}

// IsDebit reports whether the mutation removes funds.
func (m Mutation) IsDebit() bool {
	return m.Amount < 0
}

// AbsAmount returns the unsigned amount in kobo.
func (m Mutation) AbsAmount() int64 {
	if m.Amount < 0 {
		return -m.Amount
	}
	return m.Amount
}

// Validate checks structural validity; balance preconditions are enforced
// inside the ledger store's transaction.
func (m Mutation) Validate() error {
	if m.UserID == "" {
		return ErrValidationMissingField.WithDetail("field", "user_id")
	}
	if m.Reference == "" {
		return ErrValidationMissingField.WithDetail("field", "reference")
	}
	if m.Amount == 0 {
		return ErrValidationAmountInvalid.WithDetail("reason", "amount must be non-zero")
	}
	if m.Category == "" {
		return ErrValidationMissingField.WithDetail("field", "category")
	}
	return nil
}

// Entry is one immutable row of the financial_transactions ledger. BalanceAfter
// records the account balance at the moment the entry was applied, making the
// ledger self-auditing: for every user the latest BalanceAfter must equal the
// account balance, and the sum of signed deltas must reproduce it.
type Entry struct {
	CreatedAt    time.Time         `json:"created_at"`
	Party        map[string]string `json:"party,omitempty"`
	ID           string            `json:"id"`
	UserID       string            `json:"user_id"`
	Type         EntryType         `json:"type"`
	Category     Category          `json:"category"`
	Reference    string            `json:"reference"`
	Narration    string            `json:"narration"`
	Amount       int64             `json:"amount"`
	BalanceAfter int64             `json:"balance_after"`
}

// SignedAmount returns the entry delta: positive for credits, negative for debits.
func (e *Entry) SignedAmount() int64 {
	if e.Type == EntryTypeDebit {
		return -e.Amount
	}
	return e.Amount
}
