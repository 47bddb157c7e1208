package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoanStatus is the lifecycle state of a loan
type LoanStatus string

const (
	LoanStatusPending  LoanStatus = "pending"
	LoanStatusActive   LoanStatus = "active"
	LoanStatusRepaid   LoanStatus = "repaid"
	LoanStatusRejected LoanStatus = "rejected"
)

// Loan represents a disbursed or requested loan. Principal and Outstanding are
// in kobo; RateBps is the flat interest rate in basis points applied over the
// full term.
type Loan struct {
	CreatedAt   time.Time  `json:"created_at"`
	DisbursedAt *time.Time `json:"disbursed_at,omitempty"`
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Reference   string     `json:"reference"`
	Status      LoanStatus `json:"status"`
	Principal   int64      `json:"principal"`
	Outstanding int64      `json:"outstanding"`
	RateBps     int64      `json:"rate_bps"`
	TermMonths  int        `json:"term_months"`
}

// TotalRepayable computes principal plus flat interest, rounded to the nearest
// kobo. Interest math uses decimals to avoid binary float error on money.
func (l *Loan) TotalRepayable() int64 {
	principal := decimal.NewFromInt(l.Principal)
	rate := decimal.NewFromInt(l.RateBps).Div(decimal.NewFromInt(10_000))
	total := principal.Add(principal.Mul(rate))
	return total.Round(0).IntPart()
}

// ApplyRepayment reduces the outstanding amount and returns the amount that
// was actually applied (a repayment never overpays).
func (l *Loan) ApplyRepayment(amount int64) int64 {
	if amount > l.Outstanding {
		amount = l.Outstanding
	}
	l.Outstanding -= amount
	if l.Outstanding == 0 {
		l.Status = LoanStatusRepaid
	}
	return amount
}
