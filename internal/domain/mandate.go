package domain

import (
	"time"
)

// MandateStatus is the lifecycle state of a direct-debit mandate.
type MandateStatus string

const (
	MandateStatusActive    MandateStatus = "active"
	MandateStatusCancelled MandateStatus = "cancelled"
)

// MandateFrequency is the vendor's recurring debit cadence.
type MandateFrequency string

const (
	MandateFrequencyDaily     MandateFrequency = "DAILY"
	MandateFrequencyWeekly    MandateFrequency = "WEEKLY"
	MandateFrequencyMonthly   MandateFrequency = "MONTHLY"
	MandateFrequencyQuarterly MandateFrequency = "QUARTERLY"
	MandateFrequencyYearly    MandateFrequency = "YEARLY"
)

// ValidMandateFrequency reports whether f is one of the vendor's cadences.
func ValidMandateFrequency(f MandateFrequency) bool {
	switch f {
	case MandateFrequencyDaily, MandateFrequencyWeekly, MandateFrequencyMonthly,
		MandateFrequencyQuarterly, MandateFrequencyYearly:
		return true
	}
	return false
}

// Mandate authorizes recurring direct debits against an external bank
// account. The vendor owns execution; the local row exists for ownership
// checks and listing. Amount is in kobo.
type Mandate struct {
	CreatedAt       time.Time        `json:"created_at"`
	CancelledAt     *time.Time       `json:"cancelled_at,omitempty"`
	ID              string           `json:"id"`
	UserID          string           `json:"user_id"`
	VendorMandateID string           `json:"vendor_mandate_id"`
	AccountNumber   string           `json:"account_number"`
	BankCode        string           `json:"bank_code"`
	Frequency       MandateFrequency `json:"frequency"`
	StartDate       string           `json:"start_date"`
	EndDate         string           `json:"end_date"`
	Reference       string           `json:"reference"`
	Status          MandateStatus    `json:"status"`
	Amount          int64            `json:"amount"`
}
