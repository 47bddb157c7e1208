package domain

import (
	"time"
)

// AccountStatus represents the lifecycle state of a user account
type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "active"
	AccountStatusSuspended AccountStatus = "suspended"
)

// KYCTier is the regulatory compliance level gating transaction limits.
// Tiers follow the CBN three-tier KYC model: tier 1 is phone-only onboarding,
// tier 2 adds BVN verification, tier 3 adds liveness/selfie verification.
type KYCTier int

const (
	KYCTier1 KYCTier = 1
	KYCTier2 KYCTier = 2
	KYCTier3 KYCTier = 3
)

// SingleTransferLimit returns the maximum amount in kobo allowed for a single
// debit at this tier.
func (t KYCTier) SingleTransferLimit() int64 {
	switch t {
	case KYCTier1:
		return 5_000_000 // NGN 50,000
	case KYCTier2:
		return 20_000_000 // NGN 200,000
	default:
		return 500_000_000 // NGN 5,000,000
	}
}

// DailyDebitLimit returns the maximum total debits in kobo allowed per calendar
// day at this tier.
func (t KYCTier) DailyDebitLimit() int64 {
	switch t {
	case KYCTier1:
		return 30_000_000 // NGN 300,000
	case KYCTier2:
		return 50_000_000 // NGN 500,000
	default:
		return 2_000_000_000 // NGN 20,000,000
	}
}

// Valid reports whether the tier is one of the three defined levels.
func (t KYCTier) Valid() bool {
	return t >= KYCTier1 && t <= KYCTier3
}

// Account represents a user wallet account. Balance is an integer in kobo and
// is only ever mutated through the ledger engine.
type Account struct {
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
	ID                 string        `json:"id"`
	Phone              string        `json:"phone"`
	Email              string        `json:"email"`
	FullName           string        `json:"full_name"`
	AccountNumber      string        `json:"account_number"`
	PasswordHash       string        `json:"-"`
	TransactionPinHash string        `json:"-"`
	Status             AccountStatus `json:"status"`
	KYCTier            KYCTier       `json:"kyc_tier"`
	Balance            int64         `json:"balance"`
	BVNVerified        bool          `json:"bvn_verified"`
	SelfieVerified     bool          `json:"selfie_verified"`
}

// IsActive reports whether the account may transact.
func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}

// CanUpgradeTo reports whether the account satisfies the verification
// prerequisites for the requested tier.
func (a *Account) CanUpgradeTo(tier KYCTier) bool {
	if !tier.Valid() || tier <= a.KYCTier {
		return false
	}
	switch tier {
	case KYCTier2:
		return a.BVNVerified
	case KYCTier3:
		return a.BVNVerified && a.SelfieVerified
	default:
		return false
	}
}
