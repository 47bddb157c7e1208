package domain

import (
	"time"
)

// SubscriptionStatus is the state of a recurring merchant payment.
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusPaused    SubscriptionStatus = "paused"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// SubscriptionFrequency is the billing cadence of a subscription.
type SubscriptionFrequency string

const (
	SubscriptionFrequencyDaily   SubscriptionFrequency = "daily"
	SubscriptionFrequencyWeekly  SubscriptionFrequency = "weekly"
	SubscriptionFrequencyMonthly SubscriptionFrequency = "monthly"
	SubscriptionFrequencyYearly  SubscriptionFrequency = "yearly"
)

// ValidSubscriptionFrequency reports whether f is a supported cadence.
func ValidSubscriptionFrequency(f SubscriptionFrequency) bool {
	switch f {
	case SubscriptionFrequencyDaily, SubscriptionFrequencyWeekly,
		SubscriptionFrequencyMonthly, SubscriptionFrequencyYearly:
		return true
	}
	return false
}

// Subscription is a recurring payment the user has registered with a
// merchant. Amount is in kobo.
type Subscription struct {
	CreatedAt     time.Time             `json:"created_at"`
	NextBillingAt time.Time             `json:"next_billing_at"`
	ID            string                `json:"id"`
	UserID        string                `json:"user_id"`
	MerchantName  string                `json:"merchant_name"`
	Frequency     SubscriptionFrequency `json:"frequency"`
	Status        SubscriptionStatus    `json:"status"`
	Amount        int64                 `json:"amount"`
}
