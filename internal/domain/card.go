package domain

import (
	"time"
)

// CardStatus is the lifecycle state of a virtual card
type CardStatus string

const (
	CardStatusPending CardStatus = "pending"
	CardStatusActive  CardStatus = "active"
	CardStatusBlocked CardStatus = "blocked"
	CardStatusFailed  CardStatus = "failed"
)

// VirtualCard represents a vendor-issued virtual debit card. Issuance is
// asynchronous: the card stays pending until the vendor webhook confirms
// creation, and the issuance fee is refunded through the ledger if it fails.
type VirtualCard struct {
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	VendorCardID string     `json:"vendor_card_id"`
	MaskedPAN    string     `json:"masked_pan"`
	Reference    string     `json:"reference"`
	Status       CardStatus `json:"status"`
}

// CanBlock reports whether the card can transition to blocked.
func (c *VirtualCard) CanBlock() bool {
	return c.Status == CardStatusActive
}

// CanUnblock reports whether the card can transition back to active.
func (c *VirtualCard) CanUnblock() bool {
	return c.Status == CardStatusBlocked
}
