package domain

import (
	"time"
)

// SettlementKind identifies which asynchronous vendor flow a pending
// settlement belongs to.
type SettlementKind string

const (
	SettlementKindCardFunding      SettlementKind = "card_funding"
	SettlementKindGatewayFunding   SettlementKind = "gateway_funding"
	SettlementKindBillPayment      SettlementKind = "bill_payment"
	SettlementKindExternalTransfer SettlementKind = "external_transfer"
	SettlementKindCardOrder        SettlementKind = "card_order"
)

// SettlementStatus is the state of an asynchronous vendor-backed flow.
// The only transitions are pending -> completed and pending -> failed, driven
// by a verified webhook or by the reconciler polling the vendor.
type SettlementStatus string

const (
	SettlementStatusPending   SettlementStatus = "pending"
	SettlementStatusCompleted SettlementStatus = "completed"
	SettlementStatusFailed    SettlementStatus = "failed"
)

// PendingSettlement stages a vendor flow that returned a "pending" outcome.
// No balance mutation happens while a settlement is pending; the ledger is
// touched exactly once when the settlement reaches a final state.
type PendingSettlement struct {
	CreatedAt       time.Time         `json:"created_at"`
	SettledAt       *time.Time        `json:"settled_at,omitempty"`
	Detail          map[string]string `json:"detail,omitempty"`
	ID              string            `json:"id"`
	UserID          string            `json:"user_id"`
	Kind            SettlementKind    `json:"kind"`
	Status          SettlementStatus  `json:"status"`
	Reference       string            `json:"reference"`
	VendorReference string            `json:"vendor_reference"`
	Amount          int64             `json:"amount"`
}

// IsFinal reports whether the settlement has reached a terminal state.
func (p *PendingSettlement) IsFinal() bool {
	return p.Status == SettlementStatusCompleted || p.Status == SettlementStatusFailed
}
