package domain

import (
	"time"
)

// InvoiceStatus is the payment state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusUnpaid InvoiceStatus = "unpaid"
	InvoiceStatusPaid   InvoiceStatus = "paid"
)

// Invoice is a payment request issued by one account holder to another.
// Settlement is an internal transfer from the payer to the issuer using the
// invoice reference as the idempotency key.
type Invoice struct {
	CreatedAt          time.Time     `json:"created_at"`
	PaidAt             *time.Time    `json:"paid_at,omitempty"`
	ID                 string        `json:"id"`
	IssuerID           string        `json:"issuer_id"`
	PayerAccountNumber string        `json:"payer_account_number"`
	Memo               string        `json:"memo"`
	Reference          string        `json:"reference"`
	Status             InvoiceStatus `json:"status"`
	Amount             int64         `json:"amount"`
}
