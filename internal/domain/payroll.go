package domain

import (
	"time"
)

// PayrollStatus is the lifecycle state of a payroll batch
type PayrollStatus string

const (
	PayrollStatusDraft     PayrollStatus = "draft"
	PayrollStatusExecuting PayrollStatus = "executing"
	PayrollStatusCompleted PayrollStatus = "completed"
	PayrollStatusPartial   PayrollStatus = "partial"
)

// EmployeeStatus is the payout state of one employee within a batch
type EmployeeStatus string

const (
	EmployeeStatusPending EmployeeStatus = "pending"
	EmployeeStatusPaid    EmployeeStatus = "paid"
	EmployeeStatusFailed  EmployeeStatus = "failed"
)

// PayrollBatch groups employee payouts executed from one owner account.
type PayrollBatch struct {
	CreatedAt  time.Time     `json:"created_at"`
	ExecutedAt *time.Time    `json:"executed_at,omitempty"`
	ID         string        `json:"id"`
	OwnerID    string        `json:"owner_id"`
	Title      string        `json:"title"`
	Status     PayrollStatus `json:"status"`
	Total      int64         `json:"total"`
}

// PayrollEmployee is one payout line in a batch. Payouts are idempotent per
// employee: the ledger reference is derived from the batch execution reference
// and the employee ID, so re-running a batch never pays anyone twice.
type PayrollEmployee struct {
	CreatedAt     time.Time      `json:"created_at"`
	ID            string         `json:"id"`
	BatchID       string         `json:"batch_id"`
	Name          string         `json:"name"`
	AccountNumber string         `json:"account_number"`
	Status        EmployeeStatus `json:"status"`
	Amount        int64          `json:"amount"`
}
