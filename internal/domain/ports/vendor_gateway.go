package ports

import (
	"context"
)

// OutcomeStatus is the normalized tri-state result of any vendor call that
// moves money. Every per-product adapter maps the vendor's response codes
// ("00", "09", HTTP 202, ...) into exactly one of these.
type OutcomeStatus string

const (
	OutcomeSucceeded OutcomeStatus = "succeeded"
	OutcomePending   OutcomeStatus = "pending"
	OutcomeFailed    OutcomeStatus = "failed"
)

// Outcome is the normalized result of a vendor money-movement call.
type Outcome struct {
	Status          OutcomeStatus
	Code            string
	Message         string
	VendorReference string
	SessionID       string
	Retriable       bool
}

// Succeeded reports whether the vendor confirmed final settlement.
func (o *Outcome) Succeeded() bool { return o.Status == OutcomeSucceeded }

// Pending reports whether the flow requires a follow-up (webhook or poll).
func (o *Outcome) Pending() bool { return o.Status == OutcomePending }

// Bank is one entry of the vendor's bank list.
type Bank struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Recipient is a validated external transfer counterparty.
type Recipient struct {
	Name          string `json:"name"`
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code"`
}

// PoolAccount is the vendor-held settlement account funds move through.
type PoolAccount struct {
	AccountNumber string
	AccountID     string
	ClientID      string
	Balance       int64
}

// ExternalTransfer describes an outbound transfer over the vendor rails.
// Amount is in kobo; the adapter converts to the vendor's naira string format.
type ExternalTransfer struct {
	RecipientAccount string
	RecipientBank    string
	RecipientName    string
	Narration        string
	Reference        string
	Amount           int64
}

// WalletGateway is the vendor wallet product: account enquiry, bank list,
// recipient validation and transfers.
type WalletGateway interface {
	AccountEnquiry(ctx context.Context) (*PoolAccount, error)
	Banks(ctx context.Context) ([]Bank, error)
	ValidateRecipient(ctx context.Context, accountNumber, bankCode string) (*Recipient, error)
	Transfer(ctx context.Context, req ExternalTransfer) (*Outcome, error)
	TransferStatus(ctx context.Context, reference string) (*Outcome, error)
}

// CardFundingInitiation describes a wallet top-up charged to an external card.
type CardFundingInitiation struct {
	Reference  string
	CardNumber string
	CVV        string
	ExpiryYYMM string
	Amount     int64
}

// CardFundingAuth carries the OTP or PIN follow-up for a pending funding.
type CardFundingAuth struct {
	Reference string
	OTP       string
	PIN       string
}

// CardIssueRequest asks the vendor to create a virtual card.
type CardIssueRequest struct {
	Reference string
	UserName  string
}

// IssuedCard is the vendor's card creation result.
type IssuedCard struct {
	VendorCardID string
	MaskedPAN    string
}

// CardGateway is the vendor card product: card-funding of the wallet and
// virtual card issuance/controls.
type CardGateway interface {
	InitiateFunding(ctx context.Context, req CardFundingInitiation) (*Outcome, error)
	AuthorizeFunding(ctx context.Context, req CardFundingAuth) (*Outcome, error)
	FundingStatus(ctx context.Context, reference string) (*Outcome, error)
	IssueCard(ctx context.Context, req CardIssueRequest) (*IssuedCard, *Outcome, error)
	SetCardBlocked(ctx context.Context, vendorCardID string, blocked bool) error
}

// MandateRequest asks the vendor to register a recurring direct debit
// against an external bank account. Dates are YYYY-MM-DD; Amount is in kobo.
type MandateRequest struct {
	CustomerID    string
	AccountNumber string
	BankCode      string
	Frequency     string
	StartDate     string
	EndDate       string
	Reference     string
	Narration     string
	Amount        int64
}

// MandateGateway is the vendor direct-debit product.
type MandateGateway interface {
	// CreateMandate registers the mandate and returns the vendor's mandate id.
	CreateMandate(ctx context.Context, req MandateRequest) (string, error)
	MandateStatus(ctx context.Context, vendorMandateID string) (string, error)
	CancelMandate(ctx context.Context, vendorMandateID, reason string) error
}

// PaymentInitializeRequest starts a hosted-checkout collection. Amount is in
// kobo; Email is required by the gateway's checkout page.
type PaymentInitializeRequest struct {
	Reference string
	Email     string
	Amount    int64
	Metadata  map[string]string
}

// PaymentInitiation is the gateway's checkout handle. The user completes the
// card payment on AuthorizationURL; the wallet is credited only after Verify.
type PaymentInitiation struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// PaymentGateway is an external card-collection provider with a redirect
// checkout flow: initialize, let the user pay, then verify by reference.
type PaymentGateway interface {
	Initialize(ctx context.Context, req PaymentInitializeRequest) (*PaymentInitiation, error)
	Verify(ctx context.Context, reference string) (*Outcome, error)
}

// BillProvider is one biller in the vendor's bill-payment catalogue.
type BillProvider struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// BillService is one purchasable service under a provider.
type BillService struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Amount int64  `json:"amount,omitempty"`
}

// BillPayment describes a bill purchase for a validated customer.
type BillPayment struct {
	ProviderID string
	ServiceID  string
	CustomerID string
	Reference  string
	Amount     int64
}

// BillsGateway is the vendor bills product.
type BillsGateway interface {
	Providers(ctx context.Context) ([]BillProvider, error)
	Services(ctx context.Context, providerID string) ([]BillService, error)
	ValidateCustomer(ctx context.Context, providerID, serviceID, customerID string) (string, error)
	Pay(ctx context.Context, req BillPayment) (*Outcome, error)
	PaymentStatus(ctx context.Context, reference string) (*Outcome, error)
}
