package vfd

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/ovomonie/banking-service/internal/domain"
	"github.com/ovomonie/banking-service/internal/domain/ports"
)

// vfdBankCode is the vendor's own institution code; transfers to it ride the
// cheaper intra rail.
const vfdBankCode = "566"

// WalletAdapter implements ports.WalletGateway against the vendor wallet API.
type WalletAdapter struct {
	client *Client
}

var _ ports.WalletGateway = (*WalletAdapter)(nil)

// NewWalletAdapter creates a wallet gateway.
func NewWalletAdapter(client *Client) *WalletAdapter {
	return &WalletAdapter{client: client}
}

// kobosToNaira renders a kobo amount as the decimal naira string the vendor
// expects ("2500.50").
func kobosToNaira(kobo int64) string {
	return decimal.NewFromInt(kobo).Div(decimal.NewFromInt(100)).StringFixed(2)
}

// AccountEnquiry fetches the pool account funds are swept through.
func (a *WalletAdapter) AccountEnquiry(ctx context.Context) (*ports.PoolAccount, error) {
	env, _, err := a.client.get(ctx, "wallet", "account_enquiry",
		a.client.cfg.WalletBaseURL+"/account/enquiry")
	if err != nil {
		return nil, err
	}
	if env.Status != "00" {
		return nil, domain.NewDomainError(domain.ErrorCodeVendorError, env.Message)
	}

	var data struct {
		AccountNo      string          `json:"accountNo"`
		AccountBalance decimal.Decimal `json:"accountBalance"`
		AccountID      string          `json:"accountId"`
		ClientID       string          `json:"clientId"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, domain.WrapError(domain.ErrorCodeVendorError, "decode account enquiry", err)
	}
	return &ports.PoolAccount{
		AccountNumber: data.AccountNo,
		AccountID:     data.AccountID,
		ClientID:      data.ClientID,
		Balance:       data.AccountBalance.Mul(decimal.NewFromInt(100)).IntPart(),
	}, nil
}

// Banks lists the institutions reachable over the vendor rails.
func (a *WalletAdapter) Banks(ctx context.Context) ([]ports.Bank, error) {
	env, _, err := a.client.get(ctx, "wallet", "bank_list", a.client.cfg.WalletBaseURL+"/bank")
	if err != nil {
		return nil, err
	}
	if env.Status != "00" {
		return nil, domain.NewDomainError(domain.ErrorCodeVendorError, env.Message)
	}

	var data struct {
		Bank []ports.Bank `json:"bank"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, domain.WrapError(domain.ErrorCodeVendorError, "decode bank list", err)
	}
	return data.Bank, nil
}

// ValidateRecipient resolves the account name before a transfer is committed.
func (a *WalletAdapter) ValidateRecipient(ctx context.Context, accountNumber, bankCode string) (*ports.Recipient, error) {
	q := url.Values{}
	q.Set("accountNo", accountNumber)
	q.Set("bank", bankCode)
	q.Set("transfer_type", transferType(bankCode))

	env, _, err := a.client.get(ctx, "wallet", "recipient",
		a.client.cfg.WalletBaseURL+"/transfer/recipient?"+q.Encode())
	if err != nil {
		return nil, err
	}
	if env.Status != "00" {
		return nil, domain.NewDomainError(domain.ErrorCodeValidationFailed, env.Message).
			WithDetail("account_number", accountNumber)
	}

	var data struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, domain.WrapError(domain.ErrorCodeVendorError, "decode recipient", err)
	}
	return &ports.Recipient{
		Name:          data.Name,
		AccountNumber: accountNumber,
		BankCode:      bankCode,
	}, nil
}

// Transfer moves money from the pool account to an external recipient. The
// vendor is called once per reference; retries reuse the same reference and
// are deduplicated on their side.
func (a *WalletAdapter) Transfer(ctx context.Context, req ports.ExternalTransfer) (*ports.Outcome, error) {
	pool, err := a.AccountEnquiry(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"fromAccount":           pool.AccountNumber,
		"fromClientId":          pool.ClientID,
		"fromSavingsId":         pool.AccountID,
		"uniqueSenderAccountId": pool.AccountID,
		"toClient":              req.RecipientName,
		"toAccount":             req.RecipientAccount,
		"toBank":                req.RecipientBank,
		"amount":                kobosToNaira(req.Amount),
		"remark":                req.Narration,
		"transferType":          transferType(req.RecipientBank),
		"reference":             req.Reference,
	}

	env, httpStatus, err := a.client.post(ctx, "wallet", "transfer",
		a.client.cfg.WalletBaseURL+"/transfer", payload)
	if err != nil {
		return nil, err
	}

	out := outcomeFromEnvelope(env, httpStatus)
	if len(env.Data) > 0 {
		var data struct {
			TxnID     string `json:"txnId"`
			SessionID string `json:"sessionId"`
		}
		if json.Unmarshal(env.Data, &data) == nil {
			out.VendorReference = data.TxnID
			out.SessionID = data.SessionID
		}
	}
	return out, nil
}

// TransferStatus polls a previously submitted transfer by reference.
func (a *WalletAdapter) TransferStatus(ctx context.Context, reference string) (*ports.Outcome, error) {
	q := url.Values{}
	q.Set("reference", reference)

	env, httpStatus, err := a.client.get(ctx, "wallet", "transfer_status",
		a.client.cfg.WalletBaseURL+"/transactions?"+q.Encode())
	if err != nil {
		return nil, err
	}

	out := outcomeFromEnvelope(env, httpStatus)
	if out.Succeeded() && len(env.Data) > 0 {
		// The envelope code says the lookup worked; the transaction's own
		// status decides the outcome.
		var data struct {
			TransactionStatus string `json:"transactionStatus"`
		}
		if json.Unmarshal(env.Data, &data) == nil && data.TransactionStatus != "" {
			inner := GetResponseCodeInfo(data.TransactionStatus)
			out.Status = inner.Status
			out.Code = data.TransactionStatus
		}
	}
	return out, nil
}

func transferType(bankCode string) string {
	if bankCode == vfdBankCode {
		return "intra"
	}
	return "inter"
}
