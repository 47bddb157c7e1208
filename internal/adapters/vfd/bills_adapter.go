package vfd

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/ovomonie/banking-service/internal/domain"
	"github.com/ovomonie/banking-service/internal/domain/ports"
)

// BillsAdapter implements ports.BillsGateway against the vendor bills API.
// Airtime, data, power and betting all ride the same biller catalogue.
type BillsAdapter struct {
	client *Client
}

var _ ports.BillsGateway = (*BillsAdapter)(nil)

// NewBillsAdapter creates a bills gateway.
func NewBillsAdapter(client *Client) *BillsAdapter {
	return &BillsAdapter{client: client}
}

// Providers lists biller categories.
func (a *BillsAdapter) Providers(ctx context.Context) ([]ports.BillProvider, error) {
	env, _, err := a.client.get(ctx, "bills", "providers",
		a.client.cfg.BillsBaseURL+"/billercategory")
	if err != nil {
		return nil, err
	}
	if env.Status != "00" {
		return nil, domain.NewDomainError(domain.ErrorCodeVendorError, env.Message)
	}

	var data []ports.BillProvider
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, domain.WrapError(domain.ErrorCodeVendorError, "decode providers", err)
	}
	return data, nil
}

// Services lists the purchasable items under a provider.
func (a *BillsAdapter) Services(ctx context.Context, providerID string) ([]ports.BillService, error) {
	q := url.Values{}
	q.Set("billerId", providerID)

	env, _, err := a.client.get(ctx, "bills", "services",
		a.client.cfg.BillsBaseURL+"/billerItems?"+q.Encode())
	if err != nil {
		return nil, err
	}
	if env.Status != "00" {
		return nil, domain.NewDomainError(domain.ErrorCodeVendorError, env.Message)
	}

	var items []struct {
		ID     string          `json:"id"`
		Name   string          `json:"name"`
		Amount decimal.Decimal `json:"amount"`
	}
	if err := json.Unmarshal(env.Data, &items); err != nil {
		return nil, domain.WrapError(domain.ErrorCodeVendorError, "decode services", err)
	}

	out := make([]ports.BillService, 0, len(items))
	for _, it := range items {
		out = append(out, ports.BillService{
			ID:     it.ID,
			Name:   it.Name,
			Amount: it.Amount.Mul(decimal.NewFromInt(100)).IntPart(),
		})
	}
	return out, nil
}

// ValidateCustomer resolves the customer name for a biller (meter number,
// smartcard, phone) before payment.
func (a *BillsAdapter) ValidateCustomer(ctx context.Context, providerID, serviceID, customerID string) (string, error) {
	payload := map[string]any{
		"billerId":   providerID,
		"divisionId": serviceID,
		"customerId": customerID,
	}

	env, _, err := a.client.post(ctx, "bills", "validate_customer",
		a.client.cfg.BillsBaseURL+"/customervalidate", payload)
	if err != nil {
		return "", err
	}
	if env.Status != "00" {
		return "", domain.NewDomainError(domain.ErrorCodeValidationFailed, env.Message).
			WithDetail("customer_id", customerID)
	}

	var data struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return "", domain.WrapError(domain.ErrorCodeVendorError, "decode customer", err)
	}
	return data.Name, nil
}

// Pay purchases a bill. "09" and HTTP 202 both surface as pending; the
// reconciler or webhook settles those later.
func (a *BillsAdapter) Pay(ctx context.Context, req ports.BillPayment) (*ports.Outcome, error) {
	payload := map[string]any{
		"billerId":   req.ProviderID,
		"divisionId": req.ServiceID,
		"customerId": req.CustomerID,
		"reference":  req.Reference,
		"amount":     kobosToNaira(req.Amount),
	}

	env, httpStatus, err := a.client.post(ctx, "bills", "pay",
		a.client.cfg.BillsBaseURL+"/pay", payload)
	if err != nil {
		return nil, err
	}
	return outcomeFromEnvelope(env, httpStatus), nil
}

// PaymentStatus polls a bill payment by its reference.
func (a *BillsAdapter) PaymentStatus(ctx context.Context, reference string) (*ports.Outcome, error) {
	q := url.Values{}
	q.Set("transactionId", reference)

	env, httpStatus, err := a.client.get(ctx, "bills", "payment_status",
		a.client.cfg.BillsBaseURL+"/transactionStatus?"+q.Encode())
	if err != nil {
		return nil, err
	}
	return outcomeFromEnvelope(env, httpStatus), nil
}
