package vfd

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/ovomonie/banking-service/internal/domain"
	"github.com/ovomonie/banking-service/internal/domain/ports"
)

// MandateAdapter implements ports.MandateGateway against the vendor
// direct-debit API.
type MandateAdapter struct {
	client *Client
}

var _ ports.MandateGateway = (*MandateAdapter)(nil)

// NewMandateAdapter creates a direct-debit gateway.
func NewMandateAdapter(client *Client) *MandateAdapter {
	return &MandateAdapter{client: client}
}

// CreateMandate registers a recurring debit authorization and returns the
// vendor's mandate id.
func (a *MandateAdapter) CreateMandate(ctx context.Context, req ports.MandateRequest) (string, error) {
	payload := map[string]any{
		"customerId":    req.CustomerID,
		"accountNumber": req.AccountNumber,
		"bankCode":      req.BankCode,
		"amount":        kobosToNaira(req.Amount),
		"frequency":     req.Frequency,
		"startDate":     req.StartDate,
		"endDate":       req.EndDate,
		"reference":     req.Reference,
		"narration":     req.Narration,
	}

	env, _, err := a.client.post(ctx, "mandate", "create",
		a.client.cfg.MandateBaseURL+"/create", payload)
	if err != nil {
		return "", err
	}
	if env.Status != "00" {
		return "", domain.NewDomainError(domain.ErrorCodeVendorError, env.Message)
	}

	var data struct {
		MandateID string `json:"mandateId"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return "", domain.WrapError(domain.ErrorCodeVendorError, "decode mandate", err)
	}
	if data.MandateID == "" {
		return "", domain.NewDomainError(domain.ErrorCodeVendorError, "vendor returned no mandate id")
	}
	return data.MandateID, nil
}

// MandateStatus fetches the vendor-side state of a mandate.
func (a *MandateAdapter) MandateStatus(ctx context.Context, vendorMandateID string) (string, error) {
	q := url.Values{}
	q.Set("mandateId", vendorMandateID)

	env, _, err := a.client.get(ctx, "mandate", "details",
		a.client.cfg.MandateBaseURL+"/details?"+q.Encode())
	if err != nil {
		return "", err
	}
	if env.Status != "00" {
		return "", domain.NewDomainError(domain.ErrorCodeVendorError, env.Message)
	}

	var data struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return "", domain.WrapError(domain.ErrorCodeVendorError, "decode mandate details", err)
	}
	return data.Status, nil
}

// CancelMandate revokes the authorization at the vendor.
func (a *MandateAdapter) CancelMandate(ctx context.Context, vendorMandateID, reason string) error {
	payload := map[string]any{
		"mandateId": vendorMandateID,
		"reason":    reason,
	}

	env, _, err := a.client.post(ctx, "mandate", "cancel",
		a.client.cfg.MandateBaseURL+"/cancel", payload)
	if err != nil {
		return err
	}
	if env.Status != "00" {
		return domain.NewDomainError(domain.ErrorCodeVendorError, env.Message)
	}
	return nil
}
