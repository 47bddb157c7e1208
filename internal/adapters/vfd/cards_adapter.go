package vfd

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/ovomonie/banking-service/internal/domain"
	"github.com/ovomonie/banking-service/internal/domain/ports"
)

// CardsAdapter implements ports.CardGateway against the vendor cards API.
type CardsAdapter struct {
	client *Client
}

var _ ports.CardGateway = (*CardsAdapter)(nil)

// NewCardsAdapter creates a card gateway.
func NewCardsAdapter(client *Client) *CardsAdapter {
	return &CardsAdapter{client: client}
}

// InitiateFunding starts a card charge for a wallet top-up. The vendor
// typically answers pending plus an OTP or PIN challenge.
func (a *CardsAdapter) InitiateFunding(ctx context.Context, req ports.CardFundingInitiation) (*ports.Outcome, error) {
	payload := map[string]any{
		"amount":          kobosToNaira(req.Amount),
		"reference":       req.Reference,
		"useExistingCard": false,
		"cardNumber":      req.CardNumber,
		"cvv2":            req.CVV,
		"expiryDate":      req.ExpiryYYMM,
		"shouldTokenize":  false,
	}

	env, httpStatus, err := a.client.post(ctx, "cards", "initiate_funding",
		a.client.cfg.CardsBaseURL+"/initiate/payment", payload)
	if err != nil {
		return nil, err
	}
	return outcomeFromEnvelope(env, httpStatus), nil
}

// AuthorizeFunding completes a pending funding with the OTP or card PIN the
// issuer challenged for.
func (a *CardsAdapter) AuthorizeFunding(ctx context.Context, req ports.CardFundingAuth) (*ports.Outcome, error) {
	var (
		path    string
		call    string
		payload map[string]any
	)
	switch {
	case req.OTP != "":
		path = "/authorize-otp"
		call = "authorize_otp"
		payload = map[string]any{"reference": req.Reference, "otp": req.OTP}
	case req.PIN != "":
		path = "/authorize-pin"
		call = "authorize_pin"
		payload = map[string]any{"reference": req.Reference, "pin": req.PIN}
	default:
		return nil, domain.ErrValidationMissingField.WithDetail("field", "otp or pin")
	}

	env, httpStatus, err := a.client.post(ctx, "cards", call, a.client.cfg.CardsBaseURL+path, payload)
	if err != nil {
		return nil, err
	}
	return outcomeFromEnvelope(env, httpStatus), nil
}

// FundingStatus polls a card funding by reference.
func (a *CardsAdapter) FundingStatus(ctx context.Context, reference string) (*ports.Outcome, error) {
	q := url.Values{}
	q.Set("reference", reference)

	env, httpStatus, err := a.client.get(ctx, "cards", "funding_status",
		a.client.cfg.CardsBaseURL+"/payment-details?"+q.Encode())
	if err != nil {
		return nil, err
	}

	out := outcomeFromEnvelope(env, httpStatus)
	if out.Succeeded() && len(env.Data) > 0 {
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

// IssueCard asks the vendor to create a virtual card. Creation is usually
// asynchronous; a pending outcome means the card webhook decides the result.
func (a *CardsAdapter) IssueCard(ctx context.Context, req ports.CardIssueRequest) (*ports.IssuedCard, *ports.Outcome, error) {
	payload := map[string]any{
		"reference": req.Reference,
		"name":      req.UserName,
	}

	env, httpStatus, err := a.client.post(ctx, "cards", "issue_card",
		a.client.cfg.CardsBaseURL+"/create", payload)
	if err != nil {
		return nil, nil, err
	}

	out := outcomeFromEnvelope(env, httpStatus)
	card := &ports.IssuedCard{}
	if len(env.Data) > 0 {
		var data struct {
			CardID    string `json:"cardId"`
			MaskedPan string `json:"maskedPan"`
		}
		if json.Unmarshal(env.Data, &data) == nil {
			card.VendorCardID = data.CardID
			card.MaskedPAN = data.MaskedPan
		}
	}
	return card, out, nil
}

// SetCardBlocked freezes or unfreezes a virtual card.
func (a *CardsAdapter) SetCardBlocked(ctx context.Context, vendorCardID string, blocked bool) error {
	action := "unblock"
	if blocked {
		action = "block"
	}
	payload := map[string]any{
		"cardId": vendorCardID,
		"action": action,
	}

	env, _, err := a.client.post(ctx, "cards", "card_"+action,
		a.client.cfg.CardsBaseURL+"/control", payload)
	if err != nil {
		return err
	}
	if env.Status != "00" {
		return domain.NewDomainError(domain.ErrorCodeVendorError, env.Message).
			WithDetail("card_id", vendorCardID)
	}
	return nil
}
