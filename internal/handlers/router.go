package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ovomonie/banking-service/internal/auth"
	"github.com/ovomonie/banking-service/internal/domain/ports"
)

// Deps carries everything the router needs to mount the API surface.
type Deps struct {
	Tokens        *auth.TokenIssuer
	Limiter       ports.AttemptLimiter
	Accounts      *AccountHandlers
	Transfers     *TransferHandlers
	Funding       *FundingHandlers
	Bills         *BillsHandlers
	Cards         *CardHandlers
	Loans         *LoanHandlers
	Payroll       *PayrollHandlers
	Invoices      *InvoiceHandlers
	Security      *SecurityHandlers
	Subscriptions *SubscriptionHandlers
	Mandates      *MandateHandlers
	Notifications *NotificationHandlers
	Webhooks      *WebhookHandlers
	Logger        *zap.Logger
}

// NewRouter wires the public auth endpoints, vendor webhooks and the
// authenticated API under /api/v1.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(RequestLogger(d.Logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Use(RateLimit(d.Limiter, "auth", 10, 60, d.Logger))
		r.Post("/register", d.Accounts.Register)
		r.Post("/login", d.Accounts.Login)
	})

	r.Route("/webhooks/vfd", func(r chi.Router) {
		r.Post("/cards", d.Webhooks.Cards)
		r.Post("/credit", d.Webhooks.Credit)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Authenticator(d.Tokens, d.Logger))

		r.Get("/me", d.Accounts.Me)
		r.Get("/balance", d.Accounts.Balance)
		r.Get("/history", d.Accounts.History)
		r.Post("/pin/verify", d.Accounts.VerifyPIN)
		r.Post("/pin/change", d.Accounts.ChangePIN)
		r.Post("/kyc/upgrade", d.Accounts.UpgradeKYC)

		r.Route("/transfers", func(r chi.Router) {
			r.Post("/internal", d.Transfers.Internal)
			r.Post("/external", d.Transfers.External)
			r.Get("/banks", d.Transfers.Banks)
			r.Get("/recipient", d.Transfers.ValidateRecipient)
		})

		r.Route("/funding", func(r chi.Router) {
			r.Post("/", d.Funding.Initiate)
			r.Post("/{reference}/authorize", d.Funding.Authorize)
			r.Post("/paystack", d.Funding.InitiateGateway)
			r.Post("/paystack/{reference}/verify", d.Funding.VerifyGateway)
			r.Get("/{reference}", d.Funding.Status)
		})

		r.Route("/bills", func(r chi.Router) {
			r.Get("/providers", d.Bills.Providers)
			r.Get("/providers/{providerID}/services", d.Bills.Services)
			r.Get("/customer", d.Bills.ValidateCustomer)
			r.Post("/pay", d.Bills.Pay)
			r.Get("/payments/{reference}", d.Bills.PaymentStatus)
		})

		r.Route("/cards", func(r chi.Router) {
			r.Post("/", d.Cards.Order)
			r.Get("/", d.Cards.List)
			r.Post("/{cardID}/block", d.Cards.Block)
			r.Post("/{cardID}/unblock", d.Cards.Unblock)
		})

		r.Route("/loans", func(r chi.Router) {
			r.Post("/", d.Loans.Apply)
			r.Get("/", d.Loans.List)
			r.Post("/{loanID}/repay", d.Loans.Repay)
		})

		r.Route("/payroll", func(r chi.Router) {
			r.Post("/batches", d.Payroll.CreateBatch)
			r.Get("/batches", d.Payroll.ListBatches)
			r.Get("/batches/{batchID}", d.Payroll.GetBatch)
			r.Post("/batches/{batchID}/execute", d.Payroll.ExecuteBatch)
		})

		r.Route("/invoices", func(r chi.Router) {
			r.Post("/", d.Invoices.Create)
			r.Get("/", d.Invoices.ListIssued)
			r.Get("/{invoiceID}", d.Invoices.Get)
			r.Post("/{invoiceID}/pay", d.Invoices.Pay)
		})

		r.Route("/security/questions", func(r chi.Router) {
			r.Post("/", d.Security.Set)
			r.Get("/", d.Security.Get)
			r.Post("/verify", d.Security.Verify)
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Post("/", d.Subscriptions.Create)
			r.Get("/", d.Subscriptions.List)
			r.Patch("/{subscriptionID}", d.Subscriptions.Update)
			r.Delete("/{subscriptionID}", d.Subscriptions.Delete)
		})

		r.Route("/mandates", func(r chi.Router) {
			r.Post("/", d.Mandates.Create)
			r.Get("/", d.Mandates.List)
			r.Get("/{mandateID}", d.Mandates.Get)
			r.Post("/{mandateID}/cancel", d.Mandates.Cancel)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", d.Notifications.List)
			r.Post("/{notificationID}/read", d.Notifications.MarkRead)
		})
	})

	return r
}
