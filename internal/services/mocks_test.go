package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ovomonie/banking-service/internal/auth"
	"github.com/ovomonie/banking-service/internal/domain"
	"github.com/ovomonie/banking-service/internal/domain/ports"
	"github.com/ovomonie/banking-service/internal/ledger"
	"github.com/ovomonie/banking-service/internal/testutil/memledger"
)

// Hand-written in-memory fakes for the repository and gateway ports. Each
// mirrors the guarded-update semantics of its Postgres counterpart so the
// services under test exercise the same state machine.

type memAccounts struct {
	mu   sync.Mutex
	byID map[string]*domain.Account

	// balances is the ledger store: account reads report the live balance the
	// same way both paths hit the one users.balance column in Postgres.
	balances *memledger.Store
}

func newMemAccounts(balances *memledger.Store) *memAccounts {
	return &memAccounts{byID: make(map[string]*domain.Account), balances: balances}
}

func (m *memAccounts) put(a *domain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.byID[a.ID] = &cp
}

func (m *memAccounts) Create(ctx context.Context, a *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Phone == a.Phone {
			return domain.ErrAccountExists
		}
	}
	cp := *a
	m.byID[a.ID] = &cp
	return nil
}

func (m *memAccounts) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	cp := *a
	cp.Balance = m.balances.Balance(a.ID)
	return &cp, nil
}

func (m *memAccounts) GetByPhone(ctx context.Context, phone string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.Phone == phone {
			cp := *a
			cp.Balance = m.balances.Balance(a.ID)
			return &cp, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (m *memAccounts) GetByAccountNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.AccountNumber == accountNumber {
			cp := *a
			cp.Balance = m.balances.Balance(a.ID)
			return &cp, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (m *memAccounts) UpdateKYC(ctx context.Context, id string, tier domain.KYCTier, bvnVerified, selfieVerified bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.KYCTier = tier
	a.BVNVerified = bvnVerified
	a.SelfieVerified = selfieVerified
	return nil
}

func (m *memAccounts) UpdatePinHash(ctx context.Context, id, pinHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.TransactionPinHash = pinHash
	return nil
}

func (m *memAccounts) ListIDs(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.byID))
	for id := range m.byID {
		ids = append(ids, id)
	}
	return ids, nil
}

type memSettles struct {
	mu    sync.Mutex
	byRef map[string]*domain.PendingSettlement
}

func newMemSettles() *memSettles {
	return &memSettles{byRef: make(map[string]*domain.PendingSettlement)}
}

func (m *memSettles) Create(ctx context.Context, s *domain.PendingSettlement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byRef[s.Reference]; ok {
		return domain.ErrConflict.WithDetail("reference", s.Reference)
	}
	cp := *s
	cp.CreatedAt = time.Now().UTC()
	m.byRef[s.Reference] = &cp
	return nil
}

func (m *memSettles) GetByReference(ctx context.Context, reference string) (*domain.PendingSettlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byRef[reference]
	if !ok {
		return nil, domain.ErrSettlementNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSettles) MarkFinal(ctx context.Context, reference string, status domain.SettlementStatus, vendorRef string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byRef[reference]
	if !ok || s.Status != domain.SettlementStatusPending {
		return false, nil
	}
	s.Status = status
	if vendorRef != "" {
		s.VendorReference = vendorRef
	}
	now := time.Now().UTC()
	s.SettledAt = &now
	return true, nil
}

func (m *memSettles) ListStalePending(ctx context.Context, olderThanMinutes, limit int) ([]domain.PendingSettlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().UTC().Add(-time.Duration(olderThanMinutes) * time.Minute)
	var out []domain.PendingSettlement
	for _, s := range m.byRef {
		if s.Status == domain.SettlementStatusPending && !s.CreatedAt.After(cutoff) {
			out = append(out, *s)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// age rewinds a staged settlement's creation time so it shows up as stale.
func (m *memSettles) age(reference string, by time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.byRef[reference]; ok {
		s.CreatedAt = s.CreatedAt.Add(-by)
	}
}

// fakeWallet scripts the vendor wallet product per call.
type fakeWallet struct {
	transferOutcome *ports.Outcome
	transferErr     error
	statusOutcome   *ports.Outcome
	statusErr       error
	transferCalls   int
	statusCalls     int
	lastTransfer    ports.ExternalTransfer
}

func (f *fakeWallet) AccountEnquiry(ctx context.Context) (*ports.PoolAccount, error) {
	return &ports.PoolAccount{AccountNumber: "1000000001"}, nil
}

func (f *fakeWallet) Banks(ctx context.Context) ([]ports.Bank, error) {
	return []ports.Bank{{Code: "058", Name: "GTBank"}}, nil
}

func (f *fakeWallet) ValidateRecipient(ctx context.Context, accountNumber, bankCode string) (*ports.Recipient, error) {
	return &ports.Recipient{Name: "ADAKU EZE", AccountNumber: accountNumber, BankCode: bankCode}, nil
}

func (f *fakeWallet) Transfer(ctx context.Context, req ports.ExternalTransfer) (*ports.Outcome, error) {
	f.transferCalls++
	f.lastTransfer = req
	return f.transferOutcome, f.transferErr
}

func (f *fakeWallet) TransferStatus(ctx context.Context, reference string) (*ports.Outcome, error) {
	f.statusCalls++
	return f.statusOutcome, f.statusErr
}

// fakeCardGateway scripts the vendor card product.
type fakeCardGateway struct {
	initiateOutcome  *ports.Outcome
	initiateErr      error
	authorizeOutcome *ports.Outcome
	authorizeErr     error
	statusOutcome    *ports.Outcome
	statusErr        error
	issuedCard       *ports.IssuedCard
	issueOutcome     *ports.Outcome
	issueErr         error
	blockErr         error
	blockCalls       int
	issueCalls       int
}

func (f *fakeCardGateway) InitiateFunding(ctx context.Context, req ports.CardFundingInitiation) (*ports.Outcome, error) {
	return f.initiateOutcome, f.initiateErr
}

func (f *fakeCardGateway) AuthorizeFunding(ctx context.Context, req ports.CardFundingAuth) (*ports.Outcome, error) {
	return f.authorizeOutcome, f.authorizeErr
}

func (f *fakeCardGateway) FundingStatus(ctx context.Context, reference string) (*ports.Outcome, error) {
	return f.statusOutcome, f.statusErr
}

func (f *fakeCardGateway) IssueCard(ctx context.Context, req ports.CardIssueRequest) (*ports.IssuedCard, *ports.Outcome, error) {
	f.issueCalls++
	return f.issuedCard, f.issueOutcome, f.issueErr
}

func (f *fakeCardGateway) SetCardBlocked(ctx context.Context, vendorCardID string, blocked bool) error {
	f.blockCalls++
	return f.blockErr
}

// fakeBills scripts the vendor bills product.
type fakeBills struct {
	payOutcome    *ports.Outcome
	payErr        error
	statusOutcome *ports.Outcome
	statusErr     error
	payCalls      int
}

func (f *fakeBills) Providers(ctx context.Context) ([]ports.BillProvider, error) {
	return []ports.BillProvider{{ID: "1", Name: "IKEDC"}}, nil
}

func (f *fakeBills) Services(ctx context.Context, providerID string) ([]ports.BillService, error) {
	return []ports.BillService{{ID: "10", Name: "Prepaid"}}, nil
}

func (f *fakeBills) ValidateCustomer(ctx context.Context, providerID, serviceID, customerID string) (string, error) {
	return "ADAKU EZE", nil
}

func (f *fakeBills) Pay(ctx context.Context, req ports.BillPayment) (*ports.Outcome, error) {
	f.payCalls++
	return f.payOutcome, f.payErr
}

func (f *fakeBills) PaymentStatus(ctx context.Context, reference string) (*ports.Outcome, error) {
	return f.statusOutcome, f.statusErr
}

type memCards struct {
	mu   sync.Mutex
	byID map[string]*domain.VirtualCard
}

func newMemCards() *memCards {
	return &memCards{byID: make(map[string]*domain.VirtualCard)}
}

func (m *memCards) Create(ctx context.Context, c *domain.VirtualCard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.byID[c.ID] = &cp
	return nil
}

func (m *memCards) GetByID(ctx context.Context, id string) (*domain.VirtualCard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCards) GetByVendorCardID(ctx context.Context, vendorCardID string) (*domain.VirtualCard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.byID {
		if c.VendorCardID == vendorCardID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memCards) GetByReference(ctx context.Context, reference string) (*domain.VirtualCard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.byID {
		if c.Reference == reference {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memCards) ListByUser(ctx context.Context, userID string) ([]domain.VirtualCard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.VirtualCard
	for _, c := range m.byID {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memCards) UpdateStatus(ctx context.Context, id string, status domain.CardStatus, vendorCardID, maskedPAN string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.Status = status
	if vendorCardID != "" {
		c.VendorCardID = vendorCardID
	}
	if maskedPAN != "" {
		c.MaskedPAN = maskedPAN
	}
	return nil
}

type memLoans struct {
	mu   sync.Mutex
	byID map[string]*domain.Loan
}

func newMemLoans() *memLoans {
	return &memLoans{byID: make(map[string]*domain.Loan)}
}

func (m *memLoans) Create(ctx context.Context, l *domain.Loan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Reference == l.Reference {
			return domain.ErrConflict.WithDetail("reference", l.Reference)
		}
	}
	cp := *l
	m.byID[l.ID] = &cp
	return nil
}

func (m *memLoans) GetByID(ctx context.Context, id string) (*domain.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *memLoans) ListByUser(ctx context.Context, userID string) ([]domain.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Loan
	for _, l := range m.byID {
		if l.UserID == userID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (m *memLoans) Update(ctx context.Context, l *domain.Loan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.byID[l.ID]
	if !ok {
		return domain.ErrNotFound
	}
	*stored = *l
	return nil
}

type memPayroll struct {
	mu        sync.Mutex
	batches   map[string]*domain.PayrollBatch
	employees map[string]*domain.PayrollEmployee
}

func newMemPayroll() *memPayroll {
	return &memPayroll{
		batches:   make(map[string]*domain.PayrollBatch),
		employees: make(map[string]*domain.PayrollEmployee),
	}
}

func (m *memPayroll) CreateBatch(ctx context.Context, b *domain.PayrollBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	m.batches[b.ID] = &cp
	return nil
}

func (m *memPayroll) GetBatch(ctx context.Context, id string) (*domain.PayrollBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memPayroll) ListBatches(ctx context.Context, ownerID string) ([]domain.PayrollBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.PayrollBatch
	for _, b := range m.batches {
		if b.OwnerID == ownerID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *memPayroll) UpdateBatchStatus(ctx context.Context, id string, status domain.PayrollStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[id]
	if !ok {
		return domain.ErrNotFound
	}
	b.Status = status
	return nil
}

func (m *memPayroll) AddEmployee(ctx context.Context, e *domain.PayrollEmployee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.employees[e.ID] = &cp
	return nil
}

func (m *memPayroll) ListEmployees(ctx context.Context, batchID string) ([]domain.PayrollEmployee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.PayrollEmployee
	for _, e := range m.employees {
		if e.BatchID == batchID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *memPayroll) UpdateEmployeeStatus(ctx context.Context, id string, status domain.EmployeeStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.employees[id]
	if !ok {
		return domain.ErrNotFound
	}
	e.Status = status
	return nil
}

type memInvoices struct {
	mu   sync.Mutex
	byID map[string]*domain.Invoice
}

func newMemInvoices() *memInvoices {
	return &memInvoices{byID: make(map[string]*domain.Invoice)}
}

func (m *memInvoices) Create(ctx context.Context, inv *domain.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *inv
	m.byID[inv.ID] = &cp
	return nil
}

func (m *memInvoices) GetByID(ctx context.Context, id string) (*domain.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (m *memInvoices) ListByIssuer(ctx context.Context, issuerID string) ([]domain.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Invoice
	for _, inv := range m.byID {
		if inv.IssuerID == issuerID {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (m *memInvoices) MarkPaid(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.byID[id]
	if !ok || inv.Status != domain.InvoiceStatusUnpaid {
		return false, nil
	}
	inv.Status = domain.InvoiceStatusPaid
	now := time.Now().UTC()
	inv.PaidAt = &now
	return true, nil
}

type memNotifications struct {
	mu   sync.Mutex
	rows []domain.Notification
}

func (m *memNotifications) Create(ctx context.Context, n *domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, *n)
	return nil
}

func (m *memNotifications) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Notification
	for _, n := range m.rows {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memNotifications) MarkRead(ctx context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == id && m.rows[i].UserID == userID {
			m.rows[i].Read = true
			return nil
		}
	}
	return domain.ErrNotFound
}

type memSecurity struct {
	mu     sync.Mutex
	byUser map[string]*domain.SecurityQuestions
}

func newMemSecurity() *memSecurity {
	return &memSecurity{byUser: make(map[string]*domain.SecurityQuestions)}
}

func (m *memSecurity) Upsert(ctx context.Context, q *domain.SecurityQuestions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *q
	m.byUser[q.UserID] = &cp
	return nil
}

func (m *memSecurity) GetByUser(ctx context.Context, userID string) (*domain.SecurityQuestions, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.byUser[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *q
	return &cp, nil
}

type memSubscriptions struct {
	mu   sync.Mutex
	byID map[string]*domain.Subscription
}

func newMemSubscriptions() *memSubscriptions {
	return &memSubscriptions{byID: make(map[string]*domain.Subscription)}
}

func (m *memSubscriptions) Create(ctx context.Context, sub *domain.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *sub
	m.byID[sub.ID] = &cp
	return nil
}

func (m *memSubscriptions) GetByID(ctx context.Context, id string) (*domain.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

func (m *memSubscriptions) ListByUser(ctx context.Context, userID string) ([]domain.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Subscription
	for _, sub := range m.byID {
		if sub.UserID == userID {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (m *memSubscriptions) UpdateStatus(ctx context.Context, id string, status domain.SubscriptionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	sub.Status = status
	return nil
}

func (m *memSubscriptions) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

type memMandates struct {
	mu   sync.Mutex
	byID map[string]*domain.Mandate
}

func newMemMandates() *memMandates {
	return &memMandates{byID: make(map[string]*domain.Mandate)}
}

func (m *memMandates) Create(ctx context.Context, mandate *domain.Mandate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Reference == mandate.Reference {
			return domain.ErrConflict.WithDetail("reference", mandate.Reference)
		}
	}
	cp := *mandate
	m.byID[mandate.ID] = &cp
	return nil
}

func (m *memMandates) GetByID(ctx context.Context, id string) (*domain.Mandate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mandate, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *mandate
	return &cp, nil
}

func (m *memMandates) ListByUser(ctx context.Context, userID string) ([]domain.Mandate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Mandate
	for _, mandate := range m.byID {
		if mandate.UserID == userID {
			out = append(out, *mandate)
		}
	}
	return out, nil
}

func (m *memMandates) MarkCancelled(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mandate, ok := m.byID[id]
	if !ok || mandate.Status != domain.MandateStatusActive {
		return false, nil
	}
	mandate.Status = domain.MandateStatusCancelled
	now := time.Now().UTC()
	mandate.CancelledAt = &now
	return true, nil
}

// fakeMandateGateway scripts the vendor mandate product.
type fakeMandateGateway struct {
	vendorID    string
	createErr   error
	cancelErr   error
	createCalls int
	cancelCalls int
	lastCancel  string
}

func (f *fakeMandateGateway) CreateMandate(ctx context.Context, req ports.MandateRequest) (string, error) {
	f.createCalls++
	return f.vendorID, f.createErr
}

func (f *fakeMandateGateway) MandateStatus(ctx context.Context, vendorMandateID string) (string, error) {
	return "active", nil
}

func (f *fakeMandateGateway) CancelMandate(ctx context.Context, vendorMandateID, reason string) error {
	f.cancelCalls++
	f.lastCancel = vendorMandateID
	return f.cancelErr
}

// fakePayments scripts the hosted-checkout gateway.
type fakePayments struct {
	initiation    *ports.PaymentInitiation
	initErr       error
	verifyOutcome *ports.Outcome
	verifyErr     error
	initCalls     int
	verifyCalls   int
}

func (f *fakePayments) Initialize(ctx context.Context, req ports.PaymentInitializeRequest) (*ports.PaymentInitiation, error) {
	f.initCalls++
	return f.initiation, f.initErr
}

func (f *fakePayments) Verify(ctx context.Context, reference string) (*ports.Outcome, error) {
	f.verifyCalls++
	return f.verifyOutcome, f.verifyErr
}

// capturePublisher records published events for assertion.
type capturePublisher struct {
	mu     sync.Mutex
	keys   []string
	failed bool
}

func (p *capturePublisher) Publish(ctx context.Context, routingKey string, body interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failed {
		return domain.ErrInternalError
	}
	p.keys = append(p.keys, routingKey)
	return nil
}

func (p *capturePublisher) Close() {}

// memLimiter is a fixed-window counter without expiry, enough for lockout
// tests within a single process.
type memLimiter struct {
	mu     sync.Mutex
	counts map[string]int
}

func newMemLimiter() *memLimiter {
	return &memLimiter{counts: make(map[string]int)}
}

func (m *memLimiter) Consume(ctx context.Context, scope, subject string, limit, windowSeconds int) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := scope + ":" + subject
	m.counts[key]++
	return m.counts[key], windowSeconds, nil
}

func (m *memLimiter) Reset(ctx context.Context, scope, subject string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.counts, scope+":"+subject)
	return nil
}

// testEnv wires the full service graph over in-memory stores.
type testEnv struct {
	store    *memledger.Store
	engine   *ledger.Engine
	accounts *memAccounts
	settles  *memSettles
	wallet   *fakeWallet
	cardGW   *fakeCardGateway
	bills    *fakeBills
	cards    *memCards
	loans    *memLoans
	payroll  *memPayroll
	invoices *memInvoices
	security *memSecurity
	subs     *memSubscriptions
	mandates *memMandates
	mandGW   *fakeMandateGateway
	payments *fakePayments
	notes    *memNotifications
	notifier *NotificationService
	limiter  *memLimiter
	svc      *AccountService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	store := memledger.New()
	engine := ledger.NewEngine(store, nil, logger)
	accounts := newMemAccounts(store)
	limiter := newMemLimiter()
	tokens := auth.NewTokenIssuer("test-secret", 0)
	notes := &memNotifications{}
	return &testEnv{
		store:    store,
		engine:   engine,
		accounts: accounts,
		settles:  newMemSettles(),
		wallet:   &fakeWallet{},
		cardGW:   &fakeCardGateway{},
		bills:    &fakeBills{},
		cards:    newMemCards(),
		loans:    newMemLoans(),
		payroll:  newMemPayroll(),
		invoices: newMemInvoices(),
		security: newMemSecurity(),
		subs:     newMemSubscriptions(),
		mandates: newMemMandates(),
		mandGW:   &fakeMandateGateway{vendorID: "vmandate-1"},
		payments: &fakePayments{},
		notes:    notes,
		notifier: NewNotificationService(notes, &capturePublisher{}, logger),
		limiter:  limiter,
		svc:      NewAccountService(accounts, store, tokens, limiter, logger),
	}
}

const testPIN = "1234"

// seedAccount creates an active funded account with PIN 1234.
func (e *testEnv) seedAccount(t *testing.T, tier domain.KYCTier, balance int64) *domain.Account {
	t.Helper()
	pinHash, err := auth.HashSecret(testPIN)
	if err != nil {
		t.Fatalf("hashing pin: %v", err)
	}
	id := uuid.NewString()
	a := &domain.Account{
		ID:                 id,
		Phone:              "+234801" + id[:7],
		FullName:           "Test User " + id[:4],
		AccountNumber:      id[:10],
		TransactionPinHash: pinHash,
		Status:             domain.AccountStatusActive,
		KYCTier:            tier,
		Balance:            balance,
	}
	e.accounts.put(a)
	e.store.SetBalance(a.ID, balance)
	return a
}

func (e *testEnv) transferService() *TransferService {
	return NewTransferService(e.engine, e.accounts, e.store, e.settles, e.wallet, e.svc, zap.NewNop())
}

func (e *testEnv) fundingService() *FundingService {
	return NewFundingService(e.engine, e.settles, e.cardGW, e.payments, e.notifier, zap.NewNop())
}

func (e *testEnv) cardService() *CardService {
	return NewCardService(e.engine, e.cards, e.settles, e.cardGW, e.svc, e.notifier, zap.NewNop())
}

func (e *testEnv) billsService() *BillsService {
	return NewBillsService(e.engine, e.accounts, e.settles, e.bills, e.svc, zap.NewNop())
}

func (e *testEnv) loanService() *LoanService {
	return NewLoanService(e.engine, e.loans, e.accounts, e.svc, zap.NewNop())
}

func (e *testEnv) payrollService() *PayrollService {
	return NewPayrollService(e.engine, e.payroll, e.accounts, e.svc, zap.NewNop())
}

func (e *testEnv) invoiceService() *InvoiceService {
	return NewInvoiceService(e.engine, e.invoices, e.accounts, e.transferService(), zap.NewNop())
}

func (e *testEnv) securityService() *SecurityService {
	return NewSecurityService(e.security, e.limiter, zap.NewNop())
}

func (e *testEnv) subscriptionService() *SubscriptionService {
	return NewSubscriptionService(e.subs, zap.NewNop())
}

func (e *testEnv) mandateService() *MandateService {
	return NewMandateService(e.mandates, e.mandGW, zap.NewNop())
}
