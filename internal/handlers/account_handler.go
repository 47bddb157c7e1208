package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ovomonie/banking-service/internal/domain"
	"github.com/ovomonie/banking-service/internal/services"
)

// AccountHandlers serves signup, login and account self-service endpoints.
type AccountHandlers struct {
	accounts *services.AccountService
	logger   *zap.Logger
}

func NewAccountHandlers(accounts *services.AccountService, logger *zap.Logger) *AccountHandlers {
	return &AccountHandlers{accounts: accounts, logger: logger}
}

type registerRequest struct {
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
	PIN      string `json:"pin"`
}

type sessionResponse struct {
	Token   string          `json:"token"`
	Account *domain.Account `json:"account"`
}

func (h *AccountHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	session, err := h.accounts.Register(r.Context(), services.RegisterParams{
		Phone:    req.Phone,
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
		PIN:      req.PIN,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Token: session.Token, Account: session.Account})
}

type loginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

func (h *AccountHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	session, err := h.accounts.Login(r.Context(), req.Phone, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Token: session.Token, Account: session.Account})
}

func (h *AccountHandlers) Me(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	account, err := h.accounts.Get(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (h *AccountHandlers) Balance(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	balance, err := h.accounts.Balance(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"balance": balance})
}

func (h *AccountHandlers) History(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	limit, offset := pagination(r)
	entries, err := h.accounts.History(r.Context(), userID, limit, offset)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if entries == nil {
		entries = []domain.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"transactions": entries})
}

type verifyPINRequest struct {
	PIN string `json:"pin"`
}

func (h *AccountHandlers) VerifyPIN(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	var req verifyPINRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.accounts.VerifyPIN(r.Context(), userID, req.PIN); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

type changePINRequest struct {
	CurrentPIN string `json:"current_pin"`
	NewPIN     string `json:"new_pin"`
}

func (h *AccountHandlers) ChangePIN(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	var req changePINRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.accounts.ChangePIN(r.Context(), userID, req.CurrentPIN, req.NewPIN); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "pin changed"})
}

type upgradeKYCRequest struct {
	Tier           int  `json:"tier"`
	BVNVerified    bool `json:"bvn_verified"`
	SelfieVerified bool `json:"selfie_verified"`
}

func (h *AccountHandlers) UpgradeKYC(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	var req upgradeKYCRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	account, err := h.accounts.UpgradeKYC(r.Context(), userID, domain.KYCTier(req.Tier), req.BVNVerified, req.SelfieVerified)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// pagination reads limit/offset query params with sane defaults.
func pagination(r *http.Request) (limit, offset int) {
	limit = 20
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}
