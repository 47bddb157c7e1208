package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovomonie/banking-service/internal/domain"
)

func validRegistration() RegisterParams {
	return RegisterParams{
		Phone:    "+2348012345678",
		Email:    "adaku@example.com",
		FullName: "Adaku Eze",
		Password: "correct-horse",
		PIN:      "1234",
	}
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	session, err := env.svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "8012345678", session.Account.AccountNumber, "account number is the last ten phone digits")
	assert.Equal(t, domain.KYCTier1, session.Account.KYCTier)
	assert.Equal(t, domain.AccountStatusActive, session.Account.Status)
	// Secrets never stored in the clear.
	assert.NotEqual(t, "correct-horse", session.Account.PasswordHash)
	assert.NotEqual(t, "1234", session.Account.TransactionPinHash)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		mutate func(*RegisterParams)
	}{
		{"bad phone", func(p *RegisterParams) { p.Phone = "0801" }},
		{"bad email", func(p *RegisterParams) { p.Email = "not-an-email" }},
		{"missing name", func(p *RegisterParams) { p.FullName = "  " }},
		{"short password", func(p *RegisterParams) { p.Password = "short" }},
		{"alpha pin", func(p *RegisterParams) { p.PIN = "abcd" }},
		{"long pin", func(p *RegisterParams) { p.PIN = "12345678" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validRegistration()
			tt.mutate(&p)
			_, err := env.svc.Register(context.Background(), p)
			assert.True(t, domain.IsValidationError(err), "got %v", err)
		})
	}
}

func TestRegisterDuplicatePhone(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)
	_, err = env.svc.Register(context.Background(), validRegistration())
	assert.Equal(t, domain.ErrorCodeAccountExists, domain.GetErrorCode(err))
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	p := validRegistration()
	_, err := env.svc.Register(context.Background(), p)
	require.NoError(t, err)

	session, err := env.svc.Login(context.Background(), p.Phone, p.Password)
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)

	// Wrong password and unknown phone are indistinguishable to the caller.
	_, err = env.svc.Login(context.Background(), p.Phone, "wrong-password")
	badPass := domain.GetErrorCode(err)
	_, err = env.svc.Login(context.Background(), "+2348099999999", p.Password)
	assert.Equal(t, badPass, domain.GetErrorCode(err))
}

func TestVerifyPINLockout(t *testing.T) {
	env := newTestEnv(t)
	account := env.seedAccount(t, domain.KYCTier1, 0)
	ctx := context.Background()

	for i := 0; i < pinAttemptLimit; i++ {
		err := env.svc.VerifyPIN(ctx, account.ID, "0000")
		assert.Equal(t, domain.ErrorCodePinInvalid, domain.GetErrorCode(err))
	}

	// Attempt six is refused before the hash is even checked, correct PIN or not.
	err := env.svc.VerifyPIN(ctx, account.ID, testPIN)
	assert.Equal(t, domain.ErrorCodePinLocked, domain.GetErrorCode(err))
}

func TestVerifyPINSuccessResetsCounter(t *testing.T) {
	env := newTestEnv(t)
	account := env.seedAccount(t, domain.KYCTier1, 0)
	ctx := context.Background()

	for i := 0; i < pinAttemptLimit-1; i++ {
		_ = env.svc.VerifyPIN(ctx, account.ID, "0000")
	}
	require.NoError(t, env.svc.VerifyPIN(ctx, account.ID, testPIN))

	// The window restarts: earlier misses no longer count.
	err := env.svc.VerifyPIN(ctx, account.ID, "0000")
	assert.Equal(t, domain.ErrorCodePinInvalid, domain.GetErrorCode(err))
}

func TestChangePIN(t *testing.T) {
	env := newTestEnv(t)
	account := env.seedAccount(t, domain.KYCTier1, 0)
	ctx := context.Background()

	require.NoError(t, env.svc.ChangePIN(ctx, account.ID, testPIN, "5678"))
	assert.NoError(t, env.svc.VerifyPIN(ctx, account.ID, "5678"))
	err := env.svc.VerifyPIN(ctx, account.ID, testPIN)
	assert.Equal(t, domain.ErrorCodePinInvalid, domain.GetErrorCode(err))
}

func TestUpgradeKYC(t *testing.T) {
	env := newTestEnv(t)
	account := env.seedAccount(t, domain.KYCTier1, 0)
	ctx := context.Background()

	// Tier 2 needs a verified BVN, submitted in the same request.
	upgraded, err := env.svc.UpgradeKYC(ctx, account.ID, domain.KYCTier2, true, false)
	require.NoError(t, err)
	assert.Equal(t, domain.KYCTier2, upgraded.KYCTier)

	// Tier 3 additionally needs the selfie.
	_, err = env.svc.UpgradeKYC(ctx, account.ID, domain.KYCTier3, false, false)
	assert.True(t, domain.IsValidationError(err))

	upgraded, err = env.svc.UpgradeKYC(ctx, account.ID, domain.KYCTier3, false, true)
	require.NoError(t, err)
	assert.Equal(t, domain.KYCTier3, upgraded.KYCTier)
}

func TestUpgradeKYCCannotDowngrade(t *testing.T) {
	env := newTestEnv(t)
	account := env.seedAccount(t, domain.KYCTier2, 0)

	_, err := env.svc.UpgradeKYC(context.Background(), account.ID, domain.KYCTier1, true, true)
	assert.True(t, domain.IsValidationError(err))
}
