package vfd

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovomonie/banking-service/internal/domain/ports"
)

func setupWalletTest(t *testing.T, handler http.HandlerFunc) (*WalletAdapter, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(Config{
		WalletBaseURL: server.URL,
		StaticToken:   "test-token",
	}, zap.NewNop())

	return NewWalletAdapter(client), server
}

func TestWalletAdapter_Transfer_Success(t *testing.T) {
	adapter, _ := setupWalletTest(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-token", r.Header.Get("AccessToken"))

		switch {
		case strings.HasSuffix(r.URL.Path, "/account/enquiry"):
			io.WriteString(w, `{"status":"00","message":"ok","data":{
				"accountNo":"1001234567","accountBalance":"50000.00",
				"accountId":"acct-1","clientId":"client-1"}}`)

		case strings.HasSuffix(r.URL.Path, "/transfer"):
			var payload map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "1001234567", payload["fromAccount"])
			assert.Equal(t, "0123456789", payload["toAccount"])
			assert.Equal(t, "2500.50", payload["amount"])
			assert.Equal(t, "inter", payload["transferType"])
			assert.Equal(t, "ext-ref-1", payload["reference"])

			io.WriteString(w, `{"status":"00","message":"transfer successful","data":{
				"txnId":"txn-999","sessionId":"sess-42"}}`)

		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	out, err := adapter.Transfer(context.Background(), ports.ExternalTransfer{
		RecipientAccount: "0123456789",
		RecipientBank:    "058",
		RecipientName:    "Ada Obi",
		Narration:        "rent",
		Reference:        "ext-ref-1",
		Amount:           250_050,
	})
	require.NoError(t, err)
	assert.True(t, out.Succeeded())
	assert.Equal(t, "txn-999", out.VendorReference)
	assert.Equal(t, "sess-42", out.SessionID)
}

func TestWalletAdapter_Transfer_PendingCode(t *testing.T) {
	adapter, _ := setupWalletTest(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/account/enquiry") {
			io.WriteString(w, `{"status":"00","data":{"accountNo":"1001234567",
				"accountBalance":"50000.00","accountId":"a","clientId":"c"}}`)
			return
		}
		io.WriteString(w, `{"status":"09","message":"processing"}`)
	})

	out, err := adapter.Transfer(context.Background(), ports.ExternalTransfer{
		RecipientAccount: "0123456789",
		RecipientBank:    "058",
		Reference:        "ext-ref-2",
		Amount:           10_000,
	})
	require.NoError(t, err)
	assert.True(t, out.Pending())
	assert.Equal(t, "09", out.Code)
}

func TestWalletAdapter_ValidateRecipient_IntraRail(t *testing.T) {
	adapter, _ := setupWalletTest(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "intra", r.URL.Query().Get("transfer_type"))
		assert.Equal(t, "0123456789", r.URL.Query().Get("accountNo"))
		io.WriteString(w, `{"status":"00","data":{"name":"Ada Obi"}}`)
	})

	rec, err := adapter.ValidateRecipient(context.Background(), "0123456789", vfdBankCode)
	require.NoError(t, err)
	assert.Equal(t, "Ada Obi", rec.Name)
}

func TestWalletAdapter_ValidateRecipient_NotFound(t *testing.T) {
	adapter, _ := setupWalletTest(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status":"99","message":"account not found"}`)
	})

	_, err := adapter.ValidateRecipient(context.Background(), "0000000000", "058")
	assert.Error(t, err)
}

func TestWalletAdapter_TransferStatus_InnerStatusWins(t *testing.T) {
	adapter, _ := setupWalletTest(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ext-ref-3", r.URL.Query().Get("reference"))
		io.WriteString(w, `{"status":"00","data":{"transactionStatus":"09"}}`)
	})

	out, err := adapter.TransferStatus(context.Background(), "ext-ref-3")
	require.NoError(t, err)
	assert.True(t, out.Pending())
}

func TestKobosToNaira(t *testing.T) {
	assert.Equal(t, "2500.50", kobosToNaira(250_050))
	assert.Equal(t, "0.01", kobosToNaira(1))
	assert.Equal(t, "100.00", kobosToNaira(10_000))
}
