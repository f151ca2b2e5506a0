package plaid

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlink/ledgerlink-backend/internal/domain"
)

func newTestAdapter(t *testing.T, handler http.Handler) *Adapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientConfig{
		ClientID: "test-client-id",
		Secret:   "test-secret",
		BaseURL:  server.URL,
	})
	require.NoError(t, err)
	return NewAdapter(client, "TestApp")
}

func TestAdapter_Name(t *testing.T) {
	assert.Equal(t, "plaid", (&Adapter{}).Name())
}

func TestCreateLinkToken(t *testing.T) {
	userID := uuid.New()
	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/link/token/create", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-client-id", body["client_id"], "credentials travel in the request body")
		assert.Equal(t, "TestApp", body["client_name"])
		assert.Equal(t, userID.String(), body["user"].(map[string]any)["client_user_id"])

		json.NewEncoder(w).Encode(map[string]string{"link_token": "link-sandbox-123"})
	}))

	token, err := adapter.CreateLinkToken(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "link-sandbox-123", token)
}

func TestExchangePublicToken(t *testing.T) {
	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/item/public_token/exchange", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{
			"access_token": "access-sandbox-456",
			"item_id":      "item-789",
		})
	}))

	creds, err := adapter.ExchangePublicToken(context.Background(), "public-sandbox-123")
	require.NoError(t, err)
	assert.Equal(t, "access-sandbox-456", creds.AccessToken)
	assert.Equal(t, "item-789", creds.ItemID)
}

func TestGetAccounts_Mapping(t *testing.T) {
	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/accounts/get", r.URL.Path)
		fmt.Fprint(w, `{
			"accounts": [
				{
					"account_id": "acc-1",
					"name": "Everyday Checking",
					"type": "depository",
					"subtype": "Checking",
					"balances": {"current": 1203.47, "iso_currency_code": "USD"}
				},
				{
					"account_id": "acc-2",
					"name": "",
					"official_name": "Platinum Rewards Card",
					"type": "credit",
					"subtype": "credit card",
					"balances": {"current": -512.10},
					"closed_at": "2026-01-05"
				},
				{
					"account_id": "acc-3",
					"name": "Mystery",
					"type": "cryptocurrency",
					"subtype": "wallet",
					"balances": {}
				}
			]
		}`)
	}))

	accounts, err := adapter.GetAccounts(context.Background(), domain.ProviderCredentials{AccessToken: "tok"})
	require.NoError(t, err)
	require.Len(t, accounts, 3)

	assert.Equal(t, "acc-1", accounts[0].ID)
	assert.Equal(t, domain.AccountTypeDepository, accounts[0].Type)
	assert.Equal(t, "checking", accounts[0].Subtype)
	assert.Equal(t, "1203.47", accounts[0].CurrentBalance.StringFixed(2), "balances must survive the wire without float drift")
	assert.Equal(t, "USD", accounts[0].Currency)
	assert.False(t, accounts[0].Closed)

	assert.Equal(t, "Platinum Rewards Card", accounts[1].Name, "official_name fills in a missing name")
	assert.Equal(t, domain.AccountTypeCredit, accounts[1].Type)
	assert.True(t, accounts[1].Closed)
	assert.Equal(t, "USD", accounts[1].Currency, "missing currency defaults to USD")

	assert.Equal(t, domain.AccountTypeOther, accounts[2].Type, "unknown account types map to other")
	assert.True(t, accounts[2].CurrentBalance.IsZero())
}

func TestGetTransactions_SignConventionAndMapping(t *testing.T) {
	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "2026-07-01", body["start_date"])
		assert.Equal(t, "2026-08-01", body["end_date"])

		fmt.Fprint(w, `{
			"total_transactions": 2,
			"transactions": [
				{
					"transaction_id": "tx-1",
					"account_id": "acc-1",
					"amount": 54.12,
					"date": "2026-07-14",
					"name": "GROCERY OUTLET",
					"category": ["Shops", "Supermarkets and Groceries"],
					"pending": false
				},
				{
					"transaction_id": "tx-2",
					"account_id": "acc-1",
					"amount": -1500.00,
					"date": "2026-07-15",
					"name": "PAYROLL",
					"pending": true
				}
			]
		}`)
	}))

	start := time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	transactions, err := adapter.GetTransactions(context.Background(), domain.ProviderCredentials{AccessToken: "tok"}, start, end)
	require.NoError(t, err)
	require.Len(t, transactions, 2)

	// Plaid reports outflows positive; canonical amounts are negated
	assert.Equal(t, "-54.12", transactions[0].Amount.StringFixed(2))
	assert.Equal(t, "Supermarkets and Groceries", transactions[0].Category, "the most specific category label wins")
	assert.Equal(t, time.Date(2026, time.July, 14, 0, 0, 0, 0, time.UTC), transactions[0].Date)

	assert.Equal(t, "1500.00", transactions[1].Amount.StringFixed(2), "inflows become positive")
	assert.True(t, transactions[1].Pending)
	assert.Empty(t, transactions[1].Category)
}

func TestGetTransactions_Pagination(t *testing.T) {
	const total = 3
	var offsets []int

	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Options struct {
				Count  int `json:"count"`
				Offset int `json:"offset"`
			} `json:"options"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, transactionsPageSize, body.Options.Count)
		offsets = append(offsets, body.Options.Offset)

		// Serve two pages: [tx-0, tx-1] then [tx-2]
		var page []map[string]any
		for i := body.Options.Offset; i < total && len(page) < 2; i++ {
			page = append(page, map[string]any{
				"transaction_id": fmt.Sprintf("tx-%d", i),
				"account_id":     "acc-1",
				"amount":         json.Number("10.00"),
				"date":           "2026-07-01",
				"name":           "COFFEE",
			})
		}
		json.NewEncoder(w).Encode(map[string]any{
			"total_transactions": total,
			"transactions":       page,
		})
	}))

	start := time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC)
	transactions, err := adapter.GetTransactions(context.Background(), domain.ProviderCredentials{AccessToken: "tok"}, start, start.AddDate(0, 1, 0))
	require.NoError(t, err)

	require.Len(t, transactions, total)
	assert.Equal(t, []int{0, 2}, offsets)
	assert.Equal(t, "tx-2", transactions[2].ID)
}

func TestGetInstitution(t *testing.T) {
	adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/item/get":
			fmt.Fprint(w, `{"item": {"item_id": "item-1", "institution_id": "ins_42"}}`)
		case "/institutions/get_by_id":
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "ins_42", body["institution_id"])
			fmt.Fprint(w, `{"institution": {"name": "First Example Bank", "logo": "https://cdn.example.com/logo.png", "primary_color": "#003366"}}`)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))

	info, err := adapter.GetInstitution(context.Background(), domain.ProviderCredentials{AccessToken: "tok"})
	require.NoError(t, err)
	assert.Equal(t, "First Example Bank", info.Name)
	assert.Equal(t, "https://cdn.example.com/logo.png", info.LogoURL)
	assert.Equal(t, "#003366", info.BrandColor)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		expected   error
	}{
		{
			"login required",
			http.StatusBadRequest,
			`{"error_type": "ITEM_ERROR", "error_code": "ITEM_LOGIN_REQUIRED", "error_message": "the login details of this item have changed"}`,
			domain.ErrCredentialsExpired,
		},
		{
			"invalid public token",
			http.StatusBadRequest,
			`{"error_type": "INVALID_INPUT", "error_code": "INVALID_PUBLIC_TOKEN", "error_message": "could not find matching public token"}`,
			domain.ErrInvalidToken,
		},
		{
			"bad api keys",
			http.StatusBadRequest,
			`{"error_type": "INVALID_INPUT", "error_code": "INVALID_API_KEYS", "error_message": "invalid client_id or secret provided"}`,
			domain.ErrProviderAuth,
		},
		{
			"rate limited",
			http.StatusTooManyRequests,
			`{"error_type": "RATE_LIMIT_EXCEEDED", "error_code": "RATE_LIMIT_EXCEEDED", "error_message": "rate limit exceeded"}`,
			domain.ErrProviderUnavailable,
		},
		{
			"opaque server error",
			http.StatusInternalServerError,
			`not json at all`,
			domain.ErrProviderUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				fmt.Fprint(w, tt.body)
			}))

			_, err := adapter.GetAccounts(context.Background(), domain.ProviderCredentials{AccessToken: "tok"})
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := NewClient(ClientConfig{ClientID: "id-only"})
	assert.ErrorIs(t, err, domain.ErrProviderAuth)
}
