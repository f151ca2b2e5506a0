package plaid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ledgerlink/ledgerlink-backend/internal/domain"
)

// Plaid API endpoints per environment
const (
	sandboxBaseURL    = "https://sandbox.plaid.com"
	productionBaseURL = "https://production.plaid.com"

	defaultTimeout = 30 * time.Second

	// transactionsPageSize is Plaid's maximum page size for /transactions/get
	transactionsPageSize = 500
)

// Client is a minimal JSON-over-HTTPS client for the Plaid endpoints the
// adapter needs. Authentication material is injected into each request body,
// per Plaid convention.
type Client struct {
	httpClient *http.Client
	baseURL    string
	clientID   string
	// secret is SENSITIVE - never logged
	secret string
}

// ClientConfig configures the Plaid client
type ClientConfig struct {
	// Environment is "sandbox" or "production"; anything else defaults to sandbox
	Environment string

	// ClientID is the Plaid client ID
	ClientID string

	// Secret is the Plaid secret. SENSITIVE: never log this value.
	Secret string

	// HTTPClient optionally overrides the HTTP client (used by tests to point
	// at an httptest server via its Transport, or swap timeouts)
	HTTPClient *http.Client

	// BaseURL optionally overrides the environment-derived base URL (tests)
	BaseURL string

	Timeout time.Duration
}

// NewClient creates a new Plaid client
func NewClient(config ClientConfig) (*Client, error) {
	if config.ClientID == "" || config.Secret == "" {
		return nil, fmt.Errorf("plaid client requires client ID and secret: %w", domain.ErrProviderAuth)
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		if strings.EqualFold(config.Environment, "production") {
			baseURL = productionBaseURL
		} else {
			baseURL = sandboxBaseURL
		}
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout == 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		clientID:   config.ClientID,
		secret:     config.Secret,
	}, nil
}

// CreateLinkToken creates a Link token for initializing Plaid Link
func (c *Client) CreateLinkToken(ctx context.Context, clientName, clientUserID string) (*linkTokenCreateResponse, error) {
	body := map[string]any{
		"client_name":   clientName,
		"language":      "en",
		"country_codes": []string{"US"},
		"user":          map[string]string{"client_user_id": clientUserID},
		"products":      []string{"transactions"},
	}
	return doPost[linkTokenCreateResponse](ctx, c, "/link/token/create", body)
}

// ExchangePublicToken exchanges a public token for an access token
func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (*publicTokenExchangeResponse, error) {
	body := map[string]any{"public_token": publicToken}
	return doPost[publicTokenExchangeResponse](ctx, c, "/item/public_token/exchange", body)
}

// GetAccounts fetches the item's accounts with current balances
func (c *Client) GetAccounts(ctx context.Context, accessToken string) (*accountsGetResponse, error) {
	body := map[string]any{"access_token": accessToken}
	return doPost[accountsGetResponse](ctx, c, "/accounts/get", body)
}

// GetTransactions fetches one page of transactions dated within [startDate, endDate]
func (c *Client) GetTransactions(ctx context.Context, accessToken, startDate, endDate string, offset int) (*transactionsGetResponse, error) {
	body := map[string]any{
		"access_token": accessToken,
		"start_date":   startDate,
		"end_date":     endDate,
		"options": map[string]any{
			"count":  transactionsPageSize,
			"offset": offset,
		},
	}
	return doPost[transactionsGetResponse](ctx, c, "/transactions/get", body)
}

// GetItem fetches the item metadata (institution ID)
func (c *Client) GetItem(ctx context.Context, accessToken string) (*itemGetResponse, error) {
	body := map[string]any{"access_token": accessToken}
	return doPost[itemGetResponse](ctx, c, "/item/get", body)
}

// GetInstitution fetches institution display metadata by institution ID
func (c *Client) GetInstitution(ctx context.Context, institutionID string) (*institutionGetResponse, error) {
	body := map[string]any{
		"institution_id": institutionID,
		"country_codes":  []string{"US"},
		"options":        map[string]any{"include_optional_metadata": true},
	}
	return doPost[institutionGetResponse](ctx, c, "/institutions/get_by_id", body)
}

// doPost issues one authenticated POST and decodes the response into T.
// Non-2xx responses are converted into domain error kinds via mapAPIError.
func doPost[T any](ctx context.Context, c *Client, path string, body map[string]any) (*T, error) {
	body["client_id"] = c.clientID
	body["secret"] = c.secret

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("plaid request to %s failed: %w: %v", path, domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", path, domain.ErrProviderUnavailable)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, mapAPIError(resp.StatusCode, respBody)
	}

	var result T
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return &result, nil
}

// mapAPIError converts a Plaid error body into the matching domain error kind
func mapAPIError(statusCode int, body []byte) error {
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.ErrorCode == "" {
		if statusCode >= 500 {
			return fmt.Errorf("plaid returned status %d: %w", statusCode, domain.ErrProviderUnavailable)
		}
		return fmt.Errorf("plaid returned status %d", statusCode)
	}

	switch apiErr.ErrorCode {
	case "ITEM_LOGIN_REQUIRED", "ITEM_LOCKED", "ACCESS_NOT_GRANTED":
		return fmt.Errorf("plaid %s: %s: %w", apiErr.ErrorCode, apiErr.ErrorMessage, domain.ErrCredentialsExpired)
	case "INVALID_PUBLIC_TOKEN", "EXPIRED_PUBLIC_TOKEN", "INVALID_ACCESS_TOKEN":
		return fmt.Errorf("plaid %s: %s: %w", apiErr.ErrorCode, apiErr.ErrorMessage, domain.ErrInvalidToken)
	case "INVALID_API_KEYS", "UNAUTHORIZED":
		return fmt.Errorf("plaid %s: %s: %w", apiErr.ErrorCode, apiErr.ErrorMessage, domain.ErrProviderAuth)
	case "RATE_LIMIT_EXCEEDED", "INTERNAL_SERVER_ERROR", "PLANNED_MAINTENANCE", "INSTITUTION_DOWN", "INSTITUTION_NOT_RESPONDING":
		return fmt.Errorf("plaid %s: %s: %w", apiErr.ErrorCode, apiErr.ErrorMessage, domain.ErrProviderUnavailable)
	}

	if statusCode >= 500 {
		return fmt.Errorf("plaid %s: %s: %w", apiErr.ErrorCode, apiErr.ErrorMessage, domain.ErrProviderUnavailable)
	}
	return fmt.Errorf("plaid %s: %s", apiErr.ErrorCode, apiErr.ErrorMessage)
}
