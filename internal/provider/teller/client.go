package teller

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ledgerlink/ledgerlink-backend/internal/domain"
)

const (
	defaultBaseURL = "https://api.teller.io"
	defaultTimeout = 30 * time.Second
)

// Client is a minimal client for the Teller API. Teller authenticates the
// application with a client certificate (mutual TLS) and each request with
// the connection's access token as the basic-auth username.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// ClientConfig configures the Teller client
type ClientConfig struct {
	// CertificatePEM and PrivateKeyPEM hold the application's Teller client
	// certificate pair. SENSITIVE: never log these values.
	CertificatePEM []byte
	PrivateKeyPEM  []byte

	// HTTPClient optionally overrides the HTTP client (tests); when set, the
	// certificate pair is not required
	HTTPClient *http.Client

	// BaseURL optionally overrides the API base URL (tests)
	BaseURL string

	Timeout time.Duration
}

// NewClient creates a new Teller client with mutual-TLS transport
func NewClient(config ClientConfig) (*Client, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		cert, err := tls.X509KeyPair(config.CertificatePEM, config.PrivateKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("invalid teller client certificate: %w", err)
		}

		timeout := config.Timeout
		if timeout == 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{Certificates: []tls.Certificate{cert}},
			},
		}
	}

	return &Client{httpClient: httpClient, baseURL: baseURL}, nil
}

// ListAccounts fetches all accounts visible to the access token
func (c *Client) ListAccounts(ctx context.Context, accessToken string) ([]tellerAccount, error) {
	return doGet[[]tellerAccount](ctx, c, "/accounts", accessToken)
}

// GetBalance fetches the current balance for one account
func (c *Client) GetBalance(ctx context.Context, accessToken, accountID string) (*tellerBalance, error) {
	balance, err := doGet[tellerBalance](ctx, c, "/accounts/"+accountID+"/balances", accessToken)
	if err != nil {
		return nil, err
	}
	return &balance, nil
}

// ListTransactions fetches transactions for one account, newest first
func (c *Client) ListTransactions(ctx context.Context, accessToken, accountID string) ([]tellerTransaction, error) {
	return doGet[[]tellerTransaction](ctx, c, "/accounts/"+accountID+"/transactions", accessToken)
}

// doGet issues one authenticated GET and decodes the response into T
func doGet[T any](ctx context.Context, c *Client, path, accessToken string) (T, error) {
	var zero T

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return zero, fmt.Errorf("failed to build request: %w", err)
	}
	// Teller convention: access token as basic-auth username, empty password
	req.SetBasicAuth(accessToken, "")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return zero, fmt.Errorf("teller request to %s failed: %w: %v", path, domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, fmt.Errorf("failed to read response from %s: %w", path, domain.ErrProviderUnavailable)
	}

	if resp.StatusCode != http.StatusOK {
		return zero, mapAPIError(resp.StatusCode, respBody)
	}

	var result T
	if err := json.Unmarshal(respBody, &result); err != nil {
		return zero, fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return result, nil
}

// mapAPIError converts a Teller error response into the matching domain error kind
func mapAPIError(statusCode int, body []byte) error {
	var apiErr apiErrorResponse
	_ = json.Unmarshal(body, &apiErr)

	switch {
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		return fmt.Errorf("teller %s: %s: %w", apiErr.Error.Code, apiErr.Error.Message, domain.ErrCredentialsExpired)
	case statusCode == http.StatusNotFound:
		return fmt.Errorf("teller %s: %s: %w", apiErr.Error.Code, apiErr.Error.Message, domain.ErrNotFound)
	case statusCode == http.StatusTooManyRequests || statusCode >= 500:
		return fmt.Errorf("teller %s: %s: %w", apiErr.Error.Code, apiErr.Error.Message, domain.ErrProviderUnavailable)
	default:
		return fmt.Errorf("teller returned status %d: %s %s", statusCode, apiErr.Error.Code, apiErr.Error.Message)
	}
}
