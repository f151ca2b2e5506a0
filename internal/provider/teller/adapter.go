// Package teller adapts the Teller API to the provider contract. Teller
// already reports outflows as negative decimal strings, so amounts pass
// through without sign conversion. Teller Connect hands the access token to
// the client directly, which makes the link-token and exchange steps thinner
// than Plaid's: the link token only carries the application ID, and the
// exchange step validates the token against the API before accepting it.
package teller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerlink/ledgerlink-backend/internal/domain"
	"github.com/ledgerlink/ledgerlink-backend/internal/provider"
)

const dateLayout = "2006-01-02"

// Adapter implements provider.Provider for Teller
type Adapter struct {
	client *Client
	// applicationID identifies this app to Teller Connect
	applicationID string
	// certificatePEM/privateKeyPEM are copied into exchanged credentials so a
	// connection's stored credentials are sufficient to reach the API
	certificatePEM []byte
	privateKeyPEM  []byte
}

// AdapterConfig configures the Teller adapter
type AdapterConfig struct {
	Client         *Client
	ApplicationID  string
	CertificatePEM []byte
	PrivateKeyPEM  []byte
}

// NewAdapter creates a Teller provider adapter
func NewAdapter(config AdapterConfig) *Adapter {
	return &Adapter{
		client:         config.Client,
		applicationID:  config.ApplicationID,
		certificatePEM: config.CertificatePEM,
		privateKeyPEM:  config.PrivateKeyPEM,
	}
}

// Name returns the adapter selection key
func (a *Adapter) Name() string {
	return "teller"
}

// CreateLinkToken returns the token Teller Connect needs client-side. Teller
// has no server-issued link token; the application ID plus a per-request
// nonce is what the client hands to Connect.
func (a *Adapter) CreateLinkToken(ctx context.Context, userID uuid.UUID) (string, error) {
	if a.applicationID == "" {
		return "", fmt.Errorf("teller application ID not configured: %w", domain.ErrProviderAuth)
	}
	return a.applicationID + ":" + uuid.NewString(), nil
}

// ExchangePublicToken validates the access token Teller Connect produced and
// wraps it, together with the client-certificate material, into durable
// credentials
func (a *Adapter) ExchangePublicToken(ctx context.Context, publicToken string) (*domain.ProviderCredentials, error) {
	if publicToken == "" {
		return nil, fmt.Errorf("empty access token: %w", domain.ErrInvalidToken)
	}

	// A dead or already-revoked token fails here rather than on first sync
	accounts, err := a.client.ListAccounts(ctx, publicToken)
	if err != nil {
		if errors.Is(err, domain.ErrCredentialsExpired) {
			return nil, fmt.Errorf("access token rejected by teller: %w", domain.ErrInvalidToken)
		}
		return nil, err
	}

	enrollmentID := ""
	if len(accounts) > 0 {
		enrollmentID = accounts[0].EnrollmentID
	}

	return &domain.ProviderCredentials{
		AccessToken: publicToken,
		ItemID:      enrollmentID,
		Certificate: a.certificatePEM,
		PrivateKey:  a.privateKeyPEM,
	}, nil
}

// GetAccounts fetches accounts with their ledger balances in canonical shape
func (a *Adapter) GetAccounts(ctx context.Context, creds domain.ProviderCredentials) ([]domain.Account, error) {
	raw, err := a.client.ListAccounts(ctx, creds.AccessToken)
	if err != nil {
		return nil, err
	}

	accounts := make([]domain.Account, 0, len(raw))
	for _, acct := range raw {
		balanceResp, err := a.client.GetBalance(ctx, creds.AccessToken, acct.ID)
		if err != nil {
			return nil, err
		}
		balance, err := decimal.NewFromString(balanceResp.Ledger)
		if err != nil {
			return nil, fmt.Errorf("invalid balance for account %s: %w", acct.ID, err)
		}

		currency := acct.Currency
		if currency == "" {
			currency = "USD"
		}

		accounts = append(accounts, domain.Account{
			ID:             acct.ID,
			Type:           mapAccountType(acct.Type),
			Subtype:        strings.ToLower(acct.Subtype),
			Name:           acct.Name,
			CurrentBalance: balance,
			Currency:       currency,
			Closed:         acct.Status == "closed",
		})
	}
	return accounts, nil
}

// GetTransactions fetches transactions per account and filters to [start, end].
// Teller's transaction listing is not range-scoped, so the range is applied
// client-side; overlap with previously fetched ranges is expected and handled
// by the merge step.
func (a *Adapter) GetTransactions(ctx context.Context, creds domain.ProviderCredentials, start, end time.Time) ([]domain.Transaction, error) {
	accounts, err := a.client.ListAccounts(ctx, creds.AccessToken)
	if err != nil {
		return nil, err
	}

	startDay := start.UTC().Truncate(24 * time.Hour)
	endDay := end.UTC().Truncate(24 * time.Hour)

	var transactions []domain.Transaction
	for _, acct := range accounts {
		raw, err := a.client.ListTransactions(ctx, creds.AccessToken, acct.ID)
		if err != nil {
			return nil, err
		}

		for _, rawTx := range raw {
			tx, err := mapTransaction(rawTx)
			if err != nil {
				return nil, err
			}
			if tx.Date.Before(startDay) || tx.Date.After(endDay) {
				continue
			}
			transactions = append(transactions, tx)
		}
	}
	return transactions, nil
}

// GetInstitution derives institution metadata from the enrolled accounts
func (a *Adapter) GetInstitution(ctx context.Context, creds domain.ProviderCredentials) (*domain.InstitutionInfo, error) {
	accounts, err := a.client.ListAccounts(ctx, creds.AccessToken)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("no accounts enrolled: %w", domain.ErrNotFound)
	}

	inst := accounts[0].Institution
	return &domain.InstitutionInfo{
		Name:    inst.Name,
		LogoURL: "https://teller.io/images/banks/" + inst.ID + ".jpg",
	}, nil
}

func mapTransaction(raw tellerTransaction) (domain.Transaction, error) {
	amount, err := decimal.NewFromString(raw.Amount)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid amount for transaction %s: %w", raw.ID, err)
	}

	date, err := time.ParseInLocation(dateLayout, raw.Date, time.UTC)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid date for transaction %s: %w", raw.ID, err)
	}

	return domain.Transaction{
		ID:          raw.ID,
		AccountID:   raw.AccountID,
		Amount:      amount, // Teller: negative = outflow already
		Date:        date,
		Description: raw.Description,
		Category:    raw.Details.Category,
		Pending:     raw.Status == "pending",
	}, nil
}

func mapAccountType(raw string) domain.AccountType {
	switch strings.ToLower(raw) {
	case "depository":
		return domain.AccountTypeDepository
	case "credit":
		return domain.AccountTypeCredit
	case "loan":
		return domain.AccountTypeLoan
	case "investment":
		return domain.AccountTypeInvestment
	default:
		return domain.AccountTypeOther
	}
}

var _ provider.Provider = (*Adapter)(nil)
