// Package plaid adapts the Plaid API to the provider contract. Plaid reports
// outflows as positive amounts; the adapter negates them so canonical
// transactions follow the system-wide negative-equals-outflow convention.
package plaid

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerlink/ledgerlink-backend/internal/domain"
	"github.com/ledgerlink/ledgerlink-backend/internal/provider"
)

const dateLayout = "2006-01-02"

// Adapter implements provider.Provider for Plaid
type Adapter struct {
	client *Client
	// clientName is displayed inside Plaid Link during account linking
	clientName string
}

// NewAdapter creates a Plaid provider adapter
func NewAdapter(client *Client, clientName string) *Adapter {
	return &Adapter{client: client, clientName: clientName}
}

// Name returns the adapter selection key
func (a *Adapter) Name() string {
	return "plaid"
}

// CreateLinkToken requests a short-lived Link token for the user
func (a *Adapter) CreateLinkToken(ctx context.Context, userID uuid.UUID) (string, error) {
	resp, err := a.client.CreateLinkToken(ctx, a.clientName, userID.String())
	if err != nil {
		return "", err
	}
	return resp.LinkToken, nil
}

// ExchangePublicToken converts the Link handshake token into durable credentials
func (a *Adapter) ExchangePublicToken(ctx context.Context, publicToken string) (*domain.ProviderCredentials, error) {
	resp, err := a.client.ExchangePublicToken(ctx, publicToken)
	if err != nil {
		return nil, err
	}
	return &domain.ProviderCredentials{
		AccessToken: resp.AccessToken,
		ItemID:      resp.ItemID,
	}, nil
}

// GetAccounts fetches the item's accounts in canonical shape
func (a *Adapter) GetAccounts(ctx context.Context, creds domain.ProviderCredentials) ([]domain.Account, error) {
	resp, err := a.client.GetAccounts(ctx, creds.AccessToken)
	if err != nil {
		return nil, err
	}

	accounts := make([]domain.Account, 0, len(resp.Accounts))
	for _, raw := range resp.Accounts {
		balance := decimal.Zero
		if raw.Balances.Current != "" {
			balance, err = decimal.NewFromString(raw.Balances.Current.String())
			if err != nil {
				return nil, fmt.Errorf("invalid balance for account %s: %w", raw.AccountID, err)
			}
		}

		name := raw.Name
		if name == "" {
			name = raw.OfficialName
		}

		currency := raw.Balances.ISOCurrencyCode
		if currency == "" {
			currency = "USD"
		}

		accounts = append(accounts, domain.Account{
			ID:             raw.AccountID,
			Type:           mapAccountType(raw.Type),
			Subtype:        strings.ToLower(raw.Subtype),
			Name:           name,
			CurrentBalance: balance,
			Currency:       currency,
			Closed:         raw.ClosedAt != "",
		})
	}
	return accounts, nil
}

// GetTransactions fetches all transactions dated within [start, end],
// paginating until Plaid reports no more
func (a *Adapter) GetTransactions(ctx context.Context, creds domain.ProviderCredentials, start, end time.Time) ([]domain.Transaction, error) {
	startDate := start.UTC().Format(dateLayout)
	endDate := end.UTC().Format(dateLayout)

	var transactions []domain.Transaction
	for offset := 0; ; {
		resp, err := a.client.GetTransactions(ctx, creds.AccessToken, startDate, endDate, offset)
		if err != nil {
			return nil, err
		}

		for _, raw := range resp.Transactions {
			tx, err := mapTransaction(raw)
			if err != nil {
				return nil, err
			}
			transactions = append(transactions, tx)
		}

		offset += len(resp.Transactions)
		if offset >= resp.TotalTransactions || len(resp.Transactions) == 0 {
			break
		}
	}
	return transactions, nil
}

// GetInstitution fetches the linked institution's display metadata
func (a *Adapter) GetInstitution(ctx context.Context, creds domain.ProviderCredentials) (*domain.InstitutionInfo, error) {
	item, err := a.client.GetItem(ctx, creds.AccessToken)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.GetInstitution(ctx, item.Item.InstitutionID)
	if err != nil {
		return nil, err
	}

	return &domain.InstitutionInfo{
		Name:       resp.Institution.Name,
		LogoURL:    resp.Institution.Logo,
		BrandColor: resp.Institution.PrimaryColor,
	}, nil
}

func mapTransaction(raw transactionData) (domain.Transaction, error) {
	amount, err := decimal.NewFromString(raw.Amount.String())
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid amount for transaction %s: %w", raw.TransactionID, err)
	}

	date, err := time.ParseInLocation(dateLayout, raw.Date, time.UTC)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid date for transaction %s: %w", raw.TransactionID, err)
	}

	// Plaid hierarchies go broad -> specific; keep the most specific label
	category := ""
	if len(raw.Category) > 0 {
		category = raw.Category[len(raw.Category)-1]
	}

	return domain.Transaction{
		ID:          raw.TransactionID,
		AccountID:   raw.AccountID,
		Amount:      amount.Neg(), // Plaid: positive = outflow; canonical: negative = outflow
		Date:        date,
		Description: raw.Name,
		Category:    category,
		Pending:     raw.Pending,
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
	case "investment", "brokerage":
		return domain.AccountTypeInvestment
	default:
		return domain.AccountTypeOther
	}
}

var _ provider.Provider = (*Adapter)(nil)
