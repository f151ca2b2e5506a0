package plaid

import "encoding/json"

// Wire types for the subset of the Plaid API this adapter consumes.
// Monetary fields decode into json.Number so amounts reach decimal parsing
// without ever passing through binary floating point.

type linkTokenCreateResponse struct {
	LinkToken string `json:"link_token"`
}

type publicTokenExchangeResponse struct {
	AccessToken string `json:"access_token"`
	ItemID      string `json:"item_id"`
}

type accountBalances struct {
	Current         json.Number `json:"current"`
	ISOCurrencyCode string      `json:"iso_currency_code"`
}

type accountData struct {
	AccountID    string          `json:"account_id"`
	Name         string          `json:"name"`
	OfficialName string          `json:"official_name"`
	Type         string          `json:"type"`
	Subtype      string          `json:"subtype"`
	Mask         string          `json:"mask"`
	Balances     accountBalances `json:"balances"`
	ClosedAt     string          `json:"closed_at"`
}

type accountsGetResponse struct {
	Accounts []accountData `json:"accounts"`
	Item     itemData      `json:"item"`
}

type itemData struct {
	ItemID        string `json:"item_id"`
	InstitutionID string `json:"institution_id"`
}

type itemGetResponse struct {
	Item itemData `json:"item"`
}

type transactionData struct {
	TransactionID string      `json:"transaction_id"`
	AccountID     string      `json:"account_id"`
	Amount        json.Number `json:"amount"`
	Date          string      `json:"date"`
	Name          string      `json:"name"`
	Category      []string    `json:"category"`
	Pending       bool        `json:"pending"`
}

type transactionsGetResponse struct {
	Transactions      []transactionData `json:"transactions"`
	TotalTransactions int               `json:"total_transactions"`
}

type institutionData struct {
	Name         string `json:"name"`
	Logo         string `json:"logo"`
	PrimaryColor string `json:"primary_color"`
}

type institutionGetResponse struct {
	Institution institutionData `json:"institution"`
}

type apiErrorResponse struct {
	ErrorType    string `json:"error_type"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}
