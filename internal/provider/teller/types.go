package teller

// Wire types for the subset of the Teller API this adapter consumes.
// Teller encodes monetary amounts as decimal strings, which map directly
// onto exact decimals.

type tellerInstitution struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type tellerAccount struct {
	ID           string            `json:"id"`
	EnrollmentID string            `json:"enrollment_id"`
	Name         string            `json:"name"`
	Type         string            `json:"type"`
	Subtype      string            `json:"subtype"`
	Currency     string            `json:"currency"`
	Status       string            `json:"status"` // "open" or "closed"
	Institution  tellerInstitution `json:"institution"`
}

type tellerBalance struct {
	AccountID string `json:"account_id"`
	Available string `json:"available"`
	Ledger    string `json:"ledger"`
}

type tellerTransactionDetails struct {
	Category string `json:"category"`
}

type tellerTransaction struct {
	ID          string                   `json:"id"`
	AccountID   string                   `json:"account_id"`
	Amount      string                   `json:"amount"`
	Date        string                   `json:"date"`
	Description string                   `json:"description"`
	Status      string                   `json:"status"` // "posted" or "pending"
	Details     tellerTransactionDetails `json:"details"`
}

type apiErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
