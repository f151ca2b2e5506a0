package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ProviderCredentials holds the durable credentials obtained from a provider
// when a connection is linked. Certificate and PrivateKey are PEM-encoded and
// only present for providers that require client-certificate (mutual TLS) auth.
// SENSITIVE: never log any field of this struct.
type ProviderCredentials struct {
	AccessToken string
	ItemID      string
	Certificate []byte
	PrivateKey  []byte
}

// InstitutionInfo holds display metadata for the linked institution.
// It is non-critical: a sync must never fail because this could not be fetched.
type InstitutionInfo struct {
	Name       string
	LogoURL    string
	BrandColor string
}

// BankConnection represents a linked financial institution credential set
// belonging to a user. Created on successful token exchange; deleted (with a
// full cascade) on user-initiated disconnect.
type BankConnection struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Provider    string // adapter selection key, e.g. "plaid" or "teller"
	Credentials ProviderCredentials
	Institution InstitutionInfo
	CreatedAt   time.Time
}

// Validate ensures the connection adheres to domain rules
func (c *BankConnection) Validate() error {
	if c.ID == uuid.Nil {
		return errors.New("connection ID cannot be empty")
	}
	if c.UserID == uuid.Nil {
		return errors.New("connection must belong to a user")
	}
	if c.Provider == "" {
		return errors.New("connection provider cannot be empty")
	}
	if c.Credentials.AccessToken == "" {
		return errors.New("connection credentials must include an access token")
	}
	return nil
}

// BankConnectionSyncStatus is the per-connection sync state and the
// mutual-exclusion token for the sync orchestrator. It lives in shared storage
// (repository, mirrored in cache) rather than process memory so the
// single-flight guarantee holds across multiple service instances.
//
// StartedAt records when InProgress was last set; a lock older than the
// orchestrator's stale threshold is treated as abandoned.
type BankConnectionSyncStatus struct {
	ConnectionID uuid.UUID
	InProgress   bool
	StartedAt    time.Time
	LastSyncAt   *time.Time
	ErrorMessage string
}
