// Package provider defines the capability contract every external
// financial-data source is adapted to. Each adapter converts provider-native
// responses into the canonical domain shapes; everything above this package is
// provider-agnostic and only ever selects an adapter by name through the
// Registry.
package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerlink/ledgerlink-backend/internal/domain"
)

// Provider is the capability set one external data source must implement.
// Adapters classify failures with the domain error kinds (ErrProviderUnavailable,
// ErrCredentialsExpired, ...) so callers never branch on provider identity.
type Provider interface {
	// Name returns the adapter selection key stored on connections
	Name() string

	// CreateLinkToken requests a short-lived token the client uses to
	// authorize a new connection for the given user.
	CreateLinkToken(ctx context.Context, userID uuid.UUID) (string, error)

	// ExchangePublicToken converts a client-obtained handshake token into
	// durable access credentials. Returns ErrInvalidToken when the token is
	// expired or already consumed.
	ExchangePublicToken(ctx context.Context, publicToken string) (*domain.ProviderCredentials, error)

	// GetAccounts fetches the current account list with balances, already in
	// canonical shape. ConnectionID/UserID are left zero for the caller to
	// stamp.
	GetAccounts(ctx context.Context, creds domain.ProviderCredentials) ([]domain.Account, error)

	// GetTransactions fetches transactions dated within [start, end],
	// inclusive, in canonical shape (negative = outflow). Responses for
	// overlapping ranges may repeat transactions; the merge step dedupes by
	// identity.
	GetTransactions(ctx context.Context, creds domain.ProviderCredentials, start, end time.Time) ([]domain.Transaction, error)

	// GetInstitution fetches display metadata for the linked institution.
	// Non-critical: callers treat failures as cosmetic.
	GetInstitution(ctx context.Context, creds domain.ProviderCredentials) (*domain.InstitutionInfo, error)
}

// Registry maps provider names to adapter instances. Adapters are registered
// once at startup; lookup is the only place provider identity is inspected.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry creates a registry holding the given adapters
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// Lookup returns the adapter registered under name
func (r *Registry) Lookup(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q: %w", name, domain.ErrNotFound)
	}
	return p, nil
}

// Names returns the registered provider names
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
