// Package connection manages the link lifecycle of bank connections: issuing
// link tokens, exchanging handshake tokens for durable credentials, and
// disconnecting with a full cascade.
package connection

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerlink/ledgerlink-backend/internal/cache"
	"github.com/ledgerlink/ledgerlink-backend/internal/domain"
	"github.com/ledgerlink/ledgerlink-backend/internal/provider"
	syncer "github.com/ledgerlink/ledgerlink-backend/internal/usecase/sync"
)

// Service handles bank connection lifecycle operations
type Service struct {
	ConnectionRepo domain.ConnectionRepository
	Providers      *provider.Registry
	Orchestrator   *syncer.Orchestrator

	cache  cache.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new connection Service instance
func NewService(
	connectionRepo domain.ConnectionRepository,
	providers *provider.Registry,
	orchestrator *syncer.Orchestrator,
	cacheStore cache.Store,
	logger *slog.Logger,
) *Service {
	return &Service{
		ConnectionRepo: connectionRepo,
		Providers:      providers,
		Orchestrator:   orchestrator,
		cache:          cacheStore,
		logger:         logger,
		now:            time.Now,
	}
}

// CreateLinkToken requests a short-lived token the client uses to start the
// provider's linking flow
func (s *Service) CreateLinkToken(ctx context.Context, userID uuid.UUID, providerName string) (string, error) {
	p, err := s.Providers.Lookup(providerName)
	if err != nil {
		return "", err
	}
	return p.CreateLinkToken(ctx, userID)
}

// CompleteLink exchanges the client-obtained public token for durable
// credentials, persists the new connection, and kicks off its first sync in
// the background. Institution metadata is fetched best-effort; the sync will
// retry it anyway.
func (s *Service) CompleteLink(ctx context.Context, userID uuid.UUID, providerName, publicToken string) (*domain.BankConnection, error) {
	p, err := s.Providers.Lookup(providerName)
	if err != nil {
		return nil, err
	}

	creds, err := p.ExchangePublicToken(ctx, publicToken)
	if err != nil {
		return nil, err
	}

	conn := &domain.BankConnection{
		ID:          uuid.New(),
		UserID:      userID,
		Provider:    providerName,
		Credentials: *creds,
		CreatedAt:   s.now().UTC(),
	}

	if info, err := p.GetInstitution(ctx, *creds); err != nil {
		s.logger.Warn("fetching institution info during link failed",
			"provider", providerName, "error", err)
	} else {
		conn.Institution = *info
	}

	if err := conn.Validate(); err != nil {
		return nil, err
	}
	if err := s.ConnectionRepo.Create(ctx, conn); err != nil {
		return nil, fmt.Errorf("failed to persist connection: %w", err)
	}

	s.logger.Info("connection linked",
		"connection_id", conn.ID, "user_id", userID, "provider", providerName)

	// First data load; failure is recorded on the sync status, not here
	if err := s.Orchestrator.StartSyncAsync(ctx, conn.ID); err != nil {
		s.logger.Warn("initial sync could not start", "connection_id", conn.ID, "error", err)
	}
	return conn, nil
}

// Disconnect removes the connection, every repository row referencing it, and
// every cache entry keyed under it, so no data for a dead connection remains
// retrievable
func (s *Service) Disconnect(ctx context.Context, connectionID uuid.UUID) error {
	if err := s.ConnectionRepo.DeleteCascade(ctx, connectionID); err != nil {
		return fmt.Errorf("failed to delete connection: %w", err)
	}

	if err := s.cache.InvalidatePrefix(ctx, cache.ConnectionPrefix(connectionID)); err != nil {
		// Fail-open, but entries for a deleted connection must not linger;
		// log loudly so operators notice
		s.logger.Error("failed to invalidate cache after disconnect",
			"connection_id", connectionID, "error", err)
	}

	s.logger.Info("connection disconnected", "connection_id", connectionID)
	return nil
}

// List returns the user's connections
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*domain.BankConnection, error) {
	return s.ConnectionRepo.ListByUser(ctx, userID)
}
