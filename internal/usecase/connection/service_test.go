package connection

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlink/ledgerlink-backend/internal/cache"
	"github.com/ledgerlink/ledgerlink-backend/internal/domain"
	"github.com/ledgerlink/ledgerlink-backend/internal/provider"
	syncer "github.com/ledgerlink/ledgerlink-backend/internal/usecase/sync"
)

// MockConnectionRepository is a mock implementation of ConnectionRepository for testing
type MockConnectionRepository struct {
	mock.Mock
}

func (m *MockConnectionRepository) Create(ctx context.Context, conn *domain.BankConnection) error {
	args := m.Called(ctx, conn)
	return args.Error(0)
}

func (m *MockConnectionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.BankConnection, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BankConnection), args.Error(1)
}

func (m *MockConnectionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.BankConnection, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.BankConnection), args.Error(1)
}

func (m *MockConnectionRepository) UpdateInstitution(ctx context.Context, id uuid.UUID, info domain.InstitutionInfo) error {
	args := m.Called(ctx, id, info)
	return args.Error(0)
}

func (m *MockConnectionRepository) GetSyncStatus(ctx context.Context, id uuid.UUID) (*domain.BankConnectionSyncStatus, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BankConnectionSyncStatus), args.Error(1)
}

func (m *MockConnectionRepository) ClaimSync(ctx context.Context, id uuid.UUID, startedAt, staleBefore time.Time) (*domain.BankConnectionSyncStatus, error) {
	args := m.Called(ctx, id, startedAt, staleBefore)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BankConnectionSyncStatus), args.Error(1)
}

func (m *MockConnectionRepository) FinishSync(ctx context.Context, id uuid.UUID, startedAt, finishedAt time.Time, errMsg string) (bool, error) {
	args := m.Called(ctx, id, startedAt, finishedAt, errMsg)
	return args.Bool(0), args.Error(1)
}

func (m *MockConnectionRepository) DeleteCascade(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockProvider is a mock implementation of provider.Provider for testing
type MockProvider struct {
	mock.Mock
	name string
}

func (m *MockProvider) Name() string { return m.name }

func (m *MockProvider) CreateLinkToken(ctx context.Context, userID uuid.UUID) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (m *MockProvider) ExchangePublicToken(ctx context.Context, publicToken string) (*domain.ProviderCredentials, error) {
	args := m.Called(ctx, publicToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProviderCredentials), args.Error(1)
}

func (m *MockProvider) GetAccounts(ctx context.Context, creds domain.ProviderCredentials) ([]domain.Account, error) {
	args := m.Called(ctx, creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}

func (m *MockProvider) GetTransactions(ctx context.Context, creds domain.ProviderCredentials, start, end time.Time) ([]domain.Transaction, error) {
	args := m.Called(ctx, creds, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Transaction), args.Error(1)
}

func (m *MockProvider) GetInstitution(ctx context.Context, creds domain.ProviderCredentials) (*domain.InstitutionInfo, error) {
	args := m.Called(ctx, creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InstitutionInfo), args.Error(1)
}

type serviceFixture struct {
	connRepo   *MockConnectionRepository
	prov       *MockProvider
	cacheStore cache.Store
	service    *Service
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	f := &serviceFixture{
		connRepo:   new(MockConnectionRepository),
		prov:       &MockProvider{name: "mockbank"},
		cacheStore: cache.NewMemoryStore(),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := provider.NewRegistry(f.prov)
	orchestrator := syncer.NewOrchestrator(f.connRepo, nil, nil, registry, f.cacheStore, logger)
	f.service = NewService(f.connRepo, registry, orchestrator, f.cacheStore, logger)
	return f
}

func TestCreateLinkToken(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	userID := uuid.New()

	f.prov.On("CreateLinkToken", ctx, userID).Return("link-token-123", nil)

	token, err := f.service.CreateLinkToken(ctx, userID, "mockbank")
	require.NoError(t, err)
	assert.Equal(t, "link-token-123", token)
}

func TestCreateLinkToken_UnknownProvider(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.CreateLinkToken(context.Background(), uuid.New(), "ghostbank")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCompleteLink_Success(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	userID := uuid.New()

	creds := &domain.ProviderCredentials{AccessToken: "access-token", ItemID: "item-1"}
	f.prov.On("ExchangePublicToken", ctx, "public-token").Return(creds, nil)
	f.prov.On("GetInstitution", ctx, *creds).Return(&domain.InstitutionInfo{Name: "Mock Bank"}, nil)

	f.connRepo.On("Create", ctx, mock.MatchedBy(func(conn *domain.BankConnection) bool {
		return conn.UserID == userID &&
			conn.Provider == "mockbank" &&
			conn.Credentials.AccessToken == "access-token" &&
			conn.Institution.Name == "Mock Bank"
	})).Return(nil)
	// The initial background sync claims through the repository; rejecting the
	// load keeps the test synchronous, and a failed first sync must not fail
	// the link itself
	f.connRepo.On("GetByID", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)

	conn, err := f.service.CompleteLink(ctx, userID, "mockbank", "public-token")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, conn.ID)
	assert.Equal(t, "Mock Bank", conn.Institution.Name)
	f.connRepo.AssertExpectations(t)
}

func TestCompleteLink_InstitutionFailureTolerated(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	creds := &domain.ProviderCredentials{AccessToken: "access-token"}
	f.prov.On("ExchangePublicToken", ctx, "public-token").Return(creds, nil)
	f.prov.On("GetInstitution", ctx, *creds).Return(nil, domain.ErrProviderUnavailable)

	f.connRepo.On("Create", ctx, mock.Anything).Return(nil)
	f.connRepo.On("GetByID", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)

	conn, err := f.service.CompleteLink(ctx, uuid.New(), "mockbank", "public-token")
	require.NoError(t, err)
	assert.Empty(t, conn.Institution.Name)
}

func TestCompleteLink_InvalidToken(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	f.prov.On("ExchangePublicToken", ctx, "bad-token").Return(nil, domain.ErrInvalidToken)

	_, err := f.service.CompleteLink(ctx, uuid.New(), "mockbank", "bad-token")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
	f.connRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCompleteLink_PersistFailure(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	repoErr := errors.New("connection refused")
	creds := &domain.ProviderCredentials{AccessToken: "access-token"}
	f.prov.On("ExchangePublicToken", ctx, "public-token").Return(creds, nil)
	f.prov.On("GetInstitution", ctx, *creds).Return(&domain.InstitutionInfo{Name: "Mock Bank"}, nil)
	f.connRepo.On("Create", ctx, mock.Anything).Return(repoErr)

	_, err := f.service.CompleteLink(ctx, uuid.New(), "mockbank", "public-token")
	assert.ErrorIs(t, err, repoErr)
}

func TestDisconnect_RemovesRepositoryRowsAndCacheEntries(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	connectionID := uuid.New()
	otherID := uuid.New()
	stamp := time.Now()

	require.NoError(t, f.cacheStore.Set(ctx, cache.AccountsKey(connectionID), []byte("a"), stamp))
	require.NoError(t, f.cacheStore.Set(ctx, cache.TransactionsKey(connectionID), []byte("t"), stamp))
	require.NoError(t, f.cacheStore.Set(ctx, cache.SyncStatusKey(connectionID), []byte("s"), stamp))
	require.NoError(t, f.cacheStore.Set(ctx, cache.AccountsKey(otherID), []byte("keep"), stamp))

	f.connRepo.On("DeleteCascade", ctx, connectionID).Return(nil)

	require.NoError(t, f.service.Disconnect(ctx, connectionID))

	for _, key := range []string{cache.AccountsKey(connectionID), cache.TransactionsKey(connectionID), cache.SyncStatusKey(connectionID)} {
		_, _, ok, err := f.cacheStore.Get(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok, "expected %s to be invalidated", key)
	}

	_, _, ok, err := f.cacheStore.Get(ctx, cache.AccountsKey(otherID))
	require.NoError(t, err)
	assert.True(t, ok, "other connection's cache entries must survive")
	f.connRepo.AssertExpectations(t)
}

func TestDisconnect_RepositoryFailure(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	repoErr := errors.New("deadlock detected")
	f.connRepo.On("DeleteCascade", ctx, mock.Anything).Return(repoErr)

	err := f.service.Disconnect(ctx, uuid.New())
	assert.ErrorIs(t, err, repoErr)
}
