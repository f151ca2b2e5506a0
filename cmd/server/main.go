package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ledgerlink/ledgerlink-backend/internal/adapter/httpapi"
	"github.com/ledgerlink/ledgerlink-backend/internal/adapter/repository/postgres"
	"github.com/ledgerlink/ledgerlink-backend/internal/cache"
	"github.com/ledgerlink/ledgerlink-backend/internal/provider"
	"github.com/ledgerlink/ledgerlink-backend/internal/provider/plaid"
	"github.com/ledgerlink/ledgerlink-backend/internal/provider/teller"
	"github.com/ledgerlink/ledgerlink-backend/internal/usecase/analytics"
	"github.com/ledgerlink/ledgerlink-backend/internal/usecase/budget"
	"github.com/ledgerlink/ledgerlink-backend/internal/usecase/connection"
	syncer "github.com/ledgerlink/ledgerlink-backend/internal/usecase/sync"
)

const (
	defaultAPIToken = "dev-token"
	defaultHTTPAddr = ":8080"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// 1. Setup Database
	db, err := postgres.NewDB(dbConnectionString())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// 2. Initialize Repositories (Postgres)
	connectionRepo := postgres.NewConnectionRepository(db)
	accountRepo := postgres.NewAccountRepository(db)
	transactionRepo := postgres.NewTransactionRepository(db)
	budgetRepo := postgres.NewBudgetRepository(db)

	// 3. Initialize Cache (fail-open: backend trouble degrades to repository reads)
	cacheStore := cache.NewFailOpen(cache.NewMemoryStore(), logger)

	// 4. Initialize Provider Adapters from environment
	registry, err := buildProviderRegistry(logger)
	if err != nil {
		logger.Error("failed to configure providers", "error", err)
		os.Exit(1)
	}

	// 5. Initialize Services (Use Cases)
	orchestrator := syncer.NewOrchestrator(connectionRepo, accountRepo, transactionRepo, registry, cacheStore, logger)
	connectionService := connection.NewService(connectionRepo, registry, orchestrator, cacheStore, logger)
	analyticsService := analytics.NewService(connectionRepo, accountRepo, transactionRepo, cacheStore, logger)
	budgetService := budget.NewService(budgetRepo, transactionRepo)

	// 6. Start HTTP Server
	apiToken := os.Getenv("API_TOKEN")
	if apiToken == "" {
		apiToken = defaultAPIToken
	}
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = defaultHTTPAddr
	}

	apiServer := httpapi.NewServer(connectionService, orchestrator, analyticsService, budgetService, logger)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      apiServer.Router(apiToken),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "addr", addr, "providers", registry.Names())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	waitForShutdown(httpServer, logger)
}

// dbConnectionString builds the Postgres connection string from DB_CONN_STR,
// or from individual vars (Docker friendly)
func dbConnectionString() string {
	if connStr := os.Getenv("DB_CONN_STR"); connStr != "" {
		return connStr
	}

	host := envOr("DB_HOST", "localhost")
	port := envOr("DB_PORT", "5432")
	user := envOr("DB_USER", "postgres")
	password := envOr("DB_PASSWORD", "postgres")
	dbname := envOr("DB_NAME", "ledgerlink")

	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)
}

// buildProviderRegistry constructs one adapter per configured provider.
// Unconfigured providers are skipped; at least one must be present.
func buildProviderRegistry(logger *slog.Logger) (*provider.Registry, error) {
	var providers []provider.Provider

	if clientID := os.Getenv("PLAID_CLIENT_ID"); clientID != "" {
		client, err := plaid.NewClient(plaid.ClientConfig{
			Environment: envOr("PLAID_ENV", "sandbox"),
			ClientID:    clientID,
			Secret:      os.Getenv("PLAID_SECRET"),
		})
		if err != nil {
			return nil, fmt.Errorf("plaid: %w", err)
		}
		providers = append(providers, plaid.NewAdapter(client, envOr("PLAID_CLIENT_NAME", "LedgerLink")))
	}

	if appID := os.Getenv("TELLER_APPLICATION_ID"); appID != "" {
		certPEM, err := os.ReadFile(os.Getenv("TELLER_CERT_FILE"))
		if err != nil {
			return nil, fmt.Errorf("teller certificate: %w", err)
		}
		keyPEM, err := os.ReadFile(os.Getenv("TELLER_KEY_FILE"))
		if err != nil {
			return nil, fmt.Errorf("teller private key: %w", err)
		}
		client, err := teller.NewClient(teller.ClientConfig{
			CertificatePEM: certPEM,
			PrivateKeyPEM:  keyPEM,
		})
		if err != nil {
			return nil, fmt.Errorf("teller: %w", err)
		}
		providers = append(providers, teller.NewAdapter(teller.AdapterConfig{
			Client:         client,
			ApplicationID:  appID,
			CertificatePEM: certPEM,
			PrivateKeyPEM:  keyPEM,
		}))
	}

	if len(providers) == 0 {
		return nil, errors.New("no provider configured; set PLAID_CLIENT_ID or TELLER_APPLICATION_ID")
	}
	return provider.NewRegistry(providers...), nil
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// waitForShutdown waits for SIGTERM or SIGINT and gracefully shuts down the server
func waitForShutdown(server *http.Server, logger *slog.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	logger.Info("shutting down gracefully", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
	logger.Info("HTTP server stopped")
}
