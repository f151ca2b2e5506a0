// Package httpapi exposes the sync and analytics operations over a thin JSON
// HTTP surface. Request/response schemas stay minimal: monetary values are
// string-encoded decimals, timestamps and dates are ISO-8601.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ledgerlink/ledgerlink-backend/internal/usecase/analytics"
	"github.com/ledgerlink/ledgerlink-backend/internal/usecase/budget"
	"github.com/ledgerlink/ledgerlink-backend/internal/usecase/connection"
	syncer "github.com/ledgerlink/ledgerlink-backend/internal/usecase/sync"
)

// Server wires the usecase services into an HTTP router
type Server struct {
	ConnectionService *connection.Service
	Orchestrator      *syncer.Orchestrator
	AnalyticsService  *analytics.Service
	BudgetService     *budget.Service

	logger *slog.Logger
}

// NewServer creates a new HTTP API server instance
func NewServer(
	connectionService *connection.Service,
	orchestrator *syncer.Orchestrator,
	analyticsService *analytics.Service,
	budgetService *budget.Service,
	logger *slog.Logger,
) *Server {
	return &Server{
		ConnectionService: connectionService,
		Orchestrator:      orchestrator,
		AnalyticsService:  analyticsService,
		BudgetService:     budgetService,
		logger:            logger,
	}
}

// Router builds the API router with auth and request logging applied
func (s *Server) Router(apiToken string) *mux.Router {
	router := mux.NewRouter()
	router.Use(s.loggingMiddleware)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(AuthMiddleware(apiToken))

	// Link lifecycle
	api.HandleFunc("/users/{userID}/link-token", s.handleCreateLinkToken).Methods(http.MethodPost)
	api.HandleFunc("/users/{userID}/connections", s.handleCompleteLink).Methods(http.MethodPost)
	api.HandleFunc("/users/{userID}/connections", s.handleListConnections).Methods(http.MethodGet)
	api.HandleFunc("/connections/{connectionID}", s.handleDisconnect).Methods(http.MethodDelete)

	// Sync
	api.HandleFunc("/connections/{connectionID}/sync", s.handleStartSync).Methods(http.MethodPost)
	api.HandleFunc("/connections/{connectionID}/sync", s.handleGetSyncStatus).Methods(http.MethodGet)

	// Analytics
	api.HandleFunc("/users/{userID}/balances", s.handleBalanceBreakdown).Methods(http.MethodGet)
	api.HandleFunc("/users/{userID}/cashflow-ratio", s.handleCashflowRatio).Methods(http.MethodGet)
	api.HandleFunc("/users/{userID}/monthly-totals", s.handleMonthlyTotals).Methods(http.MethodGet)
	api.HandleFunc("/users/{userID}/daily-totals", s.handleDailyTotals).Methods(http.MethodGet)

	// Budgets
	api.HandleFunc("/users/{userID}/budgets", s.handleCreateBudget).Methods(http.MethodPost)
	api.HandleFunc("/users/{userID}/budgets", s.handleListBudgets).Methods(http.MethodGet)
	api.HandleFunc("/users/{userID}/budgets/progress", s.handleBudgetProgress).Methods(http.MethodGet)
	api.HandleFunc("/budgets/{budgetID}", s.handleDeleteBudget).Methods(http.MethodDelete)

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	return router
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start))
	})
}
