package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/ledgerlink/ledgerlink-backend/internal/domain"
)

const dateLayout = "2006-01-02"

// connectionView is the outward shape of a connection. Credentials never
// leave the service.
type connectionView struct {
	ID          uuid.UUID `json:"id"`
	Provider    string    `json:"provider"`
	Institution struct {
		Name       string `json:"name"`
		LogoURL    string `json:"logo_url,omitempty"`
		BrandColor string `json:"brand_color,omitempty"`
	} `json:"institution"`
	CreatedAt time.Time `json:"created_at"`
}

func toConnectionView(conn *domain.BankConnection) connectionView {
	view := connectionView{
		ID:        conn.ID,
		Provider:  conn.Provider,
		CreatedAt: conn.CreatedAt,
	}
	view.Institution.Name = conn.Institution.Name
	view.Institution.LogoURL = conn.Institution.LogoURL
	view.Institution.BrandColor = conn.Institution.BrandColor
	return view
}

type syncStatusView struct {
	InProgress   bool       `json:"in_progress"`
	LastSyncAt   *time.Time `json:"last_sync_at"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

func (s *Server) handleCreateLinkToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUUID(w, r, "userID")
	if !ok {
		return
	}

	var req struct {
		Provider string `json:"provider"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Provider == "" {
		writeBadRequest(w, "provider is required")
		return
	}

	token, err := s.ConnectionService.CreateLinkToken(r.Context(), userID, req.Provider)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"link_token": token})
}

func (s *Server) handleCompleteLink(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUUID(w, r, "userID")
	if !ok {
		return
	}

	var req struct {
		Provider    string `json:"provider"`
		PublicToken string `json:"public_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Provider == "" || req.PublicToken == "" {
		writeBadRequest(w, "provider and public_token are required")
		return
	}

	conn, err := s.ConnectionService.CompleteLink(r.Context(), userID, req.Provider, req.PublicToken)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toConnectionView(conn))
}

func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUUID(w, r, "userID")
	if !ok {
		return
	}

	connections, err := s.ConnectionService.List(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]connectionView, 0, len(connections))
	for _, conn := range connections {
		views = append(views, toConnectionView(conn))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	connectionID, ok := pathUUID(w, r, "connectionID")
	if !ok {
		return
	}

	if err := s.ConnectionService.Disconnect(r.Context(), connectionID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStartSync(w http.ResponseWriter, r *http.Request) {
	connectionID, ok := pathUUID(w, r, "connectionID")
	if !ok {
		return
	}

	// 409 with sync_already_in_progress is the expected concurrent outcome,
	// not a failure
	if err := s.Orchestrator.StartSyncAsync(r.Context(), connectionID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) handleGetSyncStatus(w http.ResponseWriter, r *http.Request) {
	connectionID, ok := pathUUID(w, r, "connectionID")
	if !ok {
		return
	}

	status, err := s.Orchestrator.GetStatus(r.Context(), connectionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, syncStatusView{
		InProgress:   status.InProgress,
		LastSyncAt:   status.LastSyncAt,
		ErrorMessage: status.ErrorMessage,
	})
}

func (s *Server) handleBalanceBreakdown(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUUID(w, r, "userID")
	if !ok {
		return
	}

	breakdown, err := s.AnalyticsService.GetBalanceBreakdown(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, breakdown)
}

func (s *Server) handleCashflowRatio(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUUID(w, r, "userID")
	if !ok {
		return
	}
	from, to, ok := queryDateRange(w, r)
	if !ok {
		return
	}

	ratio, defined, err := s.AnalyticsService.GetPositiveNegativeRatio(r.Context(), userID, from, to)
	if err != nil {
		writeError(w, err)
		return
	}

	// An undefined ratio (no outflow) is encoded as null; rendering an
	// infinity symbol or hiding the metric is the client's choice
	var payload struct {
		Ratio *decimal.Decimal `json:"ratio"`
	}
	if defined {
		payload.Ratio = &ratio
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleMonthlyTotals(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUUID(w, r, "userID")
	if !ok {
		return
	}

	months := 6
	if raw := r.URL.Query().Get("months"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 120 {
			writeBadRequest(w, "months must be a positive integer up to 120")
			return
		}
		months = parsed
	}

	totals, err := s.AnalyticsService.GetMonthlyTotals(r.Context(), userID, months)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

func (s *Server) handleDailyTotals(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUUID(w, r, "userID")
	if !ok {
		return
	}
	from, to, ok := queryDateRange(w, r)
	if !ok {
		return
	}

	totals, err := s.AnalyticsService.GetDailyTotals(r.Context(), userID, from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUUID(w, r, "userID")
	if !ok {
		return
	}

	var req struct {
		Category     string `json:"category"`
		TargetAmount string `json:"target_amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Category == "" {
		writeBadRequest(w, "category and target_amount are required")
		return
	}
	target, err := decimal.NewFromString(req.TargetAmount)
	if err != nil {
		writeBadRequest(w, "invalid target_amount format")
		return
	}

	created, err := s.BudgetService.Create(r.Context(), userID, req.Category, target)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUUID(w, r, "userID")
	if !ok {
		return
	}

	budgets, err := s.BudgetService.List(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, budgets)
}

func (s *Server) handleBudgetProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUUID(w, r, "userID")
	if !ok {
		return
	}

	month := time.Now().UTC()
	if raw := r.URL.Query().Get("month"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01", raw, time.UTC)
		if err != nil {
			writeBadRequest(w, "month must be formatted YYYY-MM")
			return
		}
		month = parsed
	}

	progress, err := s.BudgetService.GetProgress(r.Context(), userID, month)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	budgetID, ok := pathUUID(w, r, "budgetID")
	if !ok {
		return
	}

	if err := s.BudgetService.Delete(r.Context(), budgetID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		writeBadRequest(w, "invalid "+name+" format")
		return uuid.Nil, false
	}
	return id, true
}

// queryDateRange parses from/to query params (YYYY-MM-DD, inclusive),
// defaulting to the trailing 30 days
func queryDateRange(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now

	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.ParseInLocation(dateLayout, raw, time.UTC)
		if err != nil {
			writeBadRequest(w, "from must be formatted YYYY-MM-DD")
			return time.Time{}, time.Time{}, false
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.ParseInLocation(dateLayout, raw, time.UTC)
		if err != nil {
			writeBadRequest(w, "to must be formatted YYYY-MM-DD")
			return time.Time{}, time.Time{}, false
		}
		// Inclusive end of day
		to = parsed.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return from, to, true
}
