// Package http exposes the ledger as a JSON API for the SPA. Handlers
// stay thin: parse, call a service, map errors onto the response
// taxonomy. Derived views are cached per user and invalidated on
// mutation.
package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"kosh/internal/cache"
	"kosh/internal/core"
	"kosh/internal/middleware/ratelimit"
	"kosh/internal/middleware/security"
	"kosh/internal/middleware/trace"
	"kosh/internal/services"
)

type Server struct {
	http.Server

	budget       *services.BudgetService
	transactions *services.TransactionService
	debts        *services.DebtService
	savings      *services.SavingsService
	dashboard    *services.DashboardService

	snapshotCache *cache.LRUCache[core.BudgetSnapshot]
	statsCache    *cache.LRUCache[services.DashboardStats]
	cacheManager  *cache.Manager

	limiter      *ratelimit.Limiter
	detector     *security.Detector
	shutdownOnce sync.Once
}

// Deps carries the services the server routes to.
type Deps struct {
	Budget       *services.BudgetService
	Transactions *services.TransactionService
	Debts        *services.DebtService
	Savings      *services.SavingsService
	Dashboard    *services.DashboardService
}

func NewServer(addr string, allowedOrigin string, deps Deps) *Server {
	mux := http.NewServeMux()

	s := &Server{
		budget:        deps.Budget,
		transactions:  deps.Transactions,
		debts:         deps.Debts,
		savings:       deps.Savings,
		dashboard:     deps.Dashboard,
		snapshotCache: cache.NewLRUCache[core.BudgetSnapshot](500, 30*time.Second),
		statsCache:    cache.NewLRUCache[services.DashboardStats](500, time.Minute),
		cacheManager:  cache.NewManager(),
		limiter:       ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector:      security.NewDetector(),
	}

	s.cacheManager.Register(s.snapshotCache)
	s.cacheManager.Register(s.statsCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /budget", s.handleGetBudget)
	mux.HandleFunc("POST /budget/configure", s.handleConfigureBudget)
	mux.HandleFunc("POST /budget/sweep", s.handleSweep)
	mux.HandleFunc("POST /budget/sweep/undo", s.handleUndoSweep)

	mux.HandleFunc("GET /transactions", s.handleListTransactions)
	mux.HandleFunc("POST /transactions", s.handleCreateTransaction)
	mux.HandleFunc("DELETE /transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("POST /transactions/import", s.handleImportTransactions)

	mux.HandleFunc("GET /categories/breakdown", s.handleCategoryBreakdown)

	mux.HandleFunc("GET /savings", s.handleListSavings)
	mux.HandleFunc("POST /savings", s.handleCreateSavings)
	mux.HandleFunc("POST /savings/{id}/deposit", s.handleDepositSavings)
	mux.HandleFunc("DELETE /savings/{id}", s.handleDeleteSavings)

	mux.HandleFunc("GET /debts", s.handleListDebts)
	mux.HandleFunc("POST /debts", s.handleCreateDebt)
	mux.HandleFunc("POST /debts/{id}/settle", s.handleSettleDebt)
	mux.HandleFunc("DELETE /debts/{id}", s.handleDeleteDebt)

	mux.HandleFunc("GET /dashboard/stats", s.handleDashboardStats)
	mux.HandleFunc("GET /dashboard/trend", s.handleDashboardTrend)

	headers := security.DefaultHeadersConfig()
	headers.AllowedOrigin = allowedOrigin
	traced := trace.NewMiddleware(s.detector.ExtractClientIP)

	handler := s.withWriteLimit(mux)
	handler = headers.Middleware(handler)
	handler = traced.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// withWriteLimit rate-limits mutating methods only; the SPA polls reads
// aggressively and must not starve itself out.
func (s *Server) withWriteLimit(next http.Handler) http.Handler {
	limited := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "60")
		writeJSON(w, http.StatusTooManyRequests, errorBody{
			Detail: "rate limit exceeded, try again later",
			Code:   "rate_limited",
		})
	})(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodDelete:
			limited.ServeHTTP(w, r)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// invalidateUser drops every cached view for the user after a mutation.
func (s *Server) invalidateUser(userID int64) {
	prefix := fmt.Sprintf("user:%d:", userID)
	s.snapshotCache.DeletePrefix(prefix)
	s.statsCache.DeletePrefix(prefix)
}

func snapshotKey(userID int64, day string) string {
	return fmt.Sprintf("user:%d:budget:%s", userID, day)
}

func statsKey(userID int64, month string) string {
	return fmt.Sprintf("user:%d:stats:%s", userID, month)
}

// Shutdown stops the HTTP listener and the background cleanup loops.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
