package server

import (
	"FlowLedger/internal/observability"
	"FlowLedger/internal/persistence"
	"FlowLedger/internal/projection"
	"FlowLedger/internal/query"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HTTPServer serves the read-side query API, admin endpoints, and health
// checks over HTTP/JSON.
type HTTPServer struct {
	httpServer    *http.Server
	addr          string
	healthChecker *observability.HealthChecker
	logger        zerolog.Logger
}

// ServerDeps holds all dependencies needed by the HTTP handlers.
type ServerDeps struct {
	DB            *sql.DB
	QueryService  *query.QueryService
	SnapshotMgr   *persistence.SnapshotManager
	StartTime     time.Time
	HealthChecker *observability.HealthChecker
}

// NewHTTPServer creates the query API server with all routes registered.
func NewHTTPServer(addr string, deps *ServerDeps) *HTTPServer {
	h := &queryHandlers{
		db:        deps.DB,
		qs:        deps.QueryService,
		snapMgr:   deps.SnapshotMgr,
		startTime: deps.StartTime,
	}

	mux := http.NewServeMux()

	// Query endpoints
	mux.HandleFunc("GET /v1/accounts/{account}/balance", h.getBalance)
	mux.HandleFunc("GET /v1/accounts/{account}/netflow", h.getNetFlowRate)
	mux.HandleFunc("GET /v1/accounts/{account}/distributions", h.listDistributions)
	mux.HandleFunc("GET /v1/accounts/{account}/journals", h.listJournals)
	mux.HandleFunc("GET /v1/pools/{pool}", h.getPoolState)
	mux.HandleFunc("GET /v1/pools/{pool}/buffer", h.getPoolBuffer)
	mux.HandleFunc("GET /v1/pools/{pool}/members/{member}", h.getMemberState)

	// Admin endpoints
	mux.HandleFunc("GET /v1/admin/integrity", h.verifyIntegrity)
	mux.HandleFunc("POST /v1/admin/rebuild-projections", h.rebuildProjections)
	mux.HandleFunc("GET /v1/admin/eventlog", h.getEventLogInfo)

	// Health endpoints
	if deps.HealthChecker != nil {
		mux.HandleFunc("GET /healthz", deps.HealthChecker.LivenessHandler)
		mux.HandleFunc("GET /readyz", deps.HealthChecker.ReadinessHandler)
	}

	logger := observability.NewLogger("http")

	return &HTTPServer{
		httpServer:    &http.Server{Addr: addr, Handler: requestLogger(logger, mux)},
		addr:          addr,
		healthChecker: deps.HealthChecker,
		logger:        logger,
	}
}

// requestLogger emits one structured access-log line per request.
func requestLogger(logger zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Start runs the HTTP server (blocking) and shuts down on context cancel.
func (s *HTTPServer) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		log.Println("INFO: HTTP server shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	log.Printf("INFO: HTTP server listening on %s", s.addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// ============================================================================
// Query handlers
// ============================================================================

type queryHandlers struct {
	db        *sql.DB
	qs        *query.QueryService
	snapMgr   *persistence.SnapshotManager
	startTime time.Time
}

func (h *queryHandlers) getBalance(w http.ResponseWriter, r *http.Request) {
	account, err := uuid.Parse(r.PathValue("account"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid account: %v", err))
		return
	}
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "token query parameter is required")
		return
	}

	bal, err := h.qs.GetBalance(r.Context(), account, token)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("get balance: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, bal)
}

func (h *queryHandlers) getNetFlowRate(w http.ResponseWriter, r *http.Request) {
	account, err := uuid.Parse(r.PathValue("account"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid account: %v", err))
		return
	}
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "token query parameter is required")
		return
	}

	net, err := h.qs.GetNetFlowRate(r.Context(), account, token)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("get net flow rate: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, net)
}

func (h *queryHandlers) listDistributions(w http.ResponseWriter, r *http.Request) {
	account, err := uuid.Parse(r.PathValue("account"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid account: %v", err))
		return
	}

	var poolID *uuid.UUID
	if s := r.URL.Query().Get("pool_id"); s != "" {
		pid, err := uuid.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid pool_id: %v", err))
			return
		}
		poolID = &pid
	}

	limit := parseLimit(r, 50, 100)
	afterSeq := parseAfterSequence(r)

	history, err := h.qs.GetDistributionHistory(r.Context(), account, poolID, limit, afterSeq)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("get distribution history: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"distributions": history,
	})
}

func (h *queryHandlers) listJournals(w http.ResponseWriter, r *http.Request) {
	account, err := uuid.Parse(r.PathValue("account"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid account: %v", err))
		return
	}

	limit := parseLimit(r, 100, 500)
	afterSeq := parseAfterSequence(r)

	entries, err := h.qs.GetJournalHistory(r.Context(), account, limit, afterSeq)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("get journals: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"journals": entries,
	})
}

func (h *queryHandlers) getPoolState(w http.ResponseWriter, r *http.Request) {
	poolID, err := uuid.Parse(r.PathValue("pool"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid pool: %v", err))
		return
	}

	state, err := h.qs.GetPoolState(r.Context(), poolID)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("get pool state: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *queryHandlers) getPoolBuffer(w http.ResponseWriter, r *http.Request) {
	poolID, err := uuid.Parse(r.PathValue("pool"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid pool: %v", err))
		return
	}
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "token query parameter is required")
		return
	}

	buf, err := h.qs.GetPoolBuffer(r.Context(), poolID, token)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("get pool buffer: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, buf)
}

func (h *queryHandlers) getMemberState(w http.ResponseWriter, r *http.Request) {
	poolID, err := uuid.Parse(r.PathValue("pool"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid pool: %v", err))
		return
	}
	member, err := uuid.Parse(r.PathValue("member"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid member: %v", err))
		return
	}

	// as_of defaults to now: claimable balances accrue in real time, so the
	// caller picks the valuation instant.
	asOf := time.Now().Unix()
	if s := r.URL.Query().Get("as_of"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid as_of: %v", err))
			return
		}
		asOf = v
	}

	state, err := h.qs.GetMemberState(r.Context(), poolID, member, asOf)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("get member state: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// ============================================================================
// Admin handlers
// ============================================================================

func (h *queryHandlers) verifyIntegrity(w http.ResponseWriter, r *http.Request) {
	report, err := h.qs.VerifyIntegrity(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("verify integrity: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *queryHandlers) rebuildProjections(w http.ResponseWriter, r *http.Request) {
	if err := projection.RebuildProjections(r.Context(), h.db); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("rebuild failed: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rebuilt": true,
	})
}

func (h *queryHandlers) getEventLogInfo(w http.ResponseWriter, r *http.Request) {
	latestSeq, err := h.snapMgr.GetLatestSequence(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("get latest sequence: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"last_sequence":  latestSeq,
		"uptime_seconds": time.Since(h.startTime).Seconds(),
	})
}

// ============================================================================
// Helpers
// ============================================================================

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseLimit(r *http.Request, def, max int) int {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 || v > max {
		return def
	}
	return v
}

func parseAfterSequence(r *http.Request) *int64 {
	s := r.URL.Query().Get("after")
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return nil
	}
	return &v
}
