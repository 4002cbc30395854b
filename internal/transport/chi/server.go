package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	gochi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/superbrain-ai/superbrain/internal/domain"
	domchat "github.com/superbrain-ai/superbrain/internal/domain/chat"
	domusage "github.com/superbrain-ai/superbrain/internal/domain/usage"
	logpkg "github.com/superbrain-ai/superbrain/internal/logger"
	chatuc "github.com/superbrain-ai/superbrain/internal/usecase/chat"
	completionuc "github.com/superbrain-ai/superbrain/internal/usecase/completion"
	"github.com/superbrain-ai/superbrain/internal/usecase/entitlement"
	healthuc "github.com/superbrain-ai/superbrain/internal/usecase/health"
	sessionuc "github.com/superbrain-ai/superbrain/internal/usecase/session"
	usageuc "github.com/superbrain-ai/superbrain/internal/usecase/usage"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server carries the HTTP handlers for the superbrain API.
type Server struct {
	sessions      *sessionuc.Manager
	completions   *completionuc.Service
	chat          *chatuc.Service
	tracker       *entitlement.Tracker
	usage         *usageuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	sessions *sessionuc.Manager,
	completions *completionuc.Service,
	chat *chatuc.Service,
	tracker *entitlement.Tracker,
	usage *usageuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		sessions:    sessions,
		completions: completions,
		chat:        chat,
		tracker:     tracker,
		usage:       usage,
		health:      health,
		logger:      logger,
	}
	s.errorHandlers = []errorHandler{
		quotaExceededHandler,
		sentinelHandler(domain.ErrProviderError, http.StatusBadGateway, ErrorCodeProviderError),
		sentinelHandler(domain.ErrSessionNotFound, http.StatusNotFound, ErrorCodeSessionNotFound),
		sentinelHandler(domain.ErrEmptyInstruction, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrMessageTooLarge, http.StatusBadRequest, ErrorCodeValidationFailed),
	}
	return s
}

// NewRouter mounts the API on a fresh chi router wrapped in the given
// middlewares. Everything under /api/v1 runs with a resolved session.
func NewRouter(s *Server, middlewares ...func(http.Handler) http.Handler) *gochi.Mux {
	r := gochi.NewRouter()
	for _, mw := range middlewares {
		r.Use(mw)
	}

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(api gochi.Router) {
		api.Use(s.sessionMiddleware)
		api.Post("/completions", s.CreateCompletion)
		api.Post("/chat/messages", s.SendChatMessage)
		api.Get("/chat/history", s.GetChatHistory)
		api.Delete("/chat/history", s.ClearChatHistory)
		api.Post("/unlock", s.Unlock)
		api.Get("/usage", s.GetUsage)
		api.Delete("/session", s.DestroySession)
	})

	return r
}

// CreateCompletion handles POST /api/v1/completions.
func (s *Server) CreateCompletion(w http.ResponseWriter, r *http.Request) {
	var req CompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	sess := sessionFromContext(r.Context())
	ctx, usage := domain.NewContextWithUsage(r.Context())

	if req.Mode != "" {
		logpkg.FromContext(r.Context(), s.logger).Debug("Completion mode", zap.String("mode", req.Mode))
	}

	instruction := strings.TrimSpace(req.UserInstruction)
	result, err := s.completions.Complete(ctx, sess, req.SystemInstruction, instruction, nil)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setCompletionHeaders(w, usage)
	writeJSON(w, http.StatusOK, CompletionResponse{
		Text:             result.Text,
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
		TotalTokens:      result.TotalTokens,
		Usage:            usageToWire(s.usage.GetReport(sess)),
	})
}

// SendChatMessage handles POST /api/v1/chat/messages.
func (s *Server) SendChatMessage(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	sess := sessionFromContext(r.Context())
	ctx, usage := domain.NewContextWithUsage(r.Context())

	result, err := s.chat.Send(ctx, sess, req.Message)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setCompletionHeaders(w, usage)
	writeJSON(w, http.StatusOK, ChatResponse{
		Reply:       result.Text,
		TotalTokens: result.TotalTokens,
		Usage:       usageToWire(s.usage.GetReport(sess)),
	})
}

// GetChatHistory handles GET /api/v1/chat/history.
func (s *Server) GetChatHistory(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	writeJSON(w, http.StatusOK, historyToWire(s.chat.History(sess)))
}

// ClearChatHistory handles DELETE /api/v1/chat/history.
func (s *Server) ClearChatHistory(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	s.chat.Clear(sess)
	w.WriteHeader(http.StatusNoContent)
}

// Unlock handles POST /api/v1/unlock. A wrong code yields 200 with
// unlocked=false, not an error status.
func (s *Server) Unlock(w http.ResponseWriter, r *http.Request) {
	var req UnlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	sess := sessionFromContext(r.Context())
	unlocked := s.tracker.AttemptUnlock(sess, req.Code)

	writeJSON(w, http.StatusOK, UnlockResponse{
		Unlocked: unlocked,
		Usage:    usageToWire(s.usage.GetReport(sess)),
	})
}

// GetUsage handles GET /api/v1/usage.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	writeJSON(w, http.StatusOK, usageToWire(s.usage.GetReport(sess)))
}

// DestroySession handles DELETE /api/v1/session.
func (s *Server) DestroySession(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	s.sessions.Destroy(sess)
	clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string)
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:   string(report.Status),
		Checks:   checks,
		Sessions: report.Sessions,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func setCompletionHeaders(w http.ResponseWriter, usage *domain.CompletionUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Completion-Tokens", strconv.Itoa(usage.TotalTokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrQuotaExceeded,
		domain.ErrProviderError,
		domain.ErrSessionNotFound,
		domain.ErrEmptyInstruction,
		domain.ErrMessageTooLarge,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// quotaExceededHandler handles ErrQuotaExceeded with the configured limit as
// an extra field, so clients can render the refusal without parsing text.
func quotaExceededHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrQuotaExceeded) {
		return false
	}
	var qe *domain.QuotaExceededError
	if errors.As(err, &qe) {
		writeJSON(w, http.StatusPaymentRequired, map[string]any{
			"code":    ErrorCodeQuotaExceeded,
			"message": qe.Error(),
			"limit":   qe.Limit,
		})
		return true
	}
	writeError(w, http.StatusPaymentRequired, ErrorCodeQuotaExceeded, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context(), s.logger)
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			log.Warn("request refused", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}

func usageToWire(report domusage.Report) UsageResponse {
	resp := UsageResponse{
		Plan:      string(report.Plan()),
		Limit:     report.Limit(),
		Used:      report.Used(),
		Remaining: report.Remaining(),
		Exhausted: report.Exhausted(),
	}
	if report.PremiumSince() > 0 {
		t := time.UnixMilli(report.PremiumSince()).UTC()
		resp.PremiumSinceAt = &t
	}
	return resp
}

func historyToWire(turns []domchat.Turn) HistoryListResponse {
	items := make([]HistoryTurn, len(turns))
	for i, t := range turns {
		items[i] = HistoryTurn{Role: string(t.Role()), Text: t.Text()}
	}
	return HistoryListResponse{Items: items, Total: len(items)}
}
