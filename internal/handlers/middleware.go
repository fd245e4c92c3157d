package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"familyquest/internal/logger"
	"familyquest/internal/models"
	"familyquest/internal/security"
	"familyquest/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	AccountContextKey   ContextKey = "account"
	ChildIDContextKey   ContextKey = "child_id"
	RequestIDContextKey ContextKey = "request_id"
)

const requestIDHeader = "X-Request-ID"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	accountService *service.AccountService
	familyService  *service.FamilyService
	limiter        *security.RateLimiter
	log            *logger.Logger
}

// NewMiddleware creates a new middleware instance. limiter may be nil to
// disable rate limiting.
func NewMiddleware(accountService *service.AccountService, familyService *service.FamilyService, limiter *security.RateLimiter, log *logger.Logger) *Middleware {
	return &Middleware{
		accountService: accountService,
		familyService:  familyService,
		limiter:        limiter,
		log:            log,
	}
}

// RequireAuth is middleware that requires a valid bearer token
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := security.TokenFromRequest(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing token")
			return
		}

		account, err := m.accountService.AccountFromToken(r.Context(), token)
		if err != nil {
			respondWithServiceError(w, m.log, "Failed to resolve bearer token", err)
			return
		}

		ctx := context.WithValue(r.Context(), AccountContextKey, account)
		next(w, r.WithContext(ctx))
	}
}

// RequireChild only lets child accounts through
func (m *Middleware) RequireChild(next http.HandlerFunc) http.HandlerFunc {
	return m.requireRole(models.RoleChild, next)
}

// RequireParent only lets parent accounts through
func (m *Middleware) RequireParent(next http.HandlerFunc) http.HandlerFunc {
	return m.requireRole(models.RoleParent, next)
}

func (m *Middleware) requireRole(role models.Role, next http.HandlerFunc) http.HandlerFunc {
	return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		account := GetAccountFromContext(r.Context())
		if account.Role != role {
			writeError(w, http.StatusForbidden, "FORBIDDEN", ErrForbidden)
			return
		}
		next(w, r)
	})
}

// RequireChildAccess guards routes with a {id} child path value. A child may
// only reach its own data, a parent only the children linked to it.
func (m *Middleware) RequireChildAccess(next http.HandlerFunc) http.HandlerFunc {
	return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		childID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil || childID <= 0 {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", ErrInvalidID)
			return
		}

		account := GetAccountFromContext(r.Context())
		allowed := false
		switch account.Role {
		case models.RoleChild:
			allowed = account.ID == childID
		case models.RoleParent:
			allowed, err = m.familyService.IsParentOf(r.Context(), account.ID, childID)
			if err != nil {
				respondWithError(w, m.log, http.StatusInternalServerError, ErrInternalServerError, "Failed to check family link", err)
				return
			}
		}
		if !allowed {
			m.log.Debug("child access denied", "account_id", account.ID, "child_id", childID)
			writeError(w, http.StatusForbidden, "FORBIDDEN", ErrForbidden)
			return
		}

		ctx := context.WithValue(r.Context(), ChildIDContextKey, childID)
		next(w, r.WithContext(ctx))
	})
}

// RateLimit rejects clients that exceed the login budget
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.limiter != nil {
			ip := security.GetClientIP(r)
			if !m.limiter.Allow(ip) {
				m.log.Warn("rate limit exceeded", "client_ip", ip, "path", r.URL.Path)
				w.Header().Set("Retry-After", "60")
				writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", ErrTooManyRequests)
				return
			}
		}
		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Logging middleware tags each request with an ID and logs it once served
func Logging(log *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" || len(requestID) > 64 {
			requestID = security.GenerateRequestID()
		}
		w.Header().Set(requestIDHeader, requestID)
		ctx := context.WithValue(r.Context(), RequestIDContextKey, requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
			"request_id", requestID,
			"client_ip", security.GetClientIP(r),
		)
	})
}

// GetAccountFromContext retrieves the authenticated account from the request context
func GetAccountFromContext(ctx context.Context) *models.Account {
	account, ok := ctx.Value(AccountContextKey).(*models.Account)
	if !ok {
		return nil
	}
	return account
}

// GetChildIDFromContext returns the child ID checked by RequireChildAccess
func GetChildIDFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(ChildIDContextKey).(int64)
	return id
}

// GetRequestID returns the request correlation ID
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDContextKey).(string)
	return id
}
