package api

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/harshverma7/payment-web/internal/auth"
	"github.com/harshverma7/payment-web/internal/directory"
	"github.com/harshverma7/payment-web/internal/ledger"
	"github.com/harshverma7/payment-web/internal/security"
)

// Dependencies carries everything the HTTP surface needs. Optional fields
// (Resolver, RateLimiter, Auditor) may be nil and their features are skipped.
type Dependencies struct {
	Logger       *slog.Logger
	Tokens       *auth.Tokens
	Directory    *directory.Service
	Resolver     *directory.Resolver
	Engine       *ledger.Engine
	Queries      *ledger.Queries
	Auditor      Auditor
	RateLimiter  *security.RedisTokenBucket
	MaxBodyBytes int64
}

// NewRouter assembles the chi router with the full middleware stack and all
// /api/v1 routes. Schema compilation errors are returned up front so a bad
// build fails at startup, not on first request.
func NewRouter(deps Dependencies) (http.Handler, error) {
	signupValidator, err := security.NewJSONSchemaValidator(signupSchema)
	if err != nil {
		return nil, fmt.Errorf("compile signup schema: %w", err)
	}
	signinValidator, err := security.NewJSONSchemaValidator(signinSchema)
	if err != nil {
		return nil, fmt.Errorf("compile signin schema: %w", err)
	}
	updateValidator, err := security.NewJSONSchemaValidator(updateUserSchema)
	if err != nil {
		return nil, fmt.Errorf("compile update schema: %w", err)
	}

	authenticate := auth.Authenticate(deps.Tokens, func(w http.ResponseWriter, r *http.Request, status int, code string) {
		security.WriteJSONError(w, r, status, code, "Authentication required")
	})

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(security.CorrelationID)
	r.Use(RequestLogger(deps.Logger))
	r.Use(security.BodySizeLimit(deps.MaxBodyBytes))
	if deps.RateLimiter != nil {
		r.Use(security.RateLimitMiddleware(deps.RateLimiter, clientIP))
	}
	if deps.Auditor != nil {
		r.Use(AuditMiddleware(deps.Auditor, deps.Logger))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		security.WriteJSONError(w, r, http.StatusNotFound, "not_found", "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		security.WriteJSONError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	})

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, req, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/user", func(r chi.Router) {
			r.With(signupValidator.Middleware).Post("/signup", handleSignup(deps))
			r.With(signinValidator.Middleware).Post("/signin", handleSignin(deps))
			r.With(authenticate, updateValidator.Middleware).Put("/", handleUpdateUser(deps))
			r.Get("/bulk", handleSearchUsers(deps))
		})

		r.Route("/account", func(r chi.Router) {
			r.Use(authenticate)
			r.Get("/balance", handleBalance(deps))
			r.Post("/transfer", handleTransfer(deps))
			r.Get("/history", handleHistory(deps))
		})
	})

	return r, nil
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
