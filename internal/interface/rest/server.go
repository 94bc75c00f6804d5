// Package rest exposes the parking alert usecases as a JSON API.
package rest

import (
	"context"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"parkalert/internal/domain/parking"
	"parkalert/internal/usecase/accounts"
	"parkalert/internal/usecase/ledger"
	"parkalert/internal/usecase/registry"
	"parkalert/internal/usecase/router"
)

const maxBodyBytes = 16 << 10

type AccountService interface {
	Create(ctx context.Context) (parking.Account, error)
	Wipe(ctx context.Context, accountID string) (accounts.WipeResult, error)
}

type RegistryService interface {
	Register(ctx context.Context, input registry.RegisterInput) (registry.RegisterResult, error)
	TransferOwnership(ctx context.Context, input registry.TransferInput) (parking.Identifier, error)
	Unregister(ctx context.Context, identifierHash string, ownerAccountID string) (int, error)
	ResolveOwner(ctx context.Context, identifierHash string) (string, error)
}

type RouterService interface {
	SendAlert(ctx context.Context, input router.SendInput) (parking.Alert, error)
	Get(ctx context.Context, alertID string, callerAccountID string) (parking.Alert, error)
	Apply(ctx context.Context, alertID string, actorAccountID string, action parking.AlertAction, response string) (parking.Alert, error)
	MarkDelivered(ctx context.Context, alertID string) (parking.Alert, error)
}

type LedgerService interface {
	Summary(ctx context.Context, accountID string) (ledger.Summary, error)
}

// HTTPObserver receives one observation per served request.
type HTTPObserver interface {
	ObserveHTTP(method string, route string, code int, seconds float64)
}

type Deps struct {
	Accounts AccountService
	Registry RegistryService
	Router   RouterService
	Ledger   LedgerService

	Tokens *TokenIssuer

	// OriginSecret keys the HMAC that turns a client address into the
	// registration velocity key. Raw addresses are never stored.
	OriginSecret   string
	// TrustedProxies are the peers allowed to name the client address in
	// X-Forwarded-For or X-Real-IP. Other peers are keyed by RemoteAddr.
	TrustedProxies []netip.Prefix
	// ReceiptSecret enables POST /webhooks/push-receipts when set.
	ReceiptSecret  string

	Observer HTTPObserver
	Metrics  http.Handler
	Health   func(ctx context.Context) error
}

type handler struct {
	deps     Deps
	validate *validator.Validate
}

// NewHandler builds the API router.
func NewHandler(deps Deps) http.Handler {
	h := &handler{
		deps:     deps,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(h.realIP)
	r.Use(h.accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.healthz)
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	r.Post("/accounts", h.createAccount)
	r.Get("/identifiers/{hash}/owner", h.resolveOwner)
	if strings.TrimSpace(deps.ReceiptSecret) != "" {
		r.Post("/webhooks/push-receipts", h.pushReceipt)
	}

	r.Group(func(r chi.Router) {
		r.Use(h.authenticate)

		r.Delete("/accounts/{accountID}", h.wipeAccount)
		r.Get("/accounts/{accountID}/reputation", h.reputation)

		r.Post("/identifiers", h.registerIdentifier)
		r.Post("/identifiers/{hash}/transfer", h.transferIdentifier)
		r.Delete("/identifiers/{hash}", h.unregisterIdentifier)

		r.Post("/alerts", h.sendAlert)
		r.Get("/alerts/{alertID}", h.getAlert)
		r.Patch("/alerts/{alertID}", h.applyAction)
	})
	return r
}

// NewServer wraps the handler with the configured timeouts.
func NewServer(addr string, handler http.Handler, readTimeout time.Duration) *http.Server {
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      2 * readTimeout,
		IdleTimeout:       60 * time.Second,
	}
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.deps.Health != nil {
		if err := h.deps.Health(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "storage unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
