package rest

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"parkalert/internal/bootstrap/logging"
)

type accountKey struct{}

func withAccount(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, accountKey{}, accountID)
}

func accountFrom(ctx context.Context) string {
	id, _ := ctx.Value(accountKey{}).(string)
	return id
}

func (h *handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logging.WithAttrs(r.Context(),
			slog.String("component", "interface.rest"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
		r = r.WithContext(ctx)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		if h.deps.Observer != nil {
			h.deps.Observer.ObserveHTTP(r.Method, route, status, elapsed.Seconds())
		}
		logging.Debug(ctx, "http request",
			slog.String("method", r.Method),
			slog.String("route", route),
			slog.Int("status", status),
			slog.Duration("elapsed", elapsed),
		)
	})
}

func (h *handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.deps.Tokens == nil {
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "authentication is not configured"})
			return
		}
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		const prefix = "Bearer "
		if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
			return
		}
		accountID, err := h.deps.Tokens.Parse(strings.TrimSpace(header[len(prefix):]))
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid bearer token"})
			return
		}
		ctx := logging.WithAttrs(withAccount(r.Context(), accountID), slog.String("account_id", accountID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// realIP applies middleware.RealIP only for requests relayed by a trusted
// proxy, so a direct client cannot pick its own address.
func (h *handler) realIP(next http.Handler) http.Handler {
	forwarded := middleware.RealIP(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.trustedPeer(r.RemoteAddr) {
			forwarded.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *handler) trustedPeer(remoteAddr string) bool {
	if len(h.deps.TrustedProxies) == 0 {
		return false
	}
	addrPort, err := netip.ParseAddrPort(remoteAddr)
	if err != nil {
		return false
	}
	addr := addrPort.Addr().Unmap()
	for _, prefix := range h.deps.TrustedProxies {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// originProxy is an HMAC of the client address, or empty when no secret is
// configured and the registry falls back to the account id.
func (h *handler) originProxy(r *http.Request) string {
	secret := strings.TrimSpace(h.deps.OriginSecret)
	if secret == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(host))
	return "origin:" + hex.EncodeToString(mac.Sum(nil))
}
