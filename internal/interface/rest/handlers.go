package rest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"parkalert/internal/bootstrap/logging"
	"parkalert/internal/domain/parking"
	"parkalert/internal/errs"
	"parkalert/internal/usecase/registry"
	"parkalert/internal/usecase/router"
)

func (h *handler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return h.validate.Struct(dst)
}

// self enforces that a path account id is the caller's own.
func self(r *http.Request) (string, error) {
	caller := accountFrom(r.Context())
	if caller == "" || strings.TrimSpace(chi.URLParam(r, "accountID")) != caller {
		return "", errForbidden
	}
	return caller, nil
}

func (h *handler) createAccount(w http.ResponseWriter, r *http.Request) {
	if h.deps.Accounts == nil || h.deps.Tokens == nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "provisioning is not configured"})
		return
	}
	account, err := h.deps.Accounts.Create(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	token, expiresAt, err := h.deps.Tokens.Issue(account.AccountID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createAccountResponse{
		AccountID:      account.AccountID,
		Token:          token,
		TokenExpiresAt: expiresAt,
	})
}

func (h *handler) wipeAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := self(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.deps.Accounts.Wipe(r.Context(), accountID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wipeResponse{
		AccountID:       accountID,
		Identifiers:     result.Identifiers,
		CancelledAlerts: result.CancelledAlerts,
	})
}

func (h *handler) reputation(w http.ResponseWriter, r *http.Request) {
	accountID, err := self(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := h.deps.Ledger.Summary(r.Context(), accountID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reputationResponse{
		AccountID:           summary.AccountID,
		Score:               summary.Score,
		Tier:                string(summary.Tier.Name),
		Status:              string(summary.Status),
		DailyQuota:          summary.DailyQuota,
		DailyQuotaRemaining: summary.RemainingToday,
		QuotaResetsAt:       summary.QuotaResetsAt,
	})
}

func (h *handler) registerIdentifier(w http.ResponseWriter, r *http.Request) {
	var req registerIdentifierRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.deps.Registry.Register(r.Context(), registry.RegisterInput{
		IdentifierHash: req.IdentifierHash,
		OwnerAccountID: accountFrom(r.Context()),
		ProofHash:      req.ProofHash,
		DisplayCode:    req.DisplayCode,
		OriginProxy:    h.originProxy(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := toIdentifierResponse(result.Identifier)
	out.Created = result.Created
	out.Transferred = result.Transferred
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, out)
}

func (h *handler) resolveOwner(w http.ResponseWriter, r *http.Request) {
	owner, err := h.deps.Registry.ResolveOwner(r.Context(), chi.URLParam(r, "hash"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ownerResponse{AccountID: owner})
}

func (h *handler) transferIdentifier(w http.ResponseWriter, r *http.Request) {
	var req transferIdentifierRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	identifier, err := h.deps.Registry.TransferOwnership(r.Context(), registry.TransferInput{
		IdentifierHash:    chi.URLParam(r, "hash"),
		NewOwnerAccountID: accountFrom(r.Context()),
		ProofHash:         req.ProofHash,
		OriginProxy:       h.originProxy(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toIdentifierResponse(identifier))
}

func (h *handler) unregisterIdentifier(w http.ResponseWriter, r *http.Request) {
	cancelled, err := h.deps.Registry.Unregister(r.Context(), chi.URLParam(r, "hash"), accountFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("X-Alerts-Cancelled", strconv.Itoa(cancelled))
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) sendAlert(w http.ResponseWriter, r *http.Request) {
	var req sendAlertRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	caller := accountFrom(r.Context())
	if sender := strings.TrimSpace(req.SenderAccountID); sender != "" && sender != caller {
		writeError(w, r, errForbidden)
		return
	}
	alert, err := h.deps.Router.SendAlert(r.Context(), router.SendInput{
		SenderAccountID:      caller,
		TargetIdentifierHash: req.TargetIdentifierHash,
		Urgency:              req.Urgency,
		Message:              req.Message,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := toAlertResponse(alert, caller)
	if out.Flagged && h.deps.Ledger != nil {
		// The alert exists already; a failed lookup only drops the detail.
		summary, err := h.deps.Ledger.Summary(r.Context(), caller)
		if err != nil {
			logging.Warn(r.Context(), "flagged notice summary failed", slog.Any("err", errs.Loggable(err)))
		} else {
			out = withPolicyNotice(out, summary)
		}
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *handler) getAlert(w http.ResponseWriter, r *http.Request) {
	caller := accountFrom(r.Context())
	alert, err := h.deps.Router.Get(r.Context(), chi.URLParam(r, "alertID"), caller)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAlertResponse(alert, caller))
}

func (h *handler) applyAction(w http.ResponseWriter, r *http.Request) {
	var req alertActionRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	action, err := parking.ParseAlertAction(req.Action)
	if err != nil {
		writeError(w, r, err)
		return
	}
	caller := accountFrom(r.Context())
	alert, err := h.deps.Router.Apply(r.Context(), chi.URLParam(r, "alertID"), caller, action, req.Response)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAlertResponse(alert, caller))
}
