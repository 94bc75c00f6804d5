package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"parkalert/internal/bootstrap/logging"
	"parkalert/internal/domain/parking"
	"parkalert/internal/errs"
)

var (
	errForbidden  = errors.New("not allowed for this account")
	errBadRequest = errors.New("malformed request")
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps an error onto a status code. Unclassified and transient
// failures get a generic message and are logged with their chain.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	kind := parking.KindOf(err)
	resp := errorResponse{Error: err.Error(), Kind: kind.String()}

	var validationErrs validator.ValidationErrors
	var quotaErr *parking.QuotaError
	switch {
	case errors.Is(err, errForbidden):
		resp.Kind = parking.KindClient.String()
		writeJSON(w, http.StatusForbidden, resp)
	case errors.Is(err, errBadRequest), errors.As(err, &validationErrs):
		resp.Kind = parking.KindClient.String()
		writeJSON(w, http.StatusBadRequest, resp)
	case errors.As(err, &quotaErr):
		quota := quotaErr.Quota
		resp.Tier = string(quotaErr.Tier)
		resp.Quota = &quota
		resp.ResetAt = quotaErr.ResetAt.UTC().Format(time.RFC3339)
		w.Header().Set("Retry-After", retryAfter(quotaErr.ResetAt))
		writeJSON(w, http.StatusTooManyRequests, resp)
	case kind == parking.KindPolicy:
		writeJSON(w, http.StatusForbidden, resp)
	case kind == parking.KindConflict:
		writeJSON(w, http.StatusConflict, resp)
	case kind == parking.KindClient:
		writeJSON(w, clientStatus(err), resp)
	case kind == parking.KindTransient || errs.IsTemporary(err):
		logging.Warn(ctx, "request failed with transient error", slog.Any("err", errs.Loggable(err)))
		w.Header().Set("Retry-After", "1")
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "service temporarily unavailable", Kind: parking.KindTransient.String()})
	default:
		logging.Error(ctx, "request failed", slog.Any("err", errs.Loggable(err)))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func clientStatus(err error) int {
	switch {
	case errors.Is(err, parking.ErrAccountNotFound),
		errors.Is(err, parking.ErrIdentifierNotFound),
		errors.Is(err, parking.ErrAlertNotFound):
		return http.StatusNotFound
	case errors.Is(err, parking.ErrNotOwner),
		errors.Is(err, parking.ErrNotReceiver),
		errors.Is(err, parking.ErrNotSender),
		errors.Is(err, parking.ErrNotParticipant):
		return http.StatusForbidden
	case errors.Is(err, parking.ErrInvalidState),
		errors.Is(err, parking.ErrNotExpired):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func retryAfter(at time.Time) string {
	seconds := int(time.Until(at).Seconds())
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}
