package rest

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ReceiptSignatureHeader carries "sha256=<hex hmac of the body>" on push
// provider delivery receipts.
const ReceiptSignatureHeader = "X-Parkalert-Signature"

type receiptRequest struct {
	AlertID    string `json:"alertId" validate:"required,max=64"`
	ProviderID string `json:"providerId" validate:"omitempty,max=128"`
}

type receiptResponse struct {
	AlertID string `json:"alertId"`
	Status  string `json:"status"`
}

// pushReceipt lets a push provider confirm device delivery over HTTP, the
// same transition the NATS receipts subscriber performs.
func (h *handler) pushReceipt(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to read payload"})
		return
	}
	if err := validateReceiptSignature(h.deps.ReceiptSecret, r.Header.Get(ReceiptSignatureHeader), payload); err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
		return
	}

	var req receiptRequest
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, r, err)
		return
	}

	alert, err := h.deps.Router.MarkDelivered(r.Context(), strings.TrimSpace(req.AlertID))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, receiptResponse{AlertID: alert.AlertID, Status: string(alert.Status)})
}

// SignReceipt returns the header value a provider sends for payload.
func SignReceipt(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(strings.TrimSpace(secret)))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func validateReceiptSignature(secret string, signatureHeader string, payload []byte) error {
	normalizedSecret := strings.TrimSpace(secret)
	if normalizedSecret == "" {
		return errors.New("receipt webhook is not configured")
	}

	signature := strings.TrimSpace(signatureHeader)
	if signature == "" {
		return errors.New("missing " + ReceiptSignatureHeader)
	}

	const prefix = "sha256="
	if len(signature) <= len(prefix) || !strings.EqualFold(signature[:len(prefix)], prefix) {
		return errors.New("invalid " + ReceiptSignatureHeader + " format")
	}

	decoded, err := hex.DecodeString(strings.TrimSpace(signature[len(prefix):]))
	if err != nil {
		return errors.New("invalid " + ReceiptSignatureHeader + " digest")
	}

	mac := hmac.New(sha256.New, []byte(normalizedSecret))
	mac.Write(payload)
	if !hmac.Equal(decoded, mac.Sum(nil)) {
		return errors.New("invalid " + ReceiptSignatureHeader)
	}
	return nil
}
