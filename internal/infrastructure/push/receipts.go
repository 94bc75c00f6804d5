package push

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"

	"parkalert/internal/bootstrap/logging"
	"parkalert/internal/errs"
)

const DefaultReceiptsSubject = "parkalert.receipts"

// Receipt is what a push gateway publishes once a device got the alert.
type Receipt struct {
	AlertID string `json:"alertId"`
}

// ReceiptHandler is usually router.Service.MarkDelivered.
type ReceiptHandler func(ctx context.Context, alertID string) error

// SubscribeReceipts feeds delivery receipts into handle until the returned
// subscription is drained.
func SubscribeReceipts(ctx context.Context, conn *nats.Conn, subject string, handle ReceiptHandler) (*nats.Subscription, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if conn == nil || handle == nil {
		return nil, errors.New("nats connection and handler are required")
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = DefaultReceiptsSubject
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "infrastructure.push.receipts"), slog.String("subject", subject))

	sub, err := conn.Subscribe(subject, func(msg *nats.Msg) {
		HandleReceipt(logCtx, msg.Data, handle)
	})
	if err != nil {
		return nil, errs.Wrapf(err, "subscribe %s", subject)
	}
	logging.Info(logCtx, "delivery receipts subscribed")
	return sub, nil
}

// HandleReceipt decodes one receipt and applies it. Failures are logged; a
// receipt for an alert that already moved on is a no-op in the handler.
func HandleReceipt(ctx context.Context, data []byte, handle ReceiptHandler) {
	var receipt Receipt
	if err := json.Unmarshal(data, &receipt); err != nil {
		logging.Warn(ctx, "drop malformed delivery receipt", slog.Any("err", errs.Loggable(err)))
		return
	}
	if strings.TrimSpace(receipt.AlertID) == "" {
		logging.Warn(ctx, "drop delivery receipt without alert id")
		return
	}
	if err := handle(ctx, receipt.AlertID); err != nil {
		logging.Warn(ctx, "apply delivery receipt failed",
			slog.String("alert_id", receipt.AlertID),
			slog.Any("err", errs.Loggable(err)),
		)
	}
}
