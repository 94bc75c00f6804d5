package push

import (
	"context"
	"errors"
	"log/slog"

	"parkalert/internal/bootstrap/logging"
	"parkalert/internal/errs"
	"parkalert/internal/ports"
)

// LogSender writes notifications to the log. It is the default for local runs
// where no broker is configured.
type LogSender struct{}

var _ ports.PushSender = LogSender{}

func (LogSender) Send(ctx context.Context, msg ports.PushMessage) (ports.DeliveryResult, error) {
	if ctx == nil {
		return ports.DeliveryResult{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return ports.DeliveryResult{}, errs.Wrap(err, "check context")
	}

	logging.Info(
		logging.WithAttrs(ctx, slog.String("component", "infrastructure.push")),
		"push notification",
		slog.String("account_id", msg.AccountID),
		slog.String("alert_id", msg.AlertID),
		slog.String("title", msg.Title),
		slog.String("urgency", string(msg.Urgency)),
		slog.String("sound", msg.SoundHint),
	)
	return ports.DeliveryResult{Accepted: true}, nil
}
