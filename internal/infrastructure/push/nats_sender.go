package push

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/nats-io/nats.go"

	"parkalert/internal/errs"
	"parkalert/internal/ports"
)

const DefaultSubjectPrefix = "parkalert.push"

// Notification is the JSON body published for push gateways.
type Notification struct {
	AccountID string `json:"accountId"`
	AlertID   string `json:"alertId"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Urgency   string `json:"urgency"`
	Sound     string `json:"sound"`
}

// NATSSender publishes notifications on <prefix>.<accountId>. A gateway owns
// the device tokens and reports receipts back on a separate subject.
type NATSSender struct {
	conn   *nats.Conn
	prefix string
}

var _ ports.PushSender = (*NATSSender)(nil)

func NewNATSSender(conn *nats.Conn, prefix string) *NATSSender {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSSender{conn: conn, prefix: prefix}
}

func (s *NATSSender) Subject(accountID string) string {
	return s.prefix + "." + accountID
}

func (s *NATSSender) Send(ctx context.Context, msg ports.PushMessage) (ports.DeliveryResult, error) {
	if ctx == nil {
		return ports.DeliveryResult{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return ports.DeliveryResult{}, errs.Wrap(err, "check context")
	}
	if strings.TrimSpace(msg.AccountID) == "" {
		return ports.DeliveryResult{}, errors.New("push account id is required")
	}

	payload, err := json.Marshal(Notification{
		AccountID: msg.AccountID,
		AlertID:   msg.AlertID,
		Title:     msg.Title,
		Body:      msg.Body,
		Urgency:   string(msg.Urgency),
		Sound:     msg.SoundHint,
	})
	if err != nil {
		return ports.DeliveryResult{}, errs.Wrap(err, "marshal notification")
	}

	out := nats.NewMsg(s.Subject(msg.AccountID))
	out.Data = payload
	out.Header.Set(nats.MsgIdHdr, msg.AlertID)
	if err := s.conn.PublishMsg(out); err != nil {
		return ports.DeliveryResult{}, errs.Wrap(err, "publish notification")
	}
	return ports.DeliveryResult{Accepted: true, ProviderID: msg.AlertID}, nil
}

// Connect dials the broker with reconnects enabled.
func Connect(url string, name string) (*nats.Conn, error) {
	if strings.TrimSpace(url) == "" {
		url = nats.DefaultURL
	}
	conn, err := nats.Connect(url, nats.Name(name), nats.MaxReconnects(-1))
	if err != nil {
		return nil, errs.Wrapf(err, "connect nats %s", url)
	}
	return conn, nil
}
