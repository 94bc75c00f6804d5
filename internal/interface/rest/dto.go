package rest

import (
	"fmt"
	"time"

	"parkalert/internal/domain/parking"
	"parkalert/internal/usecase/ledger"
)

type errorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	Tier    string `json:"tier,omitempty"`
	Quota   *int   `json:"dailyQuota,omitempty"`
	ResetAt string `json:"quotaResetsAt,omitempty"`
}

type createAccountResponse struct {
	AccountID      string    `json:"accountId"`
	Token          string    `json:"token"`
	TokenExpiresAt time.Time `json:"tokenExpiresAt"`
}

type wipeResponse struct {
	AccountID       string `json:"accountId"`
	Identifiers     int64  `json:"identifiersDeleted"`
	CancelledAlerts int    `json:"alertsCancelled"`
}

type reputationResponse struct {
	AccountID           string    `json:"accountId"`
	Score               int       `json:"score"`
	Tier                string    `json:"tier"`
	Status              string    `json:"status"`
	DailyQuota          int       `json:"dailyQuota"`
	DailyQuotaRemaining int       `json:"dailyQuotaRemaining"`
	QuotaResetsAt       time.Time `json:"quotaResetsAt"`
}

type registerIdentifierRequest struct {
	IdentifierHash string `json:"identifierHash" validate:"required,len=64,hexadecimal"`
	ProofHash      string `json:"proofHash" validate:"required,len=64,hexadecimal"`
	DisplayCode    string `json:"displayCode" validate:"omitempty,max=20"`
}

type transferIdentifierRequest struct {
	ProofHash string `json:"proofHash" validate:"required,len=64,hexadecimal"`
}

type identifierResponse struct {
	IdentifierHash     string    `json:"identifierHash"`
	OwnerAccountID     string    `json:"ownerAccountId"`
	VerificationStatus string    `json:"verificationStatus"`
	DisplayCode        string    `json:"displayCode,omitempty"`
	RegisteredAt       time.Time `json:"registeredAt"`
	Created            bool      `json:"created,omitempty"`
	Transferred        bool      `json:"transferred,omitempty"`
}

type ownerResponse struct {
	AccountID string `json:"accountId"`
}

type sendAlertRequest struct {
	SenderAccountID      string `json:"senderAccountId" validate:"omitempty,max=64"`
	TargetIdentifierHash string `json:"targetIdentifierHash" validate:"required,len=64,hexadecimal"`
	Urgency              string `json:"urgency" validate:"omitempty,oneof=low normal high urgent LOW NORMAL HIGH URGENT"`
	Message              string `json:"message" validate:"omitempty,max=2000"`
}

type alertActionRequest struct {
	Action   string `json:"action" validate:"required,oneof=acknowledge resolve cancel report"`
	Response string `json:"response" validate:"omitempty,max=2000"`
}

type alertResponse struct {
	AlertID              string     `json:"alertId"`
	SenderAccountID      string     `json:"senderAccountId,omitempty"`
	ReceiverAccountID    string     `json:"receiverAccountId"`
	TargetIdentifierHash string     `json:"targetIdentifierHash"`
	Urgency              string     `json:"urgency"`
	SoundHint            string     `json:"soundHint"`
	Message              string     `json:"message,omitempty"`
	Response             string     `json:"response,omitempty"`
	Status               string     `json:"status"`
	SentAt               time.Time  `json:"sentAt"`
	DeliveredAt          *time.Time `json:"deliveredAt,omitempty"`
	AcknowledgedAt       *time.Time `json:"acknowledgedAt,omitempty"`
	ResolvedAt           *time.Time `json:"resolvedAt,omitempty"`
	CancelledAt          *time.Time `json:"cancelledAt,omitempty"`
	ExpiredAt            *time.Time `json:"expiredAt,omitempty"`
	ExpiresAt            time.Time  `json:"expiresAt"`
	PushSent             bool       `json:"pushSent"`
	Flagged              bool       `json:"flagged,omitempty"`
	Notice               string     `json:"notice,omitempty"`
	ReputationScore      *int       `json:"reputationScore,omitempty"`
	Tier                 string     `json:"tier,omitempty"`
	QuotaResetsAt        *time.Time `json:"quotaResetsAt,omitempty"`
}

const flaggedNotice = "You are sending alerts faster than allowed. Your reputation was reduced."

// withPolicyNotice tells a flagged sender where the penalty left them.
func withPolicyNotice(out alertResponse, summary ledger.Summary) alertResponse {
	if !out.Flagged {
		return out
	}
	score := summary.Score
	resetsAt := summary.QuotaResetsAt.UTC()
	out.ReputationScore = &score
	out.Tier = string(summary.Tier.Name)
	out.QuotaResetsAt = &resetsAt
	out.Notice = fmt.Sprintf("%s Score %d, tier %s, daily quota resets at %s.",
		flaggedNotice, score, summary.Tier.Name, resetsAt.Format(time.RFC3339))
	return out
}

// toAlertResponse hides the sender from the receiver; the sender alone sees
// the velocity flag.
func toAlertResponse(alert parking.Alert, caller string) alertResponse {
	out := alertResponse{
		AlertID:              alert.AlertID,
		ReceiverAccountID:    alert.ReceiverAccountID,
		TargetIdentifierHash: alert.TargetIdentifierHash,
		Urgency:              string(alert.Urgency),
		SoundHint:            alert.Urgency.SoundHint(),
		Message:              alert.Message,
		Response:             alert.Response,
		Status:               string(alert.Status),
		SentAt:               alert.SentAt,
		DeliveredAt:          alert.DeliveredAt,
		AcknowledgedAt:       alert.AcknowledgedAt,
		ResolvedAt:           alert.ResolvedAt,
		CancelledAt:          alert.CancelledAt,
		ExpiredAt:            alert.ExpiredAt,
		ExpiresAt:            alert.ExpiresAt,
		PushSent:             alert.PushSent,
	}
	if caller == alert.SenderAccountID {
		out.SenderAccountID = alert.SenderAccountID
		out.Flagged = alert.Flagged
		if alert.Flagged {
			out.Notice = flaggedNotice
		}
	}
	return out
}

func toIdentifierResponse(identifier parking.Identifier) identifierResponse {
	return identifierResponse{
		IdentifierHash:     identifier.IdentifierHash,
		OwnerAccountID:     identifier.OwnerAccountID,
		VerificationStatus: string(identifier.VerificationStatus),
		DisplayCode:        identifier.DisplayCode,
		RegisteredAt:       identifier.RegisteredAt,
	}
}
