package model

type Alert struct {
	AlertID              string  `gorm:"column:alert_id;type:text;primaryKey"`
	SenderAccountID      string  `gorm:"column:sender_account_id;type:text;not null;index:idx_alerts_sender_sent,priority:1"`
	ReceiverAccountID    string  `gorm:"column:receiver_account_id;type:text;not null;index"`
	TargetIdentifierHash string  `gorm:"column:target_identifier_hash;type:text;not null;index"`
	Urgency              string  `gorm:"column:urgency;type:text;not null"`
	Message              string  `gorm:"column:message;type:text;not null;default:''"`
	Response             string  `gorm:"column:response;type:text;not null;default:''"`
	Status               string  `gorm:"column:status;type:text;not null;index:idx_alerts_status_expiry,priority:1"`
	Flagged              bool    `gorm:"column:flagged;not null;default:false"`
	SentAt               string  `gorm:"column:sent_at;type:text;not null;index:idx_alerts_sender_sent,priority:2"`
	DeliveredAt          *string `gorm:"column:delivered_at;type:text"`
	AcknowledgedAt       *string `gorm:"column:acknowledged_at;type:text"`
	ResolvedAt           *string `gorm:"column:resolved_at;type:text"`
	CancelledAt          *string `gorm:"column:cancelled_at;type:text"`
	ExpiredAt            *string `gorm:"column:expired_at;type:text"`
	ExpiresAt            string  `gorm:"column:expires_at;type:text;not null;index:idx_alerts_status_expiry,priority:2"`
	PushSent             bool    `gorm:"column:push_sent;not null;default:false"`
	PushSentAt           *string `gorm:"column:push_sent_at;type:text"`
}

func (Alert) TableName() string {
	return "alerts"
}
