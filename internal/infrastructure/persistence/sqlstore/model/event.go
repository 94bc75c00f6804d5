package model

type ReputationEvent struct {
	EventID        string `gorm:"column:event_id;type:text;primaryKey"`
	AccountID      string `gorm:"column:account_id;type:text;not null;index:idx_reputation_account_time,priority:1"`
	EventType      string `gorm:"column:event_type;type:text;not null"`
	Delta          int    `gorm:"column:delta;not null"`
	AppliedDelta   int    `gorm:"column:applied_delta;not null"`
	RelatedAlertID string `gorm:"column:related_alert_id;type:text;not null;default:'';index"`
	CreatedAt      string `gorm:"column:created_at;type:text;not null;index:idx_reputation_account_time,priority:2"`
}

func (ReputationEvent) TableName() string {
	return "reputation_events"
}

type SecurityEvent struct {
	EventID     string `gorm:"column:event_id;type:text;primaryKey"`
	AccountID   string `gorm:"column:account_id;type:text;not null;index:idx_security_account_time,priority:1"`
	EventType   string `gorm:"column:event_type;type:text;not null;index"`
	Severity    string `gorm:"column:severity;type:text;not null"`
	DetailsJSON string `gorm:"column:details_json;type:text;not null;default:'{}'"`
	ActionTaken string `gorm:"column:action_taken;type:text;not null;default:''"`
	CreatedAt   string `gorm:"column:created_at;type:text;not null;index:idx_security_account_time,priority:2"`
}

func (SecurityEvent) TableName() string {
	return "security_events"
}
