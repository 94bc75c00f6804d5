package model

type Account struct {
	AccountID       string  `gorm:"column:account_id;type:text;primaryKey"`
	ReputationScore int     `gorm:"column:reputation_score;not null"`
	Status          string  `gorm:"column:status;type:text;not null;index"`
	CreatedAt       string  `gorm:"column:created_at;type:text;not null"`
	UpdatedAt       string  `gorm:"column:updated_at;type:text;not null"`
	LastSeenAt      *string `gorm:"column:last_seen_at;type:text"`
}

func (Account) TableName() string {
	return "accounts"
}
