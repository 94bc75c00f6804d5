package model

type Identifier struct {
	IdentifierHash     string `gorm:"column:identifier_hash;type:text;primaryKey"`
	OwnerAccountID     string `gorm:"column:owner_account_id;type:text;not null;index"`
	VerificationStatus string `gorm:"column:verification_status;type:text;not null"`
	OwnershipProofHash string `gorm:"column:ownership_proof_hash;type:text;not null;default:''"`
	DisplayCode        string `gorm:"column:display_code;type:text;not null;default:''"`
	RegisteredAt       string `gorm:"column:registered_at;type:text;not null"`
	UpdatedAt          string `gorm:"column:updated_at;type:text;not null"`
}

func (Identifier) TableName() string {
	return "identifiers"
}

type RegistrationAttempt struct {
	AttemptID      uint64 `gorm:"column:attempt_id;primaryKey;autoIncrement"`
	OriginProxy    string `gorm:"column:origin_proxy;type:text;not null;index:idx_registration_origin_time,priority:1"`
	IdentifierHash string `gorm:"column:identifier_hash;type:text;not null;index"`
	AccountID      string `gorm:"column:account_id;type:text;not null"`
	Outcome        string `gorm:"column:outcome;type:text;not null"`
	CreatedAt      string `gorm:"column:created_at;type:text;not null;index:idx_registration_origin_time,priority:2"`
}

func (RegistrationAttempt) TableName() string {
	return "registration_attempts"
}
