package model

// All lists every table in migration order.
func All() []any {
	return []any{
		&Account{},
		&Identifier{},
		&RegistrationAttempt{},
		&Alert{},
		&ReputationEvent{},
		&SecurityEvent{},
		&KV{},
	}
}
