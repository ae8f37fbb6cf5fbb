package models

// Schema lists the tables managed by AutoMigrate and the atlas loader.
func Schema() []any {
	return []any{
		&User{},
		&OTP{},
		&EventRequest{},
		&Event{},
		&EventParticipant{},
		&InviteToken{},
		&Transaction{},
		&Notification{},
		&EventFeedback{},
		&EventMedia{},
		&EventMessage{},
		&Invoice{},
	}
}
