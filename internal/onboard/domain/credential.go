package domain

import "time"

type Credential struct {
	AccountID    string
	PasswordHash string // argon2id PHC encoded
	UpdatedAt    time.Time
}
