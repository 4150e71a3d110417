package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a rider account. Phone is the primary identity; email is only set
// for accounts created through Google OAuth.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Phone        string     `json:"phone"`
	Name         *string    `json:"name,omitempty"`
	Email        *string    `json:"email,omitempty"`
	ReferralCode string     `json:"referral_code"`
	IsAdmin      bool       `json:"is_admin"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}
