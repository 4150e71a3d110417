package auth

import "github.com/safarides/safar-backend/pkg/models"

// SendOTPRequest asks for a login code to be texted to a phone number.
type SendOTPRequest struct {
	Phone string `json:"phone" binding:"required,e164"`
}

// VerifyOTPRequest exchanges a login code for a bearer token.
type VerifyOTPRequest struct {
	Phone string `json:"phone" binding:"required,e164"`
	OTP   string `json:"otp" binding:"required,len=6,numeric"`
}

// AuthResponse is returned on successful login.
type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}
