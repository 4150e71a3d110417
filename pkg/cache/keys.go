package cache

import (
	"fmt"
	"time"
)

// QuoteTTL is how long quote sessions and items stay selectable.
const QuoteTTL = 300 * time.Second

// OTPTTL is how long a login code stays valid.
const OTPTTL = 5 * time.Minute

// QuoteSessionKey returns the key holding a full quote response payload.
func QuoteSessionKey(sessionID string) string {
	return fmt.Sprintf("quote:%s", sessionID)
}

// QuoteItemKey returns the key holding a single selectable quote item.
func QuoteItemKey(quoteID string) string {
	return fmt.Sprintf("quote_item:%s", quoteID)
}

// OTPKey returns the key holding the pending login code for a phone number.
func OTPKey(phone string) string {
	return fmt.Sprintf("otp:%s", phone)
}

// OAuthStateTTL bounds how long a Google consent round-trip may take.
const OAuthStateTTL = 10 * time.Minute

// OAuthStateKey returns the key marking an outstanding OAuth state nonce.
func OAuthStateKey(state string) string {
	return fmt.Sprintf("oauth_state:%s", state)
}
