package model

import "time"

// Credentials is the singleton OAuth record for the marketplace integration.
// Mutated only by the token manager.
type Credentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	// ExpiresAt is absolute epoch seconds; 0 means the token never expires.
	ExpiresAt int64  `json:"expires_at"`
	AccountID string `json:"account_id"`
	SavedAt   int64  `json:"saved_at,omitempty"`
}

// Valid reports whether the access token can still be used at now,
// keeping a safety skew before the server-side expiry.
func (c Credentials) Valid(now time.Time, skew time.Duration) bool {
	if c.AccessToken == "" {
		return false
	}
	if c.ExpiresAt == 0 {
		return true
	}
	return now.Unix() < c.ExpiresAt-int64(skew.Seconds())
}
