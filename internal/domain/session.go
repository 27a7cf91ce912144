package domain

import "time"

// SessionTTL bounds how long a merchant may take on the Shopify install screen
const SessionTTL = 10 * time.Minute

// Session represents an OAuth session
type Session struct {
	Shop      string    `json:"shop"`
	State     string    `json:"state"`
	Scopes    []string  `json:"scopes"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the session is past its deadline
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
