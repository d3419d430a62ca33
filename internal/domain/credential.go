package domain

import "time"

// Credential is one linked Strava account. OwnerID is the chat-platform user
// that owns the link and is the primary key; AthleteID is Strava's identifier
// for the same account and backs the secondary lookup used by webhook events.
type Credential struct {
	OwnerID      string
	AthleteID    string
	AccessToken  string
	RefreshToken string
	ExpiresAt    int64 // unix seconds; access token is invalid after this
	UpdatedAt    time.Time
}

// Stale reports whether the access token is expired or inside the safety
// buffer at the given instant.
func (c Credential) Stale(now time.Time, skew time.Duration) bool {
	return now.Add(skew).Unix() >= c.ExpiresAt
}
