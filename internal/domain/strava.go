package domain

// TokenResponse models the Strava token endpoint response for both the
// authorization_code and refresh_token grants.
type TokenResponse struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	ExpiresAt    int64   `json:"expires_at"`
	Athlete      Athlete `json:"athlete"`
}

// Athlete is the subset of the Strava athlete profile returned alongside a
// token exchange. Only the ID participates in linking.
type Athlete struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
}

// WebhookEvent is the structural shape of a Strava push event. OwnerID is the
// athlete id on the provider side, not a chat-platform identity.
type WebhookEvent struct {
	AspectType     string `json:"aspect_type"`
	EventTime      int64  `json:"event_time"`
	ObjectID       int64  `json:"object_id"`
	ObjectType     string `json:"object_type"`
	OwnerID        int64  `json:"owner_id"`
	SubscriptionID int64  `json:"subscription_id"`
}

// Activity is the partial activity detail record. Every field is optional on
// the wire; consumers apply explicit defaults instead of trusting presence.
type Activity struct {
	Name               *string  `json:"name"`
	Type               *string  `json:"type"`
	SportType          *string  `json:"sport_type"`
	Distance           *float64 `json:"distance"`
	MovingTime         *int64   `json:"moving_time"`
	TotalElevationGain *float64 `json:"total_elevation_gain"`
	AverageSpeed       *float64 `json:"average_speed"`
	Calories           *float64 `json:"calories"`
}
