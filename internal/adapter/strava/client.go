// Package strava encapsulates outbound HTTP calls to the Strava API.
package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/stravalink/internal/domain"
)

// Subscription is one registered push subscription.
type Subscription struct {
	ID          int64  `json:"id"`
	CallbackURL string `json:"callback_url"`
}

// Client covers the token, activity, and push-subscription endpoints.
type Client interface {
	ExchangeCode(ctx context.Context, code string) (*domain.TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenResponse, error)
	FetchActivity(ctx context.Context, accessToken string, activityID int64) (*domain.Activity, error)
	ListSubscriptions(ctx context.Context) ([]Subscription, error)
	CreateSubscription(ctx context.Context, callbackURL, verifyToken string) error
}

// HTTPClient is the default Client implementation.
type HTTPClient struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient constructs the default Client. A nil http.Client gets a
// 10-second timeout so a hung provider call cannot pin a worker forever.
func NewHTTPClient(baseURL, clientID, clientSecret string, client *http.Client) *HTTPClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   client,
	}
}

// ExchangeCode trades an authorization code for a token triple.
func (c *HTTPClient) ExchangeCode(ctx context.Context, code string) (*domain.TokenResponse, error) {
	data := url.Values{}
	data.Set("client_id", c.clientID)
	data.Set("client_secret", c.clientSecret)
	data.Set("code", code)
	data.Set("grant_type", "authorization_code")
	return c.tokenRequest(ctx, data)
}

// RefreshToken performs the refresh_token grant.
func (c *HTTPClient) RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenResponse, error) {
	data := url.Values{}
	data.Set("client_id", c.clientID)
	data.Set("client_secret", c.clientSecret)
	data.Set("refresh_token", refreshToken)
	data.Set("grant_type", "refresh_token")
	return c.tokenRequest(ctx, data)
}

func (c *HTTPClient) tokenRequest(ctx context.Context, data url.Values) (*domain.TokenResponse, error) {
	body, err := c.postForm(ctx, c.baseURL+"/oauth/token", data)
	if err != nil {
		return nil, err
	}
	var token domain.TokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	return &token, nil
}

// FetchActivity loads activity detail with the given bearer token.
func (c *HTTPClient) FetchActivity(ctx context.Context, accessToken string, activityID int64) (*domain.Activity, error) {
	endpoint := c.baseURL + "/api/v3/activities/" + strconv.FormatInt(activityID, 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build activity request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	var activity domain.Activity
	if err := json.Unmarshal(body, &activity); err != nil {
		return nil, fmt.Errorf("decode activity: %w", err)
	}
	return &activity, nil
}

// ListSubscriptions returns the push subscriptions registered for the app.
func (c *HTTPClient) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	endpoint := fmt.Sprintf("%s/api/v3/push_subscriptions?client_id=%s&client_secret=%s",
		c.baseURL, url.QueryEscape(c.clientID), url.QueryEscape(c.clientSecret))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build subscriptions request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	var subs []Subscription
	if err := json.Unmarshal(body, &subs); err != nil {
		return nil, fmt.Errorf("decode subscriptions: %w", err)
	}
	return subs, nil
}

// CreateSubscription registers the webhook callback with Strava.
func (c *HTTPClient) CreateSubscription(ctx context.Context, callbackURL, verifyToken string) error {
	data := url.Values{}
	data.Set("client_id", c.clientID)
	data.Set("client_secret", c.clientSecret)
	data.Set("callback_url", callbackURL)
	data.Set("verify_token", verifyToken)

	if _, err := c.postForm(ctx, c.baseURL+"/api/v3/push_subscriptions", data); err != nil {
		return err
	}
	return nil
}

func (c *HTTPClient) postForm(ctx context.Context, endpoint string, data url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *HTTPClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("strava request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read strava response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("strava request failed: status=%d", resp.StatusCode)
	}
	return body, nil
}
