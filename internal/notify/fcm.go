package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const messagingScope = "https://www.googleapis.com/auth/firebase.messaging"

// Relay publishes alerts to the push-notification transport and manages
// topic subscriptions. It is pass-through plumbing: nothing is persisted.
type Relay struct {
	sa         *ServiceAccount
	sendURL    string
	topicsURL  string
	httpClient *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// RelayOption customizes a Relay.
type RelayOption func(*Relay)

// WithTransportURLs overrides the messaging endpoints. Used in tests.
func WithTransportURLs(sendURL, topicsURL string) RelayOption {
	return func(r *Relay) {
		r.sendURL = sendURL
		r.topicsURL = topicsURL
	}
}

// NewRelay creates a Relay for the given service account.
func NewRelay(sa *ServiceAccount, opts ...RelayOption) *Relay {
	r := &Relay{
		sa:         sa,
		sendURL:    fmt.Sprintf("https://fcm.googleapis.com/v1/projects/%s/messages:send", sa.ProjectID),
		topicsURL:  "https://iid.googleapis.com/iid/v1",
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SendToTopic publishes an alert to every device subscribed to the topic.
func (r *Relay) SendToTopic(ctx context.Context, topic string, alert StockAlert) error {
	payload := map[string]any{
		"message": map[string]any{
			"topic": topic,
			"notification": map[string]string{
				"title": alert.Title(),
				"body":  alert.Body(),
			},
			"data": map[string]string{
				"ticker":         alert.Ticker,
				"percent_change": fmt.Sprintf("%.2f", alert.PercentChange),
				"current_price":  fmt.Sprintf("%.2f", alert.CurrentPrice),
				"alert_type":     string(alert.Type),
				"timestamp":      alert.Timestamp.UTC().Format(time.RFC3339),
			},
		},
	}

	return r.post(ctx, r.sendURL, payload)
}

// SubscribeToTopic subscribes a device token to a topic.
func (r *Relay) SubscribeToTopic(ctx context.Context, deviceToken, topic string) error {
	return r.post(ctx, r.topicsURL+":batchAdd", topicBatch(deviceToken, topic))
}

// UnsubscribeFromTopic removes a device token from a topic.
func (r *Relay) UnsubscribeFromTopic(ctx context.Context, deviceToken, topic string) error {
	return r.post(ctx, r.topicsURL+":batchRemove", topicBatch(deviceToken, topic))
}

func topicBatch(deviceToken, topic string) map[string]any {
	return map[string]any{
		"to":                  "/topics/" + topic,
		"registration_tokens": []string{deviceToken},
	}
}

func (r *Relay) post(ctx context.Context, endpoint string, payload any) error {
	token, err := r.token(ctx)
	if err != nil {
		return fmt.Errorf("acquiring messaging token: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling messaging payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(body)))
	if err != nil {
		return fmt.Errorf("creating messaging request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("access_token_auth", "true")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing messaging request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("messaging endpoint returned status %d: %s", resp.StatusCode, string(b))
	}

	return nil
}

// token returns a cached access token, minting a new one via the OAuth
// JWT-bearer grant when the cached one is near expiry.
func (r *Relay) token(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.accessToken != "" && time.Now().Before(r.tokenExpiry.Add(-time.Minute)) {
		return r.accessToken, nil
	}

	assertion, err := r.signAssertion()
	if err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("grant_type", "urn:ietf:params:oauth:grant-type:jwt-bearer")
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.sa.TokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, string(b))
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned no access token")
	}

	r.accessToken = parsed.AccessToken
	r.tokenExpiry = time.Now().Add(time.Duration(parsed.ExpiresIn) * time.Second)

	return r.accessToken, nil
}

func (r *Relay) signAssertion() (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(r.sa.PrivateKey))
	if err != nil {
		return "", fmt.Errorf("parsing service account key: %w", err)
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":   r.sa.ClientEmail,
		"scope": messagingScope,
		"aud":   r.sa.TokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	})

	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("signing assertion: %w", err)
	}

	return signed, nil
}
