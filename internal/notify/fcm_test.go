package notify_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockdeck/stockdeck/internal/notify"
)

func testPrivateKeyPEM(t *testing.T) (string, *rsa.PrivateKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	return string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})), key
}

// relayFixture is a Relay wired to httptest stand-ins for the token and
// messaging endpoints.
type relayFixture struct {
	relay *notify.Relay

	tokenRequests int
	assertions    []string

	sendBodies []map[string]any
	sendAuth   []string
	topicPaths []string
	topicBody  map[string]any
}

func newRelayFixture(t *testing.T) *relayFixture {
	t.Helper()

	pemKey, _ := testPrivateKeyPEM(t)
	f := &relayFixture{}

	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		f.tokenRequests++
		f.assertions = append(f.assertions, r.PostForm.Get("assertion"))
		assert.Equal(t, "urn:ietf:params:oauth:grant-type:jwt-bearer", r.PostForm.Get("grant_type"))

		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "cached-access-token",
			"expires_in":   3600,
		})
	}))
	t.Cleanup(tokenServer.Close)

	messaging := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		switch r.URL.Path {
		case "/messages:send":
			f.sendBodies = append(f.sendBodies, body)
			f.sendAuth = append(f.sendAuth, r.Header.Get("Authorization"))
		case "/iid:batchAdd", "/iid:batchRemove":
			f.topicPaths = append(f.topicPaths, r.URL.Path)
			f.topicBody = body
		default:
			t.Errorf("unexpected messaging path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(messaging.Close)

	sa := &notify.ServiceAccount{
		ProjectID:   "stockdeck-test",
		ClientEmail: "relay@stockdeck-test.iam.gserviceaccount.com",
		PrivateKey:  pemKey,
		TokenURI:    tokenServer.URL,
	}

	f.relay = notify.NewRelay(sa,
		notify.WithTransportURLs(messaging.URL+"/messages:send", messaging.URL+"/iid"))
	return f
}

func TestSendToTopic_PublishesNotificationAndData(t *testing.T) {
	f := newRelayFixture(t)

	alert := notify.StockAlert{
		Ticker:        "ROCKET",
		PercentChange: 8.25,
		CurrentPrice:  108.25,
		Type:          notify.AlertGainer,
		Timestamp:     time.Date(2026, 8, 24, 14, 30, 0, 0, time.UTC),
	}

	require.NoError(t, f.relay.SendToTopic(context.Background(), "stock-alerts", alert))
	require.Len(t, f.sendBodies, 1)

	assert.Equal(t, "Bearer cached-access-token", f.sendAuth[0])

	message := f.sendBodies[0]["message"].(map[string]any)
	assert.Equal(t, "stock-alerts", message["topic"])

	notification := message["notification"].(map[string]any)
	assert.Equal(t, "Stock Gainer Alert: ROCKET", notification["title"])
	assert.Equal(t, "ROCKET has moved 8.25% (up) to $108.25", notification["body"])

	data := message["data"].(map[string]any)
	assert.Equal(t, "ROCKET", data["ticker"])
	assert.Equal(t, "8.25", data["percent_change"])
	assert.Equal(t, "108.25", data["current_price"])
	assert.Equal(t, "gainer", data["alert_type"])
	assert.Equal(t, "2026-08-24T14:30:00Z", data["timestamp"])
}

func TestSendToTopic_ReusesCachedAccessToken(t *testing.T) {
	f := newRelayFixture(t)
	alert := notify.StockAlert{Ticker: "ROCKET", Type: notify.AlertGainer}

	require.NoError(t, f.relay.SendToTopic(context.Background(), "stock-alerts", alert))
	require.NoError(t, f.relay.SendToTopic(context.Background(), "stock-alerts", alert))

	assert.Equal(t, 1, f.tokenRequests, "second send must reuse the cached token")
}

func TestSendToTopic_AssertionClaims(t *testing.T) {
	f := newRelayFixture(t)
	alert := notify.StockAlert{Ticker: "ROCKET", Type: notify.AlertGainer}

	require.NoError(t, f.relay.SendToTopic(context.Background(), "stock-alerts", alert))
	require.Len(t, f.assertions, 1)

	// The assertion's claims matter; its signature is validated by the real
	// token endpoint, not here.
	parsed, _, err := jwt.NewParser().ParseUnverified(f.assertions[0], jwt.MapClaims{})
	require.NoError(t, err)

	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, "relay@stockdeck-test.iam.gserviceaccount.com", claims["iss"])
	assert.Equal(t, "https://www.googleapis.com/auth/firebase.messaging", claims["scope"])
}

func TestTopicSubscription_Batches(t *testing.T) {
	f := newRelayFixture(t)
	ctx := context.Background()

	require.NoError(t, f.relay.SubscribeToTopic(ctx, "device-token-1", "stock-alerts"))
	require.NoError(t, f.relay.UnsubscribeFromTopic(ctx, "device-token-1", "stock-alerts"))

	assert.Equal(t, []string{"/iid:batchAdd", "/iid:batchRemove"}, f.topicPaths)
	assert.Equal(t, "/topics/stock-alerts", f.topicBody["to"])
	assert.Equal(t, []any{"device-token-1"}, f.topicBody["registration_tokens"])
}

func TestSendToTopic_TransportFailure(t *testing.T) {
	pemKey, _ := testPrivateKeyPEM(t)

	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
	}))
	defer tokenServer.Close()

	messaging := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "quota exceeded"}`, http.StatusTooManyRequests)
	}))
	defer messaging.Close()

	relay := notify.NewRelay(&notify.ServiceAccount{
		ProjectID:   "stockdeck-test",
		ClientEmail: "relay@stockdeck-test.iam.gserviceaccount.com",
		PrivateKey:  pemKey,
		TokenURI:    tokenServer.URL,
	}, notify.WithTransportURLs(messaging.URL, messaging.URL))

	err := relay.SendToTopic(context.Background(), "stock-alerts",
		notify.StockAlert{Ticker: "ROCKET", Type: notify.AlertGainer})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestLoadServiceAccount_FromFile(t *testing.T) {
	pemKey, _ := testPrivateKeyPEM(t)

	raw, err := json.Marshal(map[string]string{
		"project_id":   "stockdeck-test",
		"client_email": "relay@stockdeck-test.iam.gserviceaccount.com",
		"private_key":  pemKey,
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "sa.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	sa, err := notify.LoadServiceAccount(path, "")
	require.NoError(t, err)

	assert.Equal(t, "stockdeck-test", sa.ProjectID)
	assert.Equal(t, "https://oauth2.googleapis.com/token", sa.TokenURI,
		"token URI defaults when the JSON omits it")
}

func TestLoadServiceAccount_InlineJSON(t *testing.T) {
	pemKey, _ := testPrivateKeyPEM(t)

	raw, err := json.Marshal(map[string]string{
		"project_id":   "stockdeck-test",
		"client_email": "relay@stockdeck-test.iam.gserviceaccount.com",
		"private_key":  pemKey,
		"token_uri":    "https://example.com/token",
	})
	require.NoError(t, err)

	sa, err := notify.LoadServiceAccount("", string(raw))
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/token", sa.TokenURI)
}

func TestLoadServiceAccount_MissingFields(t *testing.T) {
	_, err := notify.LoadServiceAccount("", `{"project_id": "only-project"}`)
	assert.Error(t, err)

	_, err = notify.LoadServiceAccount("", "")
	assert.Error(t, err)
}
