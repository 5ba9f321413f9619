package config

import "github.com/kelseyhightower/envconfig"

// Config holds application configuration loaded from environment variables.
type Config struct {
	Host     string `envconfig:"HOST" default:"0.0.0.0"`
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Version  string `envconfig:"VERSION" default:"dev"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// Market data provider. A missing API key is startup-fatal.
	PolygonAPIKey        string `envconfig:"POLYGON_API_KEY" required:"true"`
	PolygonBaseURL       string `envconfig:"POLYGON_BASE_URL" default:"https://api.polygon.io"`
	MarketTimeoutSeconds int    `envconfig:"MARKET_FETCH_TIMEOUT" default:"10"`

	// Identity provider. The project ID pins the expected token issuer
	// and audience.
	FirebaseProjectID          string `envconfig:"FIREBASE_PROJECT_ID" required:"true"`
	FirebaseCredsPath          string `envconfig:"FIREBASE_CREDS_PATH" default:""`
	FirebaseServiceAccountJSON string `envconfig:"FIREBASE_SERVICE_ACCOUNT_JSON" default:""`

	// Client-side bootstrap keys served to the frontend.
	FirebaseAPIKey            string `envconfig:"FIREBASE_API_KEY" default:""`
	FirebaseAuthDomain        string `envconfig:"FIREBASE_AUTH_DOMAIN" default:""`
	FirebaseMessagingSenderID string `envconfig:"FIREBASE_MESSAGING_SENDER_ID" default:""`
	FirebaseAppID             string `envconfig:"FIREBASE_APP_ID" default:""`
	FirebaseVAPIDPublicKey    string `envconfig:"FIREBASE_VAPID_PUBLIC_KEY" default:""`

	// Market summary generation from provider flat files.
	SummaryEnabled     bool   `envconfig:"SUMMARY_ENABLED" default:"false"`
	FlatFilesEndpoint  string `envconfig:"POLYGON_FLAT_ENDPOINT" default:"https://files.polygon.io"`
	FlatFilesBucket    string `envconfig:"POLYGON_FLAT_BUCKET" default:"flatfiles"`
	FlatFilesAccessKey string `envconfig:"POLYGON_FLAT_ACCESS_KEY_ID" default:""`
	FlatFilesSecretKey string `envconfig:"POLYGON_FLAT_SECRET_ACCESS_KEY" default:""`

	// Alert monitor.
	AlertTopic             string  `envconfig:"ALERT_TOPIC" default:"stock-alerts"`
	MovementThreshold      float64 `envconfig:"MOVEMENT_THRESHOLD" default:"5.0"`
	MonitorIntervalSeconds int     `envconfig:"MONITOR_INTERVAL" default:"900"`
}

// Load reads configuration from environment variables into a Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
