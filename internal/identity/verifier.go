package identity

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"encoding/json"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any credential that fails verification:
// bad signature, wrong issuer or audience, expired, malformed, or missing
// subject. Callers must treat all of these identically as unauthenticated.
var ErrInvalidToken = errors.New("invalid ID token")

// defaultCertsURL serves the identity provider's current token-signing
// certificates, keyed by kid.
const defaultCertsURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"

// Claims holds the subset of verified token claims the application uses.
type Claims struct {
	Subject       string
	Email         string
	Name          string
	EmailVerified bool
}

// Verifier validates provider-issued ID tokens.
type Verifier interface {
	Verify(ctx context.Context, idToken string) (*Claims, error)
}

type idTokenClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	Name          string `json:"name"`
	EmailVerified bool   `json:"email_verified"`
}

// TokenVerifier verifies RS256 ID tokens against the provider's published
// certificates. Certificates are cached until the max-age the provider
// advertises on the response.
type TokenVerifier struct {
	projectID  string
	certsURL   string
	httpClient *http.Client

	mu        sync.RWMutex
	keys      map[string]any
	expiresAt time.Time
}

// VerifierOption customizes a TokenVerifier.
type VerifierOption func(*TokenVerifier)

// WithCertsURL overrides the certificate endpoint. Used in tests.
func WithCertsURL(url string) VerifierOption {
	return func(v *TokenVerifier) { v.certsURL = url }
}

// WithHTTPClient overrides the HTTP client used for certificate fetches.
func WithHTTPClient(c *http.Client) VerifierOption {
	return func(v *TokenVerifier) { v.httpClient = c }
}

// NewTokenVerifier creates a verifier for tokens issued to the given project.
func NewTokenVerifier(projectID string, opts ...VerifierOption) *TokenVerifier {
	v := &TokenVerifier{
		projectID:  projectID,
		certsURL:   defaultCertsURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify checks signature, issuer, audience, expiry and not-before, and
// returns the claims the application cares about. Any failure, including an
// unreachable certificate endpoint, yields ErrInvalidToken.
func (v *TokenVerifier) Verify(ctx context.Context, idToken string) (*Claims, error) {
	claims := &idTokenClaims{}

	token, err := jwt.ParseWithClaims(idToken, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token has no kid header")
		}
		return v.signingKey(ctx, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer("https://securetoken.google.com/"+v.projectID),
		jwt.WithAudience(v.projectID),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}

	return &Claims{
		Subject:       claims.Subject,
		Email:         claims.Email,
		Name:          claims.Name,
		EmailVerified: claims.EmailVerified,
	}, nil
}

// signingKey resolves a kid to an RSA public key, refreshing the cached
// certificate set when it is stale or does not contain the kid.
func (v *TokenVerifier) signingKey(ctx context.Context, kid string) (any, error) {
	v.mu.RLock()
	key, ok := v.keys[kid]
	fresh := time.Now().Before(v.expiresAt)
	v.mu.RUnlock()

	if ok && fresh {
		return key, nil
	}

	if err := v.refreshKeys(ctx); err != nil {
		return nil, err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	key, ok = v.keys[kid]
	if !ok {
		return nil, fmt.Errorf("no certificate for kid %q", kid)
	}
	return key, nil
}

func (v *TokenVerifier) refreshKeys(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.certsURL, nil)
	if err != nil {
		return fmt.Errorf("creating certificate request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetching certificates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("certificate endpoint returned status %d", resp.StatusCode)
	}

	var certs map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&certs); err != nil {
		return fmt.Errorf("decoding certificates: %w", err)
	}

	keys := make(map[string]any, len(certs))
	for kid, certPEM := range certs {
		block, _ := pem.Decode([]byte(certPEM))
		if block == nil {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			continue
		}
		keys[kid] = cert.PublicKey
	}
	if len(keys) == 0 {
		return errors.New("certificate endpoint returned no usable keys")
	}

	v.mu.Lock()
	v.keys = keys
	v.expiresAt = time.Now().Add(certsMaxAge(resp.Header.Get("Cache-Control")))
	v.mu.Unlock()

	return nil
}

// certsMaxAge extracts max-age from a Cache-Control header, falling back to
// a conservative refresh window.
func certsMaxAge(cacheControl string) time.Duration {
	for _, part := range strings.Split(cacheControl, ",") {
		part = strings.TrimSpace(part)
		if !strings.HasPrefix(part, "max-age=") {
			continue
		}
		secs, err := strconv.Atoi(strings.TrimPrefix(part, "max-age="))
		if err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 5 * time.Minute
}
