// Package transport intercepts the agent's outbound HTTP calls to attach
// the current bearer credential, so feature code never touches auth
// headers.
package transport

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/stockdeck/stockdeck/internal/agent/tokenstore"
	"github.com/stockdeck/stockdeck/internal/identity"
)

// Refresher re-derives a credential from the identity provider after the
// server rejects the current one.
type Refresher interface {
	RefreshCredential(ctx context.Context) (*identity.Credential, error)
}

// Transport is an http.RoundTripper that attaches the stored credential to
// requests bound for the configured origin. Cross-origin requests pass
// through untouched: a bearer credential must never leak to a third party.
type Transport struct {
	base      http.RoundTripper
	store     tokenstore.Store
	refresher Refresher // nil disables the 401 refresh attempt
	origin    *url.URL
}

// New creates a Transport for the given API origin. base may be nil, in
// which case http.DefaultTransport is used.
func New(base http.RoundTripper, store tokenstore.Store, refresher Refresher, origin *url.URL) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{
		base:      base,
		store:     store,
		refresher: refresher,
		origin:    origin,
	}
}

// RoundTrip implements http.RoundTripper. A missing credential never blocks
// the request; the server decides whether the route requires auth. On a 401
// it makes exactly one refresh attempt before handing the response back.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !t.sameOrigin(req.URL) {
		return t.base.RoundTrip(req)
	}

	// The stored value may change between calls (another process may have
	// refreshed or cleared it), so it is re-read per request.
	cred := t.store.Load(req.Context())

	resp, err := t.base.RoundTrip(t.withToken(req, cred))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || t.refresher == nil {
		return resp, nil
	}
	if req.GetBody == nil && req.Body != nil {
		// The body was consumed and cannot be replayed.
		return resp, nil
	}

	fresh, refreshErr := t.refresher.RefreshCredential(req.Context())
	if refreshErr != nil {
		slog.Debug("credential refresh failed", "error", refreshErr)
		return resp, nil
	}
	resp.Body.Close()

	retry := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		retry.Body = body
	}

	return t.base.RoundTrip(t.withToken(retry, fresh))
}

func (t *Transport) withToken(req *http.Request, cred *identity.Credential) *http.Request {
	if cred == nil || cred.IDToken == "" {
		return req
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+cred.IDToken)
	return clone
}

func (t *Transport) sameOrigin(u *url.URL) bool {
	return strings.EqualFold(u.Scheme, t.origin.Scheme) &&
		strings.EqualFold(u.Host, t.origin.Host)
}
