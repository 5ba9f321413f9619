package handler

import (
	"net/http"

	"github.com/stockdeck/stockdeck/internal/api/response"
	"github.com/stockdeck/stockdeck/internal/config"
)

type firebaseConfigResponse struct {
	APIKey            string `json:"apiKey"`
	AuthDomain        string `json:"authDomain"`
	ProjectID         string `json:"projectId"`
	MessagingSenderID string `json:"messagingSenderId"`
	AppID             string `json:"appId"`
}

// BootstrapHandler serves the identity-provider bootstrap data the frontend
// needs before it can sign in.
type BootstrapHandler struct {
	cfg *config.Config
}

// NewBootstrapHandler creates a new BootstrapHandler.
func NewBootstrapHandler(cfg *config.Config) *BootstrapHandler {
	return &BootstrapHandler{cfg: cfg}
}

// FirebaseConfig handles GET /api/firebase-config (auth required) and
// GET /api/firebase-config-public. The payload contains only client-side
// keys, never the service account.
func (h *BootstrapHandler) FirebaseConfig(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, firebaseConfigResponse{
		APIKey:            h.cfg.FirebaseAPIKey,
		AuthDomain:        h.cfg.FirebaseAuthDomain,
		ProjectID:         h.cfg.FirebaseProjectID,
		MessagingSenderID: h.cfg.FirebaseMessagingSenderID,
		AppID:             h.cfg.FirebaseAppID,
	})
}

// VAPIDPublicKey handles GET /api/vapid-public-key.
func (h *BootstrapHandler) VAPIDPublicKey(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{
		"vapidPublicKey": h.cfg.FirebaseVAPIDPublicKey,
	})
}
