package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/stockdeck/stockdeck/internal/api/response"
)

// TopicManager manages device-token topic subscriptions on the push
// transport. Satisfied by *notify.Relay.
type TopicManager interface {
	SubscribeToTopic(ctx context.Context, deviceToken, topic string) error
	UnsubscribeFromTopic(ctx context.Context, deviceToken, topic string) error
}

type subscriptionRequest struct {
	Token string `json:"token"`
}

// NotificationsHandler handles topic subscription endpoints. Device tokens
// are passed straight through to the transport; nothing is persisted.
type NotificationsHandler struct {
	topics TopicManager
	topic  string
}

// NewNotificationsHandler creates a new NotificationsHandler.
func NewNotificationsHandler(topics TopicManager, topic string) *NotificationsHandler {
	return &NotificationsHandler{
		topics: topics,
		topic:  topic,
	}
}

// Subscribe handles POST /api/notifications/subscribe.
func (h *NotificationsHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	h.manage(w, r, h.topics.SubscribeToTopic, "Failed to subscribe")
}

// Unsubscribe handles POST /api/notifications/unsubscribe.
func (h *NotificationsHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	h.manage(w, r, h.topics.UnsubscribeFromTopic, "Failed to unsubscribe")
}

func (h *NotificationsHandler) manage(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, deviceToken, topic string) error,
	failureMessage string,
) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request")
		return
	}

	if strings.TrimSpace(req.Token) == "" {
		response.Error(w, http.StatusBadRequest, "Device token required")
		return
	}

	if err := op(r.Context(), req.Token, h.topic); err != nil {
		slog.Error("topic subscription change failed", "error", err)
		response.Error(w, http.StatusBadGateway, failureMessage)
		return
	}

	response.JSON(w, http.StatusOK, map[string]bool{"success": true})
}
