// Package relay exposes the inbound webhook endpoint: payloads are
// validated by the active consultant adapter, filtered, normalized and
// published as events.
package relay

import (
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/srclab/consultant/internal/consultant"
	"github.com/srclab/consultant/internal/events"
)

const maxPayloadBytes = 1 << 20

// Handler processes vendor webhooks.
type Handler struct {
	consultant consultant.Consultant
	publisher  events.Publisher
	allowedIDs []string
	log        *zap.Logger
}

func NewHandler(cons consultant.Consultant, pub events.Publisher, allowedIDs []string, logger *zap.Logger) *Handler {
	return &Handler{
		consultant: cons,
		publisher:  pub,
		allowedIDs: allowedIDs,
		log:        logger,
	}
}

// HandleWebhook accepts one vendor webhook. Invalid payloads are rejected;
// payloads filtered out by the allowed-user list are acknowledged and
// dropped, so the vendor does not retry them.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		http.Error(w, "unreadable body", http.StatusBadRequest)
		return
	}

	if !h.consultant.ValidateNewMessageWebhook(payload) {
		http.Error(w, "invalid webhook", http.StatusBadRequest)
		return
	}

	if !h.consultant.IsUserAllowed(h.allowedIDs, payload) {
		h.log.Debug("webhook filtered by allowed user ids")
		w.WriteHeader(http.StatusOK)
		return
	}

	msg := events.NewMessage{Consultant: h.consultant.Name()}
	fields := []struct {
		field consultant.WebhookField
		dst   *string
	}{
		{consultant.WebhookClientID, &msg.ClientID},
		{consultant.WebhookSearchID, &msg.SearchID},
		{consultant.WebhookOperatorLogin, &msg.OperatorLogin},
		{consultant.WebhookMessageText, &msg.Text},
	}
	for _, f := range fields {
		value, err := h.consultant.ExtractWebhookField(f.field, payload)
		if err != nil {
			h.log.Error("webhook field extraction failed",
				zap.String("field", string(f.field)), zap.Error(err))
			http.Error(w, "processing error", http.StatusInternalServerError)
			return
		}
		*f.dst = value.Str
	}

	env := events.NewMessageEnvelope(msg)
	if err := h.publisher.Publish(r.Context(), events.TypeNewMessage, env); err != nil {
		http.Error(w, "processing error", http.StatusInternalServerError)
		return
	}

	h.log.Info("webhook relayed",
		zap.String("consultant", msg.Consultant),
		zap.String("client_id", msg.ClientID))

	// The vendor only needs an ACK.
	w.WriteHeader(http.StatusOK)
}
