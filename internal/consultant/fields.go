package consultant

import (
	"fmt"
	"time"

	"github.com/srclab/consultant/internal/apperrors"
)

// WebhookField enumerates the fields extractable from a webhook payload.
type WebhookField string

const (
	WebhookClientID      WebhookField = "client_id"
	WebhookSearchID      WebhookField = "search_id"
	WebhookMessageText   WebhookField = "message_text"
	WebhookMessages      WebhookField = "messages"
	WebhookOperatorLogin WebhookField = "operator_login"
)

// DialogField enumerates the fields extractable from a dialog.
type DialogField string

const (
	DialogName       DialogField = "name"
	DialogMessages   DialogField = "messages"
	DialogClientID   DialogField = "client_id"
	DialogSearchID   DialogField = "search_id"
	DialogOperatorID DialogField = "operator_id"
)

// MessageField enumerates the fields extractable from a message.
type MessageField string

const (
	MessageCreatedAt MessageField = "created_at"
	MessageWhoSend   MessageField = "who_send"
	MessageOperator  MessageField = "operator"
)

// ParseWebhookField maps an external field name onto the closed enum,
// failing fast on anything unmapped.
func ParseWebhookField(name string) (WebhookField, error) {
	switch f := WebhookField(name); f {
	case WebhookClientID, WebhookSearchID, WebhookMessageText, WebhookMessages, WebhookOperatorLogin:
		return f, nil
	}

	return "", apperrors.NewFieldError(fmt.Sprintf("unknown webhook field %q", name))
}

// ParseDialogField maps an external field name onto the closed enum.
func ParseDialogField(name string) (DialogField, error) {
	switch f := DialogField(name); f {
	case DialogName, DialogMessages, DialogClientID, DialogSearchID, DialogOperatorID:
		return f, nil
	}

	return "", apperrors.NewFieldError(fmt.Sprintf("unknown dialog field %q", name))
}

// ParseMessageField maps an external field name onto the closed enum.
func ParseMessageField(name string) (MessageField, error) {
	switch f := MessageField(name); f {
	case MessageCreatedAt, MessageWhoSend, MessageOperator:
		return f, nil
	}

	return "", apperrors.NewFieldError(fmt.Sprintf("unknown message field %q", name))
}

// Value is the result of a field extraction. Exactly one member is set,
// determined by the field that was requested; scalar fields that are absent
// from the payload leave the value empty.
type Value struct {
	Str      string
	Time     time.Time
	Role     Role
	Messages []Message
}

// IsZero reports whether no member of the value is set.
func (v Value) IsZero() bool {
	return v.Str == "" && v.Time.IsZero() && v.Role == "" && v.Messages == nil
}

func stringValue(s string) Value { return Value{Str: s} }

func timeValue(t time.Time) Value { return Value{Time: t} }

func roleValue(r Role) Value { return Value{Role: r} }

func messagesValue(m []Message) Value { return Value{Messages: m} }

// extractDialogField is shared by both adapters: dialogs are already
// normalized, so extraction no longer depends on the vendor.
func extractDialogField(field DialogField, dialog *Dialog) (Value, error) {
	if dialog == nil {
		return Value{}, apperrors.NewFieldError("nil dialog")
	}

	switch field {
	case DialogName:
		return stringValue(dialog.Name), nil
	case DialogMessages:
		return messagesValue(dialog.Messages), nil
	case DialogClientID:
		return stringValue(dialog.ClientID), nil
	case DialogSearchID:
		return stringValue(dialog.SearchID), nil
	case DialogOperatorID:
		return stringValue(dialog.OperatorID), nil
	}

	return Value{}, apperrors.NewFieldError(fmt.Sprintf("unknown dialog field %q", field))
}

// extractMessageField is shared by both adapters. The who_send mapping is
// applied at normalization time, which keeps it total here.
func extractMessageField(field MessageField, msg Message) (Value, error) {
	switch field {
	case MessageCreatedAt:
		return timeValue(msg.CreatedAt), nil
	case MessageWhoSend:
		return roleValue(msg.Who), nil
	case MessageOperator:
		return stringValue(msg.OperatorID), nil
	}

	return Value{}, apperrors.NewFieldError(fmt.Sprintf("unknown message field %q", field))
}
