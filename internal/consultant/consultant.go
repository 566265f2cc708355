// Package consultant normalizes two interchangeable live-chat vendors
// (TalkMe and Webim) behind one contract. Callers validate webhooks, fetch
// dialogs, classify messages and route chats to operators without touching
// vendor wire formats.
package consultant

import (
	"context"
	"time"
)

// Consultant is the unified capability contract implemented once per vendor.
//
// Operations that talk to the vendor perform blocking network round trips
// through the injected HTTP client. Transport and vendor-level failures are
// logged inside the adapter and surface as false or empty results; callers
// must treat those as "try again or escalate", never as "the chat does not
// exist".
type Consultant interface {
	// Name returns the static vendor identifier.
	Name() string

	// ValidateNewMessageWebhook reports whether the raw webhook body is a
	// valid new-message event: the shared secret matches (vacuously when
	// no secret is configured), the event kind is one the vendor uses for
	// new messages, and a non-empty message body is present.
	ValidateNewMessageWebhook(payload []byte) bool

	// IsUserAllowed reports whether the payload's embedded site-user id
	// passes the allowed-ids filter. An empty filter allows everyone.
	IsUserAllowed(allowedIDs []string, payload []byte) bool

	// ExtractWebhookField pulls one normalized field out of a raw webhook
	// body. Field names outside the enumerated set yield a FIELD error.
	ExtractWebhookField(field WebhookField, payload []byte) (Value, error)

	// ExtractDialogField pulls one field out of a normalized dialog.
	ExtractDialogField(field DialogField, dialog *Dialog) (Value, error)

	// ExtractMessageField pulls one field out of a normalized message.
	// The who_send field is total over every kind known to the vendor.
	ExtractMessageField(field MessageField, msg Message) (Value, error)

	// SendMessage sends a plain text message to the client as the given
	// operator, or as the configured default when operator is empty.
	SendMessage(ctx context.Context, clientID, text, operator string) bool

	// SendButtonsMessage sends a button menu. Vendors without native
	// buttons receive a numbered text menu as a single message.
	SendButtonsMessage(ctx context.Context, clientID string, buttons []string, operator string) bool

	// FetchDialog returns the dialog matching the client within the
	// period (today when nil), with messages filtered to the period.
	// Nil means the dialog could not be fetched.
	FetchDialog(ctx context.Context, clientID string, period *TimePeriod) *Dialog

	// FetchDialogs returns all dialogs touched within the period,
	// chunked per the vendor's single-request limit and de-duplicated by
	// dialog id. A failed chunk stops fetching and returns what was
	// accumulated so far.
	FetchDialogs(ctx context.Context, period TimePeriod) []Dialog

	// LastActionableMessageTime scans the dialog's messages from the end,
	// skipping entries that are neither from the client nor an actionable
	// operator message, and returns the timestamp of the first one found.
	LastActionableMessageTime(dialog *Dialog) (time.Time, bool)

	// FindOperatorMessages returns an index-preserving mapping of
	// actionable operator messages to their text.
	FindOperatorMessages(messages []Message) map[int]string

	// FindClientMessages returns an index-preserving mapping of client
	// messages to their text.
	FindClientMessages(messages []Message) map[int]string

	// FindMessageIndexByPattern returns the index of the last message
	// matching the case-insensitive pattern after control characters and
	// whitespace are stripped. Note: the last match wins, not the first;
	// callers depend on this.
	FindMessageIndexByPattern(pattern string, messages []string) (int, bool)

	// GroupOperatorMessagesBySendDate flattens all messages across the
	// dialogs, keeps operator messages and groups them by the local
	// calendar date they were sent.
	GroupOperatorMessagesBySendDate(dialogs []Dialog) map[string][]Message

	// GroupDialogsByChannel groups dialogs by their originating channel.
	GroupDialogsByChannel(dialogs []Dialog) map[Channel][]Dialog

	// ListOperators returns all operators eligible for routing.
	ListOperators(ctx context.Context) []Operator

	// OnlineOperatorIDs returns the ids of operators currently online.
	OnlineOperatorIDs(ctx context.Context) []string

	// RedirectDialog transfers an active dialog to another operator.
	RedirectDialog(ctx context.Context, dialog *Dialog, toOperator string) bool

	// HasBot reports whether the vendor has a separate bot concept.
	HasBot() bool

	// SupportsCloseChat reports whether the vendor can close chats.
	SupportsCloseChat() bool

	// IsDialogWithBot reports whether the dialog's current operator is
	// the configured bot identity.
	IsDialogWithBot(dialog *Dialog) bool

	// CloseChat ends the dialog. Always false for vendors without the
	// capability.
	CloseChat(ctx context.Context, clientID string) bool

	// WasHandedToBot reports whether the dialog's trailing system message
	// is a hand-off notice naming the configured bot operator.
	WasHandedToBot(dialog *Dialog) bool
}
