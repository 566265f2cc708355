package consultant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/srclab/consultant/internal/apperrors"
	"github.com/srclab/consultant/internal/config"
	"github.com/srclab/consultant/internal/httpclient"
)

// Webim API operations, split by scheme: GET endpoints use basic auth on
// the account API, POST endpoints use a bearer token on the bot API.
const (
	webimOpChat      = "chat"
	webimOpChats     = "chats"
	webimOpOperators = "operators"
	webimOpSend      = "send_message"
	webimOpRedirect  = "redirect_chat"
	webimOpClose     = "close_chat"
)

var (
	webimGetOps  = map[string]bool{webimOpChat: true, webimOpChats: true, webimOpOperators: true}
	webimPostOps = map[string]bool{webimOpSend: true, webimOpRedirect: true, webimOpClose: true}
)

// Webhook event kinds that announce a new message.
var webimNewMessageEvents = map[string]bool{"new_message": true, "new_chat": true}

// Message kinds kept when fetching a single dialog.
var webimDialogKinds = map[string]bool{
	"visitor": true, "operator": true, "keyboard": true, "keyboard_response": true, "info": true,
}

// Kind-to-role classification table. Anything not listed is a system entry.
var (
	webimClientKinds = map[string]bool{
		"visitor": true, "file_visitor": true, "keyboard_response": true, "apple_chat_response": true,
	}
	webimOperatorKinds = map[string]bool{"operator": true, "file_operator": true}
)

// Kinds that terminate the backward actionable-message scan.
var webimActionableKinds = map[string]bool{
	"visitor": true, "file_visitor": true, "keyboard_response": true, "operator": true,
}

var (
	webimChannelPattern = regexp.MustCompile(`(vk|telegram|viber)`)
	webimHandOffPattern = regexp.MustCompile(`(?m)Диалог был передан оператору (.*)`)
)

// Webim implements the Consultant contract against the Webim wire protocol,
// including the vendor's bot behavior.
type Webim struct {
	cfg  config.Webim
	http httpclient.Doer
	log  *zap.Logger
	loc  *time.Location
}

// NewWebim builds the Webim adapter. The subdomain, api_token, login and
// password settings are required.
func NewWebim(cfg config.Webim, doer httpclient.Doer, logger *zap.Logger, loc *time.Location) (*Webim, error) {
	if cfg.Subdomain == "" || cfg.APIToken == "" || cfg.Login == "" || cfg.Password == "" {
		return nil, apperrors.NewConfigError("webim: subdomain, api_token, login and password must be configured", nil)
	}
	if loc == nil {
		loc = time.Local
	}

	return &Webim{cfg: cfg, http: doer, log: logger, loc: loc}, nil
}

func (c *Webim) Name() string { return config.VendorWebim }

// Wire shapes.

type webimMessage struct {
	Kind       string `json:"kind"`
	Text       string `json:"text"`
	Message    string `json:"message"`
	CreatedAt  string `json:"created_at"`
	OperatorID flexID `json:"operator_id"`
	Data       *struct {
		Button struct {
			Text string `json:"text"`
		} `json:"button"`
	} `json:"data"`
}

// text resolves the human-readable body: keyboard responses carry it on the
// pressed button, system notices on the message field.
func (m webimMessage) text() string {
	if m.Kind == "keyboard_response" && m.Data != nil {
		return m.Data.Button.Text
	}
	if m.Message != "" {
		return m.Message
	}

	return m.Text
}

type webimChat struct {
	ID         flexID         `json:"id"`
	OperatorID flexID         `json:"operator_id"`
	Messages   []webimMessage `json:"messages"`
	Visitor    struct {
		Fields struct {
			Name string `json:"name"`
		} `json:"fields"`
	} `json:"visitor"`
	StartPage struct {
		URL string `json:"url"`
	} `json:"start_page"`
}

type webimWebhook struct {
	Event     string `json:"event"`
	SecretKey string `json:"secretKey"`
	ChatID    flexID `json:"chat_id"`
	Chat      *struct {
		ID flexID `json:"id"`
	} `json:"chat"`
	Messages []webimMessage `json:"messages"`
	Message  *webimMessage  `json:"message"`
}

func webimRole(kind string) Role {
	switch {
	case webimClientKinds[kind]:
		return RoleClient
	case webimOperatorKinds[kind]:
		return RoleOperator
	default:
		return RoleSystem
	}
}

// webhookMessage selects the message a webhook talks about: a new_chat event
// embeds a list and the last element is the one of interest, every other
// event embeds a single message.
func webhookMessage(hook webimWebhook) *webimMessage {
	if hook.Event == "new_chat" {
		if len(hook.Messages) == 0 {
			return nil
		}
		return &hook.Messages[len(hook.Messages)-1]
	}

	return hook.Message
}

// webhookMessageText resolves the body of a webhook message: keyboard
// responses carry it on the pressed button, every other kind on the text
// field. A system body on the message field does not count as message text.
func webhookMessageText(m *webimMessage) string {
	if m == nil {
		return ""
	}
	if m.Kind == "keyboard_response" && m.Data != nil {
		return m.Data.Button.Text
	}

	return m.Text
}

func webhookChatID(hook webimWebhook) string {
	if hook.Event == "new_chat" {
		if hook.Chat == nil {
			return ""
		}
		return hook.Chat.ID.String()
	}

	return hook.ChatID.String()
}

// normalizeMessage converts a wire message, normalizing its timestamp into
// the configured server time zone.
func (c *Webim) normalizeMessage(m webimMessage) Message {
	created, err := parseVendorTime(m.CreatedAt, c.loc)
	if err != nil && m.CreatedAt != "" {
		c.log.Warn("unparseable Webim message timestamp", zap.String("created_at", m.CreatedAt))
	}

	return Message{
		Who:        webimRole(m.Kind),
		Kind:       m.Kind,
		Text:       m.text(),
		CreatedAt:  created,
		OperatorID: m.OperatorID.String(),
	}
}

func (c *Webim) normalizeChat(chat webimChat) Dialog {
	dialog := Dialog{
		ID:         chat.ID.String(),
		ClientID:   chat.ID.String(),
		SearchID:   chat.ID.String(),
		OperatorID: chat.OperatorID.String(),
		Name:       chat.Visitor.Fields.Name,
		Channel:    webimChannel(chat.StartPage.URL),
	}

	for _, m := range chat.Messages {
		dialog.Messages = append(dialog.Messages, c.normalizeMessage(m))
	}

	return dialog
}

// webimChannel infers the dialog channel from the entry page URL: a known
// referrer wins, any other URL means the site widget, no URL means email.
func webimChannel(startURL string) Channel {
	if startURL == "" {
		return ChannelEmail
	}
	if m := webimChannelPattern.FindStringSubmatch(startURL); m != nil {
		return Channel(m[1])
	}

	return ChannelSite
}

// Webhook handling.

func (c *Webim) ValidateNewMessageWebhook(payload []byte) bool {
	var hook webimWebhook
	if err := json.Unmarshal(payload, &hook); err != nil {
		c.log.Error("malformed Webim webhook payload", zap.Error(err))
		return false
	}

	if !webimNewMessageEvents[hook.Event] {
		return false
	}

	if !secretMatches(c.cfg.WebhookSecret, hook.SecretKey) {
		c.log.Warn("webhook secret mismatch", zap.ByteString("payload", payload))
		return false
	}

	// The same body rule as message_text extraction, so a payload that
	// validates always yields a non-empty text downstream.
	if webhookMessageText(webhookMessage(hook)) == "" {
		c.log.Error("webhook carries no message", zap.ByteString("payload", payload))
		return false
	}

	return true
}

func (c *Webim) IsUserAllowed(allowedIDs []string, payload []byte) bool {
	if len(allowedIDs) == 0 {
		return true
	}

	var hook webimWebhook
	if err := json.Unmarshal(payload, &hook); err != nil {
		return false
	}

	chatID := webhookChatID(hook)

	return chatID != "" && containsString(allowedIDs, chatID)
}

func (c *Webim) ExtractWebhookField(field WebhookField, payload []byte) (Value, error) {
	var hook webimWebhook
	if err := json.Unmarshal(payload, &hook); err != nil {
		return Value{}, fmt.Errorf("malformed Webim webhook payload: %w", err)
	}

	switch field {
	case WebhookClientID, WebhookSearchID:
		return stringValue(webhookChatID(hook)), nil
	case WebhookMessageText:
		return stringValue(webhookMessageText(webhookMessage(hook))), nil
	case WebhookMessages:
		if hook.Event != "new_chat" {
			return Value{}, nil
		}
		messages := make([]Message, 0, len(hook.Messages))
		for _, m := range hook.Messages {
			messages = append(messages, c.normalizeMessage(m))
		}
		return messagesValue(messages), nil
	case WebhookOperatorLogin:
		// Webim webhooks never carry an operator login.
		return Value{}, nil
	}

	return Value{}, apperrors.NewFieldError(fmt.Sprintf("unknown webhook field %q", field))
}

func (c *Webim) ExtractDialogField(field DialogField, dialog *Dialog) (Value, error) {
	return extractDialogField(field, dialog)
}

func (c *Webim) ExtractMessageField(field MessageField, msg Message) (Value, error) {
	return extractMessageField(field, msg)
}

// Outbound operations.

type webimSendRequest struct {
	ChatID  any `json:"chat_id"`
	Message struct {
		Kind    string          `json:"kind"`
		Text    string          `json:"text,omitempty"`
		Buttons [][]webimButton `json:"buttons,omitempty"`
	} `json:"message"`
}

type webimButton struct {
	Text string `json:"text"`
	ID   string `json:"id"`
}

func (c *Webim) SendMessage(ctx context.Context, clientID, text, _ string) bool {
	var req webimSendRequest
	req.ChatID = webimID(clientID)
	req.Message.Kind = "operator"
	req.Message.Text = text

	_, err := c.send(ctx, webimOpSend, nil, req)

	return err == nil
}

// SendButtonsMessage sends a native keyboard, one button per row.
func (c *Webim) SendButtonsMessage(ctx context.Context, clientID string, buttons []string, _ string) bool {
	var req webimSendRequest
	req.ChatID = webimID(clientID)
	req.Message.Kind = "keyboard"
	for _, name := range buttons {
		req.Message.Buttons = append(req.Message.Buttons, []webimButton{{
			Text: name,
			ID:   uuid.NewString(),
		}})
	}

	_, err := c.send(ctx, webimOpSend, nil, req)

	return err == nil
}

func (c *Webim) FetchDialog(ctx context.Context, clientID string, period *TimePeriod) *Dialog {
	p := Today(c.loc)
	if period != nil {
		p = *period
	}

	raw, err := c.send(ctx, webimOpChat, url.Values{"id": {clientID}}, nil)
	if err != nil {
		return nil
	}

	var parsed struct {
		Chat webimChat `json:"chat"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		c.log.Error("malformed Webim chat", zap.Error(err))
		return nil
	}

	// Messages arrive chronologically; stop once past the period end.
	var kept []webimMessage
	for _, m := range parsed.Chat.Messages {
		created, err := parseVendorTime(m.CreatedAt, c.loc)
		if err != nil {
			continue
		}
		if created.After(p.End) {
			break
		}
		if webimDialogKinds[m.Kind] && !created.Before(p.Start) {
			kept = append(kept, m)
		}
	}
	parsed.Chat.Messages = kept

	dialog := c.normalizeChat(parsed.Chat)

	return &dialog
}

// FetchDialogs pages through the chat list with the vendor's microsecond
// cursor, starting at the period start and following the returned cursor
// while more data is signaled and the cursor has not passed the period end.
func (c *Webim) FetchDialogs(ctx context.Context, period TimePeriod) []Dialog {
	since := period.Start.UnixMicro()
	endMicro := period.End.UnixMicro()

	var chats []webimChat
	for {
		raw, err := c.send(ctx, webimOpChats,
			url.Values{"since": {strconv.FormatInt(since, 10)}}, nil)
		if err != nil {
			break
		}

		var parsed struct {
			Chats              []webimChat `json:"chats"`
			LastTS             int64       `json:"last_ts"`
			MoreChatsAvailable bool        `json:"more_chats_available"`
		}
		if err := json.Unmarshal(raw, &parsed); err != nil {
			c.log.Error("malformed Webim chat list", zap.Error(err))
			break
		}

		chats = append(chats, parsed.Chats...)

		if !parsed.MoreChatsAvailable || parsed.LastTS > endMicro {
			break
		}
		since = parsed.LastTS
	}

	var dialogs []Dialog
	for _, chat := range chats {
		dialog := c.normalizeChat(chat)

		var kept []Message
		for _, m := range dialog.Messages {
			if period.Contains(m.CreatedAt) {
				kept = append(kept, m)
			}
		}
		dialog.Messages = kept

		dialogs = append(dialogs, dialog)
	}

	return dedupeDialogs(dialogs)
}

// Message scans.

func (c *Webim) LastActionableMessageTime(dialog *Dialog) (time.Time, bool) {
	if dialog == nil {
		return time.Time{}, false
	}

	return lastActionableTime(dialog.Messages, func(m Message) bool {
		return webimActionableKinds[m.Kind]
	})
}

func (c *Webim) FindOperatorMessages(messages []Message) map[int]string {
	return filterMessages(messages, func(m Message) bool { return m.Who == RoleOperator })
}

func (c *Webim) FindClientMessages(messages []Message) map[int]string {
	return filterMessages(messages, func(m Message) bool { return m.Who == RoleClient })
}

func (c *Webim) FindMessageIndexByPattern(pattern string, messages []string) (int, bool) {
	return findMessageIndexByPattern(pattern, messages)
}

func (c *Webim) GroupOperatorMessagesBySendDate(dialogs []Dialog) map[string][]Message {
	return groupMessagesByDate(dialogs, func(m Message) bool { return m.Who == RoleOperator })
}

func (c *Webim) GroupDialogsByChannel(dialogs []Dialog) map[Channel][]Dialog {
	return groupDialogsByChannel(dialogs)
}

// Operators.

func (c *Webim) ListOperators(ctx context.Context) []Operator {
	raw, err := c.send(ctx, webimOpOperators, nil, nil)
	if err != nil {
		return nil
	}

	var staff []struct {
		ID     flexID   `json:"id"`
		Status string   `json:"status"`
		Roles  []string `json:"roles"`
	}
	if err := json.Unmarshal(raw, &staff); err != nil {
		c.log.Error("malformed Webim operator list", zap.Error(err))
		return nil
	}

	var operators []Operator
	for _, s := range staff {
		op := Operator{
			ID:     s.ID.String(),
			Login:  s.ID.String(),
			Online: s.Status == "online",
			Roles:  s.Roles,
		}
		if op.HasRole("operator") {
			operators = append(operators, op)
		}
	}

	return operators
}

func (c *Webim) OnlineOperatorIDs(ctx context.Context) []string {
	var ids []string
	for _, op := range c.ListOperators(ctx) {
		if op.Online {
			ids = append(ids, op.ID)
		}
	}

	return ids
}

func (c *Webim) RedirectDialog(ctx context.Context, dialog *Dialog, toOperator string) bool {
	if dialog == nil {
		return false
	}

	req := map[string]any{
		"chat_id":     webimID(dialog.ID),
		"operator_id": webimID(toOperator),
	}

	_, err := c.send(ctx, webimOpRedirect, nil, req)

	return err == nil
}

// Bot capabilities.

func (c *Webim) HasBot() bool { return true }

func (c *Webim) SupportsCloseChat() bool { return true }

func (c *Webim) IsDialogWithBot(dialog *Dialog) bool {
	return dialog != nil && dialog.OperatorID != "" && dialog.OperatorID == c.cfg.BotOperatorID
}

func (c *Webim) CloseChat(ctx context.Context, clientID string) bool {
	_, err := c.send(ctx, webimOpClose, nil, map[string]any{"chat_id": webimID(clientID)})

	return err == nil
}

// WasHandedToBot checks whether the dialog's most recent message is a
// system hand-off notice naming the configured bot operator. Only the last
// message is inspected; earlier notices are already stale.
func (c *Webim) WasHandedToBot(dialog *Dialog) bool {
	if dialog == nil || len(dialog.Messages) == 0 {
		return false
	}

	last := dialog.Messages[len(dialog.Messages)-1]
	if last.Kind != "info" {
		return false
	}

	m := webimHandOffPattern.FindStringSubmatch(last.Text)
	if m == nil {
		return false
	}

	return m[1] == c.cfg.BotOperatorName
}

// Transport.

// webimID converts string ids back to the numeric form the vendor expects
// where possible.
func webimID(id string) any {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return n
	}

	return id
}

// send executes one API call, routing the operation to its scheme: GET with
// basic auth on the account API, POST with a bearer token on the bot API.
// An operation outside the known tables is a defect and yields an OPERATION
// error.
func (c *Webim) send(ctx context.Context, op string, query url.Values, body any) (json.RawMessage, error) {
	var req *http.Request
	var payload []byte

	switch {
	case webimGetOps[op]:
		endpoint := fmt.Sprintf("https://%s.webim.ru/api/v2/%s", c.cfg.Subdomain, op)
		if len(query) > 0 {
			endpoint += "?" + query.Encode()
		}

		var err error
		if req, err = http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil); err != nil {
			return nil, fmt.Errorf("failed to build Webim request: %w", err)
		}
		req.SetBasicAuth(c.cfg.Login, c.cfg.Password)

	case webimPostOps[op]:
		endpoint := fmt.Sprintf("https://%s.webim.ru/api/bot/v2/%s", c.cfg.Subdomain, op)

		var err error
		if body != nil {
			if payload, err = json.Marshal(body); err != nil {
				return nil, fmt.Errorf("failed to encode Webim request: %w", err)
			}
		}
		if req, err = http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload)); err != nil {
			return nil, fmt.Errorf("failed to build Webim request: %w", err)
		}
		req.Header.Set("Authorization", "Token "+c.cfg.APIToken)

	default:
		return nil, apperrors.NewOperationError(fmt.Sprintf("unknown Webim API operation %q", op))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error("Webim request failed",
			zap.String("api_method", op),
			zap.ByteString("data", payload),
			zap.Error(err))
		return nil, apperrors.NewTransportError("webim request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil || resp.StatusCode != http.StatusOK {
		c.log.Error("Webim request failed",
			zap.String("api_method", op),
			zap.ByteString("data", payload),
			zap.Int("http_code", resp.StatusCode),
			zap.ByteString("response", raw))
		return nil, apperrors.NewTransportError(
			fmt.Sprintf("webim responded with status %d", resp.StatusCode), err)
	}

	return raw, nil
}
