package consultant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/srclab/consultant/internal/apperrors"
	"github.com/srclab/consultant/internal/config"
	"github.com/srclab/consultant/internal/httpclient"
)

// Single request to the TalkMe message API covers at most 14 days.
const talkMeMaxWindow = 14 * 24 * time.Hour

const (
	talkMeQueryAPIBase = "https://lcab.talk-me.ru/api/chat"
	talkMeTokenAPIBase = "https://lcab.talk-me.ru/json/v1.0/chat"
)

// TalkMe API operations, split by auth scheme: some endpoints carry the
// token in the URL path, others in the X-Token header.
const (
	talkMeOpMessages        = "message"
	talkMeOpMessageToClient = "messageToClient"
	talkMeOpOperatorList    = "operator/getList"
	talkMeOpForward         = "message/forward"
)

var (
	talkMePathTokenOps   = map[string]bool{talkMeOpMessages: true, talkMeOpMessageToClient: true}
	talkMeHeaderTokenOps = map[string]bool{talkMeOpOperatorList: true, talkMeOpForward: true}
)

// TalkMe implements the Consultant contract against the TalkMe wire
// protocol. TalkMe has no bot concept, so every bot capability is fixed off.
type TalkMe struct {
	cfg  config.TalkMe
	http httpclient.Doer
	log  *zap.Logger
	loc  *time.Location
}

// NewTalkMe builds the TalkMe adapter. The api_token and default_operator
// settings are required.
func NewTalkMe(cfg config.TalkMe, doer httpclient.Doer, logger *zap.Logger, loc *time.Location) (*TalkMe, error) {
	if cfg.APIToken == "" || cfg.DefaultOperator == "" {
		return nil, apperrors.NewConfigError("talkme: api_token and default_operator must be configured", nil)
	}
	if loc == nil {
		loc = time.Local
	}

	return &TalkMe{cfg: cfg, http: doer, log: logger, loc: loc}, nil
}

func (c *TalkMe) Name() string { return config.VendorTalkMe }

// Wire shapes.

type talkMeWebhook struct {
	SecretKey string `json:"secretKey"`
	Client    struct {
		ClientID   flexID `json:"clientId"`
		SearchID   flexID `json:"searchId"`
		CustomData struct {
			UserID flexID `json:"user_id"`
		} `json:"customData"`
	} `json:"client"`
	Operator struct {
		Login string `json:"login"`
	} `json:"operator"`
	Message *struct {
		Text string `json:"text"`
	} `json:"message"`
}

type talkMeMessage struct {
	DateTime    string `json:"dateTime"`
	WhoSend     string `json:"whoSend"`
	Text        string `json:"text"`
	MessageType string `json:"messageType"`
	Operator    *struct {
		Login string `json:"login"`
	} `json:"operator"`
}

type talkMeDialog struct {
	ClientID  flexID `json:"clientId"`
	SearchID  flexID `json:"searchId"`
	Name      string `json:"name"`
	Operators []struct {
		Login string `json:"login"`
	} `json:"operators"`
	Messages []talkMeMessage `json:"messages"`
	Source   struct {
		Type struct {
			ID string `json:"id"`
		} `json:"type"`
	} `json:"source"`
}

type talkMeOperatorRef struct {
	Login string `json:"login"`
}

type talkMeClientRef struct {
	SearchID string `json:"searchId,omitempty"`
	ClientID string `json:"clientId,omitempty"`
}

// Send endpoints address the client by a bare id; the filter and forward
// endpoints use the searchId/clientId pair.
type talkMeSendRequest struct {
	Client struct {
		ID string `json:"id"`
	} `json:"client"`
	Operator talkMeOperatorRef `json:"operator"`
	Message  struct {
		Text string `json:"text"`
	} `json:"message"`
}

type talkMeDateRange struct {
	Start string `json:"start"`
	Stop  string `json:"stop"`
}

type talkMeMessagesRequest struct {
	DateRange talkMeDateRange  `json:"dateRange"`
	Client    *talkMeClientRef `json:"client,omitempty"`
}

type talkMeForwardRequest struct {
	Client talkMeClientRef   `json:"client"`
	From   talkMeOperatorRef `json:"from"`
	To     talkMeOperatorRef `json:"to"`
}

func talkMeRole(whoSend string) Role {
	switch whoSend {
	case "client":
		return RoleClient
	case "operator":
		return RoleOperator
	default:
		return RoleSystem
	}
}

// Operator messages typed comment or autoMessage are annotations, not real
// communication.
func talkMeActionableOperator(m Message) bool {
	return m.Who == RoleOperator && m.Kind != "comment" && m.Kind != "autoMessage"
}

func (c *TalkMe) normalizeMessage(m talkMeMessage) Message {
	created, err := parseVendorTime(m.DateTime, c.loc)
	if err != nil && m.DateTime != "" {
		c.log.Warn("unparseable TalkMe message timestamp", zap.String("date_time", m.DateTime))
	}

	msg := Message{
		Who:       talkMeRole(m.WhoSend),
		Kind:      m.MessageType,
		Text:      m.Text,
		CreatedAt: created,
	}
	if m.Operator != nil {
		msg.OperatorID = m.Operator.Login
	}

	return msg
}

func (c *TalkMe) normalizeDialog(d talkMeDialog) Dialog {
	dialog := Dialog{
		ID:       d.ClientID.String(),
		ClientID: d.ClientID.String(),
		SearchID: d.SearchID.String(),
		Name:     d.Name,
		Channel:  ChannelSite,
	}

	// The vendor may attach several operators over the dialog's life; the
	// most recent one is authoritative.
	if len(d.Operators) > 0 {
		dialog.OperatorID = d.Operators[len(d.Operators)-1].Login
	}
	if d.Source.Type.ID != "" {
		dialog.Channel = Channel(d.Source.Type.ID)
	}

	for _, m := range d.Messages {
		dialog.Messages = append(dialog.Messages, c.normalizeMessage(m))
	}

	return dialog
}

// Webhook handling.

func (c *TalkMe) ValidateNewMessageWebhook(payload []byte) bool {
	var hook talkMeWebhook
	if err := json.Unmarshal(payload, &hook); err != nil {
		c.log.Error("malformed TalkMe webhook payload", zap.Error(err))
		return false
	}

	if !secretMatches(c.cfg.WebhookSecret, hook.SecretKey) {
		c.log.Warn("webhook secret mismatch", zap.ByteString("payload", payload))
		return false
	}

	if hook.Message == nil || hook.Message.Text == "" {
		c.log.Error("webhook carries no message", zap.ByteString("payload", payload))
		return false
	}

	if hook.Operator.Login == "" {
		c.log.Error("webhook carries no operator", zap.ByteString("payload", payload))
		return false
	}

	return true
}

func (c *TalkMe) IsUserAllowed(allowedIDs []string, payload []byte) bool {
	if len(allowedIDs) == 0 {
		return true
	}

	var hook talkMeWebhook
	if err := json.Unmarshal(payload, &hook); err != nil {
		return false
	}

	userID := hook.Client.CustomData.UserID.String()

	return userID != "" && containsString(allowedIDs, userID)
}

func (c *TalkMe) ExtractWebhookField(field WebhookField, payload []byte) (Value, error) {
	var hook talkMeWebhook
	if err := json.Unmarshal(payload, &hook); err != nil {
		return Value{}, fmt.Errorf("malformed TalkMe webhook payload: %w", err)
	}

	switch field {
	case WebhookClientID:
		return stringValue(hook.Client.ClientID.String()), nil
	case WebhookSearchID:
		return stringValue(hook.Client.SearchID.String()), nil
	case WebhookMessageText:
		if hook.Message == nil {
			return Value{}, nil
		}
		return stringValue(hook.Message.Text), nil
	case WebhookMessages:
		// TalkMe webhooks never carry a message list.
		return Value{}, nil
	case WebhookOperatorLogin:
		return stringValue(hook.Operator.Login), nil
	}

	return Value{}, apperrors.NewFieldError(fmt.Sprintf("unknown webhook field %q", field))
}

func (c *TalkMe) ExtractDialogField(field DialogField, dialog *Dialog) (Value, error) {
	return extractDialogField(field, dialog)
}

func (c *TalkMe) ExtractMessageField(field MessageField, msg Message) (Value, error) {
	return extractMessageField(field, msg)
}

// Outbound operations.

func (c *TalkMe) SendMessage(ctx context.Context, clientID, text, operator string) bool {
	if operator == "" {
		operator = c.cfg.DefaultOperator
	}

	var req talkMeSendRequest
	req.Client.ID = clientID
	req.Operator.Login = operator
	req.Message.Text = text

	_, err := c.send(ctx, talkMeOpMessageToClient, req)

	return err == nil
}

// SendButtonsMessage synthesizes a bulleted text menu; TalkMe has no native
// buttons.
func (c *TalkMe) SendButtonsMessage(ctx context.Context, clientID string, buttons []string, operator string) bool {
	var menu strings.Builder
	menu.WriteString("Пожалуйста выберите и напишите один из вариантов ответа:\n")
	for _, name := range buttons {
		fmt.Fprintf(&menu, "* %s\n", name)
	}

	return c.SendMessage(ctx, clientID, menu.String(), operator)
}

func (c *TalkMe) FetchDialog(ctx context.Context, clientID string, period *TimePeriod) *Dialog {
	p := Today(c.loc)
	if period != nil {
		p = *period
	}

	dialogs := c.fetchDialogs(ctx, p, clientID)
	if len(dialogs) == 0 {
		return nil
	}

	return &dialogs[0]
}

func (c *TalkMe) FetchDialogs(ctx context.Context, period TimePeriod) []Dialog {
	return c.fetchDialogs(ctx, period, "")
}

// fetchDialogs slices the period into 14-day windows and issues one request
// per window. A failed window stops further fetching and the accumulated
// dialogs are returned as partial results.
func (c *TalkMe) fetchDialogs(ctx context.Context, period TimePeriod, searchID string) []Dialog {
	var dialogs []Dialog

	for i, window := range period.Split(talkMeMaxWindow) {
		start := window.Start.In(c.loc)
		if i > 0 {
			// Adjacent windows share their boundary instant and the API
			// works at date granularity, so the previous request already
			// covered this start date in full.
			start = start.AddDate(0, 0, 1)
		}

		startDate := start.Format("2006-01-02")
		stopDate := window.End.In(c.loc).Format("2006-01-02")
		if startDate > stopDate {
			continue
		}

		req := talkMeMessagesRequest{
			DateRange: talkMeDateRange{
				Start: startDate,
				Stop:  stopDate,
			},
		}
		if searchID != "" {
			req.Client = &talkMeClientRef{SearchID: searchID}
		}

		raw, err := c.send(ctx, talkMeOpMessages, req)
		if err != nil {
			break
		}

		var wire []talkMeDialog
		if err := json.Unmarshal(raw, &wire); err != nil {
			c.log.Error("malformed TalkMe dialog list", zap.Error(err))
			break
		}

		for _, d := range wire {
			dialogs = append(dialogs, c.normalizeDialog(d))
		}
	}

	return dedupeDialogs(dialogs)
}

// Message scans.

func (c *TalkMe) LastActionableMessageTime(dialog *Dialog) (time.Time, bool) {
	if dialog == nil {
		return time.Time{}, false
	}

	return lastActionableTime(dialog.Messages, func(m Message) bool {
		return m.Who == RoleClient || talkMeActionableOperator(m)
	})
}

func (c *TalkMe) FindOperatorMessages(messages []Message) map[int]string {
	return filterMessages(messages, talkMeActionableOperator)
}

func (c *TalkMe) FindClientMessages(messages []Message) map[int]string {
	return filterMessages(messages, func(m Message) bool { return m.Who == RoleClient })
}

func (c *TalkMe) FindMessageIndexByPattern(pattern string, messages []string) (int, bool) {
	return findMessageIndexByPattern(pattern, messages)
}

func (c *TalkMe) GroupOperatorMessagesBySendDate(dialogs []Dialog) map[string][]Message {
	return groupMessagesByDate(dialogs, func(m Message) bool { return m.Who == RoleOperator })
}

func (c *TalkMe) GroupDialogsByChannel(dialogs []Dialog) map[Channel][]Dialog {
	return groupDialogsByChannel(dialogs)
}

// Operators.

func (c *TalkMe) ListOperators(ctx context.Context) []Operator {
	raw, err := c.send(ctx, talkMeOpOperatorList, nil)
	if err != nil {
		return nil
	}

	var parsed struct {
		Operators []struct {
			Login    string `json:"login"`
			StatusID int    `json:"statusId"`
		} `json:"operators"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		c.log.Error("malformed TalkMe operator list", zap.Error(err))
		return nil
	}

	operators := make([]Operator, 0, len(parsed.Operators))
	for _, op := range parsed.Operators {
		operators = append(operators, Operator{
			ID:     op.Login,
			Login:  op.Login,
			Online: op.StatusID == 1,
		})
	}

	return operators
}

func (c *TalkMe) OnlineOperatorIDs(ctx context.Context) []string {
	var ids []string
	for _, op := range c.ListOperators(ctx) {
		if op.Online {
			ids = append(ids, op.ID)
		}
	}

	return ids
}

func (c *TalkMe) RedirectDialog(ctx context.Context, dialog *Dialog, toOperator string) bool {
	if dialog == nil {
		return false
	}

	req := talkMeForwardRequest{
		Client: talkMeClientRef{SearchID: dialog.SearchID, ClientID: dialog.ClientID},
		From:   talkMeOperatorRef{Login: dialog.OperatorID},
		To:     talkMeOperatorRef{Login: toOperator},
	}

	_, err := c.send(ctx, talkMeOpForward, req)

	return err == nil
}

// Bot capabilities: TalkMe has none.

func (c *TalkMe) HasBot() bool { return false }

func (c *TalkMe) SupportsCloseChat() bool { return false }

func (c *TalkMe) IsDialogWithBot(*Dialog) bool { return false }

func (c *TalkMe) WasHandedToBot(*Dialog) bool { return false }

func (c *TalkMe) CloseChat(context.Context, string) bool { return false }

// Transport.

// send executes one API call, routing the operation to its auth scheme.
// Transport and vendor failures are logged here and reported to the caller
// as errors; an operation outside the known tables is a defect and yields an
// OPERATION error.
func (c *TalkMe) send(ctx context.Context, op string, body any) (json.RawMessage, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("failed to encode TalkMe request: %w", err)
		}
	}

	var url string
	switch {
	case talkMePathTokenOps[op]:
		url = fmt.Sprintf("%s/%s/%s", talkMeQueryAPIBase, c.cfg.APIToken, op)
	case talkMeHeaderTokenOps[op]:
		url = fmt.Sprintf("%s/%s", talkMeTokenAPIBase, op)
	default:
		return nil, apperrors.NewOperationError(fmt.Sprintf("unknown TalkMe API operation %q", op))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build TalkMe request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if talkMeHeaderTokenOps[op] {
		req.Header.Set("X-Token", c.cfg.APIToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error("TalkMe request failed",
			zap.String("api_method", op),
			zap.ByteString("data", payload),
			zap.Error(err))
		return nil, apperrors.NewTransportError("talkme request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil || resp.StatusCode != http.StatusOK {
		c.log.Error("TalkMe request failed",
			zap.String("api_method", op),
			zap.ByteString("data", payload),
			zap.Int("http_code", resp.StatusCode),
			zap.ByteString("response", raw))
		return nil, apperrors.NewTransportError(
			fmt.Sprintf("talkme responded with status %d", resp.StatusCode), err)
	}

	if talkMePathTokenOps[op] {
		var parsed struct {
			OK   bool            `json:"ok"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(raw, &parsed); err != nil || !parsed.OK {
			c.log.Error("TalkMe signaled a failure",
				zap.String("api_method", op),
				zap.ByteString("data", payload),
				zap.ByteString("response", raw))
			return nil, apperrors.NewVendorError("talkme reported failure", err)
		}

		return parsed.Data, nil
	}

	var parsed struct {
		Success bool            `json:"success"`
		Result  json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil || !parsed.Success {
		c.log.Error("TalkMe signaled a failure",
			zap.String("api_method", op),
			zap.ByteString("data", payload),
			zap.ByteString("response", raw))
		return nil, apperrors.NewVendorError("talkme reported failure", err)
	}

	return parsed.Result, nil
}
