package events

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewMessageEnvelope(t *testing.T) {
	t.Parallel()

	msg := NewMessage{Consultant: "webim", ClientID: "7", Text: "hello"}
	env := NewMessageEnvelope(msg)

	if env.Meta.ID == "" {
		t.Error("event id must be generated")
	}
	if env.Meta.Type != TypeNewMessage {
		t.Errorf("type = %q, want %q", env.Meta.Type, TypeNewMessage)
	}
	if env.Meta.Producer != "consultantd" {
		t.Errorf("producer = %q", env.Meta.Producer)
	}
	if env.Meta.Time.IsZero() || env.Meta.Time.Location() != time.UTC {
		t.Errorf("time = %v, want a fresh UTC timestamp", env.Meta.Time)
	}
	if env.Data.(NewMessage) != msg {
		t.Errorf("data = %+v", env.Data)
	}

	if other := NewMessageEnvelope(msg); other.Meta.ID == env.Meta.ID {
		t.Error("every envelope needs its own id")
	}
}

func TestEnvelopeJSONShape(t *testing.T) {
	t.Parallel()

	env := NewMessageEnvelope(NewMessage{Consultant: "talk_me", ClientID: "c1", Text: "hi"})

	raw, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded struct {
		Meta struct {
			ID       string `json:"id"`
			Type     string `json:"type"`
			Producer string `json:"producer"`
		} `json:"meta"`
		Data struct {
			Consultant string `json:"consultant"`
			ClientID   string `json:"client_id"`
			Text       string `json:"text"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if decoded.Meta.Type != TypeNewMessage || decoded.Meta.ID != env.Meta.ID {
		t.Errorf("meta = %+v", decoded.Meta)
	}
	if decoded.Data.Consultant != "talk_me" || decoded.Data.ClientID != "c1" || decoded.Data.Text != "hi" {
		t.Errorf("data = %+v", decoded.Data)
	}
}
