package consultant

import (
	"testing"
	"time"

	"github.com/srclab/consultant/internal/apperrors"
)

func TestParseFieldNames(t *testing.T) {
	t.Parallel()

	t.Run("webhook fields", func(t *testing.T) {
		t.Parallel()

		for _, name := range []string{"client_id", "search_id", "message_text", "messages", "operator_login"} {
			if _, err := ParseWebhookField(name); err != nil {
				t.Errorf("ParseWebhookField(%q) failed: %v", name, err)
			}
		}

		_, err := ParseWebhookField("secret")
		if !apperrors.IsCode(err, apperrors.CodeField) {
			t.Errorf("unknown name must fail with a FIELD error, got %v", err)
		}
	})

	t.Run("dialog fields", func(t *testing.T) {
		t.Parallel()

		for _, name := range []string{"name", "messages", "client_id", "search_id", "operator_id"} {
			if _, err := ParseDialogField(name); err != nil {
				t.Errorf("ParseDialogField(%q) failed: %v", name, err)
			}
		}

		if _, err := ParseDialogField("channel"); !apperrors.IsCode(err, apperrors.CodeField) {
			t.Errorf("unknown name must fail with a FIELD error, got %v", err)
		}
	})

	t.Run("message fields", func(t *testing.T) {
		t.Parallel()

		for _, name := range []string{"created_at", "who_send", "operator"} {
			if _, err := ParseMessageField(name); err != nil {
				t.Errorf("ParseMessageField(%q) failed: %v", name, err)
			}
		}

		if _, err := ParseMessageField("text"); !apperrors.IsCode(err, apperrors.CodeField) {
			t.Errorf("unknown name must fail with a FIELD error, got %v", err)
		}
	})
}

func TestExtractDialogField(t *testing.T) {
	t.Parallel()

	dialog := &Dialog{
		ID:         "7",
		ClientID:   "7",
		SearchID:   "s7",
		OperatorID: "op",
		Name:       "Ivan",
		Messages:   []Message{{Text: "hi"}},
	}

	tests := []struct {
		field DialogField
		want  string
	}{
		{DialogName, "Ivan"},
		{DialogClientID, "7"},
		{DialogSearchID, "s7"},
		{DialogOperatorID, "op"},
	}

	for _, tc := range tests {
		value, err := extractDialogField(tc.field, dialog)
		if err != nil {
			t.Fatalf("extractDialogField(%q) failed: %v", tc.field, err)
		}
		if value.Str != tc.want {
			t.Errorf("extractDialogField(%q) = %q, want %q", tc.field, value.Str, tc.want)
		}
	}

	value, err := extractDialogField(DialogMessages, dialog)
	if err != nil || len(value.Messages) != 1 {
		t.Errorf("messages extraction = %v, %v", value.Messages, err)
	}

	if _, err := extractDialogField(DialogField("bogus"), dialog); !apperrors.IsCode(err, apperrors.CodeField) {
		t.Errorf("unknown field must fail with a FIELD error, got %v", err)
	}

	if _, err := extractDialogField(DialogName, nil); err == nil {
		t.Error("nil dialog must fail")
	}
}

func TestExtractMessageField(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	msg := Message{Who: RoleOperator, Kind: "operator", Text: "hi", CreatedAt: created, OperatorID: "op1"}

	value, err := extractMessageField(MessageCreatedAt, msg)
	if err != nil || !value.Time.Equal(created) {
		t.Errorf("created_at = %v, %v", value.Time, err)
	}

	value, err = extractMessageField(MessageWhoSend, msg)
	if err != nil || value.Role != RoleOperator {
		t.Errorf("who_send = %v, %v", value.Role, err)
	}

	value, err = extractMessageField(MessageOperator, msg)
	if err != nil || value.Str != "op1" {
		t.Errorf("operator = %v, %v", value.Str, err)
	}

	if _, err := extractMessageField(MessageField("bogus"), msg); !apperrors.IsCode(err, apperrors.CodeField) {
		t.Errorf("unknown field must fail with a FIELD error, got %v", err)
	}
}
