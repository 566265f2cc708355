package consultant

import (
	"testing"
	"time"
)

func at(hour int) time.Time {
	return time.Date(2024, 5, 1, hour, 0, 0, 0, time.UTC)
}

func TestFindMessageIndexByPattern(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		pattern   string
		messages  []string
		wantIndex int
		wantFound bool
	}{
		{
			name:      "last match wins over first",
			pattern:   "hello",
			messages:  []string{"say hello", "goodbye", "hello again"},
			wantIndex: 2,
			wantFound: true,
		},
		{
			name:      "case insensitive",
			pattern:   "yes",
			messages:  []string{"YES"},
			wantIndex: 0,
			wantFound: true,
		},
		{
			name:      "control characters and spaces stripped before match",
			pattern:   "привет",
			messages:  []string{"при вет"},
			wantIndex: 0,
			wantFound: true,
		},
		{
			name:      "no match",
			pattern:   "missing",
			messages:  []string{"one", "two"},
			wantFound: false,
		},
		{
			name:      "invalid pattern yields no match",
			pattern:   "(",
			messages:  []string{"("},
			wantFound: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			index, found := findMessageIndexByPattern(tc.pattern, tc.messages)
			if found != tc.wantFound {
				t.Fatalf("found = %v, want %v", found, tc.wantFound)
			}
			if found && index != tc.wantIndex {
				t.Errorf("index = %d, want %d", index, tc.wantIndex)
			}
		})
	}
}

func TestFilterMessagesPartition(t *testing.T) {
	t.Parallel()

	messages := []Message{
		{Who: RoleClient, Text: "hi"},
		{Who: RoleOperator, Text: "hello"},
		{Who: RoleSystem, Text: "handed off"},
		{Who: RoleClient, Text: "thanks"},
	}

	clients := filterMessages(messages, func(m Message) bool { return m.Who == RoleClient })
	operators := filterMessages(messages, func(m Message) bool { return m.Who == RoleOperator })

	if len(clients) != 2 || clients[0] != "hi" || clients[3] != "thanks" {
		t.Errorf("client messages = %v", clients)
	}
	if len(operators) != 1 || operators[1] != "hello" {
		t.Errorf("operator messages = %v", operators)
	}

	// No index may appear in both results.
	for i := range clients {
		if _, dup := operators[i]; dup {
			t.Errorf("index %d present in both partitions", i)
		}
	}
}

func TestLastActionableTime(t *testing.T) {
	t.Parallel()

	messages := []Message{
		{Who: RoleClient, CreatedAt: at(10)},
		{Who: RoleOperator, Kind: "autoMessage", CreatedAt: at(11)},
		{Who: RoleSystem, Kind: "info", CreatedAt: at(12)},
	}

	got, ok := lastActionableTime(messages, func(m Message) bool { return m.Who == RoleClient })
	if !ok {
		t.Fatal("expected an actionable message")
	}
	if !got.Equal(at(10)) {
		t.Errorf("got %v, want %v", got, at(10))
	}

	if _, ok := lastActionableTime(nil, func(Message) bool { return true }); ok {
		t.Error("empty list must yield no timestamp")
	}
}

func TestGroupMessagesByDate(t *testing.T) {
	t.Parallel()

	dialogs := []Dialog{
		{Messages: []Message{
			{Who: RoleOperator, Text: "a", CreatedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
			{Who: RoleClient, Text: "b", CreatedAt: time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC)},
		}},
		{Messages: []Message{
			{Who: RoleOperator, Text: "c", CreatedAt: time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)},
			{Who: RoleOperator, Text: "d", CreatedAt: time.Date(2024, 5, 2, 18, 0, 0, 0, time.UTC)},
		}},
	}

	grouped := groupMessagesByDate(dialogs, func(m Message) bool { return m.Who == RoleOperator })

	if len(grouped) != 2 {
		t.Fatalf("got %d dates, want 2", len(grouped))
	}
	if len(grouped["2024-05-01"]) != 1 || grouped["2024-05-01"][0].Text != "a" {
		t.Errorf("2024-05-01 group = %v", grouped["2024-05-01"])
	}
	if len(grouped["2024-05-02"]) != 2 {
		t.Errorf("2024-05-02 group = %v", grouped["2024-05-02"])
	}
}

func TestDedupeDialogs(t *testing.T) {
	t.Parallel()

	dialogs := []Dialog{
		{ID: "1", Messages: []Message{{Text: "a", CreatedAt: at(10)}}},
		{ID: "2"},
		{ID: "1", Messages: []Message{
			{Text: "a", CreatedAt: at(10)}, // already seen
			{Text: "b", CreatedAt: at(11)},
		}},
	}

	deduped := dedupeDialogs(dialogs)

	if len(deduped) != 2 {
		t.Fatalf("got %d dialogs, want 2", len(deduped))
	}
	if deduped[0].ID != "1" || deduped[1].ID != "2" {
		t.Errorf("order not preserved: %v, %v", deduped[0].ID, deduped[1].ID)
	}
	if len(deduped[0].Messages) != 2 {
		t.Errorf("merged dialog has %d messages, want 2", len(deduped[0].Messages))
	}
}

func TestGroupDialogsByChannel(t *testing.T) {
	t.Parallel()

	dialogs := []Dialog{
		{ID: "1", Channel: ChannelSite},
		{ID: "2", Channel: ChannelTelegram},
		{ID: "3", Channel: ChannelSite},
	}

	grouped := groupDialogsByChannel(dialogs)

	if len(grouped[ChannelSite]) != 2 || len(grouped[ChannelTelegram]) != 1 {
		t.Errorf("unexpected grouping: %v", grouped)
	}
}
