package consultant

import (
	"regexp"
	"time"
)

// Matches ASCII control characters and all whitespace.
var controlAndSpaces = regexp.MustCompile(`[\x00-\x1F\x7F\s]`)

func stripControlAndSpaces(s string) string {
	return controlAndSpaces.ReplaceAllString(s, "")
}

// filterMessages returns an index-preserving mapping of messages accepted by
// keep to their text.
func filterMessages(messages []Message, keep func(Message) bool) map[int]string {
	found := make(map[int]string)
	for i, m := range messages {
		if keep(m) {
			found[i] = m.Text
		}
	}

	return found
}

// lastActionableTime walks the messages from the end and returns the
// timestamp of the first one accepted by actionable.
func lastActionableTime(messages []Message, actionable func(Message) bool) (time.Time, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if actionable(messages[i]) {
			return messages[i].CreatedAt, true
		}
	}

	return time.Time{}, false
}

// findMessageIndexByPattern scans every message, stripping control
// characters and whitespace before case-insensitive matching, and returns
// the index of the last match. Callers depend on last-match semantics.
func findMessageIndexByPattern(pattern string, messages []string) (int, bool) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return 0, false
	}

	index, found := 0, false
	for i, m := range messages {
		if re.MatchString(stripControlAndSpaces(m)) {
			index, found = i, true
		}
	}

	return index, found
}

// groupMessagesByDate flattens messages across dialogs, keeps the accepted
// ones and groups them by local calendar date (YYYY-MM-DD).
func groupMessagesByDate(dialogs []Dialog, keep func(Message) bool) map[string][]Message {
	grouped := make(map[string][]Message)
	for _, d := range dialogs {
		for _, m := range d.Messages {
			if keep(m) {
				day := m.CreatedAt.Format("2006-01-02")
				grouped[day] = append(grouped[day], m)
			}
		}
	}

	return grouped
}

func groupDialogsByChannel(dialogs []Dialog) map[Channel][]Dialog {
	grouped := make(map[Channel][]Dialog)
	for _, d := range dialogs {
		grouped[d.Channel] = append(grouped[d.Channel], d)
	}

	return grouped
}

// dedupeDialogs keeps the first occurrence of every dialog id, merging in
// messages of duplicates that were not already seen. Adjacent fetch windows
// share their boundary, so duplicates are expected there.
func dedupeDialogs(dialogs []Dialog) []Dialog {
	if len(dialogs) == 0 {
		return dialogs
	}

	indexByID := make(map[string]int, len(dialogs))
	deduped := make([]Dialog, 0, len(dialogs))

	for _, d := range dialogs {
		i, seen := indexByID[d.ID]
		if !seen {
			indexByID[d.ID] = len(deduped)
			deduped = append(deduped, d)
			continue
		}

		for _, m := range d.Messages {
			if !containsMessage(deduped[i].Messages, m) {
				deduped[i].Messages = append(deduped[i].Messages, m)
			}
		}
	}

	return deduped
}

func containsMessage(messages []Message, m Message) bool {
	for _, have := range messages {
		if have.CreatedAt.Equal(m.CreatedAt) && have.Kind == m.Kind && have.Text == m.Text {
			return true
		}
	}

	return false
}
