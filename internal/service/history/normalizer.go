// Package history merges inbound user messages into session history and
// flattens turns into the transcript form the agent engine consumes.
package history

import (
	"fmt"
	"strings"

	"github.com/mzhao28/agentchat/internal/model/chat"
)

// Merge appends userText as a user turn unless the trailing turn is already a
// user turn with identical trimmed content. Clients that resubmit the whole
// running transcript instead of the delta would otherwise double-insert.
// Returns the updated history and whether a turn was appended.
func Merge(turns []chat.Turn, userText string) ([]chat.Turn, bool) {
	trimmed := strings.TrimSpace(userText)

	if n := len(turns); n > 0 {
		last := turns[n-1]
		if last.Role == chat.RoleUser && strings.TrimSpace(last.Content) == trimmed {
			return turns, false
		}
	}

	updated := make([]chat.Turn, len(turns), len(turns)+1)
	copy(updated, turns)
	updated = append(updated, chat.Turn{Role: chat.RoleUser, Content: trimmed})
	return updated, true
}

// Format renders each turn as "<Role>: <content>" in chronological order.
func Format(turns []chat.Turn) []string {
	transcript := make([]string, 0, len(turns))
	for _, turn := range turns {
		transcript = append(transcript, fmt.Sprintf("%s: %s", turn.Role.Label(), turn.Content))
	}
	return transcript
}
