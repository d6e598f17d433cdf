package stores

import (
	"log"
	"strconv"
	"strings"
)

// SanitizeHistory prepares stored messages for replay to the model.
//
// A history window cut at a fixed size can start with an assistant reply
// whose prompt fell outside the window, and failed turns can leave blank rows
// or the same user message twice in a row. SanitizeHistory:
//   - drops messages with no text
//   - drops assistant messages before the first user message
//   - keeps only the last of consecutive identical user messages
func SanitizeHistory(msgs []Message) []Message {
	if len(msgs) == 0 {
		return msgs
	}

	startIdx := findValidStartIndex(msgs)
	if startIdx == -1 {
		log.Printf("[HISTORY_SANITIZER] No user message found, returning empty history")
		return []Message{}
	}
	if startIdx > 0 {
		log.Printf("[HISTORY_SANITIZER] Skipping first %d messages to find valid start", startIdx)
	}

	sanitized := make([]Message, 0, len(msgs)-startIdx)
	for _, msg := range msgs[startIdx:] {
		if isBlank(msg) {
			continue
		}
		if n := len(sanitized); n > 0 && isRepeatedUserMessage(sanitized[n-1], msg) {
			sanitized[n-1] = msg
			continue
		}
		sanitized = append(sanitized, msg)
	}

	if dropped := len(msgs) - startIdx - len(sanitized); dropped > 0 {
		log.Printf("[HISTORY_SANITIZER] Removed %d blank or repeated messages", dropped)
	}
	return sanitized
}

// findValidStartIndex returns the index of the first non-blank user message.
func findValidStartIndex(msgs []Message) int {
	for i, msg := range msgs {
		if !msg.IsAI && !isBlank(msg) {
			return i
		}
	}
	return -1
}

func isBlank(msg Message) bool {
	return strings.TrimSpace(msg.Content) == ""
}

func isRepeatedUserMessage(prev, next Message) bool {
	return !prev.IsAI && !next.IsAI && strings.TrimSpace(prev.Content) == strings.TrimSpace(next.Content)
}

// DetectCorruptedHistory reports problems SanitizeHistory would repair.
func DetectCorruptedHistory(msgs []Message) []string {
	var issues []string
	if len(msgs) == 0 {
		return issues
	}

	if msgs[0].IsAI {
		issues = append(issues, "history starts with an assistant message")
	}
	for i, msg := range msgs {
		if isBlank(msg) {
			issues = append(issues, "blank message at index "+strconv.Itoa(i))
		}
		if i > 0 && isRepeatedUserMessage(msgs[i-1], msg) && !isBlank(msg) {
			issues = append(issues, "repeated user message at index "+strconv.Itoa(i))
		}
	}
	return issues
}
