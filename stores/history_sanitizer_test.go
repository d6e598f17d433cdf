package stores

import (
	"testing"
)

func TestSanitizeHistory_EmptyHistory(t *testing.T) {
	msgs := []Message{}
	result := SanitizeHistory(msgs)
	if len(result) != 0 {
		t.Errorf("Expected empty result, got %d messages", len(result))
	}
}

func TestSanitizeHistory_ValidHistory(t *testing.T) {
	msgs := []Message{
		{Content: "hi"},
		{Content: "hello!", IsAI: true},
		{Content: "draw a cat"},
		{Content: "Here it is.", IsAI: true, ImageURLs: []string{"https://img/cat.png"}},
	}
	result := SanitizeHistory(msgs)
	if len(result) != 4 {
		t.Errorf("Expected 4 messages, got %d", len(result))
	}
}

func TestSanitizeHistory_LeadingAssistantMessages(t *testing.T) {
	msgs := []Message{
		{Content: "answer to a prompt outside the window", IsAI: true},
		{Content: "follow-up", IsAI: true},
		{Content: "next question"},
		{Content: "next answer", IsAI: true},
	}
	result := SanitizeHistory(msgs)
	if len(result) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(result))
	}
	if result[0].IsAI {
		t.Error("Expected history to start with a user message")
	}
}

func TestSanitizeHistory_BlankMessages(t *testing.T) {
	msgs := []Message{
		{Content: "   "},
		{Content: "question"},
		{Content: "", IsAI: true},
		{Content: "answer", IsAI: true},
	}
	result := SanitizeHistory(msgs)
	if len(result) != 2 {
		t.Errorf("Expected 2 messages, got %d", len(result))
	}
}

func TestSanitizeHistory_RepeatedUserMessage(t *testing.T) {
	msgs := []Message{
		{Content: "what's the weather?", TurnID: "t1"},
		{Content: "what's the weather? ", TurnID: "t2"},
		{Content: "Sunny.", IsAI: true, TurnID: "t2"},
	}
	result := SanitizeHistory(msgs)
	if len(result) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(result))
	}
	if result[0].TurnID != "t2" {
		t.Errorf("Expected the later retry to be kept, got %s", result[0].TurnID)
	}
}

func TestSanitizeHistory_OnlyAssistantMessages(t *testing.T) {
	msgs := []Message{
		{Content: "a", IsAI: true},
		{Content: "b", IsAI: true},
	}
	result := SanitizeHistory(msgs)
	if len(result) != 0 {
		t.Errorf("Expected empty history, got %d", len(result))
	}
}

func TestDetectCorruptedHistory_Clean(t *testing.T) {
	msgs := []Message{{Content: "q"}, {Content: "a", IsAI: true}}
	if issues := DetectCorruptedHistory(msgs); len(issues) != 0 {
		t.Errorf("Expected no issues, got %v", issues)
	}
}

func TestDetectCorruptedHistory_Problems(t *testing.T) {
	msgs := []Message{
		{Content: "a", IsAI: true},
		{Content: "q"},
		{Content: "q"},
		{Content: ""},
	}
	issues := DetectCorruptedHistory(msgs)
	if len(issues) != 3 {
		t.Errorf("Expected 3 issues, got %v", issues)
	}
}
