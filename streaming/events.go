package streaming

// EventType discriminates the two semantic stream events.
type EventType string

const (
	EventContent EventType = "content"
	EventDone    EventType = "done"
)

// DoneSentinel is the reserved payload that ends an upstream stream.
const DoneSentinel = "[DONE]"

// Event is one semantic event decoded from a stream. Content events carry a
// text delta; Done events optionally carry a conversation title.
type Event struct {
	Type    EventType `json:"type"`
	Content string    `json:"content,omitempty"`
	Title   *string   `json:"title,omitempty"`
}

// Content builds a content-delta event.
func Content(text string) Event {
	return Event{Type: EventContent, Content: text}
}

// Done builds a completion event. An empty title is omitted.
func Done(title string) Event {
	if title == "" {
		return Event{Type: EventDone}
	}
	return Event{Type: EventDone, Title: &title}
}

// IsDone reports whether the event ends the stream.
func (e Event) IsDone() bool {
	return e.Type == EventDone
}

// TitleOrEmpty returns the done title, or "" when absent.
func (e Event) TitleOrEmpty() string {
	if e.Title == nil {
		return ""
	}
	return *e.Title
}
