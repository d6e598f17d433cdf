package streaming

import "encoding/json"

type payloadShape struct {
	Type    string  `json:"type"`
	Title   *string `json:"title"`
	Content any     `json:"content"`
}

// Interpret classifies a single trimmed data payload.
//
// The rules apply in order: an empty payload yields nothing; the [DONE]
// sentinel and {"type":"done"} objects end the stream; JSON objects with a
// non-empty string "content" are deltas; any other JSON is ignored. Payloads
// that are not JSON at all are passed through verbatim as content.
func Interpret(payload string) (Event, bool) {
	if payload == "" {
		return Event{}, false
	}
	if payload == DoneSentinel {
		return Event{Type: EventDone}, true
	}

	var parsed payloadShape
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		// Could be a JSON scalar or array; those are valid JSON and carry nothing.
		if json.Valid([]byte(payload)) {
			return Event{}, false
		}
		return Content(payload), true
	}

	if parsed.Type == string(EventDone) {
		if parsed.Title == nil {
			return Done(""), true
		}
		return Done(*parsed.Title), true
	}
	if text, ok := parsed.Content.(string); ok && text != "" {
		return Content(text), true
	}
	return Event{}, false
}
