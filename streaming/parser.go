package streaming

import "strings"

// FrameTerminator separates frames on the wire.
const FrameTerminator = "\n\n"

const dataMarker = "data:"

// Frame is one terminated block of the SSE wire protocol.
type Frame struct {
	Raw string
}

// Payload returns the trimmed value of the first "data:" line in the frame.
// Frames without a data line (comments, bare event names) report false.
func (f Frame) Payload() (string, bool) {
	for _, line := range strings.Split(f.Raw, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.HasPrefix(line, dataMarker) {
			return strings.TrimSpace(strings.TrimPrefix(line, dataMarker)), true
		}
	}
	return "", false
}

// ParseChunk appends chunk to carry and splits the result on the frame
// terminator. Every complete frame is returned in byte order; the trailing
// unterminated segment is returned as the new carry.
func ParseChunk(chunk, carry string) ([]Frame, string) {
	buffer := carry + chunk
	if buffer == "" {
		return nil, ""
	}

	segments := strings.Split(buffer, FrameTerminator)
	rest := segments[len(segments)-1]

	var frames []Frame
	for _, seg := range segments[:len(segments)-1] {
		if strings.TrimSpace(seg) == "" {
			continue
		}
		frames = append(frames, Frame{Raw: seg})
	}
	return frames, rest
}

// Interpreter turns a data payload into at most one event.
type Interpreter func(payload string) (Event, bool)

// ParseEvents runs ParseChunk and interprets every frame payload.
func ParseEvents(chunk, carry string, interpret Interpreter) ([]Event, string) {
	if interpret == nil {
		interpret = Interpret
	}
	frames, rest := ParseChunk(chunk, carry)

	var events []Event
	for _, frame := range frames {
		payload, ok := frame.Payload()
		if !ok {
			continue
		}
		if ev, ok := interpret(payload); ok {
			events = append(events, ev)
		}
	}
	return events, rest
}

// Flush interprets whatever is left in carry once the stream has ended, as if
// the terminator had been received.
func Flush(carry string, interpret Interpreter) []Event {
	if strings.TrimSpace(carry) == "" {
		return nil
	}
	events, _ := ParseEvents(FrameTerminator, carry, interpret)
	return events
}
