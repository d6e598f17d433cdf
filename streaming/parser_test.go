package streaming

import (
	"strings"
	"testing"
)

const sampleStream = "data: {\"content\":\"Hel\"}\n\n" +
	"data: {\"content\":\"lo, \"}\n\n" +
	": keep-alive\n\n" +
	"data: {\"content\":\"wörld\"}\n\n" +
	"data: not json at all\n\n" +
	"data: {\"type\":\"done\",\"title\":\"Greeting\"}\n\n"

func contentOf(events []Event) string {
	var acc string
	for _, ev := range events {
		if ev.Type == EventContent {
			acc = Append(acc, ev.Content)
		}
	}
	return acc
}

func parseInPieces(stream string, sizes []int) []Event {
	var events []Event
	carry := ""
	pos := 0
	i := 0
	for pos < len(stream) {
		size := sizes[i%len(sizes)]
		i++
		end := pos + size
		if end > len(stream) {
			end = len(stream)
		}
		var evs []Event
		evs, carry = ParseEvents(stream[pos:end], carry, nil)
		events = append(events, evs...)
		pos = end
	}
	return append(events, Flush(carry, nil)...)
}

func TestParseChunk_SplitsCompleteFrames(t *testing.T) {
	frames, rest := ParseChunk("data: a\n\ndata: b\n\ndata: c", "")
	if len(frames) != 2 {
		t.Fatalf("Expected 2 frames, got %d", len(frames))
	}
	if rest != "data: c" {
		t.Errorf("Expected carry %q, got %q", "data: c", rest)
	}
	if p, _ := frames[1].Payload(); p != "b" {
		t.Errorf("Expected payload b, got %q", p)
	}
}

func TestParseChunk_EmptyInputs(t *testing.T) {
	frames, rest := ParseChunk("", "")
	if len(frames) != 0 || rest != "" {
		t.Errorf("Expected nothing from empty chunk, got %v %q", frames, rest)
	}

	frames, rest = ParseChunk("\n\n", "")
	if len(frames) != 0 || rest != "" {
		t.Errorf("Expected nothing from bare terminator, got %v %q", frames, rest)
	}
}

func TestParseChunk_ReassemblesAcrossChunks(t *testing.T) {
	frames, carry := ParseChunk("data: {\"conte", "")
	if len(frames) != 0 {
		t.Fatalf("Frame emitted before terminator: %v", frames)
	}
	frames, carry = ParseChunk("nt\":\"Hi\"}\n", carry)
	if len(frames) != 0 {
		t.Fatalf("Frame emitted on half a terminator: %v", frames)
	}
	frames, carry = ParseChunk("\n", carry)
	if len(frames) != 1 {
		t.Fatalf("Expected 1 frame, got %d", len(frames))
	}
	if carry != "" {
		t.Errorf("Expected empty carry, got %q", carry)
	}
	if p, _ := frames[0].Payload(); p != `{"content":"Hi"}` {
		t.Errorf("Unexpected payload %q", p)
	}
}

func TestFramePayload_EventLines(t *testing.T) {
	f := Frame{Raw: "event:message\ndata:{\"type\":\"content\",\"content\":\"x\"}"}
	p, ok := f.Payload()
	if !ok {
		t.Fatal("Expected payload")
	}
	if p != `{"type":"content","content":"x"}` {
		t.Errorf("Unexpected payload %q", p)
	}

	if _, ok := (Frame{Raw: ": comment"}).Payload(); ok {
		t.Error("Comment frame should have no payload")
	}
}

func TestParseEvents_ChunkBoundaryIndependent(t *testing.T) {
	whole, rest := ParseEvents(sampleStream, "", nil)
	whole = append(whole, Flush(rest, nil)...)
	want := contentOf(whole)
	if want != "Hello, wörldnot json at all" {
		t.Fatalf("Unexpected whole-stream content %q", want)
	}

	splits := [][]int{{1}, {2}, {3}, {5, 1}, {7}, {13, 2, 1}, {64}, {len(sampleStream)}}
	for _, sizes := range splits {
		got := parseInPieces(sampleStream, sizes)
		if c := contentOf(got); c != want {
			t.Errorf("sizes %v: expected %q, got %q", sizes, want, c)
		}
		if len(got) != len(whole) {
			t.Errorf("sizes %v: expected %d events, got %d", sizes, len(whole), len(got))
		}
		last := got[len(got)-1]
		if !last.IsDone() || last.TitleOrEmpty() != "Greeting" {
			t.Errorf("sizes %v: expected final Done(Greeting), got %+v", sizes, last)
		}
	}
}

func TestFlush_UnterminatedDone(t *testing.T) {
	events, carry := ParseEvents("data: {\"content\":\"a\"}\n\ndata: [DONE]", "", nil)
	if len(events) != 1 {
		t.Fatalf("Expected 1 event before flush, got %d", len(events))
	}
	flushed := Flush(carry, nil)
	if len(flushed) != 1 || !flushed[0].IsDone() {
		t.Errorf("Expected flushed Done, got %+v", flushed)
	}
	if got := Flush("   ", nil); len(got) != 0 {
		t.Errorf("Expected whitespace carry to flush nothing, got %+v", got)
	}
}

func TestParseEvents_SpecSequence(t *testing.T) {
	stream := strings.Join([]string{
		`data: {"content":"Hel"}`,
		`data: {"content":"lo"}`,
		`data: [DONE]`,
	}, "\n\n") + "\n\n"

	events, _ := ParseEvents(stream, "", nil)
	if len(events) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(events))
	}
	if events[0] != Content("Hel") || events[1] != Content("lo") {
		t.Errorf("Unexpected content events %+v", events[:2])
	}
	if !events[2].IsDone() || events[2].Title != nil {
		t.Errorf("Expected Done(nil), got %+v", events[2])
	}
}
