package streaming

import (
	"context"
	"errors"
	"io"
	"testing"
)

// chunkReader returns one queued chunk per Read call.
type chunkReader struct {
	chunks []string
	err    error
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	if n < len(r.chunks[0]) {
		r.chunks[0] = r.chunks[0][n:]
	} else {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

func collect(t *testing.T, r io.Reader) ([]Event, error) {
	t.Helper()
	var events []Event
	err := Read(context.Background(), r, nil, func(ev Event) error {
		events = append(events, ev)
		return nil
	})
	return events, err
}

func TestRead_HiThere(t *testing.T) {
	r := &chunkReader{chunks: []string{
		"data: {\"content\":\"Hi\"}\n\n",
		"data: {\"content\":\" there\"}\n\n",
		"data: [DONE]\n\n",
	}}
	events, err := collect(t, r)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := contentOf(events); got != "Hi there" {
		t.Errorf("Expected %q, got %q", "Hi there", got)
	}
	if !events[len(events)-1].IsDone() {
		t.Error("Expected final Done")
	}
}

func TestRead_StopsAtDone(t *testing.T) {
	r := &chunkReader{chunks: []string{
		"data: {\"content\":\"a\"}\n\ndata: [DONE]\n\ndata: {\"content\":\"late\"}\n\n",
	}}
	events, err := collect(t, r)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := contentOf(events); got != "a" {
		t.Errorf("Expected content after Done to be ignored, got %q", got)
	}
}

func TestRead_FlushesTrailingFrame(t *testing.T) {
	r := &chunkReader{chunks: []string{"data: {\"content\":\"x\"}\n\n", "data: {\"type\":\"done\",\"title\":\"T\"}"}}
	events, err := collect(t, r)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(events) != 2 || events[1].TitleOrEmpty() != "T" {
		t.Errorf("Expected flushed Done(T), got %+v", events)
	}
}

func TestRead_PropagatesReadError(t *testing.T) {
	boom := errors.New("connection reset")
	r := &chunkReader{chunks: []string{"data: {\"content\":\"x\"}\n\n"}, err: boom}
	_, err := collect(t, r)
	if !errors.Is(err, boom) {
		t.Errorf("Expected %v, got %v", boom, err)
	}
}

func TestRead_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &chunkReader{chunks: []string{"data: {\"content\":\"x\"}\n\n"}}
	err := Read(ctx, r, nil, func(Event) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestRead_CallbackStop(t *testing.T) {
	r := &chunkReader{chunks: []string{"data: {\"content\":\"a\"}\n\ndata: {\"content\":\"b\"}\n\n"}}
	var seen int
	err := Read(context.Background(), r, nil, func(Event) error {
		seen++
		return ErrStop
	})
	if err != nil {
		t.Errorf("Expected nil error on ErrStop, got %v", err)
	}
	if seen != 1 {
		t.Errorf("Expected 1 event before stop, got %d", seen)
	}
}
