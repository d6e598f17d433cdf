package streaming

import (
	"context"
	"errors"
	"io"
)

const readBufferSize = 4096

// ErrStop may be returned from a Read callback to end consumption early
// without reporting an error.
var ErrStop = errors.New("streaming: stop")

// Read consumes r until EOF, a Done event, cancellation, or a callback error.
// Events are delivered to fn in wire order. When r ends without a trailing
// terminator the remaining buffer is flushed once. Read returns nil after a
// Done event or a clean EOF.
func Read(ctx context.Context, r io.Reader, interpret Interpreter, fn func(Event) error) error {
	if interpret == nil {
		interpret = Interpret
	}

	buf := make([]byte, readBufferSize)
	carry := ""

	deliver := func(events []Event) (bool, error) {
		for _, ev := range events {
			if err := fn(ev); err != nil {
				if errors.Is(err, ErrStop) {
					return true, nil
				}
				return true, err
			}
			if ev.IsDone() {
				return true, nil
			}
		}
		return false, nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, readErr := r.Read(buf)
		if n > 0 {
			var events []Event
			events, carry = ParseEvents(string(buf[:n]), carry, interpret)
			if stop, err := deliver(events); stop {
				return err
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				_, err := deliver(Flush(carry, interpret))
				return err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return readErr
		}
	}
}
