package keygen

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// maxRequestBytes bounds one JSON request line.
const maxRequestBytes = 64 * 1024

// ServeJSON answers newline-delimited JSON requests read from r with one JSON
// response line each on w, one request at a time. It returns when r is
// exhausted, ctx is done, or writing fails.
func ServeJSON(ctx context.Context, e *Executor, r io.Reader, w io.Writer) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxRequestBytes)
	enc := json.NewEncoder(w)

	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := enc.Encode(handle(ctx, e, line)); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
	return sc.Err()
}

func handle(ctx context.Context, e *Executor, line []byte) Response {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return failure("", fmt.Errorf("malformed request: %w", err))
	}
	ch, err := e.Submit(ctx, req)
	if err != nil {
		return failure(req.ID, err)
	}
	// Cancelling ctx aborts the job, which still answers with ErrCancelled.
	return <-ch
}
