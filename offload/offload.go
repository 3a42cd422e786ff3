/*
Package offload moves a single report computation off the caller's thread.

PURPOSE:
  The engine is synchronous and runs to completion; a caller that needs to
  stay responsive runs it elsewhere rather than interrupting it. This
  package models that boundary as a capability interface: the whole input
  snapshot goes in, the whole report comes out, and nothing mutable is
  shared across the boundary.

RUNNERS:
  Inline: calls the engine directly on the caller's goroutine.
  Worker: serializes the input to JSON, hands it to a background
          goroutine, deserializes there, computes, and serializes the
          report back. The JSON round trip is deliberate: it enforces
          that only plain data crosses, exactly as a process or thread
          boundary would.

INVARIANT:
  Inline and Worker must produce bit-identical output for identical
  input. Go's JSON encoding round-trips float64 losslessly, so the
  serialization cannot perturb results.

There is no cancellation once a run has started; ctx only gates delivery
of the result.
*/
package offload

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/warp/overtime-engine/engine"
)

// Runner executes one report computation.
type Runner interface {
	Run(ctx context.Context, input engine.Input) (*engine.Report, error)
}

// =============================================================================
// INLINE
// =============================================================================

// Inline runs the computation on the calling goroutine.
type Inline struct{}

func (Inline) Run(_ context.Context, input engine.Input) (*engine.Report, error) {
	return engine.Analyze(input), nil
}

// =============================================================================
// WORKER
// =============================================================================

// Worker runs the computation on a background goroutine behind a
// serialization boundary.
type Worker struct{}

func (Worker) Run(ctx context.Context, input engine.Input) (*engine.Report, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("encode offload input: %w", err)
	}

	type outcome struct {
		report []byte
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		var in engine.Input
		if err := json.Unmarshal(payload, &in); err != nil {
			done <- outcome{err: fmt.Errorf("decode offload input: %w", err)}
			return
		}
		out, err := json.Marshal(engine.Analyze(in))
		if err != nil {
			done <- outcome{err: fmt.Errorf("encode offload result: %w", err)}
			return
		}
		done <- outcome{report: out}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			return nil, o.err
		}
		var report engine.Report
		if err := json.Unmarshal(o.report, &report); err != nil {
			return nil, fmt.Errorf("decode offload result: %w", err)
		}
		return &report, nil
	case <-ctx.Done():
		// The computation keeps running to completion; only the caller
		// stops waiting for it.
		return nil, ctx.Err()
	}
}

// Default picks the worker runner; callers that must run inline (or are
// already off the interactive path) use Inline directly.
func Default() Runner { return Worker{} }
