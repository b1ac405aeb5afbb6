package sandbox

import "context"

// Executor runs one snippet and reports its outcome. *Launcher implements it;
// transports depend on this interface so they can be tested without an engine.
type Executor interface {
	Execute(ctx context.Context, cfg ExecutionConfig, onOutput, onError Sink) (Outcome, error)
}

var _ Executor = (*Launcher)(nil)
