package notifier

import "github.com/devon-brazier/rebalancer.v2/internal/logger"

// TextNotifier is a minimal one-way text sink. Components depend on this
// rather than a concrete transport; delivery failures are logged by callers,
// never retried beyond what the implementation does itself.
type TextNotifier interface {
	SendText(text string) error
}

// Noop drops every message. Used in tests.
type Noop struct{}

func (Noop) SendText(string) error { return nil }

// Log writes messages to the process log. Used when no channel is
// configured so reports are never silently lost.
type Log struct{}

func (Log) SendText(text string) error {
	logger.InfoBlock(text)
	return nil
}
