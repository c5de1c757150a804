// Package assist produces operator-facing natural language summaries of
// synced work orders via an LLM provider.
package assist

import "context"

// Provider is one LLM backend. Implementations must be safe for concurrent use.
type Provider interface {
	Name() string
	Model() string
	Complete(ctx context.Context, prompt string) (string, error)
}
