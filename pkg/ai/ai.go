// Package ai normalizes heterogeneous completion backends (synchronous APIs,
// submit-and-poll job APIs, local models, mocks) behind one provider
// contract, and exposes the document verification and analysis operations
// built on top of it.
package ai

import "context"

// Usage reports token consumption and cost for one backend call. All fields
// are zero when the backend does not report usage; values are never
// estimated.
type Usage struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	CostUSD          float64 `json:"cost_usd"`
}

// Add accumulates usage from another call.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
	u.CostUSD += other.CostUSD
}

// Completion is a successful backend response.
type Completion struct {
	Content string
	Usage   Usage
}

// Provider is the single contract all backends implement. Complete returns
// either a completion with non-empty content or a classified *Error; it
// never panics past this boundary.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (Completion, error)
}

// Pricing converts token counts to cost for backends that do not report
// cost themselves. A zero Pricing yields zero cost.
type Pricing struct {
	PromptTokenUSD     float64
	CompletionTokenUSD float64
}

// Cost returns the USD cost for the given token counts.
func (p Pricing) Cost(promptTokens, completionTokens int) float64 {
	return p.PromptTokenUSD*float64(promptTokens) + p.CompletionTokenUSD*float64(completionTokens)
}
