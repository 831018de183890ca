package ai

import (
	"context"
	"strings"
	"sync"
)

// MockProvider returns canned responses by sniffing the prompt. It is used
// for local development without API keys and throughout the tests.
type MockProvider struct {
	mu sync.Mutex
	// Err, when set, is returned from every Complete call.
	Err error
	// Responses, when non-empty, are returned in order before falling back
	// to prompt sniffing.
	Responses []Completion

	calls []string
}

// NewMockProvider creates a prompt-sniffing mock.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (p *MockProvider) Name() string { return "mock" }

// Complete records the prompt and returns a scripted or sniffed response.
func (p *MockProvider) Complete(_ context.Context, prompt string) (Completion, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, prompt)

	if p.Err != nil {
		return Completion{}, p.Err
	}
	if len(p.Responses) > 0 {
		resp := p.Responses[0]
		p.Responses = p.Responses[1:]
		return resp, nil
	}

	usage := Usage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30}
	switch {
	case strings.Contains(prompt, `"is_resume"`):
		return Completion{Content: `{"is_resume": true, "title": "Mock Resume Title"}`, Usage: usage}, nil
	case strings.Contains(prompt, `"is_vacancy"`):
		return Completion{Content: `{"is_vacancy": true, "title": "Mock Vacancy Title"}`, Usage: usage}, nil
	case strings.Contains(prompt, "Analyze how well"):
		return Completion{Content: "Match analysis (mock): strong candidate, 8/10.", Usage: usage}, nil
	case strings.Contains(prompt, "cover letter"):
		return Completion{Content: "Cover letter (mock): Dear Hiring Manager...", Usage: usage}, nil
	case strings.Contains(prompt, "HR recruiter"):
		return Completion{Content: "HR call plan (mock): 1. Introductions...", Usage: usage}, nil
	case strings.Contains(prompt, "technical interview"):
		return Completion{Content: "Tech interview plan (mock): 1. Data structures...", Usage: usage}, nil
	default:
		return Completion{Content: "Mock response.", Usage: usage}, nil
	}
}

// CallCount returns the number of Complete calls seen so far.
func (p *MockProvider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// Calls returns a copy of the recorded prompts.
func (p *MockProvider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}
