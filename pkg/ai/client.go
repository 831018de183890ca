package ai

import (
	"context"

	"resumebot/pkg/logx"
)

// DocKind selects which verification prompt and JSON key apply.
type DocKind string

const (
	DocResume  DocKind = "resume"
	DocVacancy DocKind = "vacancy"
)

// VerifyResult is the outcome of a document verification. A rejected
// document (Accepted=false) is a successful call, not an error; errors mean
// the backend could not answer.
type VerifyResult struct {
	Accepted bool
	Title    string
	Usage    Usage
}

// RunResult is the outcome of one analysis action.
type RunResult struct {
	Content string
	Usage   Usage
}

// Client exposes the verification and analysis operations on top of a
// Provider. Oversized documents are truncated to the input token budget
// before prompting.
type Client struct {
	provider  Provider
	counter   *TokenCounter
	maxTokens int
	logger    *logx.Logger
}

// NewClient wraps a provider. maxInputTokens <= 0 disables truncation.
func NewClient(provider Provider, maxInputTokens int) *Client {
	return &Client{
		provider:  provider,
		counter:   NewTokenCounter(),
		maxTokens: maxInputTokens,
		logger:    logx.NewLogger("ai"),
	}
}

// ProviderName returns the name of the wrapped backend.
func (c *Client) ProviderName() string {
	return c.provider.Name()
}

// Verify asks the backend whether text is a document of the given kind and
// extracts a title when it is.
func (c *Client) Verify(ctx context.Context, kind DocKind, text string) (*VerifyResult, error) {
	var template, boolKey string
	switch kind {
	case DocResume:
		template, boolKey = verifyResumePrompt, "is_resume"
	case DocVacancy:
		template, boolKey = verifyVacancyPrompt, "is_vacancy"
	default:
		return nil, Errorf(ErrorTypeMalformed, "unknown document kind %q", kind)
	}

	prompt := renderVerifyPrompt(template, c.truncate(text))
	completion, err := c.provider.Complete(ctx, prompt)
	if err != nil {
		c.logger.Warn("verify %s failed: %v", kind, err)
		return nil, err
	}

	obj, err := ExtractJSON(completion.Content)
	if err != nil {
		// Keep the tokens spent on the unusable response so the caller can
		// still account for them.
		if aiErr, ok := err.(*Error); ok {
			aiErr.Usage = completion.Usage
		}
		c.logger.Warn("verify %s returned unparseable payload: %v", kind, err)
		return nil, err
	}

	accepted, _ := obj[boolKey].(bool)
	title, _ := obj["title"].(string)

	return &VerifyResult{Accepted: accepted, Title: title, Usage: completion.Usage}, nil
}

// VerifyResume reports whether text is a resume.
func (c *Client) VerifyResume(ctx context.Context, text string) (*VerifyResult, error) {
	return c.Verify(ctx, DocResume, text)
}

// VerifyVacancy reports whether text is a vacancy description.
func (c *Client) VerifyVacancy(ctx context.Context, text string) (*VerifyResult, error) {
	return c.Verify(ctx, DocVacancy, text)
}

// Run executes one analysis action on the resume and vacancy texts.
func (c *Client) Run(ctx context.Context, action Action, resumeText, vacancyText string) (*RunResult, error) {
	spec := action.Spec()
	prompt := renderAnalysisPrompt(spec.prompt, c.truncate(resumeText), c.truncate(vacancyText))

	completion, err := c.provider.Complete(ctx, prompt)
	if err != nil {
		c.logger.Warn("action %s failed: %v", action, err)
		return nil, err
	}

	return &RunResult{Content: completion.Content, Usage: completion.Usage}, nil
}

func (c *Client) truncate(text string) string {
	if c.maxTokens <= 0 {
		return text
	}
	return c.counter.Truncate(text, c.maxTokens)
}
