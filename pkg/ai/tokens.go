package ai

import (
	"unicode/utf8"

	"github.com/tiktoken-go/tokenizer"
)

// TokenCounter counts tokens for input budgeting. All supported models are
// close enough to GPT-4 encoding for truncation purposes. It is never used
// to report usage; usage comes from the backend or stays zero.
type TokenCounter struct {
	codec tokenizer.Codec
}

// NewTokenCounter creates a counter with GPT-4 encoding.
func NewTokenCounter() *TokenCounter {
	codec, err := tokenizer.ForModel(tokenizer.GPT4)
	if err != nil {
		// Fall back to character-based estimation.
		return &TokenCounter{}
	}
	return &TokenCounter{codec: codec}
}

// Count returns the number of tokens in text.
func (tc *TokenCounter) Count(text string) int {
	if tc.codec == nil {
		return len(text) / 4
	}
	count, err := tc.codec.Count(text)
	if err != nil {
		return len(text) / 4
	}
	return count
}

// Truncate trims text to roughly fit within limit tokens. Truncation is by
// characters, proportional to the overflow, with a safety margin.
func (tc *TokenCounter) Truncate(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	current := tc.Count(text)
	if current <= limit {
		return text
	}

	ratio := float64(limit) / float64(current)
	charLimit := int(float64(len(text)) * ratio * 0.9)
	if charLimit >= len(text) {
		return text
	}
	// Never cut through a multibyte rune.
	for charLimit > 0 && !utf8.RuneStart(text[charLimit]) {
		charLimit--
	}
	return text[:charLimit] + "..."
}
