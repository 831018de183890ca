package ai

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateLeavesShortTextAlone(t *testing.T) {
	tc := NewTokenCounter()
	assert.Equal(t, "short text", tc.Truncate("short text", 1000))
	assert.Equal(t, "no limit", tc.Truncate("no limit", 0))
}

func TestTruncateKeepsRunesIntact(t *testing.T) {
	tc := NewTokenCounter()
	long := strings.Repeat("опыт разработки на Go ", 500)

	out := tc.Truncate(long, 50)
	assert.Less(t, len(out), len(long))
	assert.True(t, strings.HasSuffix(out, "..."))
	assert.True(t, utf8.ValidString(out))
}
