package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyAcceptsResume(t *testing.T) {
	mock := NewMockProvider()
	client := NewClient(mock, 0)

	result, err := client.Verify(context.Background(), DocResume, "experienced Go developer...")
	require.NoError(t, err)

	assert.True(t, result.Accepted)
	assert.Equal(t, "Mock Resume Title", result.Title)
	assert.Equal(t, 30, result.Usage.TotalTokens)
}

func TestVerifyRejectionIsNotAnError(t *testing.T) {
	mock := NewMockProvider()
	mock.Responses = []Completion{{
		Content: `{"is_resume": false, "title": null}`,
		Usage:   Usage{TotalTokens: 12},
	}}
	client := NewClient(mock, 0)

	result, err := client.Verify(context.Background(), DocResume, "grocery list")
	require.NoError(t, err)

	assert.False(t, result.Accepted)
	assert.Empty(t, result.Title)
	assert.Equal(t, 12, result.Usage.TotalTokens)
}

func TestVerifyNamedWrappers(t *testing.T) {
	client := NewClient(NewMockProvider(), 0)

	resume, err := client.VerifyResume(context.Background(), "Go developer resume")
	require.NoError(t, err)
	assert.True(t, resume.Accepted)
	assert.Equal(t, "Mock Resume Title", resume.Title)

	vacancy, err := client.VerifyVacancy(context.Background(), "hiring a Go developer")
	require.NoError(t, err)
	assert.True(t, vacancy.Accepted)
	assert.Equal(t, "Mock Vacancy Title", vacancy.Title)
}

func TestVerifyFencedJSONResponse(t *testing.T) {
	mock := NewMockProvider()
	mock.Responses = []Completion{{
		Content: "```json\n{\"is_vacancy\": true, \"title\": \"Backend Engineer\"}\n```",
	}}
	client := NewClient(mock, 0)

	result, err := client.Verify(context.Background(), DocVacancy, "we are hiring...")
	require.NoError(t, err)

	assert.True(t, result.Accepted)
	assert.Equal(t, "Backend Engineer", result.Title)
}

func TestVerifyMalformedPayloadCarriesUsage(t *testing.T) {
	mock := NewMockProvider()
	mock.Responses = []Completion{{
		Content: "I cannot answer in JSON, sorry.",
		Usage:   Usage{PromptTokens: 5, CompletionTokens: 7, TotalTokens: 12},
	}}
	client := NewClient(mock, 0)

	_, err := client.Verify(context.Background(), DocResume, "text")
	require.Error(t, err)

	assert.Equal(t, ErrorTypeMalformed, TypeOf(err))
	// Tokens spent on the unusable response are still reported.
	assert.Equal(t, 12, UsageOf(err).TotalTokens)
}

func TestVerifyProviderErrorPassesThrough(t *testing.T) {
	mock := NewMockProvider()
	mock.Err = Errorf(ErrorTypeTimeout, "poll ceiling reached")
	client := NewClient(mock, 0)

	_, err := client.Verify(context.Background(), DocVacancy, "text")
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
}

func TestRunRendersBothDocuments(t *testing.T) {
	mock := NewMockProvider()
	client := NewClient(mock, 0)

	result, err := client.Run(context.Background(), ActionAnalyzeMatch, "RESUME-BODY", "VACANCY-BODY")
	require.NoError(t, err)
	assert.Contains(t, result.Content, "Match analysis")

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0], "RESUME-BODY")
	assert.Contains(t, calls[0], "VACANCY-BODY")
}

func TestRunTruncatesOversizedInput(t *testing.T) {
	mock := NewMockProvider()
	client := NewClient(mock, 50)

	long := ""
	for i := 0; i < 2000; i++ {
		long += "resume word "
	}

	_, err := client.Run(context.Background(), ActionGenerateLetter, long, "short vacancy")
	require.NoError(t, err)

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Less(t, len(calls[0]), len(long))
	assert.Contains(t, calls[0], "short vacancy")
}

func TestLookupAction(t *testing.T) {
	action, spec, ok := LookupAction("analyze_match")
	require.True(t, ok)
	assert.Equal(t, ActionAnalyzeMatch, action)
	assert.Equal(t, "match_analysis", spec.ResultField)
	assert.NotEmpty(t, spec.ResponseHeader)

	_, _, ok = LookupAction("delete_database")
	assert.False(t, ok)
}

func TestActionsCoverAllRegistryEntries(t *testing.T) {
	assert.Len(t, Actions(), len(actionRegistry))
	fields := map[string]bool{}
	for _, action := range Actions() {
		spec := action.Spec()
		assert.False(t, fields[spec.ResultField], "duplicate result field %s", spec.ResultField)
		fields[spec.ResultField] = true
	}
}
