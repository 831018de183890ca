package bot

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumebot/pkg/ai"
	"resumebot/pkg/analysis"
	"resumebot/pkg/docstore"
	"resumebot/pkg/persistence"
)

type stubFetcher struct {
	text string
	err  error
}

func (f *stubFetcher) FetchText(_ context.Context, _ string) (string, error) {
	return f.text, f.err
}

type harness struct {
	conv  *Conversation
	store *persistence.Store
	mock  *ai.MockProvider
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store, err := persistence.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	docs, err := docstore.New(t.TempDir())
	require.NoError(t, err)

	mock := ai.NewMockProvider()
	client := ai.NewClient(mock, 0)
	analyses := analysis.NewService(store, docs, client)

	conv := NewConversation(store, docs, client, analyses, &stubFetcher{}, Options{
		MaxFileSizeKB:  512,
		AllowedDocExts: []string{".txt"},
	})
	return &harness{conv: conv, store: store, mock: mock}
}

func (h *harness) handle(t *testing.T, event Event) []Reply {
	t.Helper()
	replies := h.conv.HandleEvent(context.Background(), event)
	require.NotEmpty(t, replies)
	return replies
}

func (h *harness) uploadResume(t *testing.T, chat int64) {
	t.Helper()
	h.handle(t, DocumentMessage{Chat: chat, Filename: "resume.txt", Data: []byte("experienced Go developer")})
}

func (h *harness) uploadVacancy(t *testing.T, chat int64) {
	t.Helper()
	h.handle(t, DocumentMessage{Chat: chat, Filename: "vacancy.txt", Data: []byte("we are hiring a backend engineer")})
}

func allText(replies []Reply) string {
	var sb strings.Builder
	for _, r := range replies {
		sb.WriteString(r.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}

func TestNewUserUploadsValidResume(t *testing.T) {
	h := newHarness(t)

	replies := h.handle(t, TextMessage{Chat: 1, Username: "alice", Text: "/start"})
	assert.Contains(t, allText(replies), "resume")

	// Valid resume: verified, stored with the extracted title, phase moves
	// to vacancy upload.
	replies = h.handle(t, DocumentMessage{Chat: 1, Filename: "resume.txt", Data: []byte("experienced Go developer")})
	text := allText(replies)
	assert.Contains(t, text, "Resume saved")
	assert.Contains(t, text, "Mock Resume Title")
	assert.Contains(t, text, "vacancy")

	ctx := context.Background()
	user, err := h.store.GetOrCreateUser(ctx, 1, "")
	require.NoError(t, err)
	resume, err := h.store.GetResume(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, resume)
	assert.Equal(t, "Mock Resume Title", resume.Title)

	// Verification usage was logged.
	totals, err := h.store.GetUsageTotals(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, totals.Calls)
}

func TestRejectedResumeLeavesStateUnchanged(t *testing.T) {
	h := newHarness(t)
	h.mock.Responses = []ai.Completion{{Content: `{"is_resume": false, "title": null}`}}

	replies := h.handle(t, DocumentMessage{Chat: 1, Filename: "groceries.txt", Data: []byte("milk, eggs")})
	assert.Contains(t, allText(replies), "doesn't look like a resume")

	ctx := context.Background()
	user, err := h.store.GetOrCreateUser(ctx, 1, "")
	require.NoError(t, err)
	resume, err := h.store.GetResume(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, resume)
}

func TestFirstActionComputesThenServesFromCache(t *testing.T) {
	h := newHarness(t)
	h.uploadResume(t, 1)
	h.uploadVacancy(t, 1)
	callsAfterUploads := h.mock.CallCount()

	// First request: cache miss, one adapter call.
	replies := h.handle(t, ButtonTap{Chat: 1, Key: "action:analyze_match"})
	text := allText(replies)
	assert.Contains(t, text, "Match analysis")
	assert.Equal(t, callsAfterUploads+1, h.mock.CallCount())

	// Repeat: served from cache, no new adapter call, same content.
	repeat := h.handle(t, ButtonTap{Chat: 1, Key: "action:analyze_match"})
	assert.Equal(t, callsAfterUploads+1, h.mock.CallCount())
	assert.Equal(t, replies[0].Text, repeat[0].Text)
}

func TestVerifyTimeoutKeepsUserInVacancyPhase(t *testing.T) {
	h := newHarness(t)
	h.uploadResume(t, 1)

	h.mock.Err = ai.Errorf(ai.ErrorTypeTimeout, "poll ceiling reached")
	replies := h.handle(t, DocumentMessage{Chat: 1, Filename: "vacancy.txt", Data: []byte("we are hiring")})
	assert.Contains(t, allText(replies), "taking too long")

	ctx := context.Background()
	user, err := h.store.GetOrCreateUser(ctx, 1, "")
	require.NoError(t, err)
	vacancies, err := h.store.ListVacancies(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, vacancies)

	// Backend recovers; the same upload now succeeds.
	h.mock.Err = nil
	replies = h.handle(t, DocumentMessage{Chat: 1, Filename: "vacancy.txt", Data: []byte("we are hiring")})
	assert.Contains(t, allText(replies), "Vacancy saved")
}

func TestMainMenuShownAfterBothUploads(t *testing.T) {
	h := newHarness(t)
	h.uploadResume(t, 1)
	replies := h.handle(t, DocumentMessage{Chat: 1, Filename: "vacancy.txt", Data: []byte("we are hiring")})

	last := replies[len(replies)-1]
	require.NotNil(t, last.Keyboard)

	var keys []string
	for _, row := range last.Keyboard.Rows {
		for _, btn := range row {
			keys = append(keys, btn.Key)
		}
	}
	for _, action := range ai.Actions() {
		assert.Contains(t, keys, "action:"+string(action))
	}
	assert.Contains(t, keys, keyUploadResume)
	assert.Contains(t, keys, keyUploadVacancy)
}

func TestVacancySelectionSwitchesAnalysisTarget(t *testing.T) {
	h := newHarness(t)
	h.uploadResume(t, 1)
	h.uploadVacancy(t, 1)
	h.uploadVacancy(t, 1)

	ctx := context.Background()
	user, err := h.store.GetOrCreateUser(ctx, 1, "")
	require.NoError(t, err)
	vacancies, err := h.store.ListVacancies(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, vacancies, 2)

	// Pick the older vacancy from the list.
	older := vacancies[1]
	replies := h.handle(t, ButtonTap{Chat: 1, Key: keyListVacancies})
	require.NotNil(t, replies[0].Keyboard)

	h.handle(t, ButtonTap{Chat: 1, Key: fmt.Sprintf("vacancy:%d", older.ID)})
	h.handle(t, ButtonTap{Chat: 1, Key: "action:analyze_match"})

	// The analysis row was created for the selected (older) vacancy.
	resume, err := h.store.GetResume(ctx, user.ID)
	require.NoError(t, err)
	row, err := h.store.GetAnalysis(ctx, resume.ID, older.ID)
	require.NoError(t, err)
	assert.NotNil(t, row)
}

func TestCancelResetsVacancySelection(t *testing.T) {
	h := newHarness(t)
	h.uploadResume(t, 1)
	h.uploadVacancy(t, 1)
	h.uploadVacancy(t, 1)

	ctx := context.Background()
	user, err := h.store.GetOrCreateUser(ctx, 1, "")
	require.NoError(t, err)
	vacancies, err := h.store.ListVacancies(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, vacancies, 2)
	newest, older := vacancies[0], vacancies[1]

	h.handle(t, ButtonTap{Chat: 1, Key: fmt.Sprintf("vacancy:%d", older.ID)})

	replies := h.handle(t, TextMessage{Chat: 1, Text: "/cancel"})
	assert.Contains(t, allText(replies), "Canceled")

	// The next action targets the most recent vacancy, not the one picked
	// before the cancel.
	h.handle(t, ButtonTap{Chat: 1, Key: "action:analyze_match"})

	resume, err := h.store.GetResume(ctx, user.ID)
	require.NoError(t, err)
	row, err := h.store.GetAnalysis(ctx, resume.ID, older.ID)
	require.NoError(t, err)
	assert.Nil(t, row)
	row, err = h.store.GetAnalysis(ctx, resume.ID, newest.ID)
	require.NoError(t, err)
	assert.NotNil(t, row)
}

func TestFailedDownloadPromptsRetry(t *testing.T) {
	h := newHarness(t)

	replies := h.handle(t, DocumentMessage{Chat: 1, Filename: "resume.txt", DownloadFailed: true})
	assert.Contains(t, allText(replies), "couldn't download")

	// No verification call was spent and no phase change happened.
	assert.Zero(t, h.mock.CallCount())
	ctx := context.Background()
	user, err := h.store.GetOrCreateUser(ctx, 1, "")
	require.NoError(t, err)
	resume, err := h.store.GetResume(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, resume)
}

func TestResumeReplacementFromMainMenu(t *testing.T) {
	h := newHarness(t)
	h.uploadResume(t, 1)
	h.uploadVacancy(t, 1)

	ctx := context.Background()
	user, err := h.store.GetOrCreateUser(ctx, 1, "")
	require.NoError(t, err)
	first, err := h.store.GetResume(ctx, user.ID)
	require.NoError(t, err)

	h.handle(t, ButtonTap{Chat: 1, Key: keyUploadResume})
	replies := h.handle(t, DocumentMessage{Chat: 1, Filename: "resume2.txt", Data: []byte("updated Go resume")})
	assert.Contains(t, allText(replies), "Resume saved")

	second, err := h.store.GetResume(ctx, user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestURLUploadUsesFetcher(t *testing.T) {
	h := newHarness(t)
	fetcher := &stubFetcher{text: "experienced Go developer from the web"}
	h.conv.fetcher = fetcher

	replies := h.handle(t, TextMessage{Chat: 1, Text: "https://example.com/my-resume"})
	assert.Contains(t, allText(replies), "vacancy")

	ctx := context.Background()
	user, err := h.store.GetOrCreateUser(ctx, 1, "")
	require.NoError(t, err)
	resume, err := h.store.GetResume(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, resume)
	assert.Equal(t, persistence.SourceURL, resume.Source)
}

func TestFetchFailureKeepsPhase(t *testing.T) {
	h := newHarness(t)
	h.conv.fetcher = &stubFetcher{err: fmt.Errorf("connection refused")}

	replies := h.handle(t, TextMessage{Chat: 1, Text: "https://example.com/broken"})
	assert.Contains(t, allText(replies), "couldn't read that link")
}

func TestUnsupportedFileRejected(t *testing.T) {
	h := newHarness(t)

	replies := h.handle(t, DocumentMessage{Chat: 1, Filename: "resume.pdf", Data: []byte("%PDF-1.4")})
	assert.Contains(t, allText(replies), ".txt")
	assert.Zero(t, h.mock.CallCount())
}

func TestSurveyShownOnceAndAnswered(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	survey, err := h.store.CreateSurvey(ctx, "How did you find us?", []string{"Friend", "Search"}, true)
	require.NoError(t, err)

	h.uploadResume(t, 1)
	replies := h.handle(t, DocumentMessage{Chat: 1, Filename: "vacancy.txt", Data: []byte("we are hiring")})

	// The survey rides along with the main menu.
	text := allText(replies)
	assert.Contains(t, text, "How did you find us?")

	h.handle(t, ButtonTap{Chat: 1, Key: fmt.Sprintf("survey:%d:0", survey.ID)})

	user, err := h.store.GetOrCreateUser(ctx, 1, "")
	require.NoError(t, err)
	answered, err := h.store.HasSurveyAnswer(ctx, survey.ID, user.ID)
	require.NoError(t, err)
	assert.True(t, answered)

	// Answered surveys disappear from the menu.
	replies = h.handle(t, TextMessage{Chat: 1, Text: "/start"})
	assert.NotContains(t, allText(replies), "How did you find us?")
}

func TestUsageCommand(t *testing.T) {
	h := newHarness(t)
	h.uploadResume(t, 1)

	replies := h.handle(t, TextMessage{Chat: 1, Text: "/usage"})
	assert.Contains(t, allText(replies), "Your AI usage")
}

func TestUsersAreIsolated(t *testing.T) {
	h := newHarness(t)
	h.uploadResume(t, 1)
	h.uploadVacancy(t, 1)

	// A different chat starts from scratch.
	replies := h.handle(t, TextMessage{Chat: 2, Text: "hello"})
	assert.Contains(t, allText(replies), "resume")
}

func TestSplitMessage(t *testing.T) {
	short := splitMessage("hello", 4096)
	assert.Equal(t, []string{"hello"}, short)

	long := strings.Repeat("line of analysis output\n", 400)
	chunks := splitMessage(long, 4096)
	assert.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 4096)
	}
	assert.Equal(t, long, strings.Join(chunks, ""))
}

func TestSplitMessageKeepsRunesIntact(t *testing.T) {
	// No newlines, so every cut lands mid-text; cyrillic runes are two
	// bytes each and must never be split.
	long := strings.Repeat("анализ вакансии и резюме ", 300)
	chunks := splitMessage(long, 100)
	assert.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 100)
		assert.True(t, utf8.ValidString(chunk))
	}
	assert.Equal(t, long, strings.Join(chunks, ""))
}
