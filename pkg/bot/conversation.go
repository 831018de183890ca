package bot

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"resumebot/pkg/ai"
	"resumebot/pkg/analysis"
	"resumebot/pkg/docstore"
	"resumebot/pkg/logx"
	"resumebot/pkg/persistence"
)

// Verifier checks whether a document is what the user claims it is.
// *ai.Client implements it.
type Verifier interface {
	Verify(ctx context.Context, kind ai.DocKind, text string) (*ai.VerifyResult, error)
}

// Fetcher turns a pasted link into document text. *scraper.Scraper
// implements it.
type Fetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

// Options tunes document intake limits.
type Options struct {
	MaxFileSizeKB  int64
	AllowedDocExts []string
}

func (o *Options) maxBytes() int64 {
	if o.MaxFileSizeKB <= 0 {
		return 512 * 1024
	}
	return o.MaxFileSizeKB * 1024
}

func (o *Options) extAllowed(filename string) bool {
	exts := o.AllowedDocExts
	if len(exts) == 0 {
		exts = []string{".txt"}
	}
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range exts {
		if ext == allowed {
			return true
		}
	}
	return false
}

// Conversation drives the upload/verify/menu flow. It holds no conversation
// state of its own beyond per-chat sessions; the phase is derived from the
// database on every event.
type Conversation struct {
	store    *persistence.Store
	docs     *docstore.Store
	verifier Verifier
	analyses *analysis.Service
	fetcher  Fetcher
	opts     Options
	sessions *sessions
	logger   *logx.Logger
}

// NewConversation wires the conversation engine.
func NewConversation(store *persistence.Store, docs *docstore.Store, verifier Verifier, analyses *analysis.Service, fetcher Fetcher, opts Options) *Conversation {
	return &Conversation{
		store:    store,
		docs:     docs,
		verifier: verifier,
		analyses: analyses,
		fetcher:  fetcher,
		opts:     opts,
		sessions: newSessions(),
		logger:   logx.NewLogger("conversation"),
	}
}

// HandleEvent processes one inbound event and returns the replies to send.
// It never panics or returns an error to the transport; every failure
// becomes a user-facing message.
func (c *Conversation) HandleEvent(ctx context.Context, event Event) []Reply {
	user, err := c.store.GetOrCreateUser(ctx, event.ChatID(), eventUsername(event))
	if err != nil {
		c.logger.Error("failed to resolve user for chat %d: %v", event.ChatID(), err)
		return []Reply{{Text: msgAIUnavailable}}
	}

	resume, err := c.store.GetResume(ctx, user.ID)
	if err != nil {
		c.logger.Error("failed to load resume for user %d: %v", user.ID, err)
		return []Reply{{Text: msgAIUnavailable}}
	}
	vacancies, err := c.store.ListVacancies(ctx, user.ID)
	if err != nil {
		c.logger.Error("failed to load vacancies for user %d: %v", user.ID, err)
		return []Reply{{Text: msgAIUnavailable}}
	}

	state := ResolveState(resume, vacancies)
	sess := c.sessions.get(user.ChatID)
	c.logger.Debug("chat %d in state %s: %T", user.ChatID, state, event)

	switch ev := event.(type) {
	case TextMessage:
		return c.handleText(ctx, user, sess, state, resume, vacancies, ev)
	case DocumentMessage:
		return c.handleDocument(ctx, user, sess, state, resume, vacancies, ev)
	case ButtonTap:
		return c.handleButton(ctx, user, sess, state, resume, vacancies, ev)
	default:
		return c.promptForState(ctx, user, sess, state, resume, vacancies)
	}
}

func eventUsername(event Event) string {
	switch ev := event.(type) {
	case TextMessage:
		return ev.Username
	case DocumentMessage:
		return ev.Username
	case ButtonTap:
		return ev.Username
	default:
		return ""
	}
}

func (c *Conversation) handleText(ctx context.Context, user *persistence.User, sess *session, state State, resume *persistence.Resume, vacancies []*persistence.Vacancy, ev TextMessage) []Reply {
	text := strings.TrimSpace(ev.Text)
	switch {
	case text == "/start":
		replies := []Reply{{Text: msgWelcome}}
		if state != StateAwaitingResume {
			replies = append(replies, c.promptForState(ctx, user, sess, state, resume, vacancies)...)
		}
		return replies
	case text == "/usage":
		return c.usageReply(ctx, user)
	case text == "/cancel":
		// Drop the pending upload choice and the vacancy selection; the
		// phase is re-derived with the most recent vacancy pre-selected.
		sess.pendingUpload = ""
		sess.selectedVacancyID = 0
		replies := []Reply{{Text: msgCanceled}}
		return append(replies, c.promptForState(ctx, user, sess, state, resume, vacancies)...)
	case isURL(text):
		kind := c.uploadKind(sess, state)
		content, err := c.fetcher.FetchText(ctx, text)
		if err != nil {
			c.logger.Warn("fetch failed for chat %d: %v", user.ChatID, err)
			return []Reply{{Text: msgFetchFailed}}
		}
		return c.ingest(ctx, user, sess, kind, content, persistence.SourceURL, vacancies)
	default:
		return c.promptForState(ctx, user, sess, state, resume, vacancies)
	}
}

func (c *Conversation) handleDocument(ctx context.Context, user *persistence.User, sess *session, state State, _ *persistence.Resume, vacancies []*persistence.Vacancy, ev DocumentMessage) []Reply {
	if ev.DownloadFailed {
		return []Reply{{Text: msgDownloadFailed}}
	}
	if len(ev.Data) == 0 || !c.opts.extAllowed(ev.Filename) || int64(len(ev.Data)) > c.opts.maxBytes() || !utf8.Valid(ev.Data) {
		return []Reply{{Text: fmt.Sprintf(msgUnsupportedFile, c.opts.MaxFileSizeKB)}}
	}
	kind := c.uploadKind(sess, state)
	return c.ingest(ctx, user, sess, kind, string(ev.Data), persistence.SourceFile, vacancies)
}

func (c *Conversation) handleButton(ctx context.Context, user *persistence.User, sess *session, state State, resume *persistence.Resume, vacancies []*persistence.Vacancy, ev ButtonTap) []Reply {
	key := ev.Key
	switch {
	case strings.HasPrefix(key, keyAction):
		action, _, ok := ai.LookupAction(strings.TrimPrefix(key, keyAction))
		if !ok {
			return c.unknownButton(ctx, user, sess, state, resume, vacancies)
		}
		return c.runAction(ctx, user, sess, state, resume, vacancies, action)

	case strings.HasPrefix(key, keyVacancy):
		id, ok := parseVacancyKey(key)
		if !ok {
			return c.unknownButton(ctx, user, sess, state, resume, vacancies)
		}
		vacancy, err := c.store.GetVacancy(ctx, id, user.ID)
		if err != nil || vacancy == nil {
			return c.unknownButton(ctx, user, sess, state, resume, vacancies)
		}
		sess.selectedVacancyID = vacancy.ID
		return c.mainMenu(ctx, user, sess, vacancy)

	case key == keyListVacancies:
		if len(vacancies) == 0 {
			return []Reply{{Text: msgNoVacancyChosen}}
		}
		return []Reply{{Text: msgChooseVacancy, Keyboard: vacancyListKeyboard(vacancies)}}

	case key == keyUploadResume:
		sess.pendingUpload = string(ai.DocResume)
		return []Reply{{Text: msgAwaitingResume}}

	case key == keyUploadVacancy:
		sess.pendingUpload = string(ai.DocVacancy)
		return []Reply{{Text: fmt.Sprintf(msgAwaitingVacancy, "")}}

	case key == keyUsage:
		return c.usageReply(ctx, user)

	case strings.HasPrefix(key, keySurvey):
		return c.answerSurvey(ctx, user, key)

	default:
		return c.unknownButton(ctx, user, sess, state, resume, vacancies)
	}
}

// uploadKind decides what the incoming document is. The derived state wins
// in the upload phases; in the main menu an explicit button choice is
// honored, and an unsolicited upload is treated as a new vacancy.
func (c *Conversation) uploadKind(sess *session, state State) ai.DocKind {
	switch state {
	case StateAwaitingResume:
		return ai.DocResume
	case StateAwaitingVacancy:
		return ai.DocVacancy
	default:
		if sess.pendingUpload == string(ai.DocResume) {
			return ai.DocResume
		}
		return ai.DocVacancy
	}
}

// ingest runs the verify -> store -> advance pipeline for one document.
func (c *Conversation) ingest(ctx context.Context, user *persistence.User, sess *session, kind ai.DocKind, content, source string, vacancies []*persistence.Vacancy) []Reply {
	result, err := c.verifier.Verify(ctx, kind, content)
	if err != nil {
		// The document is not stored; the user stays in the same phase.
		return []Reply{{Text: aiErrorMessage(err)}}
	}

	c.logVerification(ctx, user, kind, result.Usage)

	if !result.Accepted {
		if kind == ai.DocResume {
			return []Reply{{Text: msgResumeRejected}}
		}
		return []Reply{{Text: msgVacancyRejected}}
	}

	sess.pendingUpload = ""

	docKind := docstore.KindResume
	if kind == ai.DocVacancy {
		docKind = docstore.KindVacancy
	}
	path, err := c.docs.Save(docKind, content)
	if err != nil {
		c.logger.Error("failed to store document for user %d: %v", user.ID, err)
		return []Reply{{Text: msgAIUnavailable}}
	}

	if kind == ai.DocResume {
		_, oldPath, err := c.store.SaveResume(ctx, user.ID, path, source, result.Title)
		if err != nil {
			c.logger.Error("failed to save resume for user %d: %v", user.ID, err)
			return []Reply{{Text: msgAIUnavailable}}
		}
		if oldPath != "" {
			if err := c.docs.Delete(oldPath); err != nil {
				c.logger.Warn("failed to delete replaced resume file: %v", err)
			}
		}

		if len(vacancies) > 0 {
			replies := []Reply{{Text: msgResumeSaved}}
			return append(replies, c.mainMenu(ctx, user, sess, c.selectedVacancy(ctx, user, sess, vacancies))...)
		}
		title := ""
		if result.Title != "" {
			title = fmt.Sprintf(" (%s)", result.Title)
		}
		return []Reply{{Text: fmt.Sprintf(msgAwaitingVacancy, title)}}
	}

	vacancy, err := c.store.CreateVacancy(ctx, user.ID, path, source, result.Title)
	if err != nil {
		c.logger.Error("failed to save vacancy for user %d: %v", user.ID, err)
		return []Reply{{Text: msgAIUnavailable}}
	}
	sess.selectedVacancyID = vacancy.ID

	replies := []Reply{{Text: fmt.Sprintf(msgVacancySaved, vacancyLabel(vacancy))}}
	return append(replies, c.mainMenu(ctx, user, sess, vacancy)...)
}

func (c *Conversation) logVerification(ctx context.Context, user *persistence.User, kind ai.DocKind, usage ai.Usage) {
	action := "verify_resume"
	if kind == ai.DocVacancy {
		action = "verify_vacancy"
	}
	err := c.store.AppendUsageLog(ctx, &persistence.UsageLog{
		UserID:           user.ID,
		Action:           action,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.TotalTokens,
		CostUSD:          usage.CostUSD,
	})
	if err != nil {
		c.logger.Warn("failed to log %s usage: %v", action, err)
	}
}

// runAction dispatches one analysis action for the selected vacancy.
func (c *Conversation) runAction(ctx context.Context, user *persistence.User, sess *session, state State, resume *persistence.Resume, vacancies []*persistence.Vacancy, action ai.Action) []Reply {
	if state != StateMainMenu {
		replies := []Reply{{Text: msgNotInMenuYet}}
		return append(replies, c.promptForState(ctx, user, sess, state, resume, vacancies)...)
	}

	vacancy := c.selectedVacancy(ctx, user, sess, vacancies)
	if vacancy == nil {
		return []Reply{{Text: msgNoVacancyChosen}}
	}

	result, err := c.analyses.GetOrCompute(ctx, user.ID, resume, vacancy, action)
	if err != nil {
		replies := []Reply{{Text: aiErrorMessage(err)}}
		return append(replies, c.mainMenu(ctx, user, sess, vacancy)...)
	}

	replies := []Reply{{Text: result.Header + "\n\n" + result.Content}}
	return append(replies, c.mainMenu(ctx, user, sess, vacancy)...)
}

// selectedVacancy returns the session's chosen vacancy when it still exists,
// falling back to the most recent one.
func (c *Conversation) selectedVacancy(ctx context.Context, user *persistence.User, sess *session, vacancies []*persistence.Vacancy) *persistence.Vacancy {
	if len(vacancies) == 0 {
		return nil
	}
	if sess.selectedVacancyID != 0 {
		vacancy, err := c.store.GetVacancy(ctx, sess.selectedVacancyID, user.ID)
		if err == nil && vacancy != nil {
			return vacancy
		}
	}
	sess.selectedVacancyID = vacancies[0].ID
	return vacancies[0]
}

func (c *Conversation) promptForState(ctx context.Context, user *persistence.User, sess *session, state State, _ *persistence.Resume, vacancies []*persistence.Vacancy) []Reply {
	switch state {
	case StateAwaitingResume:
		return []Reply{{Text: msgAwaitingResume}}
	case StateAwaitingVacancy:
		return []Reply{{Text: fmt.Sprintf(msgAwaitingVacancy, "")}}
	default:
		return c.mainMenu(ctx, user, sess, c.selectedVacancy(ctx, user, sess, vacancies))
	}
}

// mainMenu renders the action menu for the current vacancy, plus an active
// survey the user has not answered yet.
func (c *Conversation) mainMenu(ctx context.Context, user *persistence.User, _ *session, vacancy *persistence.Vacancy) []Reply {
	label := msgNoVacancyChosen
	if vacancy != nil {
		label = vacancyLabel(vacancy)
	}
	replies := []Reply{{
		Text:     fmt.Sprintf(msgMainMenu, label),
		Keyboard: mainMenuKeyboard(),
	}}

	if survey := c.pendingSurvey(ctx, user); survey != nil {
		replies = append(replies, Reply{Text: survey.Question, Keyboard: surveyKeyboard(survey)})
	}
	return replies
}

func (c *Conversation) pendingSurvey(ctx context.Context, user *persistence.User) *persistence.Survey {
	survey, err := c.store.GetActiveSurvey(ctx)
	if err != nil {
		c.logger.Warn("failed to load active survey: %v", err)
		return nil
	}
	if survey == nil {
		return nil
	}
	answered, err := c.store.HasSurveyAnswer(ctx, survey.ID, user.ID)
	if err != nil || answered {
		return nil
	}
	return survey
}

func (c *Conversation) answerSurvey(ctx context.Context, user *persistence.User, key string) []Reply {
	surveyID, optionIdx, ok := parseSurveyKey(key)
	if !ok {
		return []Reply{{Text: msgSurveyThanks}}
	}
	survey, err := c.store.GetActiveSurvey(ctx)
	if err != nil || survey == nil || survey.ID != surveyID || optionIdx < 0 || optionIdx >= len(survey.Options) {
		return []Reply{{Text: msgSurveyThanks}}
	}
	if err := c.store.SaveSurveyAnswer(ctx, surveyID, user.ID, survey.Options[optionIdx]); err != nil {
		c.logger.Warn("failed to save survey answer: %v", err)
	}
	return []Reply{{Text: msgSurveyThanks}}
}

func (c *Conversation) usageReply(ctx context.Context, user *persistence.User) []Reply {
	totals, err := c.store.GetUsageTotals(ctx, user.ID)
	if err != nil {
		c.logger.Error("failed to load usage totals for user %d: %v", user.ID, err)
		return []Reply{{Text: msgAIUnavailable}}
	}
	return []Reply{{Text: fmt.Sprintf(msgUsage, totals.Calls, totals.TotalTokens, totals.CostUSD)}}
}

func (c *Conversation) unknownButton(ctx context.Context, user *persistence.User, sess *session, state State, resume *persistence.Resume, vacancies []*persistence.Vacancy) []Reply {
	replies := []Reply{{Text: msgUnknownButton}}
	return append(replies, c.promptForState(ctx, user, sess, state, resume, vacancies)...)
}

func aiErrorMessage(err error) string {
	if ai.IsTimeout(err) {
		return msgAITimeout
	}
	return msgAIUnavailable
}

func isURL(text string) bool {
	return strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://")
}
