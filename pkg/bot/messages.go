package bot

// User-facing message templates. %s placeholders are filled via fmt.Sprintf
// at the call site.
const (
	msgWelcome = "👋 Hi! I help you prepare for job applications.\n" +
		"Send me your resume as a .txt file or a link to it, and I'll take it from there."

	msgAwaitingResume  = "📄 Please send your resume as a .txt file or a link."
	msgAwaitingVacancy = "🎯 Resume saved%s. Now send a vacancy as a .txt file or a link."

	msgResumeRejected = "🤔 That doesn't look like a resume. " +
		"Please send your resume as a .txt file or a link to it."
	msgVacancyRejected = "🤔 That doesn't look like a vacancy description. " +
		"Please send a vacancy as a .txt file or a link to it."

	msgAIUnavailable = "😓 The AI service is unavailable right now. Please try again in a minute."
	msgAITimeout     = "⏳ The AI service is taking too long to respond. Please try again in a minute."

	msgUnsupportedFile = "⚠️ I can only read .txt files up to %dKB. Please convert your document and try again."
	msgFetchFailed     = "⚠️ I couldn't read that link. Please check the URL or send the text as a .txt file."
	msgDownloadFailed  = "⚠️ I couldn't download that file. Please send it again."

	msgCanceled = "✖️ Canceled."

	msgMainMenu        = "📋 Current vacancy: %s\nWhat shall we do?"
	msgVacancySaved    = "✅ Vacancy saved: %s"
	msgResumeSaved     = "✅ Resume saved"
	msgChooseVacancy   = "📂 Choose a vacancy:"
	msgNoVacancyChosen = "⚠️ Pick a vacancy first."
	msgUnknownButton   = "⚠️ That button is no longer valid. Here's the current menu."
	msgNotInMenuYet    = "Finish uploading your documents first."

	msgUsage = "📈 Your AI usage: %d calls, %d tokens, $%.4f total."

	msgSurveyThanks = "🙏 Thanks for your answer!"
)
