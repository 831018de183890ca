package bot

import "resumebot/pkg/persistence"

// State is the conversation phase. It is derived from persisted data on
// every event, never stored, so a restart cannot strand a user in a stale
// phase.
type State int

const (
	// StateAwaitingResume: the user has no resume yet.
	StateAwaitingResume State = iota
	// StateAwaitingVacancy: resume stored, no vacancies yet.
	StateAwaitingVacancy
	// StateMainMenu: resume and at least one vacancy stored.
	StateMainMenu
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateAwaitingResume:
		return "awaiting_resume"
	case StateAwaitingVacancy:
		return "awaiting_vacancy"
	case StateMainMenu:
		return "main_menu"
	default:
		return "unknown"
	}
}

// ResolveState derives the conversation phase from what the user has stored.
func ResolveState(resume *persistence.Resume, vacancies []*persistence.Vacancy) State {
	if resume == nil {
		return StateAwaitingResume
	}
	if len(vacancies) == 0 {
		return StateAwaitingVacancy
	}
	return StateMainMenu
}
