package ai

// Action identifies one analysis a user can request for a (resume, vacancy)
// pair.
type Action string

const (
	ActionAnalyzeMatch     Action = "analyze_match"
	ActionGenerateLetter   Action = "generate_letter"
	ActionGenerateHRPlan   Action = "generate_hr_plan"
	ActionGenerateTechPlan Action = "generate_tech_plan"
)

// ActionSpec describes how an action is executed and where its result lives.
type ActionSpec struct {
	// prompt template fed to the provider
	prompt string
	// ResultField is the analysis_results column holding this action's output.
	ResultField string
	// ResponseHeader is prepended to the result when shown to the user.
	ResponseHeader string
	// ButtonLabel is the menu label for this action.
	ButtonLabel string
}

// Registry of all supported actions. Read-only after init; safe to share
// across goroutines.
var actionRegistry = map[Action]ActionSpec{
	ActionAnalyzeMatch: {
		prompt:         analyzeMatchPrompt,
		ResultField:    "match_analysis",
		ResponseHeader: "📊 Match analysis",
		ButtonLabel:    "📊 Analyze match",
	},
	ActionGenerateLetter: {
		prompt:         coverLetterPrompt,
		ResultField:    "cover_letter",
		ResponseHeader: "✉️ Cover letter",
		ButtonLabel:    "✉️ Cover letter",
	},
	ActionGenerateHRPlan: {
		prompt:         hrCallPlanPrompt,
		ResultField:    "hr_call_plan",
		ResponseHeader: "📞 HR call plan",
		ButtonLabel:    "📞 HR call plan",
	},
	ActionGenerateTechPlan: {
		prompt:         techInterviewPlanPrompt,
		ResultField:    "tech_interview_plan",
		ResponseHeader: "💻 Tech interview plan",
		ButtonLabel:    "💻 Tech interview plan",
	},
}

// LookupAction returns the spec for an action name.
func LookupAction(name string) (Action, ActionSpec, bool) {
	action := Action(name)
	spec, ok := actionRegistry[action]
	return action, spec, ok
}

// Actions returns all actions in stable menu order.
func Actions() []Action {
	return []Action{
		ActionAnalyzeMatch,
		ActionGenerateLetter,
		ActionGenerateHRPlan,
		ActionGenerateTechPlan,
	}
}

// Spec returns the action's spec. It panics on unknown actions; callers go
// through LookupAction for user input.
func (a Action) Spec() ActionSpec {
	spec, ok := actionRegistry[a]
	if !ok {
		panic("unknown action " + string(a))
	}
	return spec
}
