package persistence

import (
	"database/sql"
	"time"
)

// Document source constants.
const (
	SourceFile = "file"
	SourceURL  = "url"
)

// Analysis result column names. These are the only columns
// UpsertAnalysisField accepts.
const (
	FieldMatchAnalysis     = "match_analysis"
	FieldCoverLetter       = "cover_letter"
	FieldHRCallPlan        = "hr_call_plan"
	FieldTechInterviewPlan = "tech_interview_plan"
)

// User is a telegram user known to the service.
type User struct {
	ID        int64     `json:"id"`
	ChatID    int64     `json:"chat_id"`
	Username  string    `json:"username,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Resume is a user's uploaded resume document. A user has at most one;
// saving a new one replaces the old.
type Resume struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	FilePath  string    `json:"file_path"`
	Source    string    `json:"source"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Vacancy is a job posting document. A user may have many.
type Vacancy struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	FilePath  string    `json:"file_path"`
	Source    string    `json:"source"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AnalysisResult accretes per-action AI outputs for one (resume, vacancy)
// pair. Each column is filled at most once per pair.
type AnalysisResult struct {
	ID                int64          `json:"id"`
	ResumeID          int64          `json:"resume_id"`
	VacancyID         int64          `json:"vacancy_id"`
	MatchAnalysis     sql.NullString `json:"match_analysis"`
	CoverLetter       sql.NullString `json:"cover_letter"`
	HRCallPlan        sql.NullString `json:"hr_call_plan"`
	TechInterviewPlan sql.NullString `json:"tech_interview_plan"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// Field returns the named result column and whether it is filled.
func (r *AnalysisResult) Field(name string) (string, bool) {
	var v sql.NullString
	switch name {
	case FieldMatchAnalysis:
		v = r.MatchAnalysis
	case FieldCoverLetter:
		v = r.CoverLetter
	case FieldHRCallPlan:
		v = r.HRCallPlan
	case FieldTechInterviewPlan:
		v = r.TechInterviewPlan
	default:
		return "", false
	}
	return v.String, v.Valid
}

// UsageLog records token usage and cost for one AI call. Resume and vacancy
// references are plain columns without foreign keys so logs survive document
// replacement.
type UsageLog struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"user_id"`
	ResumeID         *int64    `json:"resume_id,omitempty"`
	VacancyID        *int64    `json:"vacancy_id,omitempty"`
	Action           string    `json:"action"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	CostUSD          float64   `json:"cost_usd"`
	CreatedAt        time.Time `json:"created_at"`
}

// Survey is a single-question poll shown in the main menu until answered.
type Survey struct {
	ID        int64     `json:"id"`
	Question  string    `json:"question"`
	Options   []string  `json:"options"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// SurveyAnswer is one user's answer to a survey. One answer per user per
// survey.
type SurveyAnswer struct {
	ID        int64     `json:"id"`
	SurveyID  int64     `json:"survey_id"`
	UserID    int64     `json:"user_id"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}
