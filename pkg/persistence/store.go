// Package persistence provides SQLite-based storage for users, documents,
// analysis results, usage logs and surveys.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"resumebot/pkg/logx"
)

// Store wraps the database connection and provides all storage operations.
type Store struct {
	db     *sql.DB
	logger *logx.Logger
}

// Open opens (or creates) the database at dbPath and brings the schema to
// the current version.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf(
		"file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)",
		dbPath,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := initializeSchemaWithMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	// SQLite supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	logger := logx.NewLogger("persistence")
	logger.Info("database initialized: %s", dbPath)

	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// DB exposes the raw connection for schema inspection in tests.
func (s *Store) DB() *sql.DB {
	return s.db
}

// GetOrCreateUser returns the user for chatID, creating it on first contact.
// The stored username is refreshed when it changed.
func (s *Store) GetOrCreateUser(ctx context.Context, chatID int64, username string) (*User, error) {
	user := &User{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, chat_id, username, created_at FROM users WHERE chat_id = ?`,
		chatID,
	).Scan(&user.ID, &user.ChatID, &user.Username, &user.CreatedAt)

	if err == nil {
		if username != "" && username != user.Username {
			_, err = s.db.ExecContext(ctx, `UPDATE users SET username = ? WHERE id = ?`, username, user.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to update username: %w", err)
			}
			user.Username = username
		}
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (chat_id, username, created_at) VALUES (?, ?, ?)`,
		chatID, username, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get user id: %w", err)
	}

	s.logger.Info("new user registered: chat_id=%d", chatID)
	return &User{ID: id, ChatID: chatID, Username: username, CreatedAt: now}, nil
}

// GetResume returns the user's resume, or nil if none is stored.
func (s *Store) GetResume(ctx context.Context, userID int64) (*Resume, error) {
	r := &Resume{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, file_path, source, title, created_at FROM resumes WHERE user_id = ?`,
		userID,
	).Scan(&r.ID, &r.UserID, &r.FilePath, &r.Source, &r.Title, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query resume: %w", err)
	}
	return r, nil
}

// SaveResume stores a new resume for the user, replacing any existing one.
// Cached analysis results for the old resume are removed by cascade. The
// file path of the replaced resume is returned so the caller can delete the
// stored document, or "" when this is the user's first resume.
func (s *Store) SaveResume(ctx context.Context, userID int64, filePath, source, title string) (*Resume, string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var oldPath string
	err = tx.QueryRowContext(ctx, `SELECT file_path FROM resumes WHERE user_id = ?`, userID).Scan(&oldPath)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("failed to query existing resume: %w", err)
	}
	if oldPath != "" {
		if _, err := tx.ExecContext(ctx, `DELETE FROM resumes WHERE user_id = ?`, userID); err != nil {
			return nil, "", fmt.Errorf("failed to delete old resume: %w", err)
		}
	}

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO resumes (user_id, file_path, source, title, created_at) VALUES (?, ?, ?, ?, ?)`,
		userID, filePath, source, title, now,
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to insert resume: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get resume id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, "", fmt.Errorf("failed to commit resume save: %w", err)
	}

	return &Resume{
		ID: id, UserID: userID, FilePath: filePath,
		Source: source, Title: title, CreatedAt: now,
	}, oldPath, nil
}

// CreateVacancy stores a new vacancy for the user.
func (s *Store) CreateVacancy(ctx context.Context, userID int64, filePath, source, title string) (*Vacancy, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO vacancies (user_id, file_path, source, title, created_at) VALUES (?, ?, ?, ?, ?)`,
		userID, filePath, source, title, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert vacancy: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get vacancy id: %w", err)
	}
	return &Vacancy{
		ID: id, UserID: userID, FilePath: filePath,
		Source: source, Title: title, CreatedAt: now,
	}, nil
}

// ListVacancies returns the user's vacancies, newest first.
func (s *Store) ListVacancies(ctx context.Context, userID int64) ([]*Vacancy, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, file_path, source, title, created_at
		 FROM vacancies WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query vacancies: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var vacancies []*Vacancy
	for rows.Next() {
		v := &Vacancy{}
		if err := rows.Scan(&v.ID, &v.UserID, &v.FilePath, &v.Source, &v.Title, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vacancy: %w", err)
		}
		vacancies = append(vacancies, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate vacancies: %w", err)
	}
	return vacancies, nil
}

// GetVacancy returns one of the user's vacancies by id, or nil if it does
// not exist or belongs to another user.
func (s *Store) GetVacancy(ctx context.Context, vacancyID, userID int64) (*Vacancy, error) {
	v := &Vacancy{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, file_path, source, title, created_at
		 FROM vacancies WHERE id = ? AND user_id = ?`,
		vacancyID, userID,
	).Scan(&v.ID, &v.UserID, &v.FilePath, &v.Source, &v.Title, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query vacancy: %w", err)
	}
	return v, nil
}

// GetAnalysis returns the cached analysis row for the pair, or nil when no
// action has been computed yet.
func (s *Store) GetAnalysis(ctx context.Context, resumeID, vacancyID int64) (*AnalysisResult, error) {
	r := &AnalysisResult{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, resume_id, vacancy_id, match_analysis, cover_letter,
		        hr_call_plan, tech_interview_plan, created_at, updated_at
		 FROM analysis_results WHERE resume_id = ? AND vacancy_id = ?`,
		resumeID, vacancyID,
	).Scan(&r.ID, &r.ResumeID, &r.VacancyID, &r.MatchAnalysis, &r.CoverLetter,
		&r.HRCallPlan, &r.TechInterviewPlan, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis: %w", err)
	}
	return r, nil
}

var analysisFields = map[string]bool{
	FieldMatchAnalysis:     true,
	FieldCoverLetter:       true,
	FieldHRCallPlan:        true,
	FieldTechInterviewPlan: true,
}

// UpsertAnalysisField stores one action's result into its column of the
// pair's analysis row, creating the row if needed, and appends the usage log
// in the same transaction. Other columns of the row are left untouched.
func (s *Store) UpsertAnalysisField(ctx context.Context, resumeID, vacancyID int64, field, value string, usage *UsageLog) error {
	if !analysisFields[field] {
		return fmt.Errorf("unknown analysis field %q", field)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	// Field name is validated against the allowlist above.
	query := fmt.Sprintf(
		`INSERT INTO analysis_results (resume_id, vacancy_id, %s, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(resume_id, vacancy_id)
		 DO UPDATE SET %s = excluded.%s, updated_at = excluded.updated_at`,
		field, field, field,
	)
	if _, err := tx.ExecContext(ctx, query, resumeID, vacancyID, value, now, now); err != nil {
		return fmt.Errorf("failed to upsert analysis field %s: %w", field, err)
	}

	if usage != nil {
		if err := insertUsageLog(ctx, tx, usage); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit analysis upsert: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertUsageLog(ctx context.Context, e execer, u *UsageLog) error {
	_, err := e.ExecContext(ctx,
		`INSERT INTO ai_usage_logs
		 (user_id, resume_id, vacancy_id, action, prompt_tokens, completion_tokens, total_tokens, cost_usd, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.UserID, u.ResumeID, u.VacancyID, u.Action,
		u.PromptTokens, u.CompletionTokens, u.TotalTokens, u.CostUSD,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert usage log: %w", err)
	}
	return nil
}

// AppendUsageLog records token usage for an AI call outside an analysis
// transaction (verification calls, failed attempts).
func (s *Store) AppendUsageLog(ctx context.Context, u *UsageLog) error {
	return insertUsageLog(ctx, s.db, u)
}

// UsageTotals aggregates a user's AI usage.
type UsageTotals struct {
	Calls       int     `json:"calls"`
	TotalTokens int     `json:"total_tokens"`
	CostUSD     float64 `json:"cost_usd"`
}

// GetUsageTotals sums all usage logs for the user.
func (s *Store) GetUsageTotals(ctx context.Context, userID int64) (*UsageTotals, error) {
	t := &UsageTotals{}
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(total_tokens), 0), COALESCE(SUM(cost_usd), 0)
		 FROM ai_usage_logs WHERE user_id = ?`,
		userID,
	).Scan(&t.Calls, &t.TotalTokens, &t.CostUSD)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage totals: %w", err)
	}
	return t, nil
}

// CreateSurvey adds a survey. Activating one does not deactivate others;
// GetActiveSurvey picks the newest active survey.
func (s *Store) CreateSurvey(ctx context.Context, question string, options []string, active bool) (*Survey, error) {
	opts, err := json.Marshal(options)
	if err != nil {
		return nil, fmt.Errorf("failed to encode survey options: %w", err)
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO surveys (question, options, active, created_at) VALUES (?, ?, ?, ?)`,
		question, string(opts), active, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert survey: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get survey id: %w", err)
	}
	return &Survey{ID: id, Question: question, Options: options, Active: active, CreatedAt: now}, nil
}

// GetActiveSurvey returns the newest active survey, or nil when there is none.
func (s *Store) GetActiveSurvey(ctx context.Context) (*Survey, error) {
	sv := &Survey{}
	var opts string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, question, options, active, created_at
		 FROM surveys WHERE active = 1 ORDER BY created_at DESC, id DESC LIMIT 1`,
	).Scan(&sv.ID, &sv.Question, &opts, &sv.Active, &sv.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query active survey: %w", err)
	}
	if err := json.Unmarshal([]byte(opts), &sv.Options); err != nil {
		return nil, fmt.Errorf("failed to decode survey options: %w", err)
	}
	return sv, nil
}

// HasSurveyAnswer reports whether the user already answered the survey.
func (s *Store) HasSurveyAnswer(ctx context.Context, surveyID, userID int64) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM survey_answers WHERE survey_id = ? AND user_id = ?`,
		surveyID, userID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to query survey answer: %w", err)
	}
	return n > 0, nil
}

// SaveSurveyAnswer records the user's answer. A repeated answer for the same
// survey is ignored; the first answer wins.
func (s *Store) SaveSurveyAnswer(ctx context.Context, surveyID, userID int64, answer string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO survey_answers (survey_id, user_id, answer, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(survey_id, user_id) DO NOTHING`,
		surveyID, userID, answer, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save survey answer: %w", err)
	}
	return nil
}
