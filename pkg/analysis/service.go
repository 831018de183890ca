// Package analysis computes AI analyses for (resume, vacancy) pairs with a
// persistent cache: each action runs at most once per pair, and repeated
// requests are served from the database without touching the AI backend.
package analysis

import (
	"context"
	"fmt"
	"sync"

	"resumebot/pkg/ai"
	"resumebot/pkg/docstore"
	"resumebot/pkg/logx"
	"resumebot/pkg/persistence"
)

// Runner executes one analysis action. *ai.Client implements it; tests use
// a stub.
type Runner interface {
	Run(ctx context.Context, action ai.Action, resumeText, vacancyText string) (*ai.RunResult, error)
}

// Result is a computed or cached analysis.
type Result struct {
	Content string
	Header  string
	Cached  bool
	Usage   ai.Usage
}

// Service wraps the cache lookup, document loading, AI invocation and
// transactional persistence of results.
type Service struct {
	store  *persistence.Store
	docs   *docstore.Store
	runner Runner
	logger *logx.Logger

	mu    sync.Mutex
	locks map[string]*keyLock
}

// keyLock serializes work on one (resume, vacancy, action) key. refs counts
// holders and waiters so the entry can be dropped once the last one releases.
type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewService creates the analysis service.
func NewService(store *persistence.Store, docs *docstore.Store, runner Runner) *Service {
	return &Service{
		store:  store,
		docs:   docs,
		runner: runner,
		logger: logx.NewLogger("analysis"),
		locks:  make(map[string]*keyLock),
	}
}

// GetOrCompute returns the action's result for the pair, computing and
// caching it on first request. Concurrent requests for the same
// (resume, vacancy, action) key are serialized so the backend is called at
// most once per successful computation; a failed call leaves the cache
// untouched and is retried on the next request.
func (s *Service) GetOrCompute(ctx context.Context, userID int64, resume *persistence.Resume, vacancy *persistence.Vacancy, action ai.Action) (*Result, error) {
	spec := action.Spec()

	release := s.acquireKey(resume.ID, vacancy.ID, action)
	defer release()

	cached, err := s.store.GetAnalysis(ctx, resume.ID, vacancy.ID)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		if content, ok := cached.Field(spec.ResultField); ok {
			s.logger.Debug("cache hit for %s on pair (%d, %d)", action, resume.ID, vacancy.ID)
			return &Result{Content: content, Header: spec.ResponseHeader, Cached: true}, nil
		}
	}

	resumeText, err := s.docs.Read(resume.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load resume document: %w", err)
	}
	vacancyText, err := s.docs.Read(vacancy.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load vacancy document: %w", err)
	}

	runResult, runErr := s.runner.Run(ctx, action, resumeText, vacancyText)
	if runErr != nil {
		// The attempt may still have consumed tokens; account for them even
		// though no result is cached.
		if usage := ai.UsageOf(runErr); usage.TotalTokens > 0 {
			if logErr := s.store.AppendUsageLog(ctx, s.usageLog(userID, resume.ID, vacancy.ID, action, usage)); logErr != nil {
				s.logger.Warn("failed to log usage for failed %s: %v", action, logErr)
			}
		}
		return nil, runErr
	}

	err = s.store.UpsertAnalysisField(ctx, resume.ID, vacancy.ID, spec.ResultField, runResult.Content,
		s.usageLog(userID, resume.ID, vacancy.ID, action, runResult.Usage))
	if err != nil {
		return nil, fmt.Errorf("failed to persist %s result: %w", action, err)
	}

	s.logger.Info("computed %s for pair (%d, %d): %d tokens", action, resume.ID, vacancy.ID, runResult.Usage.TotalTokens)
	return &Result{Content: runResult.Content, Header: spec.ResponseHeader, Usage: runResult.Usage}, nil
}

func (s *Service) usageLog(userID, resumeID, vacancyID int64, action ai.Action, usage ai.Usage) *persistence.UsageLog {
	return &persistence.UsageLog{
		UserID:           userID,
		ResumeID:         &resumeID,
		VacancyID:        &vacancyID,
		Action:           string(action),
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.TotalTokens,
		CostUSD:          usage.CostUSD,
	}
}

// acquireKey locks the key and returns the matching release func. The lock
// map only holds keys with work in flight.
func (s *Service) acquireKey(resumeID, vacancyID int64, action ai.Action) func() {
	key := fmt.Sprintf("%d:%d:%s", resumeID, vacancyID, action)

	s.mu.Lock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &keyLock{}
		s.locks[key] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		s.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}
