package bot

import "sync"

// session holds per-chat transient choices. Losing a session (restart) is
// safe: the selected vacancy falls back to the most recent one and upload
// intent falls back to the derived state.
type session struct {
	selectedVacancyID int64
	// pendingUpload overrides what the next uploaded document is treated
	// as while the user is in the main menu ("resume" or "vacancy").
	pendingUpload string
}

// sessions is a concurrency-safe per-chat session map.
type sessions struct {
	mu sync.Mutex
	m  map[int64]*session
}

func newSessions() *sessions {
	return &sessions{m: make(map[int64]*session)}
}

// get returns the chat's session, creating it when absent.
func (s *sessions) get(chatID int64) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.m[chatID]
	if !ok {
		sess = &session{}
		s.m[chatID] = sess
	}
	return sess
}
