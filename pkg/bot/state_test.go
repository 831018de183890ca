package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"resumebot/pkg/persistence"
)

func TestResolveState(t *testing.T) {
	resume := &persistence.Resume{ID: 1}
	vacancies := []*persistence.Vacancy{{ID: 1}}

	tests := []struct {
		name      string
		resume    *persistence.Resume
		vacancies []*persistence.Vacancy
		want      State
	}{
		{"no documents", nil, nil, StateAwaitingResume},
		{"vacancies without resume still awaits resume", nil, vacancies, StateAwaitingResume},
		{"resume only", resume, nil, StateAwaitingVacancy},
		{"resume and vacancy", resume, vacancies, StateMainMenu},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveState(tt.resume, tt.vacancies))
		})
	}
}
