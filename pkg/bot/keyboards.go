package bot

import (
	"fmt"
	"strconv"
	"strings"

	"resumebot/pkg/ai"
	"resumebot/pkg/persistence"
)

// Callback key prefixes. Keys stay under telegram's 64-byte callback data
// limit.
const (
	keyAction        = "action:"
	keyVacancy       = "vacancy:"
	keySurvey        = "survey:"
	keyUploadResume  = "upload_resume"
	keyUploadVacancy = "upload_vacancy"
	keyListVacancies = "list_vacancies"
	keyUsage         = "usage"
)

func actionKey(action ai.Action) string { return keyAction + string(action) }

func vacancyKey(id int64) string { return keyVacancy + strconv.FormatInt(id, 10) }

func surveyKey(surveyID int64, optionIdx int) string {
	return fmt.Sprintf("%s%d:%d", keySurvey, surveyID, optionIdx)
}

func parseVacancyKey(key string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimPrefix(key, keyVacancy), 10, 64)
	return id, err == nil
}

func parseSurveyKey(key string) (surveyID int64, optionIdx int, ok bool) {
	parts := strings.Split(strings.TrimPrefix(key, keySurvey), ":")
	if len(parts) != 2 {
		return 0, 0, false
	}
	surveyID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	optionIdx, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return surveyID, optionIdx, true
}

// mainMenuKeyboard lists the analysis actions plus document management.
func mainMenuKeyboard() *Keyboard {
	kb := &Keyboard{}
	for _, action := range ai.Actions() {
		spec := action.Spec()
		kb.Rows = append(kb.Rows, []Button{{Label: spec.ButtonLabel, Key: actionKey(action)}})
	}
	kb.Rows = append(kb.Rows, []Button{
		{Label: "📂 My vacancies", Key: keyListVacancies},
		{Label: "➕ Add vacancy", Key: keyUploadVacancy},
	})
	kb.Rows = append(kb.Rows, []Button{
		{Label: "🔄 New resume", Key: keyUploadResume},
		{Label: "📈 Usage", Key: keyUsage},
	})
	return kb
}

// vacancyListKeyboard renders one button per vacancy, newest first.
func vacancyListKeyboard(vacancies []*persistence.Vacancy) *Keyboard {
	kb := &Keyboard{}
	for _, v := range vacancies {
		kb.Rows = append(kb.Rows, []Button{{Label: vacancyLabel(v), Key: vacancyKey(v.ID)}})
	}
	return kb
}

func surveyKeyboard(survey *persistence.Survey) *Keyboard {
	kb := &Keyboard{}
	for i, option := range survey.Options {
		kb.Rows = append(kb.Rows, []Button{{Label: option, Key: surveyKey(survey.ID, i)}})
	}
	return kb
}

func vacancyLabel(v *persistence.Vacancy) string {
	if v.Title != "" {
		return v.Title
	}
	return fmt.Sprintf("Vacancy #%d", v.ID)
}
