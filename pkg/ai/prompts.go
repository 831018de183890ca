package ai

import "strings"

// Verification prompts instruct the model to answer with a bare JSON object
// so the extraction pipeline can recover it even when the model adds fences.
const (
	verifyResumePrompt = `You are a strict document classifier. Decide whether the following text is a resume (CV).
Respond with a single JSON object and nothing else, in the form:
{"is_resume": true/false, "title": "<candidate's professional title, or null>"}

Text:
%TEXT%`

	verifyVacancyPrompt = `You are a strict document classifier. Decide whether the following text is a job vacancy description.
Respond with a single JSON object and nothing else, in the form:
{"is_vacancy": true/false, "title": "<job title, or null>"}

Text:
%TEXT%`
)

// Analysis prompts take a resume and a vacancy and produce free-form text.
const (
	analyzeMatchPrompt = `You are an experienced technical recruiter. Analyze how well the candidate's resume matches the vacancy.
Cover: matching skills, missing skills, relevant experience, and an overall fit verdict with a score out of 10.

Resume:
%RESUME%

Vacancy:
%VACANCY%`

	coverLetterPrompt = `You are a career coach. Write a concise, personalized cover letter for the candidate applying to this vacancy.
Use concrete facts from the resume, address the vacancy's key requirements, and keep it under 300 words.

Resume:
%RESUME%

Vacancy:
%VACANCY%`

	hrCallPlanPrompt = `You are a career coach. Prepare the candidate for an introductory call with an HR recruiter for this vacancy.
List the questions HR is likely to ask, strong answers grounded in the resume, and questions the candidate should ask back.

Resume:
%RESUME%

Vacancy:
%VACANCY%`

	techInterviewPlanPrompt = `You are a senior engineer who runs technical interviews. Prepare the candidate for the technical interview for this vacancy.
List the topics to revise, likely technical questions with short model answers, and gaps between the resume and the vacancy to prepare for.

Resume:
%RESUME%

Vacancy:
%VACANCY%`
)

func renderVerifyPrompt(template, text string) string {
	return strings.ReplaceAll(template, "%TEXT%", text)
}

func renderAnalysisPrompt(template, resumeText, vacancyText string) string {
	s := strings.ReplaceAll(template, "%RESUME%", resumeText)
	return strings.ReplaceAll(s, "%VACANCY%", vacancyText)
}
