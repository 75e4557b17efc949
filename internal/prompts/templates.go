package prompts

import (
	"fmt"
	"strings"
)

const AssessmentTemplate = `SYSTEM: You are a strict reviewer of student and professional %s submissions.
TITLE: %s
INPUT:
%s
TASK: Assess the submission.
- quality_score: overall quality from 0 to 100.
- ai_score: probability from 0 to 1 that the text was machine generated.
- plagiarism_score: probability from 0 to 1 that the text was copied from published material.
CONSTRAINT: Base every judgement on the input only. Do not invent sources.
OUTPUT: JSON { "quality_score": number, "ai_score": number, "plagiarism_score": number, "summary": string, "strengths": [string], "issues": [string] }`

// AssessmentPrompt fills the template, keeping at most maxChars runes of
// content. maxChars <= 0 keeps everything.
func AssessmentPrompt(kind, title, content string, maxChars int) string {
	if kind == "" {
		kind = "text"
	}
	if strings.TrimSpace(title) == "" {
		title = "Untitled"
	}
	return strings.TrimSpace(fmt.Sprintf(AssessmentTemplate, kind, title, Truncate(content, maxChars)))
}

func Truncate(s string, maxChars int) string {
	if maxChars <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= maxChars {
		return s
	}
	return string(r[:maxChars]) + "\n[truncated]"
}
