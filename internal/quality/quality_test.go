package quality

import (
	"strings"
	"testing"
)

func TestAnalyzeFlagsPaddedMonotoneProse(t *testing.T) {
	sentence := "It is a very basic thing and it is a really simple idea overall."
	text := strings.TrimSpace(strings.Repeat(sentence+" ", 12))

	report := Analyze(text, false)
	if !report.Monotone {
		t.Fatalf("expected monotone prose to be flagged (sd=%.2f)", report.SentenceLengthSD)
	}
	if report.FillerDensity <= 0.015 {
		t.Fatalf("expected high filler density, got %.3f", report.FillerDensity)
	}
	if report.Score >= 70 {
		t.Fatalf("expected a low quality score, got %d flags=%v", report.Score, report.Flags)
	}
	joined := strings.ToLower(strings.Join(report.Flags, " | "))
	if !strings.Contains(joined, "filler") {
		t.Fatalf("expected filler flag, got %+v", report.Flags)
	}
}

func TestAnalyzeDoesNotOverFlagNormalDraft(t *testing.T) {
	parts := []string{
		"He walked to the station, bought coffee, and missed his train by one minute.",
		"The delay made him call his sister.",
		"They argued briefly about their father and the house by the lake, which neither of them wanted to sell.",
		"By noon he had made up his mind to visit home.",
		"Rain started around dinner and the streets filled with umbrellas.",
		"He cooked soup, answered two emails, and read old notes before sleeping.",
	}
	report := Analyze(strings.Join(parts, " "), false)
	if report.Score < 80 {
		t.Fatalf("expected normal draft to score well (score=%d flags=%v)", report.Score, report.Flags)
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	report := Analyze("   ", false)
	if report.Score != 0 || len(report.Flags) != 1 {
		t.Fatalf("unexpected empty report %+v", report)
	}
}

func TestAnalyzeCodeCommentDensity(t *testing.T) {
	lines := []string{"package main", "", "// main prints numbers.", "func main() {"}
	for i := 0; i < 25; i++ {
		lines = append(lines, "\tprintln(i)")
	}
	lines = append(lines, "}")
	report := Analyze(strings.Join(lines, "\n"), true)
	if report.CommentDensity <= 0 {
		t.Fatalf("expected comment density, got %.3f", report.CommentDensity)
	}
	if report.Monotone {
		t.Fatalf("code must not be checked for monotone prose")
	}
}
