package authorship

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

const (
	humanText  = "I think I'm really happy with how this turned out, honestly"
	formalText = "Furthermore, it is important to note that the implementation utilizes a comprehensive framework"
)

func TestScoreEmptyInput(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\t"} {
		if got := Score(in); got != 0 {
			t.Fatalf("expected 0 for %q, got %v", in, got)
		}
	}
}

func TestHumanTextScoresBelowFormalText(t *testing.T) {
	h := Score(humanText)
	m := Score(formalText)
	if h >= m {
		t.Fatalf("expected human text (%.3f) below formal text (%.3f)", h, m)
	}
	if m < 0.6 {
		t.Fatalf("expected formal text to cross the default ai threshold, got %.3f", m)
	}
}

func TestCategoryContribution(t *testing.T) {
	text := "it is important to note this"
	got := strongMachine.contribution(text, float64(len(strings.Fields(text))))
	want := 1.0 / 6.0 * 20
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected strong contribution %.4f, got %.4f", want, got)
	}

	got = moderateMachine.contribution("however moreover cats dogs", 4)
	if math.Abs(got-2.5) > 1e-9 {
		t.Fatalf("unexpected moderate contribution %.4f", got)
	}

	got = humanMarkers.contribution("yeah we tried", 3)
	// "yeah" is an interjection, "we" a first-person pronoun.
	if math.Abs(got-20) > 1e-9 {
		t.Fatalf("unexpected human contribution %.4f", got)
	}
}

func TestScoringTableTargets(t *testing.T) {
	want := map[string]target{
		"strong_machine_phrases":   machine,
		"moderate_machine_phrases": machine,
		"human_markers":            human,
	}
	for _, c := range scoringTable {
		if want[c.name] != c.target {
			t.Fatalf("category %s has target %s", c.name, c.target)
		}
	}
	if len(scoringTable) != len(want) {
		t.Fatalf("unexpected table size %d", len(scoringTable))
	}
}

func TestStructuralSignals(t *testing.T) {
	repetitive := "The model works. The data flows. The system scales. The team ships. The users benefit."
	if !repetitiveOpeners(repetitive) {
		t.Fatalf("expected repetitive openers")
	}
	if repetitiveOpeners("The model works. A cat sat. Rain fell.") {
		t.Fatalf("three sentences must not trigger repetitive openers")
	}
	if got := capitalTransitions("One. Two. three."); got < 0.49 || got > 0.51 {
		t.Fatalf("expected half capital transitions, got %.3f", got)
	}
	if !hasRepeatedWord("we went to the the store") {
		t.Fatalf("expected repeated word detection")
	}
	if hasRepeatedWord("we went to the store") {
		t.Fatalf("unexpected repeated word detection")
	}
}

func TestAnalyzeRecordsAdjustments(t *testing.T) {
	report := Analyze("anyway honestly the the plan was fine")
	if report.Adjustments > -0.49 {
		t.Fatalf("expected typo and connector adjustments, got %.3f", report.Adjustments)
	}
	names := map[string]bool{}
	for _, s := range report.Signals {
		names[s.Name] = true
	}
	for _, want := range []string{"repeated_word_typo", "conversational_connectors", "human_markers"} {
		if !names[want] {
			t.Fatalf("expected signal %s in %+v", want, report.Signals)
		}
	}
}

func TestCodeSyntaxSignal(t *testing.T) {
	code := `func main() { for i := 0; i < 10; i++ { if i > 5 { return } } }`
	report := Analyze(code)
	found := false
	for _, s := range report.Signals {
		if s.Name == "code_syntax_density" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected code syntax signal, got %+v", report.Signals)
	}
}

func TestPronounBonusTiers(t *testing.T) {
	high := Analyze("I wrote this myself over the weekend")
	if !hasSignal(high, "pronoun_density", pronounHighBonus) {
		t.Fatalf("expected high pronoun bonus, got %+v", high.Signals)
	}
	words := append([]string{"my"}, strings.Fields(strings.Repeat("word ", 49))...)
	low := Analyze(strings.Join(words, " "))
	if !hasSignal(low, "pronoun_density", pronounLowBonus) {
		t.Fatalf("expected low pronoun bonus, got %+v", low.Signals)
	}
}

func TestScoreProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("score is bounded", prop.ForAll(
		func(s string) bool {
			v := Score(s)
			return v >= 0 && v <= 1
		},
		gen.AnyString(),
	))
	properties.Property("score is deterministic", prop.ForAll(
		func(words []string) bool {
			text := strings.Join(words, " ")
			return Score(text) == Score(text)
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}

func signalValue(r Report, name string) (float64, bool) {
	for _, s := range r.Signals {
		if s.Name == name {
			return s.Value, true
		}
	}
	return 0, false
}

// filler returns n distinct neutral words.
func filler(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("item%d", i)
	}
	return strings.Join(words, " ")
}

func TestFormalVocabularyDensitySignal(t *testing.T) {
	// 1 of 20 words is exactly 5%, which must not trigger.
	atLimit := Analyze("however " + filler(19))
	if _, ok := signalValue(atLimit, "formal_vocabulary_density"); ok {
		t.Fatalf("density at the limit must not trigger, got %+v", atLimit.Signals)
	}
	above := Analyze("however moreover " + filler(18))
	if !hasSignal(above, "formal_vocabulary_density", formalDensityBonus) {
		t.Fatalf("expected formal vocabulary bonus %.1f, got %+v", formalDensityBonus, above.Signals)
	}
	if above.Machine <= atLimit.Machine+formalDensityBonus-1e-9 {
		t.Fatalf("expected bonus to raise machine total: %.3f vs %.3f", above.Machine, atLimit.Machine)
	}
}

func TestCasualLanguageSignal(t *testing.T) {
	report := Analyze("cool " + filler(9))
	got, ok := signalValue(report, "casual_language")
	if !ok {
		t.Fatalf("expected casual language signal, got %+v", report.Signals)
	}
	if want := 1.0 / 10.0 * casualWeight; math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected casual bonus %.3f, got %.3f", want, got)
	}
	if _, ok := signalValue(Analyze(filler(10)), "casual_language"); ok {
		t.Fatal("text without casual words must not carry the signal")
	}
}

func TestCapitalTransitionSignal(t *testing.T) {
	// 4 of 5 boundaries are capitalised: exactly 80%.
	atLimit := Analyze("Alpha one. Bravo two. Charlie three. Delta four. Echo five. foxtrot six.")
	if _, ok := signalValue(atLimit, "capital_transitions"); ok {
		t.Fatalf("80%% capital transitions must not trigger, got %+v", atLimit.Signals)
	}
	above := Analyze("Alpha one. Bravo two. Charlie three.")
	if !hasSignal(above, "capital_transitions", capitalTransitionBonus) {
		t.Fatalf("expected capital transition bonus %.1f, got %+v", capitalTransitionBonus, above.Signals)
	}
}

func TestRepetitiveOpenersSignal(t *testing.T) {
	report := Analyze("The model works. The data flows. The system scales. The team ships. The users benefit.")
	if !hasSignal(report, "repetitive_openers", repetitiveOpenerBonus) {
		t.Fatalf("expected repetitive openers bonus %.1f, got %+v", repetitiveOpenerBonus, report.Signals)
	}
	varied := Analyze("The model works. A cat sat. Rain fell. Birds sang.")
	if _, ok := signalValue(varied, "repetitive_openers"); ok {
		t.Fatalf("varied openers must not trigger, got %+v", varied.Signals)
	}
}

func TestTypographicApostrophes(t *testing.T) {
	straight := Analyze("I'm sure we don't know")
	curly := Analyze("I\u2019m sure we don\u2019t know")
	s, _ := signalValue(straight, "human_markers")
	c, _ := signalValue(curly, "human_markers")
	if math.Abs(s-c) > 1e-9 {
		t.Fatalf("curly apostrophes should count like straight ones: %.3f vs %.3f", c, s)
	}
	if !hasRepeatedWord("don\u2019t don\u2019t") {
		t.Fatal("expected curly-apostrophe words to be tokenised whole")
	}
}

func hasSignal(r Report, name string, value float64) bool {
	for _, s := range r.Signals {
		if s.Name == name && s.Value == value {
			return true
		}
	}
	return false
}
