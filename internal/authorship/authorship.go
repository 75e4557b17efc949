// Package authorship estimates how likely a text is to be machine generated
// from lexical and structural patterns. Scores are in [0,1]; higher means more
// machine-like. The scorer is deterministic and performs no I/O.
package authorship

import (
	"math"
	"regexp"
	"strings"
	"unicode"
)

type target int

const (
	machine target = iota
	human
)

func (t target) String() string {
	if t == human {
		return "human"
	}
	return "machine"
}

// category is one row of the scoring table: every pattern's match count is
// divided by the word count and multiplied by weight.
type category struct {
	name     string
	weight   float64
	target   target
	patterns []*regexp.Regexp
}

var (
	strongMachine = category{
		name:   "strong_machine_phrases",
		weight: 20,
		target: machine,
		patterns: compile(
			`it is important to note`,
			`it is worth noting`,
			`it should be noted`,
			`plays? a (crucial|pivotal|vital|key) role`,
			`in today'?s (fast-paced|digital|modern) (world|landscape|age)`,
			`delve (into|deeper)`,
			`a testament to`,
			`in the realm of`,
			`navigat(e|ing) the complexities`,
			`in conclusion`,
			`in summary`,
			`a wide (range|array|variety) of`,
			`serves as a (powerful|valuable|reminder)`,
			`(this|the) (article|essay|response) (explores|examines|discusses)`,
		),
	}
	moderateMachine = category{
		name:   "moderate_machine_phrases",
		weight: 5,
		target: machine,
		patterns: compile(
			`however`,
			`furthermore`,
			`moreover`,
			`additionally`,
			`consequently`,
			`therefore`,
			`nevertheless`,
			`subsequently`,
			`utili[sz](e|es|ed|ing)`,
			`comprehensive`,
			`facilitat(e|es|ed|ing)`,
			`leverag(e|es|ed|ing)`,
			`robust`,
			`seamless(ly)?`,
			`enhanc(e|es|ed|ing)`,
			`optimal`,
			`paramount`,
			`multifaceted`,
		),
	}
	humanMarkers = category{
		name:   "human_markers",
		weight: 30,
		target: human,
		patterns: []*regexp.Regexp{
			firstPersonPattern,
			contractionPattern,
			regexp.MustCompile(`(?i)\b(lol|haha|hmm|ugh|oops|wow|yeah|nah|meh|btw|omg)\b`),
			regexp.MustCompile(`(?i)\b(maybe|probably|i guess|i think|i feel|sort of|kind of|not sure)\b`),
			connectorPattern,
		},
	}

	scoringTable = []category{strongMachine, moderateMachine, humanMarkers}
)

var (
	firstPersonPattern = regexp.MustCompile(`(?i)\b(i|me|my|mine|myself|we|us|our|ours)\b`)
	contractionPattern = regexp.MustCompile(`(?i)\b[a-z]+['’](m|re|ve|ll|d|t|s)\b`)
	connectorPattern   = regexp.MustCompile(`(?i)\b(anyway|honestly|basically|you know|i mean|so yeah|like i said|to be fair)\b`)
	casualPattern      = regexp.MustCompile(`(?i)\b(actually|kinda|gonna|wanna|sorta|gotta|totally|literally|stuff|super|pretty much|cool)\b`)
	codePattern        = regexp.MustCompile(`\b(function|const|let|var|def|func|class|return|import|if|else|elif|for|while|switch|case)\b|=>|[{};]`)
	sentenceEnd        = regexp.MustCompile(`[.!?]+`)
	sentenceBoundary   = regexp.MustCompile(`[.!?]+\s+(\S)`)
	letters            = regexp.MustCompile(`[\p{L}'’]+`)
)

const (
	pronounHighDensity     = 0.03
	pronounLowDensity      = 0.015
	pronounHighBonus       = 0.6
	pronounLowBonus        = 0.3
	casualWeight           = 40.0
	repetitiveOpenerRatio  = 0.4
	repetitiveOpenerMin    = 3
	repetitiveOpenerBonus  = 0.3
	capitalTransitionRatio = 0.8
	capitalTransitionBonus = 0.2
	formalDensityTrigger   = 0.05
	formalDensityBonus     = 0.3
	codeDensityTrigger     = 0.10
	codeDensityBonus       = 0.4
	repeatedWordPenalty    = -0.2
	connectorDensityCap    = 0.02
	connectorPenalty       = -0.3
	humanScale             = 0.5
)

type Signal struct {
	Name   string  `json:"name"`
	Target string  `json:"target"`
	Value  float64 `json:"value"`
}

type Report struct {
	Score       float64  `json:"score"`
	WordCount   int      `json:"word_count"`
	Machine     float64  `json:"machine"`
	Human       float64  `json:"human"`
	Adjustments float64  `json:"adjustments"`
	Signals     []Signal `json:"signals"`
}

// Score returns the machine-authorship likelihood of text.
func Score(text string) float64 {
	return Analyze(text).Score
}

func Analyze(text string) Report {
	words := strings.Fields(text)
	report := Report{WordCount: len(words), Signals: []Signal{}}
	if len(words) == 0 {
		return report
	}
	total := float64(len(words))
	add := func(name string, t target, v float64) {
		if v == 0 {
			return
		}
		switch t {
		case human:
			report.Human += v
		default:
			report.Machine += v
		}
		report.Signals = append(report.Signals, Signal{Name: name, Target: t.String(), Value: v})
	}
	adjust := func(name string, v float64) {
		report.Adjustments += v
		report.Signals = append(report.Signals, Signal{Name: name, Target: "adjustment", Value: v})
	}

	for _, c := range scoringTable {
		add(c.name, c.target, c.contribution(text, total))
	}

	pronounDensity := countMatches(firstPersonPattern, text) / total
	switch {
	case pronounDensity > pronounHighDensity:
		add("pronoun_density", human, pronounHighBonus)
	case pronounDensity > pronounLowDensity:
		add("pronoun_density", human, pronounLowBonus)
	}
	add("casual_language", human, countMatches(casualPattern, text)/total*casualWeight)

	if repetitiveOpeners(text) {
		add("repetitive_openers", machine, repetitiveOpenerBonus)
	}
	if capitalTransitions(text) > capitalTransitionRatio {
		add("capital_transitions", machine, capitalTransitionBonus)
	}
	if moderateMachine.matches(text)/total > formalDensityTrigger {
		add("formal_vocabulary_density", machine, formalDensityBonus)
	}
	if countMatches(codePattern, text)/total > codeDensityTrigger {
		add("code_syntax_density", machine, codeDensityBonus)
	}

	if hasRepeatedWord(text) {
		adjust("repeated_word_typo", repeatedWordPenalty)
	}
	if countMatches(connectorPattern, text)/total > connectorDensityCap {
		adjust("conversational_connectors", connectorPenalty)
	}

	report.Score = clamp01(report.Machine - humanScale*report.Human + report.Adjustments)
	return report
}

func (c category) contribution(text string, total float64) float64 {
	sum := 0.0
	for _, p := range c.patterns {
		sum += countMatches(p, text) / total * c.weight
	}
	return sum
}

func (c category) matches(text string) float64 {
	n := 0.0
	for _, p := range c.patterns {
		n += countMatches(p, text)
	}
	return n
}

func repetitiveOpeners(text string) bool {
	openers := []string{}
	for _, s := range sentenceEnd.Split(text, -1) {
		fields := strings.Fields(s)
		if len(fields) == 0 {
			continue
		}
		openers = append(openers, strings.ToLower(fields[0]))
	}
	if len(openers) <= repetitiveOpenerMin {
		return false
	}
	unique := map[string]struct{}{}
	for _, o := range openers {
		unique[o] = struct{}{}
	}
	return float64(len(unique))/float64(len(openers)) < repetitiveOpenerRatio
}

// capitalTransitions is the share of sentence boundaries whose next
// non-space character is an upper-case letter.
func capitalTransitions(text string) float64 {
	boundaries := sentenceBoundary.FindAllStringSubmatch(text, -1)
	if len(boundaries) == 0 {
		return 0
	}
	capitals := 0
	for _, b := range boundaries {
		r := []rune(b[1])
		if len(r) > 0 && unicode.IsUpper(r[0]) {
			capitals++
		}
	}
	return float64(capitals) / float64(len(boundaries))
}

func hasRepeatedWord(text string) bool {
	words := letters.FindAllString(strings.ToLower(text), -1)
	for i := 1; i < len(words); i++ {
		if words[i] == words[i-1] {
			return true
		}
	}
	return false
}

func countMatches(p *regexp.Regexp, text string) float64 {
	return float64(len(p.FindAllStringIndex(text, -1)))
}

func compile(phrases ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(phrases))
	for _, p := range phrases {
		out = append(out, regexp.MustCompile(`(?i)\b`+p+`\b`))
	}
	return out
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
