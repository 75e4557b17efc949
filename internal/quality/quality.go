package quality

import (
	"math"
	"regexp"
	"strings"
)

var sentenceEnd = regexp.MustCompile(`[.!?]+`)
var wordPattern = regexp.MustCompile(`[A-Za-z']+`)
var commentLine = regexp.MustCompile(`(?m)^\s*(//|#|/\*|\*|--)`)

// Filler vocabulary that pads prose without adding content.
var fillerWords = map[string]struct{}{
	"very": {}, "really": {}, "basically": {}, "actually": {}, "just": {}, "quite": {},
	"literally": {}, "essentially": {}, "simply": {}, "various": {}, "numerous": {},
	"things": {}, "stuff": {}, "somehow": {}, "overall": {}, "totally": {},
}

// A compact subset of common trigrams used as a proxy for repetitive language.
var commonTrigrams = map[string]struct{}{
	"one of the":    {},
	"as well as":    {},
	"in order to":   {},
	"a lot of":      {},
	"the rest of":   {},
	"it is a":       {},
	"this is a":     {},
	"there is a":    {},
	"at the same":   {},
	"the end of":    {},
	"in terms of":   {},
	"be able to":    {},
	"due to the":    {},
	"on the other":  {},
	"the fact that": {},
}

type Report struct {
	Score              int      `json:"score"`
	Monotone           bool     `json:"monotone"`
	MeanSentenceLength float64  `json:"mean_sentence_length"`
	SentenceLengthSD   float64  `json:"sentence_length_sd"`
	FillerDensity      float64  `json:"filler_density"`
	TrigramCommonness  float64  `json:"trigram_commonness"`
	CommentDensity     float64  `json:"comment_density,omitempty"`
	Flags              []string `json:"flags"`
}

// Analyze scores text (or code when isCode is set) on a 0-100 scale from
// statistical signals alone.
func Analyze(text string, isCode bool) Report {
	words := tokenize(text)
	if len(words) == 0 {
		return Report{Flags: []string{"Empty submission"}}
	}
	sd, mean := sentenceLengthStats(text)
	density := fillerDensity(words)
	trigrams := trigramCommonness(words)

	score := 100
	flags := make([]string, 0, 4)
	monotone := !isCode && sd < 4.0 && countSentences(text) > 3
	if monotone {
		score -= 15
		flags = append(flags, "Monotone: sentence-length variability is unusually low")
	}
	if density > 0.015 {
		score -= int(math.Min(30, density*1000))
		flags = append(flags, "High filler vocabulary density")
	}
	if trigrams >= 0.10 {
		score -= 15
		flags = append(flags, "Low originality: trigram profile is overly common")
	}
	if !isCode && mean > 35 {
		score -= 10
		flags = append(flags, "Long sentences: average sentence exceeds 35 words")
	}
	if len(words) < 30 {
		score -= 20
		flags = append(flags, "Very short submission")
	}

	report := Report{
		Monotone:           monotone,
		MeanSentenceLength: mean,
		SentenceLengthSD:   sd,
		FillerDensity:      density,
		TrigramCommonness:  trigrams,
		Flags:              flags,
	}
	if isCode {
		report.CommentDensity = commentDensity(text)
		if report.CommentDensity == 0 && strings.Count(text, "\n") >= 20 {
			score -= 10
			report.Flags = append(report.Flags, "No comments in a non-trivial source file")
		}
	}
	report.Score = clamp100(score)
	return report
}

func fillerDensity(words []string) float64 {
	if len(words) == 0 {
		return 0
	}
	matches := 0
	for _, w := range words {
		if _, ok := fillerWords[w]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(words))
}

func sentenceLengthStats(text string) (sd float64, mean float64) {
	sentences := sentenceEnd.Split(text, -1)
	lengths := make([]float64, 0, len(sentences))
	for _, s := range sentences {
		count := float64(len(tokenize(s)))
		if count > 0 {
			lengths = append(lengths, count)
		}
	}
	if len(lengths) == 0 {
		return 0, 0
	}

	total := 0.0
	for _, l := range lengths {
		total += l
	}
	mean = total / float64(len(lengths))
	if len(lengths) == 1 {
		return 0, mean
	}

	var variance float64
	for _, l := range lengths {
		d := l - mean
		variance += d * d
	}
	variance /= float64(len(lengths))
	return math.Sqrt(variance), mean
}

func countSentences(text string) int {
	n := 0
	for _, s := range sentenceEnd.Split(text, -1) {
		if strings.TrimSpace(s) != "" {
			n++
		}
	}
	return n
}

func trigramCommonness(words []string) float64 {
	if len(words) < 3 {
		return 0
	}
	total := 0
	common := 0
	for i := 0; i+2 < len(words); i++ {
		total++
		tri := words[i] + " " + words[i+1] + " " + words[i+2]
		if _, ok := commonTrigrams[tri]; ok {
			common++
		}
	}
	return float64(common) / float64(total)
}

func commentDensity(code string) float64 {
	lines := strings.Split(code, "\n")
	nonEmpty := 0
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			nonEmpty++
		}
	}
	if nonEmpty == 0 {
		return 0
	}
	return float64(len(commentLine.FindAllStringIndex(code, -1))) / float64(nonEmpty)
}

func tokenize(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

func clamp100(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
