// Package similarity scores textual overlap between a candidate submission and
// previously stored submissions without any model assistance.
package similarity

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	jaccardWeight = 0.7
	overlapWeight = 0.3
	maxWindow     = 20
	excerptRunes  = 200
)

type CorpusItem struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Content string `json:"content"`
}

type Match struct {
	SourceID        string  `json:"source_id"`
	Label           string  `json:"label"`
	SimilarityScore float64 `json:"similarity_score"`
	Excerpt         string  `json:"excerpt"`
}

type Result struct {
	MaxScore float64 `json:"max_score"`
	Matches  []Match `json:"matches"`
}

type Options struct {
	Threshold float64
	TopK      int
}

func DefaultOptions() Options {
	return Options{Threshold: 0.3, TopK: 10}
}

// InvalidInputError reports a corpus or option value the scorer refuses to
// coerce.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid similarity input %s: %s", e.Field, e.Reason)
}

// Local compares candidate against every corpus item and returns the highest
// score seen plus the retained matches, best first.
func Local(candidate string, corpus []CorpusItem, opts Options) (Result, error) {
	if math.IsNaN(opts.Threshold) || opts.Threshold < 0 || opts.Threshold > 1 {
		return Result{}, &InvalidInputError{Field: "threshold", Reason: fmt.Sprintf("%v is outside [0,1]", opts.Threshold)}
	}
	if opts.TopK < 1 {
		return Result{}, &InvalidInputError{Field: "top_k", Reason: fmt.Sprintf("%d is below 1", opts.TopK)}
	}
	for i, item := range corpus {
		if strings.TrimSpace(item.ID) == "" {
			return Result{}, &InvalidInputError{Field: fmt.Sprintf("corpus[%d].id", i), Reason: "missing"}
		}
	}

	result := Result{Matches: []Match{}}
	for _, item := range corpus {
		score := Similarity(candidate, item.Content)
		if score > result.MaxScore {
			result.MaxScore = score
		}
		if score < opts.Threshold {
			continue
		}
		label := strings.TrimSpace(item.Label)
		if label == "" {
			label = item.ID
		}
		result.Matches = append(result.Matches, Match{
			SourceID:        item.ID,
			Label:           label,
			SimilarityScore: score,
			Excerpt:         excerpt(item.Content, excerptRunes),
		})
	}

	sort.SliceStable(result.Matches, func(i, j int) bool {
		return result.Matches[i].SimilarityScore > result.Matches[j].SimilarityScore
	})
	if len(result.Matches) > opts.TopK {
		result.Matches = result.Matches[:opts.TopK]
	}
	return result, nil
}

// Similarity is the weighted blend of word-set Jaccard and verbatim substring
// overlap. It is symmetric in its arguments.
func Similarity(a, b string) float64 {
	return clamp01(jaccardWeight*Jaccard(a, b) + overlapWeight*SubstringOverlap(a, b))
}

func Jaccard(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}
	inter := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union <= 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// SubstringOverlap slides a window of up to 20 runes across the shorter text
// and returns the fraction of offsets whose window appears verbatim in the
// longer one. A shorter text that fits in a single window scores 1 when it is
// wholly contained in the longer text and 0 otherwise. A blank shorter text
// scores 0, matching its empty word set.
func SubstringOverlap(a, b string) float64 {
	shorter, longer := order([]rune(a), []rune(b))
	if strings.TrimSpace(string(shorter)) == "" {
		return 0
	}
	windowLen := min(maxWindow, len(shorter))
	if len(shorter) <= windowLen {
		if strings.Contains(string(longer), string(shorter)) {
			return 1
		}
		return 0
	}

	windows := make(map[string]struct{}, len(longer))
	for i := 0; i+windowLen <= len(longer); i++ {
		windows[string(longer[i:i+windowLen])] = struct{}{}
	}
	positions := len(shorter) - windowLen + 1
	matched := 0
	for i := 0; i < positions; i++ {
		if _, ok := windows[string(shorter[i:i+windowLen])]; ok {
			matched++
		}
	}
	return clamp01(float64(matched) / float64(positions))
}

// order returns the shorter text first. Equal lengths fall back to lexical
// order so SubstringOverlap(a, b) == SubstringOverlap(b, a).
func order(a, b []rune) (shorter, longer []rune) {
	switch {
	case len(a) < len(b):
		return a, b
	case len(b) < len(a):
		return b, a
	case string(a) <= string(b):
		return a, b
	default:
		return b, a
	}
}

func wordSet(text string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(text))
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		out[f] = struct{}{}
	}
	return out
}

func excerpt(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	return string([]rune(text)[:n])
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
