package similarity

import (
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestSimilarityProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("score is bounded", prop.ForAll(
		func(a, b string) bool {
			s := Similarity(a, b)
			return s >= 0 && s <= 1
		},
		gen.AnyString(),
		gen.AnyString(),
	))

	properties.Property("score is symmetric", prop.ForAll(
		func(a, b string) bool {
			return Similarity(a, b) == Similarity(b, a)
		},
		gen.AnyString(),
		gen.AnyString(),
	))

	properties.Property("self match is maximal", prop.ForAll(
		func(words []string) bool {
			text := strings.Join(words, " ")
			if strings.TrimSpace(text) == "" {
				return true
			}
			return Similarity(text, text) > 0.999999999
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.Property("blank text scores zero", prop.ForAll(
		func(blank, other string) bool {
			return Similarity(blank, other) == 0 && Similarity(blank, blank) == 0
		},
		gen.SliceOf(gen.IntRange(0, 3)).Map(func(picks []int) string {
			var b strings.Builder
			for _, p := range picks {
				b.WriteString([]string{" ", "\t", "\n", "\r"}[p])
			}
			return b.String()
		}),
		gen.AlphaString(),
	))

	properties.Property("local never exceeds top k and honours threshold", prop.ForAll(
		func(candidate string, contents []string, topK int, threshold float64) bool {
			corpus := make([]CorpusItem, len(contents))
			for i, c := range contents {
				corpus[i] = CorpusItem{ID: fmt.Sprintf("c%d", i), Content: c}
			}
			res, err := Local(candidate, corpus, Options{Threshold: threshold, TopK: topK})
			if err != nil {
				return false
			}
			if len(res.Matches) > topK {
				return false
			}
			for _, m := range res.Matches {
				if m.SimilarityScore < threshold || m.SimilarityScore > res.MaxScore {
					return false
				}
			}
			return res.MaxScore >= 0 && res.MaxScore <= 1
		},
		gen.AlphaString(),
		gen.SliceOf(gen.AlphaString()),
		gen.IntRange(1, 5),
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}
