package llm

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed assessment.schema.json
var assessmentSchema string

const schemaURL = "https://artifact-dashboard.local/assessment.schema.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(schemaURL, strings.NewReader(assessmentSchema)); err != nil {
			schemaErr = fmt.Errorf("load assessment schema: %w", err)
			return
		}
		compiledSchema, schemaErr = c.Compile(schemaURL)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile assessment schema: %w", schemaErr)
		}
	})
	return compiledSchema, schemaErr
}

// ExtractJSONObject returns the first balanced {...} object in s, unwrapping
// a fenced markdown block first. It returns "" when none is found.
func ExtractJSONObject(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.HasPrefix(s, "```") {
		lines := strings.Split(s, "\n")
		if len(lines) >= 3 {
			s = strings.Join(lines[1:len(lines)-1], "\n")
		}
	}
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// ParseAssessment extracts, validates and clamps a model reply.
func ParseAssessment(reply string) (Assessment, error) {
	obj := ExtractJSONObject(reply)
	if obj == "" {
		return Assessment{}, fmt.Errorf("no json object in model reply")
	}
	var doc any
	if err := json.Unmarshal([]byte(obj), &doc); err != nil {
		return Assessment{}, fmt.Errorf("decode model reply: %w", err)
	}
	schema, err := loadSchema()
	if err != nil {
		return Assessment{}, err
	}
	if err := schema.Validate(doc); err != nil {
		return Assessment{}, fmt.Errorf("model reply failed schema: %w", err)
	}

	var raw struct {
		QualityScore    float64  `json:"quality_score"`
		AIScore         float64  `json:"ai_score"`
		PlagiarismScore float64  `json:"plagiarism_score"`
		Summary         string   `json:"summary"`
		Strengths       []string `json:"strengths"`
		Issues          []string `json:"issues"`
	}
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return Assessment{}, fmt.Errorf("decode assessment: %w", err)
	}
	a := Assessment{
		QualityScore:    int(math.Round(clamp(raw.QualityScore, 0, 100))),
		AIScore:         clamp(raw.AIScore, 0, 1),
		PlagiarismScore: clamp(raw.PlagiarismScore, 0, 1),
		Summary:         strings.TrimSpace(raw.Summary),
		Strengths:       raw.Strengths,
		Issues:          raw.Issues,
	}
	if a.Strengths == nil {
		a.Strengths = []string{}
	}
	if a.Issues == nil {
		a.Issues = []string{}
	}
	return a, nil
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
