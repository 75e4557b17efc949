package workspace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"artifact_dashboard/internal/similarity"
)

// Report is the JSON summary written next to each analysed upload.
type Report struct {
	SubmissionID    string             `json:"submission_id"`
	Title           string             `json:"title"`
	Kind            string             `json:"kind"`
	WordCount       int                `json:"word_count"`
	QualityScore    int                `json:"quality_score"`
	AIScore         float64            `json:"ai_score"`
	PlagiarismScore float64            `json:"plagiarism_score"`
	AIFlag          bool               `json:"ai_flag"`
	PlagiarismFlag  bool               `json:"plagiarism_flag"`
	Provider        string             `json:"provider"`
	Summary         string             `json:"summary,omitempty"`
	Matches         []similarity.Match `json:"matches"`
	Flags           []string           `json:"flags"`
	GeneratedAt     time.Time          `json:"generated_at"`
	Analysis        any                `json:"analysis,omitempty"`
}

// StoreUpload keeps the original bytes of a submission under
// uploads/<id>/ and returns the written path.
func StoreUpload(root, id, name string, raw []byte) (string, error) {
	dir := filepath.Join(root, "uploads", sanitizeName(id, "unknown"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	path := filepath.Join(dir, sanitizeName(name, "source.txt"))
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return path, nil
}

// SaveReport writes reports/<submission id>.json, replacing any earlier one.
func SaveReport(root string, report Report) (string, error) {
	if report.Matches == nil {
		report.Matches = []similarity.Match{}
	}
	if report.Flags == nil {
		report.Flags = []string{}
	}
	raw, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	dir := filepath.Join(root, "reports")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(dir, sanitizeName(report.SubmissionID, "unknown")+".json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

func sanitizeName(name, fallback string) string {
	base := filepath.Base(strings.TrimSpace(name))
	base = strings.ReplaceAll(base, "..", "")
	if base == "" || base == "." || base == string(filepath.Separator) {
		return fallback
	}
	return base
}
