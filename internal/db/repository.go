package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"artifact_dashboard/internal/similarity"
)

var ErrNotFound = errors.New("not found")

type Submission struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Kind       string    `json:"kind"`
	SourceName string    `json:"source_name"`
	Content    string    `json:"content,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type Analysis struct {
	ID              string             `json:"id"`
	SubmissionID    string             `json:"submission_id"`
	QualityScore    int                `json:"quality_score"`
	AIScore         float64            `json:"ai_score"`
	PlagiarismScore float64            `json:"plagiarism_score"`
	AIFlag          bool               `json:"ai_flag"`
	PlagiarismFlag  bool               `json:"plagiarism_flag"`
	Provider        string             `json:"provider"`
	Summary         string             `json:"summary"`
	Matches         []similarity.Match `json:"matches"`
	Flags           []string           `json:"flags"`
	Details         json.RawMessage    `json:"details,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}

// AnalysisRow is an analysis joined with its submission title for listings.
type AnalysisRow struct {
	Analysis
	Title string `json:"title"`
	Kind  string `json:"kind"`
}

type Stats struct {
	Submissions       int     `json:"submissions"`
	Analyzed          int     `json:"analyzed"`
	PlagiarismFlagged int     `json:"plagiarism_flagged"`
	AIFlagged         int     `json:"ai_flagged"`
	AvgQuality        float64 `json:"avg_quality"`
	AvgAIScore        float64 `json:"avg_ai_score"`
	AvgPlagiarism     float64 `json:"avg_plagiarism"`
}

func (s *Store) CreateSubmission(ctx context.Context, sub Submission) (Submission, error) {
	if strings.TrimSpace(sub.ID) == "" {
		sub.ID = uuid.NewString()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	_, err := s.conn.ExecContext(ctx, s.rebind(
		`INSERT INTO submissions(id, title, kind, source_name, content, created_at) VALUES(?,?,?,?,?,?)`),
		sub.ID, sub.Title, sub.Kind, sub.SourceName, sub.Content, formatTime(sub.CreatedAt),
	)
	if err != nil {
		return Submission{}, fmt.Errorf("insert submission: %w", err)
	}
	return sub, nil
}

func (s *Store) GetSubmission(ctx context.Context, id string) (Submission, error) {
	row := s.conn.QueryRowContext(ctx, s.rebind(
		`SELECT id, title, kind, source_name, content, created_at FROM submissions WHERE id = ?`), id)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Submission{}, fmt.Errorf("submission %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Submission{}, fmt.Errorf("scan submission: %w", err)
	}
	return sub, nil
}

// ListSubmissions returns the newest submissions first, without content.
func (s *Store) ListSubmissions(ctx context.Context, limit int) ([]Submission, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.conn.QueryContext(ctx, s.rebind(
		`SELECT id, title, kind, source_name, '', created_at FROM submissions ORDER BY created_at DESC, id LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	out := []Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *Store) SubmissionIDs(ctx context.Context) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT id FROM submissions ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list submission ids: %w", err)
	}
	defer rows.Close()
	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan submission id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Corpus returns every stored submission except excludeID as similarity
// input, oldest first.
func (s *Store) Corpus(ctx context.Context, excludeID string) ([]similarity.CorpusItem, error) {
	rows, err := s.conn.QueryContext(ctx, s.rebind(
		`SELECT id, title, content FROM submissions WHERE id <> ? ORDER BY created_at, id`), excludeID)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	defer rows.Close()

	items := []similarity.CorpusItem{}
	for rows.Next() {
		var item similarity.CorpusItem
		if err := rows.Scan(&item.ID, &item.Label, &item.Content); err != nil {
			return nil, fmt.Errorf("scan corpus item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// SaveAnalysis replaces the stored analysis for the submission.
func (s *Store) SaveAnalysis(ctx context.Context, a Analysis) (Analysis, error) {
	if strings.TrimSpace(a.ID) == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if a.Matches == nil {
		a.Matches = []similarity.Match{}
	}
	if a.Flags == nil {
		a.Flags = []string{}
	}
	matches, err := json.Marshal(a.Matches)
	if err != nil {
		return Analysis{}, fmt.Errorf("marshal matches: %w", err)
	}
	flags, err := json.Marshal(a.Flags)
	if err != nil {
		return Analysis{}, fmt.Errorf("marshal flags: %w", err)
	}
	details := string(a.Details)
	if details == "" {
		details = "{}"
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return Analysis{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM analyses WHERE submission_id = ?`), a.SubmissionID); err != nil {
		return Analysis{}, fmt.Errorf("clear analysis: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.rebind(
		`INSERT INTO analyses(id, submission_id, quality_score, ai_score, plagiarism_score, ai_flag, plagiarism_flag, provider, summary, matches, flags, details, created_at)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)`),
		a.ID, a.SubmissionID, a.QualityScore, a.AIScore, a.PlagiarismScore, boolInt(a.AIFlag), boolInt(a.PlagiarismFlag),
		a.Provider, a.Summary, string(matches), string(flags), details, formatTime(a.CreatedAt),
	); err != nil {
		return Analysis{}, fmt.Errorf("insert analysis: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Analysis{}, fmt.Errorf("commit tx: %w", err)
	}
	a.Details = json.RawMessage(details)
	return a, nil
}

func (s *Store) GetAnalysis(ctx context.Context, submissionID string) (Analysis, error) {
	row := s.conn.QueryRowContext(ctx, s.rebind(
		`SELECT `+analysisColumns+` FROM analyses WHERE submission_id = ?`), submissionID)
	a, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Analysis{}, fmt.Errorf("analysis for %s: %w", submissionID, ErrNotFound)
	}
	if err != nil {
		return Analysis{}, fmt.Errorf("scan analysis: %w", err)
	}
	return a, nil
}

func (s *Store) RecentAnalyses(ctx context.Context, limit int) ([]AnalysisRow, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.conn.QueryContext(ctx, s.rebind(
		`SELECT `+prefixed("a.", analysisColumns)+`, s.title, s.kind
		 FROM analyses a JOIN submissions s ON s.id = a.submission_id
		 ORDER BY a.created_at DESC, a.id LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	out := []AnalysisRow{}
	for rows.Next() {
		var r AnalysisRow
		a, err := scanAnalysis(rows, &r.Title, &r.Kind)
		if err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		r.Analysis = a
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions`).Scan(&st.Submissions); err != nil {
		return Stats{}, fmt.Errorf("count submissions: %w", err)
	}
	row := s.conn.QueryRowContext(ctx, `SELECT COUNT(*),
		COALESCE(SUM(plagiarism_flag), 0), COALESCE(SUM(ai_flag), 0),
		COALESCE(AVG(quality_score), 0.0), COALESCE(AVG(ai_score), 0.0), COALESCE(AVG(plagiarism_score), 0.0)
		FROM analyses`)
	if err := row.Scan(&st.Analyzed, &st.PlagiarismFlagged, &st.AIFlagged, &st.AvgQuality, &st.AvgAIScore, &st.AvgPlagiarism); err != nil {
		return Stats{}, fmt.Errorf("aggregate analyses: %w", err)
	}
	return st, nil
}

func (s *Store) CountRows(ctx context.Context, table string) (int, error) {
	switch table {
	case "submissions", "analyses":
	default:
		return 0, fmt.Errorf("unknown table %q", table)
	}
	row := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("scan count: %w", err)
	}
	return count, nil
}

const analysisColumns = `id, submission_id, quality_score, ai_score, plagiarism_score, ai_flag, plagiarism_flag, provider, summary, matches, flags, details, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row scanner) (Submission, error) {
	var sub Submission
	var created string
	if err := row.Scan(&sub.ID, &sub.Title, &sub.Kind, &sub.SourceName, &sub.Content, &created); err != nil {
		return Submission{}, err
	}
	sub.CreatedAt = parseTime(created)
	return sub, nil
}

func scanAnalysis(row scanner, extra ...any) (Analysis, error) {
	var a Analysis
	var aiFlag, plagFlag int
	var matches, flags, details, created string
	dest := []any{&a.ID, &a.SubmissionID, &a.QualityScore, &a.AIScore, &a.PlagiarismScore, &aiFlag, &plagFlag,
		&a.Provider, &a.Summary, &matches, &flags, &details, &created}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return Analysis{}, err
	}
	a.AIFlag = aiFlag != 0
	a.PlagiarismFlag = plagFlag != 0
	a.CreatedAt = parseTime(created)
	a.Details = json.RawMessage(details)
	if err := json.Unmarshal([]byte(matches), &a.Matches); err != nil {
		return Analysis{}, fmt.Errorf("decode matches: %w", err)
	}
	if err := json.Unmarshal([]byte(flags), &a.Flags); err != nil {
		return Analysis{}, fmt.Errorf("decode flags: %w", err)
	}
	return a, nil
}

func prefixed(prefix, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = prefix + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// timeLayout is fixed width so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
