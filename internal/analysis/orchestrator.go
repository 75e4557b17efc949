// Package analysis scores a stored submission. Local heuristics always run;
// a configured language model provider may refine them, and its failure
// never fails the analysis.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"artifact_dashboard/internal/authorship"
	"artifact_dashboard/internal/db"
	"artifact_dashboard/internal/ingest"
	"artifact_dashboard/internal/llm"
	"artifact_dashboard/internal/quality"
	"artifact_dashboard/internal/similarity"
	"artifact_dashboard/internal/workspace"
)

const ProviderLocal = "local"

var ErrEmptySubmission = errors.New("submission has no content")

type Store interface {
	CreateSubmission(ctx context.Context, sub db.Submission) (db.Submission, error)
	GetSubmission(ctx context.Context, id string) (db.Submission, error)
	Corpus(ctx context.Context, excludeID string) ([]similarity.CorpusItem, error)
	SaveAnalysis(ctx context.Context, a db.Analysis) (db.Analysis, error)
}

type Policy struct {
	PlagiarismThreshold float64
	AIThreshold         float64
	SimilarityThreshold float64
	TopK                int
	LLMTimeout          time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		PlagiarismThreshold: 0.3,
		AIThreshold:         0.6,
		SimilarityThreshold: 0.3,
		TopK:                10,
		LLMTimeout:          90 * time.Second,
	}
}

type LocalScores struct {
	Similarity similarity.Result `json:"similarity"`
	Authorship authorship.Report `json:"authorship"`
	Quality    quality.Report    `json:"quality"`
}

// Record is a persisted analysis plus the evidence behind it.
type Record struct {
	db.Analysis
	WordCount int             `json:"word_count"`
	Local     LocalScores     `json:"local"`
	LLM       *llm.Assessment `json:"llm,omitempty"`
	LLMError  string          `json:"llm_error,omitempty"`
}

type details struct {
	WordCount int             `json:"word_count"`
	Local     LocalScores     `json:"local"`
	LLM       *llm.Assessment `json:"llm,omitempty"`
	LLMError  string          `json:"llm_error,omitempty"`
}

type NewSubmission struct {
	Title      string
	Kind       string
	SourceName string
	Content    string
}

type Orchestrator struct {
	store    Store
	provider llm.Provider
	policy   Policy
	logger   *zap.Logger

	// ReportRoot, when set, receives a JSON report per analysis.
	ReportRoot string
}

// New builds an orchestrator. provider may be nil for local-only analysis.
func New(store Store, provider llm.Provider, policy Policy, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{store: store, provider: provider, policy: policy, logger: logger}
}

// Submit normalises and stores a new submission, then analyses it.
func (o *Orchestrator) Submit(ctx context.Context, in NewSubmission) (Record, error) {
	kind := in.Kind
	if kind != ingest.KindCode {
		kind = ingest.KindText
	}
	content := ingest.Normalize(in.Content, kind)
	if strings.TrimSpace(content) == "" {
		return Record{}, ErrEmptySubmission
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = strings.TrimSpace(in.SourceName)
	}
	if title == "" {
		title = "Untitled"
	}
	sub, err := o.store.CreateSubmission(ctx, db.Submission{
		Title:      title,
		Kind:       kind,
		SourceName: in.SourceName,
		Content:    content,
	})
	if err != nil {
		return Record{}, err
	}
	return o.Analyze(ctx, sub.ID)
}

func (o *Orchestrator) Analyze(ctx context.Context, submissionID string) (Record, error) {
	started := time.Now()
	sub, err := o.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return Record{}, err
	}
	corpus, err := o.store.Corpus(ctx, sub.ID)
	if err != nil {
		return Record{}, err
	}

	sim, err := similarity.Local(sub.Content, corpus, similarity.Options{
		Threshold: o.policy.SimilarityThreshold,
		TopK:      o.policy.TopK,
	})
	if err != nil {
		return Record{}, fmt.Errorf("similarity for %s: %w", sub.ID, err)
	}
	rec := Record{
		WordCount: len(strings.Fields(sub.Content)),
		Local: LocalScores{
			Similarity: sim,
			Authorship: authorship.Analyze(sub.Content),
			Quality:    quality.Analyze(sub.Content, sub.Kind == ingest.KindCode),
		},
	}

	if o.provider != nil {
		assessment, err := o.assess(ctx, sub)
		if err != nil {
			o.logger.Warn("llm assessment failed, keeping local scores",
				zap.String("submission_id", sub.ID),
				zap.String("provider", o.provider.Name()),
				zap.Error(err),
			)
			rec.LLMError = err.Error()
		} else {
			rec.LLM = &assessment
		}
	}

	rec.Analysis = o.merge(sub, rec)
	raw, err := json.Marshal(details{WordCount: rec.WordCount, Local: rec.Local, LLM: rec.LLM, LLMError: rec.LLMError})
	if err != nil {
		return Record{}, fmt.Errorf("marshal analysis details: %w", err)
	}
	rec.Details = raw

	saved, err := o.store.SaveAnalysis(ctx, rec.Analysis)
	if err != nil {
		return Record{}, err
	}
	rec.Analysis = saved

	if o.ReportRoot != "" {
		if _, err := workspace.SaveReport(o.ReportRoot, report(sub, rec)); err != nil {
			o.logger.Warn("write report", zap.String("submission_id", sub.ID), zap.Error(err))
		}
	}

	o.logger.Info("analysis complete",
		zap.String("submission_id", sub.ID),
		zap.String("provider", rec.Provider),
		zap.Int("quality", rec.QualityScore),
		zap.Float64("ai_score", rec.AIScore),
		zap.Float64("plagiarism_score", rec.PlagiarismScore),
		zap.Duration("elapsed", time.Since(started)),
	)
	return rec, nil
}

func (o *Orchestrator) assess(ctx context.Context, sub db.Submission) (llm.Assessment, error) {
	if o.policy.LLMTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.policy.LLMTimeout)
		defer cancel()
	}
	return o.provider.Assess(ctx, llm.Request{Kind: sub.Kind, Title: sub.Title, Content: sub.Content})
}

func (o *Orchestrator) merge(sub db.Submission, rec Record) db.Analysis {
	a := db.Analysis{
		SubmissionID:    sub.ID,
		QualityScore:    rec.Local.Quality.Score,
		AIScore:         rec.Local.Authorship.Score,
		PlagiarismScore: rec.Local.Similarity.MaxScore,
		Provider:        ProviderLocal,
		Matches:         rec.Local.Similarity.Matches,
	}
	if rec.LLM != nil {
		a.QualityScore = rec.LLM.QualityScore
		a.AIScore = rec.LLM.AIScore
		a.PlagiarismScore = math.Max(a.PlagiarismScore, rec.LLM.PlagiarismScore)
		a.Provider = o.provider.Name()
		a.Summary = rec.LLM.Summary
	}
	if a.Summary == "" {
		a.Summary = fmt.Sprintf("Quality %d/100, AI likelihood %.2f, closest match %.2f, %d matches above threshold.",
			a.QualityScore, a.AIScore, rec.Local.Similarity.MaxScore, len(rec.Local.Similarity.Matches))
	}

	a.PlagiarismFlag = a.PlagiarismScore > o.policy.PlagiarismThreshold
	a.AIFlag = a.AIScore > o.policy.AIThreshold

	flags := []string{}
	if a.PlagiarismFlag {
		flags = append(flags, fmt.Sprintf("Possible plagiarism (%.2f > %.2f)", a.PlagiarismScore, o.policy.PlagiarismThreshold))
	}
	if a.AIFlag {
		flags = append(flags, fmt.Sprintf("Likely machine generated (%.2f > %.2f)", a.AIScore, o.policy.AIThreshold))
	}
	flags = append(flags, rec.Local.Quality.Flags...)
	if rec.LLM != nil {
		flags = append(flags, rec.LLM.Issues...)
	}
	a.Flags = flags
	return a
}

func report(sub db.Submission, rec Record) workspace.Report {
	return workspace.Report{
		SubmissionID:    sub.ID,
		Title:           sub.Title,
		Kind:            sub.Kind,
		WordCount:       rec.WordCount,
		QualityScore:    rec.QualityScore,
		AIScore:         rec.AIScore,
		PlagiarismScore: rec.PlagiarismScore,
		AIFlag:          rec.AIFlag,
		PlagiarismFlag:  rec.PlagiarismFlag,
		Provider:        rec.Provider,
		Summary:         rec.Summary,
		Matches:         rec.Matches,
		Flags:           rec.Flags,
		GeneratedAt:     rec.CreatedAt,
		Analysis:        rec.Local,
	}
}
