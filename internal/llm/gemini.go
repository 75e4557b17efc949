package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"artifact_dashboard/internal/prompts"
)

type Gemini struct {
	client   *genai.Client
	model    string
	maxChars int
}

func NewGemini(ctx context.Context, apiKey, model string, maxChars int) (*Gemini, error) {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Gemini{client: client, model: model, maxChars: maxChars}, nil
}

func (g *Gemini) Name() string { return "gemini:" + g.model }

func (g *Gemini) Assess(ctx context.Context, req Request) (Assessment, error) {
	prompt := prompts.AssessmentPrompt(req.Kind, req.Title, req.Content, g.maxChars)
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0),
	})
	if err != nil {
		return Assessment{}, fmt.Errorf("gemini generate: %w", err)
	}
	a, err := ParseAssessment(resp.Text())
	if err != nil {
		return Assessment{}, fmt.Errorf("gemini %s: %w", g.model, err)
	}
	return a, nil
}
