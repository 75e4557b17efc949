package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"artifact_dashboard/internal/prompts"
)

type Ollama struct {
	client   *api.Client
	model    string
	maxChars int
}

// NewOllama talks to an Ollama server at endpoint. A nil httpClient uses
// http.DefaultClient; callers bound each request with their context.
func NewOllama(endpoint, model string, maxChars int, httpClient *http.Client) (*Ollama, error) {
	base, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid ollama endpoint %q", endpoint)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Ollama{client: api.NewClient(base, httpClient), model: model, maxChars: maxChars}, nil
}

func (o *Ollama) Name() string { return "ollama:" + o.model }

func (o *Ollama) Assess(ctx context.Context, req Request) (Assessment, error) {
	stream := false
	gen := &api.GenerateRequest{
		Model:   o.model,
		Prompt:  prompts.AssessmentPrompt(req.Kind, req.Title, req.Content, o.maxChars),
		Stream:  &stream,
		Format:  json.RawMessage(`"json"`),
		Options: map[string]any{"temperature": 0},
	}
	var reply strings.Builder
	err := o.client.Generate(ctx, gen, func(resp api.GenerateResponse) error {
		reply.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return Assessment{}, fmt.Errorf("ollama generate: %w", err)
	}
	a, err := ParseAssessment(reply.String())
	if err != nil {
		return Assessment{}, fmt.Errorf("ollama %s: %w", o.model, err)
	}
	return a, nil
}
