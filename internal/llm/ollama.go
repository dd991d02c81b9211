package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"voxdialog/internal/reply"
)

// Ollama talks to the native /api/generate endpoint.
type Ollama struct {
	client *api.Client
}

func NewOllama(baseURL string, httpClient *http.Client) (*Ollama, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("ollama: parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("ollama: base url %q needs scheme and host", baseURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Ollama{client: api.NewClient(u, httpClient)}, nil
}

func (o *Ollama) Generate(ctx context.Context, model, prompt string) (string, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:  model,
		Prompt: prompt,
		Stream: &stream,
	}

	var response, thinking strings.Builder
	err := o.client.Generate(ctx, req, func(r api.GenerateResponse) error {
		response.WriteString(r.Response)
		thinking.WriteString(r.Thinking)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama: generate: %w", err)
	}

	raw := strings.TrimSpace(response.String())

	// thinking models may report reasoning separately; fold it back so the
	// reply parser sees one text with delimiters
	if t := strings.TrimSpace(thinking.String()); t != "" && !strings.Contains(raw, reply.CloseTag) {
		raw = reply.OpenTag + t + reply.CloseTag + raw
	}

	return raw, nil
}

// Unload asks the server to drop the model from memory right away.
func (o *Ollama) Unload(ctx context.Context, model string) error {
	stream := false
	req := &api.GenerateRequest{
		Model:     model,
		Stream:    &stream,
		KeepAlive: &api.Duration{Duration: 0},
	}

	if err := o.client.Generate(ctx, req, func(api.GenerateResponse) error { return nil }); err != nil {
		return fmt.Errorf("ollama: unload %s: %w", model, err)
	}
	return nil
}
