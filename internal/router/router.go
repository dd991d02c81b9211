// Package router decides per turn whether live web data is worth fetching.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	log "log/slog"
	"strings"

	"voxdialog/internal/reply"
)

type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

type Decision struct {
	NeedsWeb    bool
	SearchQuery string
}

const instruction = `You are a classifier that decides whether a web search is needed.

Return STRICT JSON with keys:
- "need_web": true or false
- "search_query": string (may be empty if need_web is false)

Use web search when the question is about:
- current or recent events (news, politics, war, etc.),
- current prices, availability, product lists,
- weather right now or forecast,
- live sports results, timetables, schedules,
- anything that clearly depends on up-to-date external data.

Do NOT request web search for:
- general knowledge that does not change often,
- programming questions,
- math and logic,
- advice that does not need exact current facts.

Respond with JSON only. Do NOT add any extra text.`

type Router struct {
	gen   Generator
	model string
}

func New(gen Generator, model string) *Router {
	return &Router{gen: gen, model: model}
}

func Prompt(text, language string) string {
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "" {
		language = "unknown"
	}
	return fmt.Sprintf("%s\n\nUser language: %s\nUser question:\n%s", instruction, language, text)
}

// Decide never fails: any problem with the classifier means no web lookup.
func (r *Router) Decide(ctx context.Context, text, language string) Decision {
	raw, err := r.gen.Generate(ctx, r.model, Prompt(text, language))
	if err != nil {
		log.Warn("Router call failed, skipping web", "err", err)
		return Decision{}
	}

	d, err := ParseDecision(raw)
	if err != nil {
		log.Warn("Router reply is not a decision, skipping web", "err", err, "raw", raw)
		return Decision{}
	}

	log.Debug("Routed", "need_web", d.NeedsWeb, "query", d.SearchQuery)
	return d
}

// ParseDecision reads the classifier's JSON. Reasoning blocks and code fences
// around the object are tolerated.
func ParseDecision(raw string) (Decision, error) {
	body := reply.Strip(raw)

	var msg struct {
		NeedWeb     *bool   `json:"need_web"`
		SearchQuery *string `json:"search_query"`
	}
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return Decision{}, fmt.Errorf("decode decision: %w", err)
	}

	var d Decision
	if msg.NeedWeb != nil {
		d.NeedsWeb = *msg.NeedWeb
	}
	if msg.SearchQuery != nil {
		d.SearchQuery = strings.TrimSpace(*msg.SearchQuery)
	}
	return d, nil
}
