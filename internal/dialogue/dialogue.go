// Package dialogue turns one recognized user message into the assistant's
// reply: translation bridging, optional web evidence, generation, parsing
// and logging of the turn.
package dialogue

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"voxdialog/internal/lang"
	"voxdialog/internal/reply"
	"voxdialog/internal/router"
	"voxdialog/internal/search"
	"voxdialog/internal/store"
)

var ErrEmptyText = errors.New("empty user text")

type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

type Translator interface {
	Translate(ctx context.Context, text, src, dst string) (string, error)
}

type Router interface {
	Decide(ctx context.Context, text, language string) router.Decision
}

type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]search.Result, error)
}

type Store interface {
	Append(ctx context.Context, t store.Turn) error
}

type Config struct {
	Model            string
	MaxResults       int // per search call
	MaxEvidenceChars int // 0 = no cap
}

// Deps are the collaborators of the orchestrator. Router, Searcher and Store
// are optional: without a router or searcher turns never use the web, without
// a store turns are not logged.
type Deps struct {
	Generator  Generator
	Translator Translator
	Router     Router
	Searcher   Searcher
	Store      Store
}

// Reply is the outcome of one turn.
type Reply struct {
	ID        string
	Text      string // what the user sees and hears
	Language  string
	Reasoning string
	English   string // the model's answer before back-translation
	// Complete is false when the model output could not be split and the
	// whole output is used as the answer.
	Complete bool
	WebQuery string // empty when no search was made
	Sources  int    // search results included as evidence
}

type Orchestrator struct {
	cfg  Config
	deps Deps
	now  func() time.Time
}

func New(cfg Config, deps Deps) *Orchestrator {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = search.DefaultMaxResults
	}
	return &Orchestrator{cfg: cfg, deps: deps, now: time.Now}
}

// HandleTurn runs one dialogue turn. Generator and translator failures abort
// the turn with an error and nothing is stored; routing, search and storage
// failures only degrade it.
func (o *Orchestrator) HandleTurn(ctx context.Context, text, language string) (Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{}, ErrEmptyText
	}

	language = strings.ToLower(strings.TrimSpace(language))
	if language == "" {
		language = "unknown"
	}
	ukrainian := lang.IsUkrainian(language)

	out := Reply{ID: uuid.NewString(), Language: language}
	logger := log.With("turn", out.ID)

	message, english := text, ""
	if ukrainian {
		en, err := o.deps.Translator.Translate(ctx, text, lang.Ukrainian, lang.English)
		if err != nil {
			return Reply{}, fmt.Errorf("translate question: %w", err)
		}
		logger.Info("Translated question", "en", en)
		message, english = en, en
	}

	evidence := o.evidence(ctx, logger, text, language, &out)

	raw, err := o.deps.Generator.Generate(ctx, o.cfg.Model, Prompt(language, evidence, message))
	if err != nil {
		return Reply{}, fmt.Errorf("generate: %w", err)
	}

	parsed := reply.Parse(raw)
	if parsed.Reasoning != "" {
		logger.Debug("Model reasoning", "think", parsed.Reasoning)
	}
	if !parsed.Complete {
		logger.Warn("No answer after reasoning, using the whole output")
	}

	out.Reasoning, out.English, out.Complete = parsed.Reasoning, parsed.Answer, parsed.Complete
	out.Text = parsed.Answer

	storedUser, storedReply := text, parsed.Answer
	if ukrainian {
		uk, err := o.deps.Translator.Translate(ctx, parsed.Answer, lang.English, lang.Ukrainian)
		if err != nil {
			return Reply{}, fmt.Errorf("translate answer: %w", err)
		}
		out.Text = uk

		if english != "" {
			storedUser = text + TranslationMarker + english
		}
		storedReply = uk + TranslationMarker + parsed.Answer
	}

	o.persist(ctx, logger, store.Turn{
		Timestamp:      o.now(),
		UserLanguage:   language,
		UserText:       storedUser,
		Reasoning:      parsed.Reasoning,
		AssistantReply: storedReply,
	})

	return out, nil
}

// evidence returns the formatted search block, or "" when the turn goes
// without web context.
func (o *Orchestrator) evidence(ctx context.Context, logger *log.Logger, text, language string, out *Reply) string {
	if o.deps.Router == nil || o.deps.Searcher == nil {
		return ""
	}

	d := o.deps.Router.Decide(ctx, text, language)
	if !d.NeedsWeb {
		logger.Info("Web search not needed")
		return ""
	}

	query := d.SearchQuery
	if query == "" {
		query = text
	}
	out.WebQuery = query

	logger.Info("Searching the web", "query", query)
	results, err := o.deps.Searcher.Search(ctx, query, o.cfg.MaxResults)
	if err != nil {
		logger.Warn("Web search failed, answering without it", "err", err)
		return ""
	}
	if len(results) == 0 {
		logger.Info("Web search found nothing, answering without it")
		return ""
	}

	out.Sources = len(results)
	return search.Format(results, o.cfg.MaxEvidenceChars)
}

func (o *Orchestrator) persist(ctx context.Context, logger *log.Logger, t store.Turn) {
	if o.deps.Store == nil {
		return
	}
	if err := o.deps.Store.Append(ctx, t); err != nil {
		logger.Error("Failed to save turn", "err", err)
	}
}
