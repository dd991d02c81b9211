package dialogue

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"voxdialog/internal/router"
	"voxdialog/internal/search"
	"voxdialog/internal/store"
)

type fakeGenerator struct {
	reply   string
	err     error
	models  []string
	prompts []string
}

func (f *fakeGenerator) Generate(_ context.Context, model, prompt string) (string, error) {
	f.models = append(f.models, model)
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

// fakeTranslator answers from a fixed dictionary keyed by "src>dst:text".
type fakeTranslator struct {
	dict  map[string]string
	err   error
	calls []string
}

func (f *fakeTranslator) Translate(_ context.Context, text, src, dst string) (string, error) {
	key := src + ">" + dst + ":" + text
	f.calls = append(f.calls, key)
	if f.err != nil {
		return "", f.err
	}
	if out, ok := f.dict[key]; ok {
		return out, nil
	}
	return "", errors.New("no translation for " + key)
}

type fakeRouter struct {
	decision router.Decision
	calls    int
	text     string
}

func (f *fakeRouter) Decide(_ context.Context, text, _ string) router.Decision {
	f.calls++
	f.text = text
	return f.decision
}

type fakeSearcher struct {
	results []search.Result
	err     error
	queries []string
}

func (f *fakeSearcher) Search(_ context.Context, query string, _ int) ([]search.Result, error) {
	f.queries = append(f.queries, query)
	return f.results, f.err
}

type fakeStore struct {
	turns []store.Turn
	err   error
}

func (f *fakeStore) Append(_ context.Context, t store.Turn) error {
	if f.err != nil {
		return f.err
	}
	f.turns = append(f.turns, t)
	return nil
}

var fixedNow = time.Date(2025, 11, 20, 9, 15, 0, 0, time.UTC)

func newOrchestrator(cfg Config, deps Deps) *Orchestrator {
	o := New(cfg, deps)
	o.now = func() time.Time { return fixedNow }
	return o
}

func TestHandleTurnUkrainianWeather(t *testing.T) {
	const (
		question   = "Привіт, яка зараз погода?"
		questionEN = "Hi, what's the weather like right now?"
		answerEN   = "It is +3°C and cloudy in Kyiv right now."
		answerUK   = "Зараз у Києві +3°C і хмарно."
	)

	tr := &fakeTranslator{dict: map[string]string{
		"uk>en:" + question: questionEN,
		"en>uk:" + answerEN: answerUK,
	}}
	rt := &fakeRouter{decision: router.Decision{NeedsWeb: true, SearchQuery: "current weather Kyiv"}}
	se := &fakeSearcher{results: []search.Result{
		{Title: "Kyiv weather now", URL: "https://weather.example/kyiv", Snippet: "+3°C, cloudy, wind 4 m/s"},
	}}
	gen := &fakeGenerator{reply: "<think>The results say +3°C and cloudy.</think>\n" + answerEN}
	st := &fakeStore{}

	o := newOrchestrator(Config{Model: "qwen3:8b"}, Deps{
		Generator: gen, Translator: tr, Router: rt, Searcher: se, Store: st,
	})

	got, err := o.HandleTurn(context.Background(), question, "uk")
	if err != nil {
		t.Fatalf("HandleTurn: %v", err)
	}

	if got.Text != answerUK {
		t.Errorf("reply = %q, want %q", got.Text, answerUK)
	}
	if got.English != answerEN || got.Reasoning != "The results say +3°C and cloudy." || !got.Complete {
		t.Errorf("unexpected reply %+v", got)
	}
	if got.WebQuery != "current weather Kyiv" || got.Sources != 1 {
		t.Errorf("web = %q/%d", got.WebQuery, got.Sources)
	}
	if got.ID == "" {
		t.Error("turn id is empty")
	}

	if rt.text != question {
		t.Errorf("router saw %q, want the original text", rt.text)
	}
	if len(se.queries) != 1 || se.queries[0] != "current weather Kyiv" {
		t.Errorf("queries = %v", se.queries)
	}

	if len(gen.prompts) != 1 {
		t.Fatalf("generator called %d times", len(gen.prompts))
	}
	prompt := gen.prompts[0]
	for _, want := range []string{
		"The original user language code was: uk.",
		"[1] Kyiv weather now\nURL: https://weather.example/kyiv\n+3°C, cloudy, wind 4 m/s",
		"User message (in English):\n" + questionEN + "\n\nAssistant:",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt lacks %q", want)
		}
	}
	if gen.models[0] != "qwen3:8b" {
		t.Errorf("model = %q", gen.models[0])
	}

	if len(st.turns) != 1 {
		t.Fatalf("stored %d turns", len(st.turns))
	}
	turn := st.turns[0]
	if turn.UserText != question+"\n\n[EN]\n"+questionEN {
		t.Errorf("stored user text = %q", turn.UserText)
	}
	if turn.AssistantReply != answerUK+"\n\n[EN]\n"+answerEN {
		t.Errorf("stored reply = %q", turn.AssistantReply)
	}
	if turn.UserLanguage != "uk" || turn.Reasoning != got.Reasoning || !turn.Timestamp.Equal(fixedNow) {
		t.Errorf("stored turn = %+v", turn)
	}
}

func TestHandleTurnEnglishWithoutWeb(t *testing.T) {
	tr := &fakeTranslator{}
	rt := &fakeRouter{}
	se := &fakeSearcher{}
	gen := &fakeGenerator{reply: "</think>4"}
	st := &fakeStore{}

	o := newOrchestrator(Config{Model: "m"}, Deps{Generator: gen, Translator: tr, Router: rt, Searcher: se, Store: st})

	got, err := o.HandleTurn(context.Background(), " What is 2+2? ", "EN")
	if err != nil {
		t.Fatal(err)
	}
	if got.Text != "4" || got.Language != "en" || got.WebQuery != "" {
		t.Fatalf("reply = %+v", got)
	}
	if len(tr.calls) != 0 {
		t.Errorf("translator called: %v", tr.calls)
	}
	if len(se.queries) != 0 {
		t.Errorf("searcher called: %v", se.queries)
	}
	if strings.Contains(gen.prompts[0], "web search results") {
		t.Error("prompt must not carry a web block")
	}
	if len(st.turns) != 1 || st.turns[0].UserText != "What is 2+2?" || st.turns[0].AssistantReply != "4" {
		t.Errorf("stored = %+v", st.turns)
	}
}

func TestHandleTurnSearchFallbacks(t *testing.T) {
	tests := []struct {
		name     string
		decision router.Decision
		searcher *fakeSearcher
		query    string
		sources  int
	}{
		{
			name:     "empty query uses user text",
			decision: router.Decision{NeedsWeb: true},
			searcher: &fakeSearcher{results: []search.Result{{Title: "t", URL: "u", Snippet: "s"}}},
			query:    "price of bitcoin",
			sources:  1,
		},
		{
			name:     "no results",
			decision: router.Decision{NeedsWeb: true, SearchQuery: "q"},
			searcher: &fakeSearcher{},
			query:    "q",
		},
		{
			name:     "search error",
			decision: router.Decision{NeedsWeb: true, SearchQuery: "q"},
			searcher: &fakeSearcher{err: errors.New("rate limited")},
			query:    "q",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{reply: "ok"}
			o := newOrchestrator(Config{}, Deps{
				Generator: gen,
				Router:    &fakeRouter{decision: tt.decision},
				Searcher:  tt.searcher,
			})

			got, err := o.HandleTurn(context.Background(), "price of bitcoin", "en")
			if err != nil {
				t.Fatal(err)
			}
			if got.Text != "ok" || got.WebQuery != tt.query || got.Sources != tt.sources {
				t.Fatalf("reply = %+v", got)
			}
			if len(tt.searcher.queries) != 1 || tt.searcher.queries[0] != tt.query {
				t.Errorf("queries = %v", tt.searcher.queries)
			}
			hasBlock := strings.Contains(gen.prompts[0], "web search results")
			if hasBlock != (tt.sources > 0) {
				t.Errorf("web block present = %v", hasBlock)
			}
		})
	}
}

func TestHandleTurnEvidenceIsCapped(t *testing.T) {
	results := []search.Result{
		{Title: "one", URL: "https://1.example", Snippet: strings.Repeat("a", 500)},
		{Title: "two", URL: "https://2.example", Snippet: "second"},
	}
	gen := &fakeGenerator{reply: "ok"}
	o := newOrchestrator(Config{MaxEvidenceChars: 120}, Deps{
		Generator: gen,
		Router:    &fakeRouter{decision: router.Decision{NeedsWeb: true, SearchQuery: "q"}},
		Searcher:  &fakeSearcher{results: results},
	})

	if _, err := o.HandleTurn(context.Background(), "q", "en"); err != nil {
		t.Fatal(err)
	}
	prompt := gen.prompts[0]
	if strings.Contains(prompt, "second") || strings.Contains(prompt, strings.Repeat("a", 200)) {
		t.Error("evidence was not capped")
	}
	if !strings.Contains(prompt, "[1] one") {
		t.Error("capped evidence lost its head")
	}
}

func TestHandleTurnWithoutRouterNeverSearches(t *testing.T) {
	se := &fakeSearcher{results: []search.Result{{Title: "t"}}}
	o := newOrchestrator(Config{}, Deps{Generator: &fakeGenerator{reply: "ok"}, Searcher: se})

	if _, err := o.HandleTurn(context.Background(), "news today", "en"); err != nil {
		t.Fatal(err)
	}
	if len(se.queries) != 0 {
		t.Fatalf("searched without router: %v", se.queries)
	}
}

func TestHandleTurnFailuresAbortWithoutStoring(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name string
		deps func(st *fakeStore) Deps
	}{
		{
			name: "generator error",
			deps: func(st *fakeStore) Deps {
				return Deps{Generator: &fakeGenerator{err: boom}, Store: st}
			},
		},
		{
			name: "question translation error",
			deps: func(st *fakeStore) Deps {
				return Deps{Generator: &fakeGenerator{reply: "ok"}, Translator: &fakeTranslator{err: boom}, Store: st}
			},
		},
		{
			name: "answer translation error",
			deps: func(st *fakeStore) Deps {
				tr := &fakeTranslator{dict: map[string]string{"uk>en:Привіт": "Hi"}}
				return Deps{Generator: &fakeGenerator{reply: "Hello"}, Translator: tr, Store: st}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &fakeStore{}
			o := newOrchestrator(Config{}, tt.deps(st))

			language := "en"
			if strings.Contains(tt.name, "translation") {
				language = "uk"
			}

			_, err := o.HandleTurn(context.Background(), "Привіт", language)
			if err == nil {
				t.Fatal("expected error")
			}
			if len(st.turns) != 0 {
				t.Errorf("stored %d turns after failure", len(st.turns))
			}
		})
	}
}

func TestHandleTurnStoreFailureIsSwallowed(t *testing.T) {
	o := newOrchestrator(Config{}, Deps{
		Generator: &fakeGenerator{reply: "fine"},
		Store:     &fakeStore{err: errors.New("disk full")},
	})

	got, err := o.HandleTurn(context.Background(), "hello", "en")
	if err != nil {
		t.Fatalf("store failure leaked: %v", err)
	}
	if got.Text != "fine" {
		t.Fatalf("reply = %q", got.Text)
	}
}

func TestHandleTurnIncompleteParse(t *testing.T) {
	raw := "<think>I keep thinking</think>"
	st := &fakeStore{}
	o := newOrchestrator(Config{}, Deps{Generator: &fakeGenerator{reply: raw}, Store: st})

	got, err := o.HandleTurn(context.Background(), "hello", "en")
	if err != nil {
		t.Fatal(err)
	}
	if got.Complete || got.Text != raw {
		t.Fatalf("reply = %+v", got)
	}
	if st.turns[0].AssistantReply != raw {
		t.Errorf("stored reply = %q", st.turns[0].AssistantReply)
	}
}

func TestHandleTurnEmptyText(t *testing.T) {
	gen := &fakeGenerator{}
	o := newOrchestrator(Config{}, Deps{Generator: gen})

	if _, err := o.HandleTurn(context.Background(), "   ", "en"); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("err = %v", err)
	}
	if len(gen.prompts) != 0 {
		t.Fatal("generator must not be called")
	}
}

func TestPrompt(t *testing.T) {
	p := Prompt("", "", "hello")
	if !strings.Contains(p, "language code was: unknown.") {
		t.Error("missing language fallback")
	}
	if !strings.HasSuffix(p, "in English):\nhello\n\nAssistant:") {
		t.Errorf("unexpected tail %q", p)
	}
	if strings.Contains(p, "web search results") {
		t.Error("no evidence, no web block")
	}

	p = Prompt("uk", "[1] a\nURL: b\nc", "hi")
	if !strings.Contains(p, "may be relevant:\n[1] a\nURL: b\nc\nWhen answering") {
		t.Errorf("web block malformed: %q", p)
	}
}
