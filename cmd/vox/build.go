package main

import (
	"context"
	"fmt"
	log "log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"

	"voxdialog/internal/assistant"
	"voxdialog/internal/audio"
	"voxdialog/internal/audio/clip"
	"voxdialog/internal/audio/mic"
	"voxdialog/internal/bus"
	"voxdialog/internal/config"
	"voxdialog/internal/dialogue"
	"voxdialog/internal/duck"
	"voxdialog/internal/llm"
	"voxdialog/internal/notify"
	"voxdialog/internal/observe"
	"voxdialog/internal/proxy"
	"voxdialog/internal/router"
	"voxdialog/internal/search"
	"voxdialog/internal/sound"
	"voxdialog/internal/store"
	"voxdialog/internal/translate"
	"voxdialog/internal/tts"
	"voxdialog/internal/tts/espeak"
	"voxdialog/pkg/stt"
	"voxdialog/pkg/stt/whisper"
)

type app struct {
	assistant *assistant.Assistant
	bus       *bus.Bus
	closers   []func()
}

func (a *app) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// close releases everything in reverse order of acquisition. It is safe to
// call more than once.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func build(ctx context.Context, cfg config.Config, file string) (*app, error) {
	a := &app{}
	ok := false
	defer func() {
		if !ok {
			a.close()
		}
	}()

	httpClient, err := proxy.NewHTTPClient(cfg.Proxy, cfg.LLM.Timeout)
	if err != nil {
		return nil, fmt.Errorf("proxy %q: %w", cfg.Proxy, err)
	}
	log.Debug("Loaded http client", "proxy", cfg.Proxy)

	metrics := observe.Nop()
	if cfg.Metrics.Listen != "" {
		shutdown, err := observe.InitProvider()
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		a.onClose(func() { shutdown(context.Background()) })

		if metrics, err = observe.NewMetrics(otel.GetMeterProvider()); err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}

		go func() {
			if err := observe.Serve(ctx, cfg.Metrics.Listen); err != nil {
				log.Error("Metrics server failed", "err", err)
			}
		}()
	}

	gen, err := generator(cfg, httpClient, a)
	if err != nil {
		return nil, err
	}
	log.Debug("Loaded generator", "backend", cfg.LLM.Backend)

	var translator *translate.Translator
	switch cfg.Translate.Backend {
	case config.TranslateLibre:
		translator = translate.New(translate.NewLibreTranslate(cfg.Translate.BaseURL, cfg.Translate.APIKey, httpClient))
	default:
		model := cfg.Translate.Model
		if model == "" {
			model = cfg.LLM.Model
		}
		translator = translate.New(translate.NewModel(gen, model))
	}

	deps := dialogue.Deps{Generator: gen, Translator: translator}

	if cfg.Search.Backend != config.SearchNone && cfg.LLM.RouterModel != "" {
		deps.Router = router.New(gen, cfg.LLM.RouterModel)
		switch cfg.Search.Backend {
		case config.SearchTavily:
			deps.Searcher = search.NewTavily(cfg.Search.APIKey, cfg.Search.BaseURL, httpClient)
		default:
			deps.Searcher = search.NewDuckDuckGo(cfg.Search.BaseURL, httpClient)
		}
	}

	switch cfg.Store.Backend {
	case config.StorePostgres:
		pg, err := store.OpenPostgres(ctx, cfg.Store.DSN)
		if err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
		a.onClose(func() { pg.Close() })
		deps.Store = pg
	default:
		db, err := store.OpenSQLite(ctx, cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
		a.onClose(func() { db.Close() })
		deps.Store = db
	}
	log.Debug("Loaded store", "backend", cfg.Store.Backend)

	orchestrator := dialogue.New(dialogue.Config{
		Model:            cfg.LLM.Model,
		MaxResults:       cfg.Search.MaxResults,
		MaxEvidenceChars: cfg.Search.MaxChars,
	}, deps)

	rec, err := recognizer(cfg, a)
	if err != nil {
		return nil, err
	}
	log.Debug("Loaded recognizer", "backend", cfg.STT.Backend)

	var opener audio.StreamOpener
	if file != "" {
		opener = clip.New(file, cfg.Audio.SampleRate, cfg.Audio.Frame)
	} else {
		m := mic.NewRecorder(cfg.Audio.SampleRate, cfg.Audio.Frame)
		if err := m.Init(); err != nil {
			return nil, fmt.Errorf("init audio: %w", err)
		}
		a.onClose(m.Close)
		opener = m
	}
	log.Debug("Loaded recorder")

	player := sound.NewPlayer()

	turn := assistant.Deps{
		Capturer:    audio.NewListener(opener, cfg.Audio.Detector()),
		Recognizer:  rec,
		Handler:     orchestrator,
		Synthesizer: synthesizer(cfg, player),
		Metrics:     metrics,
	}
	if file == "" {
		turn.Cue = notify.NewCue(player, cfg.Audio.CueSound)
	}
	if cfg.Duck.Enabled {
		turn.Ducker = duck.New(duck.Pactl{}, duck.Config{
			Factor:    cfg.Duck.Factor,
			MinVolume: cfg.Duck.MinVolume,
			Fade:      cfg.Duck.Fade,
			Ignore:    cfg.Duck.Ignore,
		})
	}

	if cfg.Bus.URL != "" {
		b, err := bus.Dial(ctx, cfg.Bus.Name, cfg.Bus.URL)
		if err != nil {
			log.Warn("Bus unavailable, turns will not be published", "url", cfg.Bus.URL, "err", err)
		} else {
			a.onClose(func() { b.Close() })
			a.bus = b
			turn.Publisher = b
		}
	}

	a.assistant = assistant.New(turn)
	ok = true
	return a, nil
}

func generator(cfg config.Config, httpClient *http.Client, a *app) (dialogue.Generator, error) {
	switch cfg.LLM.Backend {
	case config.LLMOpenAI:
		return llm.NewOpenAI(cfg.LLM.APIKey, cfg.LLM.BaseURL, httpClient), nil
	default:
		o, err := llm.NewOllama(cfg.LLM.BaseURL, httpClient)
		if err != nil {
			return nil, fmt.Errorf("ollama: %w", err)
		}
		if cfg.LLM.UnloadOnExit {
			a.onClose(func() {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				log.Info("Unloading model", "model", cfg.LLM.Model)
				if err := o.Unload(ctx, cfg.LLM.Model); err != nil {
					log.Warn("Failed to unload model", "model", cfg.LLM.Model, "err", err)
				}
			})
		}
		return o, nil
	}
}

func recognizer(cfg config.Config, a *app) (assistant.Recognizer, error) {
	switch cfg.STT.Backend {
	case config.STTRemote:
		client, err := proxy.NewHTTPClient(cfg.Proxy, cfg.LLM.Timeout)
		if err != nil {
			return nil, err
		}
		return stt.NewRemote(stt.RemoteConfig{
			BaseURL:  cfg.STT.BaseURL,
			APIKey:   cfg.STT.APIKey,
			Model:    cfg.STT.Model,
			Language: cfg.STT.Language,
		}, client), nil
	default:
		t, err := whisper.NewTranscriber(cfg.STT.ModelPath, whisper.Options{
			Language: cfg.STT.Language,
			Threads:  cfg.STT.Threads,
			BeamSize: cfg.STT.BeamSize,
		})
		if err != nil {
			return nil, fmt.Errorf("whisper: %w", err)
		}
		a.onClose(func() { t.Close() })
		return t, nil
	}
}

func synthesizer(cfg config.Config, player *sound.Player) assistant.Synthesizer {
	if !cfg.TTS.Enabled {
		log.Info("Speech output disabled")
		return tts.Nop{}
	}

	var chain tts.Chain
	if cfg.TTS.Piper != "" {
		chain = append(chain, tts.NewPiper(cfg.TTS.Piper, tts.Voices{
			Ukrainian: cfg.TTS.VoiceUK,
			Default:   cfg.TTS.VoiceEN,
		}, player))
	}
	if cfg.TTS.Espeak {
		chain = append(chain, espeak.New())
	}
	if len(chain) == 0 {
		log.Warn("No synthesizer configured, replies will only be printed")
		return tts.Nop{}
	}
	return chain
}
