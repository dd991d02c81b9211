package config

import (
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"os"
	"slices"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

var logLevels = []string{"debug", "info", "warn", "error"}

// Load reads the YAML file at path over the defaults. An empty path yields the
// defaults alone. Environment overrides are applied before validation.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: open %q: %w", path, err)
		}
		defer f.Close()

		if err := decode(f, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}

	if err := ApplyEnv(&cfg, os.Getenv); err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r over the defaults and validates the
// result. No environment is consulted.
func LoadFromReader(r io.Reader) (Config, error) {
	cfg := Default()
	if err := decode(r, &cfg); err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: decode yaml: %w", err)
	}
	return nil
}

// ApplyEnv overrides cfg with the VOX_* variables and the usual API key
// variables. getenv returns "" for unset keys.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	var errs []error

	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	boolean := func(key string, dst *bool) {
		if v := getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str("OPENAI_API_KEY", &cfg.LLM.APIKey)
	str("OPENAI_API_KEY", &cfg.STT.APIKey)
	str("TAVILY_API_KEY", &cfg.Search.APIKey)
	str("LIBRETRANSLATE_API_KEY", &cfg.Translate.APIKey)

	str("VOX_LOG_LEVEL", &cfg.LogLevel)
	str("VOX_MODE", &cfg.Mode)
	str("VOX_PROXY", &cfg.Proxy)
	str("VOX_STT_BACKEND", &cfg.STT.Backend)
	str("VOX_STT_MODEL_PATH", &cfg.STT.ModelPath)
	str("VOX_STT_URL", &cfg.STT.BaseURL)
	str("VOX_LLM_BACKEND", &cfg.LLM.Backend)
	str("VOX_LLM_URL", &cfg.LLM.BaseURL)
	str("VOX_LLM_MODEL", &cfg.LLM.Model)
	str("VOX_LLM_ROUTER_MODEL", &cfg.LLM.RouterModel)
	dur("VOX_LLM_TIMEOUT", &cfg.LLM.Timeout)
	str("VOX_TRANSLATE_BACKEND", &cfg.Translate.Backend)
	str("VOX_TRANSLATE_URL", &cfg.Translate.BaseURL)
	str("VOX_SEARCH_BACKEND", &cfg.Search.Backend)
	str("VOX_STORE_BACKEND", &cfg.Store.Backend)
	str("VOX_STORE_PATH", &cfg.Store.Path)
	str("VOX_STORE_DSN", &cfg.Store.DSN)
	boolean("VOX_TTS_ENABLED", &cfg.TTS.Enabled)
	boolean("VOX_DUCK_ENABLED", &cfg.Duck.Enabled)
	str("VOX_SOCKET", &cfg.Control.Socket)
	str("VOX_METRICS_LISTEN", &cfg.Metrics.Listen)
	str("VOX_BUS_URL", &cfg.Bus.URL)

	return errors.Join(errs...)
}

// Validate returns every problem found, joined.
func Validate(cfg Config) error {
	var errs []error

	oneOf := func(field, v string, valid ...string) {
		if !slices.Contains(valid, v) {
			errs = append(errs, fmt.Errorf("%s %q is invalid; valid values: %v", field, v, valid))
		}
	}

	oneOf("log_level", cfg.LogLevel, logLevels...)
	oneOf("mode", cfg.Mode, ModeTrigger, ModeContinuous)

	if err := cfg.Audio.Detector().Validate(cfg.Audio.Frame); err != nil {
		errs = append(errs, fmt.Errorf("audio: %w", err))
	}

	oneOf("stt.backend", cfg.STT.Backend, STTWhisper, STTRemote)
	switch cfg.STT.Backend {
	case STTWhisper:
		if cfg.STT.ModelPath == "" {
			errs = append(errs, errors.New("stt.model_path is required for the whisper backend"))
		}
	case STTRemote:
		if cfg.STT.BaseURL == "" {
			errs = append(errs, errors.New("stt.base_url is required for the remote backend"))
		}
	}

	oneOf("llm.backend", cfg.LLM.Backend, LLMOllama, LLMOpenAI)
	if cfg.LLM.Model == "" {
		errs = append(errs, errors.New("llm.model is required"))
	}
	if cfg.LLM.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("llm.timeout must be positive, got %s", cfg.LLM.Timeout))
	}
	if cfg.LLM.Backend == LLMOpenAI && cfg.LLM.APIKey == "" && cfg.LLM.BaseURL == "" {
		errs = append(errs, errors.New("llm.api_key (or OPENAI_API_KEY) is required for the openai backend without a base_url"))
	}
	if cfg.LLM.RouterModel == "" {
		log.Warn("llm.router_model is empty; web search will never be used")
	}

	oneOf("translate.backend", cfg.Translate.Backend, TranslateLibre, TranslateModel)
	if cfg.Translate.Backend == TranslateLibre && cfg.Translate.BaseURL == "" {
		errs = append(errs, errors.New("translate.base_url is required for the libretranslate backend"))
	}

	oneOf("search.backend", cfg.Search.Backend, SearchDuckDuckGo, SearchTavily, SearchNone)
	if cfg.Search.Backend == SearchTavily && cfg.Search.APIKey == "" {
		errs = append(errs, errors.New("search.api_key (or TAVILY_API_KEY) is required for the tavily backend"))
	}
	if cfg.Search.MaxResults <= 0 {
		errs = append(errs, fmt.Errorf("search.max_results must be positive, got %d", cfg.Search.MaxResults))
	}
	if cfg.Search.MaxChars < 0 {
		errs = append(errs, fmt.Errorf("search.max_chars must not be negative, got %d", cfg.Search.MaxChars))
	}

	oneOf("store.backend", cfg.Store.Backend, StoreSQLite, StorePostgres)
	switch cfg.Store.Backend {
	case StoreSQLite:
		if cfg.Store.Path == "" {
			errs = append(errs, errors.New("store.path is required for the sqlite backend"))
		}
	case StorePostgres:
		if cfg.Store.DSN == "" {
			errs = append(errs, errors.New("store.dsn is required for the postgres backend"))
		}
	}

	if cfg.TTS.Enabled && cfg.TTS.Piper != "" && cfg.TTS.VoiceEN == "" {
		log.Warn("tts.voice_en is empty; piper cannot speak non-Ukrainian replies")
	}

	if cfg.Duck.Factor < 0 || cfg.Duck.Factor > 1 {
		errs = append(errs, fmt.Errorf("duck.factor %.2f is out of range [0, 1]", cfg.Duck.Factor))
	}

	if cfg.Control.Socket == "" {
		errs = append(errs, errors.New("control.socket is required"))
	}
	if cfg.Bus.URL != "" && cfg.Bus.Name == "" {
		errs = append(errs, errors.New("bus.name is required when bus.url is set"))
	}

	return errors.Join(errs...)
}
