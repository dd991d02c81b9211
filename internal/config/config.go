// Package config holds the daemon configuration: YAML file, environment
// overrides and validation.
package config

import (
	"time"

	"voxdialog/internal/audio"
)

const (
	ModeTrigger    = "trigger"
	ModeContinuous = "continuous"

	STTWhisper = "whisper"
	STTRemote  = "remote"

	LLMOllama = "ollama"
	LLMOpenAI = "openai"

	TranslateLibre = "libretranslate"
	TranslateModel = "model"

	SearchDuckDuckGo = "duckduckgo"
	SearchTavily     = "tavily"
	SearchNone       = "none"

	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

type Config struct {
	LogLevel string `yaml:"log_level"`
	Mode     string `yaml:"mode"`
	// SOCKS5 proxy for outbound HTTP, empty for direct connections.
	Proxy string `yaml:"proxy"`

	Audio     AudioConfig     `yaml:"audio"`
	STT       STTConfig       `yaml:"stt"`
	LLM       LLMConfig       `yaml:"llm"`
	Translate TranslateConfig `yaml:"translate"`
	Search    SearchConfig    `yaml:"search"`
	Store     StoreConfig     `yaml:"store"`
	TTS       TTSConfig       `yaml:"tts"`
	Duck      DuckConfig      `yaml:"duck"`
	Control   ControlConfig   `yaml:"control"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Bus       BusConfig       `yaml:"bus"`
}

type AudioConfig struct {
	SampleRate  int           `yaml:"sample_rate"`
	Frame       time.Duration `yaml:"frame"`
	Threshold   float64       `yaml:"threshold"`
	Silence     time.Duration `yaml:"silence"`
	MaxDuration time.Duration `yaml:"max_duration"`
	CueSound    string        `yaml:"cue_sound"`
}

// Detector returns the endpointing parameters.
func (a AudioConfig) Detector() audio.DetectorConfig {
	return audio.DetectorConfig{
		SampleRate:  a.SampleRate,
		Threshold:   a.Threshold,
		Silence:     a.Silence,
		MaxDuration: a.MaxDuration,
	}
}

type STTConfig struct {
	Backend  string `yaml:"backend"`
	Language string `yaml:"language"`

	// whisper.cpp
	ModelPath string `yaml:"model_path"`
	Threads   int    `yaml:"threads"`
	BeamSize  int    `yaml:"beam_size"`

	// OpenAI-compatible transcription endpoint
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

type LLMConfig struct {
	Backend     string        `yaml:"backend"`
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	RouterModel string        `yaml:"router_model"`
	Timeout     time.Duration `yaml:"timeout"`
	// Unload the primary model at exit (Ollama only).
	UnloadOnExit bool `yaml:"unload_on_exit"`
}

type TranslateConfig struct {
	Backend string `yaml:"backend"`
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	// Generator model for the "model" backend; defaults to llm.model.
	Model string `yaml:"model"`
}

type SearchConfig struct {
	Backend    string `yaml:"backend"`
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	MaxResults int    `yaml:"max_results"`
	MaxChars   int    `yaml:"max_chars"`
}

type StoreConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
	DSN     string `yaml:"dsn"`
}

type TTSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Piper   string `yaml:"piper"`
	VoiceUK string `yaml:"voice_uk"`
	VoiceEN string `yaml:"voice_en"`
	// Fall back to espeak-ng when piper fails.
	Espeak bool `yaml:"espeak"`
}

type DuckConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Factor    float64       `yaml:"factor"`
	MinVolume int           `yaml:"min_volume"`
	Fade      time.Duration `yaml:"fade"`
	Ignore    []string      `yaml:"ignore"`
}

type ControlConfig struct {
	Socket string `yaml:"socket"`
}

type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

type BusConfig struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

func Default() Config {
	return Config{
		LogLevel: "info",
		Mode:     ModeTrigger,
		Audio: AudioConfig{
			SampleRate:  16000,
			Frame:       200 * time.Millisecond,
			Threshold:   0.01,
			Silence:     1200 * time.Millisecond,
			MaxDuration: 20 * time.Second,
		},
		STT: STTConfig{
			Backend:   STTWhisper,
			Language:  "auto",
			ModelPath: "third_party/whisper.cpp/models/ggml-large-v3.bin",
			BeamSize:  3,
			Model:     "whisper-1",
		},
		LLM: LLMConfig{
			Backend:      LLMOllama,
			BaseURL:      "http://localhost:11434",
			Model:        "qwen3:8b",
			RouterModel:  "qwen3:0.6b",
			Timeout:      120 * time.Second,
			UnloadOnExit: true,
		},
		Translate: TranslateConfig{
			Backend: TranslateModel,
			BaseURL: "http://localhost:5000",
		},
		Search: SearchConfig{
			Backend:    SearchDuckDuckGo,
			MaxResults: 5,
			MaxChars:   4000,
		},
		Store: StoreConfig{
			Backend: StoreSQLite,
			Path:    "assistant.sqlite3",
		},
		TTS: TTSConfig{
			Enabled: true,
			Piper:   "piper",
			Espeak:  true,
		},
		Duck: DuckConfig{
			Factor:    0.3,
			MinVolume: 5,
			Fade:      300 * time.Millisecond,
		},
		Control: ControlConfig{Socket: "/tmp/vox.sock"},
		Bus:     BusConfig{Name: "vox"},
	}
}
