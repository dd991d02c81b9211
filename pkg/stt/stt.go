// Package stt holds speech recognition results and the HTTP recognizer.
// The whisper.cpp recognizer lives in the whisper subpackage because it
// needs cgo.
package stt

import "strings"

const SampleRate = 16000

type Segment struct {
	Text     string
	StartSec float64
	EndSec   float64
}

type Result struct {
	Text     string
	Segments []Segment
	Language string // detected or forced, may be empty
}

func (r Result) Empty() bool {
	return strings.TrimSpace(r.Text) == ""
}

var languageCodes = map[string]string{
	"ukrainian":  "uk",
	"english":    "en",
	"russian":    "ru",
	"german":     "de",
	"french":     "fr",
	"spanish":    "es",
	"italian":    "it",
	"polish":     "pl",
	"portuguese": "pt",
	"japanese":   "ja",
	"chinese":    "zh",
}

// LanguageCode turns a language name as some servers report it ("Ukrainian")
// into its ISO 639-1 code. Codes pass through lowercased; unknown names
// become "".
func LanguageCode(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) == 2 {
		return s
	}
	return languageCodes[s]
}

func joinSegments(segs []Segment) string {
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
