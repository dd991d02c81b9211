// Package lang settles on one language tag per turn.
package lang

import (
	log "log/slog"
	"strings"
)

const (
	Ukrainian = "uk"
	English   = "en"
)

const ukrainianLetters = "абвгґдеєжзиіїйклмнопрстуфхцчшщьюяАБВГҐДЕЄЖЗИІЇЙКЛМНОПРСТУФХЦЧШЩЬЮЯ"

// HasUkrainian reports whether text contains any letter of the Ukrainian alphabet.
func HasUkrainian(text string) bool {
	return strings.ContainsAny(text, ukrainianLetters)
}

// Normalize picks the language of a recognized utterance. Ukrainian script in
// the text wins over whatever the recognizer reported, since short Ukrainian
// phrases are often mis-tagged.
func Normalize(text, code string) string {
	code = strings.ToLower(strings.TrimSpace(code))

	if HasUkrainian(text) {
		if code != Ukrainian {
			log.Info("Cyrillic detected, forcing language", "lang", Ukrainian, "reported", code)
		}
		return Ukrainian
	}

	if code != "" {
		return code
	}

	log.Info("No language reported, defaulting", "lang", English)
	return English
}

// IsUkrainian accepts both bare and regional tags ("uk", "uk-UA").
func IsUkrainian(tag string) bool {
	return strings.HasPrefix(strings.ToLower(tag), Ukrainian)
}
