package dialogue

import (
	"fmt"
	"strings"
)

// TranslationMarker separates the original text from its English form in
// stored turns.
const TranslationMarker = "\n\n[EN]\n"

func evidenceBlock(results string) string {
	if strings.TrimSpace(results) == "" {
		return ""
	}
	return "\n\nHere are some web search results that may be relevant:\n" +
		results + "\n" +
		"When answering, rely primarily on these results if they are relevant,\n" +
		"but they can be incomplete or outdated: say if something is still uncertain.\n"
}

// Prompt builds the generation prompt. The model always works in English;
// language is the user's original language tag.
func Prompt(language, evidence, message string) string {
	if language == "" {
		language = "unknown"
	}

	return fmt.Sprintf("You are a helpful AI assistant.\n"+
		"- You ALWAYS think and answer in English.\n"+
		"- The original user language code was: %s.\n"+
		"- You MAY use <think>...</think> for internal reasoning,\n"+
		"  but the final answer for the user MUST be written AFTER the </think> tag,\n"+
		"  in clean English.\n"+
		"- The final answer should be concise (1-3 sentences) unless the question requires more.\n\n"+
		"%s\n"+
		"User message (in English):\n"+
		"%s\n\n"+
		"Assistant:", language, evidenceBlock(evidence), message)
}
