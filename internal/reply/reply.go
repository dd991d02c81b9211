// Package reply splits raw model output into reasoning and the answer that is
// shown and spoken to the user.
package reply

import "strings"

const (
	OpenTag  = "<think>"
	CloseTag = "</think>"
	fence    = "```"
)

type Result struct {
	Reasoning string
	Answer    string
	// Complete is false when no answer could be separated and Answer falls
	// back to the whole output.
	Complete bool
}

func Parse(raw string) Result {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Result{Complete: true}
	}

	res := Result{Answer: raw}

	if end := strings.LastIndex(raw, CloseTag); end >= 0 {
		if start := strings.Index(raw[:end], OpenTag); start >= 0 {
			res.Reasoning = strings.TrimSpace(raw[start+len(OpenTag) : end])
		} else {
			res.Reasoning = strings.TrimSpace(raw[:end])
		}
		res.Answer = strings.TrimSpace(raw[end+len(CloseTag):])
	}

	res.Answer = unfence(res.Answer)

	if res.Answer == "" {
		res.Answer = raw
		return res
	}

	res.Complete = true
	return res
}

// unfence keeps what lies between the first and the last code fence, without
// a one-word info string such as "json".
func unfence(s string) string {
	if !strings.HasPrefix(s, fence) {
		return s
	}

	last := strings.LastIndex(s, fence)
	if last < len(fence) {
		return s
	}

	inner := s[len(fence):last]
	if nl := strings.IndexByte(inner, '\n'); nl >= 0 {
		if info := strings.TrimSpace(inner[:nl]); info != "" && !strings.ContainsAny(info, " \t") {
			inner = inner[nl+1:]
		}
	}
	return strings.TrimSpace(inner)
}

// Strip returns only the answer part, for callers that do not care about
// reasoning.
func Strip(raw string) string {
	return Parse(raw).Answer
}
