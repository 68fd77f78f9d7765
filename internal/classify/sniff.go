package classify

import (
	"encoding/json"
	"strings"
)

// This file holds the compatibility shim for backends that return quiz
// payloads as untagged text. Nothing outside Classify should call it.

const fence = "```"

// unfence strips the markers of a single code fence wrapping the whole
// payload, e.g. "```json\n[...]\n```". Any other text is returned trimmed.
func unfence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, fence) || !strings.HasSuffix(s, fence) || len(s) < 2*len(fence) {
		return s
	}
	inner := s[len(fence) : len(s)-len(fence)]
	if strings.Contains(inner, fence) {
		return s // more than one fence; not a single wrapped payload
	}
	// Drop the info string ("json") on the opening line.
	if nl := strings.IndexByte(inner, '\n'); nl >= 0 {
		info := strings.TrimSpace(inner[:nl])
		if !strings.ContainsAny(info, "[{") {
			inner = inner[nl+1:]
		}
	}
	return strings.TrimSpace(inner)
}

// rawItem uses raw fields so missing or oddly typed values can be told apart
// from zero values. Only question and options decide the shape.
type rawItem struct {
	Question    *string           `json:"question"`
	Options     []json.RawMessage `json:"options"`
	Answer      json.RawMessage   `json:"answer"`
	Explanation json.RawMessage   `json:"explanation"`
}

// sniffQuiz reports whether text is a JSON array of quiz items, each with a
// non-empty question string and an options array.
func sniffQuiz(text string) ([]QuizItem, bool) {
	body := unfence(text)
	if !strings.HasPrefix(body, "[") {
		return nil, false
	}

	var raw []*rawItem
	if err := json.Unmarshal([]byte(body), &raw); err != nil || len(raw) == 0 {
		return nil, false
	}

	items := make([]QuizItem, 0, len(raw))
	for _, r := range raw {
		if r == nil || r.Question == nil || strings.TrimSpace(*r.Question) == "" || r.Options == nil {
			return nil, false
		}
		items = append(items, QuizItem{
			Question:    *r.Question,
			Options:     optionTexts(r.Options),
			Answer:      answerIndex(r.Answer, len(r.Options)),
			Explanation: stringOrRaw(r.Explanation),
		})
	}
	return items, true
}

func optionTexts(raw []json.RawMessage) []string {
	out := make([]string, len(raw))
	for i, o := range raw {
		out[i] = stringOrRaw(o)
	}
	return out
}

// stringOrRaw decodes a JSON string, or returns the raw JSON text for any
// other value.
func stringOrRaw(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// answerIndex returns the correct option index, or -1 when absent or out of range.
func answerIndex(raw json.RawMessage, n int) int {
	var idx int
	if len(raw) == 0 || json.Unmarshal(raw, &idx) != nil || idx < 0 || idx >= n {
		return -1
	}
	return idx
}
