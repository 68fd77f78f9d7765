package voice

import (
	"regexp"
	"strings"
)

var (
	codeFence    = regexp.MustCompile("(?s)```.*?```")
	markdownMark = strings.NewReplacer("*", "", "#", "")
)

// Sanitize removes fenced code blocks and markdown emphasis and heading
// markers so they are not read aloud.
func Sanitize(text string) string {
	return markdownMark.Replace(codeFence.ReplaceAllString(text, ""))
}

// femaleVoiceHints are matched as substrings of voice names, in order.
var femaleVoiceHints = []string{"Female", "Samantha", "Zira", "Victoria", "Google UK English Female"}

// PickVoice prefers the first voice whose name contains a known female-voice
// hint and otherwise falls back to the first voice. ok is false when voices
// is empty.
func PickVoice(voices []Voice) (v Voice, ok bool) {
	if len(voices) == 0 {
		return Voice{}, false
	}
	for _, vc := range voices {
		for _, hint := range femaleVoiceHints {
			if strings.Contains(vc.Name, hint) {
				return vc, true
			}
		}
	}
	return voices[0], true
}
