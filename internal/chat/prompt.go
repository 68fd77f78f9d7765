package chat

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/fakeyudi/studyai/internal/session"
)

// StarterSuggestions are offered on an empty transcript.
var StarterSuggestions = []string{
	"Summarize the key concepts",
	"Generate a practice quiz",
	"Explain this to a beginner",
	"What are the practical applications?",
}

// EnrichPrompt wraps the learner's question with answer-style instructions
// before it is sent to the backend. Quiz mode asks for a machine-readable
// quiz instead of prose.
func EnrichPrompt(question, mode string) string {
	if mode == session.ModeQuiz {
		return "Create a short multiple-choice quiz that tests the following request. " +
			"Return ONLY a raw JSON array where each element has the keys " +
			`"question", "options" (array of strings), "answer" (index of the correct option) and "explanation". ` +
			"Write it in the same language as the request: " + fmt.Sprintf("%q", question)
	}
	return "Provide a direct, summarized, and pointwise answer to the following question. \n" +
		"The response must be written ONLY in the same language as the question. \n" +
		"Do not include any links, images, or conversational fillers: " + fmt.Sprintf("%q", question)
}

// RoadmapStage is one step of a suggested study plan.
type RoadmapStage struct {
	Title       string
	Duration    string
	Description string
}

var defaultRoadmap = []RoadmapStage{
	{Title: "Foundations", Duration: "3 Hours", Description: "Basic core concepts and setup."},
	{Title: "Implementation", Duration: "5 Hours", Description: "Hands-on logic and structured building."},
	{Title: "Advanced Application", Duration: "6 Hours", Description: "Integrating complex modules and testing."},
}

var roadmapWords = regexp.MustCompile(`(?i)learn|roadmap for`)

// DetectRoadmap reports whether question asks for a study plan and, if so,
// the topic it names.
func DetectRoadmap(question string) (topic string, ok bool) {
	lower := strings.ToLower(question)
	if !strings.Contains(lower, "learn") && !strings.Contains(lower, "roadmap") {
		return "", false
	}
	topic = strings.TrimSpace(roadmapWords.ReplaceAllString(question, ""))
	if topic == "" {
		topic = "New Subject"
	}
	return topic, true
}

// Greeting returns a time-of-day salutation.
func Greeting(now time.Time) string {
	switch h := now.Hour(); {
	case h < 12:
		return "Good Morning"
	case h < 17:
		return "Good Afternoon"
	default:
		return "Good Evening"
	}
}
