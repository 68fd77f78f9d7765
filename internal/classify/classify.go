// Package classify decides how an assistant reply should be rendered: as
// free-form markdown or as an interactive multiple-choice quiz.
package classify

// Kind names a rendering path.
type Kind string

const (
	KindMarkdown Kind = "markdown"
	KindQuiz     Kind = "quiz"
)

// Content is the tagged union of renderable reply bodies. It is either
// Markdown or Quiz.
type Content interface {
	Kind() Kind
}

// Markdown is a reply rendered as markdown text, passed through unmodified.
type Markdown struct {
	Text string
}

func (Markdown) Kind() Kind { return KindMarkdown }

// Quiz is a reply carrying structured quiz items.
type Quiz struct {
	Items []QuizItem
}

func (Quiz) Kind() Kind { return KindQuiz }

// QuizItem is one multiple-choice question.
type QuizItem struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Answer      int      `json:"answer"` // index into Options; -1 when unknown
	Explanation string   `json:"explanation,omitempty"`
}

// Classify maps raw assistant text to its rendering kind. It never fails:
// text that is not a well-formed quiz payload is returned as Markdown.
func Classify(text string) Content {
	if items, ok := sniffQuiz(text); ok {
		return Quiz{Items: items}
	}
	return Markdown{Text: text}
}

// ClassifyTagged honours an explicit kind sent by the backend and only
// falls back to sniffing the payload when no tag is present. A quiz tag on
// an unparseable payload still degrades to Markdown.
func ClassifyTagged(kind, text string) Content {
	switch Kind(kind) {
	case KindMarkdown:
		return Markdown{Text: text}
	case KindQuiz, "":
		return Classify(text)
	default:
		return Markdown{Text: text}
	}
}
