package backend

// CreateSessionRequest is the body of POST /session/create.
type CreateSessionRequest struct {
	StudentName string `json:"student_name"`
	Subject     string `json:"subject,omitempty"`
}

// CreateSessionResponse is returned by POST /session/create.
type CreateSessionResponse struct {
	SessionID   string `json:"session_id"`
	StudentName string `json:"student_name"`
}

// AskRequest is the body of POST /ask.
type AskRequest struct {
	Question        string `json:"question"`
	SessionID       string `json:"session_id"`
	StudentLevel    string `json:"student_level"`
	ExplanationMode string `json:"explanation_mode"`
	Subject         string `json:"subject,omitempty"`
}

// Source is a retrieved syllabus excerpt cited by an answer.
type Source struct {
	Filename string `json:"filename"`
	Excerpt  string `json:"excerpt"`
}

// AskResponse is returned by POST /ask.
type AskResponse struct {
	Answer              string   `json:"answer"`
	Message             string   `json:"message,omitempty"`
	Kind                string   `json:"kind,omitempty"` // optional explicit render tag
	FollowUpSuggestions []string `json:"follow_up_suggestions"`
	IsWeak              bool     `json:"is_weak"`
	Sources             []Source `json:"sources"`
	WebSources          []string `json:"web_sources"`
}

// QuizRequest is the body of POST /generate-quiz.
type QuizRequest struct {
	SessionID    string `json:"session_id"`
	Topic        string `json:"topic"`
	NumQuestions int    `json:"num_questions"`
}

// QuizQuestion is one generated question.
type QuizQuestion struct {
	QuestionText       string   `json:"questionText"`
	Options            []string `json:"options"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex"`
	Explanation        string   `json:"explanation"`
}

// QuizResponse is returned by POST /generate-quiz.
type QuizResponse struct {
	Title     string         `json:"title"`
	Questions []QuizQuestion `json:"questions"`
}

// ConfusionRequest is the body of POST /confusion.
type ConfusionRequest struct {
	SessionID      string `json:"session_id"`
	Topic          string `json:"topic"`
	ConfusionLevel int    `json:"confusion_level"`
}

// TopicCount pairs a topic with how often it came up.
type TopicCount struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// ConfusionArea is a topic the student reported trouble with.
type ConfusionArea struct {
	Topic        string  `json:"topic"`
	AvgConfusion float64 `json:"avg_confusion"`
	Reports      int     `json:"reports"`
}

// Turn is one question/answer pair remembered by the backend.
type Turn struct {
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Type      string `json:"type,omitempty"`
	Topic     string `json:"topic,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Insights is returned by GET /insights/{session_id}.
type Insights struct {
	TotalQuestions  int             `json:"total_questions"`
	FrequentlyAsked []TopicCount    `json:"frequently_asked"`
	SubjectsCovered []string        `json:"subjects_covered"`
	ConfusionAreas  []ConfusionArea `json:"confusion_areas"`
	LearningHistory []Turn          `json:"learning_history"`
}

// GlobalInsights is returned by GET /global-insights.
type GlobalInsights struct {
	FrequentTopics []TopicCount `json:"frequent_topics"`
}
