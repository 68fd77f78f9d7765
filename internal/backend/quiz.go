package backend

import "github.com/fakeyudi/studyai/internal/classify"

// Quiz converts a generated quiz into the items the classifier yields for
// inline quiz replies, so both paths render and score the same way.
// Questions without text are skipped.
func (q *QuizResponse) Quiz() classify.Quiz {
	items := make([]classify.QuizItem, 0, len(q.Questions))
	for _, qq := range q.Questions {
		if qq.QuestionText == "" {
			continue
		}
		answer := qq.CorrectAnswerIndex
		if answer < 0 || answer >= len(qq.Options) {
			answer = -1
		}
		items = append(items, classify.QuizItem{
			Question:    qq.QuestionText,
			Options:     append([]string(nil), qq.Options...),
			Answer:      answer,
			Explanation: qq.Explanation,
		})
	}
	return classify.Quiz{Items: items}
}
