package classify

import "errors"

var (
	// ErrQuizSubmitted is returned when an attempt is changed after submission.
	ErrQuizSubmitted = errors.New("quiz already submitted")
	// ErrQuizIncomplete is returned when submitting before every question is answered.
	ErrQuizIncomplete = errors.New("answer every question before submitting")
	// ErrNoSuchOption is returned for an out-of-range question or option index.
	ErrNoSuchOption = errors.New("no such question or option")
)

// Attempt records one learner's answers to a quiz.
type Attempt struct {
	quiz      Quiz
	selected  map[int]int
	submitted bool
}

// NewAttempt starts an empty attempt at q.
func NewAttempt(q Quiz) *Attempt {
	return &Attempt{quiz: q, selected: make(map[int]int)}
}

// Quiz returns the quiz being attempted.
func (a *Attempt) Quiz() Quiz { return a.quiz }

// Select records option as the answer to question, replacing any earlier choice.
func (a *Attempt) Select(question, option int) error {
	if a.submitted {
		return ErrQuizSubmitted
	}
	if question < 0 || question >= len(a.quiz.Items) {
		return ErrNoSuchOption
	}
	if option < 0 || option >= len(a.quiz.Items[question].Options) {
		return ErrNoSuchOption
	}
	a.selected[question] = option
	return nil
}

// Selected returns the chosen option for question.
func (a *Attempt) Selected(question int) (int, bool) {
	o, ok := a.selected[question]
	return o, ok
}

// Answered reports how many questions have a selection.
func (a *Attempt) Answered() int { return len(a.selected) }

// Submit freezes the attempt. Every question must be answered.
func (a *Attempt) Submit() error {
	if a.submitted {
		return ErrQuizSubmitted
	}
	if len(a.selected) < len(a.quiz.Items) {
		return ErrQuizIncomplete
	}
	a.submitted = true
	return nil
}

// Submitted reports whether Submit succeeded.
func (a *Attempt) Submitted() bool { return a.submitted }

// Score counts selections that match the item's answer.
func (a *Attempt) Score() int {
	score := 0
	for q, o := range a.selected {
		if a.quiz.Items[q].Answer == o {
			score++
		}
	}
	return score
}

// OptionLetter labels option i as A, B, C...
func OptionLetter(i int) string {
	if i < 0 || i >= 26 {
		return "?"
	}
	return string(rune('A' + i))
}
