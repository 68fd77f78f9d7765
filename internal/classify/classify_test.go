package classify

import (
	"encoding/json"
	"errors"
	"testing"

	"pgregory.net/rapid"
)

// quizItemGen produces a well-formed quiz item as a generic JSON object,
// sometimes with extra fields the classifier must ignore.
var quizItemGen = rapid.Custom(func(t *rapid.T) map[string]any {
	item := map[string]any{
		"question": rapid.StringMatching(`[A-Za-z][A-Za-z0-9 ?]{0,40}`).Draw(t, "question"),
		"options":  rapid.SliceOfN(rapid.StringN(0, 20, -1), 1, 5).Draw(t, "options"),
	}
	if rapid.Bool().Draw(t, "has_answer") {
		item["answer"] = rapid.IntRange(-2, 6).Draw(t, "answer")
	}
	if rapid.Bool().Draw(t, "has_explanation") {
		item["explanation"] = rapid.String().Draw(t, "explanation")
	}
	if rapid.Bool().Draw(t, "has_extra") {
		item["difficulty"] = rapid.IntRange(1, 3).Draw(t, "difficulty")
	}
	return item
})

// Feature: studyai, Property 6: valid quiz JSON always classifies as Quiz
func TestValidQuizClassifiesAsQuiz(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		items := rapid.SliceOfN(quizItemGen, 1, 6).Draw(t, "items")
		data, err := json.Marshal(items)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		text := string(data)
		if rapid.Bool().Draw(t, "fenced") {
			text = "```json\n" + text + "\n```"
		}

		c := Classify(text)
		q, ok := c.(Quiz)
		if !ok {
			t.Fatalf("expected Quiz for %s, got %T", text, c)
		}
		if len(q.Items) != len(items) {
			t.Fatalf("items: got %d, want %d", len(q.Items), len(items))
		}
		for i, it := range q.Items {
			if it.Question != items[i]["question"] {
				t.Errorf("item %d question: got %q, want %q", i, it.Question, items[i]["question"])
			}
			if it.Answer < -1 || it.Answer >= len(it.Options) {
				t.Errorf("item %d answer %d out of range", i, it.Answer)
			}
		}
	})
}

// Feature: studyai, Property 6: everything else is Markdown, returned unmodified
func TestOtherTextClassifiesAsMarkdown(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.OneOf(
			rapid.String(),
			rapid.StringMatching(`\[\{"question": ?"[a-z]{1,8}", ?"options": ?\[[^\]]{0,8}`), // truncated JSON
			rapid.StringMatching(`\{"question":"[a-z]{1,8}","options":\["a"\]\}`),            // object, not array
			rapid.StringMatching(`\[\{"options":\["[a-z]{1,5}"\]\}\]`),                       // missing question
			rapid.StringMatching(`\[\{"question":"[a-z]{1,8}"\}\]`),                          // missing options
			rapid.StringMatching(`# [A-Za-z ]{1,30}\n\n- [a-z ]{1,30}`),
		).Draw(t, "text")

		if _, ok := sniffQuiz(text); ok {
			t.Skip("generated a valid quiz")
		}
		c := Classify(text)
		md, ok := c.(Markdown)
		if !ok {
			t.Fatalf("expected Markdown for %q, got %T", text, c)
		}
		if md.Text != text {
			t.Fatalf("markdown text modified: got %q, want %q", md.Text, text)
		}
	})
}

func TestClassifyIsDeterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.String().Draw(t, "text")
		a, b := Classify(text), Classify(text)
		if a.Kind() != b.Kind() {
			t.Fatalf("kind changed between calls: %s vs %s", a.Kind(), b.Kind())
		}
	})
}

func TestClassifyExamples(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Kind
	}{
		{"plain markdown", "**Osmosis** is the movement of water.", KindMarkdown},
		{"empty", "", KindMarkdown},
		{"fenced quiz", "```json\n[{\"question\":\"2+2?\",\"options\":[\"3\",\"4\"],\"answer\":1}]\n```", KindQuiz},
		{"bare quiz", `[{"question":"Capital of France?","options":["Paris","Rome"]}]`, KindQuiz},
		{"quiz with surrounding whitespace", "\n  [{\"question\":\"q\",\"options\":[]}]  \n", KindQuiz},
		{"empty array", "[]", KindMarkdown},
		{"array of strings", `["a","b"]`, KindMarkdown},
		{"null item", `[{"question":"q","options":["a"]}, null]`, KindMarkdown},
		{"blank question", `[{"question":"  ","options":["a"]}]`, KindMarkdown},
		{"options not array", `[{"question":"q","options":"a"}]`, KindMarkdown},
		{"two fences", "```json\n[{\"question\":\"q\",\"options\":[]}]\n```\nand\n```\ncode\n```", KindMarkdown},
		{"fenced prose", "```\nfmt.Println(\"hi\")\n```", KindMarkdown},
		{"quiz object from generator endpoint", `{"title":"t","questions":[]}`, KindMarkdown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.text).Kind(); got != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.text, got, tt.want)
			}
		})
	}
}

func TestClassifyFencedQuizFields(t *testing.T) {
	text := "```json\n[{\"question\":\"2+2?\",\"options\":[\"3\",\"4\"],\"answer\":1,\"explanation\":\"Basic sum.\"}," +
		"{\"question\":\"Largest planet?\",\"options\":[\"Mars\",\"Jupiter\"],\"answer\":9}]\n```"

	q, ok := Classify(text).(Quiz)
	if !ok {
		t.Fatal("expected Quiz")
	}
	if q.Items[0].Answer != 1 || q.Items[0].Explanation != "Basic sum." {
		t.Errorf("item 0: %+v", q.Items[0])
	}
	if q.Items[1].Answer != -1 {
		t.Errorf("out-of-range answer should be -1, got %d", q.Items[1].Answer)
	}
}

func TestClassifyTagged(t *testing.T) {
	quiz := `[{"question":"q","options":["a","b"]}]`

	if got := ClassifyTagged("markdown", quiz).Kind(); got != KindMarkdown {
		t.Errorf("explicit markdown tag: got %s", got)
	}
	if got := ClassifyTagged("quiz", quiz).Kind(); got != KindQuiz {
		t.Errorf("explicit quiz tag: got %s", got)
	}
	if got := ClassifyTagged("quiz", "not json").Kind(); got != KindMarkdown {
		t.Errorf("quiz tag on prose: got %s", got)
	}
	if got := ClassifyTagged("", quiz).Kind(); got != KindQuiz {
		t.Errorf("untagged quiz: got %s", got)
	}
	if got := ClassifyTagged("diagram", quiz).Kind(); got != KindMarkdown {
		t.Errorf("unknown tag: got %s", got)
	}
}

func TestAttemptScoring(t *testing.T) {
	q := Quiz{Items: []QuizItem{
		{Question: "2+2?", Options: []string{"3", "4"}, Answer: 1},
		{Question: "Red planet?", Options: []string{"Mars", "Venus", "Earth"}, Answer: 0},
		{Question: "Unknown key", Options: []string{"x", "y"}, Answer: -1},
	}}
	a := NewAttempt(q)

	if err := a.Select(0, 1); err != nil {
		t.Fatal(err)
	}
	if err := a.Select(1, 2); err != nil {
		t.Fatal(err)
	}
	if err := a.Submit(); !errors.Is(err, ErrQuizIncomplete) {
		t.Fatalf("expected ErrQuizIncomplete, got %v", err)
	}
	if err := a.Select(1, 0); err != nil { // change of mind before submission
		t.Fatal(err)
	}
	if err := a.Select(2, 0); err != nil {
		t.Fatal(err)
	}
	if err := a.Select(3, 0); !errors.Is(err, ErrNoSuchOption) {
		t.Errorf("expected ErrNoSuchOption, got %v", err)
	}
	if err := a.Submit(); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got := a.Score(); got != 2 {
		t.Errorf("Score: got %d, want 2", got)
	}
	if err := a.Select(0, 0); !errors.Is(err, ErrQuizSubmitted) {
		t.Errorf("expected ErrQuizSubmitted, got %v", err)
	}
	if o, _ := a.Selected(0); o != 1 {
		t.Errorf("selection changed after submit: %d", o)
	}
}

func TestOptionLetter(t *testing.T) {
	if OptionLetter(0) != "A" || OptionLetter(3) != "D" || OptionLetter(26) != "?" {
		t.Errorf("unexpected letters: %s %s %s", OptionLetter(0), OptionLetter(3), OptionLetter(26))
	}
}
