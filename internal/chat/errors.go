package chat

import "fmt"

// ValidationError reports bad input caught before any backend call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NoticeLevel grades a user-facing notice.
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeSuccess
	NoticeError
)

// Notice is a short, transient message for the user, the terminal
// equivalent of a toast.
type Notice struct {
	Level NoticeLevel
	Text  string
}

// Notifier receives notices. It is called outside the controller's lock.
type Notifier func(Notice)

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// Always approves without asking; used for --yes.
var Always Confirmer = ConfirmFunc(func(string) bool { return true })
