package provider

import (
	"strings"

	"github.com/Johannes-Berggren/BranchPruner/internal/git"
	"github.com/Johannes-Berggren/BranchPruner/internal/locale"
)

const defaultPreview = 5

// Confirmation is a modal question with a single affirmative choice.
// Anything other than Button, including dismissal, cancels.
type Confirmation struct {
	Message string `json:"message"`
	Detail  string `json:"detail"`
	Button  string `json:"button"`
	Cancel  string `json:"cancel"`
}

// BuildConfirmation builds the delete confirmation for names. Up to
// preview names are listed by name; the command lines always cover every
// name.
func BuildConfirmation(m locale.Messages, names []string, preview int) Confirmation {
	if preview <= 0 {
		preview = defaultPreview
	}
	return Confirmation{
		Message: confirmationMessage(m, names, preview),
		Detail:  m.DeleteDetail,
		Button:  m.DeleteButton,
		Cancel:  m.CancelButton,
	}
}

func confirmationMessage(m locale.Messages, names []string, preview int) string {
	var b strings.Builder

	if len(names) == 1 {
		b.WriteString(m.DeleteConfirmSingle)
		b.WriteString("\n\n")
		b.WriteString(names[0])
		b.WriteString("\n\nThe following command will be executed:\n")
		b.WriteString(git.DeleteCommand(names[0]))
		return b.String()
	}

	b.WriteString(m.DeleteConfirmMultiple(len(names)))
	b.WriteString("\n\n")
	shown := names[:min(preview, len(names))]
	for i, name := range shown {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("• ")
		b.WriteString(name)
	}
	if remaining := len(names) - len(shown); remaining > 0 {
		b.WriteString("\n")
		b.WriteString(m.AndMore(remaining))
	}

	b.WriteString("\n\nThe following commands will be executed:\n")
	for i, name := range names {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(git.DeleteCommand(name))
	}
	return b.String()
}
