package assistant

import (
	"github.com/sashabaranov/go-openai"

	"vm-pathways/internal/models"
)

const (
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant

	contentTypeText = "text"
)

// MessageText returns the value of the message's first content part. ok is false when
// the message is empty or starts with a non-text part such as an image.
func MessageText(m openai.Message) (text string, ok bool) {
	if len(m.Content) == 0 {
		return "", false
	}
	first := m.Content[0]
	if first.Type != contentTypeText || first.Text == nil {
		return "", false
	}
	return first.Text.Value, true
}

// RunStatus converts the provider's run status into the domain enum.
func RunStatus(run openai.Run) models.RunStatus {
	return models.RunStatus(run.Status)
}
