package chat

import (
	"fmt"
	"strings"

	"example.com/arctic-chat/internal/models"
)

const (
	turnStart = "<|im_start|>"
	turnEnd   = "<|im_end|>"
)

// BuildPrompt сериализует историю в один промпт для модели.
// Промпт заканчивается маркером хода ассистента.
func BuildPrompt(turns []models.Turn) string {
	parts := make([]string, 0, len(turns)+2)
	for _, turn := range turns {
		role := models.RoleAssistant
		if turn.Role == models.RoleUser {
			role = models.RoleUser
		}
		parts = append(parts, turnStart+string(role)+"\n"+turn.Content+turnEnd)
	}

	parts = append(parts, turnStart+string(models.RoleAssistant), "")
	return strings.Join(parts, "\n")
}

// OverflowMessage возвращает текст ошибки о превышении лимита токенов.
func OverflowMessage(maxTokens int) string {
	return fmt.Sprintf("Conversation length too long. Please keep it under %d tokens.", maxTokens)
}
