package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single chat message. ImageURL is set on assistant turns that
// were followed by an image generation call.
type Turn struct {
	Role     Role   `json:"role"`
	Content  string `json:"content"`
	ImageURL string `json:"image_url,omitempty"`
}

type Snapshot struct {
	ID          uuid.UUID `json:"id"`
	Turns       []Turn    `json:"turns"`
	Temperature float64   `json:"temperature"`
	TopP        float64   `json:"top_p"`
	Aborted     bool      `json:"aborted"`
	Responding  bool      `json:"responding"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// LastTurn возвращает последний ход снимка.
func (s Snapshot) LastTurn() (Turn, bool) {
	if len(s.Turns) == 0 {
		return Turn{}, false
	}

	return s.Turns[len(s.Turns)-1], true
}

// GenerationLog describes one pass of the response driver.
type GenerationLog struct {
	SessionID    uuid.UUID
	Provider     string
	Model        string
	Prompt       string
	PromptTokens int
	Temperature  float64
	TopP         float64
	Response     string
	ImageURL     string
	Aborted      bool
	Success      bool
	ErrorMessage *string
	Latency      time.Duration
}
