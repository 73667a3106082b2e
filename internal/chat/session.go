package chat

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"example.com/arctic-chat/internal/models"
)

const (
	DefaultGreeting    = "Hi. I'm Arctic, a new, efficient, intelligent, and truly open language model created by Snowflake AI Research. Ask me anything."
	DefaultTemperature = 0.3
	DefaultTopP        = 0.9

	MinTemperature = 0.01
	MaxTemperature = 5.0
	MinTopP        = 0.01
	MaxTopP        = 1.0
)

// Session holds the turn history and generation parameters of one chat.
// History always starts with the greeting and alternates user/assistant turns.
type Session struct {
	mu          sync.Mutex
	id          uuid.UUID
	greeting    string
	turns       []models.Turn
	temperature float64
	topP        float64
	aborted     bool
	responding  bool
	updatedAt   time.Time
}

// NewSession создает сессию с приветствием и параметрами по умолчанию.
func NewSession(id uuid.UUID, greeting string) *Session {
	if strings.TrimSpace(greeting) == "" {
		greeting = DefaultGreeting
	}

	s := &Session{
		id:          id,
		greeting:    greeting,
		temperature: DefaultTemperature,
		topP:        DefaultTopP,
	}
	s.resetLocked()
	return s
}

// ID возвращает идентификатор сессии.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Reset обрезает историю до приветствия и снимает флаг aborted.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetLocked()
}

// ResetIfIdle сбрасывает сессию, если ответ не генерируется, иначе возвращает ErrBusy.
func (s *Session) ResetIfIdle() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.responding {
		return ErrBusy
	}

	s.resetLocked()
	return nil
}

func (s *Session) resetLocked() {
	s.turns = []models.Turn{{Role: models.RoleAssistant, Content: s.greeting}}
	s.aborted = false
	s.touchLocked()
}

// AppendUserTurn добавляет ход пользователя.
func (s *Session) AppendUserTurn(content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.aborted {
		return ErrAborted
	}
	if s.responding {
		return ErrBusy
	}
	if s.lastRoleLocked() == models.RoleUser {
		return ErrOutOfTurn
	}

	s.turns = append(s.turns, models.Turn{Role: models.RoleUser, Content: content})
	s.touchLocked()
	return nil
}

// AppendAssistantPlaceholder добавляет пустой ход ассистента перед стримингом.
func (s *Session) AppendAssistantPlaceholder() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastRoleLocked() == models.RoleAssistant {
		return ErrOutOfTurn
	}

	s.turns = append(s.turns, models.Turn{Role: models.RoleAssistant})
	s.touchLocked()
	return nil
}

// AppendToLastAssistant дописывает фрагмент к последнему ходу ассистента.
func (s *Session) AppendToLastAssistant(delta string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastRoleLocked() != models.RoleAssistant {
		return ErrNotAssistant
	}

	last := &s.turns[len(s.turns)-1]
	last.Content += delta
	s.touchLocked()
	return nil
}

// Abort показывает сообщение об ошибке и блокирует ввод до сброса.
func (s *Session) Abort(message string) error {
	if strings.TrimSpace(message) == "" {
		return ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastRoleLocked() == models.RoleAssistant {
		last := &s.turns[len(s.turns)-1]
		last.Content = message
		last.ImageURL = ""
	} else {
		s.turns = append(s.turns, models.Turn{Role: models.RoleAssistant, Content: message})
	}

	s.aborted = true
	s.touchLocked()
	return nil
}

// AttachImage сохраняет ссылку на изображение в последнем ходе ассистента.
func (s *Session) AttachImage(url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastRoleLocked() != models.RoleAssistant {
		return ErrNotAssistant
	}

	s.turns[len(s.turns)-1].ImageURL = url
	s.touchLocked()
	return nil
}

// SetParameters обновляет temperature и top_p с проверкой диапазонов.
func (s *Session) SetParameters(temperature, topP float64) error {
	if temperature < MinTemperature || temperature > MaxTemperature {
		return fmt.Errorf("%w: temperature must be within [%.2f, %.2f]", ErrInvalidParameter, MinTemperature, MaxTemperature)
	}
	if topP < MinTopP || topP > MaxTopP {
		return fmt.Errorf("%w: top_p must be within [%.2f, %.2f]", ErrInvalidParameter, MinTopP, MaxTopP)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.temperature = temperature
	s.topP = topP
	s.touchLocked()
	return nil
}

// Parameters возвращает текущие temperature и top_p.
func (s *Session) Parameters() (float64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.temperature, s.topP
}

// Turns возвращает копию истории.
func (s *Session) Turns() []models.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Aborted сообщает, ожидает ли сессия сброса.
func (s *Session) Aborted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.aborted
}

// Snapshot возвращает копию состояния для отображения.
func (s *Session) Snapshot() models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := make([]models.Turn, len(s.turns))
	copy(turns, s.turns)

	return models.Snapshot{
		ID:          s.id,
		Turns:       turns,
		Temperature: s.temperature,
		TopP:        s.topP,
		Aborted:     s.aborted,
		Responding:  s.responding,
		UpdatedAt:   s.updatedAt,
	}
}

// begin переводит сессию в состояние Responding.
func (s *Session) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.responding {
		return ErrBusy
	}

	s.responding = true
	return nil
}

func (s *Session) end() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.responding = false
	s.touchLocked()
}

func (s *Session) isResponding() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.responding
}

func (s *Session) lastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updatedAt
}

func (s *Session) lastRoleLocked() models.Role {
	if len(s.turns) == 0 {
		return ""
	}

	return s.turns[len(s.turns)-1].Role
}

func (s *Session) touchLocked() {
	s.updatedAt = time.Now().UTC()
}
