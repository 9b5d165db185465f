package model

import (
	"strings"
	"time"
)

// Mode selects the conversation domain: prompt rules, disclaimers and fallbacks.
type Mode string

const (
	ModeMedical Mode = "medical"
	ModeTherapy Mode = "therapy"
	ModeRecipe  Mode = "recipe"
	ModeDental  Mode = "dental"
)

// ParseMode validates a wire-level mode string. Empty defaults to medical.
func ParseMode(s string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return ModeMedical, true
	case ModeMedical:
		return ModeMedical, true
	case ModeTherapy:
		return ModeTherapy, true
	case ModeRecipe:
		return ModeRecipe, true
	case ModeDental:
		return ModeDental, true
	}
	return "", false
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// MaxMessageLen is the upper bound on an inbound message body.
const MaxMessageLen = 8000

// ChatMessage is one turn of a conversation. Immutable after creation.
type ChatMessage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Role      Role      `json:"role"`
	Mode      Mode      `json:"mode"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewChatMessage constructs a message with the given ULID and stamps it.
func NewChatMessage(id, userID string, role Role, mode Mode, content string) *ChatMessage {
	return &ChatMessage{
		ID:        id,
		UserID:    userID,
		Role:      role,
		Mode:      mode,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}
