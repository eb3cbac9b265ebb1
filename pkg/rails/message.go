package rails

import (
	"errors"
	"fmt"
)

// Role is the role for a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UserMessage builds a user turn.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds an assistant turn.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

var (
	// ErrInvalidConfig marks every configuration loading or validation failure.
	ErrInvalidConfig = errors.New("invalid rails configuration")
	// ErrInvalidConversation marks a conversation that cannot be generated from.
	ErrInvalidConversation = errors.New("invalid conversation")
)

// Stage is the point of the pipeline where a flow runs.
type Stage string

const (
	StageInput     Stage = "input"
	StageRetrieval Stage = "retrieval"
	StageOutput    Stage = "output"
)

// Action is the outcome of a single flow.
type Action string

const (
	ActionAllow  Action = "allow"
	ActionModify Action = "modify"
	ActionBlock  Action = "block"
)

// Activation records one flow execution during a generation.
type Activation struct {
	Flow   string `json:"flow"`
	Stage  Stage  `json:"stage"`
	Action Action `json:"action"`
	Reason string `json:"reason,omitempty"`
}

// Response is the result of a generation. It is either structured (Message
// set) or raw (Raw set); Content handles both shapes.
type Response struct {
	Message   *Message
	Raw       any
	Activated []Activation
	RequestID string
}

// Content returns the message content for structured responses and the
// printed raw value otherwise.
func (r Response) Content() string {
	if r.Message != nil {
		return r.Message.Content
	}
	if r.Raw == nil {
		return ""
	}
	if s, ok := r.Raw.(string); ok {
		return s
	}
	return fmt.Sprint(r.Raw)
}

// Blocked reports whether any flow refused the exchange.
func (r Response) Blocked() bool {
	for _, a := range r.Activated {
		if a.Action == ActionBlock {
			return true
		}
	}
	return false
}

func validateConversation(messages []Message) error {
	if len(messages) == 0 {
		return fmt.Errorf("%w: no messages", ErrInvalidConversation)
	}
	for i, msg := range messages {
		switch msg.Role {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			return fmt.Errorf("%w: invalid message role at index %d: %q", ErrInvalidConversation, i, msg.Role)
		}
	}
	last := messages[len(messages)-1]
	if last.Role != RoleUser {
		return fmt.Errorf("%w: last message must be a user turn, got %q", ErrInvalidConversation, last.Role)
	}
	return nil
}
