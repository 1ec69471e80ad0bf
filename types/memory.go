package types

import "github.com/google/uuid"

// Media represents an attachment carried by a message.
type Media struct {
	ID          string `json:"id" yaml:"id"`
	URL         string `json:"url" yaml:"url"`
	Title       string `json:"title" yaml:"title"`
	Source      string `json:"source" yaml:"source"`
	Description string `json:"description" yaml:"description"`
	Text        string `json:"text" yaml:"text"`
	ContentType string `json:"contentType,omitempty" yaml:"contentType,omitempty"`
}

// Content is the payload of a memory. Extra is the escape hatch for fields
// that only specific actions or clients understand.
type Content struct {
	Text        string         `json:"text" yaml:"text"`
	Action      string         `json:"action,omitempty" yaml:"action,omitempty"`
	Source      string         `json:"source,omitempty" yaml:"source,omitempty"`
	URL         string         `json:"url,omitempty" yaml:"url,omitempty"`
	InReplyTo   uuid.UUID      `json:"inReplyTo,omitempty" yaml:"inReplyTo,omitempty"`
	Attachments []Media        `json:"attachments,omitempty" yaml:"attachments,omitempty"`
	Extra       map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Memory is a stored message or event scoped to a room and an agent.
type Memory struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	AgentID   uuid.UUID `json:"agentId"`
	RoomID    uuid.UUID `json:"roomId"`
	Content   Content   `json:"content"`
	Embedding []float32 `json:"embedding,omitempty"`
	// CreatedAt is the creation time in unix milliseconds.
	CreatedAt  int64   `json:"createdAt,omitempty"`
	Unique     bool    `json:"unique,omitempty"`
	Similarity float64 `json:"similarity,omitempty"`
}

// HasEmbedding reports whether the memory already carries a vector.
func (m *Memory) HasEmbedding() bool {
	return len(m.Embedding) > 0
}

// MessageExample is one turn of an example conversation.
type MessageExample struct {
	User    string  `json:"user" yaml:"user"`
	Content Content `json:"content" yaml:"content"`
}

// ActionExample is an example used to prompt for an action or evaluator.
type ActionExample = MessageExample

// EvaluationExample documents an evaluator with a context, messages and the expected outcome.
type EvaluationExample struct {
	Context  string          `json:"context" yaml:"context"`
	Messages []ActionExample `json:"messages" yaml:"messages"`
	Outcome  string          `json:"outcome" yaml:"outcome"`
}

// Well-known memory table names.
const (
	TableMessages     = "messages"
	TableDescriptions = "descriptions"
	TableLore         = "lore"
	TableDocuments    = "documents"
	TableFragments    = "fragments"
	TableKnowledge    = "knowledge"
)
