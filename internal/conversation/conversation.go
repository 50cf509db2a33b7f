// Package conversation holds the ordered message log passed to the provider.
package conversation

import "time"

// Roles understood by every provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry in a conversation. Duplicate content is valid;
// ordering carries the meaning.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Context is an append-only message sequence. The agent runtime builds a
// working Context per invocation, distinct from the persisted session
// history, so ephemeral system instructions never reach storage.
type Context struct {
	messages []Message
}

// NewContext creates an empty context.
func NewContext() *Context {
	return &Context{}
}

// Add appends a message. Messages are never reordered or pruned.
func (c *Context) Add(msg Message) {
	c.messages = append(c.messages, msg)
}

// AddSystem appends a system message.
func (c *Context) AddSystem(content string) {
	c.Add(Message{Role: RoleSystem, Content: content, CreatedAt: time.Now()})
}

// AddUser appends a user message.
func (c *Context) AddUser(content string) {
	c.Add(Message{Role: RoleUser, Content: content, CreatedAt: time.Now()})
}

// AddAssistant appends an assistant message.
func (c *Context) AddAssistant(content string) {
	c.Add(Message{Role: RoleAssistant, Content: content, CreatedAt: time.Now()})
}

// Messages returns the ordered messages. Callers must not mutate the slice.
func (c *Context) Messages() []Message {
	return c.messages
}

// Len returns the number of messages.
func (c *Context) Len() int {
	return len(c.messages)
}
