package core

import (
	"fmt"
	"sync"

	"github.com/quillhq/quill/llm"
)

// Store is the durable backing for one conversation. Implementations must
// persist appends synchronously; the file-backed implementation lives in the
// session package.
type Store interface {
	// Restore reads the persisted messages and token count, in order.
	// An empty store returns an empty slice, zero, and no error.
	Restore() ([]llm.Message, int, error)
	// AppendMessage durably records one message.
	AppendMessage(msg llm.Message) error
	// SaveTokenCount durably records the current token snapshot.
	SaveTokenCount(n int) error
}

// Context is the ordered, append-only message log for one session plus a
// cumulative input-token estimate. Every append is persisted before it
// becomes visible in memory, so a crash loses at most the in-flight step.
type Context struct {
	store      Store
	messages   []llm.Message
	tokenCount int
	mu         sync.RWMutex
}

// NewContext creates an empty Context over the given store.
func NewContext(store Store) *Context {
	return &Context{store: store}
}

// Restore loads prior messages and the token count from the store. Call it
// once before first use; restoring an empty store yields empty state.
func (c *Context) Restore() error {
	messages, tokenCount, err := c.store.Restore()
	if err != nil {
		return fmt.Errorf("restore conversation: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = messages
	c.tokenCount = tokenCount
	return nil
}

// AppendMessage persists msg and then appends it to the in-memory log. On a
// store failure the message is not appended anywhere, so durable and
// in-memory state never diverge.
func (c *Context) AppendMessage(msg llm.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.AppendMessage(msg); err != nil {
		return fmt.Errorf("persist message: %w", err)
	}
	c.messages = append(c.messages, msg)
	return nil
}

// UpdateTokenCount sets the input-token estimate to n. Each completion
// response reports the absolute input size it consumed, so this is a
// snapshot replace, not an accumulator. The estimate never decreases.
func (c *Context) UpdateTokenCount(n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n <= c.tokenCount {
		return nil
	}
	if err := c.store.SaveTokenCount(n); err != nil {
		return fmt.Errorf("persist token count: %w", err)
	}
	c.tokenCount = n
	return nil
}

// History returns a snapshot copy of the ordered message sequence.
func (c *Context) History() []llm.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]llm.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// TokenCount returns the current input-token estimate.
func (c *Context) TokenCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokenCount
}

// Len returns the number of messages in the log.
func (c *Context) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}
