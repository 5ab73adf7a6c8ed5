package core

import (
	"errors"
	"testing"

	"github.com/quillhq/quill/llm"
)

// memStore is an in-memory Store for tests.
type memStore struct {
	messages   []llm.Message
	tokens     int
	failAppend bool
	failTokens bool
}

var errStoreBroken = errors.New("store broken")

func (s *memStore) Restore() ([]llm.Message, int, error) {
	out := make([]llm.Message, len(s.messages))
	copy(out, s.messages)
	return out, s.tokens, nil
}

func (s *memStore) AppendMessage(msg llm.Message) error {
	if s.failAppend {
		return errStoreBroken
	}
	s.messages = append(s.messages, msg)
	return nil
}

func (s *memStore) SaveTokenCount(n int) error {
	if s.failTokens {
		return errStoreBroken
	}
	s.tokens = n
	return nil
}

func TestContextAppendPersistsFirst(t *testing.T) {
	store := &memStore{}
	convo := NewContext(store)

	if err := convo.AppendMessage(llm.UserMessage("hello")); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	if len(store.messages) != 1 {
		t.Fatalf("expected 1 persisted message, got %d", len(store.messages))
	}
	if convo.Len() != 1 {
		t.Fatalf("expected 1 in-memory message, got %d", convo.Len())
	}
}

func TestContextAppendFailureLeavesStateConsistent(t *testing.T) {
	store := &memStore{failAppend: true}
	convo := NewContext(store)

	err := convo.AppendMessage(llm.UserMessage("hello"))
	if err == nil {
		t.Fatal("expected append error")
	}
	if !errors.Is(err, errStoreBroken) {
		t.Errorf("expected wrapped store error, got %v", err)
	}
	if convo.Len() != 0 {
		t.Error("failed append must not be visible in memory")
	}
	if len(store.messages) != 0 {
		t.Error("failed append must not be persisted")
	}
}

func TestContextRestoreIdempotence(t *testing.T) {
	store := &memStore{}
	convo := NewContext(store)
	if err := convo.Restore(); err != nil {
		t.Fatalf("Restore on empty store: %v", err)
	}
	if convo.Len() != 0 || convo.TokenCount() != 0 {
		t.Fatal("empty store should restore to empty state")
	}

	seed := []llm.Message{
		llm.UserMessage("one"),
		llm.AssistantMessage("two"),
		llm.UserMessage("three"),
	}
	for _, msg := range seed {
		if err := convo.AppendMessage(msg); err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}
	}
	if err := convo.UpdateTokenCount(42); err != nil {
		t.Fatalf("UpdateTokenCount: %v", err)
	}

	// A freshly constructed Context over the same store yields the exact
	// persisted sequence.
	fresh := NewContext(store)
	if err := fresh.Restore(); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	history := fresh.History()
	if len(history) != len(seed) {
		t.Fatalf("expected %d messages, got %d", len(seed), len(history))
	}
	for i, msg := range history {
		if msg.TextContent() != seed[i].TextContent() {
			t.Errorf("message %d: expected %q, got %q", i, seed[i].TextContent(), msg.TextContent())
		}
	}
	if fresh.TokenCount() != 42 {
		t.Errorf("expected token count 42, got %d", fresh.TokenCount())
	}

	// Appending more and restoring again yields the original plus the new,
	// in order.
	if err := fresh.AppendMessage(llm.AssistantMessage("four")); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	again := NewContext(store)
	if err := again.Restore(); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if again.Len() != 4 {
		t.Fatalf("expected 4 messages after second restore, got %d", again.Len())
	}
	if got := again.History()[3].TextContent(); got != "four" {
		t.Errorf("expected appended message last, got %q", got)
	}
}

func TestContextTokenCountMonotonic(t *testing.T) {
	store := &memStore{}
	convo := NewContext(store)

	if err := convo.UpdateTokenCount(100); err != nil {
		t.Fatalf("UpdateTokenCount: %v", err)
	}
	if err := convo.UpdateTokenCount(250); err != nil {
		t.Fatalf("UpdateTokenCount: %v", err)
	}
	if convo.TokenCount() != 250 {
		t.Errorf("expected snapshot replace to 250, got %d", convo.TokenCount())
	}

	// A smaller report never lowers the estimate.
	if err := convo.UpdateTokenCount(10); err != nil {
		t.Fatalf("UpdateTokenCount: %v", err)
	}
	if convo.TokenCount() != 250 {
		t.Errorf("estimate decreased to %d", convo.TokenCount())
	}
}

func TestContextHistoryIsSnapshot(t *testing.T) {
	store := &memStore{}
	convo := NewContext(store)
	if err := convo.AppendMessage(llm.UserMessage("original")); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	history := convo.History()
	history[0] = llm.UserMessage("mutated")

	if got := convo.History()[0].TextContent(); got != "original" {
		t.Errorf("mutating the snapshot changed the log: %q", got)
	}
}
