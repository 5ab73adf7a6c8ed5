package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/quillhq/quill/llm"
)

// record is one line of the history file. Exactly one payload field is set,
// discriminated by Kind.
type record struct {
	Kind       string       `json:"kind"` // "message" or "token_count"
	Message    *llm.Message `json:"message,omitempty"`
	TokenCount int          `json:"token_count,omitempty"`
}

// HistoryStore is the file-backed durable store for one session's
// conversation: an append-only JSONL log of messages interleaved with
// token-count snapshots. It implements core.Store.
type HistoryStore struct {
	path string
}

// NewHistoryStore creates a store over the given history file. The file is
// created on first append.
func NewHistoryStore(path string) *HistoryStore {
	return &HistoryStore{path: path}
}

// Restore replays the log, returning the ordered messages and the last
// token-count snapshot. A missing file yields empty state.
func (s *HistoryStore) Restore() ([]llm.Message, int, error) {
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("open history: %w", err)
	}
	defer f.Close()

	var messages []llm.Message
	tokenCount := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var rec record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, 0, fmt.Errorf("history line %d: %w", line, err)
		}
		switch rec.Kind {
		case "message":
			if rec.Message != nil {
				messages = append(messages, *rec.Message)
			}
		case "token_count":
			tokenCount = rec.TokenCount
		default:
			return nil, 0, fmt.Errorf("history line %d: unknown record kind %q", line, rec.Kind)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read history: %w", err)
	}
	return messages, tokenCount, nil
}

// AppendMessage durably appends one message record.
func (s *HistoryStore) AppendMessage(msg llm.Message) error {
	return s.appendRecord(record{Kind: "message", Message: &msg})
}

// SaveTokenCount durably appends a token-count snapshot record.
func (s *HistoryStore) SaveTokenCount(n int) error {
	return s.appendRecord(record{Kind: "token_count", TokenCount: n})
}

func (s *HistoryStore) appendRecord(rec record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode history record: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append history record: %w", err)
	}
	// The append must be durable before the message is considered part of
	// the conversation.
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync history: %w", err)
	}
	return nil
}
