package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"aichat/internal/history/kvstore"
)

const (
	// DefaultMaxConversations bounds how many conversations are retained
	// before the oldest are evicted.
	DefaultMaxConversations = 50
	// maxTitleRunes is the display-title cap, counted in runes so multi-byte
	// prompts truncate cleanly.
	maxTitleRunes = 30

	titleEllipsis = "…"
	keyPrefix     = "chat_history"

	// schemaVersion tags the persisted envelope. Version 0 is the legacy
	// layout, a bare JSON array with no wrapper.
	schemaVersion = 1
)

// ErrNoMessages is returned when none of the submitted messages carry text
// or an image reference.
var ErrNoMessages = errors.New("history: no persistable messages")

type envelope struct {
	Version       int            `json:"version"`
	Conversations []Conversation `json:"conversations"`
}

// Store maintains the ordered, bounded collection of past conversations on
// top of a key-value persistence surface. The store owns every Conversation
// it holds; callers only ever receive copies and mutate through store
// operations. It is not safe for concurrent mutation of the same owner key
// without external coordination; last writer wins across processes.
type Store struct {
	kv      kvstore.KV
	maxSize int
	now     func() time.Time
}

// Options tunes the store. Zero values take defaults.
type Options struct {
	MaxConversations int
	Clock            func() time.Time
}

// NewStore builds a conversation store over the given persistence backend.
func NewStore(kv kvstore.KV, opts Options) *Store {
	maxSize := opts.MaxConversations
	if maxSize <= 0 {
		maxSize = DefaultMaxConversations
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &Store{kv: kv, maxSize: maxSize, now: now}
}

// List returns every stored conversation for owner in insertion order.
// Callers wanting recency-first order reverse at the presentation boundary.
func (s *Store) List(ctx context.Context, owner string) ([]Conversation, error) {
	list, err := s.load(ctx, owner)
	if err != nil {
		return nil, err
	}
	return cloneConversations(list), nil
}

// Load returns a snapshot of one conversation, reporting whether it exists.
func (s *Store) Load(ctx context.Context, owner, id string) (Conversation, bool, error) {
	list, err := s.load(ctx, owner)
	if err != nil {
		return Conversation{}, false, err
	}
	for _, c := range list {
		if c.ID == id {
			return cloneConversation(c), true, nil
		}
	}
	return Conversation{}, false, nil
}

// StartOrAppend appends messages to the conversation identified by activeID,
// or starts a new conversation when activeID is empty or no longer exists
// (for example, deleted from another tab sharing the same backend). The
// updated collection is persisted before returning.
func (s *Store) StartOrAppend(ctx context.Context, owner string, messages []Message, titleHint, activeID string) (Conversation, error) {
	now := s.now()
	kept := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Empty() {
			continue
		}
		if m.Timestamp == 0 {
			m.Timestamp = now.UnixMilli()
		}
		kept = append(kept, m)
	}
	if len(kept) == 0 {
		return Conversation{}, ErrNoMessages
	}

	list, err := s.load(ctx, owner)
	if err != nil {
		return Conversation{}, err
	}

	if activeID != "" {
		for i := range list {
			if list[i].ID != activeID {
				continue
			}
			list[i].Messages = append(list[i].Messages, kept...)
			list[i].Timestamp = now.UnixMilli()
			if err := s.save(ctx, owner, list); err != nil {
				return Conversation{}, err
			}
			return cloneConversation(list[i]), nil
		}
	}

	conv := Conversation{
		ID:        newConversationID(now),
		Title:     deriveTitle(kept, titleHint, now),
		Messages:  kept,
		Timestamp: now.UnixMilli(),
	}
	list = append(list, conv)
	if len(list) > s.maxSize {
		list = list[len(list)-s.maxSize:]
	}
	if err := s.save(ctx, owner, list); err != nil {
		return Conversation{}, err
	}
	return cloneConversation(conv), nil
}

// Rename overwrites the title of the matching conversation. Unknown ids are
// a silent no-op and leave the persisted collection untouched.
func (s *Store) Rename(ctx context.Context, owner, id, newTitle string) error {
	list, err := s.load(ctx, owner)
	if err != nil {
		return err
	}
	for i := range list {
		if list[i].ID == id {
			list[i].Title = newTitle
			return s.save(ctx, owner, list)
		}
	}
	return nil
}

// Delete removes the matching conversation. Unknown ids are a silent no-op.
func (s *Store) Delete(ctx context.Context, owner, id string) error {
	list, err := s.load(ctx, owner)
	if err != nil {
		return err
	}
	kept := list[:0]
	for _, c := range list {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(list) {
		return nil
	}
	return s.save(ctx, owner, kept)
}

// ClearAll empties the owner's collection.
func (s *Store) ClearAll(ctx context.Context, owner string) error {
	return s.save(ctx, owner, nil)
}

func (s *Store) load(ctx context.Context, owner string) ([]Conversation, error) {
	raw, ok, err := s.kv.Get(ctx, storageKey(owner))
	if err != nil {
		return nil, fmt.Errorf("history: load: %w", err)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "[") {
		// Legacy layout: a bare array with no version tag. Accepted as-is
		// and rewritten versioned on the next save.
		var list []Conversation
		if err := json.Unmarshal([]byte(trimmed), &list); err != nil {
			return nil, fmt.Errorf("history: decode legacy payload: %w", err)
		}
		return list, nil
	}
	var env envelope
	if err := json.Unmarshal([]byte(trimmed), &env); err != nil {
		return nil, fmt.Errorf("history: decode payload: %w", err)
	}
	if env.Version > schemaVersion {
		return nil, fmt.Errorf("history: unsupported schema version %d", env.Version)
	}
	return env.Conversations, nil
}

func (s *Store) save(ctx context.Context, owner string, list []Conversation) error {
	if list == nil {
		list = []Conversation{}
	}
	raw, err := json.Marshal(envelope{Version: schemaVersion, Conversations: list})
	if err != nil {
		return fmt.Errorf("history: encode payload: %w", err)
	}
	if err := s.kv.Set(ctx, storageKey(owner), string(raw)); err != nil {
		return fmt.Errorf("history: persist: %w", err)
	}
	return nil
}

func storageKey(owner string) string {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return keyPrefix
	}
	return keyPrefix + ":" + owner
}

// newConversationID builds a process-unique id from a monotonic timestamp
// plus random entropy.
func newConversationID(now time.Time) string {
	return "chat-" + strings.ToLower(ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String())
}

// deriveTitle picks a display title: the first user message with text, else
// the first message with any text, truncated to the cap; else a timestamped
// image label when only images are present; else the supplied hint.
func deriveTitle(messages []Message, hint string, now time.Time) string {
	for _, m := range messages {
		if m.Sender == SenderUser && m.Text != "" {
			return truncateTitle(m.Text)
		}
	}
	for _, m := range messages {
		if m.Text != "" {
			return truncateTitle(m.Text)
		}
	}
	for _, m := range messages {
		if m.ImageURL != "" {
			return "Image Chat " + now.Format("15:04:05")
		}
	}
	if hint != "" {
		return hint
	}
	return "Chat"
}

func truncateTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= maxTitleRunes {
		return text
	}
	return string(runes[:maxTitleRunes]) + titleEllipsis
}
