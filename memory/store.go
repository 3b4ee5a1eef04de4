package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/agentswarm/core"
	"github.com/hupe1980/agentswarm/logging"
)

// DefaultMaxSize is the per-thread message cap applied when none is
// configured.
const DefaultMaxSize = 1000

// defaultThreadID receives messages added without a thread id.
const defaultThreadID = "default"

// Filter selects messages from the store. Zero-value fields match everything;
// set fields are combined with AND. Limit keeps only the most recent N
// messages after filtering, still returned in chronological order.
type Filter struct {
	ThreadID string
	Role     core.Role
	Before   time.Time
	After    time.Time
	Limit    int
}

func (f Filter) matches(m core.Message) bool {
	if f.Role != "" && m.Role != f.Role {
		return false
	}
	if !f.Before.IsZero() && !m.Timestamp.Before(f.Before) {
		return false
	}
	if !f.After.IsZero() && !m.Timestamp.After(f.After) {
		return false
	}
	return true
}

// Exchange is one user turn paired with the assistant response that answered
// it, as produced by ConversationSummary.
type Exchange struct {
	User         string
	Assistant    string
	HasToolCalls bool
}

// Options configures the store.
type Options struct {
	// MaxSize bounds each thread's history. Values below 1 fall back to
	// DefaultMaxSize.
	MaxSize int
	Logger  logging.Logger
}

// Store keeps per-thread conversation histories. It is safe for concurrent
// use and may be shared by any number of agents and threads. Reads hand out
// copies; callers cannot mutate stored messages.
type Store struct {
	mu      sync.RWMutex
	threads map[string][]core.Message
	maxSize int
	shared  *SharedState
	logger  logging.Logger
}

// New creates an empty store.
func New(optFns ...func(o *Options)) *Store {
	opts := Options{
		MaxSize: DefaultMaxSize,
		Logger:  logging.NewNoOpLogger(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxSize < 1 {
		opts.MaxSize = DefaultMaxSize
	}
	return &Store{
		threads: make(map[string][]core.Message),
		maxSize: opts.MaxSize,
		shared:  NewSharedState(),
		logger:  opts.Logger,
	}
}

// Shared returns the cross-agent scratchpad.
func (s *Store) Shared() *SharedState { return s.shared }

// AddMessage appends a message to its thread's history. Messages without a
// thread id land in the "default" thread. When a thread exceeds the size
// bound, its oldest messages are evicted; other threads are unaffected.
func (s *Store) AddMessage(m core.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	threadID := m.ThreadID
	if threadID == "" {
		threadID = defaultThreadID
		m.ThreadID = threadID
	}

	msgs := append(s.threads[threadID], m.Clone())
	if excess := len(msgs) - s.maxSize; excess > 0 {
		s.logger.Debug("evicting oldest messages", "threadID", threadID, "count", excess)
		msgs = msgs[excess:]
	}
	s.threads[threadID] = msgs
}

// Messages returns matching messages in chronological order. Without a
// ThreadID the histories of all threads are merged by timestamp.
func (s *Store) Messages(f Filter) []core.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.Message
	if f.ThreadID != "" {
		for _, m := range s.threads[f.ThreadID] {
			if f.matches(m) {
				out = append(out, m.Clone())
			}
		}
	} else {
		for _, msgs := range s.threads {
			for _, m := range msgs {
				if f.matches(m) {
					out = append(out, m.Clone())
				}
			}
		}
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Timestamp.Before(out[j].Timestamp)
		})
	}

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[len(out)-f.Limit:]
	}
	return out
}

// LastMessage returns the most recent message of a thread. An empty thread
// id spans all threads, by timestamp.
func (s *Store) LastMessage(threadID string) (core.Message, bool) {
	msgs := s.Messages(Filter{ThreadID: threadID, Limit: 1})
	if len(msgs) == 0 {
		return core.Message{}, false
	}
	return msgs[0], true
}

// MessagesByType returns the messages carrying the given type metadata, in
// chronological order. An empty thread id spans all threads.
func (s *Store) MessagesByType(metaType, threadID string) []core.Message {
	var out []core.Message
	for _, m := range s.Messages(Filter{ThreadID: threadID}) {
		if m.MessageType() == metaType {
			out = append(out, m)
		}
	}
	return out
}

// ToolResults returns the most recent tool result messages, capped at limit
// when limit > 0, in chronological order. An empty thread id spans all
// threads.
func (s *Store) ToolResults(threadID string, limit int) []core.Message {
	out := s.MessagesByType(core.MessageTypeToolResult, threadID)
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// ConversationSummary pairs each user message with the assistant response
// that followed it, most recent exchanges last, capped at limit (default 5).
// An exchange is flagged when tool calls happened between question and answer.
func (s *Store) ConversationSummary(threadID string, limit int) []Exchange {
	if limit < 1 {
		limit = 5
	}

	s.mu.RLock()
	msgs := s.threads[threadID]
	var exchanges []Exchange
	var current *Exchange
	for _, m := range msgs {
		switch m.MessageType() {
		case core.MessageTypeUser:
			if current != nil {
				exchanges = append(exchanges, *current)
			}
			current = &Exchange{User: m.Content}
		case core.MessageTypeAssistant:
			if current != nil {
				current.Assistant = m.Content
				exchanges = append(exchanges, *current)
				current = nil
			}
		case core.MessageTypeToolCallIntent, core.MessageTypeToolResult:
			if current != nil {
				current.HasToolCalls = true
			}
		}
	}
	if current != nil {
		exchanges = append(exchanges, *current)
	}
	s.mu.RUnlock()

	if len(exchanges) > limit {
		exchanges = exchanges[len(exchanges)-limit:]
	}
	return exchanges
}

// ThreadIDs returns the ids of all threads with history, sorted.
func (s *Store) ThreadIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.threads))
	for id := range s.threads {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ClearThread discards one thread's history.
func (s *Store) ClearThread(threadID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.threads, threadID)
}

// Clear discards all histories. The shared scratchpad is left untouched;
// clear it separately via Shared().Clear().
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads = make(map[string][]core.Message)
}

// FormatHistory renders a thread's history as "role: content" lines, useful
// for debugging and trace output.
func (s *Store) FormatHistory(threadID string, limit int) string {
	msgs := s.Messages(Filter{ThreadID: threadID, Limit: limit})
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, string(m.Role)+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}
