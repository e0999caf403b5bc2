package conversation

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/dataagent-cli/internal/chart"
)

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry. It is never modified after Append.
type Message struct {
	ID        string            `json:"id"`
	Seq       uint64            `json:"seq"`
	Role      Role              `json:"role"`
	Content   string            `json:"content"`
	Chart     *chart.Descriptor `json:"chart,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Transcript is an append-only log of messages. Seq starts at 1 and
// increases by one per append.
type Transcript struct {
	// notify serializes appends so subscribers observe Seq order.
	notify sync.Mutex
	mu     sync.RWMutex
	msgs   []Message
	subs   []func(Message)
	now    func() time.Time
}

func NewTranscript() *Transcript {
	return &Transcript{now: time.Now}
}

// Subscribe registers fn to be called, in append order, for every later append.
func (t *Transcript) Subscribe(fn func(Message)) {
	t.mu.Lock()
	t.subs = append(t.subs, fn)
	t.mu.Unlock()
}

// Append adds a message and returns the stored copy.
func (t *Transcript) Append(role Role, content string, c *chart.Descriptor) Message {
	t.notify.Lock()
	defer t.notify.Unlock()
	t.mu.Lock()
	msg := Message{
		ID:        uuid.NewString(),
		Seq:       uint64(len(t.msgs)) + 1,
		Role:      role,
		Content:   content,
		Chart:     cloneDescriptor(c),
		CreatedAt: t.now().UTC(),
	}
	t.msgs = append(t.msgs, msg)
	subs := t.subs
	t.mu.Unlock()

	for _, fn := range subs {
		fn(msg)
	}
	return msg
}

// Messages returns a copy of the whole transcript.
func (t *Transcript) Messages() []Message {
	return t.Since(0)
}

// Since returns the messages with Seq greater than seq.
func (t *Transcript) Since(seq uint64) []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if seq >= uint64(len(t.msgs)) {
		return []Message{}
	}
	out := make([]Message, len(t.msgs)-int(seq))
	copy(out, t.msgs[seq:])
	return out
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.msgs)
}

func cloneDescriptor(c *chart.Descriptor) *chart.Descriptor {
	if c == nil {
		return nil
	}
	d := *c
	d.Series = append([]chart.Series(nil), c.Series...)
	return &d
}
