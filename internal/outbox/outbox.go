// Package outbox implements the per-peer FIFO send queue and the
// dedup-on-receive inbox log.
package outbox

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultMaxPerPeer = 1000
	DefaultMaxGlobal  = 10000
)

var (
	ErrPeerQueueFull = errors.New("outbox: per-peer queue full")
	ErrGlobalFull    = errors.New("outbox: global queue full")
	ErrNotFound      = errors.New("outbox: message not found")
)

// QueuedMessage is one pending send.
type QueuedMessage struct {
	MessageID     uuid.UUID
	RecipientID   [32]byte
	EnvelopeBytes []byte
	QueuedAt      time.Time
	Attempts      int
}

// Outbox maps recipient to a FIFO of queued messages, in memory.
type Outbox struct {
	mu         sync.Mutex
	maxPerPeer int
	maxGlobal  int
	queues     map[[32]byte][]*QueuedMessage
	byID       map[uuid.UUID]*QueuedMessage
	total      int
}

func New(maxPerPeer, maxGlobal int) *Outbox {
	return &Outbox{
		maxPerPeer: maxPerPeer,
		maxGlobal:  maxGlobal,
		queues:     make(map[[32]byte][]*QueuedMessage),
		byID:       make(map[uuid.UUID]*QueuedMessage),
	}
}

// Enqueue appends to the recipient's FIFO, enforcing per-peer and global
// caps.
func (o *Outbox) Enqueue(msg *QueuedMessage) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.total >= o.maxGlobal {
		return ErrGlobalFull
	}
	if len(o.queues[msg.RecipientID]) >= o.maxPerPeer {
		return ErrPeerQueueFull
	}
	o.queues[msg.RecipientID] = append(o.queues[msg.RecipientID], msg)
	o.byID[msg.MessageID] = msg
	o.total++
	return nil
}

// PeekForPeer returns up to limit messages from the front of the
// recipient's queue without removing them. limit<=0 means no bound.
func (o *Outbox) PeekForPeer(recipient [32]byte, limit int) []*QueuedMessage {
	o.mu.Lock()
	defer o.mu.Unlock()

	q := o.queues[recipient]
	if limit <= 0 || limit > len(q) {
		limit = len(q)
	}
	out := make([]*QueuedMessage, limit)
	copy(out, q[:limit])
	return out
}

// DrainForPeer removes and returns the entire FIFO for recipient.
func (o *Outbox) DrainForPeer(recipient [32]byte) []*QueuedMessage {
	o.mu.Lock()
	defer o.mu.Unlock()

	q := o.queues[recipient]
	delete(o.queues, recipient)
	for _, m := range q {
		delete(o.byID, m.MessageID)
	}
	o.total -= len(q)
	return q
}

// Remove deletes a single message by id, wherever its peer queue is.
func (o *Outbox) Remove(id uuid.UUID) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	msg, ok := o.byID[id]
	if !ok {
		return ErrNotFound
	}
	q := o.queues[msg.RecipientID]
	for i, m := range q {
		if m.MessageID == id {
			o.queues[msg.RecipientID] = append(q[:i], q[i+1:]...)
			break
		}
	}
	if len(o.queues[msg.RecipientID]) == 0 {
		delete(o.queues, msg.RecipientID)
	}
	delete(o.byID, id)
	o.total--
	return nil
}

// RecordAttempt increments the attempt counter for id.
func (o *Outbox) RecordAttempt(id uuid.UUID) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	msg, ok := o.byID[id]
	if !ok {
		return ErrNotFound
	}
	msg.Attempts++
	return nil
}

// RemoveExpired drops messages older than maxAge, returning how many were
// removed.
func (o *Outbox) RemoveExpired(now time.Time, maxAge time.Duration) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	removed := 0
	for recipient, q := range o.queues {
		kept := q[:0:0]
		for _, m := range q {
			if now.Sub(m.QueuedAt) > maxAge {
				delete(o.byID, m.MessageID)
				removed++
				continue
			}
			kept = append(kept, m)
		}
		if len(kept) == 0 {
			delete(o.queues, recipient)
		} else {
			o.queues[recipient] = kept
		}
	}
	o.total -= removed
	return removed
}

func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.total
}

// ReceivedMessage is an Inbox dedup record.
type ReceivedMessage struct {
	MessageID  uuid.UUID
	ReceivedAt time.Time
}

// Inbox is a dedup log keyed by message id.
type Inbox struct {
	mu   sync.Mutex
	seen map[uuid.UUID]ReceivedMessage
}

func NewInbox() *Inbox {
	return &Inbox{seen: make(map[uuid.UUID]ReceivedMessage)}
}

// Receive records msg if not already present. Returns false if it was a
// duplicate (idempotent no-op).
func (ib *Inbox) Receive(id uuid.UUID, now time.Time) bool {
	ib.mu.Lock()
	defer ib.mu.Unlock()

	if _, ok := ib.seen[id]; ok {
		return false
	}
	ib.seen[id] = ReceivedMessage{MessageID: id, ReceivedAt: now}
	return true
}

func (ib *Inbox) Len() int {
	ib.mu.Lock()
	defer ib.mu.Unlock()
	return len(ib.seen)
}
