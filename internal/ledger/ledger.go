// Package ledger persists known peer addresses and their connect history
// to a JSON document on disk, with an exponential reconnect backoff.
package ledger

import (
	"encoding/json"
	"math"
	"os"
	"sync"
	"time"
)

const currentVersion = 1

// LedgerEntry records one stripped multiaddr's connect history.
type LedgerEntry struct {
	Address             string    `json:"address"`
	Multiaddr           string    `json:"multiaddr"`
	LastPeerID          string    `json:"last_peer_id,omitempty"`
	ObservedPeerIDs     []string  `json:"observed_peer_ids"`
	LastSeen            uint64    `json:"last_seen"`
	FirstSeen           uint64    `json:"first_seen"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	BackoffSeconds      int       `json:"backoff_seconds"`
	NextAttemptAfter    uint64    `json:"next_attempt_after"`
	IsBootstrap         bool      `json:"is_bootstrap"`
	KnownTopics         []string  `json:"known_topics"`
	Label               string    `json:"label,omitempty"`
}

type document struct {
	Entries    map[string]*LedgerEntry `json:"entries"`
	Version    uint32                  `json:"version"`
	LastSaved  uint64                  `json:"last_saved"`
}

// Ledger is the in-memory, mutex-guarded peer address book.
type Ledger struct {
	mu      sync.Mutex
	entries map[string]*LedgerEntry
}

func New() *Ledger {
	return &Ledger{entries: make(map[string]*LedgerEntry)}
}

// Backoff implements min(5*2^(fails-1), 300) seconds, for fails >= 1.
func Backoff(consecutiveFailures int) int {
	if consecutiveFailures <= 0 {
		return 0
	}
	seconds := 5 * math.Pow(2, float64(consecutiveFailures-1))
	if seconds > 300 {
		seconds = 300
	}
	return int(seconds)
}

// RecordSuccess clears backoff state and bumps last_seen for address.
func (l *Ledger) RecordSuccess(strippedMultiaddr, multiaddr, peerID string, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[strippedMultiaddr]
	if !ok {
		e = &LedgerEntry{
			Address:   strippedMultiaddr,
			Multiaddr: multiaddr,
			FirstSeen: uint64(now.Unix()),
		}
		l.entries[strippedMultiaddr] = e
	}
	e.Multiaddr = multiaddr
	e.LastSeen = uint64(now.Unix())
	e.ConsecutiveFailures = 0
	e.BackoffSeconds = 0
	e.NextAttemptAfter = 0
	if peerID != "" {
		e.LastPeerID = peerID
		if !containsString(e.ObservedPeerIDs, peerID) {
			e.ObservedPeerIDs = append(e.ObservedPeerIDs, peerID)
		}
	}
}

// RecordFailure increments the failure streak and recomputes backoff.
func (l *Ledger) RecordFailure(strippedMultiaddr string, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[strippedMultiaddr]
	if !ok {
		return
	}
	e.ConsecutiveFailures++
	e.BackoffSeconds = Backoff(e.ConsecutiveFailures)
	e.NextAttemptAfter = uint64(now.Unix()) + uint64(e.BackoffSeconds)
}

// Eligible reports whether strippedMultiaddr may be dialed at now: no
// entry (never attempted), or its backoff window has elapsed.
func (l *Ledger) Eligible(strippedMultiaddr string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[strippedMultiaddr]
	if !ok {
		return true
	}
	return uint64(now.Unix()) >= e.NextAttemptAfter
}

func (l *Ledger) Get(strippedMultiaddr string) (LedgerEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[strippedMultiaddr]
	if !ok {
		return LedgerEntry{}, false
	}
	return *e, true
}

// Shareable returns SharedPeerEntry-eligible addresses: seen within the
// last 7 days, or flagged as bootstrap. Private backoff state never
// leaves this method's copies.
func (l *Ledger) Shareable(now time.Time) []LedgerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := uint64(now.Add(-7 * 24 * time.Hour).Unix())
	out := make([]LedgerEntry, 0, len(l.entries))
	for _, e := range l.entries {
		if e.IsBootstrap || e.LastSeen >= cutoff {
			c := *e
			c.ConsecutiveFailures = 0
			c.BackoffSeconds = 0
			c.NextAttemptAfter = 0
			out = append(out, c)
		}
	}
	return out
}

// Save writes the ledger to path as pretty JSON.
func (l *Ledger) Save(path string, now time.Time) error {
	l.mu.Lock()
	doc := document{Entries: l.entries, Version: currentVersion, LastSaved: uint64(now.Unix())}
	l.mu.Unlock()

	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}

// Load reads a ledger document from path, or returns an empty Ledger if
// the file does not exist.
func Load(path string) (*Ledger, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, err
	}
	var doc document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	if doc.Entries == nil {
		doc.Entries = make(map[string]*LedgerEntry)
	}
	return &Ledger{entries: doc.Entries}, nil
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
