package outbox

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"errors"
	"os"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
)

var outboxMagic = []byte("DOBX1")

// persistedMessage is the JSON-serializable form of QueuedMessage; the
// encoding preserves slice order so per-peer FIFO order survives a
// restart.
type persistedMessage struct {
	MessageID     [16]byte `json:"message_id"`
	RecipientID   [32]byte `json:"recipient_id"`
	EnvelopeBytes []byte   `json:"envelope_bytes"`
	QueuedAtUnix  int64    `json:"queued_at"`
	Attempts      int      `json:"attempts"`
}

// Snapshot encrypts the outbox's full state with key (32 bytes) and
// writes it to path as MAGIC|nonce|u32 BE plaintext length|ciphertext,
// mirroring the node's
// encrypted-local-file convention for secrets at rest.
func (o *Outbox) Snapshot(path string, key []byte) error {
	o.mu.Lock()
	peers := make([][32]byte, 0, len(o.queues))
	for recipient := range o.queues {
		peers = append(peers, recipient)
	}
	all := make([]persistedMessage, 0, o.total)
	for _, recipient := range peers {
		for _, m := range o.queues[recipient] {
			all = append(all, persistedMessage{
				MessageID:     m.MessageID,
				RecipientID:   m.RecipientID,
				EnvelopeBytes: m.EnvelopeBytes,
				QueuedAtUnix:  m.QueuedAt.Unix(),
				Attempts:      m.Attempts,
			})
		}
	}
	o.mu.Unlock()

	plain, err := json.Marshal(all)
	if err != nil {
		return err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return err
	}
	ct := aead.Seal(nil, nonce, plain, nil)

	var lbuf [4]byte
	binary.BigEndian.PutUint32(lbuf[:], uint32(len(plain)))

	out := make([]byte, 0, len(outboxMagic)+len(nonce)+4+len(ct))
	out = append(out, outboxMagic...)
	out = append(out, nonce...)
	out = append(out, lbuf[:]...)
	out = append(out, ct...)
	return os.WriteFile(path, out, 0o600)
}

// LoadSnapshot decrypts path with key and rebuilds an Outbox, preserving
// each peer's FIFO order as it was written.
func LoadSnapshot(path string, key []byte, maxPerPeer, maxGlobal int) (*Outbox, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(maxPerPeer, maxGlobal), nil
		}
		return nil, err
	}
	minLen := len(outboxMagic) + chacha20poly1305.NonceSizeX + 4
	if len(b) < minLen {
		return nil, errors.New("outbox: snapshot file too short")
	}
	if string(b[:len(outboxMagic)]) != string(outboxMagic) {
		return nil, errors.New("outbox: bad snapshot magic")
	}
	off := len(outboxMagic)
	nonce := b[off : off+chacha20poly1305.NonceSizeX]
	off += chacha20poly1305.NonceSizeX
	off += 4 // plaintext length prefix, unused on read
	ct := b[off:]

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	plain, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, errors.New("outbox: snapshot decrypt failed")
	}

	var all []persistedMessage
	if err := json.Unmarshal(plain, &all); err != nil {
		return nil, err
	}

	ob := New(maxPerPeer, maxGlobal)
	for _, pm := range all {
		msg := &QueuedMessage{
			MessageID:     pm.MessageID,
			RecipientID:   pm.RecipientID,
			EnvelopeBytes: pm.EnvelopeBytes,
			QueuedAt:      time.Unix(pm.QueuedAtUnix, 0),
			Attempts:      pm.Attempts,
		}
		// bypass cap checks on restore: a prior run already admitted
		// these messages under its own caps.
		ob.queues[msg.RecipientID] = append(ob.queues[msg.RecipientID], msg)
		ob.byID[msg.MessageID] = msg
		ob.total++
	}
	return ob, nil
}
