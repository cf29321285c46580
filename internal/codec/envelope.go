// Package codec implements Drift's bit-exact wire envelope: a fixed
// 186-byte header plus ciphertext. The byte offsets are the off* constants
// below.
package codec

import (
	"crypto/ed25519"
	"encoding/binary"
	"errors"

	"github.com/driftmesh/drift/internal/driftcrypto"
)

// RecipientHintFor returns the routing hint for pk (first 4 bytes of
// blake3(pk)).
func RecipientHintFor(pk ed25519.PublicKey) [4]byte {
	return driftcrypto.RecipientHint(pk)
}

type EnvelopeType uint8

const (
	TypeEncryptedMessage   EnvelopeType = 0x01
	TypeDeliveryReceipt    EnvelopeType = 0x02
	TypeSyncRequest        EnvelopeType = 0x03
	TypeSyncResponse       EnvelopeType = 0x04
	TypePeerAnnouncement   EnvelopeType = 0x05
	TypeRouteAdvertisement EnvelopeType = 0x06
)

func (t EnvelopeType) valid() bool {
	switch t {
	case TypeEncryptedMessage, TypeDeliveryReceipt, TypeSyncRequest,
		TypeSyncResponse, TypePeerAnnouncement, TypeRouteAdvertisement:
		return true
	}
	return false
}

const (
	CurrentVersion = 1

	HeaderSize       = 186
	MaxCiphertextLen = 65535
	MaxEnvelopeSize  = HeaderSize + MaxCiphertextLen

	offVersion       = 0
	offType          = 1
	offMessageID     = 2
	offRecipientHint = 18
	offCreatedAt     = 22
	offTTLExpiry     = 26
	offHopCount      = 30
	offPriority      = 31
	offSenderPK      = 32
	offEphemeralPK   = 64
	offNonce         = 96
	offSignature     = 120
	offCiphertextLen = 184
	offCiphertext    = 186
)

var (
	ErrBufferTooShort      = errors.New("codec: buffer too short")
	ErrInvalidVersion      = errors.New("codec: invalid version")
	ErrInvalidEnvelopeType = errors.New("codec: invalid envelope type")
	ErrCiphertextTooLarge  = errors.New("codec: ciphertext too large")
)

// Envelope is the parsed form of a DriftEnvelope on the wire.
type Envelope struct {
	Version             uint8
	Type                EnvelopeType
	MessageID           [16]byte
	RecipientHint       [4]byte
	CreatedAt           uint32
	TTLExpiry           uint32
	HopCount            uint8
	Priority            uint8
	SenderPublicKey     [32]byte
	EphemeralPublicKey  [32]byte
	Nonce               [24]byte
	Signature           [64]byte
	Ciphertext          []byte
}

// signedPrefix returns the canonical serialization of every field that
// precedes the signature, plus the ciphertext-length prefix and ciphertext
// bytes — the payload Sign/Verify operate over.
func (e *Envelope) signedPrefix() []byte {
	buf := make([]byte, offSignature+2+len(e.Ciphertext))
	buf[offVersion] = e.Version
	buf[offType] = uint8(e.Type)
	copy(buf[offMessageID:], e.MessageID[:])
	copy(buf[offRecipientHint:], e.RecipientHint[:])
	binary.LittleEndian.PutUint32(buf[offCreatedAt:], e.CreatedAt)
	binary.LittleEndian.PutUint32(buf[offTTLExpiry:], e.TTLExpiry)
	buf[offHopCount] = e.HopCount
	buf[offPriority] = e.Priority
	copy(buf[offSenderPK:], e.SenderPublicKey[:])
	copy(buf[offEphemeralPK:], e.EphemeralPublicKey[:])
	copy(buf[offNonce:], e.Nonce[:])
	binary.LittleEndian.PutUint16(buf[offSignature:], uint16(len(e.Ciphertext)))
	copy(buf[offSignature+2:], e.Ciphertext)
	return buf
}

// SignedPayload exposes the bytes that Sign/Verify (driftcrypto) operate
// over.
func (e *Envelope) SignedPayload() []byte { return e.signedPrefix() }

// Sign computes and stores e.Signature using senderPriv. senderPriv's
// public key must equal e.SenderPublicKey.
func (e *Envelope) Sign(senderPriv ed25519.PrivateKey) {
	sig := ed25519.Sign(senderPriv, e.SignedPayload())
	copy(e.Signature[:], sig)
}

// Verify checks e.Signature against e.SenderPublicKey.
func (e *Envelope) Verify() bool {
	return ed25519.Verify(e.SenderPublicKey[:], e.SignedPayload(), e.Signature[:])
}

// ToBytes serializes e to the fixed wire layout.
func (e *Envelope) ToBytes() ([]byte, error) {
	if len(e.Ciphertext) > MaxCiphertextLen {
		return nil, ErrCiphertextTooLarge
	}
	buf := make([]byte, HeaderSize+len(e.Ciphertext))
	buf[offVersion] = e.Version
	buf[offType] = uint8(e.Type)
	copy(buf[offMessageID:], e.MessageID[:])
	copy(buf[offRecipientHint:], e.RecipientHint[:])
	binary.LittleEndian.PutUint32(buf[offCreatedAt:], e.CreatedAt)
	binary.LittleEndian.PutUint32(buf[offTTLExpiry:], e.TTLExpiry)
	buf[offHopCount] = e.HopCount
	buf[offPriority] = e.Priority
	copy(buf[offSenderPK:], e.SenderPublicKey[:])
	copy(buf[offEphemeralPK:], e.EphemeralPublicKey[:])
	copy(buf[offNonce:], e.Nonce[:])
	copy(buf[offSignature:], e.Signature[:])
	binary.LittleEndian.PutUint16(buf[offCiphertextLen:], uint16(len(e.Ciphertext)))
	copy(buf[offCiphertext:], e.Ciphertext)
	return buf, nil
}

// FromBytes parses buf into an Envelope.
func FromBytes(buf []byte) (*Envelope, error) {
	if len(buf) < HeaderSize {
		return nil, ErrBufferTooShort
	}
	version := buf[offVersion]
	if version != CurrentVersion {
		return nil, ErrInvalidVersion
	}
	typ := EnvelopeType(buf[offType])
	if !typ.valid() {
		return nil, ErrInvalidEnvelopeType
	}
	ctLen := int(binary.LittleEndian.Uint16(buf[offCiphertextLen:]))
	if len(buf) < HeaderSize+ctLen {
		return nil, ErrBufferTooShort
	}

	e := &Envelope{
		Version:   version,
		Type:      typ,
		CreatedAt: binary.LittleEndian.Uint32(buf[offCreatedAt:]),
		TTLExpiry: binary.LittleEndian.Uint32(buf[offTTLExpiry:]),
		HopCount:  buf[offHopCount],
		Priority:  buf[offPriority],
	}
	copy(e.MessageID[:], buf[offMessageID:offMessageID+16])
	copy(e.RecipientHint[:], buf[offRecipientHint:offRecipientHint+4])
	copy(e.SenderPublicKey[:], buf[offSenderPK:offSenderPK+32])
	copy(e.EphemeralPublicKey[:], buf[offEphemeralPK:offEphemeralPK+32])
	copy(e.Nonce[:], buf[offNonce:offNonce+24])
	copy(e.Signature[:], buf[offSignature:offSignature+64])
	e.Ciphertext = append([]byte(nil), buf[offCiphertext:offCiphertext+ctLen]...)
	return e, nil
}

// IncrementHop increments e.HopCount, saturating at 255.
func (e *Envelope) IncrementHop() {
	if e.HopCount < 255 {
		e.HopCount++
	}
}

// IsExpired reports whether e has passed its TTL as of now (unix seconds).
// A TTLExpiry of 0 means "never expires".
func (e *Envelope) IsExpired(now uint32) bool {
	if e.TTLExpiry == 0 {
		return false
	}
	return now > e.TTLExpiry
}
