// Package privacy implements onion-wrapped envelopes, diversity-aware
// circuit building, and cover traffic generation.
package privacy

import (
	"crypto/rand"
	"encoding/binary"
	"errors"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"lukechampine.com/blake3"
)

const MaxOnionHops = 5

const (
	onionLayerKeyContext   = "SCMessenger-onion-layer-key-v1"
	onionLayerNonceContext = "SCMessenger-onion-layer-nonce-v1"
)

var (
	ErrTooManyHops  = errors.New("privacy: path exceeds max onion hops")
	ErrEmptyPath    = errors.New("privacy: onion path must not be empty")
	ErrPeelFailed   = errors.New("privacy: failed to peel onion layer")
)

// OnionLayer is one nested layer of an onion envelope.
type OnionLayer struct {
	EphemeralPublicKey  [32]byte
	EncryptedRoutingInfo []byte // empty => this layer is the destination
	EncryptedPayload    []byte
}

func deriveLayerKey(shared []byte) [32]byte {
	var key [32]byte
	blake3.DeriveKey(key[:], onionLayerKeyContext, shared)
	return key
}

func deriveLayerNonce(shared []byte) [24]byte {
	var buf [32]byte
	blake3.DeriveKey(buf[:], onionLayerNonceContext, shared)
	var nonce [24]byte
	copy(nonce[:], buf[:24])
	return nonce
}

// deriveRoutingNonce derives a second nonce, independent of
// deriveLayerNonce, for the encrypted_routing_info field of a relay layer.
// A layer with both routing_info and payload fields must not encrypt them
// under the same (key, nonce) pair — doing so reuses a ChaCha20 keystream
// across two distinct plaintexts. Both nonces remain pure functions of the
// shared secret, preserving the spec's documented nonce-determinism
// trade-off while keeping the two fields independently keyed.
func deriveRoutingNonce(shared []byte) [24]byte {
	var buf [32]byte
	blake3.DeriveKey(buf[:], onionLayerNonceContext+"-routing", shared)
	var nonce [24]byte
	copy(nonce[:], buf[:24])
	return nonce
}

func sealLayer(ephSecret []byte, peerPub [32]byte, plaintext []byte) (ephPub [32]byte, ciphertext []byte, err error) {
	pub, err := curve25519.X25519(ephSecret, curve25519.Basepoint)
	if err != nil {
		return ephPub, nil, err
	}
	copy(ephPub[:], pub)

	shared, err := curve25519.X25519(ephSecret, peerPub[:])
	if err != nil {
		return ephPub, nil, err
	}
	key := deriveLayerKey(shared)
	nonce := deriveLayerNonce(shared)

	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return ephPub, nil, err
	}
	ciphertext = aead.Seal(nil, nonce[:], plaintext, nil)
	return ephPub, ciphertext, nil
}

// encodeLayer serializes an OnionLayer for nesting as the payload of the
// next layer out: [32] ephemeral, u16 LE routingLen,
// routing bytes, u16 LE payloadLen, payload bytes.
func encodeLayer(l *OnionLayer) []byte {
	buf := make([]byte, 0, 32+2+len(l.EncryptedRoutingInfo)+2+len(l.EncryptedPayload))
	buf = append(buf, l.EphemeralPublicKey[:]...)
	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(l.EncryptedRoutingInfo)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, l.EncryptedRoutingInfo...)
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(l.EncryptedPayload)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, l.EncryptedPayload...)
	return buf
}

func decodeLayer(buf []byte) (*OnionLayer, error) {
	if len(buf) < 32+2 {
		return nil, ErrPeelFailed
	}
	l := &OnionLayer{}
	copy(l.EphemeralPublicKey[:], buf[:32])
	off := 32
	routingLen := int(binary.LittleEndian.Uint16(buf[off:]))
	off += 2
	if len(buf) < off+routingLen+2 {
		return nil, ErrPeelFailed
	}
	l.EncryptedRoutingInfo = append([]byte(nil), buf[off:off+routingLen]...)
	off += routingLen
	payloadLen := int(binary.LittleEndian.Uint16(buf[off:]))
	off += 2
	if len(buf) < off+payloadLen {
		return nil, ErrPeelFailed
	}
	l.EncryptedPayload = append([]byte(nil), buf[off:off+payloadLen]...)
	return l, nil
}

// ConstructOnion builds the onion innermost-first. path is
// [hop1, hop2, ..., hopN, destination] X25519 public keys; the last entry
// is the destination.
func ConstructOnion(path [][32]byte, payload []byte) (*OnionLayer, error) {
	if len(path) == 0 {
		return nil, ErrEmptyPath
	}
	if len(path) > MaxOnionHops+1 {
		return nil, ErrTooManyHops
	}

	destination := path[len(path)-1]
	var ephSecret [32]byte
	if _, err := rand.Read(ephSecret[:]); err != nil {
		return nil, err
	}
	ephPub, ct, err := sealLayer(ephSecret[:], destination, payload)
	if err != nil {
		return nil, err
	}
	current := &OnionLayer{EphemeralPublicKey: ephPub, EncryptedRoutingInfo: nil, EncryptedPayload: ct}

	for i := len(path) - 2; i >= 0; i-- {
		hop := path[i]
		nextHopKey := path[i+1]

		if _, err := rand.Read(ephSecret[:]); err != nil {
			return nil, err
		}
		innerBytes := encodeLayer(current)

		pub, err := curve25519.X25519(ephSecret[:], curve25519.Basepoint)
		if err != nil {
			return nil, err
		}
		var ephPub [32]byte
		copy(ephPub[:], pub)

		shared, err := curve25519.X25519(ephSecret[:], hop[:])
		if err != nil {
			return nil, err
		}
		key := deriveLayerKey(shared)
		aead, err := chacha20poly1305.NewX(key[:])
		if err != nil {
			return nil, err
		}
		routingNonce := deriveRoutingNonce(shared)
		routingCT := aead.Seal(nil, routingNonce[:], nextHopKey[:], nil)
		payloadNonce := deriveLayerNonce(shared)
		payloadCT := aead.Seal(nil, payloadNonce[:], innerBytes, nil)

		current = &OnionLayer{EphemeralPublicKey: ephPub, EncryptedRoutingInfo: routingCT, EncryptedPayload: payloadCT}
	}
	return current, nil
}

// PeelLayer decrypts one layer using the relay's X25519 secret key. A nil
// next-hop key signals that this node is the destination; payload is then
// plaintext. Otherwise the returned bytes deserialize into the next
// OnionLayer to forward.
func PeelLayer(layer *OnionLayer, relaySecretKey [32]byte) (nextHop *[32]byte, payload []byte, err error) {
	shared, err := curve25519.X25519(relaySecretKey[:], layer.EphemeralPublicKey[:])
	if err != nil {
		return nil, nil, ErrPeelFailed
	}
	key := deriveLayerKey(shared)
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, nil, ErrPeelFailed
	}

	if len(layer.EncryptedRoutingInfo) == 0 {
		nonce := deriveLayerNonce(shared)
		pt, err := aead.Open(nil, nonce[:], layer.EncryptedPayload, nil)
		if err != nil {
			return nil, nil, ErrPeelFailed
		}
		return nil, pt, nil
	}

	routingNonce := deriveRoutingNonce(shared)
	routingPT, err := aead.Open(nil, routingNonce[:], layer.EncryptedRoutingInfo, nil)
	if err != nil {
		return nil, nil, ErrPeelFailed
	}
	payloadNonce := deriveLayerNonce(shared)
	innerBytes, err := aead.Open(nil, payloadNonce[:], layer.EncryptedPayload, nil)
	if err != nil {
		return nil, nil, ErrPeelFailed
	}
	var next [32]byte
	copy(next[:], routingPT)

	return &next, innerBytes, nil
}
