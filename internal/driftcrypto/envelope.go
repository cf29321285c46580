// Package driftcrypto implements Drift's end-to-end message encryption:
// Ed25519 identities, Curve25519-derived X25519 ECDH, and XChaCha20-Poly1305
// authenticated encryption bound to the sender's public key.
package driftcrypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha512"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"lukechampine.com/blake3"
)

// KDFContext is the fixed, versioned context string mixed into the envelope
// AEAD key derivation. Changing it is a protocol break.
const KDFContext = "iron-core v2 message encryption 2026-02-05"

const (
	PublicKeySize  = 32
	NonceSize      = chacha20poly1305.NonceSizeX
	MaxPlaintext   = 65535 - chacha20poly1305.Overhead
)

// ErrDecryptFailed is returned for any AEAD failure: tampered ciphertext,
// mutated sender_public_key, or the wrong recipient key. The three cases
// are cryptographically indistinguishable and must stay that way.
var ErrDecryptFailed = errors.New("driftcrypto: decryption failed")

var ErrPlaintextTooLarge = errors.New("driftcrypto: plaintext too large")

// Envelope is the output of Encrypt: the pieces needed for the recipient to
// recover the plaintext, independent of the outer wire framing (codec.Envelope).
type Envelope struct {
	SenderPublicKey    [PublicKeySize]byte
	EphemeralPublicKey [PublicKeySize]byte
	Nonce              [NonceSize]byte
	Ciphertext         []byte
}

// edwardsToMontgomery converts an Ed25519 public key to its X25519
// (Montgomery-form) counterpart via the standard birational map.
func edwardsToMontgomery(edPub ed25519.PublicKey) ([PublicKeySize]byte, error) {
	var out [PublicKeySize]byte
	p, err := new(edwards25519.Point).SetBytes(edPub)
	if err != nil {
		return out, fmt.Errorf("driftcrypto: invalid ed25519 point: %w", err)
	}
	copy(out[:], p.BytesMontgomery())
	return out, nil
}

// x25519StaticSecret derives the recipient's X25519 static secret from its
// Ed25519 signing key: SHA-512 over the seed, first 32 bytes. The bytes are
// returned unclamped; curve25519.X25519 clamps the scalar when it is used.
func x25519StaticSecret(edPriv ed25519.PrivateKey) [PublicKeySize]byte {
	h := sha512.Sum512(edPriv.Seed())
	var secret [PublicKeySize]byte
	copy(secret[:], h[:PublicKeySize])
	return secret
}

func deriveKey(shared []byte) [32]byte {
	var key [32]byte
	blake3.DeriveKey(key[:], KDFContext, shared)
	return key
}

func recipientHint(pk ed25519.PublicKey) [4]byte {
	sum := blake3.Sum256(pk)
	var hint [4]byte
	copy(hint[:], sum[:4])
	return hint
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Encrypt produces an Envelope addressed to recipientPK, encrypting
// plaintext under a fresh ephemeral X25519 keypair and AEAD-binding
// senderPriv's public key as associated data.
func Encrypt(senderPriv ed25519.PrivateKey, recipientPK ed25519.PublicKey, plaintext []byte) (*Envelope, error) {
	if len(plaintext) > MaxPlaintext {
		return nil, ErrPlaintextTooLarge
	}
	recipientX, err := edwardsToMontgomery(recipientPK)
	if err != nil {
		return nil, err
	}

	var ephSecret [PublicKeySize]byte
	if _, err := rand.Read(ephSecret[:]); err != nil {
		return nil, fmt.Errorf("driftcrypto: ephemeral key gen: %w", err)
	}
	ephPub, err := curve25519.X25519(ephSecret[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("driftcrypto: ephemeral key gen: %w", err)
	}

	shared, err := curve25519.X25519(ephSecret[:], recipientX[:])
	if err != nil {
		return nil, fmt.Errorf("driftcrypto: ecdh: %w", err)
	}
	key := deriveKey(shared)
	zero(shared)
	defer zero(key[:])

	var nonce [NonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("driftcrypto: nonce gen: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, fmt.Errorf("driftcrypto: aead init: %w", err)
	}

	senderPub := senderPriv.Public().(ed25519.PublicKey)
	ct := aead.Seal(nil, nonce[:], plaintext, senderPub)

	env := &Envelope{Ciphertext: ct}
	copy(env.SenderPublicKey[:], senderPub)
	copy(env.EphemeralPublicKey[:], ephPub)
	env.Nonce = nonce
	zero(ephSecret[:])
	return env, nil
}

// Decrypt recovers the plaintext of env using recipientPriv. Any AEAD
// failure returns the single opaque ErrDecryptFailed.
func Decrypt(recipientPriv ed25519.PrivateKey, env *Envelope) ([]byte, error) {
	staticSecret := x25519StaticSecret(recipientPriv)
	shared, err := curve25519.X25519(staticSecret[:], env.EphemeralPublicKey[:])
	zero(staticSecret[:])
	if err != nil {
		return nil, ErrDecryptFailed
	}
	key := deriveKey(shared)
	zero(shared)
	defer zero(key[:])

	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, ErrDecryptFailed
	}
	pt, err := aead.Open(nil, env.Nonce[:], env.Ciphertext, env.SenderPublicKey[:])
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return pt, nil
}
