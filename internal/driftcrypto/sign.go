package driftcrypto

import (
	"crypto/ed25519"
	"errors"
)

var (
	ErrInvalidSignatureLength = errors.New("driftcrypto: invalid signature length")
	ErrVerificationFailed     = errors.New("driftcrypto: signature verification failed")
)

// Sign signs payload (the canonical serialization of an envelope's
// preceding fields plus ciphertext, built by the codec package) with the
// sender's Ed25519 key.
func Sign(senderPriv ed25519.PrivateKey, payload []byte) []byte {
	return ed25519.Sign(senderPriv, payload)
}

// Verify checks sig over payload against senderPub. A relay can call this
// without ever touching the AEAD key.
func Verify(senderPub ed25519.PublicKey, payload, sig []byte) error {
	if len(sig) != ed25519.SignatureSize {
		return ErrInvalidSignatureLength
	}
	if !ed25519.Verify(senderPub, payload, sig) {
		return ErrVerificationFailed
	}
	return nil
}

// RecipientHint returns the first 4 bytes of blake3(pk), Drift's short
// routing tag for a public key.
func RecipientHint(pk ed25519.PublicKey) [4]byte {
	return recipientHint(pk)
}
