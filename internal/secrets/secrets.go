// Package secrets seals the node's identity seed and a symmetric master
// key (LedgerKey) into a single passphrase-protected file at rest.
package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"os"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

var bundleMagic = []byte("DSEC1")

var (
	ErrBundleTooShort = errors.New("secrets: bundle file too short")
	ErrBadMagic       = errors.New("secrets: bad bundle magic")
	ErrWrongPassphrase = errors.New("secrets: decrypt failed, wrong passphrase or corrupted file")
)

// Bundle holds the two long-lived secrets a node must keep at rest:
// the Ed25519 seed it derives its identity from, and a symmetric key from
// which DeriveSubkey derives per-store keys. The peer ledger itself is
// saved as plain JSON and is not encrypted with this key.
type Bundle struct {
	IdentitySeed []byte `json:"identity_seed"`
	LedgerKey    []byte `json:"ledger_key"`
}

// kdf derives a 32-byte key from passphrase and salt using Argon2id,
// m=64 MiB, t=2, p=1.
func kdf(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 2, 64*1024, 1, 32)
}

// Seal encrypts bundle into path as MAGIC|salt|nonce|plaintext-length|ciphertext.
func Seal(path string, passphrase []byte, bundle *Bundle) error {
	plain, err := json.Marshal(bundle)
	if err != nil {
		return err
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return err
	}
	key := kdf(passphrase, salt)

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

	out := make([]byte, 0, len(bundleMagic)+len(salt)+len(nonce)+4+len(ct))
	out = append(out, bundleMagic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, lbuf[:]...)
	out = append(out, ct...)
	return os.WriteFile(path, out, 0o600)
}

// Open decrypts the bundle at path using passphrase.
func Open(path string, passphrase []byte) (*Bundle, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	minLen := len(bundleMagic) + 16 + chacha20poly1305.NonceSizeX + 4
	if len(b) < minLen {
		return nil, ErrBundleTooShort
	}
	if string(b[:len(bundleMagic)]) != string(bundleMagic) {
		return nil, ErrBadMagic
	}
	off := len(bundleMagic)
	salt := b[off : off+16]
	off += 16
	nonce := b[off : off+chacha20poly1305.NonceSizeX]
	off += chacha20poly1305.NonceSizeX
	off += 4 // plaintext length prefix, unused on decrypt
	ct := b[off:]

	key := kdf(passphrase, salt)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	plain, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, ErrWrongPassphrase
	}

	var bundle Bundle
	if err := json.Unmarshal(plain, &bundle); err != nil {
		return nil, err
	}
	return &bundle, nil
}

// DeriveSubkey expands bundle.LedgerKey into an independent 32-byte key
// for purpose, via HKDF-SHA256, so the same root secret never serves as
// the raw AEAD key for two different on-disk stores.
func DeriveSubkey(masterKey []byte, purpose string) ([32]byte, error) {
	var out [32]byte
	hk := hkdf.New(sha256.New, masterKey, nil, []byte(purpose))
	if _, err := io.ReadFull(hk, out[:]); err != nil {
		return out, err
	}
	return out, nil
}

// GenerateBundle produces a fresh identity seed and ledger key.
func GenerateBundle() (*Bundle, error) {
	seed := make([]byte, 32)
	if _, err := rand.Read(seed); err != nil {
		return nil, err
	}
	ledgerKey := make([]byte, 32)
	if _, err := rand.Read(ledgerKey); err != nil {
		return nil, err
	}
	return &Bundle{IdentitySeed: seed, LedgerKey: ledgerKey}, nil
}
