package driftcrypto

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"
)

func genKey(t *testing.T) (ed25519.PrivateKey, ed25519.PublicKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return priv, pub
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	aliceSK, _ := genKey(t)
	bobSK, bobPK := genKey(t)

	env, err := Encrypt(aliceSK, bobPK, []byte("Hi Bob"))
	require.NoError(t, err)

	pt, err := Decrypt(bobSK, env)
	require.NoError(t, err)
	require.Equal(t, "Hi Bob", string(pt))
}

func TestTamperedSenderPublicKeyFailsDecrypt(t *testing.T) {
	aliceSK, _ := genKey(t)
	bobSK, bobPK := genKey(t)

	env, err := Encrypt(aliceSK, bobPK, []byte("Hi Bob"))
	require.NoError(t, err)

	env.SenderPublicKey[0] ^= 0xFF
	_, err = Decrypt(bobSK, env)
	require.ErrorIs(t, err, ErrDecryptFailed)
}

func TestWrongRecipientFailsDecrypt(t *testing.T) {
	aliceSK, _ := genKey(t)
	_, bobPK := genKey(t)
	eveSK, _ := genKey(t)

	env, err := Encrypt(aliceSK, bobPK, []byte("Hi Bob"))
	require.NoError(t, err)

	_, err = Decrypt(eveSK, env)
	require.ErrorIs(t, err, ErrDecryptFailed)
}

func TestTamperedCiphertextFailsDecrypt(t *testing.T) {
	aliceSK, _ := genKey(t)
	bobSK, bobPK := genKey(t)

	env, err := Encrypt(aliceSK, bobPK, []byte("Hi Bob"))
	require.NoError(t, err)

	env.Ciphertext[0] ^= 0xFF
	_, err = Decrypt(bobSK, env)
	require.ErrorIs(t, err, ErrDecryptFailed)
}

func TestSignVerify(t *testing.T) {
	aliceSK, alicePK := genKey(t)
	payload := []byte("canonical envelope bytes")

	sig := Sign(aliceSK, payload)
	require.NoError(t, Verify(alicePK, payload, sig))

	tampered := append([]byte(nil), payload...)
	tampered[0] ^= 0xFF
	require.ErrorIs(t, Verify(alicePK, tampered, sig), ErrVerificationFailed)

	_, otherPK := genKey(t)
	require.ErrorIs(t, Verify(otherPK, payload, sig), ErrVerificationFailed)
}

func TestRecipientHintIsFourBytes(t *testing.T) {
	_, pk := genKey(t)
	hint := RecipientHint(pk)
	require.Len(t, hint, 4)
}
