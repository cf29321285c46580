package codec

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleEnvelope() *Envelope {
	e := &Envelope{
		Version:    CurrentVersion,
		Type:       TypeEncryptedMessage,
		CreatedAt:  1000,
		TTLExpiry:  0,
		HopCount:   0,
		Priority:   10,
		Ciphertext: []byte("hello ciphertext"),
	}
	for i := range e.MessageID {
		e.MessageID[i] = byte(i)
	}
	for i := range e.SenderPublicKey {
		e.SenderPublicKey[i] = byte(i + 1)
	}
	return e
}

func TestRoundTrip(t *testing.T) {
	e := sampleEnvelope()
	b, err := e.ToBytes()
	require.NoError(t, err)

	got, err := FromBytes(b)
	require.NoError(t, err)
	require.Equal(t, e.MessageID, got.MessageID)
	require.Equal(t, e.Ciphertext, got.Ciphertext)
	require.Equal(t, e.CreatedAt, got.CreatedAt)
}

func TestFromBytesRejectsShortBuffer(t *testing.T) {
	_, err := FromBytes(make([]byte, HeaderSize-1))
	require.ErrorIs(t, err, ErrBufferTooShort)
}

func TestFromBytesRejectsTruncatedCiphertext(t *testing.T) {
	e := sampleEnvelope()
	b, err := e.ToBytes()
	require.NoError(t, err)
	_, err = FromBytes(b[:len(b)-1])
	require.ErrorIs(t, err, ErrBufferTooShort)
}

func TestFromBytesRejectsInvalidVersion(t *testing.T) {
	e := sampleEnvelope()
	b, err := e.ToBytes()
	require.NoError(t, err)
	b[offVersion] = 2
	_, err = FromBytes(b)
	require.ErrorIs(t, err, ErrInvalidVersion)
}

func TestFromBytesRejectsInvalidType(t *testing.T) {
	e := sampleEnvelope()
	b, err := e.ToBytes()
	require.NoError(t, err)
	b[offType] = 0xFF
	_, err = FromBytes(b)
	require.ErrorIs(t, err, ErrInvalidEnvelopeType)
}

func TestToBytesRejectsOversizeCiphertext(t *testing.T) {
	e := sampleEnvelope()
	e.Ciphertext = make([]byte, MaxCiphertextLen+1)
	_, err := e.ToBytes()
	require.ErrorIs(t, err, ErrCiphertextTooLarge)
}

func TestIncrementHopSaturates(t *testing.T) {
	e := sampleEnvelope()
	e.HopCount = 255
	e.IncrementHop()
	require.Equal(t, uint8(255), e.HopCount)
}

func TestIsExpired(t *testing.T) {
	e := sampleEnvelope()
	e.TTLExpiry = 0
	require.False(t, e.IsExpired(1_000_000))

	e.TTLExpiry = 100
	require.False(t, e.IsExpired(100))
	require.True(t, e.IsExpired(101))
}

func TestSignVerify(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	e := sampleEnvelope()
	copy(e.SenderPublicKey[:], pub)

	e.Sign(priv)
	require.True(t, e.Verify())

	e.Ciphertext[0] ^= 0xFF
	require.False(t, e.Verify())
}
