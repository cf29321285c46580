package privacy

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/curve25519"
)

func genKeypair(t *testing.T) (secret, public [32]byte) {
	t.Helper()
	_, err := rand.Read(secret[:])
	require.NoError(t, err)
	pub, err := curve25519.X25519(secret[:], curve25519.Basepoint)
	require.NoError(t, err)
	copy(public[:], pub)
	return secret, public
}

func TestConstructOnionRejectsEmptyPath(t *testing.T) {
	_, err := ConstructOnion(nil, []byte("hi"))
	require.ErrorIs(t, err, ErrEmptyPath)
}

func TestConstructOnionRejectsTooManyHops(t *testing.T) {
	path := make([][32]byte, MaxOnionHops+2)
	_, err := ConstructOnion(path, []byte("hi"))
	require.ErrorIs(t, err, ErrTooManyHops)
}

func TestOnionSingleHopRoundTrip(t *testing.T) {
	destSecret, destPub := genKeypair(t)
	payload := []byte("single hop payload")

	layer, err := ConstructOnion([][32]byte{destPub}, payload)
	require.NoError(t, err)
	require.Empty(t, layer.EncryptedRoutingInfo)

	next, pt, err := PeelLayer(layer, destSecret)
	require.NoError(t, err)
	require.Nil(t, next)
	require.Equal(t, payload, pt)
}

func TestOnionMultiHopRoundTrip(t *testing.T) {
	hop1Secret, hop1Pub := genKeypair(t)
	hop2Secret, hop2Pub := genKeypair(t)
	hop3Secret, hop3Pub := genKeypair(t)
	destSecret, destPub := genKeypair(t)
	payload := []byte("multi hop secret payload")

	layer, err := ConstructOnion([][32]byte{hop1Pub, hop2Pub, hop3Pub, destPub}, payload)
	require.NoError(t, err)
	require.NotEmpty(t, layer.EncryptedRoutingInfo)

	next, forwardBytes, err := PeelLayer(layer, hop1Secret)
	require.NoError(t, err)
	require.NotNil(t, next)
	require.Equal(t, hop2Pub, *next)

	layer2, err := decodeLayer(forwardBytes)
	require.NoError(t, err)
	next, forwardBytes, err = PeelLayer(layer2, hop2Secret)
	require.NoError(t, err)
	require.Equal(t, hop3Pub, *next)

	layer3, err := decodeLayer(forwardBytes)
	require.NoError(t, err)
	next, forwardBytes, err = PeelLayer(layer3, hop3Secret)
	require.NoError(t, err)
	require.Equal(t, destPub, *next)

	layer4, err := decodeLayer(forwardBytes)
	require.NoError(t, err)
	next, pt, err := PeelLayer(layer4, destSecret)
	require.NoError(t, err)
	require.Nil(t, next)
	require.Equal(t, payload, pt)
}

func TestOnionWrongKeyFailsToPeel(t *testing.T) {
	_, destPub := genKeypair(t)
	wrongSecret, _ := genKeypair(t)

	layer, err := ConstructOnion([][32]byte{destPub}, []byte("payload"))
	require.NoError(t, err)

	_, _, err = PeelLayer(layer, wrongSecret)
	require.Error(t, err)
}

func TestRoutingInfoAndPayloadCiphertextsDiffer(t *testing.T) {
	_, hopPub := genKeypair(t)
	_, destPub := genKeypair(t)

	layer, err := ConstructOnion([][32]byte{hopPub, destPub}, []byte("payload"))
	require.NoError(t, err)
	require.NotEqual(t, layer.EncryptedRoutingInfo, layer.EncryptedPayload)
}

func TestConstructOnionProducesFreshEphemeralKeys(t *testing.T) {
	_, destPub := genKeypair(t)
	l1, err := ConstructOnion([][32]byte{destPub}, []byte("a"))
	require.NoError(t, err)
	l2, err := ConstructOnion([][32]byte{destPub}, []byte("a"))
	require.NoError(t, err)
	require.NotEqual(t, l1.EphemeralPublicKey, l2.EphemeralPublicKey)
}
