package sync

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeOfferRoundTrip(t *testing.T) {
	o := &SyncOffer{IBLTBytes: []byte{1, 2, 3}, MessageCount: 5, SketchCapacity: 40}
	decoded, err := DecodeSyncMessage(EncodeOffer(o))
	require.NoError(t, err)
	require.Equal(t, o, decoded)
}

func TestEncodeDecodeResponseRoundTrip(t *testing.T) {
	r := &SyncResponse{
		IBLTBytes:        []byte{9, 9},
		MessageCount:     2,
		MissingEnvelopes: [][]byte{{1}, {2, 2}, {3, 3, 3}},
	}
	decoded, err := DecodeSyncMessage(EncodeResponse(r))
	require.NoError(t, err)
	require.Equal(t, r, decoded)
}

func TestEncodeDecodeCompleteRoundTrip(t *testing.T) {
	c := &SyncComplete{MissingEnvelopes: [][]byte{{7, 7}}}
	decoded, err := DecodeSyncMessage(EncodeComplete(c))
	require.NoError(t, err)
	require.Equal(t, c, decoded)
}

func TestDecodeSyncMessageRejectsUnknownKind(t *testing.T) {
	_, err := DecodeSyncMessage([]byte{99, 1, 2, 3})
	require.ErrorIs(t, err, ErrUnknownSyncMessageKind)
}

func TestDecodeSyncMessageRejectsEmpty(t *testing.T) {
	_, err := DecodeSyncMessage(nil)
	require.ErrorIs(t, err, ErrTruncatedSyncMessage)
}
