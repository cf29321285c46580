package meshstore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func clockAt(t uint32) func() uint32 {
	return func() uint32 { return t }
}

func env(id byte, createdAt, ttl uint32, hopCount, priority uint8) *StoredEnvelope {
	e := &StoredEnvelope{CreatedAt: createdAt, TTLExpiry: ttl, HopCount: hopCount, Priority: priority}
	e.MessageID[0] = id
	return e
}

func TestInsertIdempotent(t *testing.T) {
	s := New(10, clockAt(1000))
	e := env(1, 1000, 0, 0, 5)
	require.True(t, s.Insert(e))
	require.False(t, s.Insert(e))
	require.Equal(t, 1, s.Len())
}

func TestEvictsMinimumScoreOverCapacity(t *testing.T) {
	s := New(2, clockAt(1000))
	low := env(1, 1000, 0, 10, 1)
	mid := env(2, 1000, 0, 0, 50)
	high := env(3, 1000, 0, 0, 100)

	s.Insert(low)
	s.Insert(mid)
	s.Insert(high)

	require.Equal(t, 2, s.Len())
	require.False(t, s.Has(low.MessageID))
}

func TestRemoveExpired(t *testing.T) {
	s := New(10, clockAt(5000))
	neverExpires := env(1, 1000, 0, 0, 1)
	expired := env(2, 1000, 4999, 0, 1)
	notYet := env(3, 1000, 5001, 0, 1)

	s.Insert(neverExpires)
	s.Insert(expired)
	s.Insert(notYet)

	removed := s.RemoveExpired(5000)
	require.Equal(t, 1, removed)
	require.True(t, s.Has(neverExpires.MessageID))
	require.False(t, s.Has(expired.MessageID))
	require.True(t, s.Has(notYet.MessageID))
}

func TestMergeUnionsAndIsIdempotent(t *testing.T) {
	a := New(10, clockAt(1000))
	b := New(10, clockAt(1000))

	a.Insert(env(1, 1000, 0, 0, 1))
	b.Insert(env(1, 1000, 0, 0, 1))
	b.Insert(env(2, 1000, 0, 0, 1))

	a.Merge(b)
	require.Equal(t, 2, a.Len())

	a.Merge(b)
	require.Equal(t, 2, a.Len())
}

func TestByPriorityDescending(t *testing.T) {
	s := New(10, clockAt(1000))
	s.Insert(env(1, 1000, 0, 0, 1))
	s.Insert(env(2, 1000, 0, 0, 100))
	s.Insert(env(3, 1000, 0, 0, 50))

	ordered := s.ByPriority()
	require.Len(t, ordered, 3)
	require.Equal(t, byte(2), ordered[0].MessageID[0])
	require.Equal(t, byte(3), ordered[1].MessageID[0])
	require.Equal(t, byte(1), ordered[2].MessageID[0])
}

func TestMessagesForRecipient(t *testing.T) {
	s := New(10, clockAt(1000))
	e1 := env(1, 1000, 0, 0, 1)
	e1.RecipientHint = [4]byte{1, 2, 3, 4}
	e2 := env(2, 1000, 0, 0, 1)
	e2.RecipientHint = [4]byte{9, 9, 9, 9}

	s.Insert(e1)
	s.Insert(e2)

	got := s.MessagesForRecipient([4]byte{1, 2, 3, 4})
	require.Len(t, got, 1)
	require.Equal(t, e1.MessageID, got[0].MessageID)
}
