// Package sync implements Drift's IBLT set-reconciliation sketch and the
// three-message SyncSession state machine built on top of it.
package sync

import (
	"encoding/binary"
	"errors"

	"lukechampine.com/blake3"
)

const HashCount = 3

// Cell is one slot of an IBLT.
type Cell struct {
	Count    int32
	KeySum   [16]byte
	KeyCheck uint32
}

// IBLT is an Invertible Bloom Lookup Table over 16-byte keys (message ids).
type IBLT struct {
	Cells []Cell
}

var ErrDimensionMismatch = errors.New("sync: iblt dimension mismatch")
var ErrDecodeFailed = errors.New("sync: iblt decode failed (sketch undersized)")

// NumCellsForDiffs sizes an IBLT as 3*max(1, expectedDiffs).
func NumCellsForDiffs(expectedDiffs int) int {
	if expectedDiffs < 1 {
		expectedDiffs = 1
	}
	return HashCount * expectedDiffs
}

// New builds an empty IBLT with numCells cells.
func New(numCells int) *IBLT {
	if numCells < 1 {
		numCells = 1
	}
	return &IBLT{Cells: make([]Cell, numCells)}
}

// keyCheck returns the low 4 bytes of blake3(key) as used in the check field.
func keyCheck(key [16]byte) uint32 {
	sum := blake3.Sum256(key[:])
	return binary.LittleEndian.Uint32(sum[:4])
}

// cellIndices derives the HashCount independent cell indices for key by
// hashing [hashIdx, key] with blake3 and reducing mod numCells.
func cellIndices(key [16]byte, numCells int) [HashCount]int {
	var idx [HashCount]int
	for h := 0; h < HashCount; h++ {
		buf := make([]byte, 1+16)
		buf[0] = byte(h)
		copy(buf[1:], key[:])
		sum := blake3.Sum256(buf)
		v := binary.LittleEndian.Uint64(sum[:8])
		idx[h] = int(v % uint64(numCells))
	}
	return idx
}

func (t *IBLT) apply(key [16]byte, delta int32) {
	check := keyCheck(key)
	for _, i := range cellIndices(key, len(t.Cells)) {
		c := &t.Cells[i]
		c.Count += delta
		for b := 0; b < 16; b++ {
			c.KeySum[b] ^= key[b]
		}
		c.KeyCheck ^= check
	}
}

// Insert adds key to the sketch.
func (t *IBLT) Insert(key [16]byte) { t.apply(key, 1) }

// Remove subtracts key from the sketch.
func (t *IBLT) Remove(key [16]byte) { t.apply(key, -1) }

// Subtract computes a-b cell-wise. a and b must have equal cell counts.
func Subtract(a, b *IBLT) (*IBLT, error) {
	if len(a.Cells) != len(b.Cells) {
		return nil, ErrDimensionMismatch
	}
	d := New(len(a.Cells))
	for i := range d.Cells {
		d.Cells[i].Count = a.Cells[i].Count - b.Cells[i].Count
		for b2 := 0; b2 < 16; b2++ {
			d.Cells[i].KeySum[b2] = a.Cells[i].KeySum[b2] ^ b.Cells[i].KeySum[b2]
		}
		d.Cells[i].KeyCheck = a.Cells[i].KeyCheck ^ b.Cells[i].KeyCheck
	}
	return d, nil
}

// Decode peels d, attributing pure cells (count == +-1, check matches) to
// aliceOnly or bobOnly. Returns ErrDecodeFailed if not all cells can be
// peeled within 10*numCells iterations.
func Decode(d *IBLT) (aliceOnly, bobOnly [][16]byte, err error) {
	cells := make([]Cell, len(d.Cells))
	copy(cells, d.Cells)

	maxIter := 10 * len(cells)
	for iter := 0; iter < maxIter; iter++ {
		pureIdx := -1
		for i, c := range cells {
			if c.Count == 1 || c.Count == -1 {
				if keyCheck(c.KeySum) == c.KeyCheck {
					pureIdx = i
					break
				}
			}
		}
		if pureIdx == -1 {
			break
		}
		c := cells[pureIdx]
		key := c.KeySum
		sign := c.Count
		if sign == 1 {
			aliceOnly = append(aliceOnly, key)
		} else {
			bobOnly = append(bobOnly, key)
		}
		check := keyCheck(key)
		for _, i := range cellIndices(key, len(cells)) {
			cells[i].Count -= sign
			for b := 0; b < 16; b++ {
				cells[i].KeySum[b] ^= key[b]
			}
			cells[i].KeyCheck ^= check
		}
	}

	for _, c := range cells {
		if c.Count != 0 || c.KeySum != [16]byte{} || c.KeyCheck != 0 {
			return nil, nil, ErrDecodeFailed
		}
	}
	return aliceOnly, bobOnly, nil
}

// ToBytes serializes the IBLT: u16 LE num_cells, then num_cells *
// (u8 count, [16] key_sum, u32 LE key_check). Count wraps to a single
// byte; pathological wraparound surfaces as a decode failure, recoverable
// by resynchronizing with a larger sketch.
func (t *IBLT) ToBytes() []byte {
	buf := make([]byte, 2+21*len(t.Cells))
	binary.LittleEndian.PutUint16(buf, uint16(len(t.Cells)))
	off := 2
	for _, c := range t.Cells {
		buf[off] = byte(int8(c.Count))
		copy(buf[off+1:off+17], c.KeySum[:])
		binary.LittleEndian.PutUint32(buf[off+17:off+21], c.KeyCheck)
		off += 21
	}
	return buf
}

// FromBytes parses the wire format produced by ToBytes.
func FromBytes(buf []byte) (*IBLT, error) {
	if len(buf) < 2 {
		return nil, ErrDecodeFailed
	}
	numCells := int(binary.LittleEndian.Uint16(buf))
	if len(buf) < 2+21*numCells {
		return nil, ErrDecodeFailed
	}
	t := New(numCells)
	off := 2
	for i := 0; i < numCells; i++ {
		t.Cells[i].Count = int32(int8(buf[off]))
		copy(t.Cells[i].KeySum[:], buf[off+1:off+17])
		t.Cells[i].KeyCheck = binary.LittleEndian.Uint32(buf[off+17 : off+21])
		off += 21
	}
	return t, nil
}

// BuildFromKeys constructs an IBLT of the given size containing all keys.
func BuildFromKeys(keys [][16]byte, numCells int) *IBLT {
	t := New(numCells)
	for _, k := range keys {
		t.Insert(k)
	}
	return t
}
