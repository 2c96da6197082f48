package fifo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteReadRoundTrip(t *testing.T) {
	f := New(8)
	n := f.Write([]byte{1, 2, 3})
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, f.Occupied())

	out := make([]byte, 3)
	n = f.Read(out)
	assert.Equal(t, 3, n)
	assert.Equal(t, []byte{1, 2, 3}, out)
	assert.Equal(t, 0, f.Occupied())
}

func TestWriteStopsAtCapacity(t *testing.T) {
	f := New(4)
	n := f.Write([]byte{1, 2, 3, 4, 5})
	assert.Equal(t, 3, n, "one slot is always kept free to distinguish full from empty")
}

func TestPeekDoesNotConsume(t *testing.T) {
	f := New(8)
	f.Write([]byte{9, 8, 7})

	peeked := make([]byte, 2)
	n := f.Peek(peeked)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte{9, 8}, peeked)
	assert.Equal(t, 3, f.Occupied())
}

func TestResetEmptiesQueue(t *testing.T) {
	f := New(4)
	f.Write([]byte{1, 2})
	f.Reset()
	assert.Equal(t, 0, f.Occupied())
}
