package apdu

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandAPDUBytesMatchesScenario(t *testing.T) {
	le := 0
	c := NewCommandAPDU(ClassProprietaryPlain, 0x20, 0x40, 0x60, &le)
	err := c.Push(0x41, []byte{0, 1, 2, 3, 0, 1, 2, 3, 0, 1, 2, 3})
	require.NoError(t, err)

	want := []byte{0x80, 0x20, 0x40, 0x60, 0x0E, 0x41, 0x0C, 0x00, 0x01, 0x02, 0x03, 0x00, 0x01, 0x02, 0x03, 0x00, 0x01, 0x02, 0x03, 0x00}
	assert.Equal(t, want, c.Bytes())
}

func TestCursorYieldsSameBytesAsBytes(t *testing.T) {
	le := 0
	c := NewCommandAPDU(ClassProprietaryPlain, 0x20, 0x40, 0x60, &le)
	require.NoError(t, c.Push(0x41, []byte{0, 1, 2, 3, 0, 1, 2, 3, 0, 1, 2, 3}))

	cur := NewCursor(c)
	var got []byte
	for {
		b, ok := cur.Next()
		if !ok {
			break
		}
		got = append(got, b)
	}
	assert.Equal(t, c.Bytes(), got)
}

func TestCursorImplementsReader(t *testing.T) {
	c := NewCommandAPDU(ClassStandardPlain, 0xA4, 0x04, 0x00, nil)
	require.NoError(t, c.Push(0x4F, []byte{0xA0, 0x00}))

	cur := NewCursor(c)
	buf := make([]byte, 64)
	n, err := cur.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, c.Bytes(), buf[:n])

	n, err = cur.Read(buf)
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)
}

func TestCommandAPDUNoPayloadOmitsLength(t *testing.T) {
	c := NewCommandAPDU(ClassStandardPlain, 0x84, 0x00, 0x00, nil)
	assert.Equal(t, []byte{0x00, 0x84, 0x00, 0x00}, c.Bytes())
}

func TestCommandAPDUExtendedLength(t *testing.T) {
	le := 300
	c := NewCommandAPDU(ClassProprietaryPlain, 0x02, 0x01, 0x00, &le)
	big := make([]byte, 200)
	require.NoError(t, c.Push(0x41, big))
	// The payload is 204 bytes (long-form 0x82 hi lo header + 200), which
	// alone would fit a short Lc; Le=300 exceeds 255 and forces extended
	// 3-byte length encoding on both ends.
	out := c.Bytes()
	assert.Equal(t, byte(0x00), out[4]) // extended length marker
	assert.True(t, c.isExtended())
}

func TestPushRejectsTooManyTLVs(t *testing.T) {
	c := NewCommandAPDU(ClassStandardPlain, 0x00, 0x00, 0x00, nil)
	for i := 0; i < MaxTLVs; i++ {
		require.NoError(t, c.Push(byte(i), []byte{1}))
	}
	assert.ErrorIs(t, c.Push(0x99, []byte{1}), ErrTooManyTLVs)
}
