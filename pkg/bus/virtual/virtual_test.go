package virtual

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteThenRead(t *testing.T) {
	b := NewBus()
	b.Push([]byte{0xA5, 0xEF, 0x00})

	err := b.WriteAll(0x5A, []byte{0x5A, 0xCF, 0x00})
	require.NoError(t, err)

	out := make([]byte, 3)
	err = b.ReadExact(0xA5, out)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xA5, 0xEF, 0x00}, out)

	assert.Equal(t, [][]byte{{0x5A, 0xCF, 0x00}}, b.Writes())
}

func TestInjectedReadFault(t *testing.T) {
	b := NewBus()
	b.PushReadFault()

	out := make([]byte, 1)
	err := b.ReadExact(0xA5, out)
	assert.ErrorIs(t, err, ErrInjected)
}

func TestInjectedWriteFault(t *testing.T) {
	b := NewBus()
	b.PushWriteFault()

	err := b.WriteAll(0x5A, []byte{0x01})
	assert.ErrorIs(t, err, ErrInjected)
}

func TestDelayRecorded(t *testing.T) {
	b := NewBus()
	b.DelayMs(12)
	b.DelayMs(34)
	assert.Equal(t, []uint32{12, 34}, b.Delays())
}

func TestReadUnderrunFails(t *testing.T) {
	b := NewBus()
	out := make([]byte, 2)
	err := b.ReadExact(0xA5, out)
	assert.Error(t, err)
}
