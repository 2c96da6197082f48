package crc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOfVector(t *testing.T) {
	got := Of([]byte{0x00, 0x30, 0x5F, 0x6F, 0xF2})
	assert.EqualValues(t, 0x78A1, got)
}

func TestSingleMatchesBlock(t *testing.T) {
	data := []byte{0x5A, 0xCF, 0x00}

	whole := NewCRC16()
	whole.Block(data)

	incremental := NewCRC16()
	for _, b := range data {
		incremental.Single(b)
	}

	assert.Equal(t, whole.Final(), incremental.Final())
}

func TestEmptyInput(t *testing.T) {
	assert.EqualValues(t, 0x0000, Of(nil))
}
