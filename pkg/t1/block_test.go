package t1

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPCBEncodeDecodeIBlock(t *testing.T) {
	p := PCB{Kind: KindI, Seq: true, More: true}
	b := p.Encode()
	assert.Equal(t, byte(0b0110_0000), b)

	got, err := DecodePCB(b)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestPCBEncodeDecodeRBlock(t *testing.T) {
	p := PCB{Kind: KindR, RSeq: true, RErr: 2}
	b := p.Encode()
	assert.Equal(t, byte(0b1001_0010), b)

	got, err := DecodePCB(b)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestPCBEncodeDecodeSBlock(t *testing.T) {
	p := PCB{Kind: KindS, SCode: SCodeWTX, SResponse: true}
	b := p.Encode()
	assert.Equal(t, byte(0b1110_0011), b)

	got, err := DecodePCB(b)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestDecodePCBInterfaceSoftResetRequest(t *testing.T) {
	got, err := DecodePCB(0xCF)
	require.NoError(t, err)
	assert.Equal(t, PCB{Kind: KindS, SCode: SCodeInterfaceSoftReset, SResponse: false}, got)
}

func TestMarshalSoftResetRequestMatchesScenario(t *testing.T) {
	b := Block{NAD: 0x5A, PCB: PCB{Kind: KindS, SCode: SCodeInterfaceSoftReset}, INF: nil}
	raw := Marshal(b)
	assert.Equal(t, []byte{0x5A, 0xCF, 0x00, 0x37, 0x7F}, raw)
}

func TestUnmarshalSoftResetResponse(t *testing.T) {
	payload := []byte{
		0x00, 0xA0, 0x00, 0x00, 0x03, 0x96, 0x04, 0x03,
		0xE8, 0x00, 0xFE, 0x02, 0x0B, 0x03, 0xE8, 0x08,
		0x01, 0x00, 0x00, 0x00, 0x00, 0x64, 0x00, 0x00,
		0x0A, 0x4A, 0x43, 0x4F, 0x50, 0x34, 0x20, 0x41,
		0x54, 0x50, 0x4F,
	}
	raw := append([]byte{0xA5, 0xEF, byte(len(payload))}, payload...)
	raw = append(raw, 0x87, 0x77)

	block, err := Unmarshal(raw)
	require.NoError(t, err)
	assert.Equal(t, byte(0xA5), block.NAD)
	assert.Equal(t, KindS, block.PCB.Kind)
	assert.Equal(t, SCodeInterfaceSoftReset, block.PCB.SCode)
	assert.True(t, block.PCB.SResponse)
	assert.Equal(t, payload, block.INF)
}

func TestUnmarshalRejectsBadCRC(t *testing.T) {
	raw := []byte{0x5A, 0xCF, 0x00, 0x00, 0x00}
	_, err := Unmarshal(raw)
	assert.ErrorIs(t, err, ErrChecksum)
}

func TestUnmarshalRejectsShortFrame(t *testing.T) {
	_, err := Unmarshal([]byte{0x5A, 0xCF})
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestMarshalPanicsOnOversizedINF(t *testing.T) {
	assert.Panics(t, func() {
		Marshal(Block{NAD: 0x5A, PCB: PCB{Kind: KindI}, INF: make([]byte, 256)})
	})
}
