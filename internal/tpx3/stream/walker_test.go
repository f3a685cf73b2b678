package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/tpx3decode/internal/tpx3"
	"github.com/banshee-data/tpx3decode/internal/tpx3/decode"
)

func chunkHeader(payloadWords int) uint64 {
	return uint64(0x33585054) | uint64(payloadWords*8)<<48
}

func pixelWord(x, y uint8) uint64 {
	var word uint64
	word |= uint64(0xB) << 60
	word |= uint64(x) << 52 // dcol (pix=0 so x = dcol)
	word |= uint64(y) << 45 // spix (pix=0 so y = spix)
	return word
}

// TestEmptyInput grounds scenario 1.
func TestEmptyInput(t *testing.T) {
	signals, stats := Walk(nil, 0)
	assert.Empty(t, signals)
	assert.EqualValues(t, 1, stats.Buffers)
}

// TestChunkBoundaryFraming grounds scenario 5.
func TestChunkBoundaryFraming(t *testing.T) {
	words := []uint64{
		chunkHeader(1), pixelWord(1, 1),
		chunkHeader(1), pixelWord(2, 2),
	}

	signals, stats := Walk(words, 0)

	require.Len(t, signals, 2)
	assert.EqualValues(t, 2, stats.Buffers)
	assert.EqualValues(t, 0, signals[0].BufferNumber)
	assert.EqualValues(t, 1, signals[1].BufferNumber)
}

// TestCapEnforcement grounds scenario 6.
func TestCapEnforcement(t *testing.T) {
	const n = 1000
	words := make([]uint64, 0, n+1)
	words = append(words, chunkHeader(n))
	for i := 0; i < n; i++ {
		words = append(words, pixelWord(uint8(i%256), 0))
	}

	signals, stats := Walk(words, 100)

	assert.Len(t, signals, 100)
	assert.EqualValues(t, 100, stats.ProcessedPackets)
}

func TestUnknownPacketCounted(t *testing.T) {
	words := []uint64{chunkHeader(1), uint64(0x2) << 60}
	signals, stats := Walk(words, 0)
	require.Len(t, signals, 1)
	assert.Equal(t, tpx3.SignalUnknown, signals[0].SignalType)
	assert.EqualValues(t, 1, stats.Unknown)
}

func TestIntegratedToTAcknowledgedNotDecoded(t *testing.T) {
	words := []uint64{chunkHeader(1), uint64(0xA) << 60}
	signals, stats := Walk(words, 0)
	require.Len(t, signals, 1)
	assert.Equal(t, tpx3.SignalUnknown, signals[0].SignalType)
	assert.EqualValues(t, 1, stats.IntegratedToT)
	assert.EqualValues(t, 1, stats.ProcessedPackets)
}

func TestFramingAnomalyNonHeaderWhereExpected(t *testing.T) {
	words := []uint64{0x1122334455667788, chunkHeader(1), pixelWord(5, 5)}
	signals, stats := Walk(words, 0)
	require.Len(t, signals, 1)
	assert.EqualValues(t, 1, stats.FramingAnomalies)
}

func TestTruncatedFinalChunk(t *testing.T) {
	words := []uint64{chunkHeader(3), pixelWord(1, 1)} // declares 3 but only 1 remains
	signals, _ := Walk(words, 0)
	require.Len(t, signals, 1)
	assert.Equal(t, tpx3.SignalPixel, signals[0].SignalType)
}

func TestPacketKindDispatchedThroughDecode(t *testing.T) {
	// sanity: PacketKind used by Walk agrees with decode.PacketKind directly
	assert.Equal(t, tpx3.SignalPixel, decode.PacketKind(pixelWord(0, 0)))
}
