// Package decode implements the TimePix3 bit-level packet decoder.
//
// Every exported function here is pure. The per-kind decoders (Pixel, TDC,
// GTS, SpidrControl, Tpx3Control) take the buffer number of the chunk a
// packet was read from, plus the packet word where its fields are decoded,
// and return a fully populated tpx3.SignalRecord; the remaining helpers
// classify a word or read a chunk header. None of these functions touch
// global state or retain a reference to their input past the call, matching
// the ownership rules the stream walker depends on.
package decode

import "github.com/banshee-data/tpx3decode/internal/tpx3"

// Packet type nibbles, taken from the top 4 bits of a 64-bit packet word.
const (
	nibblePixel        = 0xB
	nibbleTDC          = 0x6
	nibbleGTS          = 0x4
	nibbleSpidrControl = 0x5
	nibbleTpx3Control  = 0x7
	nibbleIntegratedToT = 0xA
)

// chunkSignature is the ASCII bytes "TPX3" as a little-endian uint32,
// occupying the low 32 bits of every chunk header word.
const chunkSignature = 0x33585054 // "TPX3" little-endian

// IsChunkHeader reports whether word is a chunk header rather than a data
// packet, by checking its low 32 bits against the TPX3 signature.
func IsChunkHeader(word uint64) bool {
	return uint32(word) == chunkSignature
}

// ChunkPayloadWords returns the number of 64-bit data packets that follow a
// chunk header word, derived from the payload byte count in bits 48-63.
func ChunkPayloadWords(header uint64) int {
	chunkSizeBytes := (header >> 48) & 0xFFFF
	return int(chunkSizeBytes / 8)
}

// PacketKind classifies word by its top nibble without decoding it.
func PacketKind(word uint64) tpx3.SignalType {
	switch (word >> 60) & 0xF {
	case nibblePixel:
		return tpx3.SignalPixel
	case nibbleTDC:
		return tpx3.SignalTDC
	case nibbleGTS:
		return tpx3.SignalGTS
	case nibbleSpidrControl:
		return tpx3.SignalSpidrControl
	case nibbleTpx3Control:
		return tpx3.SignalTpx3Control
	default:
		return tpx3.SignalUnknown
	}
}

// IsIntegratedToT reports whether word is an integrated-ToT mode packet.
// These are acknowledged but never decoded into a signal record.
func IsIntegratedToT(word uint64) bool {
	return (word>>60)&0xF == nibbleIntegratedToT
}

// Pixel decodes a pixel-hit packet (top nibble 0xB).
func Pixel(word uint64, bufferNumber uint32) tpx3.SignalRecord {
	spidrTime := word & 0xFFFF
	dcol := (word >> 52) & 0x7F
	spix := (word >> 45) & 0x7F
	pix := (word >> 44) & 0x7

	x := dcol + pix/4
	y := spix + (pix & 0x3)

	toaRaw := (word >> 30) & 0x3FFF
	totRaw := (word >> 20) & 0x3FF
	ftoa := (word >> 16) & 0xF

	coarseToA := (toaRaw << 4) | ((^ftoa) & 0xF)
	spidrNs := float64(spidrTime) * 25.0 * 16384.0
	toaFinal := (spidrNs + float64(coarseToA)*(25.0/16.0)) * 1e-9

	return tpx3.SignalRecord{
		BufferNumber: bufferNumber,
		SignalType:   tpx3.SignalPixel,
		XPixel:       uint8(x),
		YPixel:       uint8(y),
		ToAFinal:     toaFinal,
		ToTFinal:     uint16(totRaw * 25),
	}
}

// TDC decodes a time-to-digital-converter trigger packet (top nibble 0x6).
func TDC(word uint64, bufferNumber uint32) tpx3.SignalRecord {
	coarseTime := (word >> 12) & 0xFFFFFFFF
	tmpFine := (word >> 5) & 0xF
	tmpFine = ((tmpFine - 1) << 9) / 12
	trigTimeFine := (word & 0xE00) | (tmpFine & 0x1FF)

	toaFinal := (float64(coarseTime)*25 + float64(trigTimeFine)*25.0/4096.0) * 1e-9

	return tpx3.SignalRecord{
		BufferNumber: bufferNumber,
		SignalType:   tpx3.SignalTDC,
		ToAFinal:     toaFinal,
	}
}

// GTS decodes a global-timestamp packet (top nibble 0x4), dispatching
// between the low-word and high-word subtypes by the marker in bits 56-63.
func GTS(word uint64, bufferNumber uint32) tpx3.SignalRecord {
	marker := (word >> 56) & 0xFF
	rec := tpx3.SignalRecord{
		BufferNumber: bufferNumber,
		SignalType:   tpx3.SignalGTS,
		ToTFinal:     uint16(word & 0xFFFF),
	}
	switch marker {
	case 0x44:
		counter := (word >> 16) & 0xFFFFFFFF
		rec.ToAFinal = float64(counter) * 25 * 1e-9
	case 0x45:
		counter := (word >> 16) & 0xFFFF
		rec.ToAFinal = float64(counter) * 107.374182
	}
	return rec
}

// SpidrControl decodes a SPIDR control marker (top nibble 0x5). The
// subtype (open/close shutter, heartbeat) lives in bits 56-59 but this
// version does not distinguish it in the emitted record beyond counting.
func SpidrControl(bufferNumber uint32) tpx3.SignalRecord {
	return tpx3.SignalRecord{
		BufferNumber: bufferNumber,
		SignalType:   tpx3.SignalSpidrControl,
	}
}

// Tpx3Control decodes a TPX3 control marker (top nibble 0x7).
func Tpx3Control(bufferNumber uint32) tpx3.SignalRecord {
	return tpx3.SignalRecord{
		BufferNumber: bufferNumber,
		SignalType:   tpx3.SignalTpx3Control,
	}
}
