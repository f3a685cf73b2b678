// Package stream drives the chunked TPX3 decoder: it walks a 64-bit word
// array chunk by chunk, dispatches each data packet to the decode package,
// and aggregates per-kind counters. The walker is an explicit state machine
// (expectHeader / inChunk) rather than nested switches inside a while loop,
// so that chunk framing and packet dispatch are each a single, separately
// readable concern.
package stream

import (
	"github.com/banshee-data/tpx3decode/internal/tpx3"
	"github.com/banshee-data/tpx3decode/internal/tpx3/decode"
)

type walkState int

const (
	expectHeader walkState = iota
	inChunk
)

// Stats counts packets dispatched during a Walk call, keyed the same way
// as tpx3.Diagnostics so the pipeline can fold them in directly.
type Stats struct {
	Buffers          uint64
	ProcessedPackets uint64
	PixelHits        uint64
	TDC              uint64
	GTS              uint64
	SpidrControl     uint64
	Tpx3Control      uint64
	Unknown          uint64
	IntegratedToT    uint64
	FramingAnomalies uint64
}

// Walk decodes words into signal records, honoring maxPackets as a hard cap
// on the number of data packets processed (0 means unlimited). It never
// returns an error: framing anomalies and unknown packet types are
// recovered locally and reflected only in the returned Stats, per the
// error-handling taxonomy that treats stream framing as non-fatal.
func Walk(words []uint64, maxPackets int) ([]tpx3.SignalRecord, Stats) {
	var (
		signals     []tpx3.SignalRecord
		stats       Stats
		state       = expectHeader
		remain      int // data packets left in the current chunk
		headersSeen uint64
	)

	capReached := func() bool {
		return maxPackets > 0 && stats.ProcessedPackets >= uint64(maxPackets)
	}

	i := 0
	for i < len(words) && !capReached() {
		word := words[i]

		switch state {
		case expectHeader:
			if !decode.IsChunkHeader(word) {
				// A non-header word where one was expected is a framing
				// anomaly: count it, skip the word, and keep scanning for
				// the next header rather than aborting the whole walk.
				stats.FramingAnomalies++
				i++
				continue
			}
			headersSeen++
			remain = decode.ChunkPayloadWords(word)
			if maxPackets > 0 {
				budget := maxPackets - int(stats.ProcessedPackets)
				if remain > budget {
					remain = budget
				}
			}
			if remain > len(words)-i-1 {
				remain = len(words) - i - 1
			}
			i++
			if remain > 0 {
				state = inChunk
			}

		case inChunk:
			if decode.IsChunkHeader(word) {
				// A chunk header found mid-chunk means the previous
				// chunk's declared size lied; abort it and restart
				// header-seeking at this word without consuming it.
				stats.FramingAnomalies++
				state = expectHeader
				remain = 0
				continue
			}

			bufferNumber := uint32(headersSeen - 1)
			stats.ProcessedPackets++

			if decode.IsIntegratedToT(word) {
				// Acknowledged, not decoded: still occupies a slot in the
				// signal array per §4.1, with signal_type left zero.
				signals = append(signals, tpx3.SignalRecord{BufferNumber: bufferNumber, SignalType: tpx3.SignalUnknown})
				stats.IntegratedToT++
			} else {
				switch decode.PacketKind(word) {
				case tpx3.SignalPixel:
					signals = append(signals, decode.Pixel(word, bufferNumber))
					stats.PixelHits++
				case tpx3.SignalTDC:
					signals = append(signals, decode.TDC(word, bufferNumber))
					stats.TDC++
				case tpx3.SignalGTS:
					signals = append(signals, decode.GTS(word, bufferNumber))
					stats.GTS++
				case tpx3.SignalSpidrControl:
					signals = append(signals, decode.SpidrControl(bufferNumber))
					stats.SpidrControl++
				case tpx3.SignalTpx3Control:
					signals = append(signals, decode.Tpx3Control(bufferNumber))
					stats.Tpx3Control++
				default:
					signals = append(signals, tpx3.SignalRecord{BufferNumber: bufferNumber, SignalType: tpx3.SignalUnknown})
					stats.Unknown++
				}
			}

			i++
			remain--
			if remain <= 0 {
				state = expectHeader
			}
		}
	}

	stats.Buffers = headersSeen
	if stats.Buffers == 0 {
		stats.Buffers = 1
	}

	return signals, stats
}
