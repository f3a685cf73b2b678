package pipeline

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"

	"github.com/banshee-data/tpx3decode/internal/tpx3"
)

// signalRecordSize is the fixed on-disk width of one raw-signal dump entry.
const signalRecordSize = 32

// photonRecordSize is the fixed on-disk width of one photon dump entry.
const photonRecordSize = 32

// writeSignals appends the fixed 32-byte little-endian layout described in
// the raw-signal output contract: buffer_number, signal_type, x_pixel,
// y_pixel, a pad byte, toa_final, tot_final, group_id, then zero padding
// out to the fixed record width.
func writeSignals(w io.Writer, signals []tpx3.SignalRecord) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, signalRecordSize)
	for _, s := range signals {
		binary.LittleEndian.PutUint32(buf[0:4], s.BufferNumber)
		buf[4] = byte(s.SignalType)
		buf[5] = s.XPixel
		buf[6] = s.YPixel
		buf[7] = 0 // pad
		binary.LittleEndian.PutUint64(buf[8:16], math.Float64bits(s.ToAFinal))
		binary.LittleEndian.PutUint16(buf[16:18], s.ToTFinal)
		binary.LittleEndian.PutUint32(buf[18:22], s.GroupID)
		for i := 22; i < signalRecordSize; i++ {
			buf[i] = 0
		}
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// writePhotons appends the fixed 32-byte little-endian layout for photon
// records: photon_x, photon_y, photon_toa, integrated_tot, multiplicity,
// then zero padding.
func writePhotons(w io.Writer, photons []tpx3.PhotonRecord) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, photonRecordSize)
	for _, p := range photons {
		binary.LittleEndian.PutUint64(buf[0:8], math.Float64bits(p.PhotonX))
		binary.LittleEndian.PutUint64(buf[8:16], math.Float64bits(p.PhotonY))
		binary.LittleEndian.PutUint64(buf[16:24], math.Float64bits(p.PhotonToA))
		binary.LittleEndian.PutUint16(buf[24:26], p.IntegratedToT)
		buf[26] = p.Multiplicity
		for i := 27; i < photonRecordSize; i++ {
			buf[i] = 0
		}
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}
