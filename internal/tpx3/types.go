// Package tpx3 holds the record types shared by the decode, stream, cluster
// and pipeline packages that together turn a raw TimePix3 acquisition into
// photon events.
package tpx3

import "time"

// SignalType tags the kind of packet a SignalRecord was decoded from.
type SignalType uint8

const (
	// SignalUnknown marks a record the decoder could not classify, or an
	// integrated-ToT packet that is acknowledged but not decoded.
	SignalUnknown SignalType = 0
	// SignalTDC is a time-to-digital converter trigger.
	SignalTDC SignalType = 1
	// SignalPixel is a pixel hit.
	SignalPixel SignalType = 2
	// SignalGTS is a global timestamp (low or high word).
	SignalGTS SignalType = 3
	// SignalSpidrControl is a SPIDR control marker (shutter, heartbeat).
	SignalSpidrControl SignalType = 4
	// SignalTpx3Control is a TPX3 control marker (readout end).
	SignalTpx3Control SignalType = 5
)

func (t SignalType) String() string {
	switch t {
	case SignalTDC:
		return "TDC"
	case SignalPixel:
		return "Pixel"
	case SignalGTS:
		return "GTS"
	case SignalSpidrControl:
		return "SpidrControl"
	case SignalTpx3Control:
		return "Tpx3Control"
	default:
		return "Unknown"
	}
}

// Group id sentinels carried on SignalRecord.GroupID.
const (
	// GroupUnvisited is the initial state of every record; it is also the
	// terminal state for non-pixel signals, which the cluster engine never
	// visits.
	GroupUnvisited = 0
	// GroupNoise marks a pixel whose neighborhood was smaller than MinPts.
	GroupNoise = 1
	// GroupFirstCluster is the first cluster identifier handed out; cluster
	// ids increase strictly from here in order of discovery.
	GroupFirstCluster = 2
)

// SignalRecord is one decoded TPX3 packet. Only the fields relevant to its
// SignalType carry meaning; see the package-level decode rules for each kind.
type SignalRecord struct {
	BufferNumber uint32
	SignalType   SignalType
	XPixel       uint8
	YPixel       uint8
	ToAFinal     float64 // seconds
	ToTFinal     uint16  // nanoseconds
	GroupID      uint32
}

// PhotonRecord is the charge-weighted reconstruction of one terminated
// pixel cluster.
type PhotonRecord struct {
	PhotonX       float64
	PhotonY       float64
	PhotonToA     float64
	IntegratedToT uint16
	Multiplicity  uint8
}

// Diagnostics accumulates per-invocation counters and stage timings. It is
// owned exclusively by the pipeline and returned to the caller once the run
// completes.
type Diagnostics struct {
	RunID string

	FileSize                  int64
	NumberOfDataPackets       uint64
	NumberOfProcessedPackets  uint64
	NumberOfBuffers           uint64
	NumberOfPixelHits         uint64
	NumberOfTDC               uint64
	NumberOfGTS               uint64
	NumberOfSpidrControl      uint64
	NumberOfTpx3Control       uint64
	NumberOfUnknown           uint64
	NumberOfIntegratedToT     uint64
	NumberOfFramingAnomalies  uint64
	NumberOfDegenerateCluster uint64

	TotalUnpackingTime  time.Duration
	TotalSortingTime    time.Duration
	TotalClusteringTime time.Duration
	TotalWritingTime    time.Duration

	ToTP50 float64
	ToTP95 float64
}
