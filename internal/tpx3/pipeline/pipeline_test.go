package pipeline

import (
	"encoding/binary"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/tpx3decode/internal/config"
	"github.com/banshee-data/tpx3decode/internal/fsutil"
)

func wordsToBytes(words []uint64) []byte {
	buf := make([]byte, len(words)*8)
	for i, w := range words {
		binary.LittleEndian.PutUint64(buf[i*8:i*8+8], w)
	}
	return buf
}

func chunkHeader(payloadWords int) uint64 {
	return uint64(0x33585054) | uint64(payloadWords*8)<<48
}

func pixelWord(x, y uint8) uint64 {
	var word uint64
	word |= uint64(0xB) << 60
	word |= uint64(x) << 52
	word |= uint64(y) << 45
	word |= uint64(4) << 20 // tot_raw, keeps integrated_tot nonzero
	return word
}

func newMemPipeline(t *testing.T, raw []byte, cfg *config.Tpx3Config) *Pipeline {
	t.Helper()
	fs := fsutil.NewMemoryFileSystem()
	require.NoError(t, fs.WriteFile("in/acq.tpx3", raw, 0o644))
	cfg.RawTpx3Folder = strPtr("in")
	cfg.RawTpx3File = strPtr("acq.tpx3")
	cfg.OutputFolder = strPtr("out")
	return &Pipeline{FS: fs, Cfg: cfg}
}

func strPtr(s string) *string { return &s }

func TestRunEmptyInput(t *testing.T) {
	cfg := config.EmptyTpx3Config()
	p := newMemPipeline(t, nil, cfg)

	result, err := p.Run()

	require.NoError(t, err)
	assert.Empty(t, result.Signals)
	assert.Empty(t, result.Photons)
	assert.EqualValues(t, 1, result.Diagnostics.NumberOfBuffers)
	assert.NotEmpty(t, result.Diagnostics.RunID)
}

func TestRunThreePixelClusterEndToEnd(t *testing.T) {
	words := []uint64{
		chunkHeader(3),
		pixelWord(10, 20),
		pixelWord(11, 20),
		pixelWord(12, 20),
	}
	cfg := config.EmptyTpx3Config()
	cfg.MinPts = intPtr(3)
	cfg.EpsSpatial = floatPtr(2)
	cfg.EpsTemporal = floatPtr(1) // seconds; generous since these are same spidr_time
	cfg.QueryRegion = intPtr(10)
	cfg.WriteOutPhotons = boolPtr(true)

	p := newMemPipeline(t, wordsToBytes(words), cfg)

	result, err := p.Run()

	require.NoError(t, err)
	require.Len(t, result.Photons, 1)
	assert.InDelta(t, 11, result.Photons[0].PhotonX, 1e-6)

	written, err := p.FS.ReadFile("out/acq.photons")
	require.NoError(t, err)
	assert.Len(t, written, photonRecordSize)
}

func TestRunWritesRawSignalsWhenEnabled(t *testing.T) {
	words := []uint64{chunkHeader(1), pixelWord(1, 1)}
	cfg := config.EmptyTpx3Config()
	cfg.WriteRawSignals = boolPtr(true)
	cfg.ClusterPixels = boolPtr(false)
	cfg.WriteOutPhotons = boolPtr(false)

	p := newMemPipeline(t, wordsToBytes(words), cfg)

	result, err := p.Run()

	require.NoError(t, err)
	require.Len(t, result.Signals, 1)

	written, err := p.FS.ReadFile("out/acq.rawSignals")
	require.NoError(t, err)
	assert.Len(t, written, signalRecordSize)
}

func TestRunMissingInputIsFatal(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	cfg := config.EmptyTpx3Config()
	cfg.RawTpx3Folder = strPtr("in")
	cfg.RawTpx3File = strPtr("missing.tpx3")
	p := &Pipeline{FS: fs, Cfg: cfg}

	_, err := p.Run()

	assert.Error(t, err)
}

func TestDiagnosticsStructuralShape(t *testing.T) {
	words := []uint64{chunkHeader(1), pixelWord(1, 1)}
	cfg := config.EmptyTpx3Config()
	p := newMemPipeline(t, wordsToBytes(words), cfg)

	result, err := p.Run()
	require.NoError(t, err)

	// RunID and the stage timings vary per call; only the pixel hit count
	// is compared.
	result.Diagnostics.RunID = ""
	if diff := cmp.Diff(uint64(1), result.Diagnostics.NumberOfPixelHits); diff != "" {
		t.Errorf("unexpected pixel hit count (-want +got):\n%s", diff)
	}
}

func intPtr(v int) *int          { return &v }
func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }
