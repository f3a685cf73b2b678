// Package pipeline wires the decode, stream and cluster stages together
// behind the configuration contract, owning the pipeline's input/output
// file handles and its diagnostics accumulation.
package pipeline

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/tpx3decode/internal/config"
	"github.com/banshee-data/tpx3decode/internal/fsutil"
	"github.com/banshee-data/tpx3decode/internal/security"
	"github.com/banshee-data/tpx3decode/internal/tpx3"
	"github.com/banshee-data/tpx3decode/internal/tpx3/cluster"
	"github.com/banshee-data/tpx3decode/internal/tpx3/stream"
)

// Pipeline owns the filesystem boundary and runs one decode+cluster pass
// per Run call. It carries no state across calls.
type Pipeline struct {
	FS  fsutil.FileSystem
	Cfg *config.Tpx3Config
}

// New constructs a Pipeline against the OS filesystem.
func New(cfg *config.Tpx3Config) *Pipeline {
	return &Pipeline{FS: fsutil.OSFileSystem{}, Cfg: cfg}
}

// Result is everything one Run call produces.
type Result struct {
	Signals     []tpx3.SignalRecord
	Photons     []tpx3.PhotonRecord
	Diagnostics tpx3.Diagnostics
}

// Run executes decode -> (sort) -> (raw dump) -> (cluster) -> (photon dump)
// per the configuration, returning the decoded arrays and diagnostics.
// I/O errors are fatal and returned to the caller; all per-packet and
// per-chunk anomalies are recovered and folded into Diagnostics instead.
func (p *Pipeline) Run() (Result, error) {
	diag := tpx3.Diagnostics{RunID: uuid.New().String()}
	SetVerboseLevel(p.Cfg.GetVerboseLevel(), defaultLogWriter())

	inputPath := filepath.Join(p.Cfg.GetRawTpx3Folder(), p.Cfg.GetRawTpx3File())
	if err := security.ValidatePathWithinDirectory(inputPath, p.Cfg.GetRawTpx3Folder()); err != nil {
		return Result{}, fmt.Errorf("input path rejected: %w", err)
	}

	opsf("reading %s", inputPath)
	raw, err := p.FS.ReadFile(inputPath)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read input file: %w", err)
	}
	diag.FileSize = int64(len(raw))

	words := bytesToWords(raw)

	unpackStart := time.Now()
	signals, wstats := stream.Walk(words, p.Cfg.GetMaxPacketsToRead())
	diag.TotalUnpackingTime = time.Since(unpackStart)

	diag.NumberOfBuffers = wstats.Buffers
	diag.NumberOfProcessedPackets = wstats.ProcessedPackets
	diag.NumberOfDataPackets = uint64(len(words))
	diag.NumberOfPixelHits = wstats.PixelHits
	diag.NumberOfTDC = wstats.TDC
	diag.NumberOfGTS = wstats.GTS
	diag.NumberOfSpidrControl = wstats.SpidrControl
	diag.NumberOfTpx3Control = wstats.Tpx3Control
	diag.NumberOfUnknown = wstats.Unknown
	diag.NumberOfIntegratedToT = wstats.IntegratedToT
	diag.NumberOfFramingAnomalies = wstats.FramingAnomalies

	diagf("unpacked %d packets into %d signals (%d buffers, %d framing anomalies)",
		diag.NumberOfProcessedPackets, len(signals), diag.NumberOfBuffers, diag.NumberOfFramingAnomalies)

	if p.Cfg.GetSortSignals() {
		sortStart := time.Now()
		cluster.SortByArrival(signals)
		diag.TotalSortingTime = time.Since(sortStart)
		diagf("sorted %d signals by arrival time", len(signals))
	}

	if err := p.maybeWriteRawSignals(signals, &diag); err != nil {
		return Result{}, err
	}

	var photons []tpx3.PhotonRecord
	if p.Cfg.GetClusterPixels() {
		clusterStart := time.Now()
		params := cluster.Params{
			EpsSpatial:  p.Cfg.GetEpsSpatial(),
			EpsTemporal: p.Cfg.GetEpsTemporal(),
			MinPts:      p.Cfg.GetMinPts(),
			QueryRegion: p.Cfg.GetQueryRegion(),
		}
		var cstats cluster.Stats
		photons, cstats = cluster.Run(signals, params)
		diag.TotalClusteringTime = time.Since(clusterStart)
		diag.NumberOfDegenerateCluster = cstats.DegenerateClusters
		diagf("clustered into %d photons, %d noise signals, %d degenerate clusters dropped",
			len(photons), cstats.Noise, cstats.DegenerateClusters)
	}

	if err := p.maybeWritePhotons(photons, &diag); err != nil {
		return Result{}, err
	}

	fillPercentiles(&diag, photons)

	opsf("run %s complete: %d signals, %d photons", diag.RunID, len(signals), len(photons))

	return Result{Signals: signals, Photons: photons, Diagnostics: diag}, nil
}

func (p *Pipeline) maybeWriteRawSignals(signals []tpx3.SignalRecord, diag *tpx3.Diagnostics) error {
	if !p.Cfg.GetWriteRawSignals() {
		return nil
	}
	path := filepath.Join(p.Cfg.GetOutputFolder(), p.Cfg.GetRunHandle()+".rawSignals")
	if err := security.ValidatePathWithinDirectory(path, p.Cfg.GetOutputFolder()); err != nil {
		return fmt.Errorf("raw signal output path rejected: %w", err)
	}

	writeStart := time.Now()
	f, err := p.FS.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create raw signal output: %w", err)
	}
	defer f.Close()

	if err := writeSignals(f, signals); err != nil {
		return fmt.Errorf("failed to write raw signals: %w", err)
	}
	diag.TotalWritingTime += time.Since(writeStart)
	diagf("wrote %d raw signals to %s", len(signals), path)
	return nil
}

func (p *Pipeline) maybeWritePhotons(photons []tpx3.PhotonRecord, diag *tpx3.Diagnostics) error {
	if !p.Cfg.GetWriteOutPhotons() {
		return nil
	}
	path := filepath.Join(p.Cfg.GetOutputFolder(), p.Cfg.GetRunHandle()+".photons")
	if err := security.ValidatePathWithinDirectory(path, p.Cfg.GetOutputFolder()); err != nil {
		return fmt.Errorf("photon output path rejected: %w", err)
	}

	writeStart := time.Now()
	f, err := p.FS.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create photon output: %w", err)
	}
	defer f.Close()

	if err := writePhotons(f, photons); err != nil {
		return fmt.Errorf("failed to write photons: %w", err)
	}
	diag.TotalWritingTime += time.Since(writeStart)
	diagf("wrote %d photons to %s", len(photons), path)
	return nil
}

// fillPercentiles computes the 50th/95th percentile of integrated_tot
// across emitted photons using gonum's empirical quantile estimator, the
// same estimator the rest of the stack uses for latency/speed percentiles.
func fillPercentiles(diag *tpx3.Diagnostics, photons []tpx3.PhotonRecord) {
	if len(photons) == 0 {
		return
	}
	values := make([]float64, len(photons))
	for i, p := range photons {
		values[i] = float64(p.IntegratedToT)
	}
	sort.Float64s(values)
	diag.ToTP50 = stat.Quantile(0.5, stat.Empirical, values, nil)
	diag.ToTP95 = stat.Quantile(0.95, stat.Empirical, values, nil)
}

// bytesToWords reinterprets a little-endian byte buffer as 64-bit words,
// truncating any trailing partial word.
func bytesToWords(raw []byte) []uint64 {
	n := len(raw) / 8
	words := make([]uint64, n)
	for i := 0; i < n; i++ {
		words[i] = binary.LittleEndian.Uint64(raw[i*8 : i*8+8])
	}
	return words
}

func defaultLogWriter() io.Writer {
	return logWriter
}

// logWriter is the destination for all tiered diagnostic output; tests and
// the CLI entry point may reassign it before calling Run.
var logWriter io.Writer = os.Stderr
