// Command tpx3decode reads a TimePix3 acquisition file, decodes its packet
// stream into signal records, and optionally sorts and clusters them into
// photon records.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/tpx3decode/internal/config"
	"github.com/banshee-data/tpx3decode/internal/tpx3/pipeline"
	"github.com/banshee-data/tpx3decode/internal/version"
)

var (
	configPath       = flag.String("config", "", "path to a tpx3decode JSON config file")
	rawTpx3Folder    = flag.String("raw-tpx3-folder", "", "overrides raw_tpx3_folder")
	rawTpx3File      = flag.String("raw-tpx3-file", "", "overrides raw_tpx3_file")
	outputFolder     = flag.String("output-folder", "", "overrides output_folder")
	verboseLevel     = flag.Int("verbose", 0, "overrides verbose_level (1-4); 0 leaves config/default unchanged")
	maxPacketsToRead = flag.Int("max-packets", -1, "overrides max_packets_to_read; -1 leaves config/default unchanged")
	showVersion      = flag.Bool("version", false, "print version information and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("tpx3decode %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		log.Println("interrupted, exiting")
		os.Exit(130)
	}()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	applyFlagOverrides(cfg)

	p := pipeline.New(cfg)
	result, err := p.Run()
	if err != nil {
		log.Fatalf("run failed: %v", err)
	}

	printSummary(result)
}

func loadConfig() (*config.Tpx3Config, error) {
	if *configPath == "" {
		return config.EmptyTpx3Config(), nil
	}
	return config.LoadTpx3Config(*configPath)
}

func applyFlagOverrides(cfg *config.Tpx3Config) {
	if *rawTpx3Folder != "" {
		cfg.RawTpx3Folder = rawTpx3Folder
	}
	if *rawTpx3File != "" {
		cfg.RawTpx3File = rawTpx3File
	}
	if *outputFolder != "" {
		cfg.OutputFolder = outputFolder
	}
	if *verboseLevel != 0 {
		cfg.VerboseLevel = verboseLevel
	}
	if *maxPacketsToRead >= 0 {
		cfg.MaxPacketsToRead = maxPacketsToRead
	}
}

func printSummary(result pipeline.Result) {
	d := result.Diagnostics
	fmt.Printf("run %s: %d signals, %d photons\n", d.RunID, len(result.Signals), len(result.Photons))
	fmt.Printf("  packets: %d processed, %d buffers, %d framing anomalies\n",
		d.NumberOfProcessedPackets, d.NumberOfBuffers, d.NumberOfFramingAnomalies)
	fmt.Printf("  pixel=%d tdc=%d gts=%d spidr_ctrl=%d tpx3_ctrl=%d unknown=%d integrated_tot=%d\n",
		d.NumberOfPixelHits, d.NumberOfTDC, d.NumberOfGTS, d.NumberOfSpidrControl,
		d.NumberOfTpx3Control, d.NumberOfUnknown, d.NumberOfIntegratedToT)
	fmt.Printf("  degenerate clusters dropped: %d\n", d.NumberOfDegenerateCluster)
	fmt.Printf("  timing: unpack=%s sort=%s cluster=%s write=%s\n",
		d.TotalUnpackingTime, d.TotalSortingTime, d.TotalClusteringTime, d.TotalWritingTime)
	if len(result.Photons) > 0 {
		fmt.Printf("  integrated_tot p50=%.1f p95=%.1f\n", d.ToTP50, d.ToTP95)
	}
}
