package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEmptyTpx3ConfigDefaults(t *testing.T) {
	cfg := EmptyTpx3Config()

	if got := cfg.GetVerboseLevel(); got != 1 {
		t.Errorf("GetVerboseLevel() = %d, want 1", got)
	}
	if got := cfg.GetMinPts(); got != 3 {
		t.Errorf("GetMinPts() = %d, want 3", got)
	}
	if got := cfg.GetSortSignals(); !got {
		t.Errorf("GetSortSignals() = %v, want true", got)
	}
	if got := cfg.GetMaxPacketsToRead(); got != 0 {
		t.Errorf("GetMaxPacketsToRead() = %d, want 0", got)
	}
}

func TestTpx3ConfigOverridesWin(t *testing.T) {
	cfg := &Tpx3Config{
		MinPts:       ptrIntTpx3(5),
		EpsSpatial:   ptrFloat64Tpx3(3.5),
		VerboseLevel: ptrIntTpx3(4),
		RunHandle:    ptrStringTpx3("acq-0001"),
		ClusterPixels: ptrBoolTpx3(false),
	}

	if got := cfg.GetMinPts(); got != 5 {
		t.Errorf("GetMinPts() = %d, want 5", got)
	}
	if got := cfg.GetEpsSpatial(); got != 3.5 {
		t.Errorf("GetEpsSpatial() = %f, want 3.5", got)
	}
	if got := cfg.GetVerboseLevel(); got != 4 {
		t.Errorf("GetVerboseLevel() = %d, want 4", got)
	}
	if got := cfg.GetRunHandle(); got != "acq-0001" {
		t.Errorf("GetRunHandle() = %q, want acq-0001", got)
	}
	if got := cfg.GetClusterPixels(); got {
		t.Errorf("GetClusterPixels() = %v, want false", got)
	}
}

func TestGetRunHandleFallsBackToFileStem(t *testing.T) {
	cfg := &Tpx3Config{RawTpx3File: ptrStringTpx3("acquisition_007.tpx3")}
	if got := cfg.GetRunHandle(); got != "acquisition_007" {
		t.Errorf("GetRunHandle() = %q, want acquisition_007", got)
	}
}

func TestValidateRejectsOutOfRangeValues(t *testing.T) {
	cases := []*Tpx3Config{
		{MinPts: ptrIntTpx3(0)},
		{QueryRegion: ptrIntTpx3(0)},
		{EpsSpatial: ptrFloat64Tpx3(-1)},
		{EpsTemporal: ptrFloat64Tpx3(-1)},
		{VerboseLevel: ptrIntTpx3(5)},
		{MaxPacketsToRead: ptrIntTpx3(-10)},
	}
	for i, cfg := range cases {
		if err := cfg.Validate(); err == nil {
			t.Errorf("case %d: Validate() = nil, want error", i)
		}
	}
}

func TestLoadTpx3ConfigRejectsNonJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.txt")
	if err := os.WriteFile(path, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTpx3Config(path); err == nil {
		t.Error("LoadTpx3Config() = nil error, want extension rejection")
	}
}

func TestLoadTpx3ConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{"min_pts": 7, "verbose_level": 2, "eps_spatial": 1.5}`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadTpx3Config(path)
	if err != nil {
		t.Fatalf("LoadTpx3Config() error = %v", err)
	}
	if got := cfg.GetMinPts(); got != 7 {
		t.Errorf("GetMinPts() = %d, want 7", got)
	}
	if got := cfg.GetVerboseLevel(); got != 2 {
		t.Errorf("GetVerboseLevel() = %d, want 2", got)
	}
}
