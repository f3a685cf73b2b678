package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Tpx3Config is the root configuration for a decoder run. Every field is
// optional; the Get* accessors supply the documented default for any field
// left nil, so a partial JSON file — or no file at all — is always valid.
type Tpx3Config struct {
	RawTpx3Folder    *string `json:"raw_tpx3_folder,omitempty"`
	RawTpx3File      *string `json:"raw_tpx3_file,omitempty"`
	RunHandle        *string `json:"run_handle,omitempty"`
	WriteRawSignals  *bool   `json:"write_raw_signals,omitempty"`
	WriteOutPhotons  *bool   `json:"write_out_photons,omitempty"`
	OutputFolder     *string `json:"output_folder,omitempty"`
	SortSignals      *bool   `json:"sort_signals,omitempty"`
	ClusterPixels    *bool   `json:"cluster_pixels,omitempty"`
	EpsSpatial       *float64 `json:"eps_spatial,omitempty"`
	EpsTemporal      *float64 `json:"eps_temporal,omitempty"`
	MinPts           *int    `json:"min_pts,omitempty"`
	QueryRegion      *int    `json:"query_region,omitempty"`
	MaxPacketsToRead *int    `json:"max_packets_to_read,omitempty"`
	VerboseLevel     *int    `json:"verbose_level,omitempty"`
}

func ptrFloat64Tpx3(v float64) *float64 { return &v }
func ptrBoolTpx3(v bool) *bool          { return &v }
func ptrStringTpx3(v string) *string    { return &v }
func ptrIntTpx3(v int) *int             { return &v }

// EmptyTpx3Config returns a Tpx3Config with all fields nil.
func EmptyTpx3Config() *Tpx3Config {
	return &Tpx3Config{}
}

const maxConfigFileSize = 1 * 1024 * 1024 // 1MB

// LoadTpx3Config loads a Tpx3Config from a JSON file, rejecting anything
// that is not a .json file or that exceeds the size cap.
func LoadTpx3Config(path string) (*Tpx3Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxConfigFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTpx3Config()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that set fields carry in-range values. Unset (nil)
// fields are always valid since their Get* accessor supplies a default.
func (c *Tpx3Config) Validate() error {
	if c.EpsSpatial != nil && *c.EpsSpatial < 0 {
		return fmt.Errorf("eps_spatial must be non-negative, got %f", *c.EpsSpatial)
	}
	if c.EpsTemporal != nil && *c.EpsTemporal < 0 {
		return fmt.Errorf("eps_temporal must be non-negative, got %f", *c.EpsTemporal)
	}
	if c.MinPts != nil && *c.MinPts < 1 {
		return fmt.Errorf("min_pts must be at least 1, got %d", *c.MinPts)
	}
	if c.QueryRegion != nil && *c.QueryRegion < 1 {
		return fmt.Errorf("query_region must be at least 1, got %d", *c.QueryRegion)
	}
	if c.MaxPacketsToRead != nil && *c.MaxPacketsToRead < 0 {
		return fmt.Errorf("max_packets_to_read must be non-negative, got %d", *c.MaxPacketsToRead)
	}
	if c.VerboseLevel != nil && (*c.VerboseLevel < 1 || *c.VerboseLevel > 4) {
		return fmt.Errorf("verbose_level must be between 1 and 4, got %d", *c.VerboseLevel)
	}
	return nil
}

// GetRawTpx3Folder returns raw_tpx3_folder or "." if unset.
func (c *Tpx3Config) GetRawTpx3Folder() string {
	if c.RawTpx3Folder == nil {
		return "."
	}
	return *c.RawTpx3Folder
}

// GetRawTpx3File returns raw_tpx3_file or "" if unset.
func (c *Tpx3Config) GetRawTpx3File() string {
	if c.RawTpx3File == nil {
		return ""
	}
	return *c.RawTpx3File
}

// GetRunHandle returns run_handle, or the raw file name without its
// extension if unset.
func (c *Tpx3Config) GetRunHandle() string {
	if c.RunHandle != nil && *c.RunHandle != "" {
		return *c.RunHandle
	}
	base := filepath.Base(c.GetRawTpx3File())
	return base[:len(base)-len(filepath.Ext(base))]
}

// GetWriteRawSignals returns write_raw_signals or false if unset.
func (c *Tpx3Config) GetWriteRawSignals() bool {
	if c.WriteRawSignals == nil {
		return false
	}
	return *c.WriteRawSignals
}

// GetWriteOutPhotons returns write_out_photons or true if unset.
func (c *Tpx3Config) GetWriteOutPhotons() bool {
	if c.WriteOutPhotons == nil {
		return true
	}
	return *c.WriteOutPhotons
}

// GetOutputFolder returns output_folder or "." if unset.
func (c *Tpx3Config) GetOutputFolder() string {
	if c.OutputFolder == nil {
		return "."
	}
	return *c.OutputFolder
}

// GetSortSignals returns sort_signals or true if unset: clustering requires
// temporal locality in index space, so sorting defaults on.
func (c *Tpx3Config) GetSortSignals() bool {
	if c.SortSignals == nil {
		return true
	}
	return *c.SortSignals
}

// GetClusterPixels returns cluster_pixels or true if unset.
func (c *Tpx3Config) GetClusterPixels() bool {
	if c.ClusterPixels == nil {
		return true
	}
	return *c.ClusterPixels
}

// GetEpsSpatial returns eps_spatial or 2.0 pixels if unset.
func (c *Tpx3Config) GetEpsSpatial() float64 {
	if c.EpsSpatial == nil {
		return 2.0
	}
	return *c.EpsSpatial
}

// GetEpsTemporal returns eps_temporal or 200ns if unset.
func (c *Tpx3Config) GetEpsTemporal() float64 {
	if c.EpsTemporal == nil {
		return 200e-9
	}
	return *c.EpsTemporal
}

// GetMinPts returns min_pts or 3 if unset.
func (c *Tpx3Config) GetMinPts() int {
	if c.MinPts == nil {
		return 3
	}
	return *c.MinPts
}

// GetQueryRegion returns query_region or 300 if unset.
func (c *Tpx3Config) GetQueryRegion() int {
	if c.QueryRegion == nil {
		return 300
	}
	return *c.QueryRegion
}

// GetMaxPacketsToRead returns max_packets_to_read, or 0 (unlimited) if unset.
func (c *Tpx3Config) GetMaxPacketsToRead() int {
	if c.MaxPacketsToRead == nil {
		return 0
	}
	return *c.MaxPacketsToRead
}

// GetVerboseLevel returns verbose_level or 1 if unset.
func (c *Tpx3Config) GetVerboseLevel() int {
	if c.VerboseLevel == nil {
		return 1
	}
	return *c.VerboseLevel
}
