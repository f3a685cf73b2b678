// Package cluster implements the Sorter, NeighborIndex, ST-DBSCAN
// ClusterEngine and PhotonEmitter stages: given a signal array, it assigns
// each pixel record to a cluster or to noise, then reduces each cluster to
// a charge-weighted photon record.
package cluster

import (
	"math"
	"sort"

	"github.com/banshee-data/tpx3decode/internal/tpx3"
)

// Params bounds the ST-DBSCAN search.
type Params struct {
	EpsSpatial  float64 // maximum Euclidean pixel distance
	EpsTemporal float64 // maximum arrival-time difference, seconds
	MinPts      int     // minimum neighborhood size to form a cluster
	QueryRegion int     // NeighborIndex half-window, in array positions
}

// Stats counts cluster-stage outcomes for the pipeline's diagnostics.
type Stats struct {
	Clusters           uint64
	Noise              uint64
	DegenerateClusters uint64
}

// SortByArrival reorders signals in place by non-decreasing ToAFinal. The
// ordering of equal-time records is unspecified; NeighborIndex's array-index
// window depends only on this sort giving temporal locality in index space.
func SortByArrival(signals []tpx3.SignalRecord) {
	sort.Slice(signals, func(i, j int) bool {
		return signals[i].ToAFinal < signals[j].ToAFinal
	})
}

// neighborWindow computes the bounded [lo, hi] index range NeighborIndex
// allows a region query to scan around home.
func neighborWindow(home, queryRegion, n int) (lo, hi int) {
	lo = home - queryRegion
	if lo < 0 {
		lo = 0
	}
	hi = home + queryRegion
	if hi > n-1 {
		hi = n - 1
	}
	return lo, hi
}

func isPixelNeighbor(a, b tpx3.SignalRecord, p Params) bool {
	if a.SignalType != tpx3.SignalPixel || b.SignalType != tpx3.SignalPixel {
		return false
	}
	dx := float64(a.XPixel) - float64(b.XPixel)
	dy := float64(a.YPixel) - float64(b.YPixel)
	if math.Sqrt(dx*dx+dy*dy) > p.EpsSpatial {
		return false
	}
	dt := a.ToAFinal - b.ToAFinal
	if dt < 0 {
		dt = -dt
	}
	return dt <= p.EpsTemporal
}

// regionQuery returns the indices within home's NeighborIndex window that
// satisfy the neighborhood predicate, home included (the seed counts
// toward its own min_pts test).
func regionQuery(signals []tpx3.SignalRecord, home int, p Params) []int {
	lo, hi := neighborWindow(home, p.QueryRegion, len(signals))
	var neighbors []int
	for j := lo; j <= hi; j++ {
		if isPixelNeighbor(signals[home], signals[j], p) {
			neighbors = append(neighbors, j)
		}
	}
	return neighbors
}

type accumulator struct {
	sumXWeighted   float64
	sumYWeighted   float64
	sumToAWeighted float64
	sumToT         float64
	multiplicity   int
}

func (a *accumulator) add(s tpx3.SignalRecord) {
	weight := float64(s.ToTFinal)
	a.sumXWeighted += float64(s.XPixel) * weight
	a.sumYWeighted += float64(s.YPixel) * weight
	a.sumToAWeighted += s.ToAFinal * weight
	a.sumToT += weight
	a.multiplicity++
}

// Run executes the ClusterEngine and PhotonEmitter over signals, which must
// already be sorted by arrival time. It mutates each pixel signal's
// GroupID in place and returns the emitted photon records.
func Run(signals []tpx3.SignalRecord, p Params) ([]tpx3.PhotonRecord, Stats) {
	var (
		photons []tpx3.PhotonRecord
		stats   Stats
		nextID  uint32 = tpx3.GroupFirstCluster
	)

	for i := range signals {
		if signals[i].SignalType != tpx3.SignalPixel || signals[i].GroupID != tpx3.GroupUnvisited {
			continue
		}

		seedNeighbors := regionQuery(signals, i, p)
		if len(seedNeighbors) < p.MinPts {
			signals[i].GroupID = tpx3.GroupNoise
			stats.Noise++
			continue
		}

		cid := nextID
		nextID++
		stats.Clusters++

		acc := expand(signals, i, seedNeighbors, cid, p)

		photon, degenerate := emit(acc)
		if degenerate {
			stats.DegenerateClusters++
			continue
		}
		photons = append(photons, photon)
	}

	return photons, stats
}

// expand iteratively grows the cluster cid starting from the seed's
// neighbor list, folding every admitted pixel into the weighted centroid
// accumulator. It is a queue-driven loop, not recursion, so cluster size is
// bounded only by available memory, not call-stack depth.
func expand(signals []tpx3.SignalRecord, seed int, seedNeighbors []int, cid uint32, p Params) accumulator {
	var acc accumulator

	signals[seed].GroupID = cid
	acc.add(signals[seed])

	queue := append([]int(nil), seedNeighbors...)
	for qi := 0; qi < len(queue); qi++ {
		idx := queue[qi]
		if idx == seed {
			continue
		}
		if signals[idx].SignalType != tpx3.SignalPixel {
			continue
		}

		switch signals[idx].GroupID {
		case tpx3.GroupNoise:
			signals[idx].GroupID = cid
			acc.add(signals[idx])
		case tpx3.GroupUnvisited:
			signals[idx].GroupID = cid
			acc.add(signals[idx])
			more := regionQuery(signals, idx, p)
			if len(more) >= p.MinPts {
				queue = append(queue, more...)
			}
		default:
			// already claimed by this or another cluster; nothing to do.
		}
	}

	return acc
}

const (
	maxUint16 = 1<<16 - 1
	maxUint8  = 1<<8 - 1
)

// emit reduces a terminated cluster's accumulator into a photon record. A
// zero total weight means every contributing record had tot_final == 0;
// the cluster is dropped as degenerate rather than dividing by zero.
func emit(acc accumulator) (tpx3.PhotonRecord, bool) {
	if acc.sumToT == 0 {
		return tpx3.PhotonRecord{}, true
	}

	integrated := acc.sumToT
	if integrated > maxUint16 {
		integrated = maxUint16
	}
	multiplicity := acc.multiplicity
	if multiplicity > maxUint8 {
		multiplicity = maxUint8
	}

	return tpx3.PhotonRecord{
		PhotonX:       acc.sumXWeighted / acc.sumToT,
		PhotonY:       acc.sumYWeighted / acc.sumToT,
		PhotonToA:     acc.sumToAWeighted / acc.sumToT,
		IntegratedToT: uint16(integrated),
		Multiplicity:  uint8(multiplicity),
	}, false
}
