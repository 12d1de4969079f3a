package model

import (
	"math"
	"sort"
)

// BidKey identifies one demand bid: a zone, a sector, and a timepoint.
type BidKey struct {
	Zone      string
	Sector    Sector
	Timepoint string
}

// DemandBid is the evolving bid for one (zone, sector, timepoint).
// RefPrice/RefQuantity are the calibration anchors and never change after
// iteration 0; Price and Quantity are rewritten each calibration pass.
type DemandBid struct {
	RefPrice    float64
	RefQuantity float64
	Elasticity  float64

	Price    float64
	Quantity float64
}

// BidSet is the full bid state for one iteration.
type BidSet map[BidKey]*DemandBid

func (s BidSet) Clone() BidSet {
	out := make(BidSet, len(s))
	for k, b := range s {
		cp := *b
		out[k] = &cp
	}
	return out
}

// Keys returns the bid keys in a stable order for deterministic iteration
// and output.
func (s BidSet) Keys() []BidKey {
	keys := make([]BidKey, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Zone != b.Zone {
			return a.Zone < b.Zone
		}
		if a.Timepoint != b.Timepoint {
			return a.Timepoint < b.Timepoint
		}
		return a.Sector < b.Sector
	})
	return keys
}

// MaxRelativeChange is the outer-loop convergence metric: the largest
// relative quantity move between two bid sets. floor guards the denominator
// near zero.
func MaxRelativeChange(prev, next BidSet, floor float64) float64 {
	worst := 0.0
	for k, nb := range next {
		pb, ok := prev[k]
		if !ok {
			continue
		}
		den := math.Max(math.Abs(pb.Quantity), floor)
		rel := math.Abs(nb.Quantity-pb.Quantity) / den
		if rel > worst {
			worst = rel
		}
	}
	return worst
}

// DualSet holds the marginal value of one more unit of demand at each
// (zone, sector, timepoint), from the engine's balance constraint duals.
type DualSet map[BidKey]float64
