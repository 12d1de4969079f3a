package model

import "fmt"

// Pipeline connects two zones. Capacities are per-timepoint deliverable
// volumes in each direction. Expansion cost is annualized $/unit of new
// directional capacity; the annuity arithmetic happens upstream.
type Pipeline struct {
	Name  string
	ZoneA string
	ZoneB string

	Length float64

	CapacityAtoB float64
	CapacityBtoA float64

	NewBuildAllowed      bool
	ExpansionCostPerUnit float64
	TransportCostPerUnit float64
}

// StorageUnit is underground storage in a zone. The reference engine treats
// it as additional deliverability at a cycling cost; seasonal arbitrage is
// left to a full LP formulation.
type StorageUnit struct {
	Zone string
	Type string

	ReleaseCapacity float64 // per timepoint
	Efficiency      float64
	CycleCost       float64 // $/unit released

	NewBuildAllowed bool
}

// Well is a producing well group (one row per zone and drill type).
type Well struct {
	Zone      string
	DrillType string

	ExistingCount    int
	ProductionRate   float64 // units per timepoint per well
	VariableCost     float64 // $/unit produced
	FixedCostPerWell float64 // annualized $/well, charged on new builds

	NewBuildAllowed bool
	MaxNewWells     int
}

// LNGTerminal is per-zone LNG import capability.
type LNGTerminal struct {
	Zone string

	VaporizationCapacity float64 // per timepoint
	ImportLimit          float64 // per timepoint, from trade reference tables
	ImportPrice          float64 // $/unit delivered

	NewBuildAllowed      bool
	ExpansionCostPerUnit float64
}

// DemandRef is one calibration row: the reference price/quantity pair and
// elasticity for a (zone, sector, timepoint).
type DemandRef struct {
	Zone      string
	Sector    Sector
	Timepoint string

	RefPrice    float64
	RefQuantity float64
	Elasticity  float64
}

// Topology is the static network handed to the optimization engine. It is
// read-only for the life of a scenario run.
type Topology struct {
	Zones      []Zone
	Periods    []Period
	Timeseries []Timeseries
	Timepoints []Timepoint

	Pipelines []Pipeline
	Storage   []StorageUnit
	Wells     []Well
	LNG       []LNGTerminal

	DemandRefs []DemandRef

	// RCMarkup is a per-zone retail adder on the RC recoverable cost.
	RCMarkup map[string]float64

	// CostAdders carries the annualized cost of exogenously built pipeline
	// capacity per period, recovered from RC demand in AdderZones.
	CostAdders map[string]float64
	AdderZones []string
}

func (t *Topology) ZoneByName(name string) (Zone, bool) {
	for _, z := range t.Zones {
		if z.Name == name {
			return z, true
		}
	}
	return Zone{}, false
}

func (t *Topology) TimepointByName(name string) (Timepoint, bool) {
	for _, tp := range t.Timepoints {
		if tp.Name == name {
			return tp, true
		}
	}
	return Timepoint{}, false
}

func (t *Topology) TimeseriesByName(name string) (Timeseries, bool) {
	for _, ts := range t.Timeseries {
		if ts.Name == name {
			return ts, true
		}
	}
	return Timeseries{}, false
}

// PeriodOfTimepoint resolves a timepoint to its owning period.
func (t *Topology) PeriodOfTimepoint(name string) (string, error) {
	tp, ok := t.TimepointByName(name)
	if !ok {
		return "", fmt.Errorf("unknown timepoint %q", name)
	}
	ts, ok := t.TimeseriesByName(tp.Timeseries)
	if !ok {
		return "", fmt.Errorf("timepoint %q references unknown timeseries %q", name, tp.Timeseries)
	}
	return ts.Period, nil
}

// TimepointsInPeriod lists the timepoints owned by a period, in input order.
func (t *Topology) TimepointsInPeriod(period string) []Timepoint {
	series := map[string]bool{}
	for _, ts := range t.Timeseries {
		if ts.Period == period {
			series[ts.Name] = true
		}
	}
	var out []Timepoint
	for _, tp := range t.Timepoints {
		if series[tp.Timeseries] {
			out = append(out, tp)
		}
	}
	return out
}

// IsAdderZone reports whether a zone shares the exogenous pipeline cost.
func (t *Topology) IsAdderZone(zone string) bool {
	for _, z := range t.AdderZones {
		if z == zone {
			return true
		}
	}
	return false
}
