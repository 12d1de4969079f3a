package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"gasplan/internal/demand"
	"gasplan/internal/model"
)

// Options selects which build capabilities the engine may exercise, mirroring
// the scenario's module list.
type Options struct {
	AllowNewWells     bool
	AllowNewPipelines bool
	AllowNewLNG       bool
	UseStorage        bool
}

// MeritOrder is a transparent reference engine: each (zone, timepoint) is
// cleared against a per-zone supply stack built from wells, storage
// deliverability, LNG imports, and single-hop pipeline imports from
// neighboring zones. It is deliberately not an LP; it exists so the
// equilibrium loop has a real collaborator in runs and tests. Duals are the
// marginal supply cost at the cleared quantity, which is exactly what the
// balance-constraint duals of the LP formulation report.
type MeritOrder struct {
	opts Options
}

func NewMeritOrder(opts Options) *MeritOrder {
	return &MeritOrder{opts: opts}
}

type offer struct {
	cost float64
	cap  float64 // remaining capacity this timepoint
	kind string
	name string
	new  bool // true when dispatching this block implies a build
}

type block struct {
	sector    model.Sector
	wtp       float64
	qty       float64
	mustServe bool
}

func (e *MeritOrder) Solve(ctx context.Context, in SolveInput) (*Solution, error) {
	top := in.Topology
	if top == nil {
		return nil, errors.New("nil topology")
	}

	discount := make(map[string]float64, len(top.Periods))
	for _, p := range top.Periods {
		discount[p.Name] = p.DiscountFactor
	}

	sol := &Solution{
		Duals:      model.DualSet{},
		Quantities: map[model.BidKey]float64{},
	}
	built := map[string]*BuildDecision{}
	floors := e.localFloors(top)

	for _, tp := range top.Timepoints {
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
			}
			return nil, err
		}

		period, err := top.PeriodOfTimepoint(tp.Name)
		if err != nil {
			return nil, err
		}

		for _, z := range top.Zones {
			offers := e.offersForZone(top, z, floors)
			blocks := demandBlocks(in.Bids, z.Name, tp.Name)
			if len(blocks) == 0 {
				continue
			}

			served, dual, supplyCost, welfare, dispatched, err := clear(offers, blocks)
			if err != nil {
				return nil, fmt.Errorf("zone %s timepoint %s: %w", z.Name, tp.Name, err)
			}

			for sector, q := range served {
				key := model.BidKey{Zone: z.Name, Sector: sector, Timepoint: tp.Name}
				sol.Quantities[key] = q
				sol.Duals[key] = dual
			}
			sol.Objective += (supplyCost - welfare) * tp.WeightInYear * discount[period]

			// Takes of one offer within a timepoint are simultaneous and sum;
			// capacity across timepoints is reused, so only the largest
			// per-timepoint total requires a build.
			takes := map[string]*BuildDecision{}
			for _, d := range dispatched {
				if !d.new {
					continue
				}
				id := d.kind + "/" + d.name + "/" + period
				if b, ok := takes[id]; ok {
					b.Quantity += d.cap
					continue
				}
				takes[id] = &BuildDecision{Kind: d.kind, Zone: z.Name, Name: d.name, Period: period, Quantity: d.cap}
			}
			for id, bd := range takes {
				if b, ok := built[id]; ok {
					if bd.Quantity > b.Quantity {
						b.Quantity = bd.Quantity
					}
					continue
				}
				built[id] = bd
			}
		}
	}

	for _, b := range built {
		sol.Builds = append(sol.Builds, *b)
	}
	sort.Slice(sol.Builds, func(i, j int) bool {
		if sol.Builds[i].Zone != sol.Builds[j].Zone {
			return sol.Builds[i].Zone < sol.Builds[j].Zone
		}
		return sol.Builds[i].Name < sol.Builds[j].Name
	})
	return sol, nil
}

// localFloors computes each zone's cheapest local supply cost, used to price
// single-hop pipeline imports. Zones with no local supply price imports off
// their neighbors' LNG via +Inf, which simply removes them as sources.
func (e *MeritOrder) localFloors(top *model.Topology) map[string]float64 {
	floors := map[string]float64{}
	for _, z := range top.Zones {
		floor := math.Inf(1)
		for _, w := range top.Wells {
			if w.Zone == z.Name && w.ExistingCount > 0 && w.VariableCost < floor {
				floor = w.VariableCost
			}
		}
		for _, l := range top.LNG {
			if l.Zone == z.Name && l.VaporizationCapacity > 0 && l.ImportPrice < floor {
				floor = l.ImportPrice
			}
		}
		floors[z.Name] = floor
	}
	return floors
}

func (e *MeritOrder) offersForZone(top *model.Topology, z model.Zone, floors map[string]float64) []offer {
	var offers []offer

	yearWeight := 0.0
	for _, tp := range top.Timepoints {
		yearWeight += tp.WeightInYear
	}
	if yearWeight <= 0 {
		yearWeight = 1
	}

	for _, w := range top.Wells {
		if w.Zone != z.Name {
			continue
		}
		if w.ExistingCount > 0 {
			offers = append(offers, offer{
				cost: w.VariableCost,
				cap:  float64(w.ExistingCount) * w.ProductionRate,
				kind: "well",
				name: w.Zone + "/" + w.DrillType,
			})
		}
		if e.opts.AllowNewWells && z.NewWellsAllowed && w.NewBuildAllowed && w.MaxNewWells > 0 {
			// Levelize the annualized per-well fixed cost over a well's
			// annual production at full utilization.
			perUnit := w.FixedCostPerWell / (w.ProductionRate * yearWeight)
			offers = append(offers, offer{
				cost: w.VariableCost + perUnit,
				cap:  float64(w.MaxNewWells) * w.ProductionRate,
				kind: "well",
				name: w.Zone + "/" + w.DrillType,
				new:  true,
			})
		}
	}

	if e.opts.UseStorage {
		for _, s := range top.Storage {
			if s.Zone != z.Name || s.ReleaseCapacity <= 0 {
				continue
			}
			base := floors[z.Name]
			if math.IsInf(base, 1) {
				continue
			}
			eff := s.Efficiency
			if eff <= 0 || eff > 1 {
				eff = 1
			}
			offers = append(offers, offer{
				cost: base/eff + s.CycleCost,
				cap:  s.ReleaseCapacity,
				kind: "storage",
				name: s.Zone + "/" + s.Type,
			})
		}
	}

	for _, l := range top.LNG {
		if l.Zone != z.Name {
			continue
		}
		if l.VaporizationCapacity > 0 {
			offers = append(offers, offer{
				cost: l.ImportPrice,
				cap:  l.VaporizationCapacity,
				kind: "lng",
				name: l.Zone,
			})
		}
		if e.opts.AllowNewLNG && z.NewLNGAllowed && l.NewBuildAllowed && l.ImportLimit > 0 {
			offers = append(offers, offer{
				cost: l.ImportPrice + l.ExpansionCostPerUnit,
				cap:  l.ImportLimit,
				kind: "lng",
				name: l.Zone,
				new:  true,
			})
		}
	}

	for _, pl := range top.Pipelines {
		var from string
		var cap float64
		switch z.Name {
		case pl.ZoneB:
			from, cap = pl.ZoneA, pl.CapacityAtoB
		case pl.ZoneA:
			from, cap = pl.ZoneB, pl.CapacityBtoA
		default:
			continue
		}
		base := floors[from]
		if math.IsInf(base, 1) {
			continue
		}
		transport := pl.TransportCostPerUnit * pl.Length
		if cap > 0 {
			offers = append(offers, offer{
				cost: base + transport,
				cap:  cap,
				kind: "pipeline",
				name: pl.Name,
			})
		}
		if e.opts.AllowNewPipelines && pl.NewBuildAllowed {
			offers = append(offers, offer{
				cost: base + transport + pl.ExpansionCostPerUnit,
				cap:  math.Inf(1),
				kind: "pipeline",
				name: pl.Name,
				new:  true,
			})
		}
	}

	sort.SliceStable(offers, func(i, j int) bool { return offers[i].cost < offers[j].cost })
	return offers
}

// demandBlocks flattens both sectors' bid curves at one (zone, timepoint)
// into a single stack ordered by decreasing marginal willingness to pay.
// Must-serve floors sort ahead of everything else.
func demandBlocks(bids map[model.BidKey]demand.Bid, zone, timepoint string) []block {
	var blocks []block
	for _, sector := range model.Sectors {
		bid, ok := bids[model.BidKey{Zone: zone, Sector: sector, Timepoint: timepoint}]
		if !ok {
			continue
		}
		for i, seg := range bid.Segments {
			if seg.Quantity <= 0 {
				continue
			}
			blocks = append(blocks, block{
				sector:    sector,
				wtp:       seg.MarginalWTP,
				qty:       seg.Quantity,
				mustServe: i == 0,
			})
		}
	}
	sort.SliceStable(blocks, func(i, j int) bool {
		if blocks[i].mustServe != blocks[j].mustServe {
			return blocks[i].mustServe
		}
		return blocks[i].wtp > blocks[j].wtp
	})
	return blocks
}

// clear walks the demand stack against the supply stack. Must-serve blocks
// consume supply unconditionally; elastic blocks are served only while their
// willingness to pay covers the marginal offer cost.
func clear(offers []offer, blocks []block) (served map[model.Sector]float64, dual, supplyCost, welfare float64, dispatched []offer, err error) {
	served = map[model.Sector]float64{model.SectorEI: 0, model.SectorRC: 0}
	oi := 0
	dual = math.NaN()

	exhausted := false
	for _, bl := range blocks {
		remaining := bl.qty
		for remaining > 0 {
			if oi >= len(offers) {
				if bl.mustServe {
					return nil, 0, 0, 0, nil, fmt.Errorf("%w: must-serve demand exceeds deliverable supply", ErrInfeasible)
				}
				// Supply caps bind: the clearing price is the willingness to
				// pay of the first curtailed elastic block, not the cost of
				// the last dispatched offer.
				dual = bl.wtp
				exhausted = true
				remaining = 0
				break
			}
			o := &offers[oi]
			if !bl.mustServe && o.cost > bl.wtp {
				// This and every later block values gas below the marginal
				// offer; marginal service cost is still o.cost.
				dual = o.cost
				remaining = 0
				break
			}
			take := math.Min(remaining, o.cap)
			o.cap -= take
			remaining -= take
			served[bl.sector] += take
			supplyCost += o.cost * take
			welfare += bl.wtp * take
			dual = o.cost
			if take > 0 {
				dispatched = append(dispatched, offer{cost: o.cost, cap: take, kind: o.kind, name: o.name, new: o.new})
			}
			if o.cap <= 0 {
				oi++
			}
		}
		if exhausted {
			break
		}
	}

	if math.IsNaN(dual) {
		if len(offers) > 0 {
			dual = offers[0].cost
		} else {
			return nil, 0, 0, 0, nil, fmt.Errorf("%w: zone has no supply offers", ErrInfeasible)
		}
	}
	return served, dual, supplyCost, welfare, dispatched, nil
}
