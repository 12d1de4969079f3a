// Package controller drives the demand-response equilibrium loop: solve the
// network optimization for the current bids, recalibrate bids from the
// resulting dual prices, and repeat until quantities stop moving or the
// iteration budget runs out.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"gasplan/internal/demand"
	"gasplan/internal/engine"
	"gasplan/internal/model"
	"gasplan/internal/pricing"
)

// Options configures one scenario's equilibrium search.
type Options struct {
	// Iterate enables the full loop. When false the controller performs a
	// single solve and accepts it (fixed demand, no recalibration).
	Iterate bool

	// FlatPricing enables the revenue-neutral flat price for the RC sector.
	FlatPricing bool

	Tolerance     float64 // convergence threshold on max relative quantity change; default 1e-3
	QuantityFloor float64 // denominator floor for the convergence metric; default 1e-6
	MaxIterations int     // solve-call budget; default 20
	BidSegments   int     // bid-curve discretization; default 12

	// PriceFloor keeps offered prices strictly positive when duals dip to or
	// below zero (negative wholesale prices do occur). The demand model
	// itself rejects non-positive prices rather than clamping.
	PriceFloor float64 // default 1.0

	// SolveTimeout bounds each engine call; zero means no bound. Exceeding
	// it is treated identically to infeasibility.
	SolveTimeout time.Duration

	Pricing pricing.Options
}

func (o Options) withDefaults() Options {
	if o.Tolerance <= 0 {
		o.Tolerance = 1e-3
	}
	if o.QuantityFloor <= 0 {
		o.QuantityFloor = 1e-6
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = 20
	}
	if o.BidSegments <= 0 {
		o.BidSegments = 12
	}
	if o.PriceFloor <= 0 {
		o.PriceFloor = 1.0
	}
	return o
}

type Controller struct {
	engine engine.Engine
	curve  demand.Curve
	opts   Options
	log    *slog.Logger
}

func New(eng engine.Engine, curve demand.Curve, opts Options, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{engine: eng, curve: curve, opts: opts.withDefaults(), log: log}
}

// Run executes the scenario to completion. On failure the returned error is
// a *Failure carrying the kind and iteration count; MaxIterationsExceeded
// additionally carries the best-effort last result.
func (c *Controller) Run(ctx context.Context, top *model.Topology) (*Result, error) {
	state := &iterationState{runID: uuid.New(), phase: PhaseInitializing}

	if err := c.initialize(state, top); err != nil {
		return nil, &Failure{Kind: FailInvalidCalibration, Err: err}
	}

	for state.iteration = 0; state.iteration < c.opts.MaxIterations; state.iteration++ {
		state.phase = PhaseSolving
		sol, err := c.solve(ctx, state, top)
		if err != nil {
			return nil, c.classifySolve(state, err)
		}
		state.solution = sol

		if !c.opts.Iterate {
			// No elastic-demand loop configured: the single solve is the
			// accepted plan.
			state.phase = PhaseConverged
			return c.result(state, true, 0), nil
		}

		state.objectives = append(state.objectives, sol.Objective)

		state.phase = PhaseCalibrating
		prev := state.bids.Clone()
		if err := c.calibrate(state, top); err != nil {
			var rn *Failure
			if errors.As(err, &rn) {
				return nil, rn
			}
			return nil, &Failure{Kind: FailInvalidCalibration, Iterations: state.iteration + 1, Err: err}
		}

		metric := model.MaxRelativeChange(prev, state.bids, c.opts.QuantityFloor)
		state.metrics = append(state.metrics, metric)
		c.log.Info("iteration complete",
			"run", state.runID, "iteration", state.iteration,
			"objective", sol.Objective, "metric", metric)

		if metric < c.opts.Tolerance {
			state.phase = PhaseConverged
			return c.result(state, true, metric), nil
		}
	}

	state.phase = PhaseFailed
	final := math.NaN()
	if len(state.metrics) > 0 {
		final = state.metrics[len(state.metrics)-1]
	}
	return nil, &Failure{
		Kind:       FailMaxIterations,
		Iterations: c.opts.MaxIterations,
		BestEffort: c.result(state, false, final),
	}
}

// initialize builds the iteration-0 bid set straight from the reference
// price/quantity pairs; the elasticity term is exactly 1 at p == p0.
func (c *Controller) initialize(state *iterationState, top *model.Topology) error {
	bids := model.BidSet{}
	for _, ref := range top.DemandRefs {
		cal := demand.Calibration{RefPrice: ref.RefPrice, RefQuantity: ref.RefQuantity, Elasticity: ref.Elasticity}
		if err := cal.Validate(); err != nil {
			return fmt.Errorf("zone %s sector %s timepoint %s: %w", ref.Zone, ref.Sector, ref.Timepoint, err)
		}
		bids[model.BidKey{Zone: ref.Zone, Sector: ref.Sector, Timepoint: ref.Timepoint}] = &model.DemandBid{
			RefPrice:    ref.RefPrice,
			RefQuantity: ref.RefQuantity,
			Elasticity:  ref.Elasticity,
			Price:       ref.RefPrice,
			Quantity:    ref.RefQuantity,
		}
	}
	if len(bids) == 0 {
		return fmt.Errorf("%w: no demand reference rows", demand.ErrInvalidCalibration)
	}
	state.bids = bids
	return nil
}

func (c *Controller) solve(ctx context.Context, state *iterationState, top *model.Topology) (*engine.Solution, error) {
	curves := make(map[model.BidKey]demand.Bid, len(state.bids))
	for k, b := range state.bids {
		bid, err := c.curve.Bid(calibrationOf(b), b.Price, c.opts.BidSegments)
		if err != nil {
			return nil, err
		}
		curves[k] = bid
	}
	state.trail = append(state.trail, BidIteration{Iteration: state.iteration, Bids: curves})

	solveCtx := ctx
	if c.opts.SolveTimeout > 0 {
		var cancel context.CancelFunc
		solveCtx, cancel = context.WithTimeout(ctx, c.opts.SolveTimeout)
		defer cancel()
	}
	return c.engine.Solve(solveCtx, engine.SolveInput{Topology: top, Bids: curves})
}

func (c *Controller) classifySolve(state *iterationState, err error) error {
	iters := state.iteration + 1
	switch {
	case errors.Is(err, engine.ErrTimeout) || errors.Is(err, context.DeadlineExceeded):
		return &Failure{Kind: FailEngineTimeout, Iterations: iters, Err: err}
	case errors.Is(err, engine.ErrInfeasible):
		return &Failure{Kind: FailEngineInfeasible, Iterations: iters, Err: err}
	case errors.Is(err, demand.ErrInvalidCalibration):
		return &Failure{Kind: FailInvalidCalibration, Iterations: iters, Err: err}
	default:
		return &Failure{Kind: FailInternal, Iterations: iters, Err: err}
	}
}

// calibrate rewrites every bid's price from the latest duals (EI: marginal
// cost; RC: marginal cost + markup + exogenous adder, flattened per period
// when flat pricing is on) and recomputes quantities through the demand
// curve.
func (c *Controller) calibrate(state *iterationState, top *model.Topology) error {
	sol := state.solution
	adders := c.costAdders(state, top)

	// RC loads are grouped per (zone, period) so the flat price can be
	// solved once per group.
	type group struct {
		keys  []model.BidKey
		loads []pricing.TimepointLoad
	}
	rcGroups := map[[2]string]*group{}

	for _, k := range state.bids.Keys() {
		b := state.bids[k]
		dual, ok := sol.Duals[k]
		if !ok {
			continue
		}
		period, err := top.PeriodOfTimepoint(k.Timepoint)
		if err != nil {
			return err
		}

		switch k.Sector {
		case model.SectorEI:
			if err := c.reprice(b, dual); err != nil {
				return err
			}
		case model.SectorRC:
			cost := dual + top.RCMarkup[k.Zone]
			if top.IsAdderZone(k.Zone) {
				cost += adders[period]
			}
			if !c.opts.FlatPricing {
				if err := c.reprice(b, cost); err != nil {
					return err
				}
				continue
			}
			gk := [2]string{k.Zone, period}
			g := rcGroups[gk]
			if g == nil {
				g = &group{}
				rcGroups[gk] = g
			}
			tp, _ := top.TimepointByName(k.Timepoint)
			g.keys = append(g.keys, k)
			g.loads = append(g.loads, pricing.TimepointLoad{
				Cal:             calibrationOf(b),
				RecoverableCost: math.Max(cost, c.opts.PriceFloor),
				Weight:          tp.WeightInYear,
			})
		}
	}

	for gk, g := range rcGroups {
		flat, err := pricing.FlatPrice(c.curve, g.loads, c.opts.Pricing)
		if err != nil {
			if errors.Is(err, pricing.ErrRevenueNeutralityNotFound) {
				return &Failure{Kind: FailRevenueNeutrality, Iterations: state.iteration + 1, Err: fmt.Errorf("zone %s period %s: %w", gk[0], gk[1], err)}
			}
			return err
		}
		for _, k := range g.keys {
			if err := c.reprice(state.bids[k], flat); err != nil {
				return err
			}
		}
	}
	return nil
}

// reprice sets a bid's offered price (floored to stay strictly positive) and
// recomputes its quantity on the demand curve.
func (c *Controller) reprice(b *model.DemandBid, price float64) error {
	p := math.Max(price, c.opts.PriceFloor)
	q, err := c.curve.Quantity(calibrationOf(b), p)
	if err != nil {
		return err
	}
	b.Price = p
	b.Quantity = q
	return nil
}

// costAdders spreads each period's exogenous pipeline cost over the RC
// volume served in the adder zones, matching how the original allocation
// treats an exogenously built line.
func (c *Controller) costAdders(state *iterationState, top *model.Topology) map[string]float64 {
	out := map[string]float64{}
	if len(top.CostAdders) == 0 || len(top.AdderZones) == 0 {
		return out
	}
	for period, cost := range top.CostAdders {
		volume := 0.0
		for _, tp := range top.TimepointsInPeriod(period) {
			for _, z := range top.AdderZones {
				k := model.BidKey{Zone: z, Sector: model.SectorRC, Timepoint: tp.Name}
				q, ok := state.solution.Quantities[k]
				if !ok {
					if b, found := state.bids[k]; found {
						q = b.Quantity
					}
				}
				volume += q * tp.WeightInYear
			}
		}
		if volume > 0 {
			out[period] = cost / volume
		}
	}
	return out
}

func (c *Controller) result(state *iterationState, converged bool, finalMetric float64) *Result {
	history := make([]IterationRecord, 0, len(state.metrics))
	for i, m := range state.metrics {
		rec := IterationRecord{Iteration: i, Metric: m}
		if i < len(state.objectives) {
			rec.Objective = state.objectives[i]
		}
		history = append(history, rec)
	}
	iters := state.iteration + 1
	if state.iteration >= c.opts.MaxIterations {
		// Called after the loop exhausted its budget.
		iters = c.opts.MaxIterations
	}
	return &Result{
		RunID:       state.runID,
		Converged:   converged,
		Iterations:  iters,
		FinalMetric: finalMetric,
		Solution:    state.solution,
		Bids:        state.bids.Clone(),
		History:     history,
		BidTrail:    state.trail,
	}
}

func calibrationOf(b *model.DemandBid) demand.Calibration {
	return demand.Calibration{RefPrice: b.RefPrice, RefQuantity: b.RefQuantity, Elasticity: b.Elasticity}
}
