// Package engine defines the contract between the iteration controller and
// the network optimization engine, plus a transparent reference
// implementation. The controller only ever sees the Engine interface; a full
// LP/MILP formulation can be swapped in behind it without touching the loop.
package engine

import (
	"context"
	"errors"

	"gasplan/internal/demand"
	"gasplan/internal/model"
)

var (
	// ErrInfeasible means no dispatch satisfies flow balance and capacity
	// limits even with demand reduced to its must-serve floor. Fatal to the
	// scenario; never retried.
	ErrInfeasible = errors.New("no feasible dispatch for the current bid set")

	// ErrTimeout means the per-solve wall-clock budget was exceeded. Treated
	// identically to infeasibility by the controller.
	ErrTimeout = errors.New("solve wall-clock budget exceeded")
)

// SolveInput is one complete, self-contained solve request. The engine holds
// no state across calls; everything it needs arrives here.
type SolveInput struct {
	Topology *model.Topology
	Bids     map[model.BidKey]demand.Bid
}

// BuildDecision is one capacity addition chosen by the engine.
type BuildDecision struct {
	Kind     string // "well", "pipeline", "lng"
	Zone     string
	Name     string
	Period   string
	Quantity float64
}

// Solution is the engine's answer for one bid set.
type Solution struct {
	// Objective is discounted system cost net of consumer welfare.
	Objective float64

	// Duals holds the marginal cost of serving one more unit at each
	// (zone, sector, timepoint).
	Duals model.DualSet

	// Quantities is the demand actually served per (zone, sector, timepoint).
	Quantities map[model.BidKey]float64

	Builds []BuildDecision
}

// Engine solves the investment+dispatch problem for a fixed bid set.
// Implementations must be stateless across calls and honor ctx deadlines.
type Engine interface {
	Solve(ctx context.Context, in SolveInput) (*Solution, error)
}
