package controller

import (
	"github.com/google/uuid"

	"gasplan/internal/demand"
	"gasplan/internal/engine"
	"gasplan/internal/model"
)

// Phase tracks where the equilibrium loop currently is.
type Phase string

const (
	PhaseInitializing Phase = "INITIALIZING"
	PhaseSolving      Phase = "SOLVING"
	PhaseCalibrating  Phase = "CALIBRATING"
	PhaseConverged    Phase = "CONVERGED"
	PhaseFailed       Phase = "FAILED"
)

// iterationState is the controller's private carry-over between cycles. The
// engine is stateless; everything that survives an iteration lives here. It
// is created at the start of Run and discarded when the loop terminates.
type iterationState struct {
	runID     uuid.UUID
	phase     Phase
	iteration int

	bids     model.BidSet
	solution *engine.Solution

	metrics    []float64
	objectives []float64
	trail      []BidIteration
}

// BidIteration is one iteration's offered bid curves, exactly as submitted to
// the engine.
type BidIteration struct {
	Iteration int
	Bids      map[model.BidKey]demand.Bid
}

// IterationRecord is one row of convergence diagnostics.
type IterationRecord struct {
	Iteration int
	Objective float64
	Metric    float64
}

// Result is the accepted outcome of a scenario run. Authoritative only when
// Converged is true.
type Result struct {
	RunID       uuid.UUID
	Converged   bool
	Iterations  int
	FinalMetric float64

	Solution *engine.Solution
	Bids     model.BidSet
	History  []IterationRecord
	BidTrail []BidIteration
}
