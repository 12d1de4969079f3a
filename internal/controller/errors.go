package controller

import "fmt"

// FailureKind is the scenario-scoped failure taxonomy. Every kind is fatal to
// its scenario and never retried; batch execution continues past it.
type FailureKind string

const (
	FailInvalidCalibration FailureKind = "InvalidCalibrationInput"
	FailEngineInfeasible   FailureKind = "EngineInfeasible"
	FailEngineTimeout      FailureKind = "EngineTimeout"
	FailRevenueNeutrality  FailureKind = "RevenueNeutralityNotFound"
	FailMaxIterations      FailureKind = "MaxIterationsExceeded"

	// FailInternal covers engine errors outside the modeled taxonomy, such as
	// malformed solve inputs. These indicate a bug or bad wiring, not an
	// economic outcome.
	FailInternal FailureKind = "InternalError"
)

// Failure is a terminal scenario failure. For MaxIterationsExceeded the last
// completed iteration's result rides along as BestEffort; callers must treat
// it as a failed scenario, not a degraded success.
type Failure struct {
	Kind       FailureKind
	Iterations int
	BestEffort *Result
	Err        error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s after %d iterations: %v", f.Kind, f.Iterations, f.Err)
	}
	return fmt.Sprintf("%s after %d iterations", f.Kind, f.Iterations)
}

func (f *Failure) Unwrap() error { return f.Err }
