// Package batch executes scenario descriptors to completion, one outcome per
// scenario. Scenarios are independent: a failure is recorded and the batch
// moves on.
package batch

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"gasplan/internal/config"
	"gasplan/internal/controller"
	"gasplan/internal/data"
	"gasplan/internal/demand"
	"gasplan/internal/engine"
	"gasplan/internal/model"
	"gasplan/internal/pricing"
	"gasplan/internal/report"
)

// Outcome is one scenario's terminal result.
type Outcome struct {
	Scenario   string
	RunID      string
	State      string // CONVERGED, ACCEPTED (single solve) or a failure kind
	Iterations int
	Objective  float64
	Err        error
}

// Runner executes scenarios sequentially. Distinct scenarios share no
// mutable state, so callers wanting parallelism can run one Runner per
// scenario; within a scenario the loop is strictly sequential.
type Runner struct {
	log *slog.Logger

	// execute is swapped out in tests to isolate batch semantics from
	// scenario internals.
	execute func(ctx context.Context, s config.Scenario) (*controller.Result, *model.Topology, error)
}

func NewRunner(log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	r := &Runner{log: log}
	r.execute = r.runScenario
	return r
}

// Run executes every scenario and keeps going when one fails.
func (r *Runner) Run(ctx context.Context, scenarios []config.Scenario) []Outcome {
	outcomes := make([]Outcome, 0, len(scenarios))
	for _, s := range scenarios {
		out := r.runOne(ctx, s)
		if out.Err != nil {
			r.log.Error("scenario failed", "scenario", s.Name, "state", out.State, "iterations", out.Iterations, "err", out.Err)
		} else {
			r.log.Info("scenario complete", "scenario", s.Name, "state", out.State, "iterations", out.Iterations, "objective", out.Objective)
		}
		outcomes = append(outcomes, out)
	}
	return outcomes
}

func (r *Runner) runOne(ctx context.Context, s config.Scenario) Outcome {
	out := Outcome{Scenario: s.Name, Objective: math.NaN()}
	if s.OutputsDir != "" {
		if err := os.MkdirAll(s.OutputsDir, 0o755); err != nil {
			out.State = "ERROR"
			out.Err = err
			return out
		}
	}
	res, top, err := r.execute(ctx, s)

	var fail *controller.Failure
	switch {
	case err == nil:
		out.State = "CONVERGED"
		if !s.Iterate {
			out.State = "ACCEPTED"
		}
	case errors.As(err, &fail):
		out.State = string(fail.Kind)
		out.Iterations = fail.Iterations
		out.Err = err
		// A budget overrun still carries the last completed solve as a
		// best-effort, non-authoritative result.
		res = fail.BestEffort
	default:
		out.State = "ERROR"
		out.Err = err
	}

	if res != nil {
		out.RunID = res.RunID.String()
		out.Iterations = res.Iterations
		if res.Solution != nil {
			out.Objective = res.Solution.Objective
		}
		if top != nil {
			r.writeOutputs(s, top, res)
		}
	}
	var stats []report.SectorPeriodStat
	if res != nil && top != nil {
		stats = report.SectorPeriodStats(top, res.Bids)
	}
	if werr := report.AppendSummary(filepath.Join(s.OutputsDir, "summary.csv"), report.SummaryRow{
		RunID:       out.RunID,
		Scenario:    s.Name,
		State:       out.State,
		Iterations:  out.Iterations,
		FinalMetric: finalMetric(res),
		Objective:   out.Objective,
		Stats:       stats,
	}); werr != nil && out.Err == nil {
		out.Err = werr
	}
	return out
}

func (r *Runner) writeOutputs(s config.Scenario, top *model.Topology, res *controller.Result) {
	if err := report.WriteSolution(filepath.Join(s.OutputsDir, "solution.csv"), top, res); err != nil {
		r.log.Error("write solution", "scenario", s.Name, "err", err)
	}
	if err := report.WriteConvergence(filepath.Join(s.OutputsDir, "convergence.csv"), res.History); err != nil {
		r.log.Error("write convergence", "scenario", s.Name, "err", err)
	}
	if err := report.WriteBids(filepath.Join(s.OutputsDir, "bids.csv"), top, res.BidTrail); err != nil {
		r.log.Error("write bids", "scenario", s.Name, "err", err)
	}
}

// runScenario is the real scenario execution: load inputs, assemble the
// configured components, run the controller.
func (r *Runner) runScenario(ctx context.Context, s config.Scenario) (*controller.Result, *model.Topology, error) {
	top, err := data.LoadTopology(&s)
	if err != nil {
		return nil, nil, err
	}
	curve, err := demand.New(s.DemandModule)
	if err != nil {
		return nil, nil, err
	}
	ctl := controller.New(BuildEngine(&s), curve, ControllerOptions(&s), r.log.With("scenario", s.Name))
	res, err := ctl.Run(ctx, top)
	return res, top, err
}

// BuildEngine maps the scenario's capability tags onto the reference
// engine's build switches. This is the statically-typed registry: tags are a
// closed set resolved here, never string-dispatched downstream.
func BuildEngine(s *config.Scenario) engine.Engine {
	return engine.NewMeritOrder(engine.Options{
		AllowNewPipelines: s.HasModule(config.ModuleNetworkBuild),
		AllowNewWells:     s.HasModule(config.ModuleWellBuild),
		AllowNewLNG:       s.HasModule(config.ModuleLNGBuild),
		UseStorage:        s.HasModule(config.ModuleBalance),
	})
}

// ControllerOptions translates descriptor fields into loop options, leaving
// zero values to the controller's documented defaults.
func ControllerOptions(s *config.Scenario) controller.Options {
	return controller.Options{
		Iterate:       s.Iterate && s.HasModule(config.ModuleDemandResponse),
		FlatPricing:   s.FlatPricing,
		Tolerance:     s.Tolerance,
		QuantityFloor: s.QuantityFloor,
		MaxIterations: s.MaxIterations,
		BidSegments:   s.BidSegments,
		PriceFloor:    s.PriceFloor,
		SolveTimeout:  time.Duration(s.SolveTimeoutSeconds * float64(time.Second)),
		Pricing:       pricing.Options{},
	}
}

func finalMetric(res *controller.Result) float64 {
	if res == nil {
		return math.NaN()
	}
	return res.FinalMetric
}
