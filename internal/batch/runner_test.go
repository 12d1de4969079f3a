package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"gasplan/internal/config"
	"gasplan/internal/controller"
	"gasplan/internal/engine"
	"gasplan/internal/model"
)

func testScenario(t *testing.T, name string) config.Scenario {
	t.Helper()
	return config.Scenario{
		Name:       name,
		Iterate:    true,
		OutputsDir: filepath.Join(t.TempDir(), "out"),
	}
}

func convergedResult() *controller.Result {
	return &controller.Result{
		RunID:       uuid.New(),
		Converged:   true,
		Iterations:  3,
		FinalMetric: 4e-4,
		Solution:    &engine.Solution{Objective: -1250.0},
		Bids:        model.BidSet{},
		History: []controller.IterationRecord{
			{Iteration: 0, Objective: -1100, Metric: 0.08},
			{Iteration: 1, Objective: -1240, Metric: 0.01},
			{Iteration: 2, Objective: -1250, Metric: 4e-4},
		},
	}
}

func TestRunContinuesPastFailedScenario(t *testing.T) {
	bad := testScenario(t, "infeasible-case")
	good := testScenario(t, "base-case")

	r := NewRunner(nil)
	r.execute = func(_ context.Context, s config.Scenario) (*controller.Result, *model.Topology, error) {
		if s.Name == "infeasible-case" {
			return nil, nil, &controller.Failure{
				Kind:       controller.FailEngineInfeasible,
				Iterations: 1,
				Err:        engine.ErrInfeasible,
			}
		}
		return convergedResult(), nil, nil
	}

	outcomes := r.Run(context.Background(), []config.Scenario{bad, good})
	require.Len(t, outcomes, 2)

	require.Equal(t, "EngineInfeasible", outcomes[0].State)
	require.Equal(t, 1, outcomes[0].Iterations)
	require.Error(t, outcomes[0].Err)

	require.Equal(t, "CONVERGED", outcomes[1].State)
	require.Equal(t, 3, outcomes[1].Iterations)
	require.NoError(t, outcomes[1].Err)
	require.Equal(t, -1250.0, outcomes[1].Objective)
}

func TestRunMarksSingleSolveAccepted(t *testing.T) {
	s := testScenario(t, "fixed-demand")
	s.Iterate = false

	r := NewRunner(nil)
	r.execute = func(context.Context, config.Scenario) (*controller.Result, *model.Topology, error) {
		res := convergedResult()
		res.Iterations = 1
		return res, nil, nil
	}

	outcomes := r.Run(context.Background(), []config.Scenario{s})
	require.Equal(t, "ACCEPTED", outcomes[0].State)
}

func TestMaxIterationsCarriesBestEffort(t *testing.T) {
	s := testScenario(t, "oscillating")

	best := convergedResult()
	best.Converged = false
	best.Iterations = 20
	best.FinalMetric = 0.04

	r := NewRunner(nil)
	r.execute = func(context.Context, config.Scenario) (*controller.Result, *model.Topology, error) {
		return nil, nil, &controller.Failure{
			Kind:       controller.FailMaxIterations,
			Iterations: 20,
			BestEffort: best,
			Err:        errors.New("no fixed point"),
		}
	}

	outcomes := r.Run(context.Background(), []config.Scenario{s})
	out := outcomes[0]
	require.Equal(t, "MaxIterationsExceeded", out.State)
	require.Equal(t, 20, out.Iterations)
	require.Error(t, out.Err)
	// The best-effort objective still surfaces for inspection.
	require.Equal(t, -1250.0, out.Objective)
}

func TestEverySummaryRowIsAppended(t *testing.T) {
	s := testScenario(t, "summary-check")

	r := NewRunner(nil)
	r.execute = func(context.Context, config.Scenario) (*controller.Result, *model.Topology, error) {
		return convergedResult(), nil, nil
	}

	require.NoError(t, os.MkdirAll(s.OutputsDir, 0o755))
	r.Run(context.Background(), []config.Scenario{s, s})

	raw, err := os.ReadFile(filepath.Join(s.OutputsDir, "summary.csv"))
	require.NoError(t, err)
	lines := 0
	for _, b := range raw {
		if b == '\n' {
			lines++
		}
	}
	require.Equal(t, 3, lines, "header plus one row per run")
}

func TestBuildEngineAndControllerOptions(t *testing.T) {
	s := config.Scenario{
		Name:    "tags",
		Modules: []string{config.ModuleWellBuild, config.ModuleDemandResponse},
		Iterate: true,

		Tolerance:           1e-4,
		MaxIterations:       30,
		SolveTimeoutSeconds: 2.5,
	}

	require.NotNil(t, BuildEngine(&s))

	opts := ControllerOptions(&s)
	require.True(t, opts.Iterate)
	require.Equal(t, 1e-4, opts.Tolerance)
	require.Equal(t, 30, opts.MaxIterations)
	require.Equal(t, "2.5s", opts.SolveTimeout.String())

	// Iterate without the demand-response capability collapses to a single
	// solve.
	s.Modules = []string{config.ModuleWellBuild}
	require.False(t, ControllerOptions(&s).Iterate)
}
