package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"

	"gasplan/internal/batch"
	"gasplan/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "run":
		cmdRun(os.Args[2:])
	case "batch":
		cmdBatch(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  cli run --scenario scenarios/base.yaml")
	fmt.Println("  cli batch --file scenarios/all.yaml")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - run executes one scenario descriptor to completion")
	fmt.Println("  - batch executes a list of descriptors; one failure does not stop the rest")
}

func cmdRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	scenarioPath := fs.String("scenario", "", "Path to a scenario descriptor (YAML)")
	verbose := fs.Bool("v", false, "Debug logging")
	_ = fs.Parse(args)

	if *scenarioPath == "" {
		fmt.Println("--scenario is required")
		os.Exit(2)
	}

	log := newLogger(*verbose)
	s, err := config.LoadScenario(*scenarioPath)
	if err != nil {
		log.Error("load scenario", "err", err)
		os.Exit(1)
	}

	runner := batch.NewRunner(log)
	outcomes := runner.Run(context.Background(), []config.Scenario{*s})
	printOutcomes(outcomes)
	if outcomes[0].Err != nil {
		os.Exit(1)
	}
}

func cmdBatch(args []string) {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	filePath := fs.String("file", "", "Path to a batch file (YAML list of scenarios)")
	verbose := fs.Bool("v", false, "Debug logging")
	_ = fs.Parse(args)

	if *filePath == "" {
		fmt.Println("--file is required")
		os.Exit(2)
	}

	log := newLogger(*verbose)
	b, err := config.LoadBatch(*filePath)
	if err != nil {
		log.Error("load batch", "err", err)
		os.Exit(1)
	}

	runner := batch.NewRunner(log)
	outcomes := runner.Run(context.Background(), b.Scenarios)
	printOutcomes(outcomes)
	for _, o := range outcomes {
		if o.Err != nil {
			os.Exit(1)
		}
	}
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level}))
}

func printOutcomes(outcomes []batch.Outcome) {
	fmt.Printf("%-24s %-28s %-6s %-14s\n", "scenario", "state", "iters", "objective")
	for _, o := range outcomes {
		fmt.Printf("%-24s %-28s %-6d %-14.2f\n", o.Scenario, o.State, o.Iterations, o.Objective)
	}
}
