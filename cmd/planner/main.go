// Command planner runs one scheduling session end to end: read the four
// input tables from a directory, compress the calendar, build and solve
// the model, and write the output tables back out (spec.md §6.3). It is a
// thin adapter over internal/engine — planificar_linea_produccion's
// top-level orchestration, rehosted as a CLI instead of a notebook entry
// point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/tebeka/atexit"

	"github.com/gitrdm/linebalancer/internal/calendar"
	"github.com/gitrdm/linebalancer/internal/config"
	"github.com/gitrdm/linebalancer/internal/engine"
	"github.com/gitrdm/linebalancer/internal/ioadapter"
	"github.com/gitrdm/linebalancer/internal/plannererr"
	"github.com/gitrdm/linebalancer/internal/taskgraph"
)

const (
	exitOK         = 0
	exitNoSchedule = 1
	exitBuildError = 2
)

func main() {
	debug := flag.Bool("debug", false, "enable solver debug logging")
	profileName := flag.String("profile", "default", "solver profile: default or production")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: planner [-debug] [-profile default|production] <input_dir>")
		atexit.Exit(exitBuildError)
		return
	}
	inputDir := flag.Arg(0)

	profile, err := config.Named(*profileName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		atexit.Exit(exitBuildError)
		return
	}
	profile.Debug = *debug

	var logger *log.Logger
	if profile.Debug {
		logger = log.New(os.Stderr, "planner: ", log.LstdFlags)
	}

	outputDir := filepath.Join(inputDir, "output")
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "planner: create output dir: %v\n", err)
		atexit.Exit(exitBuildError)
		return
	}

	store, err := ioadapter.OpenStore(filepath.Join(outputDir, "results.db"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "planner: open results store: %v\n", err)
		atexit.Exit(exitBuildError)
		return
	}
	atexit.Register(func() {
		if cerr := store.Close(); cerr != nil && logger != nil {
			logger.Printf("results store close: %v", cerr)
		}
	})

	result, err := run(inputDir, profile, logger)
	if err != nil {
		var perr *plannererr.Error
		if errors.As(err, &perr) && perr.Kind.Fatal() {
			fmt.Fprintf(os.Stderr, "planner: %v\n", err)
			atexit.Exit(exitBuildError)
			return
		}
		fmt.Fprintf(os.Stderr, "planner: %v\n", err)
		atexit.Exit(exitNoSchedule)
		return
	}

	ioadapter.PrintResult(os.Stdout, result)

	if err := ioadapter.WriteOutputs(outputDir, result); err != nil {
		fmt.Fprintf(os.Stderr, "planner: write outputs: %v\n", err)
		atexit.Exit(exitBuildError)
		return
	}
	if err := store.SaveRaw(time.Now().UTC().Format(time.RFC3339), result); err != nil {
		fmt.Fprintf(os.Stderr, "planner: save raw results: %v\n", err)
		atexit.Exit(exitBuildError)
		return
	}

	switch result.Status {
	case engine.StatusOptimal, engine.StatusFeasible:
		atexit.Exit(exitOK)
	default:
		atexit.Exit(exitNoSchedule)
	}
}

// run is the sequential read -> compress -> build -> solve pipeline
// (spec.md §5): every stage here is a blocking call, consumed in order.
func run(inputDir string, profile config.SolverProfile, logger *log.Logger) (*engine.Result, error) {
	orders, err := ioadapter.ReadOrders(filepath.Join(inputDir, "ORDERS.csv"))
	if err != nil {
		return nil, err
	}
	shifts, err := ioadapter.ReadCalendar(filepath.Join(inputDir, "CALENDAR.csv"))
	if err != nil {
		return nil, err
	}
	rawTasks, err := ioadapter.ReadTasks(filepath.Join(inputDir, "TASKS.csv"))
	if err != nil {
		return nil, err
	}
	stations, err := ioadapter.ReadStations(filepath.Join(inputDir, "STATIONS.csv"))
	if err != nil {
		return nil, err
	}

	cal, warnings, err := calendar.Build(shifts)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		if logger != nil {
			logger.Println("calendar:", w)
		}
	}

	knownStations := make(map[int]bool, len(stations))
	for _, st := range stations {
		knownStations[st.ID] = true
	}
	graph, err := taskgraph.Build(orders, rawTasks, knownStations)
	if err != nil {
		return nil, err
	}

	session, err := engine.NewSession(cal, graph, stations, logger)
	if err != nil {
		return nil, err
	}

	return session.Solve(context.Background(), profile)
}
