package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/viant/afs"

	"github.com/mlgate/mlgate"
	"github.com/mlgate/mlgate/gate"
	"github.com/mlgate/mlgate/runtime/execution"
)

const (
	exitOK    = 0
	exitIO    = 1
	exitInput = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return exitInput
	}
	switch args[0] {
	case "evaluate":
		return evaluate(args[1:])
	case "run":
		return runPipeline(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
		usage()
		return exitInput
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  mlgate evaluate -metrics <doc> -thresholds <doc> [-o json|token]
  mlgate run -pipeline <url> [-state key=value ...] [-timeout <duration>]`)
}

func evaluate(args []string) int {
	flags := flag.NewFlagSet("evaluate", flag.ContinueOnError)
	metricsURL := flags.String("metrics", "", "metric report location (JSON or YAML)")
	thresholdsURL := flags.String("thresholds", "", "threshold spec location (JSON or YAML)")
	output := flags.String("o", "token", "output format: token or json")
	if err := flags.Parse(args); err != nil {
		return exitInput
	}
	if *metricsURL == "" || *thresholdsURL == "" {
		fmt.Fprintln(os.Stderr, "both -metrics and -thresholds are required")
		return exitInput
	}

	ctx := context.Background()
	fs := afs.New()
	metricsData, err := fs.DownloadWithURL(ctx, *metricsURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load metrics: %v\n", err)
		return exitIO
	}
	thresholdsData, err := fs.DownloadWithURL(ctx, *thresholdsURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load thresholds: %v\n", err)
		return exitIO
	}

	report, err := gate.DecodeReport(metricsData)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitInput
	}
	spec, err := gate.DecodeSpec(thresholdsData)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitInput
	}
	decision, err := gate.Evaluate(report, spec)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		var missing *gate.MissingMetricError
		var empty *gate.EmptyObservationsError
		var invalid *gate.InvalidSpecError
		if errors.As(err, &missing) || errors.As(err, &empty) || errors.As(err, &invalid) {
			return exitInput
		}
		return exitIO
	}

	switch *output {
	case "json":
		encoded, err := json.Marshal(decision)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return exitIO
		}
		fmt.Println(string(encoded))
	default:
		fmt.Println(decision.Token())
	}
	return exitOK
}

// stateFlags collects repeated -state key=value pairs.
type stateFlags map[string]interface{}

func (s stateFlags) String() string { return "" }

func (s stateFlags) Set(value string) error {
	key, val, found := strings.Cut(value, "=")
	if !found || key == "" {
		return fmt.Errorf("state must be key=value, got %q", value)
	}
	// try JSON first so numbers, booleans and objects survive
	var typed interface{}
	if err := json.Unmarshal([]byte(val), &typed); err == nil {
		s[key] = typed
	} else {
		s[key] = val
	}
	return nil
}

func runPipeline(args []string) int {
	flags := flag.NewFlagSet("run", flag.ContinueOnError)
	location := flags.String("pipeline", "", "pipeline definition location")
	timeout := flags.Duration("timeout", 5*time.Minute, "how long to wait for completion")
	initialState := stateFlags{}
	flags.Var(initialState, "state", "initial state entry, key=value (repeatable)")
	if err := flags.Parse(args); err != nil {
		return exitInput
	}
	if *location == "" {
		fmt.Fprintln(os.Stderr, "-pipeline is required")
		return exitInput
	}

	srv := mlgate.New()
	runtime := srv.Runtime()
	ctx := srv.NewContext(context.Background())
	if err := runtime.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start runtime: %v\n", err)
		return exitIO
	}
	defer func() { _ = runtime.Shutdown(ctx) }()

	pipeline, err := runtime.LoadPipeline(ctx, *location)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load pipeline: %v\n", err)
		return exitIO
	}
	aRun, wait, err := runtime.StartRun(ctx, pipeline, initialState)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start run: %v\n", err)
		return exitIO
	}
	output, err := wait(ctx, *timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "run %s: %v\n", aRun.ID, err)
		return exitIO
	}
	encoded, _ := json.MarshalIndent(output, "", "  ")
	fmt.Println(string(encoded))
	if output.State == execution.StateFailed || output.Timeout {
		return exitIO
	}
	return exitOK
}
