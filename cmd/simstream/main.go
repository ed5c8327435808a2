// Command simstream runs a simulation document and optionally saves
// metric snapshots and a step archive.
//
//	simstream -config configs/clock.yaml -end-time 10
//	simstream -config configs/mountain_car.yaml -model gpt-4o -results-dir results
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"

	"github.com/funvibe/simstream/internal/ecs"
	"github.com/funvibe/simstream/internal/evaluator"
	"github.com/funvibe/simstream/internal/results"
	"github.com/funvibe/simstream/internal/sampler"
	"github.com/funvibe/simstream/internal/sim"
	"github.com/funvibe/simstream/internal/tasks"
)

const (
	colorReset = "\x1b[0m"
	colorDim   = "\x1b[2m"
	colorGreen = "\x1b[32m"
)

func main() {
	configPath := flag.String("config", "", "simulation document to run (required)")
	endTime := flag.Int("end-time", 0, "stop once world_time reaches this value (overrides the document)")
	maxAttempts := flag.Int("max-attempts", 0, "sampling attempts per operator (overrides the document)")
	seed := flag.Int64("seed", 0, "registry RNG seed (overrides the document)")
	model := flag.String("model", "", "model identifier; provider is chosen by prefix")
	apiKey := flag.String("api-key", os.Getenv("SIMSTREAM_API_KEY"), "provider API key (or SIMSTREAM_API_KEY)")
	providersPath := flag.String("providers", "", "YAML file with provider endpoint overrides")
	grpcTarget := flag.String("grpc", "", "sampler gRPC target host:port")
	grpcProto := flag.String("grpc-proto", "", "proto file describing the sampler service")
	grpcMethod := flag.String("grpc-method", "", "sampler method as package.Service/Method")
	resultsDir := flag.String("results-dir", "", "write metric snapshots into this directory")
	archivePath := flag.String("archive", "", "append the run's steps to this SQLite archive")
	trace := flag.Bool("trace", true, "print each step's output")
	flag.Parse()

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "simstream: -config is required")
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*configPath, *endTime, *maxAttempts, *seed, *model, *apiKey,
		*providersPath, *grpcTarget, *grpcProto, *grpcMethod,
		*resultsDir, *archivePath, *trace); err != nil {
		fmt.Fprintf(os.Stderr, "simstream: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, endTime, maxAttempts int, seed int64, model, apiKey,
	providersPath, grpcTarget, grpcProto, grpcMethod,
	resultsDir, archivePath string, trace bool) error {

	doc, err := ecs.LoadDocument(configPath)
	if err != nil {
		return err
	}
	if endTime == 0 {
		endTime = doc.EndTime
	}
	if maxAttempts == 0 {
		maxAttempts = doc.MaxAttempts
	}
	if seed == 0 {
		seed = doc.Seed
	}

	registry := evaluator.NewRegistry(seed)
	tasks.Install(registry, doc.Task)

	compiled, err := ecs.Compile(doc, registry, nil)
	if err != nil {
		return err
	}

	oracle, cleanup, err := buildOracle(model, apiKey, providersPath, grpcTarget, grpcProto, grpcMethod)
	if err != nil {
		return err
	}
	defer cleanup()

	runner := sim.NewRunner(registry, oracle, maxAttempts)
	runner.Log = os.Stderr
	driver := sim.NewDriver(compiled, runner)
	driver.Log = os.Stderr

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	colored := isatty.IsTerminal(os.Stdout.Fd())

	var stream []*sim.HistoryStep
	for {
		step, err := driver.Step(ctx)
		if err != nil {
			var transport *sampler.TransportError
			if errors.As(err, &transport) {
				fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			} else {
				return err
			}
		}
		if step == nil {
			break
		}
		stream = append(stream, step)

		if trace {
			printStep(step, colored)
		}

		if worldTime, ok := step.State.Get("world_time"); ok {
			if t, isInt := worldTime.(*evaluator.Integer); isInt && int(t.Value) >= endTime {
				break
			}
		}
	}

	if resultsDir != "" && len(doc.Metrics) > 0 {
		extracted := results.Extract(stream, doc.Metrics)
		path, err := results.Save(resultsDir, doc.Name, extracted)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "results saved to %s\n", path)
	}

	if archivePath != "" {
		archive, err := results.OpenArchive(archivePath)
		if err != nil {
			return err
		}
		defer archive.Close()
		runID := results.NewRunID()
		if err := archive.AppendSteps(runID, 0, stream); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "archived %d steps as run %s\n", len(stream), runID)
	}

	return nil
}

func buildOracle(model, apiKey, providersPath, grpcTarget, grpcProto, grpcMethod string) (sampler.Oracle, func(), error) {
	noop := func() {}

	if grpcTarget != "" {
		if grpcProto == "" || grpcMethod == "" {
			return nil, noop, fmt.Errorf("-grpc requires -grpc-proto and -grpc-method")
		}
		oracle, err := sampler.NewGRPCSampler(grpcTarget, grpcProto, grpcMethod)
		if err != nil {
			return nil, noop, err
		}
		return oracle, func() { oracle.Close() }, nil
	}

	if model != "" {
		oracle := sampler.NewHTTPSampler(model, apiKey)
		oracle.Log = os.Stderr
		if providersPath != "" {
			overrides, err := sampler.LoadProviderOverrides(providersPath)
			if err != nil {
				return nil, noop, err
			}
			if err := sampler.ApplyOverrides(oracle.Providers, overrides); err != nil {
				return nil, noop, err
			}
		}
		return oracle, noop, nil
	}

	return sampler.Loopback{}, noop, nil
}

func printStep(step *sim.HistoryStep, colored bool) {
	if colored {
		fmt.Printf("%s%s%s\n", colorGreen, step.OperatorID, colorReset)
	} else {
		fmt.Println(step.OperatorID)
	}
	for _, line := range step.Output {
		line = strings.TrimRight(line, "\n")
		if colored {
			fmt.Printf("  %s%s%s\n", colorDim, line, colorReset)
		} else {
			fmt.Printf("  %s\n", line)
		}
	}
}
