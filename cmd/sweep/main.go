// Command sweep runs a sweep definition against the synthetic project and
// exports the minimized results.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GoSim-25-26J-441/sweep-core/internal/objective"
	"github.com/GoSim-25-26J-441/sweep-core/internal/pipeline"
	"github.com/GoSim-25-26J-441/sweep-core/internal/store"
	"github.com/GoSim-25-26J-441/sweep-core/internal/sweep"
	"github.com/GoSim-25-26J-441/sweep-core/pkg/config"
	"github.com/GoSim-25-26J-441/sweep-core/pkg/logger"
	"github.com/GoSim-25-26J-441/sweep-core/pkg/models"
	"github.com/GoSim-25-26J-441/sweep-core/pkg/utils"
)

type options struct {
	configPath string
	csvPath    string
	plotPath   string
	plotX      string
	plotMetric string
	dbPath     string
	bestMetric string
	goal       string
	logLevel   string
	logFormat  string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("sweep", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configPath, "config", "", "sweep definition (YAML)")
	fs.StringVar(&o.csvPath, "out", "", "CSV output path (overrides output.csv)")
	fs.StringVar(&o.plotPath, "plot", "", "chart output path (overrides output.plot.path)")
	fs.StringVar(&o.plotX, "x", "", "swept variable on the chart's x axis")
	fs.StringVar(&o.plotMetric, "metric", "", "metric column to chart")
	fs.StringVar(&o.dbPath, "db", "", "SQLite archive to record the run in")
	fs.StringVar(&o.bestMetric, "best", "", "report the result with the best value of this metric")
	fs.StringVar(&o.goal, "goal", "min", "direction of -best (min, max)")
	fs.StringVar(&o.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	fs.StringVar(&o.logFormat, "log-format", "text", "log format (json, text)")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if o.configPath == "" {
		return options{}, errors.New("-config is required")
	}
	if o.bestMetric != "" {
		if _, err := objective.New(o.bestMetric, o.goal); err != nil {
			return options{}, err
		}
	}
	return o, nil
}

// applyOverrides merges the command-line output settings into sw.
func applyOverrides(sw *config.Sweep, o options) error {
	if o.csvPath == "" && o.plotPath == "" {
		return nil
	}
	if sw.Output == nil {
		sw.Output = &config.Output{}
	}
	if o.csvPath != "" {
		sw.Output.CSV = o.csvPath
	}
	if o.plotPath != "" {
		plot := config.Plot{Path: o.plotPath}
		if sw.Output.Plot != nil {
			plot = *sw.Output.Plot
			plot.Path = o.plotPath
		}
		if o.plotX != "" {
			plot.X = o.plotX
		}
		if o.plotMetric != "" {
			plot.Metric = o.plotMetric
		}
		sw.Output.Plot = &plot
	}
	return config.Validate(sw)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	var log *slog.Logger
	if o.logFormat == "json" {
		log = logger.New(o.logLevel, stderr)
	} else {
		log = logger.NewText(o.logLevel, stderr)
	}
	logger.SetDefault(log)

	sw, err := config.LoadSweep(o.configPath)
	if err != nil {
		return err
	}
	if err := applyOverrides(sw, o); err != nil {
		return err
	}
	plan, err := pipeline.Compile(sw)
	if err != nil {
		return err
	}
	proj, err := plan.NewProject()
	if err != nil {
		return err
	}

	started := time.Now()
	out, runErr := plan.Run(ctx, proj)
	ended := time.Now()
	if out == nil {
		return runErr
	}

	printSummary(stdout, plan, out)
	if o.bestMetric != "" {
		printBest(stdout, out, o)
	}

	written, err := pipeline.Export(out.Minimized, sw.Output)
	for _, path := range written {
		fmt.Fprintf(stdout, "wrote %s\n", path)
	}
	if err != nil {
		return errors.Join(runErr, fmt.Errorf("export: %w", err))
	}

	if o.dbPath != "" {
		definition, err := os.ReadFile(o.configPath)
		if err != nil {
			return errors.Join(runErr, err)
		}
		id, err := archiveRun(ctx, o.dbPath, string(definition), plan, out, runErr, started, ended)
		if err != nil {
			return errors.Join(runErr, fmt.Errorf("archive: %w", err))
		}
		fmt.Fprintf(stdout, "archived as %s\n", id)
	}
	return runErr
}

func printSummary(w io.Writer, plan *pipeline.Plan, out *pipeline.Output) {
	rep := out.Report
	name := plan.Name
	if name == "" {
		name = "sweep"
	}
	fmt.Fprintf(w, "%s: %d steps (%s, on_failure=%s)\n", name, len(rep.Outcomes), rep.Strategy, rep.Policy)
	fmt.Fprintf(w, "  completed %d, skipped %d, failed %d, not run %d\n",
		rep.Count(sweep.StatusCompleted),
		rep.Count(sweep.StatusSkipped),
		rep.Count(sweep.StatusFailed),
		rep.Count(sweep.StatusNotRun))
	if out.Minimized != nil {
		fmt.Fprintf(w, "  constants: %s\n", out.Minimized.Constants)
		fmt.Fprintf(w, "  variants: %v\n", out.Minimized.Variants)
	}
}

func printBest(w io.Writer, out *pipeline.Output, o options) {
	obj, _ := objective.New(o.bestMetric, o.goal)
	best, err := objective.Best(out.Results, obj)
	if err != nil {
		fmt.Fprintf(w, "  best: %v\n", err)
		return
	}
	fmt.Fprintf(w, "  best %s (%s): %g at %s\n", obj.Metric, obj.Goal, best.Value, best.Result.Snapshot)
}

func archiveRun(ctx context.Context, path, definition string, plan *pipeline.Plan, out *pipeline.Output, runErr error, started, ended time.Time) (string, error) {
	st, err := store.Open(path)
	if err != nil {
		return "", err
	}
	defer st.Close()

	status := models.RunStatusCompleted
	var msg string
	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled):
		status = models.RunStatusCancelled
	default:
		status = models.RunStatusFailed
		msg = runErr.Error()
	}

	id := utils.GenerateRunID()
	rec := store.Record{
		Run: models.Run{
			ID:              id,
			Name:            plan.Name,
			Status:          status,
			Strategy:        out.Report.Strategy,
			Policy:          string(out.Report.Policy),
			Steps:           len(out.Report.Outcomes),
			CreatedAtUnixMs: started.UnixMilli(),
			StartedAtUnixMs: started.UnixMilli(),
			EndedAtUnixMs:   ended.UnixMilli(),
			Error:           msg,
		},
		Definition: definition,
		Outcomes:   out.Report.Outcomes,
		Results:    out.Results,
	}
	return id, st.SaveRun(context.WithoutCancel(ctx), rec)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		logger.Error("sweep failed", "error", err)
		os.Exit(1)
	}
}
