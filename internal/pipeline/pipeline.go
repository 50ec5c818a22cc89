// Package pipeline turns a sweep definition into a runnable plan and runs it
// end to end: sweep, optional variation collection, analyses, join and
// minimize. It is shared by the sweep CLI and the sweepd executor.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/GoSim-25-26J-441/sweep-core/internal/analysis"
	"github.com/GoSim-25-26J-441/sweep-core/internal/project"
	"github.com/GoSim-25-26J-441/sweep-core/internal/report"
	"github.com/GoSim-25-26J-441/sweep-core/internal/result"
	"github.com/GoSim-25-26J-441/sweep-core/internal/strategy"
	"github.com/GoSim-25-26J-441/sweep-core/internal/sweep"
	"github.com/GoSim-25-26J-441/sweep-core/internal/variable"
	"github.com/GoSim-25-26J-441/sweep-core/pkg/config"
	"github.com/GoSim-25-26J-441/sweep-core/pkg/logger"
)

// ErrNoVariationSource is returned when variations are to be collected from
// a project that does not store them.
var ErrNoVariationSource = errors.New("project does not expose its variations")

// Plan is a validated, compiled sweep definition.
type Plan struct {
	Name                string
	Variables           []variable.Variable
	Strategy            strategy.Strategy
	Policy              sweep.Policy
	IncludeProjectState bool
	CollectVariations   bool
	Analyses            []analysis.Analysis
	Project             project.SyntheticOptions
	Output              *config.Output
}

// Compile validates sw and resolves every name it refers to.
func Compile(sw *config.Sweep) (*Plan, error) {
	if err := config.Validate(sw); err != nil {
		return nil, err
	}

	strat, err := strategy.ByName(sw.Strategy)
	if err != nil {
		return nil, err
	}
	policy, err := sweep.ParsePolicy(sw.OnFailure)
	if err != nil {
		return nil, err
	}
	vars, err := Variables(sw.Variables)
	if err != nil {
		return nil, err
	}
	analyses, err := Analyses(sw.Analyses)
	if err != nil {
		return nil, err
	}
	opts, err := ProjectOptions(sw.Project)
	if err != nil {
		return nil, err
	}

	return &Plan{
		Name:                sw.Name,
		Variables:           vars,
		Strategy:            strat,
		Policy:              policy,
		IncludeProjectState: sw.IncludeProjectState,
		CollectVariations:   strings.EqualFold(sw.Source, "variations"),
		Analyses:            analyses,
		Project:             opts,
		Output:              sw.Output,
	}, nil
}

// Variables expands the configured variables.
func Variables(defs []config.Variable) ([]variable.Variable, error) {
	out := make([]variable.Variable, 0, len(defs))
	for _, d := range defs {
		values, err := d.Expand()
		if err != nil {
			return nil, fmt.Errorf("variable %s: %w", d.Name, err)
		}
		v, err := variable.New(d.Name, d.Units, values...)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Analyses builds the configured formatters. No entries means a single
// classical analysis over every mode.
func Analyses(defs []config.Analysis) ([]analysis.Analysis, error) {
	if len(defs) == 0 {
		return []analysis.Analysis{{Formatter: analysis.Classical{}}}, nil
	}
	out := make([]analysis.Analysis, 0, len(defs))
	for _, d := range defs {
		f, err := analysis.ByName(d.Type)
		if err != nil {
			return nil, err
		}
		if _, ok := f.(analysis.Tabular); ok {
			f = analysis.Tabular{Columns: d.Columns}
		}
		out = append(out, analysis.Analysis{Formatter: f, Labels: analysis.Labels(d.Labels)})
	}
	return out, nil
}

// ProjectOptions converts the project block into synthetic backend options.
func ProjectOptions(p *config.Project) (project.SyntheticOptions, error) {
	if p == nil {
		return project.SyntheticOptions{}, nil
	}
	delay, err := p.GetStepDelay()
	if err != nil {
		return project.SyntheticOptions{}, err
	}
	opts := project.SyntheticOptions{
		Modes:       p.Modes,
		BaseQuality: p.BaseQuality,
		StepDelay:   delay,
		Strict:      p.Strict,
	}
	for _, v := range p.Variables {
		opts.Variables = append(opts.Variables, variable.NewValued(v.Name, v.Value, v.Units))
	}
	for _, text := range p.FailOn {
		snap, err := variable.ParseVariation(text)
		if err != nil {
			return project.SyntheticOptions{}, fmt.Errorf("fail_on: %w", err)
		}
		opts.FailOn = append(opts.FailOn, snap)
	}
	return opts, nil
}

// NewProject creates the synthetic backend described by the plan.
func (p *Plan) NewProject() (*project.Synthetic, error) {
	return project.NewSynthetic(p.Project)
}

// Steps returns the number of snapshots the plan enumerates.
func (p *Plan) Steps() (int, error) {
	return strategy.Count(p.Strategy, p.Variables)
}

// Output is everything a run produced. After an aborted or stopped sweep
// it holds the partial report and the results of the completed steps.
type Output struct {
	Report    *sweep.Report
	Samples   []sweep.Sample
	Results   []result.Result
	Minimized *result.Minimized
}

// Run sweeps proj and post-processes the samples. Extra options are
// applied after the plan's policy and project-state settings.
func (p *Plan) Run(ctx context.Context, proj project.Project, opts ...sweep.Option) (*Output, error) {
	all := append([]sweep.Option{
		sweep.WithPolicy(p.Policy),
		sweep.WithProjectState(p.IncludeProjectState),
	}, opts...)
	sw, err := sweep.New(proj, p.Variables, p.Strategy, all...)
	if err != nil {
		return nil, err
	}

	rep, runErr := sw.Run(ctx)
	if rep == nil {
		return nil, runErr
	}
	out := &Output{Report: rep, Samples: rep.Samples}

	if runErr == nil && p.CollectVariations {
		src, ok := proj.(project.VariationSource)
		if !ok {
			return out, ErrNoVariationSource
		}
		samples, err := sweep.Collect(ctx, src, rep.Snapshots())
		if err != nil {
			return out, fmt.Errorf("collect variations: %w", err)
		}
		out.Samples = samples
	}

	if err := out.analyze(p.Analyses); err != nil {
		return out, errors.Join(runErr, err)
	}
	logger.Debug("sweep analysed", "name", p.Name, "results", len(out.Results), "variants", out.Minimized.Variants)
	return out, runErr
}

func (o *Output) analyze(analyses []analysis.Analysis) error {
	results, err := analysis.ApplyAll(analyses, o.Samples)
	if err != nil {
		return err
	}
	m, err := result.Minimize(results)
	if err != nil {
		return err
	}
	o.Results = results
	o.Minimized = m
	return nil
}

// Export writes the CSV, constants JSON and chart configured in out and
// returns the paths written.
func Export(m *result.Minimized, out *config.Output) ([]string, error) {
	if out == nil || m == nil {
		return nil, nil
	}
	var written []string
	if out.CSV != "" {
		constants, err := report.SaveCSV(out.CSV, m)
		if err != nil {
			return written, err
		}
		written = append(written, out.CSV, constants)
	}
	if out.Plot != nil {
		opts := report.ChartOptions{
			X:      out.Plot.X,
			Metric: out.Plot.Metric,
			Title:  out.Plot.Title,
			LogY:   out.Plot.LogY,
		}
		if err := report.Plot(out.Plot.Path, m, opts); err != nil {
			return written, err
		}
		written = append(written, out.Plot.Path)
	}
	return written, nil
}
