package project

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/sweep-core/internal/variable"
)

const speedOfLight = 299792458.0 // m/s

// Cavity dimensions read by the synthetic model, in millimetres.
const (
	VarWidth  = "width"
	VarHeight = "height"
	VarLength = "length"
)

// Column titles of the loss channels produced by the synthetic model.
const (
	ColumnSeamLoss = "Q seam loss"
	ColumnBulkLoss = "Q bulk loss"
)

// SyntheticOptions configures a Synthetic project.
type SyntheticOptions struct {
	// Variables is the initial variable state.
	Variables []variable.ValuedVariable
	// Modes is the number of eigenmodes solved (default 3).
	Modes int
	// BaseQuality is the quality factor of the fundamental mode (default 1e6).
	BaseQuality float64
	// StepDelay simulates solver run time.
	StepDelay time.Duration
	// FailOn lists partial states at which RunAnalysis fails.
	FailOn []variable.Snapshot
	// Strict rejects variables that are not part of the initial state.
	Strict bool
}

// Synthetic is an in-process Project modelling a rectangular cavity: the
// TE10p modes follow from width and length, and any other numeric variable
// detunes every mode linearly. It keeps the variations it solved, so it is
// also a StateReporter and a VariationSource.
type Synthetic struct {
	mu         sync.Mutex
	opts       SyntheticOptions
	state      map[string]variable.ValuedVariable
	order      []string
	last       *Record
	variations map[string]string
	records    map[string]Record
	byText     map[string]string
	nextID     int
	analyses   int
}

// NewSynthetic creates a synthetic project.
func NewSynthetic(opts SyntheticOptions) (*Synthetic, error) {
	if opts.Modes <= 0 {
		opts.Modes = 3
	}
	if opts.BaseQuality <= 0 {
		opts.BaseQuality = 1e6
	}
	s := &Synthetic{
		opts:       opts,
		state:      make(map[string]variable.ValuedVariable),
		variations: make(map[string]string),
		records:    make(map[string]Record),
		byText:     make(map[string]string),
	}
	for _, v := range opts.Variables {
		if v.Name == "" {
			return nil, variable.ErrEmptyName
		}
		if _, dup := s.state[v.Name]; dup {
			return nil, fmt.Errorf("%w: %s", variable.ErrDuplicateName, v.Name)
		}
		s.set(variable.NewValued(v.Name, v.Value, v.Units))
	}
	return s, nil
}

func (s *Synthetic) set(v variable.ValuedVariable) {
	if _, ok := s.state[v.Name]; !ok {
		s.order = append(s.order, v.Name)
	}
	s.state[v.Name] = v
}

func (s *Synthetic) SetVariable(ctx context.Context, name string, value float64, units string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name == "" {
		return variable.ErrEmptyName
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("%w: %s = %v", variable.ErrInvalidValue, name, value)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state[name]; !ok && s.opts.Strict {
		scope := "design"
		if variable.IsProjectLevel(name) {
			scope = "project"
		}
		return fmt.Errorf("%w: %s variable %s", ErrUnknownVariable, scope, name)
	}
	s.set(variable.NewValued(name, value, units))
	return nil
}

func (s *Synthetic) RunAnalysis(ctx context.Context) error {
	if s.opts.StepDelay > 0 {
		timer := time.NewTimer(s.opts.StepDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.snapshotLocked()
	for _, partial := range s.opts.FailOn {
		if matches(current, partial) {
			return fmt.Errorf("%w: solver did not converge at %s", ErrAnalysisFailed, current)
		}
	}

	rec, err := s.solve(current)
	if err != nil {
		return err
	}
	s.analyses++
	s.last = &rec

	text := variable.FormatVariation(current)
	id, ok := s.byText[text]
	if !ok {
		id = strconv.Itoa(s.nextID)
		s.nextID++
		s.byText[text] = id
		s.variations[id] = text
	}
	s.records[id] = rec
	return nil
}

func (s *Synthetic) Results(ctx context.Context) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return Record{}, ErrNoResults
	}
	return s.last.Clone(), nil
}

// Variables returns the complete current state in declared order.
func (s *Synthetic) Variables(ctx context.Context) (variable.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return variable.Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(), nil
}

func (s *Synthetic) Variations(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.variations))
	for id, text := range s.variations {
		out[id] = text
	}
	return out, nil
}

func (s *Synthetic) ResultsForVariation(ctx context.Context, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: variation %s", ErrNoResults, id)
	}
	return rec.Clone(), nil
}

// DeleteSolutions drops every stored variation. Variation ids are not reused.
func (s *Synthetic) DeleteSolutions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.variations = make(map[string]string)
	s.records = make(map[string]Record)
	s.byText = make(map[string]string)
	s.last = nil
}

// Analyses returns how many analyses completed.
func (s *Synthetic) Analyses() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analyses
}

func (s *Synthetic) snapshotLocked() variable.Snapshot {
	vars := make([]variable.ValuedVariable, 0, len(s.order))
	for _, name := range s.order {
		vars = append(vars, s.state[name])
	}
	return variable.MustSnapshot(vars...)
}

func matches(current, partial variable.Snapshot) bool {
	if partial.IsEmpty() {
		return false
	}
	for _, want := range partial.Vars() {
		got, ok := current.Get(want.Name)
		if !ok || got != want {
			return false
		}
	}
	return true
}

// solve evaluates the cavity model.
func (s *Synthetic) solve(state variable.Snapshot) (Record, error) {
	width, err := lengthMM(state, VarWidth, 22.86)
	if err != nil {
		return Record{}, err
	}
	height, err := lengthMM(state, VarHeight, 10.16)
	if err != nil {
		return Record{}, err
	}
	length, err := lengthMM(state, VarLength, 30)
	if err != nil {
		return Record{}, err
	}
	if width <= 0 || height <= 0 || length <= 0 {
		return Record{}, fmt.Errorf("%w: cavity dimensions must be positive", ErrAnalysisFailed)
	}

	detune := 0.0
	for _, name := range state.Names() {
		if name == VarWidth || name == VarHeight || name == VarLength {
			continue
		}
		v, _ := state.Get(name)
		detune += v.Value * 1e-3
	}

	n := s.opts.Modes
	freqs := make([]float64, n)
	quality := make([]float64, n)
	seam := make([]float64, n)
	bulk := make([]float64, n)
	for p := 1; p <= n; p++ {
		a, d := width*1e-3, length*1e-3
		f := speedOfLight / 2 * math.Sqrt(1/(a*a)+float64(p*p)/(d*d)) / 1e9
		f *= 1 + detune
		freqs[p-1] = f
		// surface to volume ratio sets the conductor loss
		ratio := height / (width + height)
		quality[p-1] = s.opts.BaseQuality * ratio * math.Sqrt(freqs[0]/f) * 2
		seam[p-1] = quality[p-1] * 4
		bulk[p-1] = quality[p-1] * 25
	}

	chi := make([][]float64, n)
	anharm := make([]float64, n)
	for i := range anharm {
		anharm[i] = 200 * (freqs[0] / freqs[i]) * (freqs[0] / freqs[i])
	}
	for i := range chi {
		chi[i] = make([]float64, n)
		for j := range chi[i] {
			if i == j {
				chi[i][j] = anharm[i]
				continue
			}
			chi[i][j] = 0.1 * math.Sqrt(anharm[i]*anharm[j])
		}
	}
	nd := make([]float64, n)
	for i, f := range freqs {
		nd[i] = f*1e3 - anharm[i]/2
	}

	return Record{
		Modes: map[string][]float64{
			ColumnFrequency: freqs,
			ColumnQuality:   quality,
			ColumnSeamLoss:  seam,
			ColumnBulkLoss:  bulk,
		},
		ChiMHz:     chi,
		FreqsNDMHz: nd,
	}, nil
}

var toMillimetres = map[string]float64{
	"":   1,
	"mm": 1,
	"um": 1e-3,
	"nm": 1e-6,
	"cm": 10,
	"m":  1e3,
}

func lengthMM(state variable.Snapshot, name string, fallback float64) (float64, error) {
	v, ok := state.Get(name)
	if !ok {
		return fallback, nil
	}
	scale, ok := toMillimetres[v.Units]
	if !ok {
		return 0, fmt.Errorf("%w: unsupported length unit %q for %s", ErrAnalysisFailed, v.Units, name)
	}
	return v.Value * scale, nil
}
