package analysis

import (
	"fmt"
	"math"

	"github.com/GoSim-25-26J-441/sweep-core/internal/project"
	"github.com/GoSim-25-26J-441/sweep-core/internal/result"
)

const (
	NameClassical = "classical"

	ColumnLifetime = "Lifetime (us)"
)

// Classical formats an eigenmode table: frequency and quality factor per
// mode plus the photon lifetime derived from them.
type Classical struct{}

func (Classical) Name() string { return NameClassical }

func (Classical) Format(rec project.Record, labels Labels) (result.Metrics, error) {
	freqs, ok := rec.Modes[project.ColumnFrequency]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, project.ColumnFrequency)
	}
	quality, ok := rec.Modes[project.ColumnQuality]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, project.ColumnQuality)
	}
	if len(freqs) != len(quality) {
		return nil, fmt.Errorf("%w: %d frequencies, %d quality factors", ErrColumnLength, len(freqs), len(quality))
	}

	modes, names, err := labels.resolve(len(freqs))
	if err != nil {
		return nil, err
	}

	out := make(result.Metrics, 3*len(modes))
	for i, m := range modes {
		out[key(names[i], project.ColumnFrequency)] = freqs[m]
		out[key(names[i], project.ColumnQuality)] = quality[m]
		out[key(names[i], ColumnLifetime)] = Lifetime(freqs[m], quality[m])
	}
	return out, nil
}

// Lifetime returns the photon lifetime in microseconds of a mode at
// freqGHz with quality factor q.
func Lifetime(freqGHz, q float64) float64 {
	return q / (2 * math.Pi * freqGHz * 1e3)
}
