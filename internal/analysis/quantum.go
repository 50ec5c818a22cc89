package analysis

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/GoSim-25-26J-441/sweep-core/internal/project"
	"github.com/GoSim-25-26J-441/sweep-core/internal/result"
)

const (
	NameQuantum = "quantum"

	SuffixAnharmonicity = "Anharmonicity (MHz)"
	SuffixCoupling      = "Coupling (MHz)"
	SuffixNDFrequency   = "ND Freq. (GHz)"
)

// chiTolerance bounds the asymmetry accepted in a chi matrix, in MHz.
const chiTolerance = 1e-9

// Quantum formats the dispersive-shift matrix and the dressed frequencies.
// The record only holds the analysed modes, so labels are renumbered
// sequentially before use.
type Quantum struct{}

func (Quantum) Name() string { return NameQuantum }

func (Quantum) Format(rec project.Record, labels Labels) (result.Metrics, error) {
	chi, err := symmetricChi(rec.ChiMHz)
	if err != nil {
		return nil, err
	}
	n, _ := chi.Dims()
	if len(rec.FreqsNDMHz) != n {
		return nil, fmt.Errorf("%w: %d frequencies for a %dx%d chi matrix", ErrColumnLength, len(rec.FreqsNDMHz), n, n)
	}

	_, names, err := labels.Sequential().resolve(n)
	if err != nil {
		return nil, err
	}
	if len(labels) > 0 && len(names) != n {
		return nil, fmt.Errorf("%w: %d labels for %d modes", ErrMissingMode, len(names), n)
	}

	out := make(result.Metrics, n*(n+1)/2+n)
	// 2-combinations with replacement of the modes
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if i == j {
				out[key(names[i], SuffixAnharmonicity)] = chi.At(i, i)
				continue
			}
			out[key(names[i]+" - "+names[j], SuffixCoupling)] = chi.At(i, j)
		}
	}
	for i, f := range rec.FreqsNDMHz {
		out[key(names[i], SuffixNDFrequency)] = f / 1e3
	}
	return out, nil
}

func symmetricChi(rows [][]float64) (*mat.SymDense, error) {
	n := len(rows)
	if n == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidChi)
	}
	data := make([]float64, 0, n*n)
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("%w: row %d has %d entries, expected %d", ErrInvalidChi, i, len(row), n)
		}
		data = append(data, row...)
	}
	dense := mat.NewDense(n, n, data)
	if !mat.EqualApprox(dense, dense.T(), chiTolerance) {
		return nil, fmt.Errorf("%w: not symmetric", ErrInvalidChi)
	}
	return mat.NewSymDense(n, data), nil
}
