package swae

import (
	"github.com/namhainguyen2803/chuyen-rang/hostvec"
	"github.com/pkg/errors"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"gonum.org/v1/gonum/floats"
)

// A SlicedDistance computes sliced Wasserstein distances
// between two equally-sized batches of points.
//
// Along every direction, both batches are projected onto
// the line, sorted, and paired by rank.
// For equally-sized empirical measures in one dimension,
// this pairing is the optimal transport plan, so every
// per-direction cost is exact.
type SlicedDistance struct {
	// Order is the exponent p in the per-direction cost
	// mean(|x_(i) - y_(i)|^p).
	// If it is 0, 2 is used.
	Order int

	// Workers is the maximum number of goroutines used to
	// process directions.
	// If it is 0, GOMAXPROCS is used.
	Workers int
}

// A DistanceResult is the output of SlicedDistance.
type DistanceResult struct {
	// Distance is the weighted sum of per-direction costs,
	// packed in a vector with one component.
	Distance anydiff.Res

	// PerProjection stores the cost along each direction.
	PerProjection []float64
}

// Distance computes the sliced distance between latent
// and prior, which pack points of dimension proj.Dim.
//
// Gradients flow into both batches, but not into the
// projection set.
func (s *SlicedDistance) Distance(latent, prior anydiff.Res,
	proj *ProjectionSet) (*DistanceResult, error) {
	if err := proj.validate(); err != nil {
		return nil, errors.WithMessage(err, "sliced distance")
	}
	n, err := pairedRows(latent.Output().Len(), prior.Output().Len(), proj.Dim)
	if err != nil {
		return nil, errors.WithMessage(err, "sliced distance")
	}
	if err := sameCreator(latent.Output(), prior.Output()); err != nil {
		return nil, errors.WithMessage(err, "sliced distance")
	}

	if proj.MeanGap {
		return s.meanGapDistance(latent, prior, n, proj), nil
	}

	c := latent.Output().Creator()
	k := proj.Len()
	dirs := anydiff.NewConst(hostvec.Make(c, proj.Directions))

	// Rows 0 through n-1 are latent points; the rest are
	// prior points.
	projected := anydiff.Concat(
		projectRows(latent, dirs, n, k, proj.Dim),
		projectRows(prior, dirs, n, k, proj.Dim),
	)
	latentRows, priorRows := make([]int, n), make([]int, n)
	for i := 0; i < n; i++ {
		latentRows[i] = i
		priorRows[i] = n + i
	}

	perDir := transportCosts(projected, k, k, s.order(), s.Workers,
		func(data []float64, col int) []transportTerm {
			left := columnValues(data, k, col, latentRows)
			right := columnValues(data, k, col, priorRows)
			return []transportTerm{{
				Output: col,
				Column: col,
				Scale:  1,
				Plan:   quantilePlan(left, right, latentRows, priorRows),
			}}
		})

	weights := anydiff.NewConst(hostvec.Make(c, proj.Weights))
	return &DistanceResult{
		Distance:      anydiff.Sum(anydiff.Mul(perDir, weights)),
		PerProjection: hostvec.Floats(perDir.Output()),
	}, nil
}

// Evaluate computes the sliced distance between packed
// float64 batches without building a computation graph.
//
// It returns the same value as Distance, up to rounding.
func (s *SlicedDistance) Evaluate(latent, prior []float64,
	proj *ProjectionSet) (float64, []float64, error) {
	if err := proj.validate(); err != nil {
		return 0, nil, errors.WithMessage(err, "sliced distance")
	}
	n, err := pairedRows(len(latent), len(prior), proj.Dim)
	if err != nil {
		return 0, nil, errors.WithMessage(err, "sliced distance")
	}
	if proj.MeanGap {
		rows := pairRows(n)
		data := append(append([]float64{}, latent...), prior...)
		gap := meanGap(data, proj.Dim, rows[:n], rows[n:])
		total := sphereMoment(proj.Dim, s.order()) * powAbs(floats.Norm(gap, 2), s.order())
		return total, projectedGaps(proj, gap, s.order()), nil
	}
	costs := directionCosts(latent, prior, n, proj, s.order(), s.Workers)
	var total float64
	for i, c := range costs {
		total += proj.Weights[i] * c
	}
	return total, costs, nil
}

func (s *SlicedDistance) meanGapDistance(latent, prior anydiff.Res, n int,
	proj *ProjectionSet) *DistanceResult {
	rows := pairRows(n)
	joined := anydiff.Concat(latent, prior)
	cost := meanGapCosts(joined, proj.Dim, 1, s.order(), []meanGapTerm{{
		Output: 0,
		Left:   rows[:n],
		Right:  rows[n:],
		Scale:  1,
	}})
	gap := cost.(*meanGapRes).Gaps[0]
	return &DistanceResult{
		Distance:      cost,
		PerProjection: projectedGaps(proj, gap, s.order()),
	}
}

// pairRows returns the row indices 0 through 2n-1 of two
// stacked n-row batches.
func pairRows(n int) []int {
	res := make([]int, 2*n)
	for i := range res {
		res[i] = i
	}
	return res
}

func (s *SlicedDistance) order() int {
	if s.Order == 0 {
		return 2
	}
	return s.Order
}

// projectRows multiplies an n-by-dim batch by the
// transpose of a k-by-dim direction matrix, producing an
// n-by-k matrix of projections.
func projectRows(batch, dirs anydiff.Res, n, k, dim int) anydiff.Res {
	return anydiff.MatMul(false, true,
		&anydiff.Matrix{Data: batch, Rows: n, Cols: dim},
		&anydiff.Matrix{Data: dirs, Rows: k, Cols: dim},
	).Data
}

// columnValues extracts one column of a row-major matrix,
// restricted to the given rows.
func columnValues(data []float64, cols, col int, rows []int) []float64 {
	res := make([]float64, len(rows))
	for i, row := range rows {
		res[i] = data[row*cols+col]
	}
	return res
}

// scalarRes reads the value of a one-component result.
func scalarRes(r anydiff.Res) float64 {
	return firstFloat(r.Output())
}

// oneVector creates an upstream vector for a scalar.
func oneVector(c anyvec.Creator) anyvec.Vector {
	return hostvec.Make(c, []float64{1})
}
