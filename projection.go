package swae

import (
	"math"
	"math/rand/v2"

	"github.com/pkg/errors"
	"github.com/unixpickle/essentials"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// minDirectionNorm is the smallest norm a raw Gaussian
// draw may have before it is normalized.
// Shorter draws are rejected and redrawn.
const minDirectionNorm = 1e-8

// A ProjectionSet is a weighted set of unit directions.
type ProjectionSet struct {
	// Dim is the dimensionality of every direction.
	Dim int

	// Directions packs the directions as rows of a
	// row-major matrix.
	Directions []float64

	// Weights are non-negative and sum to 1.
	Weights []float64

	// MeanGap indicates that distances are measured by the
	// projected gap between batch means, averaged over the
	// whole sphere, instead of by transport along the
	// directions.
	// The result never exceeds the sliced distance.
	// Directions then only serve as a per-direction
	// breakdown of that gap.
	MeanGap bool
}

// Len returns the number of directions.
func (p *ProjectionSet) Len() int {
	return len(p.Weights)
}

// Direction returns the i-th direction.
func (p *ProjectionSet) Direction(i int) []float64 {
	return p.Directions[i*p.Dim : (i+1)*p.Dim]
}

func (p *ProjectionSet) validate() error {
	if p == nil || p.Dim <= 0 || len(p.Weights) == 0 ||
		len(p.Directions) != p.Dim*len(p.Weights) {
		return errors.Wrap(ErrInvalidConfiguration, "malformed projection set")
	}
	return nil
}

// A ProjectionSampler generates projection sets.
type ProjectionSampler struct {
	// Order is the exponent p of the transport cost used
	// by adaptive methods.
	// If it is 0, 2 is used.
	Order int

	// Workers is the maximum number of goroutines used to
	// compute per-direction costs.
	// If it is 0, GOMAXPROCS is used.
	Workers int
}

// Generate creates k directions in dim dimensions.
//
// The latent and prior batches are packed row-major and
// must be the same size.
// They are only used by adaptive methods (FixedMethod,
// EnergyMethod, and OptimalMethod) and may be nil
// otherwise.
//
// All randomness comes from r.
func (p *ProjectionSampler) Generate(r *rand.Rand, dim, k int, m Method,
	latent, prior []float64) (*ProjectionSet, error) {
	if dim <= 0 || k <= 0 {
		return nil, errors.Wrapf(ErrInvalidConfiguration,
			"generate projections: dim=%d k=%d", dim, k)
	}
	if err := validateMethod(m); err != nil {
		return nil, err
	}

	if _, ok := m.(LowerBoundMethod); ok {
		return &ProjectionSet{
			Dim:        dim,
			Directions: axisDirections(dim, k),
			Weights:    uniformWeights(k),
			MeanGap:    true,
		}, nil
	}

	res := &ProjectionSet{Dim: dim, Directions: randomDirections(r, dim, k)}
	if !isAdaptive(m) {
		res.Weights = uniformWeights(k)
		return res, nil
	}

	n, err := pairedRows(len(latent), len(prior), dim)
	if err != nil {
		return nil, errors.WithMessage(err, "generate projections")
	}
	costs := directionCosts(latent, prior, n, res, p.order(), p.Workers)

	switch m := m.(type) {
	case FixedMethod:
		res.Weights = proportionalWeights(costs)
	case EnergyMethod:
		res.Weights = softmaxWeights(costs, 1)
	case OptimalMethod:
		res.Weights = softmaxWeights(costs, m.Lambda)
	}
	return res, nil
}

func (p *ProjectionSampler) order() int {
	if p.Order == 0 {
		return 2
	}
	return p.Order
}

// pairedRows computes the number of rows in two packed
// batches which must have the same size.
func pairedRows(latentLen, priorLen, dim int) (int, error) {
	if latentLen%dim != 0 || priorLen%dim != 0 {
		return 0, errors.Wrapf(ErrInvalidBatch,
			"batch lengths %d and %d not divisible by dim %d", latentLen, priorLen, dim)
	}
	n, m := latentLen/dim, priorLen/dim
	if n != m {
		return 0, errors.Wrapf(ErrInvalidBatch, "batch sizes differ: %d and %d", n, m)
	}
	if n < 2 {
		return 0, errors.Wrapf(ErrInvalidBatch, "need at least 2 points, got %d", n)
	}
	return n, nil
}

func randomDirections(r *rand.Rand, dim, k int) []float64 {
	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: r}
	res := make([]float64, dim*k)
	for i := 0; i < k; i++ {
		dir := res[i*dim : (i+1)*dim]
		for {
			for j := range dir {
				dir[j] = normal.Rand()
			}
			if norm := floats.Norm(dir, 2); norm > minDirectionNorm {
				floats.Scale(1/norm, dir)
				break
			}
		}
	}
	return res
}

func axisDirections(dim, k int) []float64 {
	res := make([]float64, dim*k)
	for i := 0; i < k; i++ {
		res[i*dim+i%dim] = 1
	}
	return res
}

func uniformWeights(k int) []float64 {
	res := make([]float64, k)
	for i := range res {
		res[i] = 1 / float64(k)
	}
	return res
}

func proportionalWeights(costs []float64) []float64 {
	sum := floats.Sum(costs)
	if sum == 0 {
		return uniformWeights(len(costs))
	}
	res := append([]float64{}, costs...)
	floats.Scale(1/sum, res)
	return res
}

// softmaxWeights computes softmax(costs/temperature).
func softmaxWeights(costs []float64, temperature float64) []float64 {
	top := floats.Max(costs)
	res := make([]float64, len(costs))
	for i, c := range costs {
		res[i] = math.Exp((c - top) / temperature)
	}
	floats.Scale(1/floats.Sum(res), res)
	return res
}

// directionCosts computes the transport cost between two
// equally-sized packed batches along every direction.
//
// This does no differentiation; see SlicedDistance for
// the differentiable version.
func directionCosts(latent, prior []float64, n int, proj *ProjectionSet,
	order, workers int) []float64 {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	res := make([]float64, proj.Len())
	essentials.ConcurrentMap(workers, proj.Len(), func(i int) {
		dir := proj.Direction(i)
		left := make([]float64, n)
		right := make([]float64, n)
		for j := 0; j < n; j++ {
			left[j] = floats.Dot(dir, latent[j*proj.Dim:(j+1)*proj.Dim])
			right[j] = floats.Dot(dir, prior[j*proj.Dim:(j+1)*proj.Dim])
		}
		res[i] = quantilePlan(left, right, rows, rows).PairCost(left, right, order)
	})
	return res
}
