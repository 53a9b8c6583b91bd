package swae

import (
	"math"
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	ringInnerRadius = 0.9
	ringOuterRadius = 1.0
)

// A Prior is a distribution over latent codes.
type Prior interface {
	// Sample draws n i.i.d. points of dimension dim,
	// packed row-major.
	Sample(r *rand.Rand, n, dim int) ([]float64, error)
}

// PriorKind is one of the built-in priors.
type PriorKind int

// These are the built-in priors.
const (
	// Circle is the uniform-angle disk of radius 1, with
	// the radius drawn uniformly from [0, 1).
	// It is two-dimensional.
	Circle PriorKind = iota

	// Ring is an annulus with radii in [0.9, 1].
	// It is two-dimensional.
	Ring

	// UniformBox draws every coordinate uniformly from
	// [-1, 1].
	UniformBox

	// Gaussian draws every coordinate from a standard
	// normal distribution.
	Gaussian
)

// ParsePriorKind parses a prior name.
func ParsePriorKind(name string) (PriorKind, error) {
	switch name {
	case "circle":
		return Circle, nil
	case "ring":
		return Ring, nil
	case "uniform", "uniform-box":
		return UniformBox, nil
	case "gaussian", "normal":
		return Gaussian, nil
	default:
		return 0, errors.Wrapf(ErrInvalidConfiguration, "unknown distribution %q", name)
	}
}

// String returns the name of the prior.
func (p PriorKind) String() string {
	switch p {
	case Circle:
		return "circle"
	case Ring:
		return "ring"
	case UniformBox:
		return "uniform-box"
	case Gaussian:
		return "gaussian"
	default:
		return "unknown"
	}
}

// NaturalDim returns the only dimensionality the prior
// supports, or 0 if it supports any dimensionality.
func (p PriorKind) NaturalDim() int {
	switch p {
	case Circle, Ring:
		return 2
	default:
		return 0
	}
}

// Sample draws n points of dimension dim.
//
// Circle and Ring fail unless dim is 2.
func (p PriorKind) Sample(r *rand.Rand, n, dim int) ([]float64, error) {
	if n <= 0 || dim <= 0 {
		return nil, errors.Wrapf(ErrInvalidConfiguration,
			"sample %s prior: n=%d dim=%d", p, n, dim)
	}
	if natural := p.NaturalDim(); natural != 0 && natural != dim {
		return nil, errors.Wrapf(ErrInvalidConfiguration,
			"%s prior is %d-dimensional, requested %d", p, natural, dim)
	}
	switch p {
	case Circle:
		return samplePolar(r, n, distuv.Uniform{Min: 0, Max: 1, Src: r}), nil
	case Ring:
		return samplePolar(r, n, distuv.Uniform{
			Min: ringInnerRadius,
			Max: ringOuterRadius,
			Src: r,
		}), nil
	case UniformBox:
		return sampleCoords(n*dim, distuv.Uniform{Min: -1, Max: 1, Src: r}), nil
	case Gaussian:
		return sampleCoords(n*dim, distuv.Normal{Mu: 0, Sigma: 1, Src: r}), nil
	default:
		return nil, errors.Wrapf(ErrInvalidConfiguration, "unknown prior kind %d", int(p))
	}
}

func samplePolar(r *rand.Rand, n int, radius distuv.Uniform) []float64 {
	angle := distuv.Uniform{Min: 0, Max: 2 * math.Pi, Src: r}
	res := make([]float64, 0, n*2)
	for i := 0; i < n; i++ {
		rad := radius.Rand()
		theta := angle.Rand()
		res = append(res, rad*math.Cos(theta), rad*math.Sin(theta))
	}
	return res
}

func sampleCoords(count int, dist distuv.Rander) []float64 {
	res := make([]float64, count)
	for i := range res {
		res[i] = dist.Rand()
	}
	return res
}
