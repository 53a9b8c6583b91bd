package swae

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// A Method determines how projection directions are drawn
// and how they are weighted when per-direction transport
// costs are aggregated.
//
// The set of methods is closed: it consists of
// UniformMethod, FixedMethod, EnergyMethod,
// LowerBoundMethod, and OptimalMethod.
type Method interface {
	// String returns the name used on the command-line
	// and in output paths.
	String() string

	method()
}

// UniformMethod draws directions uniformly on the sphere
// and weights them equally.
// This is the unbiased Monte Carlo estimate of the sliced
// distance.
type UniformMethod struct{}

// FixedMethod draws directions uniformly and weights each
// one proportionally to its transport cost.
type FixedMethod struct{}

// EnergyMethod draws directions uniformly and weights each
// one proportionally to the exponential of its transport
// cost.
type EnergyMethod struct{}

// LowerBoundMethod replaces per-direction transport with
// the gap between the means of the two batches, projected
// onto every direction of the sphere and averaged in
// closed form.
// The result never exceeds the sliced distance and uses
// no random numbers.
// The canonical coordinate axes, equally weighted, report
// the per-direction gaps.
type LowerBoundMethod struct{}

// OptimalMethod weights directions by maximizing the
// weighted transport cost minus Lambda times the negative
// entropy of the weights.
//
// As Lambda grows, the weights approach UniformMethod.
// As Lambda shrinks towards 0, all of the weight goes to
// the most expensive direction.
type OptimalMethod struct {
	Lambda float64
}

func (UniformMethod) String() string    { return "BSW" }
func (FixedMethod) String() string      { return "FBSW" }
func (EnergyMethod) String() string     { return "EFBSW" }
func (LowerBoundMethod) String() string { return "lowerboundFBSW" }

func (o OptimalMethod) String() string {
	s := strconv.FormatFloat(o.Lambda, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return "OBSW_" + s
}

func (UniformMethod) method()    {}
func (FixedMethod) method()      {}
func (EnergyMethod) method()     {}
func (LowerBoundMethod) method() {}
func (OptimalMethod) method()    {}

// ParseMethod turns a method name into a Method.
//
// The lambda argument is only used for "OBSW".
func ParseMethod(name string, lambda float64) (Method, error) {
	var m Method
	switch name {
	case "BSW":
		m = UniformMethod{}
	case "FBSW":
		m = FixedMethod{}
	case "EFBSW":
		m = EnergyMethod{}
	case "lowerboundFBSW":
		m = LowerBoundMethod{}
	case "OBSW":
		m = OptimalMethod{Lambda: lambda}
	default:
		return nil, errors.Wrapf(ErrInvalidConfiguration, "unknown method %q", name)
	}
	if err := validateMethod(m); err != nil {
		return nil, err
	}
	return m, nil
}

// isAdaptive reports whether the method needs the current
// batches to weight its directions.
func isAdaptive(m Method) bool {
	switch m.(type) {
	case FixedMethod, EnergyMethod, OptimalMethod:
		return true
	default:
		return false
	}
}

func validateMethod(m Method) error {
	switch m := m.(type) {
	case UniformMethod, FixedMethod, EnergyMethod, LowerBoundMethod:
		return nil
	case OptimalMethod:
		if !(m.Lambda > 0) {
			return errors.Wrapf(ErrInvalidConfiguration, "lambda must be positive, got %v",
				m.Lambda)
		}
		return nil
	case nil:
		return errors.Wrap(ErrInvalidConfiguration, "no method")
	default:
		return errors.Wrapf(ErrInvalidConfiguration, "unsupported method %T", m)
	}
}
