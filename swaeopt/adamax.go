package swaeopt

import (
	"math"

	"github.com/namhainguyen2803/chuyen-rang/hostvec"
	"github.com/unixpickle/anydiff"
)

const (
	adamaxDefaultDecayRate1 = 0.9
	adamaxDefaultDecayRate2 = 0.999
	adamaxDefaultDamping    = 1e-8
)

// Adamax implements the infinity-norm variant of Adam
// described in https://arxiv.org/pdf/1412.6980.pdf.
//
// The transformed gradient is
//
//     m / ((1 - beta1^t) * (u + damping))
//
// where m is the first moment and u is the exponentially
// weighted infinity norm of past gradients.
type Adamax struct {
	// These are decay rates for the first moment and the
	// infinity norm.
	// If these are 0, defaults are used.
	DecayRate1, DecayRate2 float64

	// Damping is used to prevent divisions by zero.
	// If it is 0, a default is used.
	Damping float64

	firstMoment anydiff.Grad
	infNorm     anydiff.Grad
	iteration   float64
}

// Transform transforms the gradient using Adamax.
//
// This is not thread-safe.
func (a *Adamax) Transform(realGrad anydiff.Grad) anydiff.Grad {
	rate1 := valueOrDefault(a.DecayRate1, adamaxDefaultDecayRate1)
	rate2 := valueOrDefault(a.DecayRate2, adamaxDefaultDecayRate2)

	if a.firstMoment == nil {
		a.firstMoment = zeroGrad(realGrad)
		a.infNorm = zeroGrad(realGrad)
	}

	scaleGrad(a.firstMoment, rate1)
	for variable, vec := range realGrad {
		v := vec.Copy()
		v.Scale(v.Creator().MakeNumeric(1 - rate1))
		a.firstMoment[variable].Add(v)

		norm := hostvec.Floats(a.infNorm[variable])
		for i, x := range hostvec.Floats(vec) {
			norm[i] = math.Max(norm[i]*rate2, math.Abs(x))
		}
		hostvec.Set(a.infNorm[variable], norm)
	}

	a.iteration++
	correction := 1 - math.Pow(rate1, a.iteration)
	damping := valueOrDefault(a.Damping, adamaxDefaultDamping)
	for variable, vec := range realGrad {
		vec.Set(a.firstMoment[variable])
		vec.Scale(vec.Creator().MakeNumeric(1 / correction))

		divisor := a.infNorm[variable].Copy()
		divisor.AddScalar(divisor.Creator().MakeNumeric(damping))
		vec.Div(divisor)
	}

	return realGrad
}
