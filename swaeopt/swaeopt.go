// Package swaeopt implements gradient-based optimizers for
// the parameters of an autoencoder.
//
// Each optimizer accumulates gradients into a single
// anydiff.Grad, transforms them with an anysgd.Transformer,
// and adds the scaled result to the parameters.
package swaeopt

import (
	"github.com/pkg/errors"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet/anysgd"
)

// ErrUnknownOptimizer is returned by New for unsupported
// optimizer names.
var ErrUnknownOptimizer = errors.New("unknown optimizer")

// Settings stores the hyper-parameters shared by the
// supported optimizers.
// Zero fields select defaults.
type Settings struct {
	// Beta1 and Beta2 are the moment decay rates used by
	// adam, adamax, and adamW.
	Beta1, Beta2 float64

	// Alpha is the decay rate used by rmsprop.
	Alpha float64

	// Momentum is the momentum coefficient used by the
	// momentum optimizer.
	// If it is 0, 0.9 is used.
	Momentum float64

	// WeightDecay is the L2 penalty coefficient.
	// For adamW it is applied directly to the parameters
	// and defaults to 0.01.
	// For the other optimizers it is added to the gradient.
	WeightDecay float64
}

// An Optimizer updates a fixed set of parameters.
//
// An Optimizer is not thread-safe.
type Optimizer struct {
	Params []*anydiff.Var

	// Transformer, if non-nil, is applied to the gradient
	// before every step.
	Transformer anysgd.Transformer

	// Rater determines the step size.
	Rater anysgd.Rater

	// Epoch is passed to Rater.
	// It is never modified by the Optimizer.
	Epoch float64

	// WeightDecay is an L2 penalty coefficient.
	WeightDecay float64

	// Decoupled indicates that WeightDecay is applied to
	// the parameters instead of the gradient.
	Decoupled bool

	grad anydiff.Grad
}

// New creates an optimizer by name.
//
// Supported names are "sgd", "momentum", "rmsprop", "adam",
// "adamax", and "adamW".
func New(name string, params []*anydiff.Var, lr float64, s Settings) (*Optimizer, error) {
	if lr <= 0 {
		return nil, errors.Errorf("create optimizer %s: learning rate must be positive, got %v",
			name, lr)
	}
	res := &Optimizer{
		Params:      params,
		Rater:       anysgd.ConstRater(lr),
		WeightDecay: s.WeightDecay,
	}
	switch name {
	case "sgd":
	case "momentum":
		m := s.Momentum
		if m == 0 {
			m = 0.9
		}
		res.Transformer = &anysgd.Momentum{Momentum: m}
	case "rmsprop":
		res.Transformer = &anysgd.RMSProp{DecayRate: s.Alpha}
	case "adam":
		res.Transformer = &anysgd.Adam{DecayRate1: s.Beta1, DecayRate2: s.Beta2}
	case "adamax":
		res.Transformer = &Adamax{DecayRate1: s.Beta1, DecayRate2: s.Beta2}
	case "adamW":
		res.Transformer = &anysgd.Adam{DecayRate1: s.Beta1, DecayRate2: s.Beta2}
		res.Decoupled = true
		if res.WeightDecay == 0 {
			res.WeightDecay = 0.01
		}
	default:
		return nil, errors.Wrapf(ErrUnknownOptimizer, "create optimizer %q", name)
	}
	return res, nil
}

// Grad returns the gradient that accumulates between
// steps.
// The same Grad is returned until the parameters change.
func (o *Optimizer) Grad() anydiff.Grad {
	if o.grad == nil {
		o.grad = anydiff.NewGrad(o.Params...)
	}
	return o.grad
}

// Step updates the parameters using the accumulated
// gradient.
//
// Step may overwrite the accumulated gradient, so ZeroGrad
// should be called before the next backward pass.
func (o *Optimizer) Step() {
	g := o.Grad()
	if len(g) == 0 {
		return
	}
	rate := o.Rater.Rate(o.Epoch)

	if o.WeightDecay != 0 && !o.Decoupled {
		for _, p := range o.Params {
			decay := p.Vector.Copy()
			decay.Scale(decay.Creator().MakeNumeric(o.WeightDecay))
			g[p].Add(decay)
		}
	}

	if o.Transformer != nil {
		g = o.Transformer.Transform(g)
	}

	if o.WeightDecay != 0 && o.Decoupled {
		for _, p := range o.Params {
			p.Vector.Scale(p.Vector.Creator().MakeNumeric(1 - rate*o.WeightDecay))
		}
	}

	scaleGrad(g, -rate)
	g.AddToVars()
}

// ZeroGrad resets the accumulated gradient.
func (o *Optimizer) ZeroGrad() {
	for _, v := range o.Grad() {
		v.Set(v.Creator().MakeVector(v.Len()))
	}
}
