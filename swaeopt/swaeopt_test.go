package swaeopt

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec64"
)

// testQuadratic is 3x^2+3xy-2x+y^2, which has a global
// minimum at (x = 4/3, y = -2).
type testQuadratic struct {
	X *anydiff.Var
	Y *anydiff.Var
}

func newTestQuadratic(c anyvec.Creator) *testQuadratic {
	return &testQuadratic{
		X: anydiff.NewVar(c.MakeVector(1)),
		Y: anydiff.NewVar(c.MakeVector(1)),
	}
}

func (t *testQuadratic) Cost() anydiff.Res {
	mk := t.X.Vector.Creator().MakeNumeric
	return anydiff.Add(
		anydiff.Add(
			anydiff.Scale(anydiff.Mul(t.X, t.X), mk(3)),
			anydiff.Scale(anydiff.Mul(t.X, t.Y), mk(3)),
		),
		anydiff.Add(
			anydiff.Scale(t.X, mk(-2)),
			anydiff.Mul(t.Y, t.Y),
		),
	)
}

func (t *testQuadratic) Minimize(o *Optimizer, steps int) {
	c := t.X.Vector.Creator()
	oneVec := c.MakeVectorData(c.MakeNumericList([]float64{1}))
	for i := 0; i < steps; i++ {
		t.Cost().Propagate(oneVec, o.Grad())
		o.Step()
		o.ZeroGrad()
	}
}

func (t *testQuadratic) ErrorMargin() float64 {
	x := t.X.Vector.Data().([]float64)[0]
	y := t.Y.Vector.Data().([]float64)[0]
	return math.Max(math.Abs(x-4.0/3), math.Abs(y+2))
}

func TestOptimizers(t *testing.T) {
	tests := []struct {
		name  string
		lr    float64
		steps int
	}{
		{"sgd", 0.05, 3000},
		{"momentum", 0.01, 3000},
		{"rmsprop", 0.001, 20000},
		{"adam", 0.001, 20000},
		{"adamax", 0.001, 20000},
	}
	for _, test := range tests {
		q := newTestQuadratic(anyvec64.DefaultCreator{})
		o, err := New(test.name, []*anydiff.Var{q.X, q.Y}, test.lr, Settings{})
		if err != nil {
			t.Fatal(err)
		}
		q.Minimize(o, test.steps)
		if margin := q.ErrorMargin(); margin > 1e-2 {
			x, y := q.X.Vector.Data(), q.Y.Vector.Data()
			t.Errorf("%s: bad solution: %v, %v", test.name, x, y)
		}
	}
}

func TestDecoupledWeightDecay(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	p := anydiff.NewVar(c.MakeVectorData(c.MakeNumericList([]float64{1, -2})))
	o, err := New("adamW", []*anydiff.Var{p}, 0.1, Settings{})
	if err != nil {
		t.Fatal(err)
	}
	o.Step()

	actual := p.Vector.Data().([]float64)
	expected := []float64{1 - 0.1*0.01, -2 * (1 - 0.1*0.01)}
	for i, x := range expected {
		if math.Abs(actual[i]-x) > 1e-12 {
			t.Errorf("parameter %d: expected %f but got %f", i, x, actual[i])
		}
	}
}

func TestZeroGrad(t *testing.T) {
	q := newTestQuadratic(anyvec64.DefaultCreator{})
	o, err := New("adam", []*anydiff.Var{q.X, q.Y}, 0.01, Settings{Beta1: 0.5})
	if err != nil {
		t.Fatal(err)
	}
	q.X.Vector.SetData([]float64{1})
	q.Minimize(o, 1)
	for v, g := range o.Grad() {
		if x := g.Data().([]float64)[0]; x != 0 {
			t.Errorf("variable %p: gradient should be zero but got %f", v, x)
		}
	}
}

func TestUnknownOptimizer(t *testing.T) {
	_, err := New("lbfgs", nil, 0.01, Settings{})
	if errors.Cause(err) != ErrUnknownOptimizer {
		t.Errorf("unexpected error: %v", err)
	}
	_, err = New("adam", nil, 0, Settings{})
	if err == nil {
		t.Error("expected error for zero learning rate")
	}
}
