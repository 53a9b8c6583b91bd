package swae

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anydifftest"
	"github.com/unixpickle/anyvec/anyvec64"
	"gonum.org/v1/gonum/floats"
)

func TestSphereMoment(t *testing.T) {
	cases := []struct {
		dim, order int
		expected   float64
	}{
		{1, 3, 1},
		{2, 1, 2 / math.Pi},
		{2, 2, 0.5},
		{3, 1, 0.5},
		{3, 2, 1.0 / 3},
		{5, 2, 0.2},
		{3, 4, 0.2},
	}
	for _, c := range cases {
		if actual := sphereMoment(c.dim, c.order); math.Abs(actual-c.expected) > 1e-10 {
			t.Errorf("dim %d order %d: expected %f but got %f", c.dim, c.order,
				c.expected, actual)
		}
	}
}

// Two batches with equal means have a lower bound of 0,
// while their sliced distance is 1-2/pi.
func TestLowerBoundBelowSlicedDistance(t *testing.T) {
	latent := []float64{1, 0, -1, 0}
	prior := []float64{0, 1, 0, -1}
	r := rand.New(rand.NewPCG(1, 2))

	bound := lowerBound(t, r, latent, prior, 2, 2)
	estimate := uniformEstimate(t, r, latent, prior, 2, 2, 100000)
	if math.Abs(estimate-(1-2/math.Pi)) > 0.01 {
		t.Errorf("expected sliced distance near %f but got %f", 1-2/math.Pi, estimate)
	}
	if bound > estimate {
		t.Errorf("lower bound %f exceeds sliced distance %f", bound, estimate)
	}
	if bound != 0 {
		t.Errorf("expected bound 0 but got %f", bound)
	}
}

// Shifting a batch moves every projection by the same
// amount, so the bound is tight.
func TestLowerBoundShift(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	latent := randomPoints(r, 16, 3)
	shift := []float64{0.5, -1, 2}
	prior := append([]float64{}, latent...)
	for i := 0; i < 16; i++ {
		floats.Add(prior[i*3:(i+1)*3], shift)
	}
	for _, order := range []int{1, 2, 3} {
		bound := lowerBound(t, r, latent, prior, 3, order)
		expected := sphereMoment(3, order) * math.Pow(floats.Norm(shift, 2), float64(order))
		if math.Abs(bound-expected) > 1e-8 {
			t.Errorf("order %d: expected bound %f but got %f", order, expected, bound)
		}
		estimate := uniformEstimate(t, r, latent, prior, 3, order, 100000)
		if math.Abs(estimate-bound) > 0.02*bound {
			t.Errorf("order %d: bound %f far from sliced distance %f", order, bound, estimate)
		}
	}
}

func TestLowerBoundRandom(t *testing.T) {
	r := rand.New(rand.NewPCG(5, 6))
	for trial := 0; trial < 10; trial++ {
		dim := 1 + r.IntN(4)
		n := 2 + r.IntN(10)
		latent := randomPoints(r, n, dim)
		prior := randomPoints(r, n, dim)
		for i := range prior {
			prior[i] = prior[i]*2 + 1
		}
		for _, order := range []int{1, 2, 3} {
			bound := lowerBound(t, r, latent, prior, dim, order)
			estimate := uniformEstimate(t, r, latent, prior, dim, order, 20000)
			if bound > estimate*1.02 {
				t.Errorf("trial %d order %d: bound %f exceeds sliced distance %f",
					trial, order, bound, estimate)
			}
		}
	}
}

// Along every direction, the projected mean gap is at
// most the transport cost.
func TestMeanGapPerDirection(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 8))
	latent := randomPoints(r, 9, 4)
	prior := randomPoints(r, 9, 4)
	proj, err := (&ProjectionSampler{}).Generate(r, 4, 50, UniformMethod{}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, order := range []int{1, 2, 3} {
		engine := &SlicedDistance{Order: order}
		_, costs, err := engine.Evaluate(latent, prior, proj)
		if err != nil {
			t.Fatal(err)
		}
		gapSet := *proj
		gapSet.MeanGap = true
		_, gaps, err := engine.Evaluate(latent, prior, &gapSet)
		if err != nil {
			t.Fatal(err)
		}
		for i, gap := range gaps {
			if gap > costs[i]+1e-9 {
				t.Errorf("order %d direction %d: gap %f exceeds cost %f", order, i,
					gap, costs[i])
			}
		}
	}
}

func TestMeanGapEvaluate(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	r := rand.New(rand.NewPCG(9, 10))
	latent := randomPoints(r, 7, 3)
	prior := randomPoints(r, 7, 3)
	proj, err := (&ProjectionSampler{}).Generate(r, 3, 4, LowerBoundMethod{}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	engine := &SlicedDistance{Order: 3}
	res, err := engine.Distance(anydiff.NewConst(c.MakeVectorData(latent)),
		anydiff.NewConst(c.MakeVectorData(prior)), proj)
	if err != nil {
		t.Fatal(err)
	}
	dist, gaps, err := engine.Evaluate(latent, prior, proj)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(dist-scalarRes(res.Distance)) > 1e-10 {
		t.Errorf("expected %f but got %f", scalarRes(res.Distance), dist)
	}
	if len(gaps) != 4 || len(res.PerProjection) != 4 {
		t.Fatalf("unexpected breakdown sizes %d and %d", len(gaps), len(res.PerProjection))
	}
	for i, x := range gaps {
		if math.Abs(x-res.PerProjection[i]) > 1e-10 {
			t.Errorf("direction %d: expected %f but got %f", i, res.PerProjection[i], x)
		}
	}
}

func TestMeanGapProp(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	r := rand.New(rand.NewPCG(11, 12))
	proj, err := (&ProjectionSampler{}).Generate(r, 3, 3, LowerBoundMethod{}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	latent := anydiff.NewVar(c.MakeVectorData(randomPoints(r, 6, 3)))
	prior := anydiff.NewVar(c.MakeVectorData(randomPoints(r, 6, 3)))
	labels := []int{0, 1, 1, 0, 2, 1}

	for _, order := range []int{1, 2, 3} {
		engine := &SlicedDistance{Order: order}
		fairness := &Fairness{Order: order}
		checker := &anydifftest.ResChecker{
			F: func() anydiff.Res {
				dist, err := engine.Distance(latent, prior, proj)
				if err != nil {
					t.Fatal(err)
				}
				fair, err := fairness.Penalty(latent, labels, 3, proj)
				if err != nil {
					t.Fatal(err)
				}
				return anydiff.Add(dist.Distance, fair.Penalty)
			},
			V: []*anydiff.Var{latent, prior},
		}
		checker.FullCheck(t)
	}
}

// Every class's gap to the whole batch is a lower bound
// of its sliced distance to the whole batch.
func TestMeanGapFairness(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	r := rand.New(rand.NewPCG(13, 14))
	points := randomPoints(r, 12, 2)
	for i := 0; i < 6; i++ {
		points[i*2] += 3
	}
	labels := []int{0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 1, 1}
	latent := anydiff.NewConst(c.MakeVectorData(points))

	bound, err := (&ProjectionSampler{}).Generate(r, 2, 2, LowerBoundMethod{}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	uniform, err := (&ProjectionSampler{}).Generate(r, 2, 20000, UniformMethod{}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	lower, err := (&Fairness{}).Penalty(latent, labels, 3, bound)
	if err != nil {
		t.Fatal(err)
	}
	full, err := (&Fairness{}).Penalty(latent, labels, 3, uniform)
	if err != nil {
		t.Fatal(err)
	}
	if !(scalarRes(lower.Penalty) > 0) {
		t.Errorf("expected positive penalty but got %f", scalarRes(lower.Penalty))
	}
	if scalarRes(lower.Penalty) > scalarRes(full.Penalty) {
		t.Errorf("bound %f exceeds penalty %f", scalarRes(lower.Penalty),
			scalarRes(full.Penalty))
	}
	if lower.Present[2] || lower.ClassDistances[2] != 0 {
		t.Error("absent class should have no distance")
	}
	for class := 0; class < 2; class++ {
		if lower.ClassDistances[class] > full.ClassDistances[class] {
			t.Errorf("class %d: bound %f exceeds distance %f", class,
				lower.ClassDistances[class], full.ClassDistances[class])
		}
	}
}

func lowerBound(t *testing.T, r *rand.Rand, latent, prior []float64,
	dim, order int) float64 {
	proj, err := (&ProjectionSampler{}).Generate(r, dim, dim, LowerBoundMethod{}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	res, _, err := (&SlicedDistance{Order: order}).Evaluate(latent, prior, proj)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func uniformEstimate(t *testing.T, r *rand.Rand, latent, prior []float64,
	dim, order, k int) float64 {
	proj, err := (&ProjectionSampler{}).Generate(r, dim, k, UniformMethod{}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	res, _, err := (&SlicedDistance{Order: order}).Evaluate(latent, prior, proj)
	if err != nil {
		t.Fatal(err)
	}
	return res
}
