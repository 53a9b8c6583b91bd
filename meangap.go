package swae

import (
	"math"

	"github.com/namhainguyen2803/chuyen-rang/hostvec"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mathext"
)

// A meanGapTerm adds Scale times the sphere-averaged
// projected gap between the means of two row groups to
// one output component.
type meanGapTerm struct {
	Output int
	Left   []int
	Right  []int
	Scale  float64
}

type meanGapRes struct {
	In     anydiff.Res
	Cols   int
	Order  int
	Moment float64
	Terms  []meanGapTerm

	// Gaps stores mean(Left)-mean(Right) for every term.
	Gaps [][]float64

	Out anyvec.Vector
}

// meanGapCosts computes, for every term, the average of
// |u.(mean(Left)-mean(Right))|^order over unit vectors u
// drawn uniformly from the sphere.
//
// Along any direction u, every coupling of the two groups
// moves their projected means onto each other, so the
// projected gap never exceeds the transport cost along u.
func meanGapCosts(in anydiff.Res, cols, numOut, order int, terms []meanGapTerm) anydiff.Res {
	if in.Output().Len()%cols != 0 {
		panic("column count must divide input size")
	}
	data := hostvec.Floats(in.Output())
	moment := sphereMoment(cols, order)
	gaps := make([][]float64, len(terms))
	out := make([]float64, numOut)
	for i, term := range terms {
		gaps[i] = meanGap(data, cols, term.Left, term.Right)
		norm := floats.Norm(gaps[i], 2)
		out[term.Output] += term.Scale * moment * powAbs(norm, order)
	}
	return &meanGapRes{
		In:     in,
		Cols:   cols,
		Order:  order,
		Moment: moment,
		Terms:  terms,
		Gaps:   gaps,
		Out:    hostvec.Make(in.Output().Creator(), out),
	}
}

func (m *meanGapRes) Output() anyvec.Vector {
	return m.Out
}

func (m *meanGapRes) Vars() anydiff.VarSet {
	return m.In.Vars()
}

func (m *meanGapRes) Propagate(u anyvec.Vector, g anydiff.Grad) {
	upstream := hostvec.Floats(u)
	down := make([]float64, m.In.Output().Len())
	for i, term := range m.Terms {
		gap := m.Gaps[i]
		norm := floats.Norm(gap, 2)
		if norm == 0 {
			continue
		}
		coeff := upstream[term.Output] * term.Scale * m.Moment *
			float64(m.Order) * math.Pow(norm, float64(m.Order-2))
		leftScale := coeff / float64(len(term.Left))
		rightScale := coeff / float64(len(term.Right))
		for _, row := range term.Left {
			floats.AddScaled(down[row*m.Cols:(row+1)*m.Cols], leftScale, gap)
		}
		for _, row := range term.Right {
			floats.AddScaled(down[row*m.Cols:(row+1)*m.Cols], -rightScale, gap)
		}
	}
	m.In.Propagate(hostvec.Make(u.Creator(), down), g)
}

// meanGap computes mean(left rows) - mean(right rows) for
// a row-major matrix.
func meanGap(data []float64, cols int, left, right []int) []float64 {
	res := rowMean(data, cols, left)
	floats.Sub(res, rowMean(data, cols, right))
	return res
}

func rowMean(data []float64, cols int, rows []int) []float64 {
	res := make([]float64, cols)
	for _, row := range rows {
		floats.Add(res, data[row*cols:(row+1)*cols])
	}
	floats.Scale(1/float64(len(rows)), res)
	return res
}

// sphereMoment computes E[|u_1|^p] for u uniform on the
// unit sphere in dim dimensions.
//
// Since u_1^2 follows Beta(1/2, (dim-1)/2), the moment is
// B((p+1)/2, (dim-1)/2) / B(1/2, (dim-1)/2).
func sphereMoment(dim, p int) float64 {
	if dim == 1 {
		return 1
	}
	b := float64(dim-1) / 2
	return math.Exp(mathext.Lbeta(float64(p+1)/2, b) - mathext.Lbeta(0.5, b))
}

// projectedGaps computes |d.gap|^order for every direction
// d of a projection set.
func projectedGaps(proj *ProjectionSet, gap []float64, order int) []float64 {
	res := make([]float64, proj.Len())
	for i := range res {
		res[i] = powAbs(floats.Dot(proj.Direction(i), gap), order)
	}
	return res
}
