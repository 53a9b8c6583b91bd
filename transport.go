package swae

import (
	"math"
	"sort"

	"github.com/namhainguyen2803/chuyen-rang/hostvec"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// A transportPlan moves mass between the order statistics
// of two one-dimensional samples.
//
// Entry i moves Mass[i] from Left[i] to Right[i].
// Indices refer to rows of the matrix the samples were
// taken from.
type transportPlan struct {
	Left  []int
	Right []int
	Mass  []float64
}

// stableOrder returns the indices of vals in ascending
// order of value, keeping ties in input order.
func stableOrder(vals []float64) []int {
	idx := make([]int, len(vals))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return vals[idx[i]] < vals[idx[j]]
	})
	return idx
}

// quantilePlan computes the optimal plan between the
// empirical measures of left and right by pairing their
// quantile functions.
//
// The leftRows and rightRows slices map sample positions
// to matrix rows.
// For equally-sized samples, the plan pairs same-rank
// elements with mass 1/n each.
func quantilePlan(left, right []float64, leftRows, rightRows []int) *transportPlan {
	lOrder := stableOrder(left)
	rOrder := stableOrder(right)
	n, m := len(left), len(right)

	if n == m {
		res := &transportPlan{
			Left:  make([]int, n),
			Right: make([]int, n),
			Mass:  make([]float64, n),
		}
		mass := 1 / float64(n)
		for i := 0; i < n; i++ {
			res.Left[i] = leftRows[lOrder[i]]
			res.Right[i] = rightRows[rOrder[i]]
			res.Mass[i] = mass
		}
		return res
	}

	res := &transportPlan{}
	var pos float64
	var i, j int
	for i < n && j < m {
		nextLeft := float64(i+1) / float64(n)
		nextRight := float64(j+1) / float64(m)
		next := math.Min(nextLeft, nextRight)
		if next > pos {
			res.Left = append(res.Left, leftRows[lOrder[i]])
			res.Right = append(res.Right, rightRows[rOrder[j]])
			res.Mass = append(res.Mass, next-pos)
			pos = next
		}
		if nextLeft <= next {
			i++
		}
		if nextRight <= next {
			j++
		}
	}
	return res
}

// Cost computes sum(mass * |x[left]-x[right]|^p) for one
// column of a row-major matrix.
func (t *transportPlan) Cost(data []float64, cols, col, order int) float64 {
	var res float64
	for i, mass := range t.Mass {
		diff := data[t.Left[i]*cols+col] - data[t.Right[i]*cols+col]
		res += mass * powAbs(diff, order)
	}
	return res
}

// PairCost is like Cost, but left indices refer to left
// and right indices refer to right.
func (t *transportPlan) PairCost(left, right []float64, order int) float64 {
	var res float64
	for i, mass := range t.Mass {
		res += mass * powAbs(left[t.Left[i]]-right[t.Right[i]], order)
	}
	return res
}

func powAbs(x float64, p int) float64 {
	switch p {
	case 1:
		return math.Abs(x)
	case 2:
		return x * x
	default:
		return math.Pow(math.Abs(x), float64(p))
	}
}

// powAbsDeriv is the derivative of powAbs with respect to
// x, using 0 as the subgradient of |x| at 0.
func powAbsDeriv(x float64, p int) float64 {
	switch p {
	case 1:
		if x > 0 {
			return 1
		} else if x < 0 {
			return -1
		}
		return 0
	case 2:
		return 2 * x
	default:
		d := float64(p) * math.Pow(math.Abs(x), float64(p-1))
		if x < 0 {
			return -d
		}
		return d
	}
}

// A transportTerm adds Scale times the cost of a plan on a
// matrix column to one output component.
type transportTerm struct {
	Output int
	Column int
	Scale  float64
	Plan   *transportPlan
}

// A columnPlanner produces the terms that involve one
// column of the input matrix.
// It is called concurrently for different columns.
type columnPlanner func(data []float64, col int) []transportTerm

type transportRes struct {
	In      anydiff.Res
	Cols    int
	Order   int
	Workers int

	// Terms grouped by column, so that gradients can be
	// computed concurrently without write conflicts.
	Terms [][]transportTerm

	Out anyvec.Vector
}

// transportCosts computes a vector of numOut transport
// costs between rows of a row-major matrix with cols
// columns.
//
// The planner decides which rows are paired for each
// column and where the resulting costs are accumulated.
// Columns are processed on up to workers goroutines; if
// workers is 0, GOMAXPROCS is used.
func transportCosts(in anydiff.Res, cols, numOut, order, workers int,
	planner columnPlanner) anydiff.Res {
	if in.Output().Len()%cols != 0 {
		panic("column count must divide input size")
	}
	data := hostvec.Floats(in.Output())
	terms := make([][]transportTerm, cols)
	costs := make([][]float64, cols)
	essentials.ConcurrentMap(workers, cols, func(col int) {
		terms[col] = planner(data, col)
		costs[col] = make([]float64, len(terms[col]))
		for i, term := range terms[col] {
			costs[col][i] = term.Scale * term.Plan.Cost(data, cols, col, order)
		}
	})

	out := make([]float64, numOut)
	for col, colTerms := range terms {
		for i, term := range colTerms {
			out[term.Output] += costs[col][i]
		}
	}

	return &transportRes{
		In:      in,
		Cols:    cols,
		Order:   order,
		Workers: workers,
		Terms:   terms,
		Out:     hostvec.Make(in.Output().Creator(), out),
	}
}

func (t *transportRes) Output() anyvec.Vector {
	return t.Out
}

func (t *transportRes) Vars() anydiff.VarSet {
	return t.In.Vars()
}

func (t *transportRes) Propagate(u anyvec.Vector, g anydiff.Grad) {
	upstream := hostvec.Floats(u)
	data := hostvec.Floats(t.In.Output())
	down := make([]float64, len(data))

	// Every term touches only its own column.
	essentials.ConcurrentMap(t.Workers, t.Cols, func(col int) {
		for _, term := range t.Terms[col] {
			scale := upstream[term.Output] * term.Scale
			if scale == 0 {
				continue
			}
			plan := term.Plan
			for i, mass := range plan.Mass {
				leftIdx := plan.Left[i]*t.Cols + col
				rightIdx := plan.Right[i]*t.Cols + col
				d := scale * mass * powAbsDeriv(data[leftIdx]-data[rightIdx], t.Order)
				down[leftIdx] += d
				down[rightIdx] -= d
			}
		}
	})

	t.In.Propagate(hostvec.Make(u.Creator(), down), g)
}
