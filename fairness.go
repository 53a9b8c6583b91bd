package swae

import (
	"github.com/namhainguyen2803/chuyen-rang/hostvec"
	"github.com/pkg/errors"
	"github.com/unixpickle/anydiff"
)

// Fairness penalizes differences between the latent
// distributions of different classes.
//
// For every class present in a batch, the sliced distance
// between that class's points and the whole batch is
// computed along the directions of a projection set.
// Classes of different sizes are compared through their
// quantile functions, which is exact for one-dimensional
// empirical measures.
// The penalty is the mean of these distances over the
// present classes.
//
// For projection sets with MeanGap set, each class is
// compared to the whole batch through the gap between
// their means instead, which bounds the sliced distance
// from below.
//
// The penalty is never negative, and it is exactly zero
// when only one class is present or when every present
// class has the same empirical distribution.
type Fairness struct {
	// Order is the exponent p of the per-direction cost.
	// If it is 0, 2 is used.
	Order int

	// Workers is the maximum number of goroutines used to
	// process directions.
	// If it is 0, GOMAXPROCS is used.
	Workers int
}

// A FairnessResult is the output of Fairness.
type FairnessResult struct {
	// Penalty is a vector with one component.
	Penalty anydiff.Res

	// ClassDistances stores the distance from each class
	// to the whole batch.
	// Absent classes have distance 0.
	ClassDistances []float64

	// Present indicates which classes appeared in the
	// batch.
	Present []bool
}

// Penalty computes the fairness penalty for a packed
// latent batch with one label per point.
func (f *Fairness) Penalty(latent anydiff.Res, labels []int, numClasses int,
	proj *ProjectionSet) (*FairnessResult, error) {
	if numClasses <= 0 {
		return nil, errors.Wrapf(ErrInvalidConfiguration,
			"fairness: class count must be positive, got %d", numClasses)
	}
	if err := proj.validate(); err != nil {
		return nil, errors.WithMessage(err, "fairness")
	}
	n, err := pairedRows(latent.Output().Len(), latent.Output().Len(), proj.Dim)
	if err != nil {
		return nil, errors.WithMessage(err, "fairness")
	}
	if len(labels) != n {
		return nil, errors.Wrapf(ErrInvalidBatch,
			"fairness: %d labels for %d points", len(labels), n)
	}

	classRows := make([][]int, numClasses)
	for i, label := range labels {
		if label < 0 || label >= numClasses {
			return nil, errors.Wrapf(ErrInvalidBatch,
				"fairness: label %d out of range [0, %d)", label, numClasses)
		}
		classRows[label] = append(classRows[label], i)
	}
	allRows := make([]int, n)
	for i := range allRows {
		allRows[i] = i
	}

	present := make([]bool, numClasses)
	var presentClasses []int
	for class, rows := range classRows {
		if len(rows) > 0 {
			present[class] = true
			presentClasses = append(presentClasses, class)
		}
	}

	c := latent.Output().Creator()
	if proj.MeanGap {
		terms := make([]meanGapTerm, len(presentClasses))
		for i, class := range presentClasses {
			terms[i] = meanGapTerm{
				Output: i,
				Left:   classRows[class],
				Right:  allRows,
				Scale:  1,
			}
		}
		perClass := meanGapCosts(latent, proj.Dim, len(presentClasses), f.order(), terms)
		return newFairnessResult(perClass, presentClasses, present), nil
	}

	k := proj.Len()
	dirs := anydiff.NewConst(hostvec.Make(c, proj.Directions))
	projected := projectRows(latent, dirs, n, k, proj.Dim)

	perClass := transportCosts(projected, k, len(presentClasses), f.order(), f.Workers,
		func(data []float64, col int) []transportTerm {
			all := columnValues(data, k, col, allRows)
			terms := make([]transportTerm, len(presentClasses))
			for i, class := range presentClasses {
				rows := classRows[class]
				terms[i] = transportTerm{
					Output: i,
					Column: col,
					Scale:  proj.Weights[col],
					Plan:   quantilePlan(columnValues(data, k, col, rows), all, rows, allRows),
				}
			}
			return terms
		})

	return newFairnessResult(perClass, presentClasses, present), nil
}

// newFairnessResult averages per-class distances, which
// are stored in order of presentClasses.
func newFairnessResult(perClass anydiff.Res, presentClasses []int,
	present []bool) *FairnessResult {
	distances := make([]float64, len(present))
	for i, d := range hostvec.Floats(perClass.Output()) {
		distances[presentClasses[i]] = d
	}
	c := perClass.Output().Creator()
	scaler := c.MakeNumeric(1 / float64(len(presentClasses)))
	return &FairnessResult{
		Penalty:        anydiff.Scale(anydiff.Sum(perClass), scaler),
		ClassDistances: distances,
		Present:        present,
	}
}

func (f *Fairness) order() int {
	if f.Order == 0 {
		return 2
	}
	return f.Order
}
