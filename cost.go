package swae

import (
	"fmt"

	"github.com/namhainguyen2803/chuyen-rang/hostvec"
	"github.com/pkg/errors"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
)

// ReconstructionLoss measures how far a decoded batch is
// from the input batch.
//
// It implements anynet.Cost, producing one cost per
// sample.
type ReconstructionLoss int

// These are the supported reconstruction losses.
const (
	// MeanSquared is the mean squared difference.
	MeanSquared ReconstructionLoss = iota

	// MeanAbsolute is the mean absolute difference.
	MeanAbsolute

	// SquaredPlusAbsolute is the sum of MeanSquared and
	// MeanAbsolute.
	SquaredPlusAbsolute
)

// ParseReconstructionLoss parses a loss name.
func ParseReconstructionLoss(name string) (ReconstructionLoss, error) {
	switch name {
	case "mse":
		return MeanSquared, nil
	case "l1":
		return MeanAbsolute, nil
	case "mse+l1":
		return SquaredPlusAbsolute, nil
	default:
		return 0, errors.Wrapf(ErrInvalidConfiguration, "unknown reconstruction loss %q", name)
	}
}

// String returns the name of the loss.
func (r ReconstructionLoss) String() string {
	switch r {
	case MeanSquared:
		return "mse"
	case MeanAbsolute:
		return "l1"
	case SquaredPlusAbsolute:
		return "mse+l1"
	default:
		return fmt.Sprintf("ReconstructionLoss(%d)", int(r))
	}
}

// Cost computes, for each of the n samples, the loss
// between the desired and actual output.
func (r ReconstructionLoss) Cost(desired, actual anydiff.Res, n int) anydiff.Res {
	switch r {
	case MeanSquared:
		return anynet.MSE{}.Cost(desired, actual, n)
	case MeanAbsolute:
		return meanAbsolute(desired, actual, n)
	case SquaredPlusAbsolute:
		return anydiff.Add(
			anynet.MSE{}.Cost(desired, actual, n),
			meanAbsolute(desired, actual, n),
		)
	default:
		panic(fmt.Sprintf("unknown reconstruction loss: %d", int(r)))
	}
}

// MeanCost averages the per-sample cost over the batch,
// producing a vector with one component.
func (r ReconstructionLoss) MeanCost(desired, actual anydiff.Res, n int) anydiff.Res {
	cost := r.Cost(desired, actual, n)
	scaler := cost.Output().Creator().MakeNumeric(1 / float64(n))
	return anydiff.Scale(anydiff.Sum(cost), scaler)
}

func (r ReconstructionLoss) valid() bool {
	return r >= MeanSquared && r <= SquaredPlusAbsolute
}

func meanAbsolute(desired, actual anydiff.Res, n int) anydiff.Res {
	diff := anydiff.Sub(actual, desired)
	abs := anydiff.Mul(diff, anydiff.NewConst(
		hostvec.Make(diff.Output().Creator(), signs(hostvec.Floats(diff.Output()))),
	))
	numComps := abs.Output().Len() / n
	sum := anydiff.SumCols(&anydiff.Matrix{
		Data: abs,
		Rows: n,
		Cols: numComps,
	})
	normalizer := 1.0 / float64(numComps)
	return anydiff.Scale(sum, sum.Output().Creator().MakeNumeric(normalizer))
}
