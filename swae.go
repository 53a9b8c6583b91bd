// Package swae trains autoencoders whose latent codes are
// pushed towards a prior distribution with the sliced
// Wasserstein distance.
//
// The package provides prior samplers, several ways of
// choosing and weighting projection directions, a
// differentiable sliced distance, a per-class fairness
// penalty, and a Trainer which combines all of these into
// one optimization step per batch.
//
// All tensors are anydiff/anyvec values, so any network
// built with github.com/unixpickle/anynet can be trained.
package swae

import (
	"github.com/pkg/errors"
	"github.com/unixpickle/anydiff"
)

var (
	// ErrInvalidConfiguration is the cause of errors from
	// bad settings: unknown methods, non-positive counts,
	// prior/dimension mismatches, or vectors which live on
	// different devices.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrInvalidBatch is the cause of errors from batches
	// which are too small, have mismatched sizes, or carry
	// bad labels.
	ErrInvalidBatch = errors.New("invalid batch")
)

// A Model is an autoencoder.
//
// Both methods are batched in the anynet sense: the input
// packs n equally-long vectors.
type Model interface {
	Encode(in anydiff.Res, n int) anydiff.Res
	Decode(in anydiff.Res, n int) anydiff.Res
	Parameters() []*anydiff.Var
}

// An Optimizer owns a pending gradient for a set of
// parameters.
//
// Callers propagate into Grad(), then call Step() to
// update the parameters and ZeroGrad() to clear the
// pending gradient.
type Optimizer interface {
	Grad() anydiff.Grad
	Step()
	ZeroGrad()
}
