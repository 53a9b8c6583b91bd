package swae

import (
	"math"

	"github.com/pkg/errors"
)

// Config stores the settings of a Trainer.
type Config struct {
	// NumProjections is the number of directions drawn for
	// every batch.
	NumProjections int

	// Method chooses and weights the directions.
	Method Method

	// WeightSWD scales the sliced distance between the
	// latent codes and the prior.
	WeightSWD float64

	// WeightFSW scales the fairness penalty.
	WeightFSW float64

	// NumClasses is the number of distinct labels.
	NumClasses int

	// Prior is the target latent distribution.
	Prior PriorKind

	// Order is the exponent p of the transport costs.
	// If it is 0, 2 is used.
	Order int

	// Reconstruction is the reconstruction loss.
	Reconstruction ReconstructionLoss
}

// DefaultConfig returns the settings used for MNIST.
func DefaultConfig() Config {
	return Config{
		NumProjections: 50,
		Method:         UniformMethod{},
		WeightSWD:      1,
		WeightFSW:      1,
		NumClasses:     10,
		Prior:          Circle,
		Order:          2,
		Reconstruction: MeanSquared,
	}
}

// Validate checks that the configuration is usable.
// Failures have ErrInvalidConfiguration as their cause.
func (c *Config) Validate() error {
	if c.NumProjections <= 0 {
		return errors.Wrapf(ErrInvalidConfiguration,
			"projection count must be positive, got %d", c.NumProjections)
	}
	if err := validateMethod(c.Method); err != nil {
		return err
	}
	if !validWeight(c.WeightSWD) || !validWeight(c.WeightFSW) {
		return errors.Wrapf(ErrInvalidConfiguration,
			"loss weights must be finite and non-negative, got %v and %v",
			c.WeightSWD, c.WeightFSW)
	}
	if c.NumClasses <= 0 {
		return errors.Wrapf(ErrInvalidConfiguration,
			"class count must be positive, got %d", c.NumClasses)
	}
	if c.Prior < Circle || c.Prior > Gaussian {
		return errors.Wrapf(ErrInvalidConfiguration, "unknown prior kind %d", int(c.Prior))
	}
	if c.Order < 0 {
		return errors.Wrapf(ErrInvalidConfiguration, "order must be positive, got %d", c.Order)
	}
	if !c.Reconstruction.valid() {
		return errors.Wrapf(ErrInvalidConfiguration, "unknown reconstruction loss %d",
			int(c.Reconstruction))
	}
	return nil
}

func validWeight(w float64) bool {
	return w >= 0 && !math.IsInf(w, 0)
}
