package swae

import (
	"fmt"
	"runtime"

	"github.com/klauspost/cpuid/v2"
	"github.com/pkg/errors"
	"github.com/unixpickle/anyvec"
)

// A Device is the compute context for a training run.
//
// Every vector which takes part in one training step must
// be created by the device's Creator.
type Device struct {
	Creator anyvec.Creator

	// Name describes the device in logs.
	Name string

	// Workers is the number of goroutines used for
	// per-direction work.
	// If it is 0, GOMAXPROCS is used.
	Workers int
}

// NewCPUDevice creates a Device for a CPU creator, such as
// anyvec32.CurrentCreator().
//
// The worker count defaults to the number of logical
// cores reported by the processor.
func NewCPUDevice(c anyvec.Creator) *Device {
	workers := cpuid.CPU.LogicalCores
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	name := cpuid.CPU.BrandName
	if name == "" {
		name = "cpu"
	}
	if cpuid.CPU.Supports(cpuid.AVX2) {
		name += " (avx2)"
	}
	return &Device{Creator: c, Name: name, Workers: workers}
}

// String returns a human-readable description.
func (d *Device) String() string {
	return fmt.Sprintf("%s [%T, %d workers]", d.Name, d.Creator, d.Workers)
}

// Check verifies that every vector was created by the
// device's Creator.
func (d *Device) Check(vecs ...anyvec.Vector) error {
	for _, v := range vecs {
		if v.Creator() != d.Creator {
			return errors.Wrapf(ErrInvalidConfiguration,
				"vector from %T used on device %s", v.Creator(), d.Name)
		}
	}
	return nil
}

// sameCreator verifies that a set of vectors share a
// creator.
func sameCreator(vecs ...anyvec.Vector) error {
	for _, v := range vecs[1:] {
		if v.Creator() != vecs[0].Creator() {
			return errors.Wrapf(ErrInvalidConfiguration,
				"mixed compute contexts: %T and %T", vecs[0].Creator(), v.Creator())
		}
	}
	return nil
}
