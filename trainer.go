package swae

import (
	"math/rand/v2"
	"runtime"
	"sync"

	"github.com/namhainguyen2803/chuyen-rang/hostvec"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// A Batch stores packed images and their labels.
type Batch struct {
	Images *anydiff.Const

	// Labels may be nil for evaluation batches.
	Labels []int

	Num int
}

// A LossReport summarizes one batch.
type LossReport struct {
	Total          float64
	Reconstruction float64
	Distance       float64

	// Fairness is 0 when no labels were available.
	Fairness float64

	// PerProjection and Weights describe the directions
	// used for the distance.
	PerProjection []float64
	Weights       []float64

	// ClassDistances is nil when no labels were available.
	ClassDistances []float64

	Encoded anyvec.Vector
	Decoded anyvec.Vector
}

// A Trainer runs and trains an autoencoder with a sliced
// Wasserstein regularizer and a fairness penalty.
//
// A Trainer is not thread-safe: it owns the model's
// parameters and the optimizer's state.
type Trainer struct {
	Device    *Device
	Model     Model
	Optimizer Optimizer
	Config    Config

	// Rand is the source of all prior samples and random
	// directions.
	Rand *rand.Rand

	// Prior, if non-nil, overrides Config.Prior.
	Prior Prior

	// Log, if non-nil, receives a debug entry for every
	// training step.
	Log logrus.FieldLogger

	// MaxGos specifies the maximum goroutines to use
	// simultaneously for fetching samples.
	// If it is 0, GOMAXPROCS is used.
	MaxGos int
}

// Fetch produces a *Batch for the subset of samples.
// The s argument must implement SampleList.
// The batch may not be empty.
func (t *Trainer) Fetch(s anysgd.SampleList) (anysgd.Batch, error) {
	if s.Len() == 0 {
		return nil, errors.Wrap(ErrInvalidBatch, "fetch batch: empty batch")
	}

	l := s.(SampleList)
	images := make([]anyvec.Vector, l.Len())
	labels := make([]int, l.Len())

	idxChan := make(chan int, l.Len())
	for i := 0; i < l.Len(); i++ {
		idxChan <- i
	}
	close(idxChan)

	maxGos := t.MaxGos
	if maxGos == 0 {
		maxGos = runtime.GOMAXPROCS(0)
	}

	wg := sync.WaitGroup{}
	errChan := make(chan error, maxGos)
	for i := 0; i < maxGos; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idxChan {
				sample, err := l.GetSample(i)
				if err != nil {
					errChan <- essentials.AddCtx("fetch batch", err)
					return
				}
				images[i] = sample.Image
				labels[i] = sample.Label
			}
		}()
	}

	wg.Wait()
	close(errChan)

	if err := <-errChan; err != nil {
		return nil, err
	}
	if err := t.Device.Check(images...); err != nil {
		return nil, errors.WithMessage(err, "fetch batch")
	}

	return &Batch{
		Images: anydiff.NewConst(t.Device.Creator.Concat(images...)),
		Labels: labels,
		Num:    l.Len(),
	}, nil
}

// TrainOnBatch runs the model on a batch, computes the
// total loss, and applies one optimizer step.
//
// If Config.WeightFSW is non-zero, the batch must have
// labels.
// If an error is returned, the parameters and optimizer
// state have not been modified.
func (t *Trainer) TrainOnBatch(b *Batch) (*LossReport, error) {
	if t.Config.WeightFSW != 0 && b.Labels == nil {
		return nil, errors.Wrap(ErrInvalidBatch, "train on batch: labels are required")
	}
	total, report, err := t.forward(b)
	if err != nil {
		return nil, errors.WithMessage(err, "train on batch")
	}

	total.Propagate(oneVector(t.Device.Creator), t.Optimizer.Grad())
	t.Optimizer.Step()
	t.Optimizer.ZeroGrad()

	if t.Log != nil {
		t.Log.WithFields(logrus.Fields{
			"recon": report.Reconstruction,
			"swd":   report.Distance,
			"fsw":   report.Fairness,
			"total": report.Total,
		}).Debug("train step")
	}
	return report, nil
}

// TestOnBatch computes the same losses as TrainOnBatch
// without touching the parameters or the optimizer.
//
// The fairness penalty is only computed if the batch has
// labels.
func (t *Trainer) TestOnBatch(b *Batch) (*LossReport, error) {
	_, report, err := t.forward(b)
	if err != nil {
		return nil, errors.WithMessage(err, "test on batch")
	}
	return report, nil
}

func (t *Trainer) forward(b *Batch) (anydiff.Res, *LossReport, error) {
	if err := t.Config.Validate(); err != nil {
		return nil, nil, err
	}
	if b.Num < 2 {
		return nil, nil, errors.Wrapf(ErrInvalidBatch, "need at least 2 samples, got %d",
			b.Num)
	}
	if b.Images.Output().Len()%b.Num != 0 {
		return nil, nil, errors.Wrapf(ErrInvalidBatch,
			"image data (%d values) does not split into %d samples",
			b.Images.Output().Len(), b.Num)
	}
	if err := t.Device.Check(b.Images.Output()); err != nil {
		return nil, nil, err
	}

	n := b.Num
	c := t.Device.Creator
	latent := t.Model.Encode(b.Images, n)
	if latent.Output().Len()%n != 0 || latent.Output().Len() == 0 {
		return nil, nil, errors.Wrapf(ErrInvalidConfiguration,
			"encoder produced %d values for %d samples", latent.Output().Len(), n)
	}
	dim := latent.Output().Len() / n
	decoded := t.Model.Decode(latent, n)
	if decoded.Output().Len() != b.Images.Output().Len() {
		return nil, nil, errors.Wrapf(ErrInvalidConfiguration,
			"decoder produced %d values for %d inputs", decoded.Output().Len(),
			b.Images.Output().Len())
	}

	priorData, err := t.prior().Sample(t.Rand, n, dim)
	if err != nil {
		return nil, nil, err
	}
	prior := anydiff.NewConst(hostvec.Make(c, priorData))
	if err := t.Device.Check(latent.Output(), decoded.Output()); err != nil {
		return nil, nil, err
	}

	sampler := &ProjectionSampler{Order: t.Config.Order, Workers: t.Device.Workers}
	var latentData []float64
	if isAdaptive(t.Config.Method) {
		latentData = hostvec.Floats(latent.Output())
	}
	proj, err := sampler.Generate(t.Rand, dim, t.Config.NumProjections, t.Config.Method,
		latentData, priorData)
	if err != nil {
		return nil, nil, err
	}

	engine := &SlicedDistance{Order: t.Config.Order, Workers: t.Device.Workers}
	dist, err := engine.Distance(latent, prior, proj)
	if err != nil {
		return nil, nil, err
	}

	var fair *FairnessResult
	if b.Labels != nil {
		fairness := &Fairness{Order: t.Config.Order, Workers: t.Device.Workers}
		fair, err = fairness.Penalty(latent, b.Labels, t.Config.NumClasses, proj)
		if err != nil {
			return nil, nil, err
		}
	}

	recon := t.Config.Reconstruction.MeanCost(b.Images, decoded, n)
	total := anydiff.Add(recon, anydiff.Scale(dist.Distance,
		c.MakeNumeric(t.Config.WeightSWD)))
	report := &LossReport{
		Reconstruction: scalarRes(recon),
		Distance:       scalarRes(dist.Distance),
		PerProjection:  dist.PerProjection,
		Weights:        proj.Weights,
		Encoded:        latent.Output(),
		Decoded:        decoded.Output(),
	}
	if fair != nil {
		total = anydiff.Add(total, anydiff.Scale(fair.Penalty,
			c.MakeNumeric(t.Config.WeightFSW)))
		report.Fairness = scalarRes(fair.Penalty)
		report.ClassDistances = fair.ClassDistances
	}
	report.Total = scalarRes(total)

	return total, report, nil
}

func (t *Trainer) prior() Prior {
	if t.Prior != nil {
		return t.Prior
	}
	return t.Config.Prior
}
