package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strconv"

	swae "github.com/namhainguyen2803/chuyen-rang"
	"github.com/namhainguyen2803/chuyen-rang/hostvec"
	"github.com/namhainguyen2803/chuyen-rang/swaemodels"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/serializer"
)

const numGenerated = 100

// A Run trains a model and writes its artifacts.
type Run struct {
	Flags   *Flags
	Trainer *swae.Trainer
	Model   *swae.Autoencoder
	Train   swae.SliceSampleList
	Test    swae.SliceSampleList
	OutDir  string
	Log     logrus.FieldLogger

	// TestLosses stores the mean test loss after every
	// evaluation.
	TestLosses []float64

	lastBatch  *swae.Batch
	lastReport *swae.LossReport
}

// Loop trains for the configured number of epochs, or
// until ctx is done.
func (r *Run) Loop(ctx context.Context) error {
	for epoch := 0; epoch < r.Flags.Epochs; epoch++ {
		if err := r.trainEpoch(ctx, epoch); err != nil {
			return err
		}
		if ctx.Err() != nil {
			r.Log.Info("interrupted")
			return nil
		}
		e := epoch + 1
		if e%r.Flags.SaveInterval == 0 || e == r.Flags.Epochs {
			if err := r.evaluate(e); err != nil {
				return err
			}
			if err := r.saveCheckpoint(e); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Run) trainEpoch(ctx context.Context, epoch int) error {
	r.Trainer.Rand.Shuffle(r.Train.Len(), r.Train.Swap)
	numBatches := r.Train.Len() / r.Flags.BatchSize
	for i := 0; i < numBatches; i++ {
		if ctx.Err() != nil {
			return nil
		}
		start := i * r.Flags.BatchSize
		batch, err := r.Trainer.Fetch(r.Train.Slice(start, start+r.Flags.BatchSize))
		if err != nil {
			return err
		}
		report, err := r.Trainer.TrainOnBatch(batch.(*swae.Batch))
		if err != nil {
			return errors.Wrapf(err, "epoch %d batch %d", epoch+1, i+1)
		}
		r.lastBatch, r.lastReport = batch.(*swae.Batch), report
		if (i+1)%r.Flags.LogInterval == 0 {
			r.Log.WithFields(logrus.Fields{
				"epoch":    epoch + 1,
				"progress": fmt.Sprintf("%.2f%%", float64(epoch+1)/float64(r.Flags.Epochs)*100),
				"batch":    fmt.Sprintf("%d/%d", i+1, numBatches),
				"loss":     report.Total,
				"recon":    report.Reconstruction,
				"swd":      report.Distance,
				"fsw":      report.Fairness,
			}).Info("train")
		}
	}
	return nil
}

// evaluate computes the mean test loss and writes the
// test latent codes.
func (r *Run) evaluate(epoch int) error {
	var totalLoss float64
	var numBatches int
	var latents [][]float64
	var labels []int
	for start := 0; start+1 < r.Test.Len(); start += r.Flags.TestBatchSize {
		end := start + r.Flags.TestBatchSize
		if end > r.Test.Len() {
			end = r.Test.Len()
		}
		fetched, err := r.Trainer.Fetch(r.Test.Slice(start, end))
		if err != nil {
			return err
		}
		batch := fetched.(*swae.Batch)
		testLabels := batch.Labels
		batch.Labels = nil
		report, err := r.Trainer.TestOnBatch(batch)
		if err != nil {
			return errors.Wrapf(err, "evaluate epoch %d", epoch)
		}
		totalLoss += report.Total
		numBatches++

		codes := hostvec.Floats(report.Encoded)
		dim := len(codes) / batch.Num
		for i := 0; i < batch.Num; i++ {
			latents = append(latents, codes[i*dim:(i+1)*dim])
		}
		labels = append(labels, testLabels...)
	}
	if numBatches == 0 {
		return errors.New("evaluate: not enough test samples")
	}
	meanLoss := totalLoss / float64(numBatches)
	r.TestLosses = append(r.TestLosses, meanLoss)
	r.Log.WithFields(logrus.Fields{
		"epoch": epoch,
		"loss":  meanLoss,
	}).Info("test")

	latentDir := filepath.Join(r.OutDir, "latent")
	if err := os.MkdirAll(latentDir, 0755); err != nil {
		return err
	}
	path := filepath.Join(latentDir, fmt.Sprintf("epoch_%d_test_latent.csv", epoch))
	return writeLatents(path, latents, labels)
}

func (r *Run) saveCheckpoint(epoch int) error {
	epochDir := filepath.Join(r.OutDir, "checkpoint", fmt.Sprintf("epoch_%d", epoch))
	modelDir := filepath.Join(epochDir, "model")
	imageDir := filepath.Join(epochDir, "images")
	for _, dir := range []string{modelDir, imageDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	modelPath := filepath.Join(modelDir, fmt.Sprintf("%s_%s.swae", dataset,
		r.Trainer.Config.Method))
	if err := serializer.SaveAny(modelPath, r.Model); err != nil {
		return errors.Wrap(err, "save model")
	}

	if r.lastBatch != nil {
		prior := r.Trainer.Config.Prior.String()
		n := r.lastBatch.Num
		if err := savePNG(filepath.Join(imageDir, prior+"_train_samples.png"),
			r.lastBatch.Images.Output(), n); err != nil {
			return err
		}
		if err := savePNG(filepath.Join(imageDir, prior+"_train_recon.png"),
			r.lastReport.Decoded, n); err != nil {
			return err
		}
	}

	dim := r.Flags.EmbeddingSize
	points, err := r.Trainer.Config.Prior.Sample(r.Trainer.Rand, numGenerated, dim)
	if err != nil {
		return err
	}
	c := r.Trainer.Device.Creator
	latent := anydiff.NewConst(c.MakeVectorData(c.MakeNumericList(points)))
	generated := r.Model.Generate(latent, numGenerated).Output()
	return savePNG(filepath.Join(imageDir, "gen_image.png"), generated, numGenerated)
}

// SaveConvergence writes the test loss history.
func (r *Run) SaveConvergence() error {
	dir := filepath.Join(r.OutDir, "convergence")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(dir, "test_loss_convergence.csv"))
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	w.Write([]string{"evaluation", "test_loss"})
	for i, loss := range r.TestLosses {
		w.Write([]string{strconv.Itoa(i + 1), strconv.FormatFloat(loss, 'g', -1, 64)})
	}
	w.Flush()
	return w.Error()
}

func writeLatents(path string, latents [][]float64, labels []int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if len(latents) > 0 {
		header := make([]string, 0, len(latents[0])+1)
		for i := range latents[0] {
			header = append(header, "z"+strconv.Itoa(i))
		}
		w.Write(append(header, "label"))
	}
	for i, code := range latents {
		record := make([]string, 0, len(code)+1)
		for _, x := range code {
			record = append(record, strconv.FormatFloat(x, 'g', 8, 64))
		}
		w.Write(append(record, strconv.Itoa(labels[i])))
	}
	w.Flush()
	return w.Error()
}

func savePNG(path string, images anyvec.Vector, n int) error {
	cols := 10
	if n < cols {
		cols = n
	}
	grid := swaemodels.ImageGrid(images, n, swaemodels.MNISTSize, swaemodels.MNISTDepth, cols)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, grid)
}
