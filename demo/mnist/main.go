package main

import (
	"context"
	"flag"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	swae "github.com/namhainguyen2803/chuyen-rang"
	"github.com/namhainguyen2803/chuyen-rang/swaemodels"
	"github.com/namhainguyen2803/chuyen-rang/swaeopt"
	"github.com/sirupsen/logrus"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/mnist"
)

const dataset = "mnist"

func main() {
	var flags Flags
	flags.Add()
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	level, err := logrus.ParseLevel(flags.LogLevel)
	if err != nil {
		essentials.Die(err)
	}
	log.SetLevel(level)

	config, err := flags.Config()
	if err != nil {
		essentials.Die(err)
	}

	creator := anyvec32.CurrentCreator()
	device := swae.NewCPUDevice(creator)
	if flags.Workers != 0 {
		device.Workers = flags.Workers
	}

	runID := uuid.New()
	outDir := flags.OutputDir(config.Method, runID)
	entry := log.WithFields(logrus.Fields{
		"run":    runID.String(),
		"method": config.Method.String(),
		"device": device.String(),
	})
	entry.WithFields(logrus.Fields{
		"batch":     flags.BatchSize,
		"epochs":    flags.Epochs,
		"optimizer": flags.Optimizer,
		"lr":        flags.LearningRate,
		"prior":     config.Prior.String(),
		"seed":      flags.Seed,
		"outdir":    outDir,
	}).Info("setting up")

	model := swaemodels.NewMNIST(creator, flags.EmbeddingSize)
	opt, err := swaeopt.New(flags.Optimizer, model.Parameters(), flags.LearningRate,
		swaeopt.Settings{
			Beta1: flags.Beta1,
			Beta2: flags.Beta2,
			Alpha: flags.Alpha,
		})
	if err != nil {
		essentials.Die(err)
	}

	r := rand.New(rand.NewPCG(flags.Seed, flags.Seed))
	trainer := &swae.Trainer{
		Device:    device,
		Model:     model,
		Optimizer: opt,
		Config:    config,
		Rand:      r,
		Log:       entry,
		MaxGos:    flags.Workers,
	}

	entry.Info("loading data...")
	train := loadSamples(creator, mnist.LoadTrainingDataSet())
	test := loadSamples(creator, mnist.LoadTestingDataSet())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	entry.Info("press ctrl+c once to stop...")

	run := &Run{
		Flags:   &flags,
		Trainer: trainer,
		Model:   model,
		Train:   train,
		Test:    test,
		OutDir:  outDir,
		Log:     entry,
	}
	if err := run.Loop(ctx); err != nil {
		entry.WithError(err).Fatal("training failed")
	}
	if err := run.SaveConvergence(); err != nil {
		entry.WithError(err).Fatal("saving convergence failed")
	}
	entry.Info("done")
}

// Flags stores the command-line options.
type Flags struct {
	OutDir string

	BatchSize     int
	TestBatchSize int
	Epochs        int

	LearningRate float64
	Optimizer    string
	Alpha        float64
	Beta1        float64
	Beta2        float64

	WeightSWD      float64
	WeightFSW      float64
	NumClasses     int
	Method         string
	LambdaOBSW     float64
	NumProjections int
	Order          int
	EmbeddingSize  int
	Distribution   string
	Loss           string

	Seed         uint64
	Workers      int
	LogInterval  int
	SaveInterval int
	LogLevel     string
}

// Add registers the flags with the flag package.
func (f *Flags) Add() {
	flag.StringVar(&f.OutDir, "outdir", "output", "directory for checkpoints and latents")
	flag.IntVar(&f.BatchSize, "batch-size", 500, "training batch size")
	flag.IntVar(&f.TestBatchSize, "batch-size-test", 500, "evaluation batch size")
	flag.IntVar(&f.Epochs, "epochs", 200, "number of epochs")
	flag.Float64Var(&f.LearningRate, "lr", 0.001, "learning rate")
	flag.StringVar(&f.Optimizer, "optimizer", "adam",
		"optimizer (sgd, momentum, rmsprop, adam, adamax, adamW)")
	flag.Float64Var(&f.Alpha, "alpha", 0.9, "RMSProp decay rate")
	flag.Float64Var(&f.Beta1, "beta1", 0.5, "Adam first moment decay")
	flag.Float64Var(&f.Beta2, "beta2", 0.999, "Adam second moment decay")
	flag.Float64Var(&f.WeightSWD, "weight-swd", 1, "weight of the sliced distance")
	flag.Float64Var(&f.WeightFSW, "weight-fsw", 1, "weight of the fairness penalty")
	flag.IntVar(&f.NumClasses, "num-classes", 10, "number of label classes")
	flag.StringVar(&f.Method, "method", "BSW",
		"projection method (BSW, FBSW, EFBSW, lowerboundFBSW, OBSW)")
	flag.Float64Var(&f.LambdaOBSW, "lambda-obsw", 1, "temperature of the OBSW method")
	flag.IntVar(&f.NumProjections, "num-projections", 10000, "directions per batch")
	flag.IntVar(&f.Order, "order", 2, "exponent of the transport cost")
	flag.IntVar(&f.EmbeddingSize, "embedding-size", 2, "latent dimensionality")
	flag.StringVar(&f.Distribution, "distribution", "circle",
		"latent prior (circle, ring, uniform, gaussian)")
	flag.StringVar(&f.Loss, "loss", "mse", "reconstruction loss (mse, l1, mse+l1)")
	flag.Uint64Var(&f.Seed, "seed", 42, "random seed")
	flag.IntVar(&f.Workers, "num-workers", 0, "worker goroutines (0 for all cores)")
	flag.IntVar(&f.LogInterval, "log-interval", 10, "batches between status logs")
	flag.IntVar(&f.SaveInterval, "saved-model-interval", 100, "epochs between checkpoints")
	flag.StringVar(&f.LogLevel, "log-level", "info", "logrus level")
}

// Config builds the trainer configuration.
func (f *Flags) Config() (swae.Config, error) {
	method, err := swae.ParseMethod(f.Method, f.LambdaOBSW)
	if err != nil {
		return swae.Config{}, err
	}
	prior, err := swae.ParsePriorKind(f.Distribution)
	if err != nil {
		return swae.Config{}, err
	}
	loss, err := swae.ParseReconstructionLoss(f.Loss)
	if err != nil {
		return swae.Config{}, err
	}
	config := swae.DefaultConfig()
	config.NumProjections = f.NumProjections
	config.Method = method
	config.WeightSWD = f.WeightSWD
	config.WeightFSW = f.WeightFSW
	config.NumClasses = f.NumClasses
	config.Prior = prior
	config.Order = f.Order
	config.Reconstruction = loss
	return config, config.Validate()
}

// OutputDir returns the directory for a run's artifacts.
func (f *Flags) OutputDir(m swae.Method, run uuid.UUID) string {
	return filepath.Join(
		f.OutDir,
		dataset,
		"seed_"+strconv.FormatUint(f.Seed, 10),
		"lr_"+formatFloat(f.LearningRate),
		"fsw_"+formatFloat(f.WeightFSW),
		m.String(),
		run.String(),
	)
}

func formatFloat(x float64) string {
	s := strconv.FormatFloat(x, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func loadSamples(c anyvec.Creator, d mnist.DataSet) swae.SliceSampleList {
	res := make(swae.SliceSampleList, len(d.Samples))
	for i, s := range d.Samples {
		res[i] = &swae.Sample{
			Image: c.MakeVectorData(c.MakeNumericList(s.Intensities)),
			Label: s.Label,
		}
	}
	return res
}
