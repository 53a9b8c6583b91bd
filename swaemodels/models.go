// Package swaemodels provides convolutional autoencoders
// for the datasets used to train sliced Wasserstein
// autoencoders.
//
// Images are row-major depth-minor tensors with values in
// [0, 1], and every decoder ends with a sigmoid.
package swaemodels

import (
	"fmt"

	swae "github.com/namhainguyen2803/chuyen-rang"
	"github.com/pkg/errors"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anyconv"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// Image dimensions for the supported datasets.
const (
	MNISTSize  = 28
	MNISTDepth = 1

	CIFAR10Size  = 32
	CIFAR10Depth = 3
)

// New creates an autoencoder for a named dataset.
//
// Supported names are "mnist" and "cifar10".
func New(c anyvec.Creator, dataset string, latentDim int) (*swae.Autoencoder, error) {
	if latentDim <= 0 {
		return nil, errors.Wrapf(swae.ErrInvalidConfiguration,
			"create %s model: latent dimension must be positive, got %d", dataset, latentDim)
	}
	switch dataset {
	case "mnist":
		return NewMNIST(c, latentDim), nil
	case "cifar10":
		return NewCIFAR10(c, latentDim), nil
	default:
		return nil, errors.Wrapf(swae.ErrInvalidConfiguration, "unknown dataset %q", dataset)
	}
}

// ImageSize returns the number of values in one image of
// a named dataset, or 0 for unknown datasets.
func ImageSize(dataset string) int {
	switch dataset {
	case "mnist":
		return MNISTSize * MNISTSize * MNISTDepth
	case "cifar10":
		return CIFAR10Size * CIFAR10Size * CIFAR10Depth
	default:
		return 0
	}
}

// NewMNIST creates an autoencoder for 28x28 grayscale
// images.
//
// The encoder applies two stages of two 3x3 convolutions
// followed by 2x2 mean pooling, a third convolution stage
// at 7x7, and two fully-connected layers.
// The decoder mirrors it with bilinear upsampling.
func NewMNIST(c anyvec.Creator, latentDim int) *swae.Autoencoder {
	encoder := realizeMarkup(c, fmt.Sprintf(mnistEncoderMarkup, latentDim))
	decoder := anynet.Net{
		realizeMarkup(c, fmt.Sprintf(mnistDecoderHeadMarkup, latentDim)),
		realizeMarkup(c, mnistDecoderBodyMarkup),
	}
	return &swae.Autoencoder{Encoder: encoder, Decoder: decoder}
}

const mnistEncoderMarkup = `
Input(w=28, h=28, d=1)

Padding(l=1, r=1, t=1, b=1)
Conv(w=3, h=3, n=16)
ReLU
Padding(l=1, r=1, t=1, b=1)
Conv(w=3, h=3, n=16)
ReLU
MeanPool(w=2, h=2)

Padding(l=1, r=1, t=1, b=1)
Conv(w=3, h=3, n=32)
ReLU
Padding(l=1, r=1, t=1, b=1)
Conv(w=3, h=3, n=32)
ReLU
MeanPool(w=2, h=2)

Padding(l=1, r=1, t=1, b=1)
Conv(w=3, h=3, n=64)
ReLU
Padding(l=1, r=1, t=1, b=1)
Conv(w=3, h=3, n=64)
ReLU

FC(out=128)
ReLU
FC(out=%d)
`

// The head's 3136 outputs are read by the body as a 7x7x64
// tensor.
const mnistDecoderHeadMarkup = `
Input(w=1, h=1, d=%d)

FC(out=128)
ReLU
FC(out=3136)
ReLU
`

const mnistDecoderBodyMarkup = `
Input(w=7, h=7, d=64)

Padding(l=1, r=1, t=1, b=1)
Conv(w=3, h=3, n=64)
ReLU
Padding(l=1, r=1, t=1, b=1)
Conv(w=3, h=3, n=64)
ReLU

Resize(w=14, h=14)
Padding(l=1, r=1, t=1, b=1)
Conv(w=3, h=3, n=32)
ReLU
Padding(l=1, r=1, t=1, b=1)
Conv(w=3, h=3, n=32)
ReLU

Resize(w=28, h=28)
Padding(l=1, r=1, t=1, b=1)
Conv(w=3, h=3, n=16)
ReLU
Padding(l=1, r=1, t=1, b=1)
Conv(w=3, h=3, n=16)
ReLU

Padding(l=1, r=1, t=1, b=1)
Conv(w=3, h=3, n=1)
Sigmoid
`

// realizeMarkup builds a network from a constant markup
// description, panicking if it is malformed.
func realizeMarkup(c anyvec.Creator, code string) anynet.Layer {
	layer, err := anyconv.FromMarkup(c, code)
	if err != nil {
		panic(essentials.AddCtx("realize markup", err))
	}
	return layer
}

// NewCIFAR10 creates an autoencoder for 32x32 color
// images.
//
// The encoder halves the resolution four times with
// strided 4x4 convolutions, batch normalization, and
// leaky ReLUs, then maps the 2x2 result to the latent
// space with a final convolution.
// The decoder expands the latent code to a 4x4 tensor and
// doubles its resolution three times.
func NewCIFAR10(c anyvec.Creator, latentDim int) *swae.Autoencoder {
	const initFilters = 12

	enc := newNetBuilder(c, CIFAR10Size, CIFAR10Size, CIFAR10Depth)
	enc.conv(initFilters, 4, 2, 1)
	enc.activation(&LeakyReLU{})
	for _, filters := range []int{initFilters * 2, initFilters * 4, initFilters * 8} {
		enc.conv(filters, 4, 2, 1)
		enc.batchNorm()
		enc.activation(&LeakyReLU{})
	}
	enc.conv(latentDim, 2, 1, 0)

	dec := newNetBuilder(c, 1, 1, latentDim)
	dec.fc(4 * 4 * initFilters * 4)
	dec.reshape(4, 4, initFilters*4)
	dec.batchNorm()
	dec.activation(anynet.ReLU)
	for _, filters := range []int{initFilters * 2, initFilters} {
		dec.upsample(dec.width*2, dec.height*2)
		dec.conv(filters, 3, 1, 1)
		dec.batchNorm()
		dec.activation(anynet.ReLU)
	}
	dec.upsample(CIFAR10Size, CIFAR10Size)
	dec.conv(CIFAR10Depth, 3, 1, 1)
	dec.activation(anynet.Sigmoid)

	return &swae.Autoencoder{Encoder: enc.net, Decoder: dec.net}
}
