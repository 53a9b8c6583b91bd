package swaemodels

import (
	"fmt"

	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anyconv"
	"github.com/unixpickle/anyvec"
)

// netBuilder assembles an anynet.Net while tracking the
// dimensions of the row-major depth-minor tensor that
// flows through it.
type netBuilder struct {
	creator anyvec.Creator

	width  int
	height int
	depth  int

	net anynet.Net
}

func newNetBuilder(c anyvec.Creator, width, height, depth int) *netBuilder {
	return &netBuilder{creator: c, width: width, height: height, depth: depth}
}

// conv adds a square convolution, zero padding the input
// on every side first.
func (b *netBuilder) conv(filters, size, stride, padding int) {
	if padding > 0 {
		b.net = append(b.net, &anyconv.Padding{
			InputWidth:    b.width,
			InputHeight:   b.height,
			InputDepth:    b.depth,
			PaddingTop:    padding,
			PaddingRight:  padding,
			PaddingBottom: padding,
			PaddingLeft:   padding,
		})
		b.width += 2 * padding
		b.height += 2 * padding
	}
	layer := &anyconv.Conv{
		FilterCount:  filters,
		FilterWidth:  size,
		FilterHeight: size,
		StrideX:      stride,
		StrideY:      stride,
		InputWidth:   b.width,
		InputHeight:  b.height,
		InputDepth:   b.depth,
	}
	layer.InitRand(b.creator)
	b.net = append(b.net, layer)
	b.width = layer.OutputWidth()
	b.height = layer.OutputHeight()
	b.depth = layer.OutputDepth()
}

func (b *netBuilder) batchNorm() {
	b.net = append(b.net, anyconv.NewBatchNorm(b.creator, b.depth))
}

func (b *netBuilder) activation(l anynet.Layer) {
	b.net = append(b.net, l)
}

// upsample resizes the tensor with bilinear interpolation.
func (b *netBuilder) upsample(width, height int) {
	b.net = append(b.net, &anyconv.Resize{
		Depth:        b.depth,
		InputWidth:   b.width,
		InputHeight:  b.height,
		OutputWidth:  width,
		OutputHeight: height,
	})
	b.width = width
	b.height = height
}

// fc adds a fully-connected layer, flattening the tensor.
func (b *netBuilder) fc(out int) {
	b.net = append(b.net, anynet.NewFC(b.creator, b.size(), out))
	b.width, b.height, b.depth = 1, 1, out
}

// reshape reinterprets the flat tensor with new
// dimensions of the same volume.
func (b *netBuilder) reshape(width, height, depth int) {
	if width*height*depth != b.size() {
		panic(fmt.Sprintf("cannot reshape %d values to %dx%dx%d", b.size(),
			width, height, depth))
	}
	b.width, b.height, b.depth = width, height, depth
}

func (b *netBuilder) size() int {
	return b.width * b.height * b.depth
}
