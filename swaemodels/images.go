package swaemodels

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/namhainguyen2803/chuyen-rang/hostvec"
	"github.com/unixpickle/anynet/anyconv"
	"github.com/unixpickle/anyvec"
)

// ImageGrid tiles a packed batch of n square images into
// a single image with the given number of columns.
//
// Each image has size*size*depth values, where depth is 1
// for grayscale and 3 for RGB.
func ImageGrid(batch anyvec.Vector, n, size, depth, cols int) image.Image {
	if depth != 1 && depth != 3 {
		panic(fmt.Sprintf("unsupported image depth: %d", depth))
	}
	if batch.Len() != n*size*size*depth {
		panic("incorrect batch size")
	}
	rows := (n + cols - 1) / cols
	res := image.NewRGBA(image.Rect(0, 0, cols*size, rows*size))

	c := batch.Creator()
	data := hostvec.Floats(batch)
	imageLen := size * size * depth
	for i := 0; i < n; i++ {
		pixels := data[i*imageLen : (i+1)*imageLen]
		if depth == 1 {
			pixels = grayToRGB(pixels)
		}
		tensor := hostvec.Make(c, pixels)
		img := anyconv.TensorToImage(size, size, tensor)
		x, y := (i%cols)*size, (i/cols)*size
		draw.Draw(res, image.Rect(x, y, x+size, y+size), img, image.Point{}, draw.Src)
	}
	return res
}

func grayToRGB(gray []float64) []float64 {
	res := make([]float64, 0, len(gray)*3)
	for _, x := range gray {
		res = append(res, x, x, x)
	}
	return res
}
