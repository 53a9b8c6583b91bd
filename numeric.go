package swae

import (
	"github.com/namhainguyen2803/chuyen-rang/hostvec"
	"github.com/unixpickle/anyvec"
)

// firstFloat reads the only component of a scalar vector.
func firstFloat(v anyvec.Vector) float64 {
	return hostvec.Floats(v)[0]
}

func signs(data []float64) []float64 {
	res := make([]float64, len(data))
	for i, x := range data {
		if x > 0 {
			res[i] = 1
		} else if x < 0 {
			res[i] = -1
		}
	}
	return res
}
