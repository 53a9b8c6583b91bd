// Package hostvec copies anyvec vectors to and from
// float64 slices in host memory.
package hostvec

import (
	"fmt"

	"github.com/unixpickle/anyvec"
)

// Floats returns a vector's contents as float64 values.
//
// For float64 vectors, the result may alias the vector's
// own storage and should not be modified.
func Floats(v anyvec.Vector) []float64 {
	switch data := v.Data().(type) {
	case []float64:
		return data
	case []float32:
		res := make([]float64, len(data))
		for i, x := range data {
			res[i] = float64(x)
		}
		return res
	default:
		panic(fmt.Sprintf("unsupported numeric type: %T", data))
	}
}

// Make creates a vector from float64 values.
func Make(c anyvec.Creator, data []float64) anyvec.Vector {
	return c.MakeVectorData(c.MakeNumericList(data))
}

// Set overwrites a vector's contents.
func Set(v anyvec.Vector, data []float64) {
	v.Set(Make(v.Creator(), data))
}
