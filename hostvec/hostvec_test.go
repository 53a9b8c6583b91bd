package hostvec

import (
	"reflect"
	"testing"

	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/anyvec/anyvec64"
)

func TestFloats(t *testing.T) {
	v32 := anyvec32.MakeVectorData([]float32{1, -0.5, 3})
	if actual := Floats(v32); !reflect.DeepEqual(actual, []float64{1, -0.5, 3}) {
		t.Errorf("unexpected float32 conversion %v", actual)
	}
	v64 := anyvec64.DefaultCreator{}.MakeVectorData([]float64{2, 4})
	if actual := Floats(v64); !reflect.DeepEqual(actual, []float64{2, 4}) {
		t.Errorf("unexpected float64 conversion %v", actual)
	}
}

func TestMakeSet(t *testing.T) {
	c := anyvec32.DefaultCreator{}
	v := Make(c, []float64{1, 2, 3})
	if v.Creator() != c || !reflect.DeepEqual(v.Data(), []float32{1, 2, 3}) {
		t.Fatalf("unexpected vector %v", v.Data())
	}
	Set(v, []float64{-1, 0, 0.25})
	if !reflect.DeepEqual(v.Data(), []float32{-1, 0, 0.25}) {
		t.Errorf("unexpected contents after set: %v", v.Data())
	}
}
