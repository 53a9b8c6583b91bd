package swaemodels

import (
	"reflect"
	"testing"

	swae "github.com/namhainguyen2803/chuyen-rang"
	"github.com/pkg/errors"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anydifftest"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anyconv"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/anyvec/anyvec64"
	"github.com/unixpickle/serializer"
)

func TestModelShapes(t *testing.T) {
	c := anyvec32.DefaultCreator{}
	const batch = 3
	for _, dataset := range []string{"mnist", "cifar10"} {
		model, err := New(c, dataset, 5)
		if err != nil {
			t.Fatal(err)
		}
		in := c.MakeVector(batch * ImageSize(dataset))
		anyvec.Rand(in, anyvec.Uniform, nil)

		latent := model.Encode(anydiff.NewConst(in), batch)
		if latent.Output().Len() != batch*5 {
			t.Errorf("%s: latent size should be %d but got %d", dataset, batch*5,
				latent.Output().Len())
		}
		out := model.Decode(latent, batch)
		if out.Output().Len() != in.Len() {
			t.Errorf("%s: output size should be %d but got %d", dataset, in.Len(),
				out.Output().Len())
		}
		for _, x := range out.Output().Data().([]float32) {
			if x < 0 || x > 1 {
				t.Errorf("%s: output %f out of range", dataset, x)
				break
			}
		}
		if len(model.Parameters()) == 0 {
			t.Errorf("%s: no parameters", dataset)
		}
	}
}

func TestMNISTLayers(t *testing.T) {
	model := NewMNIST(anyvec32.DefaultCreator{}, 3)
	for _, part := range []struct {
		name    string
		layer   anynet.Layer
		filters []int
		widths  []int
	}{
		{"encoder", model.Encoder, []int{16, 16, 32, 32, 64, 64},
			[]int{30, 30, 16, 16, 9, 9}},
		{"decoder", model.Decoder, []int{64, 64, 32, 32, 16, 16, 1},
			[]int{9, 9, 16, 16, 30, 30, 30}},
	} {
		var filters, widths []int
		for _, layer := range flattenNet(part.layer) {
			if conv, ok := layer.(*anyconv.Conv); ok {
				filters = append(filters, conv.FilterCount)
				widths = append(widths, conv.InputWidth)
			}
		}
		if !reflect.DeepEqual(filters, part.filters) {
			t.Errorf("%s: expected filters %v but got %v", part.name, part.filters, filters)
		}
		if !reflect.DeepEqual(widths, part.widths) {
			t.Errorf("%s: expected input widths %v but got %v", part.name, part.widths, widths)
		}
	}
}

func TestModelErrors(t *testing.T) {
	c := anyvec32.DefaultCreator{}
	if _, err := New(c, "svhn", 2); errors.Cause(err) != swae.ErrInvalidConfiguration {
		t.Errorf("unexpected error for unknown dataset: %v", err)
	}
	if _, err := New(c, "mnist", 0); errors.Cause(err) != swae.ErrInvalidConfiguration {
		t.Errorf("unexpected error for empty latent space: %v", err)
	}
	if ImageSize("svhn") != 0 {
		t.Error("unknown dataset should have no image size")
	}
}

func TestModelSerialize(t *testing.T) {
	c := anyvec32.DefaultCreator{}
	model := NewMNIST(c, 2)
	data, err := serializer.SerializeAny(model)
	if err != nil {
		t.Fatal(err)
	}
	var decoded *swae.Autoencoder
	if err := serializer.DeserializeAny(data, &decoded); err != nil {
		t.Fatal(err)
	}

	in := c.MakeVector(2 * ImageSize("mnist"))
	anyvec.Rand(in, anyvec.Uniform, nil)
	expected := model.Decode(model.Encode(anydiff.NewConst(in), 2), 2).Output()
	actual := decoded.Decode(decoded.Encode(anydiff.NewConst(in), 2), 2).Output()
	diff := actual.Copy()
	diff.Sub(expected)
	if anyvec.AbsMax(diff).(float32) > 1e-5 {
		t.Error("deserialized model produces different outputs")
	}
}

func TestLeakyReLU(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	in := c.MakeVectorData([]float64{-2, -0.5, 0, 0.5, 3})
	actual := (&LeakyReLU{}).Apply(anydiff.NewConst(in), 1).Output().Data().([]float64)
	expected := []float64{-0.4, -0.1, 0, 0.5, 3}
	for i, x := range expected {
		if actual[i] < x-1e-8 || actual[i] > x+1e-8 {
			t.Errorf("value %d: expected %f but got %f", i, x, actual[i])
		}
	}
}

func TestLeakyReLUProp(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	v := anydiff.NewVar(c.MakeVectorData([]float64{-2, -0.5, 0.25, 0.5, 3}))
	checker := &anydifftest.ResChecker{
		F: func() anydiff.Res {
			return (&LeakyReLU{Slope: 0.1}).Apply(v, 1)
		},
		V: []*anydiff.Var{v},
	}
	checker.FullCheck(t)
}

func TestLeakyReLUSerialize(t *testing.T) {
	l := &LeakyReLU{Slope: 0.3}
	data, err := serializer.SerializeAny(l)
	if err != nil {
		t.Fatal(err)
	}
	var l1 *LeakyReLU
	if err := serializer.DeserializeAny(data, &l1); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(l, l1) {
		t.Fatal("bad value")
	}
}

func TestImageGrid(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	batch := c.MakeVectorData([]float64{
		1, 1, 1, 1,
		0, 0, 0, 0,
		0.5, 0.5, 0.5, 2,
	})
	grid := ImageGrid(batch, 3, 2, 1, 2)
	if grid.Bounds().Dx() != 4 || grid.Bounds().Dy() != 4 {
		t.Fatalf("unexpected bounds %v", grid.Bounds())
	}
	checks := []struct {
		x, y  int
		value uint32
	}{
		{0, 0, 0xffff},
		{3, 1, 0},
		{0, 2, 0x8080},
		{1, 3, 0xffff},
		{3, 3, 0},
	}
	for _, check := range checks {
		r, g, b, _ := grid.At(check.x, check.y).RGBA()
		if r != check.value || g != check.value || b != check.value {
			t.Errorf("pixel (%d, %d): expected %#x but got %#x %#x %#x", check.x, check.y,
				check.value, r, g, b)
		}
	}
}

func flattenNet(l anynet.Layer) []anynet.Layer {
	net, ok := l.(anynet.Net)
	if !ok {
		return []anynet.Layer{l}
	}
	var res []anynet.Layer
	for _, sub := range net {
		res = append(res, flattenNet(sub)...)
	}
	return res
}
