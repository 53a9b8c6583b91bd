package swaemodels

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

const leakyReLUDefaultSlope = 0.2

func init() {
	serializer.RegisterTypedDeserializer((&LeakyReLU{}).SerializerType(),
		DeserializeLeakyReLU)
}

// LeakyReLU implements the leaky rectified linear unit,
// max(x, Slope*x).
//
// If Slope is 0, a default of 0.2 is used.
type LeakyReLU struct {
	Slope float64
}

// DeserializeLeakyReLU deserializes a LeakyReLU instance.
func DeserializeLeakyReLU(d []byte) (*LeakyReLU, error) {
	var res LeakyReLU
	if err := serializer.DeserializeAny(d, &res.Slope); err != nil {
		return nil, essentials.AddCtx("deserialize LeakyReLU", err)
	}
	return &res, nil
}

// Apply applies the activation function.
func (l *LeakyReLU) Apply(in anydiff.Res, n int) anydiff.Res {
	slope := l.Slope
	if slope == 0 {
		slope = leakyReLUDefaultSlope
	}
	c := in.Output().Creator()
	return anydiff.Pool(in, func(in anydiff.Res) anydiff.Res {
		return anydiff.Add(
			anydiff.Scale(anydiff.ClipPos(in), c.MakeNumeric(1-slope)),
			anydiff.Scale(in, c.MakeNumeric(slope)),
		)
	})
}

// SerializerType returns the unique ID used to serialize
// a LeakyReLU with the serializer package.
func (l *LeakyReLU) SerializerType() string {
	return "github.com/namhainguyen2803/chuyen-rang/swaemodels.LeakyReLU"
}

// Serialize serializes the LeakyReLU.
func (l *LeakyReLU) Serialize() ([]byte, error) {
	return serializer.SerializeAny(l.Slope)
}
