package swae

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var a Autoencoder
	serializer.RegisterTypedDeserializer(a.SerializerType(), DeserializeAutoencoder)
}

// An Autoencoder pairs an encoder network with a decoder
// network.
type Autoencoder struct {
	Encoder anynet.Layer
	Decoder anynet.Layer
}

// DeserializeAutoencoder deserializes an Autoencoder.
func DeserializeAutoencoder(d []byte) (*Autoencoder, error) {
	var res Autoencoder
	if err := serializer.DeserializeAny(d, &res.Encoder, &res.Decoder); err != nil {
		return nil, essentials.AddCtx("deserialize Autoencoder", err)
	}
	return &res, nil
}

// Encode maps a batch of inputs to latent codes.
func (a *Autoencoder) Encode(in anydiff.Res, n int) anydiff.Res {
	return a.Encoder.Apply(in, n)
}

// Decode maps a batch of latent codes to reconstructions.
func (a *Autoencoder) Decode(in anydiff.Res, n int) anydiff.Res {
	return a.Decoder.Apply(in, n)
}

// Generate decodes latent codes, typically drawn from a
// prior, into new samples.
func (a *Autoencoder) Generate(latent anydiff.Res, n int) anydiff.Res {
	return a.Decode(latent, n)
}

// Parameters returns the encoder's parameters followed by
// the decoder's parameters.
func (a *Autoencoder) Parameters() []*anydiff.Var {
	var res []*anydiff.Var
	for _, l := range []anynet.Layer{a.Encoder, a.Decoder} {
		if p, ok := l.(anynet.Parameterizer); ok {
			res = append(res, p.Parameters()...)
		}
	}
	return res
}

// SerializerType returns the unique ID used to serialize
// an Autoencoder with the serializer package.
func (a *Autoencoder) SerializerType() string {
	return "github.com/namhainguyen2803/chuyen-rang.Autoencoder"
}

// Serialize serializes the Autoencoder.
// Both networks must be serializer.Serializers.
func (a *Autoencoder) Serialize() ([]byte, error) {
	enc, ok := a.Encoder.(serializer.Serializer)
	if !ok {
		return nil, fmt.Errorf("encoder not a Serializer: %T", a.Encoder)
	}
	dec, ok := a.Decoder.(serializer.Serializer)
	if !ok {
		return nil, fmt.Errorf("decoder not a Serializer: %T", a.Decoder)
	}
	return serializer.SerializeAny(enc, dec)
}
