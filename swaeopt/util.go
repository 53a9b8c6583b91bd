package swaeopt

import "github.com/unixpickle/anydiff"

func scaleGrad(g anydiff.Grad, s float64) {
	for _, v := range g {
		g.Scale(v.Creator().MakeNumeric(s))
		return
	}
}

func zeroGrad(g anydiff.Grad) anydiff.Grad {
	res := anydiff.Grad{}
	for variable, vec := range g {
		res[variable] = vec.Creator().MakeVector(vec.Len())
	}
	return res
}

func valueOrDefault(value, def float64) float64 {
	if value == 0 {
		return def
	}
	return value
}
