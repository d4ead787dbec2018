package utils

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// GlorotUniform returns rows*cols samples from U(-l, l), l = sqrt(6/(fanIn+fanOut)).
// fanIn is cols, fanOut is rows, matching a (out x in) weight matrix.
func GlorotUniform(rng *rand.Rand, rows, cols int) []float64 {
	limit := math.Sqrt(6.0 / float64(rows+cols))
	out := make([]float64, rows*cols)
	for i := range out {
		out[i] = -limit + 2*limit*rng.Float64()
	}
	return out
}

// GlorotNormal returns rows*cols samples from N(0, 2/(fanIn+fanOut)).
func GlorotNormal(rng *rand.Rand, rows, cols int) []float64 {
	dist := distuv.Normal{
		Mu:    0,
		Sigma: math.Sqrt(2.0 / float64(rows+cols)),
		Src:   rng,
	}
	out := make([]float64, rows*cols)
	for i := range out {
		out[i] = dist.Rand()
	}
	return out
}

// ColVec views an (n x 1) matrix as a vector sharing its storage.
func ColVec(a *mat.Dense) *mat.VecDense {
	return a.ColView(0).(*mat.VecDense)
}

// MatrixNorm is the Frobenius norm.
func MatrixNorm(m *mat.Dense) float64 {
	return mat.Norm(m, 2)
}

// ClipGrads scales all grads so their combined norm <= maxNorm.
// Returns the scale actually applied (<=1.0) or 1.0 if no clip.
func ClipGrads(maxNorm float64, grads ...*mat.Dense) float64 {
	if maxNorm <= 0 {
		return 1.0
	}
	sum := 0.0
	for _, g := range grads {
		if g == nil {
			continue
		}
		n := MatrixNorm(g)
		sum += n * n
	}
	gn := math.Sqrt(sum)
	if gn <= maxNorm || gn == 0 {
		return 1.0
	}
	s := maxNorm / gn
	for _, g := range grads {
		if g != nil {
			g.Scale(s, g)
		}
	}
	return s
}
