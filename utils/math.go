package utils

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Vector helpers used by the recurrent cells.
// All of them write into dst and never allocate.

// ApplyVec sets dst[i] = fn(src[i]).
func ApplyVec(dst *mat.VecDense, src mat.Vector, fn func(float64) float64) {
	n := src.Len()
	if dst.Len() != n {
		panic(fmt.Sprintf("ApplyVec: length mismatch %d vs %d", dst.Len(), n))
	}
	for i := 0; i < n; i++ {
		dst.SetVec(i, fn(src.AtVec(i)))
	}
}

func Sigmoid(x float64) float64 { return 1.0 / (1.0 + math.Exp(-x)) }

func Tanh(x float64) float64 { return math.Tanh(x) }

// SigmoidPrimeInPlace turns an activated gate a into a*(1-a) times grad.
func SigmoidPrimeInPlace(grad *mat.VecDense, a mat.Vector) {
	for i := 0; i < grad.Len(); i++ {
		ai := a.AtVec(i)
		grad.SetVec(i, grad.AtVec(i)*ai*(1-ai))
	}
}

// TanhPrimeInPlace multiplies grad by 1-a^2 where a = tanh(x).
func TanhPrimeInPlace(grad *mat.VecDense, a mat.Vector) {
	for i := 0; i < grad.Len(); i++ {
		ai := a.AtVec(i)
		grad.SetVec(i, grad.AtVec(i)*(1-ai*ai))
	}
}

// ---------- Softmax ----------

// SoftmaxVec writes softmax(logits) into dst. Stable (subtracts the max).
func SoftmaxVec(dst *mat.VecDense, logits mat.Vector) {
	n := logits.Len()
	if dst.Len() != n {
		panic("SoftmaxVec: dst length mismatch")
	}
	mx := logits.AtVec(0)
	for i := 1; i < n; i++ {
		if v := logits.AtVec(i); v > mx {
			mx = v
		}
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		e := math.Exp(logits.AtVec(i) - mx)
		dst.SetVec(i, e)
		sum += e
	}
	dst.ScaleVec(1/sum, dst)
}

// ---------- Loss ----------

// CrossEntropyWithIndex returns -log(probs[gold]) and writes probs - onehot(gold)
// into grad, which is the gradient w.r.t. the softmax logits.
func CrossEntropyWithIndex(probs mat.Vector, gold int, grad *mat.VecDense) float64 {
	r := probs.Len()
	if gold < 0 || gold >= r {
		panic(fmt.Sprintf("CrossEntropyWithIndex: gold %d outside [0,%d)", gold, r))
	}
	loss := -math.Log(probs.AtVec(gold) + 1e-12)
	if grad != nil {
		grad.CopyVec(probs)
		grad.SetVec(gold, grad.AtVec(gold)-1.0)
	}
	return loss
}

// ArgmaxVec returns the index of the largest element, the lowest index on ties.
func ArgmaxVec(v mat.Vector) int {
	return floats.MaxIdx(VecData(v))
}

// ArgmaxRow is ArgmaxVec over row i of m.
func ArgmaxRow(m mat.Matrix, i int) int {
	return floats.MaxIdx(mat.Row(nil, i, m))
}

// VecData copies v into a fresh slice.
func VecData(v mat.Vector) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}

func IsFinite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }
