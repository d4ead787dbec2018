package optimizations

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Param is one trainable matrix with its gradient accumulator and Adam moments.
// Bias vectors are stored as (n x 1) matrices.
type Param struct {
	Name  string
	Value *mat.Dense
	Grad  *mat.Dense
	M, V  *mat.Dense
}

func NewParam(name string, value *mat.Dense) *Param {
	r, c := value.Dims()
	return &Param{
		Name:  name,
		Value: value,
		Grad:  mat.NewDense(r, c, nil),
		M:     mat.NewDense(r, c, nil),
		V:     mat.NewDense(r, c, nil),
	}
}

// SharedGradsOnly returns a Param whose Value is shared read-only with p but
// whose gradient accumulator is private. It carries no optimizer state.
func (p *Param) SharedGradsOnly() *Param {
	r, c := p.Value.Dims()
	return &Param{Name: p.Name, Value: p.Value, Grad: mat.NewDense(r, c, nil)}
}

func ZeroGrads(ps []*Param) {
	for _, p := range ps {
		p.Grad.Zero()
	}
}

func Grads(ps []*Param) []*mat.Dense {
	out := make([]*mat.Dense, len(ps))
	for i, p := range ps {
		out[i] = p.Grad
	}
	return out
}

// Adam keeps the step counter and hyperparameters; moments live on each Param.
type Adam struct {
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Eps          float64
	WeightDecay  float64 // AdamW-style, 0 disables
	T            int
}

// NewAdam uses the usual defaults: lr 0.001, betas 0.9/0.999, eps 1e-7.
func NewAdam() *Adam {
	return &Adam{LearningRate: 0.001, Beta1: 0.9, Beta2: 0.999, Eps: 1e-7}
}

// Step applies one update to every param using its current Grad.
func (a *Adam) Step(ps []*Param) {
	a.T++
	for _, p := range ps {
		AdamUpdateInPlace(p.Value, p.Grad, p.M, p.V, a.T,
			a.LearningRate, a.Beta1, a.Beta2, a.Eps, a.WeightDecay)
	}
}

// p -= lr * (mhat/(sqrt(vhat)+eps) + wd * p) with bias correction (AdamW).
func AdamUpdateInPlace(
	p, g, m, v *mat.Dense,
	t int,
	lr, beta1, beta2, eps, weightDecay float64,
) {
	pr, pc := p.Dims()
	if gr, gc := g.Dims(); gr != pr || gc != pc {
		panic("adamUpdateInPlace: grad shape mismatch")
	}
	if mr, mc := m.Dims(); mr != pr || mc != pc {
		panic("adamUpdateInPlace: m shape mismatch")
	}
	if vr, vc := v.Dims(); vr != pr || vc != pc {
		panic("adamUpdateInPlace: v shape mismatch")
	}
	b1t := math.Pow(beta1, float64(t))
	b2t := math.Pow(beta2, float64(t))
	c1 := 1.0 / (1.0 - b1t)
	c2 := 1.0 / (1.0 - b2t)
	for i := 0; i < pr; i++ {
		for j := 0; j < pc; j++ {
			gij := g.At(i, j)
			mij := beta1*m.At(i, j) + (1.0-beta1)*gij
			vij := beta2*v.At(i, j) + (1.0-beta2)*gij*gij
			mhat := mij * c1
			vhat := vij * c2
			denom := math.Sqrt(vhat) + eps
			update := mhat/denom + weightDecay*p.At(i, j)
			m.Set(i, j, mij)
			v.Set(i, j, vij)
			p.Set(i, j, p.At(i, j)-lr*update)
		}
	}
}
