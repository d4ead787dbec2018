package rnn

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/manningwu07/seq2seq/optimizations"
	"github.com/manningwu07/seq2seq/utils"
)

// gruCell applies the reset gate before the candidate's recurrent kernel:
//
//	z = sigmoid(Wz x + Uz h + bz)
//	r = sigmoid(Wr x + Ur h + br)
//	g = tanh(Wh x + Uh (r*h) + bh)
//	h' = z*h + (1-z)*g
type gruCell struct {
	cellBase
	z, r, h gate
}

// Gate slots recorded per step.
const (
	gruZ = iota
	gruR
	gruG
	gruRH
)

func newGRUCell(base cellBase, rng *rand.Rand) *gruCell {
	return &gruCell{
		cellBase: base,
		z:        newGate("gru/update", base.in, base.units, 0, rng),
		r:        newGate("gru/reset", base.in, base.units, 0, rng),
		h:        newGate("gru/candidate", base.in, base.units, 0, rng),
	}
}

func (c *gruCell) Kind() CellKind { return GRU }

func (c *gruCell) Forward(ws *utils.Workspace, xs []mat.Vector) *Trace {
	n := c.units
	tr := newTrace(ws, xs, n, false)
	for t, x := range xs {
		prev := tr.H[t]
		z, r, g, rh := ws.Vec(n), ws.Vec(n), ws.Vec(n), ws.Vec(n)

		c.z.preact(ws, z, x, prev)
		utils.ApplyVec(z, z, utils.Sigmoid)
		c.r.preact(ws, r, x, prev)
		utils.ApplyVec(r, r, utils.Sigmoid)
		rh.MulElemVec(r, prev)
		c.h.preact(ws, g, x, rh)
		utils.ApplyVec(g, g, utils.Tanh)

		h := ws.Vec(n)
		for i := 0; i < n; i++ {
			zi := z.AtVec(i)
			h.SetVec(i, zi*prev.AtVec(i)+(1-zi)*g.AtVec(i))
		}
		tr.H[t+1] = h
		tr.Gates[t] = []*mat.VecDense{gruZ: z, gruR: r, gruG: g, gruRH: rh}
	}
	return tr
}

func (c *gruCell) Backward(ws *utils.Workspace, tr *Trace, dH []*mat.VecDense) []*mat.VecDense {
	n := c.units
	dX := make([]*mat.VecDense, tr.Steps())
	carry := ws.Vec(n)
	for t := tr.Steps() - 1; t >= 0; t-- {
		x, prev := tr.X[t], tr.H[t]
		gs := tr.Gates[t]
		z, r, g, rh := gs[gruZ], gs[gruR], gs[gruG], gs[gruRH]

		dh := stepGrad(ws, carry, dH, t)
		dz, dg, dprev := ws.Vec(n), ws.Vec(n), ws.Vec(n)
		for i := 0; i < n; i++ {
			d, zi := dh.AtVec(i), z.AtVec(i)
			dz.SetVec(i, d*(prev.AtVec(i)-g.AtVec(i)))
			dg.SetVec(i, d*(1-zi))
			dprev.SetVec(i, d*zi)
		}
		dX[t] = ws.Vec(c.in)

		utils.TanhPrimeInPlace(dg, g)
		drh := ws.Vec(n)
		c.h.backward(ws, dg, x, rh, dX[t], drh)

		dr := ws.Vec(n)
		for i := 0; i < n; i++ {
			d := drh.AtVec(i)
			dr.SetVec(i, d*prev.AtVec(i))
			dprev.SetVec(i, dprev.AtVec(i)+d*r.AtVec(i))
		}

		utils.SigmoidPrimeInPlace(dz, z)
		utils.SigmoidPrimeInPlace(dr, r)
		c.z.backward(ws, dz, x, prev, dX[t], dprev)
		c.r.backward(ws, dr, x, prev, dX[t], dprev)
		carry = dprev
	}
	return dX
}

func (c *gruCell) Params() []*optimizations.Param {
	out := c.z.params()
	out = append(out, c.r.params()...)
	return append(out, c.h.params()...)
}

func (c *gruCell) CloneForGradsOnly() Recurrent {
	return &gruCell{
		cellBase: c.cellBase,
		z:        c.z.cloneForGrads(),
		r:        c.r.cloneForGrads(),
		h:        c.h.cloneForGrads(),
	}
}
