package rnn

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/manningwu07/seq2seq/optimizations"
	"github.com/manningwu07/seq2seq/utils"
)

// simpleCell is h_t = tanh(W x_t + U h_{t-1} + b).
type simpleCell struct {
	cellBase
	h gate
}

func newSimpleCell(base cellBase, rng *rand.Rand) *simpleCell {
	return &simpleCell{cellBase: base, h: newGate("simple_rnn", base.in, base.units, 0, rng)}
}

func (c *simpleCell) Kind() CellKind { return SimpleRNN }

func (c *simpleCell) Forward(ws *utils.Workspace, xs []mat.Vector) *Trace {
	tr := newTrace(ws, xs, c.units, false)
	for t, x := range xs {
		h := ws.Vec(c.units)
		c.h.preact(ws, h, x, tr.H[t])
		utils.ApplyVec(h, h, utils.Tanh)
		tr.H[t+1] = h
	}
	return tr
}

func (c *simpleCell) Backward(ws *utils.Workspace, tr *Trace, dH []*mat.VecDense) []*mat.VecDense {
	dX := make([]*mat.VecDense, tr.Steps())
	carry := ws.Vec(c.units)
	for t := tr.Steps() - 1; t >= 0; t-- {
		da := stepGrad(ws, carry, dH, t)
		utils.TanhPrimeInPlace(da, tr.H[t+1])
		dX[t] = ws.Vec(c.in)
		prev := ws.Vec(c.units)
		c.h.backward(ws, da, tr.X[t], tr.H[t], dX[t], prev)
		carry = prev
	}
	return dX
}

func (c *simpleCell) Params() []*optimizations.Param { return c.h.params() }

func (c *simpleCell) CloneForGradsOnly() Recurrent {
	return &simpleCell{cellBase: c.cellBase, h: c.h.cloneForGrads()}
}
