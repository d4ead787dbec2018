package rnn

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/manningwu07/seq2seq/optimizations"
	"github.com/manningwu07/seq2seq/utils"
)

// lstmCell:
//
//	i, f, o = sigmoid(W x + U h + b)
//	g = tanh(Wg x + Ug h + bg)
//	c' = f*c + i*g
//	h' = o*tanh(c')
//
// The forget bias starts at 1.
type lstmCell struct {
	cellBase
	i, f, g, o gate
}

const (
	lstmI = iota
	lstmF
	lstmG
	lstmO
	lstmTanhC
)

func newLSTMCell(base cellBase, rng *rand.Rand) *lstmCell {
	return &lstmCell{
		cellBase: base,
		i:        newGate("lstm/input", base.in, base.units, 0, rng),
		f:        newGate("lstm/forget", base.in, base.units, 1, rng),
		g:        newGate("lstm/cell", base.in, base.units, 0, rng),
		o:        newGate("lstm/output", base.in, base.units, 0, rng),
	}
}

func (c *lstmCell) Kind() CellKind { return LSTM }

func (c *lstmCell) Forward(ws *utils.Workspace, xs []mat.Vector) *Trace {
	n := c.units
	tr := newTrace(ws, xs, n, true)
	for t, x := range xs {
		prev := tr.H[t]
		ig, fg, gg, og := ws.Vec(n), ws.Vec(n), ws.Vec(n), ws.Vec(n)
		c.i.preact(ws, ig, x, prev)
		utils.ApplyVec(ig, ig, utils.Sigmoid)
		c.f.preact(ws, fg, x, prev)
		utils.ApplyVec(fg, fg, utils.Sigmoid)
		c.g.preact(ws, gg, x, prev)
		utils.ApplyVec(gg, gg, utils.Tanh)
		c.o.preact(ws, og, x, prev)
		utils.ApplyVec(og, og, utils.Sigmoid)

		cell, tc, h := ws.Vec(n), ws.Vec(n), ws.Vec(n)
		cprev := tr.C[t]
		for k := 0; k < n; k++ {
			ck := fg.AtVec(k)*cprev.AtVec(k) + ig.AtVec(k)*gg.AtVec(k)
			cell.SetVec(k, ck)
			tk := utils.Tanh(ck)
			tc.SetVec(k, tk)
			h.SetVec(k, og.AtVec(k)*tk)
		}
		tr.C[t+1] = cell
		tr.H[t+1] = h
		tr.Gates[t] = []*mat.VecDense{lstmI: ig, lstmF: fg, lstmG: gg, lstmO: og, lstmTanhC: tc}
	}
	return tr
}

func (c *lstmCell) Backward(ws *utils.Workspace, tr *Trace, dH []*mat.VecDense) []*mat.VecDense {
	n := c.units
	dX := make([]*mat.VecDense, tr.Steps())
	carryH, carryC := ws.Vec(n), ws.Vec(n)
	for t := tr.Steps() - 1; t >= 0; t-- {
		x, prev, cprev := tr.X[t], tr.H[t], tr.C[t]
		gs := tr.Gates[t]
		ig, fg, gg, og, tc := gs[lstmI], gs[lstmF], gs[lstmG], gs[lstmO], gs[lstmTanhC]

		dh := stepGrad(ws, carryH, dH, t)
		di, df, dg, do, dcPrev := ws.Vec(n), ws.Vec(n), ws.Vec(n), ws.Vec(n), ws.Vec(n)
		for k := 0; k < n; k++ {
			d, tk := dh.AtVec(k), tc.AtVec(k)
			do.SetVec(k, d*tk)
			dc := carryC.AtVec(k) + d*og.AtVec(k)*(1-tk*tk)
			df.SetVec(k, dc*cprev.AtVec(k))
			di.SetVec(k, dc*gg.AtVec(k))
			dg.SetVec(k, dc*ig.AtVec(k))
			dcPrev.SetVec(k, dc*fg.AtVec(k))
		}
		utils.SigmoidPrimeInPlace(di, ig)
		utils.SigmoidPrimeInPlace(df, fg)
		utils.TanhPrimeInPlace(dg, gg)
		utils.SigmoidPrimeInPlace(do, og)

		dX[t] = ws.Vec(c.in)
		dprev := ws.Vec(n)
		c.i.backward(ws, di, x, prev, dX[t], dprev)
		c.f.backward(ws, df, x, prev, dX[t], dprev)
		c.g.backward(ws, dg, x, prev, dX[t], dprev)
		c.o.backward(ws, do, x, prev, dX[t], dprev)
		carryH, carryC = dprev, dcPrev
	}
	return dX
}

func (c *lstmCell) Params() []*optimizations.Param {
	var out []*optimizations.Param
	for _, g := range []gate{c.i, c.f, c.g, c.o} {
		out = append(out, g.params()...)
	}
	return out
}

func (c *lstmCell) CloneForGradsOnly() Recurrent {
	return &lstmCell{
		cellBase: c.cellBase,
		i:        c.i.cloneForGrads(),
		f:        c.f.cloneForGrads(),
		g:        c.g.cloneForGrads(),
		o:        c.o.cloneForGrads(),
	}
}
