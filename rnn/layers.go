package rnn

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/manningwu07/seq2seq/optimizations"
	"github.com/manningwu07/seq2seq/utils"
)

// RepeatVector feeds the encoder's final state to every decoder step.
type RepeatVector struct {
	N int
}

func (r RepeatVector) Forward(v mat.Vector) []mat.Vector {
	out := make([]mat.Vector, r.N)
	for i := range out {
		out[i] = v
	}
	return out
}

// Backward sums the per-step grads into one.
func (r RepeatVector) Backward(ws *utils.Workspace, dxs []*mat.VecDense) *mat.VecDense {
	sum := ws.Vec(dxs[0].Len())
	for _, d := range dxs {
		sum.AddVec(sum, d)
	}
	return sum
}

// TimeDistributedDense applies the same softmax projection at every step:
// p_t = softmax(W h_t + b), W is (vocab x hidden).
type TimeDistributedDense struct {
	W, B *optimizations.Param
}

func NewTimeDistributedDense(hidden, vocab int, rng *rand.Rand) *TimeDistributedDense {
	return &TimeDistributedDense{
		W: optimizations.NewParam("dense/kernel", mat.NewDense(vocab, hidden, utils.GlorotUniform(rng, vocab, hidden))),
		B: optimizations.NewParam("dense/bias", mat.NewDense(vocab, 1, nil)),
	}
}

func (d *TimeDistributedDense) Units() int {
	r, _ := d.W.Value.Dims()
	return r
}

// Forward returns one probability vector per step.
func (d *TimeDistributedDense) Forward(ws *utils.Workspace, hs []*mat.VecDense) []*mat.VecDense {
	v := d.Units()
	out := make([]*mat.VecDense, len(hs))
	for t, h := range hs {
		logits := ws.Vec(v)
		logits.MulVec(d.W.Value, h)
		logits.AddVec(logits, utils.ColVec(d.B.Value))
		p := ws.Vec(v)
		utils.SoftmaxVec(p, logits)
		out[t] = p
	}
	return out
}

// Backward takes dL/dlogits per step and returns dL/dh per step.
func (d *TimeDistributedDense) Backward(ws *utils.Workspace, hs, dLogits []*mat.VecDense) []*mat.VecDense {
	_, hidden := d.W.Value.Dims()
	db := utils.ColVec(d.B.Grad)
	dH := make([]*mat.VecDense, len(hs))
	for t, dl := range dLogits {
		d.W.Grad.RankOne(d.W.Grad, 1, dl, hs[t])
		db.AddVec(db, dl)
		dH[t] = ws.Vec(hidden)
		dH[t].MulVec(d.W.Value.T(), dl)
	}
	return dH
}

func (d *TimeDistributedDense) Params() []*optimizations.Param {
	return []*optimizations.Param{d.W, d.B}
}

func (d *TimeDistributedDense) CloneForGradsOnly() *TimeDistributedDense {
	return &TimeDistributedDense{W: d.W.SharedGradsOnly(), B: d.B.SharedGradsOnly()}
}
