package rnn

import (
	"math/rand/v2"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/manningwu07/seq2seq/optimizations"
	"github.com/manningwu07/seq2seq/params"
	"github.com/manningwu07/seq2seq/utils"
)

// CellKind is the closed set of recurrent cells the builder knows about.
type CellKind int

const (
	SimpleRNN CellKind = iota + 1
	GRU
	LSTM
)

func (k CellKind) String() string {
	switch k {
	case SimpleRNN:
		return "SimpleRNN"
	case GRU:
		return "GRU"
	case LSTM:
		return "LSTM"
	}
	return "CellKind(" + strconv.Itoa(int(k)) + ")"
}

func (k CellKind) Valid() bool { return k >= SimpleRNN && k <= LSTM }

// ParseCellKind accepts SimpleRNN, GRU or LSTM, case-insensitively.
func ParseCellKind(s string) (CellKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "simplernn":
		return SimpleRNN, nil
	case "gru":
		return GRU, nil
	case "lstm":
		return LSTM, nil
	}
	return 0, params.Configf("unsupported RNN type: %q, expected one of SimpleRNN, GRU, LSTM", s)
}

// Recurrent is what every cell kind provides to the model.
type Recurrent interface {
	Kind() CellKind
	InputSize() int
	Units() int
	// ReturnSequences reports whether the layer feeds every step forward
	// or only the final state.
	ReturnSequences() bool

	// Forward runs the cell over xs from a zero initial state.
	// All recorded state is allocated from ws.
	Forward(ws *utils.Workspace, xs []mat.Vector) *Trace

	// Backward takes dL/dh for every step (nil entries are zero), adds the
	// parameter gradients into Params()[i].Grad and returns dL/dx per step.
	Backward(ws *utils.Workspace, tr *Trace, dH []*mat.VecDense) []*mat.VecDense

	Params() []*optimizations.Param

	// CloneForGradsOnly shares the weights read-only and gives the clone
	// private gradient accumulators.
	CloneForGradsOnly() Recurrent
}

// Trace is everything one Forward call needs to keep for Backward.
// H[0] (and C[0]) is the initial state; H[t+1] is the output of step t.
type Trace struct {
	X     []mat.Vector
	H     []*mat.VecDense
	C     []*mat.VecDense
	Gates [][]*mat.VecDense
}

func (tr *Trace) Steps() int { return len(tr.X) }

// Outputs returns the hidden state after every step.
func (tr *Trace) Outputs() []*mat.VecDense { return tr.H[1:] }

// Last returns the final hidden state.
func (tr *Trace) Last() *mat.VecDense { return tr.H[len(tr.H)-1] }

func newTrace(ws *utils.Workspace, xs []mat.Vector, units int, withCell bool) *Trace {
	T := len(xs)
	tr := &Trace{
		X:     xs,
		H:     make([]*mat.VecDense, T+1),
		Gates: make([][]*mat.VecDense, T),
	}
	tr.H[0] = ws.Vec(units)
	if withCell {
		tr.C = make([]*mat.VecDense, T+1)
		tr.C[0] = ws.Vec(units)
	}
	return tr
}

// NewRecurrent is the single factory for recurrent layers.
func NewRecurrent(kind CellKind, inputSize, units int, returnSequences bool, rng *rand.Rand) (Recurrent, error) {
	if !kind.Valid() {
		return nil, params.Configf("unsupported RNN type: %v", kind)
	}
	if inputSize < 1 || units < 1 {
		return nil, params.Configf("recurrent layer: input %d, units %d, both must be >= 1", inputSize, units)
	}
	if rng == nil {
		return nil, params.Configf("recurrent layer needs a random source")
	}
	base := cellBase{in: inputSize, units: units, returnSeq: returnSequences}
	switch kind {
	case SimpleRNN:
		return newSimpleCell(base, rng), nil
	case GRU:
		return newGRUCell(base, rng), nil
	default:
		return newLSTMCell(base, rng), nil
	}
}

// emitted returns the states r passes to the next layer: every step when it
// returns sequences, otherwise only the last.
func emitted(r Recurrent, tr *Trace) []*mat.VecDense {
	if r.ReturnSequences() {
		return tr.Outputs()
	}
	return []*mat.VecDense{tr.Last()}
}

// spread maps gradients of the emitted states back onto every step of a
// steps long trace, in the form Backward takes.
func spread(r Recurrent, steps int, d []*mat.VecDense) []*mat.VecDense {
	if r.ReturnSequences() {
		return d
	}
	dH := make([]*mat.VecDense, steps)
	dH[steps-1] = d[len(d)-1]
	return dH
}

type cellBase struct {
	in, units int
	returnSeq bool
}

func (b cellBase) InputSize() int        { return b.in }
func (b cellBase) Units() int            { return b.units }
func (b cellBase) ReturnSequences() bool { return b.returnSeq }

// gate holds the kernel, recurrent kernel and bias of one gate:
// a = W x + U h + b, W is (units x in), U is (units x units).
type gate struct {
	W, U, B *optimizations.Param
}

func newGate(name string, in, units int, biasInit float64, rng *rand.Rand) gate {
	b := mat.NewDense(units, 1, nil)
	if biasInit != 0 {
		for i := 0; i < units; i++ {
			b.Set(i, 0, biasInit)
		}
	}
	return gate{
		W: optimizations.NewParam(name+"/kernel", mat.NewDense(units, in, utils.GlorotUniform(rng, units, in))),
		U: optimizations.NewParam(name+"/recurrent_kernel", mat.NewDense(units, units, utils.GlorotNormal(rng, units, units))),
		B: optimizations.NewParam(name+"/bias", b),
	}
}

// preact writes W x + U h + b into dst.
func (g gate) preact(ws *utils.Workspace, dst *mat.VecDense, x, h mat.Vector) {
	dst.MulVec(g.W.Value, x)
	tmp := ws.Vec(dst.Len())
	tmp.MulVec(g.U.Value, h)
	dst.AddVec(dst, tmp)
	dst.AddVec(dst, utils.ColVec(g.B.Value))
}

// backward accumulates the weight grads for pre-activation grad da and adds
// W^T da into dx and U^T da into dh.
func (g gate) backward(ws *utils.Workspace, da *mat.VecDense, x, h mat.Vector, dx, dh *mat.VecDense) {
	g.W.Grad.RankOne(g.W.Grad, 1, da, x)
	g.U.Grad.RankOne(g.U.Grad, 1, da, h)
	db := utils.ColVec(g.B.Grad)
	db.AddVec(db, da)

	tx := ws.Vec(dx.Len())
	tx.MulVec(g.W.Value.T(), da)
	dx.AddVec(dx, tx)
	th := ws.Vec(dh.Len())
	th.MulVec(g.U.Value.T(), da)
	dh.AddVec(dh, th)
}

func (g gate) params() []*optimizations.Param {
	return []*optimizations.Param{g.W, g.U, g.B}
}

func (g gate) cloneForGrads() gate {
	return gate{W: g.W.SharedGradsOnly(), U: g.U.SharedGradsOnly(), B: g.B.SharedGradsOnly()}
}

// stepGrad returns dL/dh for step t: the incoming output grad plus the carry.
func stepGrad(ws *utils.Workspace, carry *mat.VecDense, dH []*mat.VecDense, t int) *mat.VecDense {
	dh := ws.CopyOf(carry)
	if t < len(dH) && dH[t] != nil {
		dh.AddVec(dh, dH[t])
	}
	return dh
}
