package rnn

import (
	"fmt"
	"strings"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/manningwu07/seq2seq/IO"
	"github.com/manningwu07/seq2seq/optimizations"
	"github.com/manningwu07/seq2seq/params"
	"github.com/manningwu07/seq2seq/utils"
)

// Seq2Seq is encoder -> RepeatVector -> decoder -> time-distributed Dense -> softmax.
type Seq2Seq struct {
	Kind      CellKind
	Digits    int
	InLen     int
	OutLen    int
	VocabSize int
	Hidden    int

	Encoder Recurrent
	Repeat  RepeatVector
	Decoder Recurrent
	Output  *TimeDistributedDense

	Optimizer *optimizations.Adam
	GradClip  float64 // global grad-norm clip, 0 disables

	mu      sync.RWMutex
	params  []*optimizations.Param
	workers []*Seq2Seq
}

func (m *Seq2Seq) collectParams() []*optimizations.Param {
	var ps []*optimizations.Param
	ps = append(ps, m.Encoder.Params()...)
	ps = append(ps, m.Decoder.Params()...)
	return append(ps, m.Output.Params()...)
}

// Params returns every trainable parameter in a fixed order: encoder,
// decoder, dense head.
func (m *Seq2Seq) Params() []*optimizations.Param { return m.params }

func (m *Seq2Seq) ParamCount() int {
	n := 0
	for _, p := range m.Params() {
		r, c := p.Value.Dims()
		n += r * c
	}
	return n
}

// pass holds one sample's forward state.
type pass struct {
	enc, dec *Trace
	probs    []*mat.VecDense
}

func (m *Seq2Seq) forward(ws *utils.Workspace, seq *mat.Dense) pass {
	xs := make([]mat.Vector, m.InLen)
	for t := range xs {
		xs[t] = seq.RowView(t)
	}
	enc := m.Encoder.Forward(ws, xs)
	encOut := emitted(m.Encoder, enc)
	dec := m.Decoder.Forward(ws, m.Repeat.Forward(encOut[len(encOut)-1]))
	return pass{enc: enc, dec: dec, probs: m.Output.Forward(ws, emitted(m.Decoder, dec))}
}

// score returns the summed cross-entropy and the number of correctly
// predicted steps of p against the one-hot target.
func (m *Seq2Seq) score(p pass, target *mat.Dense) (loss float64, correct int) {
	for t, pr := range p.probs {
		gold := utils.ArgmaxRow(target, t)
		loss += utils.CrossEntropyWithIndex(pr, gold, nil)
		if utils.ArgmaxVec(pr) == gold {
			correct++
		}
	}
	return loss, correct
}

// backward adds the raw (unscaled) gradients of the summed step losses into
// the grads of m and returns the same summed loss and hit count as score.
func (m *Seq2Seq) backward(ws *utils.Workspace, p pass, target *mat.Dense) (loss float64, correct int) {
	dLogits := make([]*mat.VecDense, m.OutLen)
	for t, pr := range p.probs {
		gold := utils.ArgmaxRow(target, t)
		dLogits[t] = ws.Vec(m.VocabSize)
		loss += utils.CrossEntropyWithIndex(pr, gold, dLogits[t])
		if utils.ArgmaxVec(pr) == gold {
			correct++
		}
	}
	dDec := m.Output.Backward(ws, emitted(m.Decoder, p.dec), dLogits)
	dRep := m.Decoder.Backward(ws, p.dec, spread(m.Decoder, p.dec.Steps(), dDec))

	dEnc := make([]*mat.VecDense, len(emitted(m.Encoder, p.enc)))
	dEnc[len(dEnc)-1] = m.Repeat.Backward(ws, dRep)
	m.Encoder.Backward(ws, p.enc, spread(m.Encoder, p.enc.Steps(), dEnc))
	return loss, correct
}

func (m *Seq2Seq) checkBatch(x IO.Tensor, steps int, what string) error {
	for i, s := range x.Seqs {
		r, c := s.Dims()
		if r != steps || c != m.VocabSize {
			return params.Configf("%s %d has shape %dx%d, model expects %dx%d", what, i, r, c, steps, m.VocabSize)
		}
	}
	return nil
}

// Predict returns per-step class probabilities, shape (N, OutLen, VocabSize).
func (m *Seq2Seq) Predict(x IO.Tensor) (IO.Tensor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkBatch(x, m.InLen, "input"); err != nil {
		return IO.Tensor{}, err
	}
	out := IO.NewTensor(x.Len(), m.OutLen, m.VocabSize)
	ws := utils.NewWorkspace()
	defer ws.Release()
	for i, seq := range x.Seqs {
		p := m.forward(ws, seq)
		for t, pr := range p.probs {
			out.Seqs[i].SetRow(t, pr.RawVector().Data)
		}
		ws.Release()
	}
	return out, nil
}

// PredictWith is Predict with the probability vectors left in ws.
// out[i][t] is valid until ws is released.
func (m *Seq2Seq) PredictWith(ws *utils.Workspace, x IO.Tensor) ([][]*mat.VecDense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkBatch(x, m.InLen, "input"); err != nil {
		return nil, err
	}
	out := make([][]*mat.VecDense, x.Len())
	for i, seq := range x.Seqs {
		out[i] = m.forward(ws, seq).probs
	}
	return out, nil
}

// Summary lists the layer stack with output shapes and parameter counts.
func (m *Seq2Seq) Summary() string {
	var b strings.Builder
	count := func(ps []*optimizations.Param) int {
		n := 0
		for _, p := range ps {
			r, c := p.Value.Dims()
			n += r * c
		}
		return n
	}
	row := func(name, shape string, n int) {
		fmt.Fprintf(&b, "%-28s %-18s %d\n", name, shape, n)
	}
	name := strings.ToLower(m.Kind.String())
	fmt.Fprintf(&b, "%-28s %-18s %s\n", "Layer (type)", "Output Shape", "Param #")
	row(name+"_encoder ("+m.Kind.String()+")", fmt.Sprintf("(None, %d)", m.Hidden), count(m.Encoder.Params()))
	row("repeat_vector (RepeatVector)", fmt.Sprintf("(None, %d, %d)", m.Repeat.N, m.Hidden), 0)
	row(name+"_decoder ("+m.Kind.String()+")", fmt.Sprintf("(None, %d, %d)", m.OutLen, m.Hidden), count(m.Decoder.Params()))
	row("time_distributed (Dense)", fmt.Sprintf("(None, %d, %d)", m.OutLen, m.VocabSize), count(m.Output.Params()))
	row("activation (Softmax)", fmt.Sprintf("(None, %d, %d)", m.OutLen, m.VocabSize), 0)
	fmt.Fprintf(&b, "Total params: %d\n", m.ParamCount())
	return b.String()
}
