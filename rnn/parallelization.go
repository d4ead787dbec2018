package rnn

import (
	"gonum.org/v1/gonum/mat"

	"github.com/manningwu07/seq2seq/IO"
	"github.com/manningwu07/seq2seq/optimizations"
	"github.com/manningwu07/seq2seq/parallel"
	"github.com/manningwu07/seq2seq/params"
	"github.com/manningwu07/seq2seq/utils"
)

// CloneForGradsOnly creates a shallow clone of the model where all weights and
// biases are shared read-only but gradient accumulators are private.
// No optimizer state is copied. Clones may run forward/backward concurrently
// as long as nobody writes the shared weights meanwhile.
func (m *Seq2Seq) CloneForGradsOnly() *Seq2Seq {
	c := &Seq2Seq{
		Kind:      m.Kind,
		Digits:    m.Digits,
		InLen:     m.InLen,
		OutLen:    m.OutLen,
		VocabSize: m.VocabSize,
		Hidden:    m.Hidden,
		Encoder:   m.Encoder.CloneForGradsOnly(),
		Repeat:    m.Repeat,
		Decoder:   m.Decoder.CloneForGradsOnly(),
		Output:    m.Output.CloneForGradsOnly(),
	}
	c.params = c.collectParams()
	return c
}

// SetWorkers fixes the number of gradient clones used per step.
func (m *Seq2Seq) SetWorkers(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setWorkersLocked(max(n, 1))
}

func (m *Seq2Seq) Workers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.workers)
}

func (m *Seq2Seq) setWorkersLocked(n int) {
	if len(m.workers) == n {
		return
	}
	m.workers = make([]*Seq2Seq, n)
	for i := range m.workers {
		m.workers[i] = m.CloneForGradsOnly()
	}
}

// BatchStats are the summed step losses and hits of one batch.
type BatchStats struct {
	Loss    float64 // summed over samples and steps
	Correct int
	Steps   int // samples * OutLen
}

// MeanLoss is the cross-entropy averaged over samples and steps.
func (s BatchStats) MeanLoss() float64 {
	if s.Steps == 0 {
		return 0
	}
	return s.Loss / float64(s.Steps)
}

func (s BatchStats) Accuracy() float64 {
	if s.Steps == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Steps)
}

func (s *BatchStats) add(o BatchStats) {
	s.Loss += o.Loss
	s.Correct += o.Correct
	s.Steps += o.Steps
}

// run spreads samples idx over the worker clones: sample j goes to worker
// j % W. Per-worker stats come back in worker order.
func (m *Seq2Seq) run(x, y IO.Tensor, idx []int, grads bool) []BatchStats {
	W := len(m.workers)
	stats := make([]BatchStats, W)
	parallel.ForEach(W, W, func(w int) {
		c := m.workers[w]
		if grads {
			optimizations.ZeroGrads(c.Params())
		}
		ws := utils.NewWorkspace()
		for j := w; j < len(idx); j += W {
			stats[w].add(c.sample(ws, x.Seqs[idx[j]], y.Seqs[idx[j]], grads))
		}
	})
	return stats
}

func (m *Seq2Seq) sample(ws *utils.Workspace, in, target *mat.Dense, grads bool) BatchStats {
	defer ws.Release()
	p := m.forward(ws, in)
	var loss float64
	var correct int
	if grads {
		loss, correct = m.backward(ws, p, target)
	} else {
		loss, correct = m.score(p, target)
	}
	return BatchStats{Loss: loss, Correct: correct, Steps: m.OutLen}
}

// TrainBatch runs one Adam step on the samples x[idx], y[idx].
// The update is skipped and a training error returned when the batch loss
// is not finite.
func (m *Seq2Seq) TrainBatch(x, y IO.Tensor, idx []int) (BatchStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(idx) == 0 {
		return BatchStats{}, nil
	}
	if err := m.checkPair(x, y); err != nil {
		return BatchStats{}, err
	}

	var total BatchStats
	perWorker := m.run(x, y, idx, true)
	for _, s := range perWorker {
		total.add(s)
	}
	if !utils.IsFinite(total.Loss) {
		return total, params.Trainingf("batch loss is %v", total.Loss)
	}

	ps := m.Params()
	optimizations.ZeroGrads(ps)
	for w := range perWorker {
		cps := m.workers[w].Params()
		for i, p := range ps {
			p.Grad.Add(p.Grad, cps[i].Grad)
		}
	}
	scale := 1 / float64(total.Steps)
	for _, p := range ps {
		p.Grad.Scale(scale, p.Grad)
	}
	if m.GradClip > 0 {
		utils.ClipGrads(m.GradClip, optimizations.Grads(ps)...)
	}
	if m.Optimizer == nil {
		m.Optimizer = optimizations.NewAdam()
	}
	m.Optimizer.Step(ps)
	return total, nil
}

// Evaluate returns mean loss and per-step accuracy without touching weights.
func (m *Seq2Seq) Evaluate(x, y IO.Tensor) (BatchStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkPair(x, y); err != nil {
		return BatchStats{}, err
	}
	idx := make([]int, x.Len())
	for i := range idx {
		idx[i] = i
	}
	var total BatchStats
	for _, s := range m.run(x, y, idx, false) {
		total.add(s)
	}
	return total, nil
}

func (m *Seq2Seq) checkPair(x, y IO.Tensor) error {
	if x.Len() != y.Len() {
		return params.Configf("inputs have %d rows, targets %d", x.Len(), y.Len())
	}
	if err := m.checkBatch(x, m.InLen, "input"); err != nil {
		return err
	}
	return m.checkBatch(y, m.OutLen, "target")
}
