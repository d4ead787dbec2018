package rnn

import (
	"errors"
	"math"
	"math/rand/v2"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/manningwu07/seq2seq/IO"
	"github.com/manningwu07/seq2seq/optimizations"
	"github.com/manningwu07/seq2seq/params"
	"github.com/manningwu07/seq2seq/utils"
)

var allKinds = []CellKind{SimpleRNN, GRU, LSTM}

func randomOneHot(rng *rand.Rand, n, steps, vocab int) IO.Tensor {
	x := IO.NewTensor(n, steps, vocab)
	for _, s := range x.Seqs {
		for t := 0; t < steps; t++ {
			s.Set(t, rng.IntN(vocab), 1)
		}
	}
	return x
}

func mustBuild(t *testing.T, kind CellKind, hidden, digits, vocab int, seed uint64) *Seq2Seq {
	t.Helper()
	m, err := Build(kind, hidden, digits, vocab, rand.New(rand.NewPCG(seed, seed)))
	if err != nil {
		t.Fatalf("Build(%v): %v", kind, err)
	}
	return m
}

func sampleLoss(m *Seq2Seq, x, y *mat.Dense) float64 {
	ws := utils.NewWorkspace()
	defer ws.Release()
	loss, _ := m.score(m.forward(ws, x), y)
	return loss
}

func finiteDiffCheck(t *testing.T, name string, param, grad *mat.Dense, forward func() float64, i, j int) {
	t.Helper()
	eps := 1e-5
	w0 := param.At(i, j)

	param.Set(i, j, w0+eps)
	lp := forward()
	param.Set(i, j, w0-eps)
	lm := forward()
	param.Set(i, j, w0)

	numGrad := (lp - lm) / (2.0 * eps)
	anaGrad := grad.At(i, j)
	if math.Abs(numGrad-anaGrad) > 1e-6+1e-4*math.Abs(numGrad) {
		t.Fatalf("%s[%d,%d] grad mismatch: num=%.8g ana=%.8g", name, i, j, numGrad, anaGrad)
	}
}

func TestSeq2SeqGradCheck(t *testing.T) {
	for _, kind := range allKinds {
		t.Run(kind.String(), func(t *testing.T) {
			m := mustBuild(t, kind, 3, 1, 4, 11)
			rng := rand.New(rand.NewPCG(5, 5))
			x := randomOneHot(rng, 1, m.InLen, m.VocabSize).Seqs[0]
			y := randomOneHot(rng, 1, m.OutLen, m.VocabSize).Seqs[0]

			ws := utils.NewWorkspace()
			optimizations.ZeroGrads(m.Params())
			m.backward(ws, m.forward(ws, x), y)
			ws.Release()

			forward := func() float64 { return sampleLoss(m, x, y) }
			for _, p := range m.Params() {
				r, c := p.Value.Dims()
				for i := 0; i < r; i++ {
					for j := 0; j < c; j++ {
						finiteDiffCheck(t, p.Name, p.Value, p.Grad, forward, i, j)
					}
				}
			}
		})
	}
}

// Every step feeds the loss, which exercises the carried state and the
// per-step input grads of a cell on its own.
func TestCellInputGradCheck(t *testing.T) {
	for _, kind := range allKinds {
		t.Run(kind.String(), func(t *testing.T) {
			rng := rand.New(rand.NewPCG(9, 9))
			cell, err := NewRecurrent(kind, 3, 4, true, rng)
			if err != nil {
				t.Fatal(err)
			}
			x := mat.NewDense(5, 3, utils.GlorotUniform(rng, 5, 3))
			w := mat.NewDense(5, 4, utils.GlorotUniform(rng, 5, 4))

			// loss = sum_t <w_t, h_t>
			run := func(ws *utils.Workspace) (*Trace, float64) {
				xs := make([]mat.Vector, 5)
				for i := range xs {
					xs[i] = x.RowView(i)
				}
				tr := cell.Forward(ws, xs)
				loss := 0.0
				for i, h := range tr.Outputs() {
					loss += mat.Dot(h, w.RowView(i))
				}
				return tr, loss
			}

			ws := utils.NewWorkspace()
			tr, _ := run(ws)
			dH := make([]*mat.VecDense, 5)
			for i := range dH {
				dH[i] = ws.CopyOf(w.RowView(i))
			}
			optimizations.ZeroGrads(cell.Params())
			dX := cell.Backward(ws, tr, dH)
			dXm := mat.NewDense(5, 3, nil)
			for i, d := range dX {
				dXm.SetRow(i, d.RawVector().Data)
			}
			ws.Release()

			forward := func() float64 {
				ws := utils.NewWorkspace()
				defer ws.Release()
				_, l := run(ws)
				return l
			}
			for i := 0; i < 5; i++ {
				for j := 0; j < 3; j++ {
					finiteDiffCheck(t, "x", x, dXm, forward, i, j)
				}
			}
			for _, p := range cell.Params() {
				finiteDiffCheck(t, p.Name, p.Value, p.Grad, forward, 0, 0)
			}
		})
	}
}

func TestPredictShapeAndDistribution(t *testing.T) {
	for _, kind := range allKinds {
		m := mustBuild(t, kind, 8, 2, 12, 1)
		x := randomOneHot(rand.New(rand.NewPCG(2, 2)), 4, 5, 12)
		out, err := m.Predict(x)
		if err != nil {
			t.Fatal(err)
		}
		if out.Shape() != [3]int{4, 3, 12} {
			t.Fatalf("%v: shape %v", kind, out.Shape())
		}
		for i, s := range out.Seqs {
			for r := 0; r < 3; r++ {
				sum := mat.Sum(s.RowView(r))
				if math.Abs(sum-1) > 1e-9 {
					t.Fatalf("%v: row %d/%d sums to %g", kind, i, r, sum)
				}
			}
		}
	}
}

func TestPredictRejectsWrongShape(t *testing.T) {
	m := mustBuild(t, GRU, 4, 2, 12, 1)
	if _, err := m.Predict(IO.NewTensor(1, 4, 12)); !errors.Is(err, params.ErrConfig) {
		t.Fatalf("got %v", err)
	}
}

func TestBuildRejectsUnknownKind(t *testing.T) {
	// a nil rng would panic if any layer were allocated
	if _, err := Build(CellKind(42), 8, 2, 12, nil); !errors.Is(err, params.ErrConfig) {
		t.Fatalf("got %v", err)
	}
	if _, err := ParseCellKind("transformer"); !errors.Is(err, params.ErrConfig) {
		t.Fatalf("got %v", err)
	}
	for s, want := range map[string]CellKind{"SimpleRNN": SimpleRNN, "gru": GRU, " LSTM ": LSTM} {
		if got, err := ParseCellKind(s); err != nil || got != want {
			t.Fatalf("ParseCellKind(%q) = %v, %v", s, got, err)
		}
	}
}

func TestNewRecurrentNeedsRandomSource(t *testing.T) {
	for _, kind := range allKinds {
		if _, err := NewRecurrent(kind, 3, 4, false, nil); !errors.Is(err, params.ErrConfig) {
			t.Fatalf("%v: got %v", kind, err)
		}
	}
}

func TestEmittedFollowsReturnSequences(t *testing.T) {
	for _, kind := range allKinds {
		rng := rand.New(rand.NewPCG(3, 3))
		xs := make([]mat.Vector, 5)
		for i := range xs {
			xs[i] = mat.NewVecDense(3, utils.GlorotUniform(rng, 1, 3))
		}
		for _, seq := range []bool{false, true} {
			cell, err := NewRecurrent(kind, 3, 4, seq, rng)
			if err != nil {
				t.Fatal(err)
			}
			ws := utils.NewWorkspace()
			tr := cell.Forward(ws, xs)
			out := emitted(cell, tr)
			want := 1
			if seq {
				want = 5
			}
			if len(out) != want || out[len(out)-1] != tr.Last() {
				t.Fatalf("%v seq=%v: %d outputs", kind, seq, len(out))
			}

			d := make([]*mat.VecDense, want)
			d[want-1] = ws.Vec(4)
			dH := spread(cell, tr.Steps(), d)
			if len(dH) != 5 || dH[4] != d[want-1] {
				t.Fatalf("%v seq=%v: spread gave %d steps", kind, seq, len(dH))
			}
			if !seq && dH[0] != nil {
				t.Fatalf("%v: only the last step should carry a gradient", kind)
			}
			ws.Release()
		}
	}
}

func TestBuildFromConfigCopiesOptimizer(t *testing.T) {
	cfg := params.DefaultConfig()
	cfg.LearningRate = 0.01
	cfg.WeightDecay = 0.001
	cfg.GradClip = 5
	m, err := BuildFromConfig(cfg, 12, rand.New(rand.NewPCG(1, 1)))
	if err != nil {
		t.Fatal(err)
	}
	if m.Optimizer.LearningRate != 0.01 || m.Optimizer.WeightDecay != 0.001 || m.GradClip != 5 {
		t.Fatalf("optimizer %+v, clip %g", *m.Optimizer, m.GradClip)
	}
}

func TestBuildFromConfigRejectsLayers(t *testing.T) {
	cfg := params.DefaultConfig()
	cfg.RNNLayers = 2
	if _, err := BuildFromConfig(cfg, 12, rand.New(rand.NewPCG(1, 1))); !errors.Is(err, params.ErrConfig) {
		t.Fatalf("got %v", err)
	}
}

func TestWorkerCountDoesNotChangeStep(t *testing.T) {
	rng := rand.New(rand.NewPCG(4, 4))
	x := randomOneHot(rng, 10, 5, 12)
	y := randomOneHot(rng, 10, 3, 12)
	idx := []int{3, 1, 4, 0, 5, 9, 2, 6}

	a := mustBuild(t, LSTM, 6, 2, 12, 8)
	b := mustBuild(t, LSTM, 6, 2, 12, 8)
	b.SetWorkers(3)

	sa, err := a.TrainBatch(x, y, idx)
	if err != nil {
		t.Fatal(err)
	}
	sb, err := b.TrainBatch(x, y, idx)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(sa.Loss-sb.Loss) > 1e-9 || sa.Correct != sb.Correct || sa.Steps != 24 {
		t.Fatalf("stats differ: %+v vs %+v", sa, sb)
	}
	pb := b.Params()
	for i, p := range a.Params() {
		if !mat.EqualApprox(p.Value, pb[i].Value, 1e-8) {
			t.Fatalf("%s differs after one step", p.Name)
		}
	}
}

func TestTrainBatchLowersLoss(t *testing.T) {
	rng := rand.New(rand.NewPCG(6, 6))
	x := randomOneHot(rng, 8, 5, 12)
	y := randomOneHot(rng, 8, 3, 12)
	idx := []int{0, 1, 2, 3, 4, 5, 6, 7}

	m := mustBuild(t, GRU, 16, 2, 12, 3)
	m.Optimizer.LearningRate = 0.01
	m.SetWorkers(2)
	before, _ := m.Evaluate(x, y)
	for i := 0; i < 50; i++ {
		if _, err := m.TrainBatch(x, y, idx); err != nil {
			t.Fatal(err)
		}
	}
	after, _ := m.Evaluate(x, y)
	if !(after.MeanLoss() < before.MeanLoss()) {
		t.Fatalf("loss did not drop: %.4f -> %.4f", before.MeanLoss(), after.MeanLoss())
	}
}

func TestTrainBatchRefusesNonFiniteLoss(t *testing.T) {
	rng := rand.New(rand.NewPCG(6, 6))
	x := randomOneHot(rng, 2, 5, 12)
	y := randomOneHot(rng, 2, 3, 12)
	m := mustBuild(t, SimpleRNN, 4, 2, 12, 3)
	m.Output.W.Value.Set(0, 0, math.NaN())
	before := mat.DenseCopyOf(m.Output.B.Value)

	_, err := m.TrainBatch(x, y, []int{0, 1})
	if !errors.Is(err, params.ErrTraining) {
		t.Fatalf("got %v", err)
	}
	if !mat.Equal(before, m.Output.B.Value) || m.Optimizer.T != 0 {
		t.Fatal("parameters were updated")
	}
}

func TestSummaryListsLayers(t *testing.T) {
	m := mustBuild(t, SimpleRNN, 128, 2, 12, 1)
	s := m.Summary()
	// 12*128+128*128+128, 128*128*2+128, 128*12+12
	want := (12*128 + 128*128 + 128) + (128*128*2 + 128) + (128*12 + 12)
	if m.ParamCount() != want {
		t.Fatalf("ParamCount = %d, want %d", m.ParamCount(), want)
	}
	for _, part := range []string{"RepeatVector", "(None, 3, 12)", "Softmax"} {
		if !strings.Contains(s, part) {
			t.Fatalf("summary missing %q:\n%s", part, s)
		}
	}
}
