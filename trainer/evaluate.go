package trainer

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/manningwu07/seq2seq/IO"
	"github.com/manningwu07/seq2seq/params"
	"github.com/manningwu07/seq2seq/rnn"
	"github.com/manningwu07/seq2seq/utils"
)

// Sample is one decoded test question.
type Sample struct {
	Question  string
	Predicted string
	Answer    string
	Correct   bool
}

// Text is the display form, "12+7  = 19 ".
func (s Sample) Text() string { return s.Question + " = " + s.Predicted }

func SampleAccuracy(samples []Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	n := 0
	for _, s := range samples {
		if s.Correct {
			n++
		}
	}
	return float64(n) / float64(len(samples))
}

// Evaluator decodes the first count test questions. It never writes to the
// model.
type Evaluator struct {
	model    *rnn.Seq2Seq
	table    *IO.CharacterTable
	testX    IO.Tensor
	examples []IO.Example
	count    int

	// display is computed on first use and kept until Reset.
	display         *IO.Tensor
	displayExamples []IO.Example
}

func NewEvaluator(model *rnn.Seq2Seq, table *IO.CharacterTable, testX IO.Tensor, examples []IO.Example, count int) (*Evaluator, error) {
	switch {
	case testX.Len() != len(examples):
		return nil, params.Configf("test set has %d rows but %d examples", testX.Len(), len(examples))
	case count < 0 || count > len(examples):
		return nil, params.Configf("sample count %d, test set has %d examples", count, len(examples))
	}
	return &Evaluator{model: model, table: table, testX: testX, examples: examples, count: count}, nil
}

// Reset drops the cached display slice.
func (e *Evaluator) Reset() {
	e.display = nil
	e.displayExamples = nil
}

// answersMatch compares a decoded prediction with its answer ignoring
// trailing padding only. A leading space is a wrong character.
func answersMatch(pred, answer string) bool {
	return strings.TrimRight(pred, string(IO.PadRune)) == strings.TrimRight(answer, string(IO.PadRune))
}

// Evaluate runs one inference pass over the display slice.
func (e *Evaluator) Evaluate() ([]Sample, error) {
	if e.display == nil {
		s := e.testX.Slice(0, e.count)
		e.display = &s
		e.displayExamples = e.examples[:e.count]
	}

	ws := utils.NewWorkspace()
	defer ws.Release()

	probs, err := e.model.PredictWith(ws, *e.display)
	if err != nil {
		return nil, errors.Wrap(err, "predicting test samples")
	}
	samples := make([]Sample, len(probs))
	for i, steps := range probs {
		ex := e.displayExamples[i]
		pred := e.table.DecodeVecs(steps)
		samples[i] = Sample{
			Question:  ex.Question,
			Predicted: pred,
			Answer:    ex.Answer,
			Correct:   answersMatch(pred, ex.Answer),
		}
	}
	return samples, nil
}
