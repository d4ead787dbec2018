package rnn

import (
	"math/rand/v2"

	"github.com/pkg/errors"

	"github.com/manningwu07/seq2seq/optimizations"
	"github.com/manningwu07/seq2seq/params"
)

// Build assembles the addition model: a kind encoder over 2*digits+1 steps,
// RepeatVector(digits+1), a kind decoder returning sequences and a
// time-distributed softmax over vocabSize classes.
// The kind is checked before any layer is allocated.
func Build(kind CellKind, hiddenSize, digits, vocabSize int, rng *rand.Rand) (*Seq2Seq, error) {
	if !kind.Valid() {
		return nil, params.Configf("unsupported RNN type: %v, expected one of SimpleRNN, GRU, LSTM", kind)
	}
	switch {
	case hiddenSize < 1:
		return nil, params.Configf("hidden size %d, expected >= 1", hiddenSize)
	case digits < 1 || digits > params.MaxDigits:
		return nil, params.Configf("digits %d, expected 1..%d", digits, params.MaxDigits)
	case vocabSize < 1:
		return nil, params.Configf("vocabulary size %d, expected >= 1", vocabSize)
	case rng == nil:
		return nil, params.Configf("Build needs a random source")
	}

	enc, err := NewRecurrent(kind, vocabSize, hiddenSize, false, rng)
	if err != nil {
		return nil, errors.Wrap(err, "encoder")
	}
	dec, err := NewRecurrent(kind, hiddenSize, hiddenSize, true, rng)
	if err != nil {
		return nil, errors.Wrap(err, "decoder")
	}
	m := &Seq2Seq{
		Kind:      kind,
		Digits:    digits,
		InLen:     2*digits + 1,
		OutLen:    digits + 1,
		VocabSize: vocabSize,
		Hidden:    hiddenSize,
		Encoder:   enc,
		Repeat:    RepeatVector{N: digits + 1},
		Decoder:   dec,
		Output:    NewTimeDistributedDense(hiddenSize, vocabSize, rng),
		Optimizer: optimizations.NewAdam(),
	}
	m.params = m.collectParams()
	m.setWorkersLocked(1)
	return m, nil
}

// BuildFromConfig is Build driven by a validated TrainingConfig.
func BuildFromConfig(cfg params.TrainingConfig, vocabSize int, rng *rand.Rand) (*Seq2Seq, error) {
	kind, err := ParseCellKind(cfg.RNNType)
	if err != nil {
		return nil, err
	}
	if cfg.RNNLayers != 1 {
		return nil, params.Configf("RNNLayers: %d, only a single encoder/decoder layer is implemented", cfg.RNNLayers)
	}
	m, err := Build(kind, cfg.RNNLayerSize, cfg.Digits, vocabSize, rng)
	if err != nil {
		return nil, err
	}
	m.Optimizer.LearningRate = cfg.LearningRate
	m.Optimizer.Beta1 = cfg.AdamBeta1
	m.Optimizer.Beta2 = cfg.AdamBeta2
	m.Optimizer.Eps = cfg.AdamEps
	m.Optimizer.WeightDecay = cfg.WeightDecay
	m.GradClip = cfg.GradClip
	return m, nil
}
