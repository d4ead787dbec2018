package params

import "strings"

type TrainingConfig struct {
	// Data
	Chars        string  // vocabulary, every rune unique
	Digits       int     // max digits per operand
	TrainingSize int     // number of unique examples to generate
	SplitRatio   float64 // fraction of examples used for training

	// Model
	RNNType      string // SimpleRNN | GRU | LSTM
	RNNLayers    int    // only 1 is supported
	RNNLayerSize int    // hidden width of encoder and decoder

	// Optimization
	BatchSize       int
	TrainIterations int     // one epoch per iteration
	LearningRate    float64 // Adam step size
	AdamBeta1       float64 // default 0.9
	AdamBeta2       float64 // default 0.999
	AdamEps         float64 // default 1e-7
	WeightDecay     float64 // decoupled (AdamW) decay, 0 disables
	GradClip        float64 // <=0 disables
	Shuffle         bool    // shuffle training order every epoch

	// Evaluation
	CountOfTests int // samples decoded after training

	// Runtime
	Seed        uint64 // 0 = seed from the clock
	Workers     int    // gradient workers per step, 0 = physical cores
	HistoryCSV  string // "" disables the csv history log
	Interactive bool   // read questions from stdin after training
}

// DefaultConfig mirrors the constants the addition demo ships with.
func DefaultConfig() TrainingConfig {
	return TrainingConfig{
		Chars:        "0123456789+ ",
		Digits:       2,
		TrainingSize: 5000,
		SplitRatio:   0.9,

		RNNType:      "SimpleRNN",
		RNNLayers:    1,
		RNNLayerSize: 128,

		BatchSize:       128,
		TrainIterations: 100,
		LearningRate:    0.001,
		AdamBeta1:       0.9,
		AdamBeta2:       0.999,
		AdamEps:         1e-7,
		WeightDecay:     0,
		GradClip:        0,
		Shuffle:         true,

		CountOfTests: 20,

		Seed:       0,
		Workers:    0,
		HistoryCSV: "training_log.csv",
	}
}

// InputLen is the padded question width, e.g. "12+34".
func (c TrainingConfig) InputLen() int { return 2*c.Digits + 1 }

// OutputLen is the padded answer width, e.g. "46 ".
func (c TrainingConfig) OutputLen() int { return c.Digits + 1 }

// Validate reports the first field that is out of range.
func (c TrainingConfig) Validate() error {
	switch {
	case len([]rune(c.Chars)) == 0:
		return Configf("Chars: vocabulary is empty")
	case !strings.ContainsRune(c.Chars, ' '):
		return Configf("Chars: %q has no space rune, which is used for padding", c.Chars)
	case c.Digits < 1 || c.Digits > MaxDigits:
		return Configf("Digits: %d, expected 1..%d", c.Digits, MaxDigits)
	case c.TrainingSize < 1:
		return Configf("TrainingSize: %d, expected >= 1", c.TrainingSize)
	case !(c.SplitRatio > 0 && c.SplitRatio < 1):
		return Configf("SplitRatio: %g, expected in (0, 1)", c.SplitRatio)
	case c.RNNLayers != 1:
		return Configf("RNNLayers: %d, only a single encoder/decoder layer is implemented", c.RNNLayers)
	case c.RNNLayerSize < 1:
		return Configf("RNNLayerSize: %d, expected >= 1", c.RNNLayerSize)
	case c.BatchSize < 1:
		return Configf("BatchSize: %d, expected >= 1", c.BatchSize)
	case c.TrainIterations < 0:
		return Configf("TrainIterations: %d, expected >= 0", c.TrainIterations)
	case !(c.LearningRate > 0):
		return Configf("LearningRate: %g, expected > 0", c.LearningRate)
	case c.AdamBeta1 < 0 || c.AdamBeta1 >= 1:
		return Configf("AdamBeta1: %g, expected in [0, 1)", c.AdamBeta1)
	case c.AdamBeta2 < 0 || c.AdamBeta2 >= 1:
		return Configf("AdamBeta2: %g, expected in [0, 1)", c.AdamBeta2)
	case !(c.AdamEps > 0):
		return Configf("AdamEps: %g, expected > 0", c.AdamEps)
	case !(c.WeightDecay >= 0):
		return Configf("WeightDecay: %g, expected >= 0", c.WeightDecay)
	case c.CountOfTests < 0:
		return Configf("CountOfTests: %d, expected >= 0", c.CountOfTests)
	case c.Workers < 0:
		return Configf("Workers: %d, expected >= 0", c.Workers)
	}
	return nil
}

// MaxDigits keeps 10^digits and the pair count inside an int64.
const MaxDigits = 9
