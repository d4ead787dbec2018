package trainer

import (
	"context"
	"io"
	"log"
	"math/rand/v2"
	"time"

	"github.com/pkg/errors"

	"github.com/manningwu07/seq2seq/IO"
	"github.com/manningwu07/seq2seq/params"
	"github.com/manningwu07/seq2seq/rnn"
)

// Loop runs the iterations. Each iteration is one shuffled epoch of
// mini-batch Adam over the training set followed by a validation pass.
type Loop struct {
	Logger  *log.Logger
	Sink    Sink
	Rng     *rand.Rand
	Shuffle bool

	lastLog string
}

// NewLoop fills in a discarding logger and a no-op sink when given nil.
func NewLoop(logger *log.Logger, sink Sink, rng *rand.Rand) *Loop {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if sink == nil {
		sink = NopSink{}
	}
	return &Loop{Logger: logger, Sink: sink, Rng: rng, Shuffle: true}
}

// LastLog returns the most recent iteration line.
func (l *Loop) LastLog() string { return l.lastLog }

// Run trains model for the given number of iterations. ctx is checked
// between iterations only. On error the history recorded so far is returned
// along with it.
func (l *Loop) Run(ctx context.Context, model *rnn.Seq2Seq, trainX, trainY, testX, testY IO.Tensor, iterations, batchSize int) (*History, error) {
	h := &History{}
	switch {
	case iterations < 0:
		return h, params.Configf("iterations: %d, expected >= 0", iterations)
	case batchSize < 1:
		return h, params.Configf("batch size: %d, expected >= 1", batchSize)
	case trainX.Len() != trainY.Len():
		return h, params.Configf("training set has %d inputs and %d targets", trainX.Len(), trainY.Len())
	case testX.Len() != testY.Len():
		return h, params.Configf("validation set has %d inputs and %d targets", testX.Len(), testY.Len())
	case l.Shuffle && l.Rng == nil:
		return h, params.Configf("shuffling needs a random source")
	}

	order := make([]int, trainX.Len())
	for i := range order {
		order[i] = i
	}

	for it := 0; it < iterations; it++ {
		if err := ctx.Err(); err != nil {
			return h, errors.Wrapf(err, "training stopped before iteration %d", it)
		}
		start := time.Now()

		if l.Shuffle {
			l.Rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		}
		var train rnn.BatchStats
		for b := 0; b < len(order); b += batchSize {
			end := min(b+batchSize, len(order))
			stats, err := model.TrainBatch(trainX, trainY, order[b:end])
			if err != nil {
				return h, errors.Wrapf(err, "iteration %d, batch %d", it, b/batchSize)
			}
			train.Loss += stats.Loss
			train.Correct += stats.Correct
			train.Steps += stats.Steps
		}

		val, err := model.Evaluate(testX, testY)
		if err != nil {
			return h, errors.Wrapf(err, "iteration %d, validation", it)
		}

		eps := 0.0
		if secs := time.Since(start).Seconds(); secs > 0 {
			eps = float64(testX.Len()) / secs
		}
		rec := IterationRecord{
			Iteration:          it,
			TrainLoss:          train.MeanLoss(),
			TrainAccuracy:      train.Accuracy(),
			ValidationLoss:     val.MeanLoss(),
			ValidationAccuracy: val.Accuracy(),
			ExamplesPerSec:     eps,
		}
		h.add(rec)

		l.lastLog = rec.String()
		l.Logger.Print(l.lastLog)
		l.Sink.Log(l.lastLog)
		l.Sink.OnIteration(rec)
	}
	return h, nil
}
