package trainer

import (
	"log"

	"github.com/manningwu07/seq2seq/IO"
)

// Sink receives progress as it happens. Calls come from the training
// goroutine, one at a time.
type Sink interface {
	OnIteration(IterationRecord)
	OnEvaluation([]Sample)
	Log(string)
}

type NopSink struct{}

func (NopSink) OnIteration(IterationRecord) {}
func (NopSink) OnEvaluation([]Sample)       {}
func (NopSink) Log(string)                  {}

// LogSink prints evaluation samples through a standard logger.
// Iteration lines are already logged by the Loop.
type LogSink struct {
	Logger *log.Logger
}

func (s LogSink) OnIteration(IterationRecord) {}

func (s LogSink) OnEvaluation(samples []Sample) {
	for _, smp := range samples {
		mark := "x"
		if smp.Correct {
			mark = "ok"
		}
		s.Logger.Printf("%-3s %s (expected %s)", mark, smp.Text(), smp.Answer)
	}
	s.Logger.Printf("sample accuracy: %.2f", SampleAccuracy(samples))
}

func (s LogSink) Log(string) {}

// CSVSink appends every iteration to a history csv. The first write error is
// kept and later rows are dropped.
type CSVSink struct {
	W   *IO.CSVHistoryWriter
	err error
}

func (s *CSVSink) OnIteration(r IterationRecord) {
	if s.err != nil {
		return
	}
	s.err = s.W.WriteRow(r.Iteration, r.TrainLoss, r.TrainAccuracy,
		r.ValidationLoss, r.ValidationAccuracy, r.ExamplesPerSec)
}

func (s *CSVSink) OnEvaluation([]Sample) {}
func (s *CSVSink) Log(string)            {}

func (s *CSVSink) Err() error { return s.err }

// Sinks fans every call out in order.
type Sinks []Sink

func (ss Sinks) OnIteration(r IterationRecord) {
	for _, s := range ss {
		s.OnIteration(r)
	}
}

func (ss Sinks) OnEvaluation(samples []Sample) {
	for _, s := range ss {
		s.OnEvaluation(samples)
	}
}

func (ss Sinks) Log(line string) {
	for _, s := range ss {
		s.Log(line)
	}
}
