package trainer

import "fmt"

type Split string

const (
	Train      Split = "train"
	Validation Split = "validation"
)

// Point is one value of a metric series.
type Point struct {
	Iteration int
	Split     Split
	Value     float64
}

// IterationRecord is everything measured during one iteration.
type IterationRecord struct {
	Iteration          int
	TrainLoss          float64
	TrainAccuracy      float64
	ValidationLoss     float64
	ValidationAccuracy float64
	ExamplesPerSec     float64
}

func (r IterationRecord) String() string {
	return fmt.Sprintf(
		"Iteration %d: train loss = %.6f; train accuracy = %.6f; validation loss = %.6f; validation accuracy = %.6f (%.1f examples/s)",
		r.Iteration, r.TrainLoss, r.TrainAccuracy, r.ValidationLoss, r.ValidationAccuracy, r.ExamplesPerSec,
	)
}

// History is append-only; series are keyed by iteration and split.
type History struct {
	Loss           []Point
	Accuracy       []Point
	ExamplesPerSec []Point
	Records        []IterationRecord
}

func (h *History) add(r IterationRecord) {
	h.Loss = append(h.Loss,
		Point{r.Iteration, Train, r.TrainLoss},
		Point{r.Iteration, Validation, r.ValidationLoss})
	h.Accuracy = append(h.Accuracy,
		Point{r.Iteration, Train, r.TrainAccuracy},
		Point{r.Iteration, Validation, r.ValidationAccuracy})
	h.ExamplesPerSec = append(h.ExamplesPerSec, Point{r.Iteration, Validation, r.ExamplesPerSec})
	h.Records = append(h.Records, r)
}

func (h *History) Len() int { return len(h.Records) }

// Last returns the most recent record, false if there is none.
func (h *History) Last() (IterationRecord, bool) {
	if len(h.Records) == 0 {
		return IterationRecord{}, false
	}
	return h.Records[len(h.Records)-1], true
}

// Series returns the points of one split from Loss or Accuracy.
func Series(points []Point, split Split) []float64 {
	var out []float64
	for _, p := range points {
		if p.Split == split {
			out = append(out, p.Value)
		}
	}
	return out
}
