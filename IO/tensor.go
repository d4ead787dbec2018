package IO

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Tensor is a batch of N sequences, each a (T x V) matrix, i.e. shape (N, T, V).
type Tensor struct {
	Seqs []*mat.Dense
	T, V int
}

// NewTensor allocates a zeroed (n, t, v) tensor.
func NewTensor(n, t, v int) Tensor {
	seqs := make([]*mat.Dense, n)
	for i := range seqs {
		seqs[i] = mat.NewDense(t, v, nil)
	}
	return Tensor{Seqs: seqs, T: t, V: v}
}

func (x Tensor) Len() int { return len(x.Seqs) }

func (x Tensor) Shape() [3]int { return [3]int{len(x.Seqs), x.T, x.V} }

// Slice returns rows [start, end). The result shares the sequences with x.
func (x Tensor) Slice(start, end int) Tensor {
	if start < 0 || end > len(x.Seqs) || start > end {
		panic(fmt.Sprintf("Tensor.Slice: [%d, %d) out of range for %d rows", start, end, len(x.Seqs)))
	}
	return Tensor{Seqs: x.Seqs[start:end:end], T: x.T, V: x.V}
}
