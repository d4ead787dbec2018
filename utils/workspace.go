package utils

import (
	"sync"

	"gonum.org/v1/gonum/mat"
)

// vecPools holds one *sync.Pool of *mat.VecDense per vector length.
var vecPools sync.Map

func vecPool(n int) *sync.Pool {
	if p, ok := vecPools.Load(n); ok {
		return p.(*sync.Pool)
	}
	p, _ := vecPools.LoadOrStore(n, &sync.Pool{
		New: func() any { return mat.NewVecDense(n, nil) },
	})
	return p.(*sync.Pool)
}

// Workspace hands out scratch vectors for one forward/backward or one
// evaluation pass. Everything it handed out goes back to the pool on Release,
// so nothing obtained from it may be used afterwards.
// A Workspace is not safe for concurrent use; give each worker its own.
type Workspace struct {
	taken []*mat.VecDense
}

func NewWorkspace() *Workspace { return &Workspace{} }

// Vec returns a zeroed vector of length n.
func (w *Workspace) Vec(n int) *mat.VecDense {
	v := vecPool(n).Get().(*mat.VecDense)
	v.Zero()
	w.taken = append(w.taken, v)
	return v
}

// CopyOf returns a workspace vector holding a copy of src.
func (w *Workspace) CopyOf(src mat.Vector) *mat.VecDense {
	v := w.Vec(src.Len())
	v.CopyVec(src)
	return v
}

// Live reports how many vectors are currently checked out.
func (w *Workspace) Live() int { return len(w.taken) }

func (w *Workspace) Release() {
	for i, v := range w.taken {
		vecPool(v.Len()).Put(v)
		w.taken[i] = nil
	}
	w.taken = w.taken[:0]
}
