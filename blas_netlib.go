//go:build netlib && !accelerate

package main

// #cgo LDFLAGS: -lopenblas
import "C"
import (
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/netlib/blas/netlib"
)

// Build with `-tags netlib` to run the gate and dense products on OpenBLAS.
func init() {
	blas64.Use(netlib.Implementation{})
}
