package IO

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCSVHistoryWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "training_log.csv")
	h, err := CreateHistoryCSV(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.WriteRow(0, 1.5, 0.25, 1.25, 0.5, 1234.56); err != nil {
		t.Fatal(err)
	}
	if err := h.WriteRow(1, 1, 0.5, 1, 0.75, 10); err != nil {
		t.Fatal(err)
	}
	if err := h.Close(); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines:\n%s", len(lines), raw)
	}
	if lines[0] != "iteration,train_loss,train_accuracy,validation_loss,validation_accuracy,examples_per_sec" {
		t.Fatalf("header = %q", lines[0])
	}
	if lines[1] != "0,1.500000,0.250000,1.250000,0.500000,1234.6" {
		t.Fatalf("row = %q", lines[1])
	}
}

func TestTensorSliceShares(t *testing.T) {
	x := NewTensor(4, 2, 3)
	s := x.Slice(1, 3)
	if s.Shape() != [3]int{2, 2, 3} {
		t.Fatalf("shape = %v", s.Shape())
	}
	s.Seqs[0].Set(0, 0, 1)
	if x.Seqs[1].At(0, 0) != 1 {
		t.Fatal("slice must share rows")
	}
	if hotIndex(x, 1, 0) != 0 || hotIndex(x, 0, 0) != -1 {
		t.Fatal("hot index mismatch")
	}
}
