package parallel

import (
	"go/parser"
	"go/token"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

func TestForEachVisitsEveryIndexOnce(t *testing.T) {
	for _, limit := range []int{0, 1, 3, 16} {
		const n = 50
		var hits [n]int32
		ForEach(n, limit, func(i int) { atomic.AddInt32(&hits[i], 1) })
		for i, h := range hits {
			if h != 1 {
				t.Fatalf("limit=%d: index %d visited %d times", limit, i, h)
			}
		}
	}
}

func TestForEachRespectsLimit(t *testing.T) {
	var (
		mu      sync.Mutex
		running int
		peak    int
	)
	ForEach(40, 4, func(int) {
		mu.Lock()
		running++
		peak = max(peak, running)
		mu.Unlock()
		for i := 0; i < 1000; i++ {
			_ = i * i
		}
		mu.Lock()
		running--
		mu.Unlock()
	})
	if peak > 4 {
		t.Fatalf("peak concurrency %d > 4", peak)
	}
}

func TestForEachEmpty(t *testing.T) {
	ForEach(0, 4, func(int) { t.Fatal("body called") })
}

func TestDefaultWorkers(t *testing.T) {
	if DefaultWorkers() < 1 {
		t.Fatalf("DefaultWorkers() = %d", DefaultWorkers())
	}
	if !strings.HasPrefix(CPUInfo(), "cpu: ") {
		t.Fatalf("CPUInfo() = %q", CPUInfo())
	}
}

func TestPackageDocComment(t *testing.T) {
	f, err := parser.ParseFile(token.NewFileSet(), "foreach.go", nil, parser.PackageClauseOnly|parser.ParseComments)
	if err != nil {
		t.Fatal(err)
	}
	if f.Doc == nil || !strings.HasPrefix(f.Doc.Text(), "Package parallel ") {
		t.Fatalf("package doc = %q", f.Doc.Text())
	}
}
