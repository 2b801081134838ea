package parallel

import (
	"sync/atomic"
	"testing"
)

func TestPartition(t *testing.T) {
	tests := []struct {
		name  string
		n     int
		parts int
		want  []Range
	}{
		{"empty", 0, 4, nil},
		{"even", 8, 4, []Range{{0, 2}, {2, 4}, {4, 6}, {6, 8}}},
		{"uneven", 10, 4, []Range{{0, 3}, {3, 6}, {6, 9}, {9, 10}}},
		{"fewer items than parts", 2, 4, []Range{{0, 1}, {1, 2}}},
		{"zero parts", 3, 0, []Range{{0, 3}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Partition(tc.n, tc.parts)
			if len(got) != len(tc.want) {
				t.Fatalf("Partition(%d, %d) = %v, want %v", tc.n, tc.parts, got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("range %d = %v, want %v", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestPoolRunCoversEveryIndexOnce(t *testing.T) {
	for _, workers := range []int{1, 2, 3, 8} {
		p := NewPool(workers)
		p.SetThreshold(0)

		const n = 1000
		hits := make([]int32, n)
		p.Run(n, func(r Range, _ int) {
			for i := r.Start; i < r.End; i++ {
				atomic.AddInt32(&hits[i], 1)
			}
		})
		p.Close()

		for i, h := range hits {
			if h != 1 {
				t.Fatalf("workers=%d: index %d visited %d times", workers, i, h)
			}
		}
	}
}

func TestPoolRunIsBarrier(t *testing.T) {
	p := NewPool(4)
	p.SetThreshold(0)
	defer p.Close()

	const n = 256
	a := make([]int, n)
	b := make([]int, n)

	for step := 0; step < 50; step++ {
		p.Run(n, func(r Range, _ int) {
			for i := r.Start; i < r.End; i++ {
				a[i] = step
			}
		})
		// Every write of the previous stage must be visible here.
		p.Run(n, func(r Range, _ int) {
			for i := r.Start; i < r.End; i++ {
				b[i] = a[(i+n/2)%n]
			}
		})
		for i := range b {
			if b[i] != step {
				t.Fatalf("step %d: b[%d] = %d", step, i, b[i])
			}
		}
	}
}

func TestPoolWorkerSlotsUnique(t *testing.T) {
	p := NewPool(4)
	p.SetThreshold(0)
	defer p.Close()

	var seen [4]int32
	p.Run(100, func(_ Range, worker int) {
		atomic.AddInt32(&seen[worker], 1)
	})
	for w, c := range seen {
		if c != 1 {
			t.Errorf("worker slot %d used %d times", w, c)
		}
	}
}

func TestPoolBelowThresholdRunsInline(t *testing.T) {
	p := NewPool(4)
	defer p.Close()

	calls := 0
	p.Run(DefaultThreshold-1, func(r Range, worker int) {
		calls++
		if r.Start != 0 || r.End != DefaultThreshold-1 || worker != 0 {
			t.Errorf("inline call got range %v worker %d", r, worker)
		}
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if p.running {
		t.Error("workers started for a below-threshold stage")
	}
}

func TestPoolRestartAfterClose(t *testing.T) {
	p := NewPool(2)
	p.SetThreshold(0)

	var total int64
	add := func(r Range, _ int) { atomic.AddInt64(&total, int64(r.Len())) }

	p.Run(10, add)
	p.Close()
	p.Close()
	p.Run(10, add)
	p.Close()

	if total != 20 {
		t.Errorf("total = %d, want 20", total)
	}
}
